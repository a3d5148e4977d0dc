package models

import "time"

// User represents a registered principal stored in the users table.
//
// RefreshToken holds the single live refresh token for the user, or nil when
// logged out. No token history is kept: issuing a new refresh token
// implicitly invalidates every prior one.
type User struct {
	ID            string    `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"full_name"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	AvatarURL     string    `db:"avatar_url" json:"avatar_url"`
	CoverImageURL string    `db:"cover_image_url" json:"cover_image_url"`
	RefreshToken  *string   `db:"refresh_token" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Info returns the externally safe projection of the user. The password hash
// and stored refresh token never leave the credential store boundary.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
	}
}

// UserInfo describes a user in API responses.
type UserInfo struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
