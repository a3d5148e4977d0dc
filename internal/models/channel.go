package models

// ChannelProfile is the derived social-graph view of a user's channel:
// profile fields plus subscription aggregates. It is read-only; subscription
// writes belong to the video domain.
type ChannelProfile struct {
	ID                string `db:"id" json:"id"`
	Username          string `db:"username" json:"username"`
	FullName          string `db:"full_name" json:"full_name"`
	AvatarURL         string `db:"avatar_url" json:"avatar_url"`
	CoverImageURL     string `db:"cover_image_url" json:"cover_image_url"`
	SubscriberCount   int    `db:"subscriber_count" json:"subscriber_count"`
	SubscribedToCount int    `db:"subscribed_to_count" json:"subscribed_to_count"`
	IsSubscribed      bool   `db:"is_subscribed" json:"is_subscribed"`
}
