package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidora/vidora-api/internal/media"
	"github.com/vidora/vidora-api/internal/models"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
)

type authUserRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// AuthService is the session manager. It owns the single-refresh-token-per-
// user invariant: the credential store holds at most one live refresh token
// per user, and every login or refresh overwrites it, implicitly revoking
// whatever session came before. Access tokens have no server-side revocation
// path; once issued they stay valid until expiry, logout included. Callers
// needing faster revocation must shorten the access token lifetime.
type AuthService struct {
	repo      authUserRepository
	tokens    *TokenService
	uploader  media.Uploader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens *TokenService, uploader media.Uploader, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, tokens: tokens, uploader: uploader, validator: validate, logger: logger}
}

// Register creates a new user. avatarPath is the spooled avatar file and is
// required; coverPath is optional and uploaded best-effort.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, avatarPath, coverPath string) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if avatarPath == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "avatar is required")
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already taken")
	}

	avatarURL, err := s.uploader.Upload(ctx, avatarPath, media.ObjectKey("avatars", avatarPath))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to upload avatar")
	}

	var coverURL string
	if coverPath != "" {
		coverURL, err = s.uploader.Upload(ctx, coverPath, media.ObjectKey("covers", coverPath))
		if err != nil {
			s.logger.Warn("failed to upload cover image", zap.Error(err))
			coverURL = ""
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:      username,
		Email:         req.Email,
		FullName:      req.FullName,
		PasswordHash:  string(hash),
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the existence check; the
		// unique constraint is the authority.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	info := user.Info()
	return &info, nil
}

// Login authenticates by username or email (either one is accepted as the
// identifier) and returns a fresh token pair. The refresh token is persisted
// on the user in a single store write.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByIdentifier(ctx, strings.ToLower(strings.TrimSpace(req.Identifier)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored password hash unusable")
	}

	accessToken, _, err := s.tokens.Issue(models.TokenKindAccess, user)
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.tokens.Issue(models.TokenKindRefresh, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessExpiry().Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         user.Info(),
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair. The presented
// token must both verify cryptographically and match the stored value; the
// stored value is rotated in the same conditional write, so a refresh token
// is single-use and a replayed one fails as stale. Both new tokens are
// computed before the one persisting write: an aborted request can never
// clear the old token without the new one existing.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*models.RefreshResponse, error) {
	if presented == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token required")
	}

	claims, err := s.tokens.Verify(presented, models.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	accessToken, _, err := s.tokens.Issue(models.TokenKindAccess, user)
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.tokens.Issue(models.TokenKindRefresh, user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.repo.RotateRefreshToken(ctx, user.ID, presented, refreshToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate refresh token")
	}
	if !rotated {
		return nil, appErrors.Clone(appErrors.ErrTokenStale, "refresh token superseded")
	}

	return &models.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessExpiry().Seconds()),
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// Logout clears the stored refresh token. Logging out an already logged-out
// user is a no-op success.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear refresh token")
	}
	return nil
}

// ChangePassword verifies the old password and persists a new hash. A wrong
// old password rejects without mutating anything. The stored refresh token
// is left untouched; changing the password does not force re-login.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored password hash unusable")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, string(newHash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	return nil
}
