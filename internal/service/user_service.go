package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidora/vidora-api/internal/media"
	"github.com/vidora/vidora-api/internal/models"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) error
	UpdateAvatarURL(ctx context.Context, id, url string) error
	UpdateCoverImageURL(ctx context.Context, id, url string) error
}

type channelRepository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
}

// UserService serves profile reads and updates plus the derived channel
// view.
type UserService struct {
	repo      profileUserRepository
	channels  channelRepository
	cache     *CacheService
	metrics   *MetricsService
	uploader  media.Uploader
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewUserService creates an instance of UserService.
func NewUserService(repo profileUserRepository, channels channelRepository, cache *CacheService, metrics *MetricsService, uploader media.Uploader, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, channels: channels, cache: cache, metrics: metrics, uploader: uploader, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Get returns the sanitized user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := user.Info()
	return &info, nil
}

// UpdateAccount patches the mutable profile fields.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, req models.UpdateAccountRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if err := s.repo.UpdateProfile(ctx, userID, req.FullName, req.Email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account")
	}
	return s.Get(ctx, userID)
}

// UpdateAvatar uploads the spooled file and persists the new avatar URL.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.UserInfo, error) {
	if localPath == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "avatar file is required")
	}
	url, err := s.uploader.Upload(ctx, localPath, media.ObjectKey("avatars", localPath))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to upload avatar")
	}
	if err := s.repo.UpdateAvatarURL(ctx, userID, url); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar url")
	}
	return s.Get(ctx, userID)
}

// UpdateCoverImage uploads the spooled file and persists the new cover URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.UserInfo, error) {
	if localPath == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cover image file is required")
	}
	url, err := s.uploader.Upload(ctx, localPath, media.ObjectKey("covers", localPath))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to upload cover image")
	}
	if err := s.repo.UpdateCoverImageURL(ctx, userID, url); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cover image url")
	}
	return s.Get(ctx, userID)
}

// ChannelProfile returns the aggregated channel view for username as seen by
// viewerID. Results are cached per (channel, viewer) for a short TTL; the
// aggregation is a read-only derived view, so no invalidation is needed.
func (s *UserService) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}

	cacheKey := fmt.Sprintf("channel:%s:%s", username, viewerID)
	var cached models.ChannelProfile
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	start := time.Now()
	profile, err := s.channels.ChannelProfile(ctx, username, viewerID)
	s.metrics.ObserveDBQuery("channel_profile", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load channel profile")
	}

	if err := s.cache.Set(ctx, cacheKey, profile, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache channel profile", zap.String("key", cacheKey), zap.Error(err))
	}

	return profile, nil
}
