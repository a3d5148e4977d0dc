package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vidora/vidora-api/internal/models"
)

// SubscriptionRepository serves the derived channel-profile view over the
// subscriptions edge table (subscriber_id -> channel_id).
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ChannelProfile aggregates the channel owned by username as seen by
// viewerID. viewerID may be empty for anonymous viewers.
func (r *SubscriptionRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	const query = `SELECT
			u.id, u.username, u.full_name, u.avatar_url, u.cover_image_url,
			(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
			(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
			EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2) AS is_subscribed
		FROM users u WHERE u.username = $1 LIMIT 1`
	var profile models.ChannelProfile
	if err := r.db.GetContext(ctx, &profile, query, username, viewerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("channel profile for %s: %w", username, err)
	}
	return &profile, nil
}
