package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "full_name", "avatar_url", "cover_image_url", "subscriber_count", "subscribed_to_count", "is_subscribed"}).
		AddRow("u2", "bob", "Bob", "https://cdn/bob.png", "", 12, 4, true)
	mock.ExpectQuery("SELECT(?s:.*)FROM users u WHERE u.username").
		WithArgs("bob", "u1").
		WillReturnRows(rows)

	profile, err := repo.ChannelProfile(context.Background(), "bob", "u1")
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)
	assert.Equal(t, 12, profile.SubscriberCount)
	assert.Equal(t, 4, profile.SubscribedToCount)
	assert.True(t, profile.IsSubscribed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelProfileNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubscriptionRepository(db)

	mock.ExpectQuery("SELECT(?s:.*)FROM users u WHERE u.username").
		WithArgs("ghost", "").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ChannelProfile(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
