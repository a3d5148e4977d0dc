package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidora/vidora-api/internal/models"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
)

type mockUserRepo struct {
	user              *models.User
	findErr           error
	exists            bool
	existsErr         error
	createErr         error
	updateRefreshErr  error
	updatePasswordErr error
	created           *models.User
}

func (m *mockUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = user
	return nil
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	if m.updateRefreshErr != nil {
		return m.updateRefreshErr
	}
	if m.user != nil && m.user.ID == id {
		m.user.RefreshToken = token
	}
	return nil
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	if m.user == nil || m.user.ID != id || m.user.RefreshToken == nil || *m.user.RefreshToken != current {
		return false, nil
	}
	m.user.RefreshToken = &next
	return true, nil
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.user != nil && m.user.ID == id {
		m.user.PasswordHash = passwordHash
	}
	return nil
}

type mockUploader struct {
	uploads []string
	err     error
}

func (m *mockUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, key)
	return "https://cdn.example.com/" + key, nil
}

func newTestAuthService(repo *mockUserRepo, uploader *mockUploader) *AuthService {
	if uploader == nil {
		uploader = &mockUploader{}
	}
	tokens := NewTokenService(testTokenConfig())
	return NewAuthService(repo, tokens, uploader, validator.New(), zap.NewNop())
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "Alice", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "alice", res.User.Username)

	require.NotNil(t, repo.user.RefreshToken)
	assert.Equal(t, res.RefreshToken, *repo.user.RefreshToken)
}

func TestAuthServiceLoginOverwritesPriorSession(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	first, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "password"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "password"})
	require.NoError(t, err)

	require.NotNil(t, repo.user.RefreshToken)
	assert.Equal(t, second.RefreshToken, *repo.user.RefreshToken)

	// The first session's refresh token no longer matches the stored one.
	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenStale.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownIdentifier(t *testing.T) {
	repo := &mockUserRepo{findErr: sql.ErrNoRows}
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "nobody", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.user.RefreshToken)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "password"})
	require.NoError(t, err)

	res, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	require.NotNil(t, repo.user.RefreshToken)
	assert.Equal(t, res.RefreshToken, *repo.user.RefreshToken)
}

func TestAuthServiceRefreshReplayIsStale(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "password"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	// Presenting the consumed token again must fail and must not clobber
	// the rotated one.
	stored := *repo.user.RefreshToken
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenStale.Code, appErrors.FromError(err).Code)
	assert.Equal(t, stored, *repo.user.RefreshToken)
}

func TestAuthServiceRefreshRejectsAccessToken(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hashOf(t, "password")}}
	svc := newTestAuthService(repo, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "alice", Password: "password"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshEmptyToken(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{}, nil)

	_, err := svc.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutClearsToken(t *testing.T) {
	token := "stored"
	repo := &mockUserRepo{user: &models.User{ID: "u1", RefreshToken: &token}}
	svc := newTestAuthService(repo, nil)

	require.NoError(t, svc.Logout(context.Background(), "u1"))
	assert.Nil(t, repo.user.RefreshToken)

	// Logging out twice is a no-op success.
	require.NoError(t, svc.Logout(context.Background(), "u1"))
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashOf(t, "old-password")
	stored := "stored-refresh"
	repo := &mockUserRepo{user: &models.User{ID: "u1", PasswordHash: oldHash, RefreshToken: &stored}}
	svc := newTestAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("new-password")))

	// The session survives a password change.
	require.NotNil(t, repo.user.RefreshToken)
	assert.Equal(t, stored, *repo.user.RefreshToken)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	oldHash := hashOf(t, "old-password")
	repo := &mockUserRepo{user: &models.User{ID: "u1", PasswordHash: oldHash}}
	svc := newTestAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, oldHash, repo.user.PasswordHash)
}

func TestAuthServiceRegisterSuccess(t *testing.T) {
	repo := &mockUserRepo{}
	uploader := &mockUploader{}
	svc := newTestAuthService(repo, uploader)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Example",
		Username: "Alice",
		Email:    "alice@example.com",
		Password: "password",
	}, "/tmp/avatar.png", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.NotEmpty(t, info.AvatarURL)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "password", repo.created.PasswordHash)
	assert.Len(t, uploader.uploads, 1)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	repo := &mockUserRepo{exists: true}
	svc := newTestAuthService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Example",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	}, "/tmp/avatar.png", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterConcurrentDuplicate(t *testing.T) {
	// The existence check passes but the insert loses the race to another
	// registration; the unique-constraint violation still surfaces as a
	// conflict, not an internal error.
	repo := &mockUserRepo{createErr: fmt.Errorf("create user: %w", &pq.Error{Code: "23505"})}
	svc := newTestAuthService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Example",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	}, "/tmp/avatar.png", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterMissingAvatar(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{}, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Example",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	}, "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterUploadFailure(t *testing.T) {
	uploader := &mockUploader{err: assert.AnError}
	repo := &mockUserRepo{}
	svc := newTestAuthService(repo, uploader)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Example",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password",
	}, "/tmp/avatar.png", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDependency.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, repo.created)
}
