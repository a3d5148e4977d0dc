package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidora/vidora-api/internal/models"
	"github.com/vidora/vidora-api/internal/service"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
	"github.com/vidora/vidora-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated user.
const ContextUserKey = "currentUser"

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "access_token"

type principalResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate protects routes by requiring a valid access token. The token
// is taken from the access cookie first, then from the Authorization header
// as a Bearer fallback. On success the resolved user is attached to the
// context with its password hash and refresh token stripped; raw token
// claims are never attached.
func Authenticate(tokens *service.TokenService, users principalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, tokens, users)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OptionalAuthenticate attaches the user when a valid token is present but
// does not block.
func OptionalAuthenticate(tokens *service.TokenService, users principalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := resolveUser(c, tokens, users); err == nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored on the context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func resolveUser(c *gin.Context, tokens *service.TokenService, users principalResolver) (*models.User, error) {
	tokenString := ExtractAccessToken(c)
	if tokenString == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	claims, err := tokens.Verify(tokenString, models.TokenKindAccess)
	if err != nil {
		return nil, err
	}

	user, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}

	// The secrets stay inside the credential store boundary.
	user.PasswordHash = ""
	user.RefreshToken = nil
	return user, nil
}

// ExtractAccessToken reads the bearer credential, cookie first, header
// fallback.
func ExtractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
