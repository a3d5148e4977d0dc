package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidora/vidora-api/internal/models"
	"github.com/vidora/vidora-api/pkg/config"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
)

// TokenService is the token codec: it mints and verifies signed, expiring
// tokens. Verification is pure and stateless; whether a refresh token is
// still the live one for its user is the session manager's concern.
type TokenService struct {
	config config.TokenConfig
}

// NewTokenService constructs a TokenService from the signing configuration.
func NewTokenService(cfg config.TokenConfig) *TokenService {
	return &TokenService{config: cfg}
}

// Issue signs a token of the given kind for the user. TTL and secret are
// kind-specific.
func (s *TokenService) Issue(kind models.TokenKind, user *models.User) (string, time.Time, error) {
	secret, ttl, err := s.material(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Kind:     kind,
		// The jti makes every issued token unique even when two are minted
		// for the same user within the same second.
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign token")
	}
	return signed, expiresAt, nil
}

// Verify parses the token string against the secret for the expected kind
// and returns its claims. A token of the wrong kind never validates, even
// when its own signature is sound, because the kinds use independent
// secrets and the kind claim is checked on top.
func (s *TokenService) Verify(tokenString string, kind models.TokenKind) (*models.TokenClaims, error) {
	secret, _, err := s.material(kind)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, "token expired")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, appErrors.Wrap(err, appErrors.ErrTokenMalformed.Code, appErrors.ErrTokenMalformed.Status, "token malformed")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, "token invalid")
		}
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "invalid token claims")
	}
	if claims.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "unexpected token kind")
	}

	return claims, nil
}

// AccessExpiry exposes the configured access token lifetime.
func (s *TokenService) AccessExpiry() time.Duration {
	return s.config.AccessExpiry
}

// RefreshExpiry exposes the configured refresh token lifetime.
func (s *TokenService) RefreshExpiry() time.Duration {
	return s.config.RefreshExpiry
}

func (s *TokenService) material(kind models.TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case models.TokenKindAccess:
		if s.config.AccessSecret == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrInternal, "access token secret not configured")
		}
		return []byte(s.config.AccessSecret), s.config.AccessExpiry, nil
	case models.TokenKindRefresh:
		if s.config.RefreshSecret == "" {
			return nil, 0, appErrors.Clone(appErrors.ErrInternal, "refresh token secret not configured")
		}
		return []byte(s.config.RefreshSecret), s.config.RefreshExpiry, nil
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown token kind %q", kind))
	}
}
