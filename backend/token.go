package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// userFromToken reads the identity embedded in an access token. Tokens are
// issued and verified by the backend; the client only decodes claims, it is
// not a verifier.
func userFromToken(raw string) (*User, time.Time, error) {
	var claims accessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, time.Time{}, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	user := &User{
		ID:           claims.Subject,
		Email:        claims.Email,
		Role:         claims.Role,
		UserMetadata: claims.UserMetadata,
	}
	return user, expiry, nil
}
