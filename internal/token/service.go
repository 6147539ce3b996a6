package token

import (
	"context"

	"github.com/google/uuid"
)

// RefreshTokenRepository persists the single refresh token of an account.
// Save overwrites whatever was stored before.
type RefreshTokenRepository interface {
	Save(ctx context.Context, login, refreshToken string) error
}

// NewRefreshToken returns an opaque UUID v4 string.
func NewRefreshToken() string {
	return uuid.NewString()
}
