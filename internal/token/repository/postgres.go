package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"nean/internal/user"
)

type RefreshTokenRepository struct {
	DB *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{DB: db}
}

// Save replaces the refresh token of login in a single statement.
func (r *RefreshTokenRepository) Save(ctx context.Context, login, refreshToken string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1 WHERE login = $2`,
		refreshToken, login)
	if err != nil {
		return errors.Wrap(err, "failed to save refresh token")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to save refresh token")
	}
	if n == 0 {
		return errors.Wrapf(user.ErrNotFound, "save refresh token for %q", login)
	}
	return nil
}
