package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"nean/internal/token"
	"nean/internal/user"
)

// BreakerRepository fails account store calls fast once the backing store
// keeps erroring. Lookups that miss and duplicate inserts are not failures.
type BreakerRepository struct {
	users  user.Repository
	tokens token.RefreshTokenRepository
	cb     *gobreaker.CircuitBreaker
}

func NewBreakerRepository(users user.Repository, tokens token.RefreshTokenRepository, logger *slog.Logger) *BreakerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "account-store",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, user.ErrNotFound) ||
				errors.Is(err, user.ErrAlreadyExists) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerRepository{users: users, tokens: tokens, cb: cb}
}

func (r *BreakerRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.users.Create(ctx, u)
	})
	return unavailable(err)
}

func (r *BreakerRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		return r.users.GetByLogin(ctx, login)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return res.(*user.User), nil
}

func (r *BreakerRepository) Save(ctx context.Context, login, refreshToken string) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.tokens.Save(ctx, login, refreshToken)
	})
	return unavailable(err)
}

func unavailable(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrap(err, "account store unavailable")
	}
	return err
}
