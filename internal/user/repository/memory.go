package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"nean/internal/user"
)

// MemoryRepository keeps accounts in process memory. It serves both the
// user and the refresh token contracts, like the users table does.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]user.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]user.User)}
}

func (r *MemoryRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Login]; ok {
		return errors.Wrapf(user.ErrAlreadyExists, "create %q", u.Login)
	}

	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	u.Roles = rolesOrEmpty(u.Roles)

	stored := *u
	stored.Roles = append([]string(nil), u.Roles...)
	r.users[u.Login] = stored
	return nil
}

// GetByLogin returns a copy; callers cannot mutate stored state.
func (r *MemoryRepository) GetByLogin(_ context.Context, login string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.users[login]
	if !ok {
		return nil, user.ErrNotFound
	}
	u := stored
	u.Roles = append([]string{}, stored.Roles...)
	return &u, nil
}

func (r *MemoryRepository) Save(_ context.Context, login, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[login]
	if !ok {
		return errors.Wrapf(user.ErrNotFound, "save refresh token for %q", login)
	}
	stored.RefreshToken = refreshToken
	r.users[login] = stored
	return nil
}
