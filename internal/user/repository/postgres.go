package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"nean/internal/user"
)

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	DB *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

type userRow struct {
	ID           int64          `db:"id"`
	Login        string         `db:"login"`
	Password     string         `db:"password"`
	Roles        pq.StringArray `db:"roles"`
	RefreshToken string         `db:"refresh_token"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (login, password, roles) VALUES ($1, $2, $3) RETURNING id, created_at`

	err := r.DB.QueryRowxContext(ctx, query, u.Login, u.Password, pq.Array(rolesOrEmpty(u.Roles))).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.Wrapf(user.ErrAlreadyExists, "create %q", u.Login)
		}
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

func (r *PostgresUserRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	query := `SELECT id, login, password, roles, refresh_token, created_at FROM users WHERE login = $1`

	var row userRow
	err := r.DB.GetContext(ctx, &row, query, login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by login")
	}

	return &user.User{
		ID:           row.ID,
		Login:        row.Login,
		Password:     row.Password,
		Roles:        rolesOrEmpty(row.Roles),
		RefreshToken: row.RefreshToken,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
