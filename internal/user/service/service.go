package service

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"nean/internal/metrics"
	"nean/internal/token"
	"nean/internal/user"
	"nean/pkg/apierror"
	"nean/pkg/hash"
	"nean/pkg/jwt"
)

type UserRepository interface {
	Create(context.Context, *user.User) error
	GetByLogin(context.Context, string) (*user.User, error)
}

// AccessTokenIssuer signs access tokens; jwt.Manager satisfies it.
type AccessTokenIssuer interface {
	Generate(login string, roles []string) (string, error)
}

// UserService issues, rotates and exchanges the tokens of an account.
type UserService struct {
	repo       UserRepository
	tokens     token.RefreshTokenRepository
	issuer     AccessTokenIssuer
	saltFactor int
	logger     *slog.Logger

	newRefreshToken func() string
}

func NewUserService(
	repo UserRepository,
	tokens token.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	saltFactor int,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:            repo,
		tokens:          tokens,
		issuer:          issuer,
		saltFactor:      saltFactor,
		logger:          logger,
		newRefreshToken: token.NewRefreshToken,
	}
}

// Register creates an account with a hashed password.
func (s *UserService) Register(ctx context.Context, login, password string, roles []string) (*user.User, error) {
	if login == "" || password == "" {
		return nil, apierror.WithMessage(apierror.KindInvalidRequest, "login and password are required")
	}

	hashed, err := hash.HashPassword(password, s.saltFactor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}
	if roles == nil {
		roles = []string{}
	}

	u := &user.User{
		Login:    login,
		Password: hashed,
		Roles:    roles,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "login", login, "roles", roles)
	return u, nil
}

// Login checks credentials, replaces the stored refresh token and returns
// a fresh token pair. It is the only place refresh tokens are created.
func (s *UserService) Login(ctx context.Context, login, password string) (*token.Pair, error) {
	pair, err := s.login(ctx, login, password)
	if err != nil {
		metrics.AuthLoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.AuthLoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return pair, nil
}

func (s *UserService) login(ctx context.Context, login, password string) (*token.Pair, error) {
	u, err := s.repo.GetByLogin(ctx, login)
	if errors.Is(err, user.ErrNotFound) {
		s.logger.InfoContext(ctx, "login rejected: unknown login", "login", login)
		return nil, apierror.New(apierror.KindBadLogin)
	}
	if err != nil {
		return nil, err
	}

	ok, err := hash.CheckPassword(u.Password, password)
	if err != nil {
		return nil, errors.Wrapf(err, "check password for %q", login)
	}
	if !ok {
		s.logger.InfoContext(ctx, "login rejected: bad password", "login", login)
		return nil, apierror.New(apierror.KindBadPassword)
	}

	refresh, err := s.RotateRefreshToken(ctx, u)
	if err != nil {
		return nil, err
	}
	access, err := s.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "login", login)
	return &token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// RotateRefreshToken stores a new refresh token on the account, revoking
// the previous one, and returns it.
func (s *UserService) RotateRefreshToken(ctx context.Context, u *user.User) (string, error) {
	refresh := s.newRefreshToken()
	if err := s.tokens.Save(ctx, u.Login, refresh); err != nil {
		return "", errors.Wrapf(err, "rotate refresh token for %q", u.Login)
	}
	u.RefreshToken = refresh
	return refresh, nil
}

func (s *UserService) IssueAccessToken(u *user.User) (string, error) {
	access, err := s.issuer.Generate(u.Login, u.Roles)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return access, nil
}

// RefreshAccessToken exchanges the presented refresh token for a new access
// token built from the current account record. The refresh token itself is
// not rotated.
func (s *UserService) RefreshAccessToken(ctx context.Context, claims *jwt.Claims, presented string) (*token.Access, error) {
	access, err := s.refresh(ctx, claims, presented)
	if err != nil {
		metrics.AuthRefreshTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.AuthRefreshTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return access, nil
}

func (s *UserService) refresh(ctx context.Context, claims *jwt.Claims, presented string) (*token.Access, error) {
	u, err := s.repo.GetByLogin(ctx, claims.Login)
	if errors.Is(err, user.ErrNotFound) {
		s.logger.ErrorContext(ctx, "refresh for unknown account", "login", claims.Login)
		return nil, apierror.New(apierror.KindUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	if presented == "" || presented != u.RefreshToken {
		s.logger.InfoContext(ctx, "refresh rejected: token revoked", "login", claims.Login)
		return nil, apierror.New(apierror.KindRefreshRevoked)
	}

	access, err := s.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &token.Access{AccessToken: access}, nil
}
