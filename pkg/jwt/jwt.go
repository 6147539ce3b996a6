package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the access token payload.
type Claims struct {
	Login string   `json:"login"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 access tokens with a single secret.
// It holds no mutable state once built.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Generate signs a token for login and roles expiring ttl from now.
func (m *Manager) Generate(login string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		Login: login,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(m.now().Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Parse verifies signature and expiry. An otherwise valid token past its
// expiry yields ErrTokenExpired; every other failure yields ErrTokenInvalid.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && onlyExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseExpired verifies the signature but skips claim validation, so an
// expired token still decodes. It exists for the refresh route only, whose
// handler re-checks the caller against the stored refresh token.
func (m *Manager) ParseExpired(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string, extra ...jwt.ParserOption) (*Claims, error) {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}, extra...)

	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Login == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// onlyExpired reports whether expiry is the sole reason validation failed.
// Signature errors never reach claim validation, so this only has to rule
// out other claim failures joined with the expiry one.
func onlyExpired(err error) bool {
	for _, other := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidSubject,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}
