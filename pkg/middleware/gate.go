package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nean/internal/metrics"
	"nean/pkg/apierror"
	"nean/pkg/jwt"
)

type claimsKey struct{}
type refreshTokenKey struct{}

// TokenParser is the verification side of jwt.Manager.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
	ParseExpired(token string) (*jwt.Claims, error)
}

type GateConfig struct {
	AccessTokenHeader  string
	RefreshTokenHeader string
	// RefreshRoute is the full route pattern of the refresh endpoint, e.g. /api/refresh.
	RefreshRoute string
}

// Gate classifies the credentials of every request before it reaches a
// handler: valid, expired or absent/invalid.
type Gate struct {
	parser TokenParser
	cfg    GateConfig
	logger *slog.Logger
}

func NewGate(parser TokenParser, cfg GateConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{parser: parser, cfg: cfg, logger: logger}
}

// RequiresLogin rejects requests without a valid bearer access token. On the
// refresh route an expired but correctly signed token is let through so the
// handler can exchange the refresh token.
func (g *Gate) RequiresLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get(g.cfg.AccessTokenHeader))
		if !ok {
			g.reject(w, r, apierror.KindUnauthorizedAccess)
			return
		}

		claims, err := g.parser.Parse(raw)
		switch {
		case err == nil:
		case errors.Is(err, jwt.ErrTokenExpired):
			if !g.isRefreshRoute(r) {
				g.reject(w, r, apierror.KindAuthenticationExpired)
				return
			}
			claims, err = g.parser.ParseExpired(raw)
			if err != nil {
				g.reject(w, r, apierror.KindUnauthorizedAccess)
				return
			}
			g.logger.DebugContext(r.Context(), "expired access token accepted on refresh route", "login", claims.Login)
		default:
			g.reject(w, r, apierror.KindUnauthorizedAccess)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		if refresh := r.Header.Get(g.cfg.RefreshTokenHeader); refresh != "" {
			ctx = context.WithValue(ctx, refreshTokenKey{}, refresh)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequiresPermission lets a request through when permissions is empty or the
// authenticated roles share at least one entry with it.
func RequiresPermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(permissions) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				rejectWith(w, r, apierror.KindUnauthorizedAccess)
				return
			}
			for _, role := range claims.Roles {
				for _, p := range permissions {
					if role == p {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			rejectWith(w, r, apierror.KindForbiddenOperation)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(refreshTokenKey{}).(string)
	return token, ok
}

func (g *Gate) isRefreshRoute(r *http.Request) bool {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern == g.cfg.RefreshRoute
		}
	}
	return r.URL.Path == g.cfg.RefreshRoute
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, kind apierror.Kind) {
	g.logger.DebugContext(r.Context(), "request rejected by gate",
		"path", r.URL.Path,
		"kind", apierror.New(kind).Code,
		"request_id", GetReqID(r.Context()),
	)
	rejectWith(w, r, kind)
}

func rejectWith(w http.ResponseWriter, r *http.Request, kind apierror.Kind) {
	err := apierror.New(kind)
	metrics.AuthGateRejections.WithLabelValues(err.Code).Inc()
	apierror.Write(w, GetReqID(r.Context()), err)
}

// bearerToken expects exactly "Bearer <token>".
func bearerToken(value string) (string, bool) {
	parts := strings.Split(value, " ")
	if len(parts) < 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
