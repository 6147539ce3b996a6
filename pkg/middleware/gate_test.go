package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nean/pkg/apierror"
	"nean/pkg/jwt"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type seen struct {
	claims  *jwt.Claims
	refresh string
	called  bool
}

func newGateRouter(t *testing.T, c *clock, s *seen, perms ...string) (http.Handler, *jwt.Manager) {
	t.Helper()
	m, err := jwt.NewManager("TOKEN_SECRET", 10*time.Minute, jwt.WithClock(c.Now))
	require.NoError(t, err)

	gate := NewGate(m, GateConfig{
		AccessTokenHeader:  "Authorization",
		RefreshTokenHeader: "Refresh",
		RefreshRoute:       "/api/refresh",
	}, nil)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.claims, _ = ClaimsFromContext(r.Context())
		s.refresh, _ = RefreshTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Route("/api", func(r chi.Router) {
		r.With(gate.RequiresLogin, RequiresPermission(perms...)).Get("/refresh", h)
		r.With(gate.RequiresLogin, RequiresPermission(perms...)).Get("/logout", h)
	})
	return r, m
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func do(h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequiresLogin_MissingHeader(t *testing.T) {
	s := &seen{}
	h, _ := newGateRouter(t, &clock{t: time.Now()}, s)

	rec := do(h, "/api/logout", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "NOT_AUTHORIZED_ACCESS", body["code"])
	assert.Equal(t, rec.Header().Get(RequestIDHeader), body["reqId"])
	assert.False(t, s.called)
}

func TestRequiresLogin_NonBearerScheme(t *testing.T) {
	c := &clock{t: time.Now()}
	s := &seen{}
	h, m := newGateRouter(t, c, s)
	tok, err := m.Generate("test", []string{"USER"})
	require.NoError(t, err)

	for _, value := range []string{"Basic " + tok, "bearer " + tok, "Bearer", "Bearer ", tok} {
		rec := do(h, "/api/logout", map[string]string{"Authorization": value})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, value)
	}
	assert.False(t, s.called)
}

func TestRequiresLogin_ValidToken(t *testing.T) {
	c := &clock{t: time.Now()}
	s := &seen{}
	h, m := newGateRouter(t, c, s)
	tok, err := m.Generate("test", []string{"USER"})
	require.NoError(t, err)

	rec := do(h, "/api/logout", map[string]string{"Authorization": "Bearer " + tok, "Refresh": "r-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, s.called)
	assert.Equal(t, "test", s.claims.Login)
	assert.Equal(t, []string{"USER"}, s.claims.Roles)
	assert.Equal(t, "r-1", s.refresh)
}

func TestRequiresLogin_ExpiredOnOrdinaryRoute(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := &seen{}
	h, m := newGateRouter(t, c, s)
	tok, err := m.Generate("test", []string{"USER"})
	require.NoError(t, err)
	c.t = c.t.Add(11 * time.Minute)

	rec := do(h, "/api/logout", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, apierror.StatusAuthenticationExpired, rec.Code)
	assert.Equal(t, "EXPIRED_ACCESS_TOKEN", decodeEnvelope(t, rec)["code"])
	assert.False(t, s.called)
}

func TestRequiresLogin_ExpiredOnRefreshRoute(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := &seen{}
	h, m := newGateRouter(t, c, s)
	tok, err := m.Generate("test", []string{"USER"})
	require.NoError(t, err)
	c.t = c.t.Add(11 * time.Minute)

	rec := do(h, "/api/refresh", map[string]string{"Authorization": "Bearer " + tok, "Refresh": "r-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, s.called)
	assert.Equal(t, "test", s.claims.Login)
	assert.Equal(t, "r-1", s.refresh)
}

func TestRequiresLogin_ForgedTokenOnRefreshRoute(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := &seen{}
	h, _ := newGateRouter(t, c, s)

	other, err := jwt.NewManager("other-secret", time.Minute, jwt.WithClock(c.Now))
	require.NoError(t, err)
	tok, err := other.Generate("test", []string{"ADMIN"})
	require.NoError(t, err)

	for _, path := range []string{"/api/refresh", "/api/logout"} {
		rec := do(h, path, map[string]string{"Authorization": "Bearer " + tok})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	// still forged after expiry
	c.t = c.t.Add(time.Hour)
	rec := do(h, "/api/refresh", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, s.called)
}

func TestRequiresLogin_RefreshRouteFallsBackToPath(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	m, err := jwt.NewManager("TOKEN_SECRET", time.Minute, jwt.WithClock(c.Now))
	require.NoError(t, err)
	gate := NewGate(m, GateConfig{AccessTokenHeader: "Authorization", RefreshTokenHeader: "Refresh", RefreshRoute: "/api/refresh"}, nil)

	called := false
	h := gate.RequiresLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	tok, err := m.Generate("test", nil)
	require.NoError(t, err)
	c.t = c.t.Add(2 * time.Minute)

	rec := do(h, "/api/refresh", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	called = false
	rec = do(h, "/api/other", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, apierror.StatusAuthenticationExpired, rec.Code)
	assert.False(t, called)
}

func TestRequiresPermission(t *testing.T) {
	tests := []struct {
		name   string
		perms  []string
		roles  []string
		status int
	}{
		{name: "no permissions required", perms: nil, roles: []string{}, status: http.StatusOK},
		{name: "matching role", perms: []string{"ADMIN", "USER"}, roles: []string{"USER"}, status: http.StatusOK},
		{name: "no overlap", perms: []string{"ADMIN"}, roles: []string{"USER"}, status: http.StatusForbidden},
		{name: "empty roles", perms: []string{"ADMIN"}, roles: nil, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &clock{t: time.Now()}
			s := &seen{}
			h, m := newGateRouter(t, c, s, tt.perms...)
			tok, err := m.Generate("test", tt.roles)
			require.NoError(t, err)

			rec := do(h, "/api/logout", map[string]string{"Authorization": "Bearer " + tok})

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN_OPERATION", decodeEnvelope(t, rec)["code"])
			}
		})
	}
}

func TestRequiresPermission_WithoutClaims(t *testing.T) {
	h := RequiresPermission("ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := do(h, "/api/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearerToken("Token abc")
	assert.False(t, ok)
	_, ok = bearerToken("")
	assert.False(t, ok)
}
