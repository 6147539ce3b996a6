package http

import (
	"github.com/go-chi/chi/v5"

	"nean/pkg/middleware"
)

// Paths are the endpoint routes relative to the API base.
type Paths struct {
	Login   string
	Logout  string
	Refresh string
	Logger  string
}

// Routes builds the API subrouter. Mount it at the API base so the gate sees
// the refresh route as base+Paths.Refresh.
func (h *Handler) Routes(gate *middleware.Gate, loginLimiter *middleware.RateLimiter, p Paths) chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.With(loginLimiter.Middleware, middleware.ValidateRequest).Post(p.Login, h.Login)
	r.With(gate.RequiresLogin).Get(p.Refresh, h.Refresh)
	r.With(gate.RequiresLogin).Get(p.Logout, h.Logout)
	r.With(middleware.ValidateRequest).Post(p.Logger, h.Log)

	return r
}
