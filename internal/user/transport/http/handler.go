package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nean/internal/api/dto"
	"nean/internal/logging"
	"nean/internal/user/service"
	"nean/pkg/apierror"
	"nean/pkg/middleware"
)

type Handler struct {
	UserService *service.UserService
	logger      *slog.Logger
}

func NewHandler(us *service.UserService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{UserService: us, logger: logger}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, apierror.WithMessage(apierror.KindInvalidRequest, "Invalid JSON body"))
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, r, err)
		return
	}

	pair, err := h.UserService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Refresh runs behind the gate, which lets expired access tokens through on
// this route only.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, r, apierror.New(apierror.KindUnauthorizedAccess))
		return
	}
	presented, _ := middleware.RefreshTokenFromContext(r.Context())

	access, err := h.UserService.RefreshAccessToken(r.Context(), claims, presented)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, access)
}

// Logout only acknowledges; the client drops its tokens and the next login
// overwrites the stored refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "user logged out", "login", claims.Login)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Log records a client-side log entry at the level named in the URL.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "level")
	level, ok := logging.LevelFromName(name)
	if !ok {
		h.fail(w, r, apierror.WithMessage(apierror.KindInvalidRequest, "Unknown log level '"+name+"'"))
		return
	}

	var entry map[string]any
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.fail(w, r, apierror.WithMessage(apierror.KindInvalidRequest, "Invalid JSON body"))
		return
	}

	attrs := []any{"source", "client", "request_id", middleware.GetReqID(r.Context())}
	for k, v := range entry {
		if k == "message" {
			continue
		}
		attrs = append(attrs, k, v)
	}
	msg, _ := entry["message"].(string)
	if msg == "" {
		msg = "client log"
	}
	h.logger.Log(r.Context(), level, msg, attrs...)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, apierror.New(apierror.KindNotFound))
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, apierror.New(apierror.KindMethodNotAllowed))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.From(err)
	if apiErr.Kind == apierror.KindInternal || apiErr.Kind == apierror.KindUserNotFound {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"code", apiErr.Code,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	apierror.Write(w, middleware.GetReqID(r.Context()), apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
