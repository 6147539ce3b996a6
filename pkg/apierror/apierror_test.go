package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StatusTable(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindBadLogin, "BAD_LOGIN", http.StatusUnauthorized},
		{KindBadPassword, "BAD_PASSWORD", http.StatusUnauthorized},
		{KindUnauthorizedAccess, "NOT_AUTHORIZED_ACCESS", http.StatusUnauthorized},
		{KindAuthenticationExpired, "EXPIRED_ACCESS_TOKEN", 419},
		{KindForbiddenOperation, "FORBIDDEN_OPERATION", http.StatusForbidden},
		{KindRefreshRevoked, "REFRESH_NOT_ALLOWED", http.StatusUnauthorized},
		{KindUserNotFound, "USER_NOT_FOUND", http.StatusInternalServerError},
		{KindNotFound, "NOT_FOUND", http.StatusNotFound},
		{KindMethodNotAllowed, "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed},
		{KindInvalidRequest, "INVALID_REQUEST", http.StatusBadRequest},
		{KindTooManyRequests, "TOO_MANY_REQUESTS", http.StatusTooManyRequests},
		{KindInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			e := New(tc.kind)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.status, e.Status())
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestNew_UnknownKindFallsBackToInternal(t *testing.T) {
	e := New(Kind(999))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.Status())
}

func TestFrom_WrapsUnclassifiedAsInternal(t *testing.T) {
	cause := errors.New("db down")
	e := From(cause)

	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "db down", e.Message)
	assert.ErrorIs(t, e, cause)
}

func TestFrom_KeepsWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", New(KindBadPassword))

	assert.Equal(t, KindBadPassword, From(wrapped).Kind)
	assert.Equal(t, KindBadPassword, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, New(KindBadPassword))
	assert.NotErrorIs(t, wrapped, New(KindBadLogin))
}

func TestWrite_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()

	Write(rec, "req-1", New(KindRefreshRevoked))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"code":    "REFRESH_NOT_ALLOWED",
		"message": "Refresh token has been revoked",
		"reqId":   "req-1",
	}, body)
}

func TestWrite_InternalPreservesMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	Write(rec, "req-2", errors.New("connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "connection refused", body["message"])
}
