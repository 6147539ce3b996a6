// Package apierror holds the error kinds that cross the HTTP boundary and
// writes them as the uniform {code, message, reqId} envelope.
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// StatusAuthenticationExpired tells clients to call the refresh endpoint
// instead of logging in again.
const StatusAuthenticationExpired = 419

type Kind int

const (
	KindInternal Kind = iota
	KindBadLogin
	KindBadPassword
	KindUnauthorizedAccess
	KindAuthenticationExpired
	KindForbiddenOperation
	KindRefreshRevoked
	KindUserNotFound
	KindNotFound
	KindMethodNotAllowed
	KindInvalidRequest
	KindTooManyRequests
)

type descriptor struct {
	code    string
	message string
	status  int
}

var kinds = map[Kind]descriptor{
	KindInternal:              {"INTERNAL_ERROR", "An unknown server error occurred while processing request", http.StatusInternalServerError},
	KindBadLogin:              {"BAD_LOGIN", "Bad login", http.StatusUnauthorized},
	KindBadPassword:           {"BAD_PASSWORD", "Bad password", http.StatusUnauthorized},
	KindUnauthorizedAccess:    {"NOT_AUTHORIZED_ACCESS", "Not authorized to access to this endpoint", http.StatusUnauthorized},
	KindAuthenticationExpired: {"EXPIRED_ACCESS_TOKEN", "Access token has expired", StatusAuthenticationExpired},
	KindForbiddenOperation:    {"FORBIDDEN_OPERATION", "Not authorized to perform operation", http.StatusForbidden},
	KindRefreshRevoked:        {"REFRESH_NOT_ALLOWED", "Refresh token has been revoked", http.StatusUnauthorized},
	// A token pointing at a deleted account is a data consistency problem, not a client error.
	KindUserNotFound:     {"USER_NOT_FOUND", "No user found for login in JWT Token", http.StatusInternalServerError},
	KindNotFound:         {"NOT_FOUND", "No endpoint mapped for requested url", http.StatusNotFound},
	KindMethodNotAllowed: {"METHOD_NOT_ALLOWED", "Method not allowed for requested url", http.StatusMethodNotAllowed},
	KindInvalidRequest:   {"INVALID_REQUEST", "Invalid request", http.StatusBadRequest},
	KindTooManyRequests:  {"TOO_MANY_REQUESTS", "Too many requests", http.StatusTooManyRequests},
}

// Error is the single error type handlers and middleware hand to Write.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status mapped to the error kind.
func (e *Error) Status() int {
	if d, ok := kinds[e.Kind]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// Is matches on kind so callers can test with errors.Is(err, apierror.New(KindX)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind with its default code and message.
func New(kind Kind) *Error {
	d, ok := kinds[kind]
	if !ok {
		d = kinds[KindInternal]
		kind = KindInternal
	}
	return &Error{Kind: kind, Code: d.code, Message: d.message}
}

// WithMessage returns New(kind) with a custom message.
func WithMessage(kind Kind, message string) *Error {
	e := New(kind)
	e.Message = message
	return e
}

// Internal wraps an unclassified failure, keeping the cause message.
func Internal(err error) *Error {
	e := New(KindInternal)
	if err != nil {
		e.Message = err.Error()
		e.Err = err
	}
	return e
}

// From returns err as an *Error, wrapping anything unclassified as internal.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

// KindOf reports the kind of err, KindInternal when it is unclassified.
func KindOf(err error) Kind {
	return From(err).Kind
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ReqID   string `json:"reqId"`
}

// Write sends err as a JSON envelope with the status mapped to its kind.
func Write(w http.ResponseWriter, reqID string, err error) {
	apiErr := From(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	json.NewEncoder(w).Encode(envelope{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		ReqID:   reqID,
	})
}
