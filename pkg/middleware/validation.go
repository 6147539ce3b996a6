package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"nean/pkg/apierror"
)

// MaxBodySize caps request bodies accepted by ValidateRequest.
const MaxBodySize = 1 << 20

// ValidateRequest rejects POST/PUT requests that are not JSON or carry no
// body, and caps the body size for the rest of the chain.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				apierror.Write(w, GetReqID(r.Context()),
					apierror.WithMessage(apierror.KindInvalidRequest, "Invalid Content-Type, expected application/json"))
				return
			}
			if r.ContentLength == 0 {
				apierror.Write(w, GetReqID(r.Context()),
					apierror.WithMessage(apierror.KindInvalidRequest, "Request body cannot be empty"))
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError answers with INVALID_REQUEST naming the first
// failing field when err comes from the validator.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	slog.DebugContext(r.Context(), "validation failed", "error", err, "request_id", GetReqID(r.Context()))

	msg := "Invalid request"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg = fmt.Sprintf("Field '%s' failed on '%s'", strings.ToLower(fe.Field()), fe.Tag())
	}
	apierror.Write(w, GetReqID(r.Context()), apierror.WithMessage(apierror.KindInvalidRequest, msg))
}
