package middleware

import (
	"crypto/subtle"
	"net/http"

	"nean/pkg/apierror"
)

// BasicAuth guards operational endpoints such as /metrics.
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				apierror.Write(w, GetReqID(r.Context()), apierror.New(apierror.KindUnauthorizedAccess))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
