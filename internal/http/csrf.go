package http

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/csrf"
)

const (
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// CSRFProtection guards every form post of the wrapped handler. Forms carry the token
// in a hidden field; JSON clients send it in the X-CSRF-Token header.
func CSRFProtection(key string, secure bool) func(http.Handler) http.Handler {
	authKey := sha256.Sum256([]byte(key))
	protect := csrf.Protect(
		authKey[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(csrfFieldName),
		csrf.RequestHeader(csrfHeaderName),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "CSRF token validation failed. Please refresh the page and try again.", http.StatusForbidden)
}
