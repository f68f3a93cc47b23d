// Package auth guards the operator-only endpoints.
//
// Operators authenticate with a static bearer token carried in the
// Authorization header. Comparison is constant-time so the token cannot be
// probed byte by byte.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/newsletter/internal/pkg/httputil"
)

// Operator validates the operator bearer token on protected routes.
type Operator struct {
	token string
}

// NewOperator creates the operator credential check. An empty token
// disables access entirely (every request is rejected) rather than
// failing open.
func NewOperator(token string) *Operator {
	return &Operator{token: token}
}

// Authenticated reports whether the request carries the operator token.
func (o *Operator) Authenticated(r *http.Request) bool {
	if o.token == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(o.token)) == 1
}

// Middleware rejects unauthenticated requests with 401.
func (o *Operator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !o.Authenticated(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="newsletter"`)
			httputil.Unauthorized(w, "operator authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
