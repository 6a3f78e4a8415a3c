package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
)

// Middleware authenticates bearer tokens and enforces a Policy.
type Middleware struct {
	secret []byte
	policy Policy
	logger *log.Logger
}

// NewMiddleware constructs a Middleware. logger may be nil.
func NewMiddleware(secret []byte, policy Policy, logger *log.Logger) *Middleware {
	return &Middleware{secret: secret, policy: policy, logger: logger}
}

// Wrap returns next guarded by the policy. Requests no rule covers pass
// through unauthenticated.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.Exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.policy.Required(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		id, err := ParseJWT(bearerToken(r), m.secret)
		if err != nil {
			if m.logger != nil && !errors.Is(err, ErrMissingToken) {
				m.logger.Printf("auth rejected: path=%s err=%v", r.URL.Path, err)
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="der-explorer"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !id.Role.Allows(required) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
