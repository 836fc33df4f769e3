package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator gates mutating routes behind a bearer token. With no tokens
// configured the gateway runs open, which is only sensible for local
// development.
type Authenticator struct {
	tokens map[string]struct{}
}

func NewAuthenticator(tokens []string) *Authenticator {
	accepted := make(map[string]struct{})
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		accepted[trimmed] = struct{}{}
	}
	return &Authenticator{tokens: accepted}
}

// Enabled reports whether any token is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.tokens) > 0
}

func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if !a.authorized(r) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) authorized(r *http.Request) bool {
	candidate := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if candidate == "" {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			candidate = strings.TrimSpace(header[len("bearer "):])
		}
	}
	if candidate == "" {
		return false
	}
	for token := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}
