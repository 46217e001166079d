// Package middleware provides HTTP middleware for the management API.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// BearerAuth validates the static bearer credential on every protected route.
// There is no per-caller identity: a single process-wide secret gates the
// whole API.
type BearerAuth struct {
	token     string
	skipPaths map[string]bool
	log       *logrus.Logger
}

// NewBearerAuth creates the authentication middleware. Requests to skipPaths
// pass through unauthenticated.
func NewBearerAuth(token string, skipPaths []string, log *logrus.Logger) *BearerAuth {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &BearerAuth{token: token, skipPaths: skip, log: log}
}

// Handler returns the middleware handler.
func (m *BearerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if authHeader == "" || len(parts) != 2 || parts[0] != "Bearer" {
			m.reject(w, r, "missing bearer token")
			return
		}

		// Exact string comparison is the deployed contract; the token is
		// checked before any store access happens.
		if parts[1] != m.token {
			m.reject(w, r, "invalid authentication token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *BearerAuth) reject(w http.ResponseWriter, r *http.Request, message string) {
	if m.log != nil {
		m.log.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).Warn("authentication failed")
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
