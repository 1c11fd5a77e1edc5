package server

import (
	"context"
	"net/http"

	"altarmaker/internal/auth"
)

type ctxKey string

const sessionContextKey ctxKey = "session"

// currentSession resolves the caller's session from the request cookie.
// It returns (nil, nil) for anonymous callers; only a fully populated,
// logged-in session counts as authenticated.
func (s *Server) currentSession(r *http.Request) (*auth.Session, error) {
	id := auth.SessionIDFromRequest(r)
	if id == "" {
		return nil, nil
	}
	return s.Sessions.Get(r.Context(), id)
}

// requireAuth rejects anonymous requests and attaches the resolved session
// to the request context. It never refreshes or mutates the session.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.currentSession(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read session")
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after requireAuth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if sess.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *auth.Session {
	if val, ok := ctx.Value(sessionContextKey).(*auth.Session); ok {
		return val
	}
	return nil
}
