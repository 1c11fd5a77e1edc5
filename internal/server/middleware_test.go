package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altarmaker/internal/auth"
)

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

// registerAdmin creates an account and promotes it before login so the
// session carries the admin role.
func (e *testEnv) registerAdmin(t *testing.T, username, email, password string) *http.Cookie {
	t.Helper()
	id := e.register(t, username, email, password)
	e.users.get(id).Role = auth.RoleAdmin
	return e.login(t, username, password)
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "pw123")

	t.Run("no cookie", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/designs/wall-designs", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stale cookie", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/designs/wall-designs", nil,
			&http.Cookie{Name: "session_id", Value: "no-such-session"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid session passes", func(t *testing.T) {
		cookie := env.login(t, "alice", "pw123")
		rec := env.do(t, http.MethodGet, "/api/designs/wall-designs", nil, cookie)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("logout revokes access", func(t *testing.T) {
		cookie := env.login(t, "alice", "pw123")
		env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)

		rec := env.do(t, http.MethodGet, "/api/designs/wall-designs", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "pw123")
	adminCookie := env.registerAdmin(t, "root", "root@x.com", "pw123")

	t.Run("anonymous", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/users", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("regular user", func(t *testing.T) {
		cookie := env.login(t, "alice", "pw123")
		rec := env.do(t, http.MethodGet, "/api/admin/users", nil, cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/users", nil, adminCookie)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
