package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionTTL is the absolute session lifetime. Sessions do not slide; the
// expiry set at login is final.
const SessionTTL = 24 * time.Hour

// Session is the server-side login state referenced by the session cookie.
// A session is authorization-valid only when all fields are populated and
// LoggedIn is true.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	LoggedIn  bool      `json:"loggedIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore holds sessions outside process memory so instances scale
// without coordination. Get returns (nil, nil) for absent, expired, or
// partially written sessions.
type SessionStore interface {
	Create(ctx context.Context, sess Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type RedisSessionStore struct {
	Redis *redis.Client
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *RedisSessionStore) Create(ctx context.Context, sess Session) error {
	data := map[string]interface{}{
		"userId":   sess.UserID,
		"username": sess.Username,
		"role":     sess.Role,
		"loggedIn": sess.LoggedIn,
		"expires":  sess.ExpiresAt.Unix(),
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, sessionKey(sess.ID), data)
	pipe.Expire(ctx, sessionKey(sess.ID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := s.Redis.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	loggedIn := vals["loggedIn"] == "1" || strings.ToLower(vals["loggedIn"]) == "true"
	if vals["userId"] == "" || vals["username"] == "" || vals["role"] == "" || !loggedIn {
		// Partial session state is never authorization-valid.
		_ = s.Delete(ctx, id)
		return nil, nil
	}

	expUnix, _ := strconv.ParseInt(vals["expires"], 10, 64)
	sess := &Session{
		ID:        id,
		UserID:    vals["userId"],
		Username:  vals["username"],
		Role:      vals["role"],
		LoggedIn:  true,
		ExpiresAt: time.Unix(expUnix, 0),
	}

	if sess.ExpiresAt.Before(time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, nil
	}

	return sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.Redis.Del(ctx, sessionKey(id)).Err()
}

func NewSessionID() string {
	return uuid.NewString()
}
