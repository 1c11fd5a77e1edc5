package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginMaxAttempts         = 5
	loginAttemptTTL          = 10 * time.Minute
	loginBanTTL              = 1 * time.Hour
	registerMaxAttemptsIP    = 10
	registerAttemptTTLIP     = 30 * time.Minute
	registerMaxAttemptsEmail = 3
	registerAttemptTTLEmail  = 30 * time.Minute
	verifyMaxAttempts        = 10
	verifyAttemptTTL         = 10 * time.Minute

	// ResendCooldown spaces out verification emails per address.
	ResendCooldown = 60 * time.Second
)

// RateLimiter throttles abuse-prone auth endpoints. Implementations must be
// safe for concurrent use; the zero-value decisions on error lean open so a
// limiter outage does not lock everyone out.
type RateLimiter interface {
	IsIPBanned(ctx context.Context, ip string) bool
	RegisterLoginFailure(ctx context.Context, ip string) error
	ResetLogin(ctx context.Context, ip string)
	RegisterRegisterAttempt(ctx context.Context, email, ip string) (locked bool, retryIn time.Duration, err error)
	RegisterVerifyAttempt(ctx context.Context, email string) (locked bool, retryIn time.Duration, err error)
	ResendCooldownTTL(ctx context.Context, email string) time.Duration
	SetResendCooldown(ctx context.Context, email string)
}

type RedisRateLimiter struct {
	Redis *redis.Client
}

func loginAttemptKey(ip string) string { return "login_attempts:" + ip }
func loginBanKey(ip string) string     { return "login_ban:" + ip }

func verifyAttemptKey(email string) string {
	return "verify_attempts:" + strings.ToLower(email)
}

func resendCooldownKey(email string) string {
	return "resend_cooldown:" + strings.ToLower(email)
}

func registerAttemptIPKey(ip string) string {
	if ip == "" {
		return ""
	}
	return "register_attempts_ip:" + ip
}

func registerAttemptEmailKey(email string) string {
	if email == "" {
		return ""
	}
	return "register_attempts_email:" + strings.ToLower(email)
}

func (r *RedisRateLimiter) IsIPBanned(ctx context.Context, ip string) bool {
	exists, _ := r.Redis.Exists(ctx, loginBanKey(ip)).Result()
	return exists == 1
}

func (r *RedisRateLimiter) RegisterLoginFailure(ctx context.Context, ip string) error {
	key := loginAttemptKey(ip)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, loginAttemptTTL)
	}
	if attempts >= loginMaxAttempts {
		r.Redis.Set(ctx, loginBanKey(ip), "1", loginBanTTL)
		r.Redis.Expire(ctx, key, loginBanTTL)
	}
	return nil
}

func (r *RedisRateLimiter) ResetLogin(ctx context.Context, ip string) {
	r.Redis.Del(ctx, loginAttemptKey(ip))
}

func (r *RedisRateLimiter) RegisterRegisterAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error) {
	keys := []struct {
		key string
		max int64
		ttl time.Duration
	}{
		{registerAttemptIPKey(ip), registerMaxAttemptsIP, registerAttemptTTLIP},
		{registerAttemptEmailKey(email), registerMaxAttemptsEmail, registerAttemptTTLEmail},
	}

	locked := false
	var ttlMax time.Duration

	for _, k := range keys {
		if k.key == "" {
			continue
		}
		attempts, err := r.Redis.Incr(ctx, k.key).Result()
		if err != nil {
			return false, 0, err
		}
		if attempts == 1 {
			r.Redis.Expire(ctx, k.key, k.ttl)
		}
		if attempts >= k.max {
			locked = true
		}
		if ttl, _ := r.Redis.TTL(ctx, k.key).Result(); ttl > ttlMax {
			ttlMax = ttl
		}
	}

	return locked, ttlMax, nil
}

func (r *RedisRateLimiter) RegisterVerifyAttempt(ctx context.Context, email string) (bool, time.Duration, error) {
	key := verifyAttemptKey(email)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, verifyAttemptTTL)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts >= verifyMaxAttempts, ttl, nil
}

func (r *RedisRateLimiter) ResendCooldownTTL(ctx context.Context, email string) time.Duration {
	ttl, err := r.Redis.TTL(ctx, resendCooldownKey(email)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (r *RedisRateLimiter) SetResendCooldown(ctx context.Context, email string) {
	r.Redis.Set(ctx, resendCooldownKey(email), "1", ResendCooldown)
}
