package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &RedisRateLimiter{Redis: client}, mr
}

func TestLoginLockout(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < loginMaxAttempts-1; i++ {
		require.NoError(t, rl.RegisterLoginFailure(ctx, "1.2.3.4"))
		assert.False(t, rl.IsIPBanned(ctx, "1.2.3.4"), "banned after %d failures", i+1)
	}

	require.NoError(t, rl.RegisterLoginFailure(ctx, "1.2.3.4"))
	assert.True(t, rl.IsIPBanned(ctx, "1.2.3.4"))

	// Other addresses are unaffected.
	assert.False(t, rl.IsIPBanned(ctx, "5.6.7.8"))
}

func TestLoginResetClearsAttempts(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < loginMaxAttempts-1; i++ {
		require.NoError(t, rl.RegisterLoginFailure(ctx, "1.2.3.4"))
	}
	rl.ResetLogin(ctx, "1.2.3.4")

	// The count starts over, so another run up to the threshold minus one
	// still does not ban.
	for i := 0; i < loginMaxAttempts-1; i++ {
		require.NoError(t, rl.RegisterLoginFailure(ctx, "1.2.3.4"))
	}
	assert.False(t, rl.IsIPBanned(ctx, "1.2.3.4"))
}

func TestLoginBanExpires(t *testing.T) {
	rl, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < loginMaxAttempts; i++ {
		require.NoError(t, rl.RegisterLoginFailure(ctx, "1.2.3.4"))
	}
	require.True(t, rl.IsIPBanned(ctx, "1.2.3.4"))

	mr.FastForward(loginBanTTL + time.Second)
	assert.False(t, rl.IsIPBanned(ctx, "1.2.3.4"))
}

func TestRegisterAttemptLimits(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	t.Run("per email", func(t *testing.T) {
		for i := 0; i < registerMaxAttemptsEmail-1; i++ {
			locked, _, err := rl.RegisterRegisterAttempt(ctx, "alice@x.com", "")
			require.NoError(t, err)
			assert.False(t, locked, "locked after %d attempts", i+1)
		}

		locked, retryIn, err := rl.RegisterRegisterAttempt(ctx, "alice@x.com", "")
		require.NoError(t, err)
		assert.True(t, locked)
		assert.Greater(t, retryIn, time.Duration(0))
	})

	t.Run("per ip", func(t *testing.T) {
		for i := 0; i < registerMaxAttemptsIP-1; i++ {
			locked, _, err := rl.RegisterRegisterAttempt(ctx, "", "9.9.9.9")
			require.NoError(t, err)
			assert.False(t, locked)
		}

		locked, _, err := rl.RegisterRegisterAttempt(ctx, "", "9.9.9.9")
		require.NoError(t, err)
		assert.True(t, locked)
	})

	t.Run("email addresses are case-folded", func(t *testing.T) {
		for i := 0; i < registerMaxAttemptsEmail-1; i++ {
			_, _, err := rl.RegisterRegisterAttempt(ctx, "Bob@X.com", "")
			require.NoError(t, err)
		}
		locked, _, err := rl.RegisterRegisterAttempt(ctx, "bob@x.com", "")
		require.NoError(t, err)
		assert.True(t, locked)
	})
}

func TestVerifyAttemptLimit(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < verifyMaxAttempts-1; i++ {
		locked, _, err := rl.RegisterVerifyAttempt(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.False(t, locked, "locked after %d attempts", i+1)
	}

	locked, retryIn, err := rl.RegisterVerifyAttempt(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Greater(t, retryIn, time.Duration(0))
}

func TestResendCooldownWindow(t *testing.T) {
	rl, mr := newTestLimiter(t)
	ctx := context.Background()

	assert.Equal(t, time.Duration(0), rl.ResendCooldownTTL(ctx, "alice@x.com"))

	rl.SetResendCooldown(ctx, "alice@x.com")
	ttl := rl.ResendCooldownTTL(ctx, "alice@x.com")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, ResendCooldown)

	mr.FastForward(ResendCooldown + time.Second)
	assert.Equal(t, time.Duration(0), rl.ResendCooldownTTL(ctx, "alice@x.com"))
}
