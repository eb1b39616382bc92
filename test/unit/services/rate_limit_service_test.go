package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
)

func TestAllow_LoginBudget(t *testing.T) {
	store := mocks.NewMemoryStore()
	limiter := impl.NewRateLimitService(store, nil, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		allowed, err := limiter.Allow(ctx, "ip:10.0.0.1", ports.ClassLogin)
		require.NoError(t, err)
		require.True(t, allowed, "request %d must be allowed", i)

		remaining, err := limiter.Remaining(ctx, "ip:10.0.0.1", ports.ClassLogin)
		require.NoError(t, err)
		require.Equal(t, 5-i, remaining)
	}

	allowed, err := limiter.Allow(ctx, "ip:10.0.0.1", ports.ClassLogin)
	require.NoError(t, err)
	require.False(t, allowed, "sixth login attempt in the window must be denied")
}

func TestAllow_CounterFreezesAtLimit(t *testing.T) {
	store := mocks.NewMemoryStore()
	limiter := impl.NewRateLimitService(store, nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Allow(ctx, "user:9", ports.ClassLogin)
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "user:9", ports.ClassLogin)
		require.NoError(t, err)
		require.False(t, allowed)
	}

	// Denied requests must not grow the counter past the limit.
	raw, err := store.Get(ctx, "rate_limit:user:9:login")
	require.NoError(t, err)
	require.Equal(t, "5", string(raw))
}

func TestAllow_FailsOpenOnStoreError(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.GetErr = errors.New("connection refused")
	limiter := impl.NewRateLimitService(store, nil, nil)

	allowed, err := limiter.Allow(context.Background(), "user:9", ports.ClassRead)
	require.Error(t, err, "the store failure must be surfaced for logging")
	require.True(t, allowed, "a store outage must not deny traffic")
}

func TestAllow_IdentitiesAndClassesAreIsolated(t *testing.T) {
	store := mocks.NewMemoryStore()
	limiter := impl.NewRateLimitService(store, nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Allow(ctx, "user:1", ports.ClassLogin)
		require.NoError(t, err)
	}
	denied, err := limiter.Allow(ctx, "user:1", ports.ClassLogin)
	require.NoError(t, err)
	require.False(t, denied)

	// Another identity, same class.
	allowed, err := limiter.Allow(ctx, "user:2", ports.ClassLogin)
	require.NoError(t, err)
	require.True(t, allowed)

	// Same identity, another class.
	allowed, err = limiter.Allow(ctx, "user:1", ports.ClassRead)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestResetSeconds_WithinWindow(t *testing.T) {
	store := mocks.NewMemoryStore()
	limiter := impl.NewRateLimitService(store, nil, nil)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "user:3", ports.ClassWrite)
	require.NoError(t, err)

	reset, err := limiter.ResetSeconds(ctx, "user:3", ports.ClassWrite)
	require.NoError(t, err)
	require.Greater(t, reset, 0)
	require.LessOrEqual(t, reset, int(time.Minute.Seconds()))
}

func TestResetSeconds_NoActiveWindow(t *testing.T) {
	store := mocks.NewMemoryStore()
	limiter := impl.NewRateLimitService(store, nil, nil)

	reset, err := limiter.ResetSeconds(context.Background(), "user:99", ports.ClassWrite)
	require.NoError(t, err)
	require.Zero(t, reset)
}
