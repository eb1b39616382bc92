package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoad_MissRunsLoaderOnce(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)

	var loads int32
	loader := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return []byte("value"), nil
	}

	const callers = 25
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.GetOrLoad(context.Background(), "profile:1", time.Minute, loader)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&loads), "concurrent misses must coalesce into one load")
	for _, v := range results {
		require.Equal(t, []byte("value"), v)
	}

	// The loaded value must now be cached.
	cached, err := store.Get(context.Background(), "profile:1")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), cached)
}

func TestGetOrLoad_HitSlidesTTL(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), 5*time.Second))

	v, err := cache.GetOrLoad(context.Background(), "k", time.Hour, func(ctx context.Context) ([]byte, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	ttl, err := store.TTL(context.Background(), "k")
	require.NoError(t, err)
	require.Greater(t, ttl, 5*time.Second, "hit must extend the entry's lifetime")
}

func TestGetOrLoad_FailsOpenOnStoreError(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.GetErr = errors.New("connection refused")
	cache := impl.NewCacheService(store, nil, nil)

	var loads int32
	v, err := cache.GetOrLoad(context.Background(), "k", time.Minute, func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		return []byte("direct"), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("direct"), v)
	require.Equal(t, int32(1), atomic.LoadInt32(&loads))
	require.Zero(t, store.SetNXCalls, "an unreachable store must not be offered locks")
}

func TestGetOrLoad_WaitsForForeignFill(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, &impl.CacheServiceConfig{
		LockRetryBackoff: 10 * time.Millisecond,
		LockMaxAttempts:  50,
	}, nil)

	// Simulate a fill in flight on another instance.
	require.NoError(t, store.Set(context.Background(), "lock:k", []byte("foreign-token"), time.Second))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = store.Set(context.Background(), "k", []byte("published"), time.Minute)
		_ = store.Del(context.Background(), "lock:k")
	}()

	var loads int32
	v, err := cache.GetOrLoad(context.Background(), "k", time.Minute, func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		return []byte("local"), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("published"), v, "waiter must pick up the foreign fill")
	require.Zero(t, atomic.LoadInt32(&loads), "waiter must not run its own loader")
}

func TestGetOrLoad_LoaderErrorPropagates(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)

	boom := errors.New("db down")
	_, err := cache.GetOrLoad(context.Background(), "k", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing may be cached and the lock must be released.
	_, found, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, found)
	_, lockErr := store.Get(context.Background(), "lock:k")
	require.Error(t, lockErr)
}

func TestUserIDByUsername_RoundTrip(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)

	var loads int32
	load := func(ctx context.Context) (int64, error) {
		atomic.AddInt32(&loads, 1)
		return 42, nil
	}

	id, err := cache.UserIDByUsername(context.Background(), "alice", load)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	id, err = cache.UserIDByUsername(context.Background(), "alice", load)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, int32(1), atomic.LoadInt32(&loads), "second resolve must hit the cache")
}

func TestCachedPublicProfile_PeeksWithoutLoading(t *testing.T) {
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)

	_, ok, err := cache.CachedPublicProfile(context.Background(), 7)
	require.NoError(t, err)
	require.False(t, ok)
}
