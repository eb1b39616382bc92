package ports

import (
	"context"
	"time"

	"github.com/perchnet/user-service/internal/core/domain/user"
)

// Loader fetches the canonical value for a cache key from the system of
// record. It is invoked on a miss, under stampede protection.
type Loader func(ctx context.Context) ([]byte, error)

// Cache is the read-through cache over the shared store. Reads slide the
// entry's TTL forward; misses are filled under a short-lived distributed
// lock so at most one loader runs per key at a time. When the store or the
// lock is unavailable the cache fails open: the loader is called directly
// and its result returned uncached.
type Cache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error)
	// Get returns the raw bytes for key, sliding its TTL on a hit. ok=false on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites key unconditionally; used by invalidation consumers.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes the key; absence is not an error.
	Invalidate(ctx context.Context, key string) error
}

// ProfileCache layers the user-service key schema over Cache: the
// username->id index and the public profile summary.
type ProfileCache interface {
	// UserIDByUsername resolves a username through the index, loading it on miss.
	UserIDByUsername(ctx context.Context, username string, load func(ctx context.Context) (int64, error)) (int64, error)
	// PublicProfile resolves a profile summary, loading it on miss.
	PublicProfile(ctx context.Context, userID int64, load func(ctx context.Context) (*user.PublicProfile, error)) (*user.PublicProfile, error)
	// CachedPublicProfile peeks at the cached summary without loading.
	// Used by lazy-delta consumers, which never force a load.
	CachedPublicProfile(ctx context.Context, userID int64) (*user.PublicProfile, bool, error)
	SetUserID(ctx context.Context, username string, userID int64) error
	SetPublicProfile(ctx context.Context, profile *user.PublicProfile) error
}
