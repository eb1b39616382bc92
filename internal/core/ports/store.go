package ports

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KeyedStore.Get for absent keys so callers
// can distinguish a miss from a store failure.
var ErrKeyNotFound = errors.New("key not found")

// KeyedStore is the narrow contract required of the shared volatile
// key-value store (Redis-class). All cross-instance coordination in the
// service goes through these primitives: SetNX doubles as a lock, Incr is
// the rate-limiter counter, the set operations back presence tracking and
// Publish/Subscribe carry the realtime relay channel.
//
// Implementations must degrade gracefully (return an error, never panic)
// so application logic can fall back to the system of record.
type KeyedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX sets key only if absent, returning whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of key; zero when the key does not
	// exist or carries no expiration.
	TTL(ctx context.Context, key string) (time.Duration, error)

	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is a live pub/sub subscription. Messages is closed when the
// subscription ends.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
