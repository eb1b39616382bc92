package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	usernameToIDKeyPrefix  = "user:username:"
	publicProfileKeyPrefix = "user:public:"
	fillLockKeyPrefix      = "lock:"
)

// CacheService implements the read-through cache over the shared store.
//
// Reads slide the entry TTL forward, so hot entries stay cached as long as
// they keep being read. Misses are filled under a short-lived SETNX lock
// held by at most one caller cluster-wide; callers within the same process
// additionally coalesce through singleflight before touching the lock.
// When the store is unreachable or the lock cannot be acquired within the
// attempt budget, the cache fails open: the loader is invoked directly and
// its result returned uncached, so a cache outage degrades hit rate rather
// than availability.
type CacheService struct {
	store            ports.KeyedStore
	entryTTL         time.Duration
	lockTTL          time.Duration
	lockRetryBackoff time.Duration
	lockMaxAttempts  int
	logger           *logrus.Logger
	flight           singleflight.Group
}

// CacheServiceConfig groups configuration parameters for the cache.
type CacheServiceConfig struct {
	EntryTTL         time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	LockMaxAttempts  int
}

func NewCacheService(store ports.KeyedStore, cfg *CacheServiceConfig, logger *logrus.Logger) *CacheService {
	// Apply defaults
	entryTTL := time.Hour
	lockTTL := 5 * time.Second
	backoff := 50 * time.Millisecond
	attempts := 10
	if cfg != nil {
		if cfg.EntryTTL > 0 {
			entryTTL = cfg.EntryTTL
		}
		if cfg.LockTTL > 0 {
			lockTTL = cfg.LockTTL
		}
		if cfg.LockRetryBackoff > 0 {
			backoff = cfg.LockRetryBackoff
		}
		if cfg.LockMaxAttempts > 0 {
			attempts = cfg.LockMaxAttempts
		}
	}
	return &CacheService{
		store:            store,
		entryTTL:         entryTTL,
		lockTTL:          lockTTL,
		lockRetryBackoff: backoff,
		lockMaxAttempts:  attempts,
		logger:           logger,
	}
}

// GetOrLoad implements ports.Cache.GetOrLoad.
func (s *CacheService) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load ports.Loader) ([]byte, error) {
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.getOrLoadLocked(ctx, key, ttl, load)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *CacheService) getOrLoadLocked(ctx context.Context, key string, ttl time.Duration, load ports.Loader) ([]byte, error) {
	lockKey := fillLockKeyPrefix + key

	for attempt := 0; attempt < s.lockMaxAttempts; attempt++ {
		val, err := s.store.Get(ctx, key)
		if err == nil {
			// Sliding expiration: every successful read extends the entry.
			if expErr := s.store.Expire(ctx, key, ttl); expErr != nil && s.logger != nil {
				s.logger.WithField("key", key).WithError(expErr).Warn("cache: failed to slide TTL")
			}
			return val, nil
		}
		if !errors.Is(err, ports.ErrKeyNotFound) {
			return s.failOpen(ctx, key, load, err)
		}

		token := uuid.NewString()
		acquired, lockErr := s.store.SetNX(ctx, lockKey, []byte(token), s.lockTTL)
		if lockErr != nil {
			return s.failOpen(ctx, key, load, lockErr)
		}
		if acquired {
			return s.fillUnderLock(ctx, key, lockKey, ttl, load)
		}

		// Another caller holds the fill lock; wait for it to publish the value.
		select {
		case <-time.After(s.lockRetryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return s.failOpen(ctx, key, load, errors.New("fill lock not acquired within attempt budget"))
}

func (s *CacheService) fillUnderLock(ctx context.Context, key, lockKey string, ttl time.Duration, load ports.Loader) ([]byte, error) {
	// The lock is released on every path; its TTL covers a crash here.
	defer func() {
		if err := s.store.Del(ctx, lockKey); err != nil && s.logger != nil {
			s.logger.WithField("key", key).WithError(err).Warn("cache: failed to release fill lock")
		}
	}()

	// Double-check: another caller may have filled the key between our miss
	// and the lock acquisition.
	if val, err := s.store.Get(ctx, key); err == nil {
		if expErr := s.store.Expire(ctx, key, ttl); expErr != nil && s.logger != nil {
			s.logger.WithField("key", key).WithError(expErr).Warn("cache: failed to slide TTL")
		}
		return val, nil
	}

	val, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if setErr := s.store.Set(ctx, key, val, ttl); setErr != nil && s.logger != nil {
		s.logger.WithField("key", key).WithError(setErr).Warn("cache: failed to store loaded value")
	}
	return val, nil
}

func (s *CacheService) failOpen(ctx context.Context, key string, load ports.Loader, cause error) ([]byte, error) {
	if s.logger != nil {
		s.logger.WithField("key", key).WithError(cause).Warn("cache: bypassing cache, loading directly")
	}
	return load(ctx)
}

// Get implements ports.Cache.Get.
func (s *CacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.store.Get(ctx, key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expErr := s.store.Expire(ctx, key, s.entryTTL); expErr != nil && s.logger != nil {
		s.logger.WithField("key", key).WithError(expErr).Warn("cache: failed to slide TTL")
	}
	return val, true, nil
}

// Set implements ports.Cache.Set.
func (s *CacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.store.Set(ctx, key, value, ttl)
}

// Invalidate implements ports.Cache.Invalidate.
func (s *CacheService) Invalidate(ctx context.Context, key string) error {
	return s.store.Del(ctx, key)
}

// UserIDByUsername implements ports.ProfileCache.
func (s *CacheService) UserIDByUsername(ctx context.Context, username string, load func(ctx context.Context) (int64, error)) (int64, error) {
	key := usernameToIDKeyPrefix + username
	raw, err := s.GetOrLoad(ctx, key, s.entryTTL, func(ctx context.Context) ([]byte, error) {
		id, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(id, 10)), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// PublicProfile implements ports.ProfileCache.
func (s *CacheService) PublicProfile(ctx context.Context, userID int64, load func(ctx context.Context) (*user.PublicProfile, error)) (*user.PublicProfile, error) {
	key := publicProfileKey(userID)
	raw, err := s.GetOrLoad(ctx, key, s.entryTTL, func(ctx context.Context) ([]byte, error) {
		p, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(p)
	})
	if err != nil {
		return nil, err
	}
	var p user.PublicProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CachedPublicProfile implements ports.ProfileCache.
func (s *CacheService) CachedPublicProfile(ctx context.Context, userID int64) (*user.PublicProfile, bool, error) {
	raw, ok, err := s.Get(ctx, publicProfileKey(userID))
	if err != nil || !ok {
		return nil, false, err
	}
	var p user.PublicProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// SetUserID implements ports.ProfileCache.
func (s *CacheService) SetUserID(ctx context.Context, username string, userID int64) error {
	return s.Set(ctx, usernameToIDKeyPrefix+username, []byte(strconv.FormatInt(userID, 10)), s.entryTTL)
}

// SetPublicProfile implements ports.ProfileCache.
func (s *CacheService) SetPublicProfile(ctx context.Context, profile *user.PublicProfile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.Set(ctx, publicProfileKey(profile.UserID), b, s.entryTTL)
}

func publicProfileKey(userID int64) string {
	return publicProfileKeyPrefix + strconv.FormatInt(userID, 10)
}

var (
	_ ports.Cache        = (*CacheService)(nil)
	_ ports.ProfileCache = (*CacheService)(nil)
)
