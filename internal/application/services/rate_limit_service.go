package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type classPolicy struct {
	limit  int
	window time.Duration
}

// RateLimitService implements fixed-window rate limiting on the shared
// store. Counters are per (identity, class); the first request in a window
// creates the counter with the window's TTL, later requests increment it
// atomically. Once the counter reaches the class limit it is frozen (denied
// requests do not increment) until the window lapses. Because the counter
// lives in the shared store the decision is cluster-wide without any
// coordination beyond the store's atomic increment.
type RateLimitService struct {
	store     ports.KeyedStore
	classes   map[ports.RequestClass]classPolicy
	keyPrefix string
	logger    *logrus.Logger
}

// RateLimitServiceConfig groups the per-class budgets.
type RateLimitServiceConfig struct {
	ReadLimit   int
	ReadWindow  time.Duration
	WriteLimit  int
	WriteWindow time.Duration
	LoginLimit  int
	LoginWindow time.Duration
	KeyPrefix   string
}

func NewRateLimitService(store ports.KeyedStore, cfg *RateLimitServiceConfig, logger *logrus.Logger) *RateLimitService {
	// Apply defaults
	readLimit, readWindow := 100, time.Minute
	writeLimit, writeWindow := 30, time.Minute
	loginLimit, loginWindow := 5, time.Minute
	prefix := "rate_limit"
	if cfg != nil {
		if cfg.ReadLimit > 0 {
			readLimit = cfg.ReadLimit
		}
		if cfg.ReadWindow > 0 {
			readWindow = cfg.ReadWindow
		}
		if cfg.WriteLimit > 0 {
			writeLimit = cfg.WriteLimit
		}
		if cfg.WriteWindow > 0 {
			writeWindow = cfg.WriteWindow
		}
		if cfg.LoginLimit > 0 {
			loginLimit = cfg.LoginLimit
		}
		if cfg.LoginWindow > 0 {
			loginWindow = cfg.LoginWindow
		}
		if cfg.KeyPrefix != "" {
			prefix = cfg.KeyPrefix
		}
	}
	return &RateLimitService{
		store: store,
		classes: map[ports.RequestClass]classPolicy{
			ports.ClassRead:  {limit: readLimit, window: readWindow},
			ports.ClassWrite: {limit: writeLimit, window: writeWindow},
			ports.ClassLogin: {limit: loginLimit, window: loginWindow},
		},
		keyPrefix: prefix,
		logger:    logger,
	}
}

// Allow implements ports.RateLimiter. On store errors it fails open (allows
// the request) and surfaces the error so callers can log it: a store outage
// must not amplify into a total request blackout.
func (s *RateLimitService) Allow(ctx context.Context, identity string, class ports.RequestClass) (bool, error) {
	policy := s.policy(class)
	key := s.counterKey(identity, class)

	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		// First request in the window
		if setErr := s.store.Set(ctx, key, []byte("1"), policy.window); setErr != nil {
			return true, setErr
		}
		return true, nil
	}
	if err != nil {
		return true, err
	}

	count, parseErr := strconv.ParseInt(string(raw), 10, 64)
	if parseErr != nil {
		return true, parseErr
	}
	if count >= int64(policy.limit) {
		// Frozen at the limit until the window's TTL lapses.
		return false, nil
	}
	if _, incrErr := s.store.Incr(ctx, key); incrErr != nil {
		return true, incrErr
	}
	return true, nil
}

// Remaining implements ports.RateLimiter.
func (s *RateLimitService) Remaining(ctx context.Context, identity string, class ports.RequestClass) (int, error) {
	policy := s.policy(class)
	raw, err := s.store.Get(ctx, s.counterKey(identity, class))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return policy.limit, nil
	}
	if err != nil {
		return 0, err
	}
	count, parseErr := strconv.ParseInt(string(raw), 10, 64)
	if parseErr != nil {
		return 0, parseErr
	}
	remaining := policy.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ResetSeconds implements ports.RateLimiter.
func (s *RateLimitService) ResetSeconds(ctx context.Context, identity string, class ports.RequestClass) (int, error) {
	ttl, err := s.store.TTL(ctx, s.counterKey(identity, class))
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return int(ttl.Seconds()), nil
}

// Limit implements ports.RateLimiter.
func (s *RateLimitService) Limit(class ports.RequestClass) int {
	return s.policy(class).limit
}

func (s *RateLimitService) policy(class ports.RequestClass) classPolicy {
	if p, ok := s.classes[class]; ok {
		return p
	}
	return s.classes[ports.ClassWrite]
}

func (s *RateLimitService) counterKey(identity string, class ports.RequestClass) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, identity, class)
}

var _ ports.RateLimiter = (*RateLimitService)(nil)
