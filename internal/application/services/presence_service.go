package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const connectedUsersKey = "connected_users"

// PresenceService maintains the cluster-wide connected-users set. The local
// session registry (the websocket hub) is the authority for this instance;
// the shared set aggregates across instances.
//
// Removal is deliberately conservative: a user is removed only when this
// instance no longer holds any session for them. A disconnect racing a
// connect on another instance can leave a stale member behind - a false
// "connected" is tolerated because a false "disconnected" would drop
// messages for a live user.
type PresenceService struct {
	store    ports.KeyedStore
	sessions ports.SessionRegistry
	logger   *logrus.Logger
}

func NewPresenceService(store ports.KeyedStore, sessions ports.SessionRegistry, logger *logrus.Logger) *PresenceService {
	return &PresenceService{store: store, sessions: sessions, logger: logger}
}

// UserConnected implements ports.PresenceTracker. Adding is idempotent, so
// every session open may add unconditionally.
func (s *PresenceService) UserConnected(ctx context.Context, userID int64) error {
	if err := s.store.SAdd(ctx, connectedUsersKey, formatUserID(userID)); err != nil {
		return fmt.Errorf("failed to mark user %d connected: %w", userID, err)
	}
	if s.logger != nil {
		s.logger.WithField("user_id", userID).Debug("presence: user connected")
	}
	return nil
}

// UserDisconnected implements ports.PresenceTracker.
func (s *PresenceService) UserDisconnected(ctx context.Context, userID int64) error {
	// Only the last local session closing may remove the user; other
	// instances run the same check against their own registries.
	if s.sessions.LocalSessionCount(userID) > 0 {
		return nil
	}
	if err := s.store.SRem(ctx, connectedUsersKey, formatUserID(userID)); err != nil {
		return fmt.Errorf("failed to mark user %d disconnected: %w", userID, err)
	}
	if s.logger != nil {
		s.logger.WithField("user_id", userID).Debug("presence: user disconnected")
	}
	return nil
}

// IsConnected implements ports.PresenceTracker.
func (s *PresenceService) IsConnected(ctx context.Context, userID int64) (bool, error) {
	return s.store.SIsMember(ctx, connectedUsersKey, formatUserID(userID))
}

// ConnectedUsers implements ports.PresenceTracker.
func (s *PresenceService) ConnectedUsers(ctx context.Context) ([]int64, error) {
	members, err := s.store.SMembers(ctx, connectedUsersKey)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, parseErr := strconv.ParseInt(m, 10, 64)
		if parseErr != nil {
			if s.logger != nil {
				s.logger.WithField("member", m).Warn("presence: skipping malformed set member")
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

var _ ports.PresenceTracker = (*PresenceService)(nil)
