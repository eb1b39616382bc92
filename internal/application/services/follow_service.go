package services

import (
	"context"
	"fmt"

	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// FollowGraphService implements follow-graph business logic. Edge changes
// emit events; cached follower counters are maintained by the invalidation
// consumers, never written here.
type FollowGraphService struct {
	follows ports.FollowRepository
	users   ports.UserRepository
	events  ports.EventPublisher
	logger  *logrus.Logger
}

func NewFollowGraphService(follows ports.FollowRepository, users ports.UserRepository, events ports.EventPublisher, logger *logrus.Logger) *FollowGraphService {
	return &FollowGraphService{follows: follows, users: users, events: events, logger: logger}
}

// Follow implements ports.FollowService.
func (s *FollowGraphService) Follow(ctx context.Context, userID, followerID int64) error {
	if userID == followerID {
		return apperror.Invalid("cannot follow yourself", nil)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	exists, err := s.follows.Exists(ctx, userID, followerID)
	if err != nil {
		return fmt.Errorf("failed to check follow edge: %w", err)
	}
	if exists {
		return apperror.Conflict("already following", nil)
	}
	if err := s.follows.Create(ctx, userID, followerID); err != nil {
		return fmt.Errorf("failed to create follow edge: %w", err)
	}

	if err := s.events.PublishFollowCreated(ctx, &follow.CreatedEvent{UserID: userID, FollowerID: followerID}); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "follower_id": followerID}).WithError(err).Error("failed to publish follow-created event")
	}
	return nil
}

// Unfollow implements ports.FollowService.
func (s *FollowGraphService) Unfollow(ctx context.Context, userID, followerID int64) error {
	exists, err := s.follows.Exists(ctx, userID, followerID)
	if err != nil {
		return fmt.Errorf("failed to check follow edge: %w", err)
	}
	if !exists {
		return apperror.NotFound("not following", nil)
	}
	if err := s.follows.Delete(ctx, userID, followerID); err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}

	if err := s.events.PublishFollowDeleted(ctx, &follow.DeletedEvent{UserID: userID, FollowerID: followerID}); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "follower_id": followerID}).WithError(err).Error("failed to publish follow-deleted event")
	}
	return nil
}

// Relationship implements ports.FollowService.
func (s *FollowGraphService) Relationship(ctx context.Context, userID, viewerID int64) (bool, bool, error) {
	if viewerID == 0 || viewerID == userID {
		return false, false, nil
	}
	isFollowing, err := s.follows.Exists(ctx, userID, viewerID)
	if err != nil {
		return false, false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	isFollowingMe, err := s.follows.Exists(ctx, viewerID, userID)
	if err != nil {
		return false, false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return isFollowing, isFollowingMe, nil
}

var _ ports.FollowService = (*FollowGraphService)(nil)
