package services

import (
	"context"
	"fmt"

	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/post"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// InvalidationService applies consumed domain events to the cache.
//
// Profile updates are full replacements: the summary is recomputed from the
// system of record and overwritten wholesale, so redelivery is harmless.
// Follow and post events are lazy deltas: the cached counter is adjusted in
// place only when a summary is already cached - a delta never forces a
// database load just to maintain an entry nobody may read again. Deltas are
// not idempotent under redelivery; drift self-corrects on the next full
// replacement or cache expiry.
type InvalidationService struct {
	cache   ports.ProfileCache
	follows ports.FollowRepository
	posts   ports.PostClient
	media   ports.MediaURLResolver
	logger  *logrus.Logger
}

func NewInvalidationService(cache ports.ProfileCache, follows ports.FollowRepository, posts ports.PostClient, media ports.MediaURLResolver, logger *logrus.Logger) *InvalidationService {
	return &InvalidationService{cache: cache, follows: follows, posts: posts, media: media, logger: logger}
}

// HandleUserUpdated implements ports.InvalidationHandler.
func (s *InvalidationService) HandleUserUpdated(ctx context.Context, ev *user.UpdatedEvent) error {
	u := ev.User
	if u == nil {
		return fmt.Errorf("user-updated event without user payload")
	}

	if err := s.cache.SetUserID(ctx, u.Username, u.ID); err != nil {
		return fmt.Errorf("failed to refresh username index for user %d: %w", u.ID, err)
	}

	followersCount, err := s.follows.CountFollowers(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("failed to count followers for user %d: %w", u.ID, err)
	}
	followingCount, err := s.follows.CountFollowing(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("failed to count following for user %d: %w", u.ID, err)
	}
	postsCount, err := s.posts.PostsCount(ctx, u.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("user_id", u.ID).WithError(err).Warn("invalidation: posts count unavailable, caching zero")
		}
		postsCount = 0
	}

	profile := &user.PublicProfile{
		UserID:          u.ID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		Bio:             u.Bio,
		ProfileImageURL: s.media.ImageURL(u.ProfileImageID),
		HeaderImageURL:  s.media.ImageURL(u.HeaderImageID),
		FollowersCount:  followersCount,
		FollowingCount:  followingCount,
		PostsCount:      postsCount,
	}
	if err := s.cache.SetPublicProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to replace cached profile for user %d: %w", u.ID, err)
	}

	// Keep the post service's denormalized profile image in step.
	if containsField(ev.ChangedFields, "profileImageId") {
		if err := s.posts.UpdateProfileImage(ctx, u.ID, s.media.ImageURL(u.ProfileImageID)); err != nil && s.logger != nil {
			s.logger.WithField("user_id", u.ID).WithError(err).Warn("invalidation: failed to sync profile image to post service")
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("invalidation: replaced cached profile")
	}
	return nil
}

// HandleFollowCreated implements ports.InvalidationHandler.
func (s *InvalidationService) HandleFollowCreated(ctx context.Context, ev *follow.CreatedEvent) error {
	return s.applyFollowDelta(ctx, ev.UserID, ev.FollowerID, 1)
}

// HandleFollowDeleted implements ports.InvalidationHandler.
func (s *InvalidationService) HandleFollowDeleted(ctx context.Context, ev *follow.DeletedEvent) error {
	return s.applyFollowDelta(ctx, ev.UserID, ev.FollowerID, -1)
}

func (s *InvalidationService) applyFollowDelta(ctx context.Context, userID, followerID int64, delta int) error {
	if err := s.adjustCounts(ctx, userID, func(p *user.PublicProfile) {
		p.FollowersCount = clampAtZero(p.FollowersCount + delta)
	}); err != nil {
		return err
	}
	return s.adjustCounts(ctx, followerID, func(p *user.PublicProfile) {
		p.FollowingCount = clampAtZero(p.FollowingCount + delta)
	})
}

// HandlePostCreated implements ports.InvalidationHandler.
func (s *InvalidationService) HandlePostCreated(ctx context.Context, ev *post.CreatedEvent) error {
	return s.adjustCounts(ctx, ev.UserID, func(p *user.PublicProfile) {
		p.PostsCount = clampAtZero(p.PostsCount + 1)
	})
}

// HandlePostDeleted implements ports.InvalidationHandler.
func (s *InvalidationService) HandlePostDeleted(ctx context.Context, ev *post.DeletedEvent) error {
	return s.adjustCounts(ctx, ev.UserID, func(p *user.PublicProfile) {
		p.PostsCount = clampAtZero(p.PostsCount - 1)
	})
}

// adjustCounts mutates a cached summary in place, skipping users whose
// summary is not cached (lazy delta).
func (s *InvalidationService) adjustCounts(ctx context.Context, userID int64, mutate func(*user.PublicProfile)) error {
	p, ok, err := s.cache.CachedPublicProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read cached profile for user %d: %w", userID, err)
	}
	if !ok {
		if s.logger != nil {
			s.logger.WithField("user_id", userID).Debug("invalidation: profile not cached, skipping delta")
		}
		return nil
	}
	mutate(p)
	if err := s.cache.SetPublicProfile(ctx, p); err != nil {
		return fmt.Errorf("failed to write adjusted profile for user %d: %w", userID, err)
	}
	return nil
}

func clampAtZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

var _ ports.InvalidationHandler = (*InvalidationService)(nil)
