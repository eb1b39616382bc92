package services

import (
	"context"
	"fmt"

	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserProfileService implements user registration, profile management and
// the cached public-profile read path.
type UserProfileService struct {
	users   ports.UserRepository
	follows ports.FollowRepository
	posts   ports.PostClient
	media   ports.MediaURLResolver
	cache   ports.ProfileCache
	events  ports.EventPublisher
	logger  *logrus.Logger
}

func NewUserProfileService(
	users ports.UserRepository,
	follows ports.FollowRepository,
	posts ports.PostClient,
	media ports.MediaURLResolver,
	cache ports.ProfileCache,
	events ports.EventPublisher,
	logger *logrus.Logger,
) *UserProfileService {
	return &UserProfileService{
		users:   users,
		follows: follows,
		posts:   posts,
		media:   media,
		cache:   cache,
		events:  events,
		logger:  logger,
	}
}

// Register implements ports.UserService.
func (s *UserProfileService) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	if !user.ValidUsername(req.Username) {
		return nil, apperror.Invalid("username may only contain letters, digits and underscores", nil)
	}
	if !user.ValidEmail(req.Email) {
		return nil, apperror.Invalid("invalid email address", nil)
	}
	if len(req.Password) < 8 {
		return nil, apperror.Invalid("password must be at least 8 characters", nil)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("username already taken", nil)
	} else if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check username availability: %w", err)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already registered", nil)
	} else if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email availability: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  req.Username,
		Bio:          req.Bio,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
	}
	return u, nil
}

// GetUser implements ports.UserService.
func (s *UserProfileService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile implements ports.UserService. It applies the non-nil fields,
// persists the result and emits an update event naming exactly the fields
// that changed. A failed event publish does not roll the update back; the
// cache converges on expiry.
func (s *UserProfileService) UpdateProfile(ctx context.Context, id int64, req *user.UpdateProfileRequest) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.Username != nil && *req.Username != u.Username {
		if !user.ValidUsername(*req.Username) {
			return nil, apperror.Invalid("username may only contain letters, digits and underscores", nil)
		}
		if _, lookupErr := s.users.GetByUsername(ctx, *req.Username); lookupErr == nil {
			return nil, apperror.Conflict("username already taken", nil)
		} else if !apperror.IsNotFound(lookupErr) {
			return nil, fmt.Errorf("failed to check username availability: %w", lookupErr)
		}
		u.Username = *req.Username
		changed = append(changed, "username")
	}
	if req.Email != nil && *req.Email != u.Email {
		if !user.ValidEmail(*req.Email) {
			return nil, apperror.Invalid("invalid email address", nil)
		}
		if _, lookupErr := s.users.GetByEmail(ctx, *req.Email); lookupErr == nil {
			return nil, apperror.Conflict("email already registered", nil)
		} else if !apperror.IsNotFound(lookupErr) {
			return nil, fmt.Errorf("failed to check email availability: %w", lookupErr)
		}
		u.Email = *req.Email
		changed = append(changed, "email")
	}
	if req.DisplayName != nil && *req.DisplayName != u.DisplayName {
		u.DisplayName = *req.DisplayName
		changed = append(changed, "displayName")
	}
	if req.Bio != nil && *req.Bio != u.Bio {
		u.Bio = *req.Bio
		changed = append(changed, "bio")
	}
	if req.ProfileImageID != nil {
		u.ProfileImageID = req.ProfileImageID
		changed = append(changed, "profileImageId")
	}
	if req.HeaderImageID != nil {
		u.HeaderImageID = req.HeaderImageID
		changed = append(changed, "headerImageId")
	}

	if len(changed) == 0 {
		return u, nil
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	if err := s.events.PublishUserUpdated(ctx, &user.UpdatedEvent{User: u, ChangedFields: changed}); err != nil && s.logger != nil {
		s.logger.WithField("user_id", u.ID).WithError(err).Error("failed to publish user-updated event")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "changed_fields": changed}).Info("user profile updated")
	}
	return u, nil
}

// GetPublicProfile implements ports.UserService. Both cache steps (username
// index and profile summary) read through with stampede protection; the
// viewer-relative relationship flags are computed fresh on every call and
// never cached.
func (s *UserProfileService) GetPublicProfile(ctx context.Context, username string, viewerID int64) (*user.PublicProfile, error) {
	userID, err := s.cache.UserIDByUsername(ctx, username, func(ctx context.Context) (int64, error) {
		return s.users.GetIDByUsername(ctx, username)
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.cache.PublicProfile(ctx, userID, func(ctx context.Context) (*user.PublicProfile, error) {
		return s.buildPublicProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	if viewerID != 0 && viewerID != userID {
		isFollowing, followErr := s.follows.Exists(ctx, userID, viewerID)
		if followErr != nil {
			return nil, fmt.Errorf("failed to resolve follow state for user %d: %w", userID, followErr)
		}
		isFollowingMe, followErr := s.follows.Exists(ctx, viewerID, userID)
		if followErr != nil {
			return nil, fmt.Errorf("failed to resolve follow state for user %d: %w", userID, followErr)
		}
		profile.IsFollowing = &isFollowing
		profile.IsFollowingMe = &isFollowingMe
	}
	return profile, nil
}

// GetUsernameByID implements ports.UserService.
func (s *UserProfileService) GetUsernameByID(ctx context.Context, id int64) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// SearchUsernames implements ports.UserService.
func (s *UserProfileService) SearchUsernames(ctx context.Context, query string, limit, offset int) ([]string, error) {
	if query == "" {
		return nil, apperror.Invalid("search query must not be empty", nil)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.SearchUsernames(ctx, query, limit, offset)
}

// buildPublicProfile assembles the cacheable summary from the system of
// record. A failed posts-count lookup degrades to zero rather than failing
// the whole profile.
func (s *UserProfileService) buildPublicProfile(ctx context.Context, userID int64) (*user.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	followersCount, err := s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers for user %d: %w", userID, err)
	}
	followingCount, err := s.follows.CountFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following for user %d: %w", userID, err)
	}
	postsCount, err := s.posts.PostsCount(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("user_id", userID).WithError(err).Warn("posts count unavailable, defaulting to zero")
		}
		postsCount = 0
	}
	return &user.PublicProfile{
		UserID:          u.ID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		Bio:             u.Bio,
		ProfileImageURL: s.media.ImageURL(u.ProfileImageID),
		HeaderImageURL:  s.media.ImageURL(u.HeaderImageID),
		FollowersCount:  followersCount,
		FollowingCount:  followingCount,
		PostsCount:      postsCount,
	}, nil
}

var _ ports.UserService = (*UserProfileService)(nil)
