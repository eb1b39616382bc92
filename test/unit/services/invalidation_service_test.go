package services_test

import (
	"context"
	"sync"
	"testing"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/post"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
)

func newInvalidationFixture(t *testing.T) (*impl.CacheService, *impl.InvalidationService, *mocks.FollowRepositoryMock, *mocks.PostClientMock) {
	t.Helper()
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)
	follows := &mocks.FollowRepositoryMock{}
	posts := &mocks.PostClientMock{}
	svc := impl.NewInvalidationService(cache, follows, posts, &mocks.MediaResolverMock{}, nil)
	return cache, svc, follows, posts
}

func seedProfile(t *testing.T, cache *impl.CacheService, p *user.PublicProfile) {
	t.Helper()
	require.NoError(t, cache.SetPublicProfile(context.Background(), p))
}

func cachedProfile(t *testing.T, cache *impl.CacheService, userID int64) *user.PublicProfile {
	t.Helper()
	p, ok, err := cache.CachedPublicProfile(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func TestHandleFollowCreated_AdjustsCachedCounters(t *testing.T) {
	cache, svc, _, _ := newInvalidationFixture(t)
	seedProfile(t, cache, &user.PublicProfile{UserID: 1, Username: "followee", FollowersCount: 10})
	seedProfile(t, cache, &user.PublicProfile{UserID: 2, Username: "follower", FollowingCount: 3})

	err := svc.HandleFollowCreated(context.Background(), &follow.CreatedEvent{UserID: 1, FollowerID: 2})
	require.NoError(t, err)

	require.Equal(t, 11, cachedProfile(t, cache, 1).FollowersCount)
	require.Equal(t, 4, cachedProfile(t, cache, 2).FollowingCount)
}

func TestHandleFollowCreated_SkipsUncachedProfiles(t *testing.T) {
	cache, svc, _, _ := newInvalidationFixture(t)

	err := svc.HandleFollowCreated(context.Background(), &follow.CreatedEvent{UserID: 1, FollowerID: 2})
	require.NoError(t, err)

	// A delta must never create an entry.
	_, ok, err := cache.CachedPublicProfile(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandleFollowCreated_RedeliveryDoubleApplies(t *testing.T) {
	cache, svc, _, _ := newInvalidationFixture(t)
	seedProfile(t, cache, &user.PublicProfile{UserID: 1, FollowersCount: 10})

	ev := &follow.CreatedEvent{UserID: 1, FollowerID: 2}
	require.NoError(t, svc.HandleFollowCreated(context.Background(), ev))
	require.NoError(t, svc.HandleFollowCreated(context.Background(), ev))

	// Deltas are not idempotent; a redelivered event moves the counter again.
	require.Equal(t, 12, cachedProfile(t, cache, 1).FollowersCount)
}

func TestHandleFollowDeleted_ClampsAtZero(t *testing.T) {
	cache, svc, _, _ := newInvalidationFixture(t)
	seedProfile(t, cache, &user.PublicProfile{UserID: 1, FollowersCount: 0})
	seedProfile(t, cache, &user.PublicProfile{UserID: 2, FollowingCount: 0})

	err := svc.HandleFollowDeleted(context.Background(), &follow.DeletedEvent{UserID: 1, FollowerID: 2})
	require.NoError(t, err)

	require.Equal(t, 0, cachedProfile(t, cache, 1).FollowersCount)
	require.Equal(t, 0, cachedProfile(t, cache, 2).FollowingCount)
}

func TestHandlePostEvents_AdjustPostsCount(t *testing.T) {
	cache, svc, _, _ := newInvalidationFixture(t)
	seedProfile(t, cache, &user.PublicProfile{UserID: 5, PostsCount: 2})

	require.NoError(t, svc.HandlePostCreated(context.Background(), &post.CreatedEvent{PostID: 100, UserID: 5}))
	require.Equal(t, 3, cachedProfile(t, cache, 5).PostsCount)

	require.NoError(t, svc.HandlePostDeleted(context.Background(), &post.DeletedEvent{PostID: 100, UserID: 5}))
	require.Equal(t, 2, cachedProfile(t, cache, 5).PostsCount)
}

func TestHandleUserUpdated_ReplacesProfileWholesale(t *testing.T) {
	cache, svc, follows, posts := newInvalidationFixture(t)
	// A stale summary with drifted counters.
	seedProfile(t, cache, &user.PublicProfile{UserID: 1, Username: "old_name", FollowersCount: 99})

	follows.CountFollowersFn = func(ctx context.Context, userID int64) (int, error) { return 7, nil }
	follows.CountFollowingFn = func(ctx context.Context, userID int64) (int, error) { return 3, nil }
	posts.PostsCountFn = func(ctx context.Context, userID int64) (int, error) { return 12, nil }

	imageID := int64(55)
	err := svc.HandleUserUpdated(context.Background(), &user.UpdatedEvent{
		User: &user.User{
			ID:             1,
			Username:       "new_name",
			DisplayName:    "New Name",
			Bio:            "hello",
			ProfileImageID: &imageID,
		},
		ChangedFields: []string{"username", "displayName"},
	})
	require.NoError(t, err)

	p := cachedProfile(t, cache, 1)
	require.Equal(t, "new_name", p.Username)
	require.Equal(t, "New Name", p.DisplayName)
	require.Equal(t, 7, p.FollowersCount)
	require.Equal(t, 3, p.FollowingCount)
	require.Equal(t, 12, p.PostsCount)
	require.Equal(t, "http://media.test/images/55", p.ProfileImageURL)

	// The username index must follow the rename.
	id, err := cache.UserIDByUsername(context.Background(), "new_name", func(ctx context.Context) (int64, error) {
		t.Fatal("index must be cached after the event")
		return 0, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestHandleUserUpdated_SyncsProfileImageToPostService(t *testing.T) {
	_, svc, _, posts := newInvalidationFixture(t)

	var mu sync.Mutex
	var syncedURL string
	posts.UpdateProfileImageFn = func(ctx context.Context, userID int64, imageURL string) error {
		mu.Lock()
		defer mu.Unlock()
		syncedURL = imageURL
		return nil
	}

	imageID := int64(8)
	err := svc.HandleUserUpdated(context.Background(), &user.UpdatedEvent{
		User:          &user.User{ID: 1, Username: "alice", ProfileImageID: &imageID},
		ChangedFields: []string{"profileImageId"},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "http://media.test/images/8", syncedURL)
}
