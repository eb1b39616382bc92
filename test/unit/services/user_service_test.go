package services_test

import (
	"context"
	"sync/atomic"
	"testing"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	users   *mocks.UserRepositoryMock
	follows *mocks.FollowRepositoryMock
	posts   *mocks.PostClientMock
	events  *mocks.EventPublisherMock
	cache   *impl.CacheService
	svc     *impl.UserProfileService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	store := mocks.NewMemoryStore()
	cache := impl.NewCacheService(store, nil, nil)
	f := &userFixture{
		users:   &mocks.UserRepositoryMock{},
		follows: &mocks.FollowRepositoryMock{},
		posts:   &mocks.PostClientMock{},
		events:  &mocks.EventPublisherMock{},
		cache:   cache,
	}
	f.svc = impl.NewUserProfileService(f.users, f.follows, f.posts, &mocks.MediaResolverMock{}, cache, f.events, nil)
	return f
}

func notFoundErr() error { return apperror.NotFound("user not found", nil) }

func TestRegister_HashesPasswordAndCreates(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetByUsernameFn = func(ctx context.Context, username string) (*user.User, error) { return nil, notFoundErr() }
	f.users.GetByEmailFn = func(ctx context.Context, email string) (*user.User, error) { return nil, notFoundErr() }

	var created *user.User
	f.users.CreateFn = func(ctx context.Context, u *user.User) error {
		u.ID = 1
		created = u
		return nil
	}

	u, err := f.svc.Register(context.Background(), &user.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "s3cretpass",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.NotNil(t, created)
	require.NotEqual(t, "s3cretpass", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cretpass")))
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	f := newUserFixture(t)
	_, err := f.svc.Register(context.Background(), &user.RegisterRequest{
		Username: "bad name!", Email: "a@example.com", Password: "s3cretpass",
	})
	require.True(t, apperror.IsInvalid(err))
}

func TestRegister_RejectsTakenUsername(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetByUsernameFn = func(ctx context.Context, username string) (*user.User, error) {
		return &user.User{ID: 2, Username: username}, nil
	}
	_, err := f.svc.Register(context.Background(), &user.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "s3cretpass",
	})
	require.True(t, apperror.IsConflict(err))
}

func TestUpdateProfile_EmitsEventWithChangedFields(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		return &user.User{ID: 1, Username: "alice", Email: "a@example.com", DisplayName: "Alice", Bio: "old"}, nil
	}

	bio := "new bio"
	display := "Alice A."
	_, err := f.svc.UpdateProfile(context.Background(), 1, &user.UpdateProfileRequest{
		DisplayName: &display,
		Bio:         &bio,
	})
	require.NoError(t, err)
	require.Len(t, f.events.UserUpdated, 1)
	require.ElementsMatch(t, []string{"displayName", "bio"}, f.events.UserUpdated[0].ChangedFields)
}

func TestUpdateProfile_NoChangesNoEvent(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		return &user.User{ID: 1, Username: "alice", Bio: "same"}, nil
	}

	bio := "same"
	_, err := f.svc.UpdateProfile(context.Background(), 1, &user.UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	require.Empty(t, f.events.UserUpdated)
}

func TestGetPublicProfile_CachesSummaryAcrossCalls(t *testing.T) {
	f := newUserFixture(t)

	var idLookups, profileLoads int32
	f.users.GetIDByUsernameFn = func(ctx context.Context, username string) (int64, error) {
		atomic.AddInt32(&idLookups, 1)
		return 1, nil
	}
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		atomic.AddInt32(&profileLoads, 1)
		return &user.User{ID: 1, Username: "alice", DisplayName: "Alice"}, nil
	}
	f.follows.CountFollowersFn = func(ctx context.Context, userID int64) (int, error) { return 10, nil }
	f.follows.CountFollowingFn = func(ctx context.Context, userID int64) (int, error) { return 4, nil }
	f.posts.PostsCountFn = func(ctx context.Context, userID int64) (int, error) { return 2, nil }

	for i := 0; i < 3; i++ {
		p, err := f.svc.GetPublicProfile(context.Background(), "alice", 0)
		require.NoError(t, err)
		require.Equal(t, 10, p.FollowersCount)
		require.Nil(t, p.IsFollowing, "anonymous viewers get no relationship flags")
	}

	require.Equal(t, int32(1), atomic.LoadInt32(&idLookups))
	require.Equal(t, int32(1), atomic.LoadInt32(&profileLoads))
}

func TestGetPublicProfile_ViewerFlagsAreFresh(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetIDByUsernameFn = func(ctx context.Context, username string) (int64, error) { return 1, nil }
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		return &user.User{ID: 1, Username: "alice"}, nil
	}

	var followState atomic.Bool
	f.follows.ExistsFn = func(ctx context.Context, userID, followerID int64) (bool, error) {
		return followState.Load(), nil
	}

	p, err := f.svc.GetPublicProfile(context.Background(), "alice", 9)
	require.NoError(t, err)
	require.NotNil(t, p.IsFollowing)
	require.False(t, *p.IsFollowing)

	// The follow happens; the cached summary is untouched but the flags
	// must reflect the new state on the next read.
	followState.Store(true)
	p, err = f.svc.GetPublicProfile(context.Background(), "alice", 9)
	require.NoError(t, err)
	require.NotNil(t, p.IsFollowing)
	require.True(t, *p.IsFollowing)
}

func TestGetPublicProfile_SelfViewGetsNoFlags(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetIDByUsernameFn = func(ctx context.Context, username string) (int64, error) { return 1, nil }
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		return &user.User{ID: 1, Username: "alice"}, nil
	}

	p, err := f.svc.GetPublicProfile(context.Background(), "alice", 1)
	require.NoError(t, err)
	require.Nil(t, p.IsFollowing)
	require.Nil(t, p.IsFollowingMe)
}

func TestGetPublicProfile_FollowEventAdjustsWithoutReload(t *testing.T) {
	f := newUserFixture(t)

	var profileLoads int32
	f.users.GetIDByUsernameFn = func(ctx context.Context, username string) (int64, error) { return 1, nil }
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		atomic.AddInt32(&profileLoads, 1)
		return &user.User{ID: 1, Username: "alice"}, nil
	}
	f.follows.CountFollowersFn = func(ctx context.Context, userID int64) (int, error) { return 10, nil }

	p, err := f.svc.GetPublicProfile(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Equal(t, 10, p.FollowersCount)

	// A follow-created event lands on the same cache via the consumer.
	inval := impl.NewInvalidationService(f.cache, f.follows, f.posts, &mocks.MediaResolverMock{}, nil)
	require.NoError(t, inval.HandleFollowCreated(context.Background(), &follow.CreatedEvent{UserID: 1, FollowerID: 2}))

	p, err = f.svc.GetPublicProfile(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Equal(t, 11, p.FollowersCount)
	require.Equal(t, int32(1), atomic.LoadInt32(&profileLoads), "the adjusted summary must be served from cache")
}

func TestGetPublicProfile_PostsCountDegradesToZero(t *testing.T) {
	f := newUserFixture(t)
	f.users.GetIDByUsernameFn = func(ctx context.Context, username string) (int64, error) { return 1, nil }
	f.users.GetByIDFn = func(ctx context.Context, id int64) (*user.User, error) {
		return &user.User{ID: 1, Username: "alice"}, nil
	}
	f.posts.PostsCountFn = func(ctx context.Context, userID int64) (int, error) {
		return 0, context.DeadlineExceeded
	}

	p, err := f.svc.GetPublicProfile(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Zero(t, p.PostsCount)
}
