package services_test

import (
	"context"
	"testing"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/test/mocks"
	"github.com/stretchr/testify/require"
)

func newFollowFixture(t *testing.T) (*impl.FollowGraphService, *mocks.FollowRepositoryMock, *mocks.EventPublisherMock) {
	t.Helper()
	follows := &mocks.FollowRepositoryMock{}
	events := &mocks.EventPublisherMock{}
	users := &mocks.UserRepositoryMock{
		GetByIDFn: func(ctx context.Context, id int64) (*user.User, error) {
			return &user.User{ID: id}, nil
		},
	}
	return impl.NewFollowGraphService(follows, users, events, nil), follows, events
}

func TestFollow_CreatesEdgeAndEmitsEvent(t *testing.T) {
	svc, follows, events := newFollowFixture(t)

	var createdUser, createdFollower int64
	follows.CreateFn = func(ctx context.Context, userID, followerID int64) error {
		createdUser, createdFollower = userID, followerID
		return nil
	}

	require.NoError(t, svc.Follow(context.Background(), 1, 2))
	require.Equal(t, int64(1), createdUser)
	require.Equal(t, int64(2), createdFollower)
	require.Len(t, events.FollowsCreated, 1)
	require.Equal(t, int64(1), events.FollowsCreated[0].UserID)
	require.Equal(t, int64(2), events.FollowsCreated[0].FollowerID)
}

func TestFollow_RejectsSelfFollow(t *testing.T) {
	svc, _, events := newFollowFixture(t)

	err := svc.Follow(context.Background(), 1, 1)
	require.True(t, apperror.IsInvalid(err))
	require.Empty(t, events.FollowsCreated)
}

func TestFollow_RejectsDuplicateEdge(t *testing.T) {
	svc, follows, events := newFollowFixture(t)
	follows.ExistsFn = func(ctx context.Context, userID, followerID int64) (bool, error) { return true, nil }

	err := svc.Follow(context.Background(), 1, 2)
	require.True(t, apperror.IsConflict(err))
	require.Empty(t, events.FollowsCreated)
}

func TestUnfollow_MissingEdgeIsNotFound(t *testing.T) {
	svc, _, events := newFollowFixture(t)

	err := svc.Unfollow(context.Background(), 1, 2)
	require.True(t, apperror.IsNotFound(err))
	require.Empty(t, events.FollowsDeleted)
}

func TestUnfollow_DeletesEdgeAndEmitsEvent(t *testing.T) {
	svc, follows, events := newFollowFixture(t)
	follows.ExistsFn = func(ctx context.Context, userID, followerID int64) (bool, error) { return true, nil }

	require.NoError(t, svc.Unfollow(context.Background(), 1, 2))
	require.Len(t, events.FollowsDeleted, 1)
}

func TestRelationship_AnonymousViewer(t *testing.T) {
	svc, follows, _ := newFollowFixture(t)
	follows.ExistsFn = func(ctx context.Context, userID, followerID int64) (bool, error) {
		t.Fatal("anonymous viewers must not trigger edge lookups")
		return false, nil
	}

	isFollowing, isFollowingMe, err := svc.Relationship(context.Background(), 1, 0)
	require.NoError(t, err)
	require.False(t, isFollowing)
	require.False(t, isFollowingMe)
}

func TestRelationship_BothDirections(t *testing.T) {
	svc, follows, _ := newFollowFixture(t)
	follows.ExistsFn = func(ctx context.Context, userID, followerID int64) (bool, error) {
		// Viewer 2 follows user 1; user 1 does not follow back.
		return userID == 1 && followerID == 2, nil
	}

	isFollowing, isFollowingMe, err := svc.Relationship(context.Background(), 1, 2)
	require.NoError(t, err)
	require.True(t, isFollowing)
	require.False(t, isFollowingMe)
}
