package ports

import "context"

// FollowRepository defines follow-graph operations against the system of record.
type FollowRepository interface {
	Create(ctx context.Context, userID, followerID int64) error
	Delete(ctx context.Context, userID, followerID int64) error
	Exists(ctx context.Context, userID, followerID int64) (bool, error)
	// CountFollowers counts edges pointing at userID.
	CountFollowers(ctx context.Context, userID int64) (int, error)
	// CountFollowing counts edges originating from userID.
	CountFollowing(ctx context.Context, userID int64) (int, error)
}

// FollowService defines follow-graph business logic.
type FollowService interface {
	Follow(ctx context.Context, userID, followerID int64) error
	Unfollow(ctx context.Context, userID, followerID int64) error
	// Relationship reports (viewer follows user, user follows viewer).
	Relationship(ctx context.Context, userID, viewerID int64) (isFollowing, isFollowingMe bool, err error)
}
