package follow

import "time"

// Follow records that FollowerID follows UserID.
type Follow struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	FollowerID int64     `json:"follower_id" db:"follower_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreatedEvent is emitted when a follow edge is created.
type CreatedEvent struct {
	UserID     int64 `json:"userId"`
	FollowerID int64 `json:"followerId"`
}

// DeletedEvent is emitted when a follow edge is removed.
type DeletedEvent struct {
	UserID     int64 `json:"userId"`
	FollowerID int64 `json:"followerId"`
}
