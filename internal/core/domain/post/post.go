// Package post holds the event shapes consumed from the post service's
// topics. Posts themselves live in an external service; only the events
// that drive cached counter maintenance are modeled here.
package post

// CreatedEvent is consumed when the post service persists a new post.
type CreatedEvent struct {
	PostID int64 `json:"postId"`
	UserID int64 `json:"userId"`
}

// DeletedEvent is consumed when the post service removes a post.
type DeletedEvent struct {
	PostID int64 `json:"postId"`
	UserID int64 `json:"userId"`
}
