package ports

import (
	"context"

	"github.com/perchnet/user-service/internal/core/domain/chat"
)

// SessionRegistry is the per-instance view of live realtime connections.
// Implemented by the websocket hub; consulted by presence tracking and by
// the relay to decide local delivery.
type SessionRegistry interface {
	// LocalSessionCount returns how many live connections this instance
	// holds for the user.
	LocalSessionCount(userID int64) int
	// Deliver pushes a message to the user's local connections. Returns
	// false when the user has no local session.
	Deliver(userID int64, msg *chat.MessageData) bool
}

// PresenceTracker maintains the cluster-wide connected-users set on top of
// each instance's local session registry. Membership is best effort: a
// disconnect racing a connect on another instance may leave a stale entry,
// which is preferred over dropping messages for a live user.
type PresenceTracker interface {
	UserConnected(ctx context.Context, userID int64) error
	UserDisconnected(ctx context.Context, userID int64) error
	IsConnected(ctx context.Context, userID int64) (bool, error)
	ConnectedUsers(ctx context.Context) ([]int64, error)
}

// RealtimeRelay fans chat messages out to whichever instance holds the
// recipient's live connection, via the shared store's pub/sub channel.
type RealtimeRelay interface {
	// PublishMessage broadcasts an envelope to all instances. Failures are
	// reported but not retried; redelivery is not guaranteed.
	PublishMessage(ctx context.Context, recipientID int64, msg *chat.MessageData) error
	// Run subscribes to the relay channel and delivers envelopes addressed
	// to locally connected users until ctx is cancelled.
	Run(ctx context.Context) error
}
