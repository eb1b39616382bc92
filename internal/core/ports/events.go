package ports

import (
	"context"

	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/post"
	"github.com/perchnet/user-service/internal/core/domain/user"
)

// EventPublisher emits domain events to the external event log. Events are
// keyed by entity id so the log preserves per-entity ordering.
type EventPublisher interface {
	PublishUserUpdated(ctx context.Context, ev *user.UpdatedEvent) error
	PublishFollowCreated(ctx context.Context, ev *follow.CreatedEvent) error
	PublishFollowDeleted(ctx context.Context, ev *follow.DeletedEvent) error
	PublishChatCreated(ctx context.Context, ev *chat.CreatedEvent) error
	PublishMessageSent(ctx context.Context, ev *chat.MessageSentEvent) error
}

// InvalidationHandler applies consumed domain events to the cache. Handlers
// are invoked at least once; full replacements are idempotent, deltas are
// not (a redelivered delta double-applies, self-correcting on the next
// full reload).
type InvalidationHandler interface {
	HandleUserUpdated(ctx context.Context, ev *user.UpdatedEvent) error
	HandleFollowCreated(ctx context.Context, ev *follow.CreatedEvent) error
	HandleFollowDeleted(ctx context.Context, ev *follow.DeletedEvent) error
	HandlePostCreated(ctx context.Context, ev *post.CreatedEvent) error
	HandlePostDeleted(ctx context.Context, ev *post.DeletedEvent) error
}
