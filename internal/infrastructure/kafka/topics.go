package kafka

// Topic names shared with the other services in the deployment. Events are
// keyed by entity id so each topic preserves per-entity ordering.
const (
	TopicUserUpdated   = "user-updated"
	TopicFollowCreated = "follow-created"
	TopicFollowDeleted = "follow-deleted"
	TopicPostCreated   = "post-created"
	TopicPostDeleted   = "post-deleted"
	TopicChatCreated   = "chat-created"
	TopicMessageSent   = "message-sent"
)

// InvalidationTopics are the topics the cache-maintenance consumer group
// subscribes to.
var InvalidationTopics = []string{
	TopicUserUpdated,
	TopicFollowCreated,
	TopicFollowDeleted,
	TopicPostCreated,
	TopicPostDeleted,
}
