package ports

import (
	"context"

	"github.com/perchnet/user-service/internal/core/domain/chat"
)

type ChatRepository interface {
	Create(ctx context.Context, c *chat.Chat) error
	GetByID(ctx context.Context, id int64) (*chat.Chat, error)
	// GetByUserIDs looks a chat up by its (smaller, larger) id pair.
	GetByUserIDs(ctx context.Context, userID1, userID2 int64) (*chat.Chat, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*chat.Chat, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *chat.Message) error
	ListByChat(ctx context.Context, chatID int64, limit, offset int) ([]*chat.Message, error)
}

// ChatService defines direct-messaging business logic. Sending persists the
// message, relays it to the recipient's live connection and emits a
// message-sent event.
type ChatService interface {
	OpenChat(ctx context.Context, userID, otherUserID int64) (*chat.Chat, error)
	SendMessage(ctx context.Context, chatID, senderID int64, content string) (*chat.MessageData, error)
	ListMessages(ctx context.Context, chatID, userID int64, limit, offset int) ([]*chat.Message, error)
	ListChats(ctx context.Context, userID int64, limit, offset int) ([]*chat.Chat, error)
}
