package chat

import "time"

// Chat is a direct-message conversation between two users. UserID1 is
// always the smaller id so a pair maps to exactly one chat row.
type Chat struct {
	ID        int64     `json:"id" db:"id"`
	UserID1   int64     `json:"user_id_1" db:"user_id_1"`
	UserID2   int64     `json:"user_id_2" db:"user_id_2"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OtherParticipant returns the chat member that is not userID.
func (c *Chat) OtherParticipant(userID int64) int64 {
	if c.UserID1 == userID {
		return c.UserID2
	}
	return c.UserID1
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID int64) bool {
	return c.UserID1 == userID || c.UserID2 == userID
}

type Message struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	SenderID  int64     `json:"sender_id" db:"sender_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MessageData is the wire form delivered to live connections and embedded
// in relay envelopes.
type MessageData struct {
	MessageID int64     `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

// SendMessageRequest is the HTTP request body for sending a chat message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreatedEvent is emitted when a new chat conversation is created.
type CreatedEvent struct {
	ChatID  int64 `json:"chatId"`
	UserID1 int64 `json:"userId1"`
	UserID2 int64 `json:"userId2"`
}

// MessageSentEvent is emitted to the event log after a message is persisted.
type MessageSentEvent struct {
	ChatID      int64       `json:"chatId"`
	RecipientID int64       `json:"recipientId"`
	Message     MessageData `json:"message"`
}
