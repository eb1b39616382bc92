package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type ChatRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewChatRepository(db *sqlx.DB, logger *logrus.Logger) *ChatRepository {
	return &ChatRepository{db: db, logger: logger}
}

func (r *ChatRepository) Create(ctx context.Context, c *chat.Chat) error {
	query := `
		INSERT INTO chats (user_id_1, user_id_2, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, c.UserID1, c.UserID2).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperror.Conflict("chat already exists", err)
		}
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id int64) (*chat.Chat, error) {
	var c chat.Chat
	err := r.db.GetContext(ctx, &c, `SELECT * FROM chats WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("chat not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &c, nil
}

func (r *ChatRepository) GetByUserIDs(ctx context.Context, userID1, userID2 int64) (*chat.Chat, error) {
	var c chat.Chat
	err := r.db.GetContext(ctx, &c,
		`SELECT * FROM chats WHERE user_id_1 = $1 AND user_id_2 = $2`,
		userID1, userID2,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("chat not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat by participants: %w", err)
	}
	return &c, nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*chat.Chat, error) {
	var chats []*chat.Chat
	err := r.db.SelectContext(ctx, &chats,
		`SELECT * FROM chats WHERE user_id_1 = $1 OR user_id_2 = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

type MessageRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *logrus.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger}
}

func (r *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO messages (chat_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, m.ChatID, m.SenderID, m.Content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID int64, limit, offset int) ([]*chat.Message, error) {
	var messages []*chat.Message
	err := r.db.SelectContext(ctx, &messages,
		`SELECT * FROM messages WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		chatID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

var (
	_ ports.ChatRepository    = (*ChatRepository)(nil)
	_ ports.MessageRepository = (*MessageRepository)(nil)
)
