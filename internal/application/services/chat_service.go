package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/perchnet/user-service/internal/core/domain/apperror"
	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const maxMessageLength = 2000

// ChatMessagingService implements direct messaging. Persistence is the
// source of truth; realtime delivery through the relay is best effort and
// a failed publish never fails the send.
type ChatMessagingService struct {
	chats    ports.ChatRepository
	messages ports.MessageRepository
	users    ports.UserRepository
	relay    ports.RealtimeRelay
	events   ports.EventPublisher
	logger   *logrus.Logger
}

func NewChatMessagingService(
	chats ports.ChatRepository,
	messages ports.MessageRepository,
	users ports.UserRepository,
	relay ports.RealtimeRelay,
	events ports.EventPublisher,
	logger *logrus.Logger,
) *ChatMessagingService {
	return &ChatMessagingService{
		chats:    chats,
		messages: messages,
		users:    users,
		relay:    relay,
		events:   events,
		logger:   logger,
	}
}

// OpenChat implements ports.ChatService. The participant pair is normalized
// smaller id first so a pair always maps to the same conversation row;
// opening an existing chat returns it unchanged.
func (s *ChatMessagingService) OpenChat(ctx context.Context, userID, otherUserID int64) (*chat.Chat, error) {
	if userID == otherUserID {
		return nil, apperror.Invalid("cannot open a chat with yourself", nil)
	}
	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		return nil, err
	}

	first, second := userID, otherUserID
	if first > second {
		first, second = second, first
	}

	existing, err := s.chats.GetByUserIDs(ctx, first, second)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up chat: %w", err)
	}

	c := &chat.Chat{UserID1: first, UserID2: second}
	if err := s.chats.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	if err := s.events.PublishChatCreated(ctx, &chat.CreatedEvent{ChatID: c.ID, UserID1: c.UserID1, UserID2: c.UserID2}); err != nil && s.logger != nil {
		s.logger.WithField("chat_id", c.ID).WithError(err).Error("failed to publish chat-created event")
	}
	return c, nil
}

// SendMessage implements ports.ChatService.
func (s *ChatMessagingService) SendMessage(ctx context.Context, chatID, senderID int64, content string) (*chat.MessageData, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Invalid("message content must not be empty", nil)
	}
	if len(content) > maxMessageLength {
		return nil, apperror.Invalid("message content too long", nil)
	}

	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(senderID) {
		return nil, apperror.Unauthorized("not a participant of this chat", nil)
	}

	m := &chat.Message{ChatID: chatID, SenderID: senderID, Content: content}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	data := &chat.MessageData{
		MessageID: m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		SentAt:    m.CreatedAt,
	}
	recipientID := c.OtherParticipant(senderID)

	if err := s.relay.PublishMessage(ctx, recipientID, data); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"chat_id": chatID, "recipient_id": recipientID}).WithError(err).Error("failed to relay message")
	}
	if err := s.events.PublishMessageSent(ctx, &chat.MessageSentEvent{ChatID: chatID, RecipientID: recipientID, Message: *data}); err != nil && s.logger != nil {
		s.logger.WithField("chat_id", chatID).WithError(err).Error("failed to publish message-sent event")
	}
	return data, nil
}

// ListMessages implements ports.ChatService.
func (s *ChatMessagingService) ListMessages(ctx context.Context, chatID, userID int64, limit, offset int) ([]*chat.Message, error) {
	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, apperror.Unauthorized("not a participant of this chat", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListByChat(ctx, chatID, limit, offset)
}

// ListChats implements ports.ChatService.
func (s *ChatMessagingService) ListChats(ctx context.Context, userID int64, limit, offset int) ([]*chat.Chat, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.chats.ListForUser(ctx, userID, limit, offset)
}

var _ ports.ChatService = (*ChatMessagingService)(nil)
