package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Publisher emits domain events through a synchronous Kafka producer.
// Messages are keyed by the affected entity's id so consumers see events
// for one entity in order.
type Publisher struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewPublisher(brokers []string, logger *logrus.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Publisher{producer: producer, logger: logger}, nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// PublishUserUpdated implements ports.EventPublisher.
func (p *Publisher) PublishUserUpdated(ctx context.Context, ev *user.UpdatedEvent) error {
	if ev.User == nil {
		return fmt.Errorf("user-updated event without user payload")
	}
	return p.send(TopicUserUpdated, ev.User.ID, ev)
}

// PublishFollowCreated implements ports.EventPublisher.
func (p *Publisher) PublishFollowCreated(ctx context.Context, ev *follow.CreatedEvent) error {
	return p.send(TopicFollowCreated, ev.UserID, ev)
}

// PublishFollowDeleted implements ports.EventPublisher.
func (p *Publisher) PublishFollowDeleted(ctx context.Context, ev *follow.DeletedEvent) error {
	return p.send(TopicFollowDeleted, ev.UserID, ev)
}

// PublishChatCreated implements ports.EventPublisher.
func (p *Publisher) PublishChatCreated(ctx context.Context, ev *chat.CreatedEvent) error {
	return p.send(TopicChatCreated, ev.ChatID, ev)
}

// PublishMessageSent implements ports.EventPublisher.
func (p *Publisher) PublishMessageSent(ctx context.Context, ev *chat.MessageSentEvent) error {
	return p.send(TopicMessageSent, ev.ChatID, ev)
}

func (p *Publisher) send(topic string, entityID int64, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", topic, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(entityID, 10)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"topic":     topic,
			"partition": partition,
			"offset":    offset,
			"key":       entityID,
		}).Debug("published event")
	}
	return nil
}

var _ ports.EventPublisher = (*Publisher)(nil)
