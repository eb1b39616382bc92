package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/post"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Consumer runs the cache-maintenance consumer group. Each claimed message
// is dispatched by topic to the invalidation handler. Malformed payloads
// and handler failures are logged and the offset is committed anyway:
// deltas are best effort and a poison message must not wedge the partition.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler ports.InvalidationHandler
	logger  *logrus.Logger
}

func NewConsumer(brokers []string, groupID string, handler ports.InvalidationHandler, logger *logrus.Logger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}
	return &Consumer{group: group, handler: handler, logger: logger}, nil
}

// Run consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.group.Close()

	for {
		if err := c.group.Consume(ctx, InvalidationTopics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			if c.logger != nil {
				c.logger.WithError(err).Error("kafka consume error")
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.dispatch(session.Context(), msg); err != nil && c.logger != nil {
				c.logger.WithFields(logrus.Fields{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).WithError(err).Error("failed to apply event, skipping")
			}
			session.MarkMessage(msg, "")
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case TopicUserUpdated:
		var ev user.UpdatedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("malformed user-updated payload: %w", err)
		}
		return c.handler.HandleUserUpdated(ctx, &ev)
	case TopicFollowCreated:
		var ev follow.CreatedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("malformed follow-created payload: %w", err)
		}
		return c.handler.HandleFollowCreated(ctx, &ev)
	case TopicFollowDeleted:
		var ev follow.DeletedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("malformed follow-deleted payload: %w", err)
		}
		return c.handler.HandleFollowDeleted(ctx, &ev)
	case TopicPostCreated:
		var ev post.CreatedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("malformed post-created payload: %w", err)
		}
		return c.handler.HandlePostCreated(ctx, &ev)
	case TopicPostDeleted:
		var ev post.DeletedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("malformed post-deleted payload: %w", err)
		}
		return c.handler.HandlePostDeleted(ctx, &ev)
	default:
		return fmt.Errorf("unexpected topic %s", msg.Topic)
	}
}

var _ sarama.ConsumerGroupHandler = (*Consumer)(nil)
