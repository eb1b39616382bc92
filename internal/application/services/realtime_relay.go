package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// relayChannel is the single well-known pub/sub channel every instance
// subscribes to.
const relayChannel = "websocket-messages"

type relayEnvelope struct {
	RecipientID int64             `json:"recipientId"`
	Message     *chat.MessageData `json:"message"`
}

// MessageRelay broadcasts chat messages to all instances over the shared
// store's pub/sub channel; each instance checks its own session registry
// and delivers locally held connections only. Delivery is therefore correct
// regardless of which instance owns the recipient's connection, at the cost
// of one fan-out per message per instance.
type MessageRelay struct {
	store    ports.KeyedStore
	sessions ports.SessionRegistry
	logger   *logrus.Logger
}

func NewMessageRelay(store ports.KeyedStore, sessions ports.SessionRegistry, logger *logrus.Logger) *MessageRelay {
	return &MessageRelay{store: store, sessions: sessions, logger: logger}
}

// PublishMessage implements ports.RealtimeRelay. Publish failures are not
// retried at this layer; the transport session stays open and the client's
// next poll or reconnect is the recovery path.
func (r *MessageRelay) PublishMessage(ctx context.Context, recipientID int64, msg *chat.MessageData) error {
	payload, err := json.Marshal(relayEnvelope{RecipientID: recipientID, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode relay envelope: %w", err)
	}
	if err := r.store.Publish(ctx, relayChannel, payload); err != nil {
		if r.logger != nil {
			r.logger.WithField("recipient_id", recipientID).WithError(err).Error("relay: failed to publish message")
		}
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Run implements ports.RealtimeRelay. It blocks until ctx is cancelled or
// the subscription fails.
func (r *MessageRelay) Run(ctx context.Context) error {
	sub, err := r.store.Subscribe(ctx, relayChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to relay channel: %w", err)
	}
	defer sub.Close()

	if r.logger != nil {
		r.logger.WithField("channel", relayChannel).Info("relay: subscribed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("relay subscription closed")
			}
			r.handle(payload)
		}
	}
}

func (r *MessageRelay) handle(payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("relay: discarding malformed envelope")
		}
		return
	}
	if env.Message == nil {
		return
	}
	// Only the instance holding the recipient's connection delivers; every
	// other instance drops the envelope.
	if delivered := r.sessions.Deliver(env.RecipientID, env.Message); delivered {
		if r.logger != nil {
			r.logger.WithField("recipient_id", env.RecipientID).Debug("relay: delivered to local session")
		}
	}
}

var _ ports.RealtimeRelay = (*MessageRelay)(nil)
