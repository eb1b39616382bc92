package ws

import (
	"encoding/json"
	"sync"

	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Hub tracks the live websocket connections held by this instance. A user
// may hold several connections (tabs, devices); delivery fans out to all of
// them. The hub is the ports.SessionRegistry consulted by presence tracking
// and the realtime relay.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Client]struct{}
	logger   *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		sessions: make(map[int64]map[*Client]struct{}),
		logger:   logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.userID] == nil {
		h.sessions[c.userID] = make(map[*Client]struct{})
	}
	h.sessions[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.sessions[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.sessions, c.userID)
		}
	}
}

// LocalSessionCount implements ports.SessionRegistry.
func (h *Hub) LocalSessionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Deliver implements ports.SessionRegistry. Sends are non-blocking: a
// connection whose send buffer is full misses the message rather than
// stalling delivery to everyone else.
func (h *Hub) Deliver(userID int64, msg *chat.MessageData) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Error("failed to encode message for delivery")
		}
		return false
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.sessions[userID]))
	for c := range h.sessions[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return false
	}
	for _, c := range conns {
		select {
		case c.send <- payload:
		default:
			if h.logger != nil {
				h.logger.WithField("user_id", userID).Warn("send buffer full, dropping message")
			}
		}
	}
	return true
}

var _ ports.SessionRegistry = (*Hub)(nil)
