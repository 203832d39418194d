package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/messages"
)

// Sender accepts encoded outbound messages without blocking.
type Sender interface {
	Enqueue(data []byte) bool
}

// Broadcaster encodes outbound events. It holds no state of its own: a
// message the sender cannot take is dropped and never retried.
type Broadcaster struct {
	logger *zap.Logger
}

// NewBroadcaster creates a broadcaster logging drops to logger.
func NewBroadcaster(logger *zap.Logger) Broadcaster {
	return Broadcaster{logger: logger}
}

// Send wraps payload in the outbound envelope and enqueues it. It reports
// whether the message was queued.
func (b Broadcaster) Send(to Sender, event string, payload interface{}) bool {
	data, err := json.Marshal(messages.OutboundMessage{Event: event, Payload: payload})
	if err != nil {
		b.logger.Error("Error marshaling JSON", zap.String("event", event), zap.Error(err))
		return false
	}
	if !to.Enqueue(data) {
		b.logger.Debug("outbound message dropped", zap.String("event", event))
		return false
	}
	return true
}

// State pushes a session snapshot.
func (b Broadcaster) State(to Sender, snap game.Snapshot) bool {
	return b.Send(to, messages.EventSoloGameState, messages.NewSoloGameState(snap))
}

// Error reports a failed request to the client.
func (b Broadcaster) Error(to Sender, msg string) bool {
	return b.Send(to, messages.EventError, messages.ErrorPayload{Message: msg})
}
