package server

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/events"
	"github.com/tecu23/maze-server/pkg/messages"
)

// Hub keeps track of all active connections and is responsible for
// registering and unregistering them. Closing a connection is announced on
// the event publisher so its session can be torn down.
type Hub struct {
	mu          sync.RWMutex              // Mutex to protect direct access to the connections map.
	connections map[uuid.UUID]*Connection // Registered connections

	register   chan *Connection // Incoming registration
	unregister chan *Connection // Incoming unregistration
	quit       chan struct{}
	quitOnce   sync.Once

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewHub creates a new hub
func NewHub(publisher *events.Publisher, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		quit:        make(chan struct{}),
		publisher:   publisher,
		logger:      logger,
	}
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case <-h.quit:
			return
		}
	}
}

// Register adds a connection and greets it.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
		conn.Close()
	}
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("New connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", count),
	)

	conn.broadcaster.Send(conn, messages.EventConnected, messages.ConnectedPayload{
		ConnectionID: conn.ID.String(),
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn.ID]
	delete(h.connections, conn.ID)
	count := len(h.connections)
	h.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()

	h.logger.Info("Connection unregistered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", count),
	)

	// Publish connection closed event
	h.publisher.Publish(events.Event{
		Type: events.EventConnectionClosed,
		Payload: map[string]string{
			"connection_id": conn.ID.String(),
		},
	})
}

// Shutdown stops the hub and closes every connection.
func (h *Hub) Shutdown() {
	h.quitOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		conns := make([]*Connection, 0, len(h.connections))
		for _, conn := range h.connections {
			conns = append(conns, conn)
		}
		h.connections = make(map[uuid.UUID]*Connection)
		h.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
			h.publisher.Publish(events.Event{
				Type:    events.EventConnectionClosed,
				Payload: map[string]string{"connection_id": conn.ID.String()},
			})
		}
		h.logger.Info("Hub shut down", zap.Int("closed", len(conns)))
	})
}
