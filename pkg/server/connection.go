package server

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/events"
	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/jobs"
	"github.com/tecu23/maze-server/pkg/messages"
	"github.com/tecu23/maze-server/pkg/repository"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Services are the dependencies shared by every connection.
type Services struct {
	Manager   *game.Manager
	Store     repository.Store
	Jobs      *jobs.Pool
	Publisher *events.Publisher
	Clock     clock.Clock

	// Settings are used for runs started without a custom configuration.
	Settings        game.Settings
	LeaderboardSize int
	TickInterval    time.Duration

	// NewRand seeds the maze generator of each new session. Nil uses a
	// random seed.
	NewRand func() *rand.Rand

	Logger *zap.Logger
}

// Connection owns one websocket and, through its Serve loop, the solo
// session played over it. Only the Serve goroutine touches the session.
type Connection struct {
	ID       uuid.UUID
	PlayerID uuid.UUID

	ws  *websocket.Conn // The underlying Websocket connection
	hub *Hub

	send    chan []byte                  // Buffered channel of outbound messages.
	mailbox chan messages.InboundMessage // Decoded inbound messages, in arrival order.
	results chan func()                  // Completions of background jobs.
	done    chan struct{}
	once    sync.Once

	svc         *Services
	broadcaster Broadcaster

	// Owned by the Serve goroutine.
	session      *game.Session
	finishedSent bool
	saveInFlight bool
	savedRunID   uuid.UUID

	logger *zap.Logger
}

// NewConnection creates a connection for an upgraded websocket
func NewConnection(ws *websocket.Conn, hub *Hub, svc *Services) *Connection {
	id := uuid.New()
	logger := svc.Logger.With(zap.String("connection_id", id.String()))
	return &Connection{
		ID:          id,
		PlayerID:    uuid.New(),
		ws:          ws,
		hub:         hub,
		send:        make(chan []byte, 256), // buffered for outgoing messages
		mailbox:     make(chan messages.InboundMessage, 64),
		results:     make(chan func()),
		done:        make(chan struct{}),
		svc:         svc,
		broadcaster: NewBroadcaster(logger),
		logger:      logger,
	}
}

// Done is closed once the connection is shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// Enqueue queues an encoded message for the write pump. It never blocks and
// reports false when the message was dropped.
func (c *Connection) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump handles inbound messages from the client
func (c *Connection) ReadPump() {
	defer func() {
		c.Close()
		if c.hub != nil {
			c.hub.Unregister(c)
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read error", zap.Error(err))
			}
			return
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		var inbound messages.InboundMessage
		if err := json.Unmarshal(msg, &inbound); err != nil {
			c.logger.Debug("Failed to parse inbound JSON", zap.Error(err))
			c.broadcaster.Error(c, "invalid message")
			continue
		}

		select {
		case c.mailbox <- inbound:
		case <-c.done:
			return
		}
	}
}

// WritePump handles outbound messages to the client
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// Serve is the connection's single writer: it applies inbound messages,
// background job results and timer ticks one at a time.
func (c *Connection) Serve() {
	interval := c.svc.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.logger.Debug("connection actor stopped")
			return
		case msg := <-c.mailbox:
			c.handleInbound(msg)
		case apply := <-c.results:
			apply()
		case <-ticker.C:
			c.tick()
		}
	}
}

// post hands fn to the Serve goroutine. It is dropped if the connection
// closes first.
func (c *Connection) post(fn func()) {
	select {
	case c.results <- fn:
	case <-c.done:
	}
}
