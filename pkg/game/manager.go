// Package game implements the authoritative solo run: the session state
// machine, split recording, the shop and the registry of live sessions.
package game

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/events"
)

// Manager keeps track of every live solo session
type Manager struct {
	sessions     map[uuid.UUID]*Session
	byConnection map[uuid.UUID]uuid.UUID
	mu           sync.RWMutex

	clock     clock.Clock
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewManager creates a new manager with in-memory storage
func NewManager(clk clock.Clock, publisher *events.Publisher, logger *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.System
	}
	manager := &Manager{
		sessions:     make(map[uuid.UUID]*Session),
		byConnection: make(map[uuid.UUID]uuid.UUID),
		clock:        clk,
		publisher:    publisher,
		logger:       logger,
	}

	// Set up event handlers
	manager.setupEventHandlers()

	return manager
}

// setupEventHandlers sets up event handlers for the game manager
func (m *Manager) setupEventHandlers() {
	// Handle connection closed events
	m.publisher.Subscribe(events.EventConnectionClosed, func(event events.Event) {
		payload, ok := event.Payload.(map[string]string)
		if !ok {
			m.logger.Error("Invalid connection closed payload type")
			return
		}

		connectionID, err := uuid.Parse(payload["connection_id"])
		if err != nil {
			m.logger.Error("Invalid connection ID in connection closed event", zap.Error(err))
			return
		}

		m.TerminateByConnection(connectionID)
	})
}

// CreateSession creates a new solo session and registers it. A connection
// owns at most one session; an existing one is terminated first.
func (m *Manager) CreateSession(params CreateSessionParams, rng *rand.Rand) (*Session, error) {
	session, err := NewSession(params, m.clock, rng, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	var previous *Session
	if params.ConnectionID != uuid.Nil {
		if prevID, ok := m.byConnection[params.ConnectionID]; ok {
			previous = m.sessions[prevID]
			delete(m.sessions, prevID)
		}
		m.byConnection[params.ConnectionID] = session.ID
	}
	m.sessions[session.ID] = session
	m.mu.Unlock()

	if previous != nil {
		m.terminate(previous)
	}

	m.logger.Info("created new solo session",
		zap.String("session_id", session.ID.String()),
		zap.String("connection_id", params.ConnectionID.String()),
		zap.Int("max_level", session.settings.MaxLevel),
		zap.Bool("custom", params.Custom),
	)

	m.publisher.Publish(events.Event{
		Type:      events.EventSessionCreated,
		SessionID: session.ID.String(),
		Payload: map[string]string{
			"connection_id": params.ConnectionID.String(),
			"player_id":     session.PlayerID().String(),
		},
	})

	return session, nil
}

// GetSession returns a session by ID
func (m *Manager) GetSession(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// SessionForConnection returns the session owned by a connection.
func (m *Manager) SessionForConnection(connectionID uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byConnection[connectionID]
	if !ok {
		return nil, false
	}
	session, ok := m.sessions[id]
	return session, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RemoveSession terminates and forgets a session.
func (m *Manager) RemoveSession(id uuid.UUID) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		if m.byConnection[session.ConnectionID] == id {
			delete(m.byConnection, session.ConnectionID)
		}
	}
	m.mu.Unlock()

	if ok {
		m.terminate(session)
	}
}

// TerminateByConnection removes the session owned by a closed connection.
func (m *Manager) TerminateByConnection(connectionID uuid.UUID) {
	m.mu.RLock()
	id, ok := m.byConnection[connectionID]
	m.mu.RUnlock()

	m.logger.Info("Terminating sessions for connection",
		zap.String("connection_id", connectionID.String()),
		zap.Bool("had_session", ok),
	)
	if ok {
		m.RemoveSession(id)
	}
}

func (m *Manager) terminate(session *Session) {
	session.Terminate()

	m.logger.Info("removed solo session", zap.String("session_id", session.ID.String()))

	m.publisher.Publish(events.Event{
		Type:      events.EventSessionTerminated,
		SessionID: session.ID.String(),
		Payload: map[string]string{
			"session_id": session.ID.String(),
		},
	})
}
