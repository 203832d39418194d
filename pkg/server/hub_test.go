package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/messages"
)

func TestHubGreetsAndTearsDownSessions(t *testing.T) {
	svc, _, _ := newServices(t, twoLevelRun())
	hub := NewHub(svc.Publisher, zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	conn := NewConnection(nil, hub, svc)
	hub.Register(conn)

	var out struct {
		Event   string                    `json:"event"`
		Payload messages.ConnectedPayload `json:"payload"`
	}
	select {
	case data := <-conn.send:
		require.NoError(t, json.Unmarshal(data, &out))
	case <-time.After(time.Second):
		t.Fatal("no greeting")
	}
	assert.Equal(t, messages.EventConnected, out.Event)
	assert.Equal(t, conn.ID.String(), out.Payload.ConnectionID)
	assert.Equal(t, 1, hub.Count())

	session, err := svc.Manager.CreateSession(game.CreateSessionParams{ConnectionID: conn.ID, Settings: twoLevelRun()}, nil)
	require.NoError(t, err)

	hub.Unregister(conn)
	assert.Eventually(t, session.Terminated, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.Count())
	assert.Equal(t, 0, svc.Manager.Count())

	select {
	case <-conn.Done():
	default:
		t.Fatal("connection left open")
	}
}

func TestHubShutdownClosesConnections(t *testing.T) {
	svc, _, _ := newServices(t, twoLevelRun())
	hub := NewHub(svc.Publisher, zap.NewNop())
	go hub.Run()

	conns := []*Connection{NewConnection(nil, hub, svc), NewConnection(nil, hub, svc)}
	for _, c := range conns {
		hub.Register(c)
	}
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, time.Millisecond)

	hub.Shutdown()
	hub.Shutdown()
	for _, c := range conns {
		<-c.Done()
	}
	assert.Equal(t, 0, hub.Count())

	late := NewConnection(nil, hub, svc)
	hub.Register(late)
	<-late.Done()
}
