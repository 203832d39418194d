package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/config"
	"github.com/tecu23/maze-server/pkg/events"
	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/jobs"
	"github.com/tecu23/maze-server/pkg/messages"
	"github.com/tecu23/maze-server/pkg/repository"
	"github.com/tecu23/maze-server/pkg/repository/repositorytest"
	"github.com/tecu23/maze-server/pkg/server"
)

func newTestApp(t *testing.T, origin string) (*application, *httptest.Server) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.FrontendOrigin = origin

	logger := zap.NewNop()
	publisher := events.NewPublisher()
	store := repository.NewInMemoryRepository(logger)
	pool := jobs.NewPool(jobs.Options{Workers: 1}, logger)
	hub := server.NewHub(publisher, logger)
	go hub.Run()

	app := &application{
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Hub:       hub,
		Store:     store,
		Jobs:      pool,
		Services: &server.Services{
			Manager:         game.NewManager(clock.System, publisher, logger),
			Store:           store,
			Jobs:            pool,
			Publisher:       publisher,
			Clock:           clock.System,
			Settings:        cfg.SoloSettings(),
			LeaderboardSize: cfg.LeaderboardSize,
			TickInterval:    time.Hour,
			Logger:          logger,
		},
		Upgrader:  newUpgrader(origin),
		StartTime: time.Now(),
	}

	ts := httptest.NewServer(app.routes())
	t.Cleanup(func() {
		ts.Close()
		app.Shutdown(context.Background())
	})
	return app, ts
}

func TestHealth(t *testing.T) {
	_, ts := newTestApp(t, "")

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestLeaderboardEndpoints(t *testing.T) {
	app, ts := newTestApp(t, "")
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, app.Store.SaveRun(ctx, repositorytest.NewRun("#ff4a4a", now, 4, 4)))
	require.NoError(t, app.Store.SaveRun(ctx, repositorytest.NewRun("#4a9eff", now, 3, 5.5)))

	res, err := http.Get(ts.URL + "/leaderboard?limit=1")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var board messages.SoloLeaderboardPayload
	require.NoError(t, json.NewDecoder(res.Body).Decode(&board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "#ff4a4a", board.Entries[0].PlayerSkin)

	res, err = http.Get(ts.URL + "/best-splits")
	require.NoError(t, err)
	defer res.Body.Close()

	var best messages.SoloBestSplitsPayload
	require.NoError(t, json.NewDecoder(res.Body).Decode(&best))
	assert.Equal(t, []messages.BestSplitEntry{
		{Level: 1, BestSplitTime: 3, PlayerSkin: "#4a9eff"},
		{Level: 2, BestSplitTime: 4, PlayerSkin: "#ff4a4a"},
	}, best.Splits)

	res, err = http.Get(ts.URL + "/leaderboard?limit=abc")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestWebSocketSession(t *testing.T) {
	app, ts := newTestApp(t, "")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var out messages.OutboundMessage
	require.NoError(t, ws.ReadJSON(&out))
	assert.Equal(t, messages.EventConnected, out.Event)

	require.NoError(t, ws.WriteJSON(map[string]interface{}{
		"type":    messages.TypeSelectGameMode,
		"payload": map[string]string{"mode": game.ModeSolo},
	}))

	var state struct {
		Event   string                        `json:"event"`
		Payload messages.SoloGameStatePayload `json:"payload"`
	}
	require.NoError(t, ws.ReadJSON(&state))
	assert.Equal(t, messages.EventSoloGameState, state.Event)
	assert.Equal(t, 1, state.Payload.CurrentLevel)
	assert.True(t, state.Payload.Countdown.Active)
	assert.Equal(t, 1, app.Services.Manager.Count())

	// Closing the socket tears the session down.
	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return app.Services.Manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestApp(t, "https://maze.example")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}
