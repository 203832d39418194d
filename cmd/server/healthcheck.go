package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/messages"
)

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(app.StartTime).String(),
		"connections": app.Hub.Count(),
		"sessions":    app.Services.Manager.Count(),
	})
}

// handleLeaderboard handles GET /leaderboard?limit=N
func (app *application) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := app.Config.LeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			app.writeJSON(w, http.StatusBadRequest, messages.ErrorPayload{Message: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	runs, err := app.Store.TopRuns(r.Context(), limit)
	if err != nil {
		app.Logger.Error("leaderboard query failed", zap.Error(err))
		app.writeJSON(w, http.StatusInternalServerError, messages.ErrorPayload{Message: "could not load leaderboard"})
		return
	}
	app.writeJSON(w, http.StatusOK, messages.NewLeaderboard(runs))
}

// handleBestSplits handles GET /best-splits
func (app *application) handleBestSplits(w http.ResponseWriter, r *http.Request) {
	best, err := app.Store.BestSplits(r.Context())
	if err != nil {
		app.Logger.Error("best splits query failed", zap.Error(err))
		app.writeJSON(w, http.StatusInternalServerError, messages.ErrorPayload{Message: "could not load best splits"})
		return
	}
	app.writeJSON(w, http.StatusOK, messages.NewBestSplits(best))
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Error("write response failed", zap.Error(err))
	}
}
