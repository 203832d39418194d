package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", app.handleHealth)
	mux.HandleFunc("GET /ws", app.handleWebSocket)
	mux.HandleFunc("GET /leaderboard", app.handleLeaderboard)
	mux.HandleFunc("GET /best-splits", app.handleBestSplits)

	return app.logRequests(app.recoverPanic(mux))
}
