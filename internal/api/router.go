package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/quizgame/internal/api/handler"
	"github.com/mcoot/quizgame/internal/api/middleware"
	"github.com/mcoot/quizgame/internal/services/lobby"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	LobbyController *lobby.Controller
	Submitter       handler.Submitter
	Redis           handler.Pinger
	// Sockets serves /ws; omitted in tests that only need REST
	Sockets http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.LobbyController, cfg.Submitter)
	healthHandler := handler.NewHealthHandler(cfg.Redis)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	games := api.PathPrefix("/games").Subrouter()
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/{id}/actions", gameHandler.SubmitAction).Methods(http.MethodPost)
	games.HandleFunc("/{id}/queue", gameHandler.Queue).Methods(http.MethodGet)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	if cfg.Sockets != nil {
		r.Handle("/ws", cfg.Sockets).Methods(http.MethodGet)
	}

	return r
}
