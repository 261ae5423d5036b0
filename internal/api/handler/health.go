package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/quizgame/internal/api/response"
)

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the server can reach Redis
type HealthHandler struct {
	redis Pinger
}

func NewHealthHandler(redis Pinger) *HealthHandler {
	return &HealthHandler{redis: redis}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := h.redis.Ping(r.Context()); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "degraded", Redis: err.Error()})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Redis: "ok"})
}
