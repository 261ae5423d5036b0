package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/quizgame/internal/api/apierr"
	"github.com/mcoot/quizgame/internal/api/request"
	"github.com/mcoot/quizgame/internal/api/response"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/services/lobby"
)

// SocketIDHeader names the socket an action submitted over HTTP belongs to
const SocketIDHeader = "X-Socket-ID"

// Submitter runs actions through the per-game executor
type Submitter interface {
	SubmitAction(ctx context.Context, action *model.GameAction) (*model.ActionResult, error)
}

// GameHandler handles game-related endpoints
type GameHandler struct {
	lobbyController *lobby.Controller
	submitter       Submitter
}

// NewGameHandler creates a new game handler
func NewGameHandler(lobbyController *lobby.Controller, submitter Submitter) *GameHandler {
	return &GameHandler{
		lobbyController: lobbyController,
		submitter:       submitter,
	}
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}
	if req.Title == "" || req.CreatedBy == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("title and created_by are required"))
		return
	}

	game, err := h.lobbyController.CreateGame(r.Context(), lobby.CreateGameParams{
		Title:      req.Title,
		CreatedBy:  model.PlayerID(req.CreatedBy),
		Password:   req.Password,
		MaxPlayers: req.MaxPlayers,
		Package:    req.Package,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameFromModel(game))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	info, err := h.lobbyController.GetGame(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(info.Game))
}

// SubmitAction handles POST /api/v1/games/{id}/actions
func (h *GameHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	var req request.SubmitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}
	if req.Type == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("type is required"))
		return
	}
	if model.IsTimeoutAction(model.ActionType(req.Type)) {
		apierr.WriteError(w, model.ErrReservedAction)
		return
	}

	action := &model.GameAction{
		Type:     model.ActionType(req.Type),
		GameID:   id,
		PlayerID: model.PlayerID(req.PlayerID),
		SocketID: r.Header.Get(SocketIDHeader),
		Payload:  req.Payload,
	}
	result, err := h.submitter.SubmitAction(r.Context(), action)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	if result == nil {
		response.JSON(w, http.StatusAccepted, response.ActionResponse{ID: action.ID, Queued: true})
		return
	}
	response.JSON(w, http.StatusOK, response.ActionResponse{
		ID:      action.ID,
		Success: result.Success,
		Data:    result.Data,
	})
}

// Queue handles GET /api/v1/games/{id}/queue
func (h *GameHandler) Queue(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	queue, err := h.lobbyController.Queue(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.QueueFromInfo(queue))
}
