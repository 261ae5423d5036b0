package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
)

// Submitter runs actions through the per-game executor
type Submitter interface {
	SubmitAction(ctx context.Context, action *model.GameAction) (*model.ActionResult, error)
}

// Handler upgrades /ws requests and turns client messages into game actions
type Handler struct {
	manager   *HubManager
	submitter Submitter
	clock     clock.Clock
	random    random.Random
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(manager *HubManager, submitter Submitter, clock clock.Clock, random random.Random, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		submitter: submitter,
		clock:     clock,
		random:    random,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws-handler")),
	}
}

// ServeHTTP serves /ws?userId={id}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := model.PlayerID(r.URL.Query().Get("userId"))
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// the connection outlives the upgrade request
	ctx := context.WithoutCancel(r.Context())
	client := NewClient(h.random.UUID(), userID, conn, h.clock.Now())
	if err := h.manager.Connect(ctx, client); err != nil {
		h.logger.Error("failed to register socket", slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}

	h.reply(client, EventConnected, connectedEvent{SocketID: client.id, UserID: userID})
	go client.writePump()
	h.readPump(ctx, client)
}

// readPump submits client messages until the connection closes, then
// tells the game the player is gone
func (h *Handler) readPump(ctx context.Context, client *Client) {
	defer h.disconnect(ctx, client)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		h.manager.Touch(ctx, client)
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("socket closed unexpectedly",
					slog.String("socket_id", client.id),
					slog.String("error", err.Error()))
			}
			return
		}
		h.manager.Touch(ctx, client)

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" || msg.GameID == "" {
			h.reply(client, model.EventError, model.ErrorEvent{Code: "INVALID_MESSAGE", Message: "malformed message"})
			continue
		}
		if model.IsTimeoutAction(msg.Type) {
			h.reply(client, model.EventError, model.ErrorEvent{
				Code:    model.ErrReservedAction.Code,
				Message: model.ErrReservedAction.Message,
				Action:  msg.Type,
			})
			continue
		}
		h.submit(ctx, client, msg)
	}
}

func (h *Handler) submit(ctx context.Context, client *Client, msg inbound) {
	action := &model.GameAction{
		ID:        h.random.UUID(),
		Type:      msg.Type,
		GameID:    msg.GameID,
		PlayerID:  client.userID,
		SocketID:  client.id,
		Timestamp: h.clock.Now(),
		Payload:   msg.Payload,
	}
	if _, err := h.submitter.SubmitAction(ctx, action); err != nil {
		event := model.ErrorEvent{
			Code:     "INTERNAL_ERROR",
			Message:  "internal server error",
			ActionID: action.ID,
			Action:   action.Type,
		}
		if ce, ok := model.AsClientError(err); ok {
			event.Code = ce.Code
			event.Message = ce.Message
		} else {
			h.logger.Error("failed to submit action",
				slog.String("socket_id", client.id),
				slog.String("action_type", string(action.Type)),
				slog.String("error", err.Error()))
		}
		h.reply(client, model.EventError, event)
	}
}

// disconnect marks the player disconnected in the game its socket was in
func (h *Handler) disconnect(ctx context.Context, client *Client) {
	gameID, _ := client.Room()
	if gameID != "" {
		action := &model.GameAction{
			ID:        h.random.UUID(),
			Type:      model.ActionDisconnect,
			GameID:    gameID,
			PlayerID:  client.userID,
			Timestamp: h.clock.Now(),
		}
		if _, err := h.submitter.SubmitAction(ctx, action); err != nil {
			h.logger.Error("failed to submit disconnect",
				slog.String("socket_id", client.id),
				slog.String("game_id", string(gameID)),
				slog.String("error", err.Error()))
		}
	}
	h.manager.Disconnect(ctx, client)
}

func (h *Handler) reply(client *Client, event string, data any) {
	message, err := encode(event, data)
	if err != nil {
		h.logger.Error("failed to encode reply", slog.String("error", err.Error()))
		return
	}
	client.enqueue(message)
}
