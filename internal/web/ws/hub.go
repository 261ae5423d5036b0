package ws

import (
	"log/slog"
	"sync"

	"github.com/mcoot/quizgame/internal/model"
)

// Hub delivers the broadcasts of a single game to the sockets in its room
type Hub struct {
	gameID  model.GameID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	broadcast chan model.Broadcast
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a new Hub for a game
func NewHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:    gameID,
		clients:   make(map[*Client]bool),
		logger:    logger.With(slog.String("game_id", string(gameID))),
		broadcast: make(chan model.Broadcast, 256),
		done:      make(chan struct{}),
	}
}

// Run starts the hub's delivery loop
func (h *Hub) Run() {
	h.logger.Debug("game hub started")
	for {
		select {
		case b := <-h.broadcast:
			h.deliver(b)
		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			clear(h.clients)
			h.mu.Unlock()
			h.logger.Debug("game hub stopped", slog.Int("detached_clients", clientCount))
			return
		}
	}
}

// deliver sends one broadcast to every client, encoding it once per role
func (h *Hub) deliver(b model.Broadcast) {
	encoded := make(map[model.PlayerRole][]byte)

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for client := range h.clients {
		_, role := client.Room()
		message, ok := encoded[role]
		if !ok {
			var err error
			message, err = encode(b.Event, b.PayloadFor(role))
			if err != nil {
				h.logger.Error("failed to encode broadcast",
					slog.String("event", b.Event),
					slog.String("error", err.Error()))
				return
			}
			encoded[role] = message
		}
		if !client.enqueue(message) {
			dropped++
			h.logger.Warn("message dropped - client buffer full",
				slog.String("socket_id", client.id))
		}
	}
	if dropped > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.String("event", b.Event),
			slog.Int("dropped", dropped))
	}
}

// Register adds a client to the room
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the room
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// Broadcast queues a broadcast for the room
func (h *Hub) Broadcast(b model.Broadcast) {
	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("broadcast dropped - hub buffer full", slog.String("event", b.Event))
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of sockets in the room
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
