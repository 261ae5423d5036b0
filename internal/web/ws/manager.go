package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quizgame/internal/model"
)

const cleanupInterval = time.Minute

// SessionStore keeps the socket session hashes read by the executor
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.SocketSession) error
	TouchSession(ctx context.Context, socketID string) (bool, error)
	DeleteSession(ctx context.Context, socketID string) error
}

// BroadcastSource delivers broadcasts published by every server process
type BroadcastSource interface {
	SubscribeBroadcasts(ctx context.Context) *redis.PubSub
}

// HubManager tracks the sockets connected to this process and the game
// rooms they are in
type HubManager struct {
	hubs     map[model.GameID]*Hub
	sockets  map[string]*Client
	mu       sync.RWMutex
	sessions SessionStore
	logger   *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(sessions SessionStore, logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:     make(map[model.GameID]*Hub),
		sockets:  make(map[string]*Client),
		sessions: sessions,
		logger:   logger.With(slog.String("component", "ws")),
	}
}

// Connect registers a socket and writes its session
func (m *HubManager) Connect(ctx context.Context, client *Client) error {
	if err := m.sessions.SaveSession(ctx, client.session()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.sockets[client.id] = client
	m.mu.Unlock()
	m.logger.Info("socket connected",
		slog.String("socket_id", client.id),
		slog.String("user_id", string(client.userID)))
	return nil
}

// Touch keeps the session of a live socket from expiring, writing it again
// if it already has
func (m *HubManager) Touch(ctx context.Context, client *Client) {
	ok, err := m.sessions.TouchSession(ctx, client.id)
	if err == nil && !ok {
		err = m.sessions.SaveSession(ctx, client.session())
	}
	if err != nil {
		m.logger.Warn("failed to refresh session",
			slog.String("socket_id", client.id),
			slog.String("error", err.Error()))
	}
}

// Disconnect removes a socket from its room and deletes its session
func (m *HubManager) Disconnect(ctx context.Context, client *Client) {
	m.mu.Lock()
	delete(m.sockets, client.id)
	if gameID, _ := client.Room(); gameID != "" {
		if hub, ok := m.hubs[gameID]; ok {
			hub.Unregister(client)
		}
	}
	m.mu.Unlock()
	client.close()

	if err := m.sessions.DeleteSession(ctx, client.id); err != nil {
		m.logger.Error("failed to delete session",
			slog.String("socket_id", client.id),
			slog.String("error", err.Error()))
	}
	m.logger.Info("socket disconnected",
		slog.String("socket_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// Socket returns a socket connected to this process, or nil
func (m *HubManager) Socket(socketID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sockets[socketID]
}

// GetHub returns the hub for a game, or nil if it doesn't exist
func (m *HubManager) GetHub(gameID model.GameID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[gameID]
}

// join moves a socket into a game room and records the game in its session
func (m *HubManager) join(ctx context.Context, client *Client, gameID model.GameID, role model.PlayerRole) error {
	m.mu.Lock()
	if prev, _ := client.Room(); prev != "" && prev != gameID {
		if hub, ok := m.hubs[prev]; ok {
			hub.Unregister(client)
		}
	}
	hub, ok := m.hubs[gameID]
	if !ok {
		hub = NewHub(gameID, m.logger)
		m.hubs[gameID] = hub
		go hub.Run()
	}
	client.setRoom(gameID, role)
	hub.Register(client)
	m.mu.Unlock()

	return m.sessions.SaveSession(ctx, client.session())
}

// leave takes a socket out of its room
func (m *HubManager) leave(ctx context.Context, client *Client) error {
	m.mu.Lock()
	if gameID, _ := client.Room(); gameID != "" {
		if hub, ok := m.hubs[gameID]; ok {
			hub.Unregister(client)
		}
	}
	client.setRoom("", "")
	m.mu.Unlock()

	return m.sessions.SaveSession(ctx, client.session())
}

// Deliver hands a broadcast to the sockets of this process it targets.
// Joining and leaving a game move the socket between rooms before the
// event itself is sent.
func (m *HubManager) Deliver(ctx context.Context, b model.Broadcast) {
	switch b.Target {
	case model.TargetSocket:
		client := m.Socket(b.SocketID)
		if client == nil {
			return
		}
		m.track(ctx, client, b)
		_, role := client.Room()
		message, err := encode(b.Event, b.PayloadFor(role))
		if err != nil {
			m.logger.Error("failed to encode message",
				slog.String("event", b.Event),
				slog.String("error", err.Error()))
			return
		}
		if !client.enqueue(message) {
			m.logger.Warn("message dropped - client buffer full", slog.String("socket_id", client.id))
		}
	case model.TargetGame:
		if hub := m.GetHub(b.GameID); hub != nil {
			hub.Broadcast(b)
		}
	default:
		m.logger.Warn("broadcast without target", slog.String("event", b.Event))
	}
}

func (m *HubManager) track(ctx context.Context, client *Client, b model.Broadcast) {
	var err error
	switch b.Event {
	case model.EventGameJoined:
		var joined model.GameJoinedEvent
		joined, err = decodeData[model.GameJoinedEvent](b.Data)
		if err == nil {
			err = m.join(ctx, client, joined.GameID, joined.Role)
		}
	case model.EventGameLeft:
		err = m.leave(ctx, client)
	}
	if err != nil {
		m.logger.Error("failed to update socket room",
			slog.String("socket_id", client.id),
			slog.String("event", b.Event),
			slog.String("error", err.Error()))
	}
}

// Listen delivers broadcasts published by any process until ctx is cancelled
func (m *HubManager) Listen(ctx context.Context, source BroadcastSource) error {
	pubsub := source.SubscribeBroadcasts(ctx)
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to broadcasts: %w", err)
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			m.closeHubs()
			return nil
		case <-ticker.C:
			m.CleanupEmptyHubs()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var b model.Broadcast
			if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
				m.logger.Error("failed to decode broadcast", slog.String("error", err.Error()))
				continue
			}
			m.Deliver(ctx, b)
		}
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("empty game hubs cleaned up", slog.Int("removed", removedCount))
	}
}

func (m *HubManager) closeHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
	// closing the send queue makes writePump say goodbye and drop the connection
	for _, c := range m.sockets {
		c.close()
	}
}
