package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/quizgame/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between pings, shorter than pongWait
	pingPeriod = pongWait * 9 / 10

	maxMessageSize = 64 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one websocket connection
type Client struct {
	id          string
	userID      model.PlayerID
	conn        *websocket.Conn
	connectedAt time.Time

	mu     sync.RWMutex
	send   chan []byte
	closed bool
	gameID model.GameID
	role   model.PlayerRole
}

// NewClient creates a client for an upgraded connection. conn may be nil
// for clients that are only used to receive messages.
func NewClient(id string, userID model.PlayerID, conn *websocket.Conn, connectedAt time.Time) *Client {
	return &Client{
		id:          id,
		userID:      userID,
		conn:        conn,
		connectedAt: connectedAt,
		send:        make(chan []byte, sendBufferSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() model.PlayerID {
	return c.userID
}

// Room returns the game the client joined and its role there
func (c *Client) Room() (model.GameID, model.PlayerRole) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID, c.role
}

func (c *Client) setRoom(gameID model.GameID, role model.PlayerRole) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
	c.role = role
}

func (c *Client) session() *model.SocketSession {
	gameID, role := c.Room()
	return &model.SocketSession{
		SocketID:    c.id,
		UserID:      c.userID,
		GameID:      gameID,
		Role:        role,
		ConnectedAt: c.connectedAt,
	}
}

// enqueue queues a message without blocking. It returns false if the
// buffer is full or the client is gone.
func (c *Client) enqueue(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Messages returns the channel of queued outgoing messages
func (c *Client) Messages() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump sends queued messages and keepalive pings until the send
// channel is closed or a write fails
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
