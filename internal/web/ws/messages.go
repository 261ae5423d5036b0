package ws

import (
	"encoding/json"

	"github.com/mcoot/quizgame/internal/model"
)

// Events only the connection layer sends
const (
	EventConnected = "connected"
)

// inbound is a message sent by a client
type inbound struct {
	Type    model.ActionType `json:"type"`
	GameID  model.GameID     `json:"gameId"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// outbound is the envelope of every message sent to a client
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type connectedEvent struct {
	SocketID string         `json:"socketId"`
	UserID   model.PlayerID `json:"userId"`
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// decodeData converts broadcast data into T. Data that came through pub/sub
// is a generic JSON value, data from this process is already typed.
func decodeData[T any](data any) (T, error) {
	var v T
	if typed, ok := data.(T); ok {
		return typed, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(raw, &v)
	return v, err
}
