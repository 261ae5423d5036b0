package request

import (
	"encoding/json"

	"github.com/mcoot/quizgame/internal/model"
)

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	Title      string         `json:"title"`
	CreatedBy  string         `json:"created_by"`
	Password   string         `json:"password,omitempty"`
	MaxPlayers int            `json:"max_players,omitempty"`
	Package    *model.Package `json:"package"`
}

// SubmitActionRequest is the request body for submitting an action.
// The socket the action originates from is given in the X-Socket-ID header.
type SubmitActionRequest struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"player_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
