package response

import (
	"time"

	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/services/lobby"
)

// Player represents a game participant in API responses
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Slot   *int   `json:"slot,omitempty"`
	Score  int    `json:"score"`
	Status string `json:"status"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:     string(p.ID),
		Name:   p.Name,
		Role:   string(p.Role),
		Slot:   p.Slot,
		Score:  p.Score,
		Status: string(p.Status),
	}
}

// Game represents a game in API responses
type Game struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Phase      string           `json:"phase"`
	IsPrivate  bool             `json:"is_private"`
	MaxPlayers int              `json:"max_players"`
	PackageID  string           `json:"package_id"`
	Players    []Player         `json:"players"`
	State      *model.GameState `json:"state,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// GameFromModel converts a game to its spectator view
func GameFromModel(g *model.Game) Game {
	view := model.GameStateView(g, model.RoleSpectator)
	players := make([]Player, len(view.Players))
	for i, p := range view.Players {
		players[i] = PlayerFromModel(p)
	}

	var state *model.GameState
	if view.StartedAt != nil {
		state = &view.GameState
	}
	return Game{
		ID:         string(view.ID),
		Title:      view.Title,
		Phase:      string(model.GetGamePhase(view)),
		IsPrivate:  view.IsPrivate,
		MaxPlayers: view.MaxPlayers,
		PackageID:  view.PackageID,
		Players:    players,
		State:      state,
		CreatedAt:  view.CreatedAt,
		StartedAt:  view.StartedAt,
		FinishedAt: view.FinishedAt,
	}
}

// ActionResponse is the response after submitting an action. Queued is set
// when another holder of the game's lock will run it.
type ActionResponse struct {
	ID      string `json:"id"`
	Queued  bool   `json:"queued"`
	Success bool   `json:"success,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// QueuedAction is one pending action
type QueuedAction struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

// Queue describes a game's action backlog
type Queue struct {
	GameID  string         `json:"game_id"`
	Locked  bool           `json:"locked"`
	Length  int64          `json:"length"`
	Pending []QueuedAction `json:"pending"`
}

// QueueFromInfo converts lobby.QueueInfo
func QueueFromInfo(q *lobby.QueueInfo) Queue {
	pending := make([]QueuedAction, len(q.Pending))
	for i, a := range q.Pending {
		pending[i] = QueuedAction{
			ID:       a.ID,
			Type:     string(a.Type),
			PlayerID: string(a.PlayerID),
			QueuedAt: a.Timestamp,
		}
	}
	return Queue{
		GameID:  string(q.GameID),
		Locked:  q.Locked,
		Length:  q.Length,
		Pending: pending,
	}
}

// Health is the response of the health check
type Health struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}
