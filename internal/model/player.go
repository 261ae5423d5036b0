package model

import "time"

// PlayerID uniquely identifies a user across the system
type PlayerID string

// PlayerRole determines what a participant may do in a game
type PlayerRole string

const (
	RolePlayer    PlayerRole = "PLAYER"
	RoleShowman   PlayerRole = "SHOWMAN"
	RoleSpectator PlayerRole = "SPECTATOR"
)

// PlayerStatus tracks the participant's connection to the game
type PlayerStatus string

const (
	PlayerStatusInGame       PlayerStatus = "IN_GAME"
	PlayerStatusDisconnected PlayerStatus = "DISCONNECTED"
	PlayerStatusLeft         PlayerStatus = "LEFT" // logically removed, kept for statistics
)

// Restrictions are moderation flags set by the showman
type Restrictions struct {
	Muted      bool `json:"muted"`
	Restricted bool `json:"restricted"` // may watch but not act
	Banned     bool `json:"banned"`
}

// Player is a participant of exactly one game
type Player struct {
	ID           PlayerID     `json:"id"`
	Name         string       `json:"name"`
	Role         PlayerRole   `json:"role"`
	Slot         *int         `json:"slot,omitempty"` // nil for showman and spectators
	Score        int          `json:"score"`
	Status       PlayerStatus `json:"status"`
	Restrictions Restrictions `json:"restrictions"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// IsActive returns true for a connected, unrestricted participant
func (p *Player) IsActive() bool {
	return p.Status == PlayerStatusInGame && !p.Restrictions.Banned && !p.Restrictions.Restricted
}

// IsActivePlayer returns true if the participant competes and can currently act
func (p *Player) IsActivePlayer() bool {
	return p.Role == RolePlayer && p.IsActive()
}

// SocketSession is the per-connection data written when a socket connects
type SocketSession struct {
	SocketID    string     `json:"socketId"`
	UserID      PlayerID   `json:"userId"`
	GameID      GameID     `json:"gameId,omitempty"`
	Role        PlayerRole `json:"role,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt"`
}
