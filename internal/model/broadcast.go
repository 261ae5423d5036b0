package model

// BroadcastTarget selects who receives a broadcast
type BroadcastTarget string

const (
	TargetSocket BroadcastTarget = "SOCKET"
	TargetGame   BroadcastTarget = "GAME"
)

// Broadcast events
const (
	EventError                 = "error"
	EventGameJoined            = "game-joined" // tells the connection layer to add the socket to the game room
	EventGameLeft              = "game-left"
	EventGameState             = "game-state"
	EventPlayerJoined          = "player-joined"
	EventPlayerLeft            = "player-left"
	EventPlayerDisconnected    = "player-disconnected"
	EventPlayerRestricted      = "player-restricted"
	EventGameStarted           = "game-started"
	EventGamePaused            = "game-paused"
	EventGameUnpaused          = "game-unpaused"
	EventQuestionPicked        = "question-picked"
	EventMediaDownloaded       = "media-downloaded"
	EventQuestionShown         = "question-shown"
	EventAnswerRequested       = "answer-requested"
	EventAnswerResult          = "answer-result"
	EventQuestionSkipped       = "question-skipped"
	EventQuestionFinished      = "question-finished"
	EventSecretTransferred     = "secret-question-transferred"
	EventStakeBid              = "stake-bid"
	EventStakeWinner           = "stake-winner"
	EventRoundStarted          = "round-started"
	EventThemeEliminated       = "theme-eliminated"
	EventFinalBiddingStarted   = "final-bidding-started"
	EventFinalBidSubmitted     = "final-bid-submitted"
	EventFinalAnsweringStarted = "final-answering-started"
	EventFinalAnswerSubmitted  = "final-answer-submitted"
	EventFinalReviewStarted    = "final-review-started"
	EventFinalAnswerReviewed   = "final-answer-reviewed"
	EventScoreChanged          = "score-changed"
	EventGameFinished          = "game-finished"
	EventExpirationWarning     = "game-expiration-warning"
)

// Broadcast is an event handed to the connection layer. With
// UseRoleBasedBroadcast set, each connection receives RoleData[its role]
// instead of Data.
type Broadcast struct {
	Event                 string             `json:"event"`
	Data                  any                `json:"data,omitempty"`
	Target                BroadcastTarget    `json:"target"`
	GameID                GameID             `json:"gameId,omitempty"`
	SocketID              string             `json:"socketId,omitempty"`
	UseRoleBasedBroadcast bool               `json:"useRoleBasedBroadcast,omitempty"`
	RoleData              map[PlayerRole]any `json:"roleData,omitempty"`
}

// GameBroadcast creates a broadcast to every connection in a game
func GameBroadcast(gameID GameID, event string, data any) Broadcast {
	return Broadcast{Event: event, Data: data, Target: TargetGame, GameID: gameID}
}

// SocketBroadcast creates a broadcast to a single connection
func SocketBroadcast(socketID, event string, data any) Broadcast {
	return Broadcast{Event: event, Data: data, Target: TargetSocket, SocketID: socketID}
}

// RoleBroadcast creates a game broadcast with per-role payloads
func RoleBroadcast(gameID GameID, event string, roleData map[PlayerRole]any) Broadcast {
	return Broadcast{
		Event:                 event,
		Target:                TargetGame,
		GameID:                gameID,
		UseRoleBasedBroadcast: true,
		RoleData:              roleData,
	}
}

// PayloadFor returns the payload a connection with the given role receives
func (b *Broadcast) PayloadFor(role PlayerRole) any {
	if !b.UseRoleBasedBroadcast {
		return b.Data
	}
	if data, ok := b.RoleData[role]; ok {
		return data
	}
	return b.Data
}

// GameStateView returns the game as seen by a role. Final-round answer texts
// stay hidden from everyone but the showman until they are reviewed.
func GameStateView(g *Game, role PlayerRole) *Game {
	view := *g
	view.PasswordHash = ""
	if role == RoleShowman || g.GameState.FinalRound == nil {
		return &view
	}

	final := *g.GameState.FinalRound
	answers := make(map[PlayerID]FinalAnswer, len(final.Answers))
	for id, a := range final.Answers {
		if !a.Reviewed {
			a.Text = ""
		}
		answers[id] = a
	}
	final.Answers = answers
	view.GameState.FinalRound = &final
	return &view
}
