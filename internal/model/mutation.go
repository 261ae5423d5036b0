package model

import "time"

// MutationKind tags a DataMutation
type MutationKind string

const (
	MutationSaveGame      MutationKind = "SAVE_GAME"
	MutationSetTimer      MutationKind = "SET_TIMER"
	MutationDeleteTimer   MutationKind = "DELETE_TIMER"
	MutationBroadcast     MutationKind = "BROADCAST"
	MutationGameCompleted MutationKind = "GAME_COMPLETED"
)

// TimerTarget addresses either the active timer or a saved timer of a state
type TimerTarget struct {
	GameID GameID        `json:"gameId"`
	State  QuestionState `json:"state,omitempty"` // empty addresses the active timer
}

// DataMutation is one declarative write-back side effect. Handlers and
// transitions return them; only the executor applies them.
type DataMutation struct {
	Kind       MutationKind    `json:"kind"`
	Game       *Game           `json:"game,omitempty"`
	Timer      *GameStateTimer `json:"timer,omitempty"`
	TimerKey   TimerTarget     `json:"timerKey,omitempty"`
	TTL        time.Duration   `json:"ttl,omitempty"` // 0 stores without expiry
	Broadcasts []Broadcast     `json:"broadcasts,omitempty"`
	GameID     GameID          `json:"gameId,omitempty"`
}

// SaveGame persists the game hash
func SaveGame(g *Game) DataMutation {
	return DataMutation{Kind: MutationSaveGame, Game: g, GameID: g.ID}
}

// SetTimer writes the active timer with its own TTL so that its expiry fires
func SetTimer(gameID GameID, t *GameStateTimer, ttl time.Duration) DataMutation {
	return DataMutation{
		Kind:     MutationSetTimer,
		Timer:    t,
		TimerKey: TimerTarget{GameID: gameID},
		TTL:      ttl,
		GameID:   gameID,
	}
}

// SaveTimer stores a paused timer for a question state without expiry
func SaveTimer(gameID GameID, state QuestionState, t *GameStateTimer) DataMutation {
	return DataMutation{
		Kind:     MutationSetTimer,
		Timer:    t,
		TimerKey: TimerTarget{GameID: gameID, State: state},
		GameID:   gameID,
	}
}

// DeleteTimer removes the active timer
func DeleteTimer(gameID GameID) DataMutation {
	return DataMutation{Kind: MutationDeleteTimer, TimerKey: TimerTarget{GameID: gameID}, GameID: gameID}
}

// DeleteSavedTimer removes the saved timer of a question state
func DeleteSavedTimer(gameID GameID, state QuestionState) DataMutation {
	return DataMutation{
		Kind:     MutationDeleteTimer,
		TimerKey: TimerTarget{GameID: gameID, State: state},
		GameID:   gameID,
	}
}

// Broadcasts hands events to the connection layer after the write succeeds
func Broadcasts(b ...Broadcast) DataMutation {
	return DataMutation{Kind: MutationBroadcast, Broadcasts: b}
}

// GameCompleted triggers asynchronous completion bookkeeping
func GameCompleted(gameID GameID) DataMutation {
	return DataMutation{Kind: MutationGameCompleted, GameID: gameID}
}
