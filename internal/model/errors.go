package model

import "errors"

// ClientError is an error surfaced verbatim to the originating connection.
// It carries a stable code and is never retried.
type ClientError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ClientError) Error() string {
	return e.Message
}

// NewClientError creates a client-facing error with a stable code
func NewClientError(code, message string) *ClientError {
	return &ClientError{Code: code, Message: message}
}

// IsClientError reports whether err (or anything it wraps) is client-facing
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// AsClientError extracts the client-facing error, if any
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Client-facing errors
var (
	// Lookup errors
	ErrGameNotFound     = NewClientError("GAME_NOT_FOUND", "game not found")
	ErrPlayerNotFound   = NewClientError("PLAYER_NOT_FOUND", "player not found")
	ErrSessionNotFound  = NewClientError("SESSION_NOT_FOUND", "socket session not found")
	ErrPackageNotFound  = NewClientError("PACKAGE_NOT_FOUND", "question package not found")
	ErrQuestionNotFound = NewClientError("QUESTION_NOT_FOUND", "question not found")
	ErrThemeNotFound    = NewClientError("THEME_NOT_FOUND", "theme not found")
	ErrUnknownAction    = NewClientError("UNKNOWN_ACTION", "unknown action type")
	ErrReservedAction   = NewClientError("RESERVED_ACTION", "action type is reserved for the server")
	ErrInvalidPayload   = NewClientError("INVALID_PAYLOAD", "invalid action payload")
	ErrInvalidPackage   = NewClientError("INVALID_PACKAGE", "question package has no playable rounds")

	// Permission errors
	ErrNotShowman        = NewClientError("NOT_SHOWMAN", "only the showman can do this")
	ErrNotPlayer         = NewClientError("NOT_PLAYER", "only players can do this")
	ErrNotYourTurn       = NewClientError("NOT_YOUR_TURN", "it is not your turn")
	ErrPlayerRestricted  = NewClientError("PLAYER_RESTRICTED", "player is restricted")
	ErrPlayerBanned      = NewClientError("PLAYER_BANNED", "player is banned from this game")
	ErrWrongPassword     = NewClientError("WRONG_PASSWORD", "wrong game password")
	ErrGameFull          = NewClientError("GAME_FULL", "game is full")
	ErrShowmanTaken      = NewClientError("SHOWMAN_TAKEN", "game already has a showman")
	ErrCannotTargetSelf  = NewClientError("CANNOT_TARGET_SELF", "cannot target yourself")
	ErrAlreadyAnswered   = NewClientError("ALREADY_ANSWERED", "player already answered this question")
	ErrAlreadySkipped    = NewClientError("ALREADY_SKIPPED", "player already skipped this question")
	ErrNotAnsweringState = NewClientError("NOT_ANSWERING", "no answer is being given")
	ErrAlreadyReviewed   = NewClientError("ALREADY_REVIEWED", "answer was already reviewed")
	ErrAlreadyBid        = NewClientError("ALREADY_BID", "player already placed a bid")

	// Phase errors
	ErrGameNotStarted      = NewClientError("GAME_NOT_STARTED", "game has not started")
	ErrGameAlreadyStarted  = NewClientError("GAME_ALREADY_STARTED", "game has already started")
	ErrGameFinished        = NewClientError("GAME_FINISHED", "game is finished")
	ErrGamePaused          = NewClientError("GAME_PAUSED", "game is paused")
	ErrGameNotPaused       = NewClientError("GAME_NOT_PAUSED", "game is not paused")
	ErrInvalidPhase        = NewClientError("INVALID_PHASE", "action is not allowed in the current phase")
	ErrQuestionPlayed      = NewClientError("QUESTION_ALREADY_PLAYED", "question was already played")
	ErrInsufficientPlayers = NewClientError("INSUFFICIENT_PLAYERS", "not enough players to start")
	ErrInvalidBid          = NewClientError("INVALID_BID", "invalid bid")
	ErrThemeEliminated     = NewClientError("THEME_ELIMINATED", "theme already eliminated")
)
