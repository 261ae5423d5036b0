package redis

import (
	"strings"

	"github.com/mcoot/quizgame/internal/model"
)

// Key namespace. Other services share the store, so these must not change.
const (
	gameKeyPrefix        = "game:"
	packageKeyPrefix     = "game:package:"
	lockKeyPrefix        = "game:action:lock:"
	queueKeyPrefix       = "game:action:queue:"
	sessionKeyPrefix     = "socket:session:"
	idempotencyKeyPrefix = "expiration-lock:"

	// TimerKeyPrefix prefixes both active and saved timers
	TimerKeyPrefix = "timer:"
	// ExpirationWarningKeyPrefix prefixes the game expiration warning markers
	ExpirationWarningKeyPrefix = "game-expiration-warning:"
	// BroadcastChannel carries broadcasts between server processes
	BroadcastChannel = "game:broadcasts"
	// ExpiredKeysPattern matches key expiration events on every database
	ExpiredKeysPattern = "__keyevent@*__:expired"
)

// gameKey returns the Redis key for a Game hash
func gameKey(id model.GameID) string {
	return gameKeyPrefix + string(id)
}

// packageKey returns the Redis key for the game's question package hash
func packageKey(id model.GameID) string {
	return packageKeyPrefix + string(id)
}

func lockKey(id model.GameID) string {
	return lockKeyPrefix + string(id)
}

func queueKey(id model.GameID) string {
	return queueKeyPrefix + string(id)
}

func expirationWarningKey(id model.GameID) string {
	return ExpirationWarningKeyPrefix + string(id)
}

// timerKey returns the active timer key, or the saved timer key of a state
func timerKey(t model.TimerTarget) string {
	if t.State == "" {
		return TimerKeyPrefix + string(t.GameID)
	}
	return TimerKeyPrefix + string(t.State) + ":" + string(t.GameID)
}

func sessionKey(socketID string) string {
	return sessionKeyPrefix + socketID
}

func idempotencyKey(key string) string {
	return idempotencyKeyPrefix + key
}

// ParseActiveTimerKey extracts the game id from timer:{gameId}. Saved timers
// (timer:{state}:{gameId}) are rejected.
func ParseActiveTimerKey(key string) (model.GameID, bool) {
	rest, ok := strings.CutPrefix(key, TimerKeyPrefix)
	if !ok || rest == "" || strings.Contains(rest, ":") {
		return "", false
	}
	return model.GameID(rest), true
}

// ParseExpirationWarningKey extracts the game id from game-expiration-warning:{gameId}
func ParseExpirationWarningKey(key string) (model.GameID, bool) {
	rest, ok := strings.CutPrefix(key, ExpirationWarningKeyPrefix)
	if !ok || rest == "" || strings.Contains(rest, ":") {
		return "", false
	}
	return model.GameID(rest), true
}
