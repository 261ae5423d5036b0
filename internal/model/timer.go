package model

import "time"

// GameStateTimer is the JSON stored under timer:{gameId} and mirrored in the game state
type GameStateTimer struct {
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	ElapsedMs  int64     `json:"elapsedMs"` // time consumed before the last resume
}

// NewTimer starts a timer of the given duration at now
func NewTimer(now time.Time, d time.Duration) *GameStateTimer {
	return &GameStateTimer{
		StartedAt:  now,
		DurationMs: d.Milliseconds(),
	}
}

// Remaining returns the time left before the timer elapses, never negative
func (t *GameStateTimer) Remaining(now time.Time) time.Duration {
	elapsed := time.Duration(t.ElapsedMs)*time.Millisecond + now.Sub(t.StartedAt)
	left := time.Duration(t.DurationMs)*time.Millisecond - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Paused returns a copy with the running time folded into ElapsedMs
func (t *GameStateTimer) Paused(now time.Time) *GameStateTimer {
	elapsed := t.ElapsedMs + now.Sub(t.StartedAt).Milliseconds()
	if elapsed > t.DurationMs {
		elapsed = t.DurationMs
	}
	return &GameStateTimer{
		StartedAt:  t.StartedAt,
		DurationMs: t.DurationMs,
		ElapsedMs:  elapsed,
	}
}

// Resumed returns a copy that starts counting again from now
func (t *GameStateTimer) Resumed(now time.Time) *GameStateTimer {
	return &GameStateTimer{
		StartedAt:  now,
		DurationMs: t.DurationMs,
		ElapsedMs:  t.ElapsedMs,
	}
}
