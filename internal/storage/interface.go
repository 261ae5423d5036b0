package storage

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

// AcquireStatus is the outcome of AcquireOrEnqueue
type AcquireStatus string

const (
	// AcquireStatusAcquired means the caller owns the lock and the queue was empty
	AcquireStatusAcquired AcquireStatus = "ACQUIRED"
	// AcquireStatusAcquiredWithBacklog means the caller owns the lock but an
	// earlier holder left actions behind; the caller's action was appended
	// after them and must be reached by draining
	AcquireStatusAcquiredWithBacklog AcquireStatus = "ACQUIRED_WITH_BACKLOG"
	// AcquireStatusEnqueued means another holder owns the lock and will run the action
	AcquireStatusEnqueued AcquireStatus = "ENQUEUED"
)

// DrainStatus is the outcome of DequeueAndReacquire
type DrainStatus string

const (
	DrainStatusNext    DrainStatus = "NEXT"
	DrainStatusDrained DrainStatus = "DRAINED"
	DrainStatusLost    DrainStatus = "LOST" // the old token no longer owns the lock
)

// Prefetch is everything read in the IN pipeline for one action
type Prefetch struct {
	Game    *model.Game // nil if the game hash does not exist
	Timer   *model.GameStateTimer
	Session *model.SocketSession
}

// DrainResult is the decoded reply of the drain-and-reacquire script.
//
// Err is set on a NEXT result whose entry could not be decoded. The entry
// has left the queue and the lock already belongs to the new token, so the
// holder skips it and keeps draining. Action is nil if the action itself
// was unreadable.
type DrainResult struct {
	Status   DrainStatus
	Action   *model.GameAction
	Prefetch *Prefetch
	Err      error
}

// ApplyResult holds the side effects that run after the OUT pipeline committed
type ApplyResult struct {
	Broadcasts []model.Broadcast
	Completed  []model.GameID
}

// LockQueue is the per-game lock and FIFO action queue
type LockQueue interface {
	Acquire(ctx context.Context, gameID model.GameID, token string) (bool, error)
	Release(ctx context.Context, gameID model.GameID, token string) (bool, error)
	Enqueue(ctx context.Context, action *model.GameAction) error
	AcquireOrEnqueue(ctx context.Context, action *model.GameAction, token string) (AcquireStatus, error)
	DequeueAndReacquire(ctx context.Context, gameID model.GameID, oldToken, newToken string) (*DrainResult, error)
}

// ActionStore is what the executor needs from the coordination store
type ActionStore interface {
	LockQueue
	FetchContext(ctx context.Context, action *model.GameAction) (*Prefetch, error)
	ApplyMutations(ctx context.Context, mutations []model.DataMutation) (*ApplyResult, error)
}

// PackageStore reads question packages
type PackageStore interface {
	GetPackage(ctx context.Context, gameID model.GameID) (*model.Package, error)
}

// TimerStore reads active and saved timers
type TimerStore interface {
	GetTimer(ctx context.Context, gameID model.GameID) (*model.GameStateTimer, error)
	GetSavedTimer(ctx context.Context, gameID model.GameID, state model.QuestionState) (*model.GameStateTimer, error)
}

// Storage defines the full coordination store used by the server
type Storage interface {
	ActionStore
	PackageStore
	TimerStore

	// Game operations
	CreateGame(ctx context.Context, game *model.Game, pkg *model.Package) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	GameExists(ctx context.Context, id model.GameID) (bool, error)
	GameQuestionState(ctx context.Context, id model.GameID) (*model.GameState, error)

	// Queue inspection
	QueueLength(ctx context.Context, id model.GameID) (int64, error)
	QueuedActions(ctx context.Context, id model.GameID) ([]*model.GameAction, error)
	LockHeld(ctx context.Context, id model.GameID) (bool, error)

	// Socket session operations
	SaveSession(ctx context.Context, session *model.SocketSession) error
	GetSession(ctx context.Context, socketID string) (*model.SocketSession, error)
	TouchSession(ctx context.Context, socketID string) (bool, error)
	DeleteSession(ctx context.Context, socketID string) error

	// AcquireIdempotencyLock guards a one-shot notification for a key
	AcquireIdempotencyLock(ctx context.Context, key string) (bool, error)
}
