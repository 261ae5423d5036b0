package executor

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/services/actions"
	"github.com/mcoot/quizgame/internal/storage"
)

const tracerName = "quizgame/executor"

// Broadcaster hands events to the connection layer
type Broadcaster interface {
	Publish(ctx context.Context, b model.Broadcast) error
}

// Completer runs the bookkeeping of a finished game. Complete must not block
// on the bookkeeping itself.
type Completer interface {
	Complete(ctx context.Context, gameID model.GameID)
}

// Executor runs game actions one at a time per game across every process
// sharing the coordination store. Whoever holds a game's lock drains the
// game's queue before letting go.
type Executor struct {
	store       storage.ActionStore
	registry    *actions.Registry
	broadcaster Broadcaster
	completer   Completer
	clock       clock.Clock
	random      random.Random
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New creates a new Executor
func New(
	store storage.ActionStore,
	registry *actions.Registry,
	broadcaster Broadcaster,
	completer Completer,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		store:       store,
		registry:    registry,
		broadcaster: broadcaster,
		completer:   completer,
		clock:       clock,
		random:      random,
		tracer:      otel.Tracer(tracerName),
		logger:      logger.With(slog.String("component", "executor")),
	}
}

// SubmitAction runs the action now if the game's lock is free, then drains
// whatever queued up meanwhile. If another holder owns the lock the action is
// queued for it and SubmitAction returns a nil result.
//
// The caller gets its own action's result or error. Errors of actions queued
// by others are sent to their originating socket.
func (e *Executor) SubmitAction(ctx context.Context, action *model.GameAction) (*model.ActionResult, error) {
	if action.ID == "" {
		action.ID = e.random.UUID()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = e.clock.Now()
	}

	token := e.random.UUID()
	status, err := e.store.AcquireOrEnqueue(ctx, action, token)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for game %s: %w", action.GameID, err)
	}

	logger := e.logger.With(
		slog.String("game_id", string(action.GameID)),
		slog.String("action_id", action.ID),
		slog.String("action_type", string(action.Type)),
	)
	if status == storage.AcquireStatusEnqueued {
		logger.Debug("action queued behind lock holder")
		return nil, nil
	}

	// Once the lock is ours the queue must be drained even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	var result *model.ActionResult
	var resultErr error
	if status == storage.AcquireStatusAcquired {
		result, resultErr = e.runFetched(ctx, action, token)
	}

	for {
		next := e.random.UUID()
		drain, err := e.store.DequeueAndReacquire(ctx, action.GameID, token, next)
		if err != nil {
			// the lock TTL frees the game for the next submitter
			logger.Error("failed to drain action queue", slog.String("error", err.Error()))
			if resultErr == nil && result == nil {
				resultErr = fmt.Errorf("drain queue for game %s: %w", action.GameID, err)
			}
			return result, resultErr
		}

		switch drain.Status {
		case storage.DrainStatusDrained:
			return result, resultErr
		case storage.DrainStatusLost:
			logger.Warn("lost game lock while draining")
			return result, resultErr
		}

		token = next
		if drain.Err != nil {
			// the entry already left the queue and the lock moved to next
			logger.Error("skipping undecodable queue entry", slog.String("error", drain.Err.Error()))
			switch {
			case drain.Action == nil:
			case drain.Action.ID == action.ID:
				result, resultErr = nil, fmt.Errorf("load action context: %w", drain.Err)
			default:
				e.deliverError(ctx, drain.Action, drain.Err)
			}
			continue
		}
		res, err := e.execute(ctx, drain.Action, token, drain.Prefetch)
		if drain.Action.ID == action.ID {
			result, resultErr = res, err
			continue
		}
		if err != nil {
			e.deliverError(ctx, drain.Action, err)
		}
	}
}

// runFetched executes an action whose context was not prefetched by the
// drain script
func (e *Executor) runFetched(ctx context.Context, action *model.GameAction, token string) (*model.ActionResult, error) {
	prefetch, err := e.store.FetchContext(ctx, action)
	if err != nil {
		e.logger.Error("failed to fetch action context",
			slog.String("game_id", string(action.GameID)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("fetch context: %w", err)
	}
	return e.execute(ctx, action, token, prefetch)
}

// execute runs one action under the lock identified by token and applies
// its mutations. A failing or panicking handler leaves the store untouched.
func (e *Executor) execute(ctx context.Context, action *model.GameAction, token string, prefetch *storage.Prefetch) (result *model.ActionResult, err error) {
	ctx, span := e.tracer.Start(ctx, "executor.execute", trace.WithAttributes(
		attribute.String("game.id", string(action.GameID)),
		attribute.String("action.id", action.ID),
		attribute.String("action.type", string(action.Type)),
	))
	defer span.End()

	logger := e.logger.With(
		slog.String("game_id", string(action.GameID)),
		slog.String("action_id", action.ID),
		slog.String("action_type", string(action.Type)),
	)

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler for %s panicked: %v", action.Type, r)
		}
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if model.IsClientError(err) {
			logger.Info("action rejected", slog.String("error", err.Error()))
		} else {
			logger.Error("action failed", slog.String("error", err.Error()))
		}
	}()

	ec, err := buildContext(action, token, prefetch)
	if err != nil {
		return nil, err
	}
	handler, ok := e.registry.Get(action.Type)
	if !ok {
		return nil, model.ErrUnknownAction
	}

	result, err = handler.Execute(ctx, ec)
	if err != nil {
		return nil, err
	}
	if err := e.apply(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// apply commits the result's writes, then publishes its broadcasts and
// starts completion bookkeeping
func (e *Executor) apply(ctx context.Context, result *model.ActionResult) error {
	applied, err := e.store.ApplyMutations(ctx, result.Mutations)
	if err != nil {
		return fmt.Errorf("apply mutations: %w", err)
	}

	broadcasts := applied.Broadcasts
	if result.BroadcastGame != nil {
		broadcasts = append(broadcasts, gameState(result.BroadcastGame))
	}
	for _, b := range broadcasts {
		if err := e.broadcaster.Publish(ctx, b); err != nil {
			e.logger.Error("failed to publish broadcast",
				slog.String("event", b.Event),
				slog.String("game_id", string(b.GameID)),
				slog.String("error", err.Error()))
		}
	}

	for _, id := range applied.Completed {
		e.completer.Complete(ctx, id)
	}
	return nil
}

// gameState is the role-filtered snapshot sent after every changed game
func gameState(g *model.Game) model.Broadcast {
	return model.RoleBroadcast(g.ID, model.EventGameState, map[model.PlayerRole]any{
		model.RoleShowman:   model.GameStateView(g, model.RoleShowman),
		model.RolePlayer:    model.GameStateView(g, model.RolePlayer),
		model.RoleSpectator: model.GameStateView(g, model.RoleSpectator),
	})
}

// deliverError tells the author of a queued action that it failed. Server
// errors are reported without detail.
func (e *Executor) deliverError(ctx context.Context, action *model.GameAction, err error) {
	if action.SocketID == "" {
		return
	}
	event := model.ErrorEvent{
		Code:     "INTERNAL_ERROR",
		Message:  "internal server error",
		ActionID: action.ID,
		Action:   action.Type,
	}
	if ce, ok := model.AsClientError(err); ok {
		event.Code = ce.Code
		event.Message = ce.Message
	}
	if err := e.broadcaster.Publish(ctx, model.SocketBroadcast(action.SocketID, model.EventError, event)); err != nil {
		e.logger.Error("failed to deliver action error",
			slog.String("socket_id", action.SocketID),
			slog.String("error", err.Error()))
	}
}
