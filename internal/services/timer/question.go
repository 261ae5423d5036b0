package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
)

// Submitter runs actions through the per-game executor
type Submitter interface {
	SubmitAction(ctx context.Context, action *model.GameAction) (*model.ActionResult, error)
}

// QuestionStateReader reads a game's state without the rest of the hash
type QuestionStateReader interface {
	GameQuestionState(ctx context.Context, id model.GameID) (*model.GameState, error)
}

// QuestionTimerHandler turns an expired active timer into the timeout action
// of the state the game is in. Whether the timeout still applies is decided
// by the timeout action itself, under the game's lock.
type QuestionTimerHandler struct {
	games     QuestionStateReader
	submitter Submitter
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
}

// NewQuestionTimerHandler creates a new QuestionTimerHandler
func NewQuestionTimerHandler(games QuestionStateReader, submitter Submitter, clock clock.Clock, random random.Random, logger *slog.Logger) *QuestionTimerHandler {
	return &QuestionTimerHandler{
		games:     games,
		submitter: submitter,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "question-timer")),
	}
}

// Supports accepts timer:{gameId}. Saved timers carry no TTL and never expire.
func (h *QuestionTimerHandler) Supports(key string) bool {
	_, ok := redisstorage.ParseActiveTimerKey(key)
	return ok
}

func (h *QuestionTimerHandler) Handle(ctx context.Context, key string) error {
	gameID, ok := redisstorage.ParseActiveTimerKey(key)
	if !ok {
		return fmt.Errorf("not an active timer key: %s", key)
	}

	state, err := h.games.GameQuestionState(ctx, gameID)
	if errors.Is(err, model.ErrGameNotFound) {
		h.logger.Debug("timer expired for missing game", slog.String("game_id", string(gameID)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state of game %s: %w", gameID, err)
	}

	actionType := model.TimeoutActionFor(state.RoundType, state.QuestionState)
	if actionType == "" {
		h.logger.Debug("timer expired in a state without a timeout",
			slog.String("game_id", string(gameID)),
			slog.String("question_state", string(state.QuestionState)))
		return nil
	}

	action := &model.GameAction{
		ID:        h.random.UUID(),
		Type:      actionType,
		GameID:    gameID,
		Timestamp: h.clock.Now(),
	}
	if _, err := h.submitter.SubmitAction(ctx, action); err != nil {
		return fmt.Errorf("submit %s for game %s: %w", actionType, gameID, err)
	}
	return nil
}
