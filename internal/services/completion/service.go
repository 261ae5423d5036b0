package completion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/quizgame/internal/model"
)

const recordTimeout = 30 * time.Second

// GameLoader reads a game from the coordination store
type GameLoader interface {
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
}

// Service runs the bookkeeping of finished games off the action path. A
// failure is logged and never reaches the action that finished the game.
type Service struct {
	games    GameLoader
	recorder Recorder
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewService creates a new completion Service
func NewService(games GameLoader, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{
		games:    games,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "completion")),
	}
}

// Complete starts recording the game's results and returns immediately
func (s *Service) Complete(ctx context.Context, gameID model.GameID) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		s.record(ctx, gameID)
	})
}

func (s *Service) record(ctx context.Context, gameID model.GameID) {
	logger := s.logger.With(slog.String("game_id", string(gameID)))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("game completion panicked", slog.Any("panic", r))
		}
	}()

	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		logger.Error("failed to load finished game", slog.String("error", err.Error()))
		return
	}
	if err := s.recorder.Record(ctx, g); err != nil {
		logger.Error("failed to record game results", slog.String("error", err.Error()))
		return
	}
	logger.Info("game results recorded")
}

// Wait blocks until every started completion has finished
func (s *Service) Wait() {
	s.wg.Wait()
}
