package actions

import (
	"context"
	"log/slog"

	"github.com/mcoot/quizgame/internal/model"
)

// timeout handles every synthetic timer action. A timeout is stale, and
// ignored, if the game moved on to another state, is paused, or a new timer
// was started since the expired one was read.
func (s *Service) timeout(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	g := ec.Game
	roundType, state, ok := model.TimedOutState(ec.Action.Type)
	if !ok {
		return nil, model.ErrUnknownAction
	}

	st := &g.GameState
	stale := g.StartedAt == nil ||
		g.IsFinished() ||
		st.IsPaused ||
		st.RoundType != roundType ||
		st.QuestionState != state ||
		ec.Timer != nil
	if stale {
		s.logger.Debug("ignoring stale timeout",
			slog.String("game_id", string(g.ID)),
			slog.String("action_type", string(ec.Action.Type)),
			slog.String("question_state", string(st.QuestionState)))
		return unchanged(g), nil
	}

	res, _, err := s.route(ctx, ec, model.TriggerTimerExpired, nil, nil)
	if err != nil {
		return nil, err
	}
	if res == nil {
		s.logger.Warn("no transition for timeout",
			slog.String("game_id", string(g.ID)),
			slog.String("action_type", string(ec.Action.Type)))
		return unchanged(g), nil
	}
	return saved(g, res, changes{}), nil
}
