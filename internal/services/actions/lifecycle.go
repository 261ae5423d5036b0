package actions

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

func (s *Service) startGame(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if g.IsFinished() {
		return nil, model.ErrGameFinished
	}
	if g.StartedAt != nil {
		return nil, model.ErrGameAlreadyStarted
	}

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, nil)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, model.ErrInvalidPhase
	}
	return saved(g, res, changes{}), nil
}

// pauseGame parks the running timer under the current state so it survives
// until the game is resumed
func (s *Service) pauseGame(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireRunning(g); err != nil {
		return nil, err
	}
	st := &g.GameState
	if st.IsPaused {
		return nil, model.ErrGamePaused
	}

	var c changes
	var remaining int64
	if ec.Timer != nil {
		paused := ec.Timer.Paused(s.clock.Now())
		c.mutations = append(c.mutations,
			model.DeleteTimer(g.ID),
			model.SaveTimer(g.ID, st.QuestionState, paused),
		)
		st.Timer = paused
		remaining = paused.DurationMs - paused.ElapsedMs
	}
	st.IsPaused = true

	c.broadcast(model.GameBroadcast(g.ID, model.EventGamePaused, model.GamePausedEvent{RemainingMs: remaining}))
	return saved(g, nil, c), nil
}

func (s *Service) unpauseGame(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireRunning(g); err != nil {
		return nil, err
	}
	st := &g.GameState
	if !st.IsPaused {
		return nil, model.ErrGameNotPaused
	}

	parked, err := s.timers.GetSavedTimer(ctx, g.ID, st.QuestionState)
	if err != nil {
		return nil, err
	}

	var c changes
	var remaining int64
	if parked != nil {
		now := s.clock.Now()
		resumed := parked.Resumed(now)
		left := resumed.Remaining(now)
		if left < minResumedTimer {
			left = minResumedTimer
			resumed.ElapsedMs = resumed.DurationMs - left.Milliseconds()
		}
		c.mutations = append(c.mutations,
			model.DeleteSavedTimer(g.ID, st.QuestionState),
			model.SetTimer(g.ID, resumed, left),
		)
		st.Timer = resumed
		remaining = left.Milliseconds()
	}
	st.IsPaused = false

	c.broadcast(model.GameBroadcast(g.ID, model.EventGameUnpaused, model.GamePausedEvent{RemainingMs: remaining}))
	return saved(g, nil, c), nil
}

func (s *Service) scoreChange(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if g.IsFinished() {
		return nil, model.ErrGameFinished
	}

	payload, err := model.DecodePayload[model.ScoreChangePayload](ec.Action)
	if err != nil {
		return nil, err
	}
	target := g.FindPlayer(payload.PlayerID)
	if target == nil || target.Role != model.RolePlayer {
		return nil, model.ErrPlayerNotFound
	}
	target.Score = payload.Score

	res, err := s.routeIfRunning(ctx, ec, model.TriggerUserAction, p)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventScoreChanged, model.ScoreChangedEvent{
		PlayerID: target.ID,
		Score:    target.Score,
	}))
	return saved(g, res, c), nil
}
