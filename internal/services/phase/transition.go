package phase

import (
	"context"
	"time"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// minRestoredTimer keeps a restored timer from being written with a zero TTL
const minRestoredTimer = time.Second

// env holds what every transition of a router shares
type env struct {
	durations Durations
	timers    storage.TimerStore
	clock     clock.Clock
}

// guard is a pure predicate over a transition context
type guard func(tc *model.TransitionContext) bool

// base carries the phase pair of a transition
type base struct {
	from, to model.GamePhase
	env      *env
}

func (b base) From() model.GamePhase { return b.from }
func (b base) To() model.GamePhase   { return b.to }

// plan is the four steps every transition runs through
type plan struct {
	validate   func() error
	mutate     func(res *model.TransitionResult) error
	timers     func(ctx context.Context, res *model.TransitionResult) error
	broadcasts func(res *model.TransitionResult)
}

// run validates before touching the game, then mutates, manages timers and
// collects broadcasts
func (b base) run(ctx context.Context, tc *model.TransitionContext, p plan) (*model.TransitionResult, error) {
	if p.validate != nil {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}

	res := &model.TransitionResult{
		Success:   true,
		FromPhase: b.from,
		ToPhase:   b.to,
		Game:      tc.Game,
	}
	if p.mutate != nil {
		if err := p.mutate(res); err != nil {
			return nil, err
		}
	}
	if p.timers != nil {
		if err := p.timers(ctx, res); err != nil {
			return nil, err
		}
	}
	if p.broadcasts != nil {
		p.broadcasts(res)
	}
	return res, nil
}

// replaceTimer clears the active timer and, for d > 0, schedules a new one.
// A paused game gets the new timer saved for its state instead.
func (e *env) replaceTimer(res *model.TransitionResult, d time.Duration) {
	g := res.Game
	res.Mutations = append(res.Mutations, model.DeleteTimer(g.ID))
	if d <= 0 {
		g.GameState.Timer = nil
		res.Timer = nil
		return
	}

	now := e.clock.Now()
	t := model.NewTimer(now, d)
	if g.GameState.IsPaused {
		t = t.Paused(now)
		res.Mutations = append(res.Mutations, model.SaveTimer(g.ID, g.GameState.QuestionState, t))
	} else {
		res.Mutations = append(res.Mutations, model.SetTimer(g.ID, t, d))
	}
	g.GameState.Timer = t
	res.Timer = t
}

// saveShowingTimer stores the remaining showing time while someone answers
func (e *env) saveShowingTimer(tc *model.TransitionContext, res *model.TransitionResult) {
	active := tc.Timer
	if active == nil {
		active = tc.Game.GameState.Timer
	}
	if active == nil {
		return
	}
	res.Mutations = append(res.Mutations,
		model.SaveTimer(tc.Game.ID, model.QuestionStateShowing, active.Paused(e.clock.Now())))
}

// restoreShowingTimer resumes the showing timer saved when the answer started
func (e *env) restoreShowingTimer(ctx context.Context, res *model.TransitionResult) error {
	g := res.Game
	saved, err := e.timers.GetSavedTimer(ctx, g.ID, model.QuestionStateShowing)
	if err != nil {
		return err
	}
	if saved == nil {
		e.replaceTimer(res, e.durations.Showing)
		return nil
	}

	now := e.clock.Now()
	resumed := saved.Resumed(now)
	remaining := resumed.Remaining(now)
	if remaining < minRestoredTimer {
		remaining = minRestoredTimer
		resumed.ElapsedMs = resumed.DurationMs - remaining.Milliseconds()
	}

	res.Mutations = append(res.Mutations,
		model.DeleteTimer(g.ID),
		model.SetTimer(g.ID, resumed, remaining),
		model.DeleteSavedTimer(g.ID, model.QuestionStateShowing),
	)
	g.GameState.Timer = resumed
	res.Timer = resumed
	return nil
}

// dropShowingTimer discards the saved showing timer once the question is over
func dropShowingTimer(res *model.TransitionResult) {
	res.Mutations = append(res.Mutations, model.DeleteSavedTimer(res.Game.ID, model.QuestionStateShowing))
}

func timerMs(t *model.GameStateTimer) int64 {
	if t == nil {
		return 0
	}
	return t.DurationMs - t.ElapsedMs
}

// Guards shared by several transitions

func isUserAction(tc *model.TransitionContext, action model.ActionType) bool {
	return tc.Trigger == model.TriggerUserAction && tc.ActionType == action
}

func timerExpired(tc *model.TransitionContext) bool {
	return tc.Trigger == model.TriggerTimerExpired
}

func playerLeft(tc *model.TransitionContext) bool {
	return tc.Trigger == model.TriggerPlayerLeft
}

func everyoneReady(tc *model.TransitionContext) bool {
	if !isUserAction(tc, model.ActionMediaDownloaded) && !playerLeft(tc) {
		return false
	}
	for _, p := range tc.Game.ActivePlayers() {
		if !containsPlayer(tc.Game.GameState.ReadyPlayers, p.ID) {
			return false
		}
	}
	return true
}

func nobodyLeftToAnswer(tc *model.TransitionContext) bool {
	if isUserAction(tc, model.ActionQuestionSkip) {
		if tc.TriggeredBy != nil && tc.TriggeredBy.Role == model.RoleShowman {
			return true
		}
	} else if !playerLeft(tc) {
		return false
	}
	return len(eligibleAnswerers(tc.Game)) == 0
}

func wrongAnswer(tc *model.TransitionContext) bool {
	if !isUserAction(tc, model.ActionAnswerResult) {
		return false
	}
	p, ok := tc.Payload.(*model.AnswerResultPayload)
	return ok && !p.Correct
}

func answererLeft(tc *model.TransitionContext) bool {
	answering := tc.Game.GameState.AnsweringPlayer
	return playerLeft(tc) && answering != nil && tc.TriggeredBy != nil && tc.TriggeredBy.ID == *answering
}
