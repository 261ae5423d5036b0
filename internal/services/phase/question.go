package phase

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

// questionShown broadcasts the question text; only the showman sees the answer
func questionShown(tc *model.TransitionContext, res *model.TransitionResult) model.Broadcast {
	theme, q := currentQuestion(tc)
	event := model.QuestionShownEvent{TimerMs: timerMs(res.Timer)}
	if q != nil {
		event.ThemeID = theme.ID
		event.QuestionID = q.ID
		event.Text = q.Text
	}
	showman := event
	if q != nil {
		showman.Answer = q.Answer
	}
	return model.RoleBroadcast(tc.Game.ID, model.EventQuestionShown, map[model.PlayerRole]any{
		model.RoleShowman:   showman,
		model.RolePlayer:    event,
		model.RoleSpectator: event,
	})
}

func questionFinished(tc *model.TransitionContext, res *model.TransitionResult) model.Broadcast {
	theme, q := currentQuestion(tc)
	event := model.QuestionFinishedEvent{TimerMs: timerMs(res.Timer)}
	if q != nil {
		event.ThemeID = theme.ID
		event.QuestionID = q.ID
		event.Answer = q.Answer
	}
	return model.GameBroadcast(tc.Game.ID, model.EventQuestionFinished, event)
}

// showQuestion ends media downloading
type showQuestion struct {
	base
	when guard
}

func newShowQuestion(e *env, when guard) *showQuestion {
	return &showQuestion{base: base{from: model.PhaseMediaDownloading, to: model.PhaseShowing, env: e}, when: when}
}

func (t *showQuestion) CanTransition(tc *model.TransitionContext) bool {
	return t.when(tc)
}

func (t *showQuestion) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			tc.Game.GameState.QuestionState = model.QuestionStateShowing
			tc.Game.GameState.ReadyPlayers = nil
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, t.env.durations.Showing)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts, questionShown(tc, res))
		},
	})
}

// answerRequest gives the floor to the first player who buzzes in
type answerRequest struct {
	base
}

func newAnswerRequest(e *env) *answerRequest {
	return &answerRequest{base: base{from: model.PhaseShowing, to: model.PhaseAnswering, env: e}}
}

func (t *answerRequest) CanTransition(tc *model.TransitionContext) bool {
	return isUserAction(tc, model.ActionAnswerRequest)
}

func (t *answerRequest) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	p := tc.TriggeredBy
	return t.run(ctx, tc, plan{
		validate: func() error {
			if p == nil || p.Role != model.RolePlayer {
				return model.ErrNotPlayer
			}
			if !p.IsActivePlayer() {
				return model.ErrPlayerRestricted
			}
			if g.GameState.HasAnswered(p.ID) {
				return model.ErrAlreadyAnswered
			}
			if containsPlayer(g.GameState.SkippedPlayers, p.ID) {
				return model.ErrAlreadySkipped
			}
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			g.GameState.AnsweringPlayer = ptr(p.ID)
			g.GameState.QuestionState = model.QuestionStateAnswering
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.saveShowingTimer(tc, res)
			t.env.replaceTimer(res, t.env.durations.Answering)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts, model.GameBroadcast(g.ID, model.EventAnswerRequested,
				model.AnswerRequestedEvent{PlayerID: p.ID, TimerMs: timerMs(res.Timer)}))
		},
	})
}

// closeQuestion reveals the answer when nobody will answer any more
type closeQuestion struct {
	base
	when guard
}

func newCloseQuestion(e *env, when guard) *closeQuestion {
	return &closeQuestion{base: base{from: model.PhaseShowing, to: model.PhaseShowingAnswer, env: e}, when: when}
}

func (t *closeQuestion) CanTransition(tc *model.TransitionContext) bool {
	return t.when(tc)
}

func (t *closeQuestion) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			tc.Game.GameState.AnsweringPlayer = nil
			tc.Game.GameState.QuestionState = model.QuestionStateShowingAnswer
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			dropShowingTimer(res)
			t.env.replaceTimer(res, t.env.durations.ShowingAnswer)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts, questionFinished(tc, res))
		},
	})
}

// answerCorrect awards the question to the answering player
type answerCorrect struct {
	base
}

func newAnswerCorrect(e *env) *answerCorrect {
	return &answerCorrect{base: base{from: model.PhaseAnswering, to: model.PhaseShowingAnswer, env: e}}
}

func (t *answerCorrect) CanTransition(tc *model.TransitionContext) bool {
	if !isUserAction(tc, model.ActionAnswerResult) {
		return false
	}
	p, ok := tc.Payload.(*model.AnswerResultPayload)
	return ok && p.Correct
}

func (t *answerCorrect) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	var answerer *model.Player
	var record model.AnswerRecord
	return t.run(ctx, tc, plan{
		validate: func() error {
			if g.GameState.AnsweringPlayer == nil {
				return model.ErrNotAnsweringState
			}
			if answerer = g.FindPlayer(*g.GameState.AnsweringPlayer); answerer == nil {
				return model.ErrPlayerNotFound
			}
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			s := &g.GameState
			price := s.CurrentQuestion.Price
			answerer.Score += price
			record = model.AnswerRecord{PlayerID: answerer.ID, Correct: true, ScoreDelta: price}
			s.AnsweredPlayers = append(s.AnsweredPlayers, record)
			s.AnsweringPlayer = nil
			s.CurrentTurnPlayer = ptr(answerer.ID)
			s.QuestionState = model.QuestionStateShowingAnswer
			res.Data = record
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			dropShowingTimer(res)
			t.env.replaceTimer(res, t.env.durations.ShowingAnswer)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts,
				model.GameBroadcast(g.ID, model.EventAnswerResult, model.AnswerResultEvent{
					PlayerID:   answerer.ID,
					Correct:    true,
					ScoreDelta: record.ScoreDelta,
					Score:      answerer.Score,
				}),
				questionFinished(tc, res),
			)
		},
	})
}

// answerMissed ends an answer that was wrong, timed out or abandoned. With
// nobody left to try, the answer is revealed; otherwise the question goes
// back to SHOWING with the saved showing timer resumed.
type answerMissed struct {
	base
	when      guard
	penalty   bool
	exhausted bool
}

func newAnswerMissed(e *env, when guard, penalty, exhausted bool) *answerMissed {
	to := model.PhaseShowing
	if exhausted {
		to = model.PhaseShowingAnswer
	}
	return &answerMissed{
		base:      base{from: model.PhaseAnswering, to: to, env: e},
		when:      when,
		penalty:   penalty,
		exhausted: exhausted,
	}
}

func (t *answerMissed) CanTransition(tc *model.TransitionContext) bool {
	if tc.Game.GameState.AnsweringPlayer == nil || !t.when(tc) {
		return false
	}
	return t.exhausted == questionExhausted(tc.Game)
}

func (t *answerMissed) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	answererID := *g.GameState.AnsweringPlayer
	answerer := g.FindPlayer(answererID)
	var record model.AnswerRecord
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			s := &g.GameState
			if t.penalty && answerer != nil {
				price := s.CurrentQuestion.Price
				answerer.Score -= price
				record = model.AnswerRecord{PlayerID: answerer.ID, Correct: false, ScoreDelta: -price}
				s.AnsweredPlayers = append(s.AnsweredPlayers, record)
				res.Data = record
			}
			s.AnsweringPlayer = nil
			if t.exhausted {
				s.QuestionState = model.QuestionStateShowingAnswer
			} else {
				s.QuestionState = model.QuestionStateShowing
			}
			return nil
		},
		timers: func(ctx context.Context, res *model.TransitionResult) error {
			if t.exhausted {
				dropShowingTimer(res)
				t.env.replaceTimer(res, t.env.durations.ShowingAnswer)
				return nil
			}
			return t.env.restoreShowingTimer(ctx, res)
		},
		broadcasts: func(res *model.TransitionResult) {
			if t.penalty && answerer != nil {
				res.Broadcasts = append(res.Broadcasts, model.GameBroadcast(g.ID, model.EventAnswerResult, model.AnswerResultEvent{
					PlayerID:   answerer.ID,
					ScoreDelta: record.ScoreDelta,
					Score:      answerer.Score,
					TimedOut:   tc.Trigger == model.TriggerTimerExpired,
				}))
			}
			if t.exhausted {
				res.Broadcasts = append(res.Broadcasts, questionFinished(tc, res))
			}
		},
	})
}
