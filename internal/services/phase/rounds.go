package phase

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

// startGame moves a waiting game into its first round
type startGame struct {
	base
	roundType model.RoundType
}

func newStartGame(e *env, roundType model.RoundType, to model.GamePhase) *startGame {
	return &startGame{base: base{from: model.PhaseWaiting, to: to, env: e}, roundType: roundType}
}

func (t *startGame) CanTransition(tc *model.TransitionContext) bool {
	if !isUserAction(tc, model.ActionStartGame) {
		return false
	}
	first := tc.Package.Round(0)
	return first != nil && first.Type == t.roundType
}

func (t *startGame) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	return t.run(ctx, tc, plan{
		validate: func() error {
			if len(g.ActivePlayers()) == 0 {
				return model.ErrInsufficientPlayers
			}
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			now := t.env.clock.Now()
			g.StartedAt = &now
			t.env.enterRound(tc, res, 0)
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.roundTimer(res)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts,
				model.GameBroadcast(g.ID, model.EventGameStarted, nil),
				roundStarted(g, tc.Package),
			)
		},
	})
}

// enterRound resets the game state for the round at idx
func (e *env) enterRound(tc *model.TransitionContext, res *model.TransitionResult, idx int) {
	g := tc.Game
	round := tc.Package.Round(idx)
	s := &g.GameState

	s.ResetQuestionProgress()
	s.RoundIndex = idx
	s.RoundType = round.Type
	s.PlayedQuestions = nil
	s.FinalRound = nil

	chooser := lowestScoring(g)
	if round.Type == model.RoundTypeFinal {
		order := make([]model.PlayerID, 0, len(chooser))
		for _, p := range chooser {
			order = append(order, p.ID)
		}
		s.QuestionState = model.QuestionStateThemeElimination
		s.FinalRound = &model.FinalRoundData{
			TurnOrder: order,
			Bids:      map[model.PlayerID]int{},
			Answers:   map[model.PlayerID]model.FinalAnswer{},
		}
		s.CurrentTurnPlayer = nil
		if len(order) > 0 {
			s.CurrentTurnPlayer = ptr(order[0])
		}
		return
	}

	s.QuestionState = model.QuestionStateChoosing
	s.CurrentTurnPlayer = nil
	if len(chooser) > 0 {
		s.CurrentTurnPlayer = ptr(chooser[0].ID)
	}
}

// roundTimer starts the timer the freshly entered round begins with
func (e *env) roundTimer(res *model.TransitionResult) {
	if res.Game.GameState.RoundType == model.RoundTypeFinal {
		e.replaceTimer(res, e.durations.ThemeElimination)
		return
	}
	e.replaceTimer(res, 0)
}

func roundStarted(g *model.Game, pkg *model.Package) model.Broadcast {
	round := pkg.Round(g.GameState.RoundIndex)
	themes := make([]string, 0, len(round.Themes))
	for _, t := range round.Themes {
		themes = append(themes, t.Name)
	}
	return model.GameBroadcast(g.ID, model.EventRoundStarted, model.RoundStartedEvent{
		RoundIndex: g.GameState.RoundIndex,
		Name:       round.Name,
		Type:       round.Type,
		Themes:     themes,
	})
}

// nextStep is what follows a shown answer
type nextStep int

const (
	stepNextQuestion nextStep = iota
	stepNextRound
	stepFinalRound
	stepFinish
)

func nextStepOf(tc *model.TransitionContext) nextStep {
	s := tc.Game.GameState
	if round := currentRound(tc); round != nil && unplayedQuestions(round, s.PlayedQuestions) > 0 {
		return stepNextQuestion
	}
	next := tc.Package.Round(s.RoundIndex + 1)
	switch {
	case next == nil:
		return stepFinish
	case next.Type == model.RoundTypeFinal:
		return stepFinalRound
	default:
		return stepNextRound
	}
}

// advance leaves SHOWING_ANSWER once its timer runs out
type advance struct {
	base
	step nextStep
}

func newAdvance(e *env, step nextStep, to model.GamePhase) *advance {
	return &advance{base: base{from: model.PhaseShowingAnswer, to: to, env: e}, step: step}
}

func (t *advance) CanTransition(tc *model.TransitionContext) bool {
	return timerExpired(tc) && nextStepOf(tc) == t.step
}

func (t *advance) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			switch t.step {
			case stepNextQuestion:
				g.GameState.ResetQuestionProgress()
				g.GameState.QuestionState = model.QuestionStateChoosing
			case stepNextRound, stepFinalRound:
				t.env.enterRound(tc, res, g.GameState.RoundIndex+1)
			case stepFinish:
				t.env.finishGame(res)
			}
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			if t.step == stepFinish {
				t.env.replaceTimer(res, 0)
				return nil
			}
			t.env.roundTimer(res)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			switch t.step {
			case stepNextRound, stepFinalRound:
				res.Broadcasts = append(res.Broadcasts, roundStarted(g, tc.Package))
			case stepFinish:
				res.Broadcasts = append(res.Broadcasts, gameFinished(g))
			}
		},
	})
}

// finishGame stamps the finish time once and requests completion bookkeeping
func (e *env) finishGame(res *model.TransitionResult) {
	g := res.Game
	g.GameState.ResetQuestionProgress()
	g.GameState.IsPaused = false
	if g.SetFinished(e.clock.Now()) {
		res.Mutations = append(res.Mutations, model.GameCompleted(g.ID))
	}
}

func gameFinished(g *model.Game) model.Broadcast {
	return model.GameBroadcast(g.ID, model.EventGameFinished, model.GameFinishedEvent{Scores: g.Standings()})
}
