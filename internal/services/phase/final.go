package phase

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

func finalRound(tc *model.TransitionContext) *model.FinalRoundData {
	return tc.Game.GameState.FinalRound
}

// finalTheme returns the theme left after elimination and its question
func finalTheme(tc *model.TransitionContext) (*model.Theme, *model.Question) {
	final := finalRound(tc)
	round := currentRound(tc)
	if final == nil || final.ThemeID == nil || round == nil {
		return nil, nil
	}
	theme := round.FindTheme(*final.ThemeID)
	if theme == nil || len(theme.Questions) == 0 {
		return theme, nil
	}
	return theme, &theme.Questions[0]
}

// themeChosen ends theme elimination once a single theme is left. On timeout
// the first remaining theme is kept.
type themeChosen struct {
	base
	timeout bool
}

func newThemeChosen(e *env, timeout bool) *themeChosen {
	return &themeChosen{
		base:    base{from: model.PhaseThemeElimination, to: model.PhaseFinalBidding, env: e},
		timeout: timeout,
	}
}

func (t *themeChosen) CanTransition(tc *model.TransitionContext) bool {
	final := finalRound(tc)
	round := currentRound(tc)
	if final == nil || round == nil {
		return false
	}
	if t.timeout {
		return timerExpired(tc)
	}
	if !isUserAction(tc, model.ActionThemeEliminate) && !playerLeft(tc) {
		return false
	}
	return len(remainingThemes(round, final.EliminatedThemes)) == 1
}

func (t *themeChosen) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	final := finalRound(tc)
	round := currentRound(tc)
	var kept model.Theme
	return t.run(ctx, tc, plan{
		validate: func() error {
			remaining := remainingThemes(round, final.EliminatedThemes)
			if len(remaining) == 0 {
				return model.ErrThemeNotFound
			}
			kept = remaining[0]
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			for _, theme := range remainingThemes(round, final.EliminatedThemes) {
				if theme.ID != kept.ID {
					final.EliminatedThemes = append(final.EliminatedThemes, theme.ID)
				}
			}
			final.ThemeID = ptr(kept.ID)
			final.Bids = map[model.PlayerID]int{}
			g.GameState.CurrentTurnPlayer = nil
			g.GameState.QuestionState = model.QuestionStateBidding
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, t.env.durations.FinalBidding)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts, model.GameBroadcast(g.ID, model.EventFinalBiddingStarted,
				model.FinalThemeEvent{ThemeID: kept.ID, ThemeName: kept.Name, TimerMs: timerMs(res.Timer)}))
		},
	})
}

// finalBidsPlaced starts the final question once every participant has bid.
// On timeout missing bids default to 1.
type finalBidsPlaced struct {
	base
	timeout bool
}

func newFinalBidsPlaced(e *env, timeout bool) *finalBidsPlaced {
	return &finalBidsPlaced{
		base:    base{from: model.PhaseFinalBidding, to: model.PhaseFinalAnswering, env: e},
		timeout: timeout,
	}
}

func (t *finalBidsPlaced) CanTransition(tc *model.TransitionContext) bool {
	final := finalRound(tc)
	if final == nil {
		return false
	}
	if t.timeout {
		return timerExpired(tc)
	}
	if !isUserAction(tc, model.ActionFinalBid) && !playerLeft(tc) {
		return false
	}
	for _, p := range finalParticipants(tc.Game) {
		if _, ok := final.Bids[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (t *finalBidsPlaced) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	final := finalRound(tc)
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			if final.Bids == nil {
				final.Bids = map[model.PlayerID]int{}
			}
			for _, p := range finalParticipants(g) {
				if _, ok := final.Bids[p.ID]; !ok {
					final.Bids[p.ID] = 1
				}
			}
			final.Answers = map[model.PlayerID]model.FinalAnswer{}
			g.GameState.QuestionState = model.QuestionStateAnswering
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, t.env.durations.FinalAnswering)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			theme, q := finalTheme(tc)
			event := model.FinalThemeEvent{TimerMs: timerMs(res.Timer)}
			if theme != nil {
				event.ThemeID = theme.ID
				event.ThemeName = theme.Name
			}
			if q != nil {
				event.Text = q.Text
			}
			showman := event
			if q != nil {
				showman.Answer = q.Answer
			}
			res.Broadcasts = append(res.Broadcasts, model.RoleBroadcast(g.ID, model.EventFinalAnsweringStarted,
				map[model.PlayerRole]any{
					model.RoleShowman:   showman,
					model.RolePlayer:    event,
					model.RoleSpectator: event,
				}))
		},
	})
}

// finalAnswersGiven moves to review once every participant answered. On
// timeout missing answers are recorded empty.
type finalAnswersGiven struct {
	base
	timeout bool
}

func newFinalAnswersGiven(e *env, timeout bool) *finalAnswersGiven {
	return &finalAnswersGiven{
		base:    base{from: model.PhaseFinalAnswering, to: model.PhaseFinalReviewing, env: e},
		timeout: timeout,
	}
}

func (t *finalAnswersGiven) CanTransition(tc *model.TransitionContext) bool {
	final := finalRound(tc)
	if final == nil {
		return false
	}
	if t.timeout {
		return timerExpired(tc)
	}
	if !isUserAction(tc, model.ActionFinalAnswer) && !playerLeft(tc) {
		return false
	}
	for _, p := range finalParticipants(tc.Game) {
		if _, ok := final.Answers[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (t *finalAnswersGiven) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	final := finalRound(tc)
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			if final.Answers == nil {
				final.Answers = map[model.PlayerID]model.FinalAnswer{}
			}
			for _, p := range finalParticipants(g) {
				if _, ok := final.Answers[p.ID]; !ok {
					final.Answers[p.ID] = model.FinalAnswer{}
				}
			}
			g.GameState.QuestionState = model.QuestionStateReviewing
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, 0)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			players := make([]model.PlayerID, 0, len(final.Answers))
			for _, id := range final.TurnOrder {
				if _, ok := final.Answers[id]; ok {
					players = append(players, id)
				}
			}
			res.Broadcasts = append(res.Broadcasts, model.RoleBroadcast(g.ID, model.EventFinalReviewStarted,
				map[model.PlayerRole]any{
					model.RoleShowman:   model.FinalReviewEvent{Answers: final.Answers, Bids: final.Bids, Players: players},
					model.RolePlayer:    model.FinalReviewEvent{Players: players},
					model.RoleSpectator: model.FinalReviewEvent{Players: players},
				}))
		},
	})
}

// finalReviewed finishes the game once the showman reviewed every answer of
// the players still in the game
type finalReviewed struct {
	base
}

func newFinalReviewed(e *env) *finalReviewed {
	return &finalReviewed{base: base{from: model.PhaseFinalReviewing, to: model.PhaseGameFinished, env: e}}
}

func (t *finalReviewed) CanTransition(tc *model.TransitionContext) bool {
	final := finalRound(tc)
	if final == nil {
		return false
	}
	if !isUserAction(tc, model.ActionFinalAnswerReview) && !playerLeft(tc) {
		return false
	}
	for _, p := range finalParticipants(tc.Game) {
		if a, ok := final.Answers[p.ID]; ok && !a.Reviewed {
			return false
		}
	}
	return true
}

func (t *finalReviewed) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	return t.run(ctx, tc, plan{
		mutate: func(res *model.TransitionResult) error {
			t.env.finishGame(res)
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, 0)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts, gameFinished(tc.Game))
		},
	})
}
