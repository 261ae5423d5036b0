package phase

import (
	"context"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// Transition is a guarded rule moving a game from one phase to another.
// Execute mutates the game in place and never persists anything.
type Transition interface {
	From() model.GamePhase
	To() model.GamePhase
	CanTransition(tc *model.TransitionContext) bool
	Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error)
}

// Router dispatches a transition context to the first matching transition
// registered for the game's current phase
type Router struct {
	transitions map[model.GamePhase][]Transition
}

// NewRouter creates a router with every transition of the game registered.
// Within a phase, guards are tried in the order listed here.
func NewRouter(durations Durations, timers storage.TimerStore, clock clock.Clock) *Router {
	e := &env{durations: durations, timers: timers, clock: clock}
	r := &Router{transitions: make(map[model.GamePhase][]Transition)}

	r.register(
		// WAITING
		newStartGame(e, model.RoundTypeSimple, model.PhaseChoosing),
		newStartGame(e, model.RoundTypeFinal, model.PhaseThemeElimination),

		// CHOOSING
		newPickQuestion(e, model.QuestionTypeSimple, model.PhaseMediaDownloading),
		newPickQuestion(e, model.QuestionTypeSecret, model.PhaseSecretQuestionTransfer),
		newPickQuestion(e, model.QuestionTypeStake, model.PhaseStakeBidding),

		// MEDIA_DOWNLOADING
		newShowQuestion(e, everyoneReady),
		newShowQuestion(e, timerExpired),

		// SHOWING
		newAnswerRequest(e),
		newCloseQuestion(e, timerExpired),
		newCloseQuestion(e, nobodyLeftToAnswer),

		// ANSWERING
		newAnswerCorrect(e),
		newAnswerMissed(e, wrongAnswer, true, true),
		newAnswerMissed(e, wrongAnswer, true, false),
		newAnswerMissed(e, timerExpired, true, true),
		newAnswerMissed(e, timerExpired, true, false),
		newAnswerMissed(e, answererLeft, false, true),
		newAnswerMissed(e, answererLeft, false, false),

		// SHOWING_ANSWER
		newAdvance(e, stepNextQuestion, model.PhaseChoosing),
		newAdvance(e, stepNextRound, model.PhaseChoosing),
		newAdvance(e, stepFinalRound, model.PhaseThemeElimination),
		newAdvance(e, stepFinish, model.PhaseGameFinished),

		// SECRET_QUESTION_TRANSFER
		newSecretTransfer(e, false),
		newSecretTransfer(e, true),

		// STAKE_BIDDING
		newStakeResolved(e, false),
		newStakeResolved(e, true),

		// THEME_ELIMINATION
		newThemeChosen(e, false),
		newThemeChosen(e, true),

		// FINAL_BIDDING
		newFinalBidsPlaced(e, false),
		newFinalBidsPlaced(e, true),

		// FINAL_ANSWERING
		newFinalAnswersGiven(e, false),
		newFinalAnswersGiven(e, true),

		// FINAL_REVIEWING
		newFinalReviewed(e),
	)
	return r
}

func (r *Router) register(transitions ...Transition) {
	for _, t := range transitions {
		r.transitions[t.From()] = append(r.transitions[t.From()], t)
	}
}

// Transitions returns the transitions of a phase in guard order
func (r *Router) Transitions(phase model.GamePhase) []Transition {
	return r.transitions[phase]
}

// TryTransition executes the first transition whose guard matches. A nil
// result with a nil error means the context causes no phase change.
func (r *Router) TryTransition(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	phase := model.GetGamePhase(tc.Game)
	for _, t := range r.transitions[phase] {
		if t.CanTransition(tc) {
			return t.Execute(ctx, tc)
		}
	}
	return nil, nil
}
