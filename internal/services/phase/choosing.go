package phase

import (
	"context"
	"slices"

	"github.com/mcoot/quizgame/internal/model"
)

// pickQuestion starts the question picked from the board. It emits no
// broadcast; announcing the pick belongs to the action handler.
type pickQuestion struct {
	base
	questionType model.QuestionType
}

func newPickQuestion(e *env, questionType model.QuestionType, to model.GamePhase) *pickQuestion {
	return &pickQuestion{base: base{from: model.PhaseChoosing, to: to, env: e}, questionType: questionType}
}

// pickedQuestion resolves the question named in the pick payload
func pickedQuestion(tc *model.TransitionContext) (*model.Theme, *model.Question) {
	payload, ok := tc.Payload.(*model.QuestionPickPayload)
	round := currentRound(tc)
	if !ok || round == nil {
		return nil, nil
	}
	return round.FindQuestion(payload.QuestionID)
}

func (t *pickQuestion) CanTransition(tc *model.TransitionContext) bool {
	if !isUserAction(tc, model.ActionQuestionPick) {
		return false
	}
	_, q := pickedQuestion(tc)
	if q == nil {
		// Unknown questions fall to the simple pick, whose validation reports them
		return t.questionType == model.QuestionTypeSimple
	}
	return q.Type == t.questionType
}

func (t *pickQuestion) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	theme, q := pickedQuestion(tc)
	return t.run(ctx, tc, plan{
		validate: func() error {
			if q == nil {
				return model.ErrQuestionNotFound
			}
			if slices.Contains(g.GameState.PlayedQuestions, q.ID) {
				return model.ErrQuestionPlayed
			}
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			s := &g.GameState
			s.ResetQuestionProgress()
			s.CurrentQuestion = &model.CurrentQuestion{
				ThemeID:    theme.ID,
				QuestionID: q.ID,
				Price:      q.Price,
				Type:       q.Type,
			}
			s.PlayedQuestions = append(s.PlayedQuestions, q.ID)

			picker := t.picker(tc)
			switch q.Type {
			case model.QuestionTypeSecret:
				s.QuestionState = model.QuestionStateSecretTransfer
				s.SecretQuestion = &model.SecretQuestionData{PickerID: picker}
			case model.QuestionTypeStake:
				s.QuestionState = model.QuestionStateBidding
				s.StakeQuestion = &model.StakeQuestionData{
					PickerID:     picker,
					BiddingOrder: rotateFrom(g, picker),
					Bids:         map[model.PlayerID]int{},
				}
			default:
				s.QuestionState = model.QuestionStateMediaDownloading
			}
			res.Data = s.CurrentQuestion
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			switch q.Type {
			case model.QuestionTypeSecret:
				t.env.replaceTimer(res, t.env.durations.SecretTransfer)
			case model.QuestionTypeStake:
				t.env.replaceTimer(res, t.env.durations.StakeBidding)
			default:
				t.env.replaceTimer(res, t.env.durations.MediaDownload)
			}
			return nil
		},
	})
}

// picker is the player whose turn it was, even if the showman picked for them
func (t *pickQuestion) picker(tc *model.TransitionContext) model.PlayerID {
	if turn := tc.Game.GameState.CurrentTurnPlayer; turn != nil {
		return *turn
	}
	if tc.TriggeredBy != nil {
		return tc.TriggeredBy.ID
	}
	return ""
}
