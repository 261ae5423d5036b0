package phase

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

// secretTransfer hands a secret question to the player who must answer it.
// On timeout the first other player by slot receives it, or the picker if
// nobody else is left.
type secretTransfer struct {
	base
	timeout bool
}

func newSecretTransfer(e *env, timeout bool) *secretTransfer {
	return &secretTransfer{
		base:    base{from: model.PhaseSecretQuestionTransfer, to: model.PhaseAnswering, env: e},
		timeout: timeout,
	}
}

func (t *secretTransfer) CanTransition(tc *model.TransitionContext) bool {
	if t.timeout {
		return timerExpired(tc)
	}
	return isUserAction(tc, model.ActionSecretTransfer)
}

func (t *secretTransfer) receiver(tc *model.TransitionContext) (model.PlayerID, error) {
	g := tc.Game
	secret := g.GameState.SecretQuestion
	if secret == nil {
		return "", model.ErrInvalidPhase
	}

	if t.timeout {
		for _, p := range g.ActivePlayers() {
			if p.ID != secret.PickerID {
				return p.ID, nil
			}
		}
		if inGame(g)(secret.PickerID) {
			return secret.PickerID, nil
		}
		return "", model.ErrInsufficientPlayers
	}

	by := tc.TriggeredBy
	if by == nil || (by.ID != secret.PickerID && by.Role != model.RoleShowman) {
		return "", model.ErrNotYourTurn
	}
	payload, ok := tc.Payload.(*model.SecretTransferPayload)
	if !ok {
		return "", model.ErrInvalidPayload
	}
	if payload.TargetPlayerID == secret.PickerID {
		return "", model.ErrCannotTargetSelf
	}
	if !inGame(g)(payload.TargetPlayerID) {
		return "", model.ErrPlayerNotFound
	}
	return payload.TargetPlayerID, nil
}

func (t *secretTransfer) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	var target model.PlayerID
	return t.run(ctx, tc, plan{
		validate: func() error {
			var err error
			target, err = t.receiver(tc)
			return err
		},
		mutate: func(res *model.TransitionResult) error {
			s := &g.GameState
			s.SecretQuestion.ReceiverID = ptr(target)
			s.AnsweringPlayer = ptr(target)
			s.QuestionState = model.QuestionStateAnswering
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, t.env.durations.Answering)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts,
				model.GameBroadcast(g.ID, model.EventSecretTransferred, model.SecretTransferredEvent{
					FromPlayerID: g.GameState.SecretQuestion.PickerID,
					ToPlayerID:   target,
				}),
				questionShown(tc, res),
			)
		},
	})
}

// stakeResolved closes the bidding of a stake question. The highest bidder
// answers for their bid; without any bid the picker answers at the nominal price.
type stakeResolved struct {
	base
	timeout bool
}

func newStakeResolved(e *env, timeout bool) *stakeResolved {
	return &stakeResolved{
		base:    base{from: model.PhaseStakeBidding, to: model.PhaseAnswering, env: e},
		timeout: timeout,
	}
}

func (t *stakeResolved) CanTransition(tc *model.TransitionContext) bool {
	stake := tc.Game.GameState.StakeQuestion
	if stake == nil {
		return false
	}
	if t.timeout {
		return timerExpired(tc)
	}
	if !isUserAction(tc, model.ActionStakeBid) && !playerLeft(tc) {
		return false
	}
	return stake.IsComplete(inGame(tc.Game))
}

func winnerOf(g *model.Game) (model.PlayerID, int, bool) {
	stake := g.GameState.StakeQuestion
	active := inGame(g)
	if stake.HighestBidder != nil && active(*stake.HighestBidder) {
		return *stake.HighestBidder, stake.HighestBid, true
	}
	price := g.GameState.CurrentQuestion.Price
	if active(stake.PickerID) {
		return stake.PickerID, price, true
	}
	if contenders := stake.Contenders(active); len(contenders) > 0 {
		return contenders[0], price, true
	}
	return "", 0, false
}

func (t *stakeResolved) Execute(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error) {
	g := tc.Game
	var winner model.PlayerID
	var bid int
	return t.run(ctx, tc, plan{
		validate: func() error {
			var ok bool
			if winner, bid, ok = winnerOf(g); !ok {
				return model.ErrInsufficientPlayers
			}
			return nil
		},
		mutate: func(res *model.TransitionResult) error {
			s := &g.GameState
			s.StakeQuestion.WinnerID = ptr(winner)
			s.CurrentQuestion.Price = bid
			s.AnsweringPlayer = ptr(winner)
			s.QuestionState = model.QuestionStateAnswering
			return nil
		},
		timers: func(_ context.Context, res *model.TransitionResult) error {
			t.env.replaceTimer(res, t.env.durations.Answering)
			return nil
		},
		broadcasts: func(res *model.TransitionResult) {
			res.Broadcasts = append(res.Broadcasts,
				model.GameBroadcast(g.ID, model.EventStakeWinner, model.StakeWinnerEvent{PlayerID: winner, Bid: bid}),
				questionShown(tc, res),
			)
		},
	})
}
