package actions

import (
	"context"
	"slices"

	"github.com/mcoot/quizgame/internal/model"
)

func (s *Service) questionPick(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseChoosing); err != nil {
		return nil, err
	}
	if p.Role != model.RoleShowman {
		if err := requireActivePlayer(p); err != nil {
			return nil, err
		}
		turn := g.GameState.CurrentTurnPlayer
		if turn == nil || *turn != p.ID {
			return nil, model.ErrNotYourTurn
		}
	}

	payload, err := model.DecodePayload[model.QuestionPickPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	res, pkg, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, model.ErrInvalidPhase
	}

	var c changes
	if cq := g.GameState.CurrentQuestion; cq != nil {
		event := model.QuestionPickedEvent{
			PickedBy:   p.ID,
			ThemeID:    cq.ThemeID,
			QuestionID: cq.QuestionID,
			Price:      cq.Price,
			Type:       cq.Type,
		}
		if round := pkg.Round(g.GameState.RoundIndex); round != nil {
			if theme := round.FindTheme(cq.ThemeID); theme != nil {
				event.ThemeName = theme.Name
			}
		}
		c.broadcast(model.GameBroadcast(g.ID, model.EventQuestionPicked, event))
	}
	return saved(g, res, c), nil
}

func (s *Service) mediaDownloaded(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireActivePlayer(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireRunning(g); err != nil {
		return nil, err
	}
	if err := requirePhase(g, model.PhaseMediaDownloading); err != nil {
		return nil, err
	}

	st := &g.GameState
	if slices.Contains(st.ReadyPlayers, p.ID) {
		return unchanged(g), nil
	}
	st.ReadyPlayers = append(st.ReadyPlayers, p.ID)

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, nil)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventMediaDownloaded, model.PlayerEvent{PlayerID: p.ID}))
	return saved(g, res, c), nil
}

func (s *Service) answerRequest(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseShowing); err != nil {
		return nil, err
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

func (s *Service) answerResult(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseAnswering); err != nil {
		return nil, err
	}
	if g.GameState.AnsweringPlayer == nil {
		return nil, model.ErrNotAnsweringState
	}

	payload, err := model.DecodePayload[model.AnswerResultPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, model.ErrInvalidPhase
	}
	return saved(g, res, changes{}), nil
}

// questionSkip records a player's skip; the showman skipping reveals the
// answer straight away
func (s *Service) questionSkip(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseShowing); err != nil {
		return nil, err
	}

	st := &g.GameState
	if p.Role != model.RoleShowman {
		if err := requireActivePlayer(p); err != nil {
			return nil, err
		}
		if st.HasAnswered(p.ID) {
			return nil, model.ErrAlreadyAnswered
		}
		if slices.Contains(st.SkippedPlayers, p.ID) {
			return nil, model.ErrAlreadySkipped
		}
		st.SkippedPlayers = append(st.SkippedPlayers, p.ID)
	}

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, nil)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventQuestionSkipped, model.PlayerEvent{PlayerID: p.ID, Role: p.Role}))
	return saved(g, res, c), nil
}

func (s *Service) secretTransfer(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseSecretQuestionTransfer); err != nil {
		return nil, err
	}

	payload, err := model.DecodePayload[model.SecretTransferPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, model.ErrInvalidPhase
	}
	return saved(g, res, changes{}), nil
}

// stakeBid places one bid in turn. Bids start at the question price and are
// capped by the bidder's score, or the price if the score is lower.
func (s *Service) stakeBid(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireActivePlayer(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseStakeBidding); err != nil {
		return nil, err
	}
	st := &g.GameState
	stake := st.StakeQuestion
	if stake == nil || st.CurrentQuestion == nil {
		return nil, model.ErrInvalidPhase
	}
	if current, ok := stake.CurrentBidder(); !ok || current != p.ID {
		return nil, model.ErrNotYourTurn
	}

	payload, err := model.DecodePayload[model.StakeBidPayload](ec.Action)
	if err != nil {
		return nil, err
	}

	price := st.CurrentQuestion.Price
	maxBid := max(p.Score, price)
	amount := 0
	switch payload.Type {
	case model.StakeBidPass:
		if stake.HighestBidder == nil && p.ID == stake.PickerID {
			return nil, model.ErrInvalidBid
		}
		stake.Passed = append(stake.Passed, p.ID)
	case model.StakeBidNormal:
		amount = payload.Amount
		if stake.AllIn || amount < price || amount <= stake.HighestBid || amount > maxBid {
			return nil, model.ErrInvalidBid
		}
	case model.StakeBidAllIn:
		amount = maxBid
		if amount <= stake.HighestBid {
			return nil, model.ErrInvalidBid
		}
		stake.AllIn = true
	default:
		return nil, model.ErrInvalidPayload
	}

	if payload.Type != model.StakeBidPass {
		if stake.Bids == nil {
			stake.Bids = make(map[model.PlayerID]int)
		}
		stake.Bids[p.ID] = amount
		stake.HighestBid = amount
		stake.HighestBidder = ptr(p.ID)
	}
	stake.AdvanceBidder(isActive(g))

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}

	event := model.StakeBidEvent{
		PlayerID:      p.ID,
		Type:          payload.Type,
		Amount:        amount,
		HighestBid:    stake.HighestBid,
		HighestBidder: stake.HighestBidder,
	}
	var c changes
	if res == nil {
		if next, ok := stake.CurrentBidder(); ok {
			event.NextBidderID = ptr(next)
		}
		c.mutations = s.restartTimer(g, s.durations.StakeBidding)
	}
	c.broadcast(model.GameBroadcast(g.ID, model.EventStakeBid, event))
	return saved(g, res, c), nil
}
