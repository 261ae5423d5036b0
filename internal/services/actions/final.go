package actions

import (
	"context"
	"slices"

	"github.com/mcoot/quizgame/internal/model"
)

// finalParticipant returns the final round state if p takes part in it
func finalParticipant(g *model.Game, p *model.Player) (*model.FinalRoundData, error) {
	if err := requireActivePlayer(p); err != nil {
		return nil, err
	}
	final := g.GameState.FinalRound
	if final == nil {
		return nil, model.ErrInvalidPhase
	}
	if !slices.Contains(final.TurnOrder, p.ID) {
		return nil, model.ErrNotPlayer
	}
	return final, nil
}

// themeEliminate removes one final round theme and passes the turn on. The
// last remaining theme becomes the final question.
func (s *Service) themeEliminate(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseThemeElimination); err != nil {
		return nil, err
	}
	st := &g.GameState
	final := st.FinalRound
	if final == nil {
		return nil, model.ErrInvalidPhase
	}
	if p.Role != model.RoleShowman {
		if err := requireActivePlayer(p); err != nil {
			return nil, err
		}
		if st.CurrentTurnPlayer == nil || *st.CurrentTurnPlayer != p.ID {
			return nil, model.ErrNotYourTurn
		}
	}

	payload, err := model.DecodePayload[model.ThemeEliminatePayload](ec.Action)
	if err != nil {
		return nil, err
	}
	pkg, err := s.packages.GetPackage(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	round := pkg.Round(st.RoundIndex)
	if round == nil || round.FindTheme(payload.ThemeID) == nil {
		return nil, model.ErrThemeNotFound
	}
	if slices.Contains(final.EliminatedThemes, payload.ThemeID) {
		return nil, model.ErrThemeEliminated
	}
	if len(round.Themes)-len(final.EliminatedThemes) <= 1 {
		return nil, model.ErrThemeEliminated
	}

	final.EliminatedThemes = append(final.EliminatedThemes, payload.ThemeID)
	eliminatedBy := st.CurrentTurnPlayer
	nextFinalTurn(g)

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}

	event := model.ThemeEliminatedEvent{ThemeID: payload.ThemeID, EliminatedBy: eliminatedBy}
	var c changes
	if res == nil {
		event.NextPlayerID = st.CurrentTurnPlayer
		c.mutations = s.restartTimer(g, s.durations.ThemeElimination)
	}
	c.broadcast(model.GameBroadcast(g.ID, model.EventThemeEliminated, event))
	return saved(g, res, c), nil
}

// finalBid accepts a stake between 1 and the player's score, or 1 for a
// player without points
func (s *Service) finalBid(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseFinalBidding); err != nil {
		return nil, err
	}
	final, err := finalParticipant(g, p)
	if err != nil {
		return nil, err
	}
	if _, ok := final.Bids[p.ID]; ok {
		return nil, model.ErrAlreadyBid
	}

	payload, err := model.DecodePayload[model.FinalBidPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	if payload.Amount < 1 || payload.Amount > max(p.Score, 1) {
		return nil, model.ErrInvalidBid
	}
	if final.Bids == nil {
		final.Bids = make(map[model.PlayerID]int)
	}
	final.Bids[p.ID] = payload.Amount

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventFinalBidSubmitted, model.FinalSubmissionEvent{PlayerID: p.ID}))
	return saved(g, res, c), nil
}

func (s *Service) finalAnswer(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseFinalAnswering); err != nil {
		return nil, err
	}
	final, err := finalParticipant(g, p)
	if err != nil {
		return nil, err
	}
	if _, ok := final.Answers[p.ID]; ok {
		return nil, model.ErrAlreadyAnswered
	}

	payload, err := model.DecodePayload[model.FinalAnswerPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	if final.Answers == nil {
		final.Answers = make(map[model.PlayerID]model.FinalAnswer)
	}
	final.Answers[p.ID] = model.FinalAnswer{Text: payload.Answer}

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventFinalAnswerSubmitted, model.FinalSubmissionEvent{PlayerID: p.ID}))
	return saved(g, res, c), nil
}

// finalAnswerReview settles one answer: the bid is won or lost
func (s *Service) finalAnswerReview(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	if err := requireShowman(p); err != nil {
		return nil, err
	}
	g := ec.Game
	if err := requireGameplay(g, model.PhaseFinalReviewing); err != nil {
		return nil, err
	}
	final := g.GameState.FinalRound
	if final == nil {
		return nil, model.ErrInvalidPhase
	}

	payload, err := model.DecodePayload[model.FinalAnswerReviewPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	answer, ok := final.Answers[payload.PlayerID]
	target := g.FindPlayer(payload.PlayerID)
	if !ok || target == nil {
		return nil, model.ErrPlayerNotFound
	}
	if answer.Reviewed {
		return nil, model.ErrAlreadyReviewed
	}

	delta := final.Bids[target.ID]
	if !payload.Correct {
		delta = -delta
	}
	target.Score += delta
	answer.Reviewed = true
	answer.Correct = payload.Correct
	final.Answers[target.ID] = answer

	res, _, err := s.route(ctx, ec, model.TriggerUserAction, p, &payload)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventFinalAnswerReviewed, model.FinalAnswerReviewedEvent{
		PlayerID:   target.ID,
		Correct:    payload.Correct,
		ScoreDelta: delta,
		Score:      target.Score,
		Answer:     answer.Text,
	}))
	return saved(g, res, c), nil
}
