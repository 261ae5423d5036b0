package actions

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizgame/internal/model"
)

func (s *Service) joinGame(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	session, err := ec.RequireSession()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if g.IsFinished() {
		return nil, model.ErrGameFinished
	}

	payload, err := model.DecodePayload[model.JoinGamePayload](ec.Action)
	if err != nil {
		return nil, err
	}
	role := payload.Role
	switch role {
	case "":
		role = model.RolePlayer
	case model.RolePlayer, model.RoleShowman, model.RoleSpectator:
	default:
		return nil, model.ErrInvalidPayload
	}

	p := g.FindPlayer(session.UserID)
	if p == nil {
		if g.IsPrivate {
			if err := bcrypt.CompareHashAndPassword([]byte(g.PasswordHash), []byte(payload.Password)); err != nil {
				return nil, model.ErrWrongPassword
			}
		}
		p = &model.Player{
			ID:       session.UserID,
			Name:     payload.Name,
			Role:     role,
			Status:   model.PlayerStatusLeft,
			JoinedAt: s.clock.Now(),
		}
		if p.Name == "" {
			p.Name = string(p.ID)
		}
		if err := seat(g, p); err != nil {
			return nil, err
		}
		g.Players = append(g.Players, p)
	} else {
		if p.Restrictions.Banned {
			return nil, model.ErrPlayerBanned
		}
		if p.Status == model.PlayerStatusLeft {
			p.Role = role
			if err := seat(g, p); err != nil {
				return nil, err
			}
		}
		if payload.Name != "" {
			p.Name = payload.Name
		}
	}
	p.Status = model.PlayerStatusInGame

	var c changes
	c.broadcast(
		model.SocketBroadcast(session.SocketID, model.EventGameJoined, model.GameJoinedEvent{
			GameID:   g.ID,
			PlayerID: p.ID,
			Role:     p.Role,
			Game:     model.GameStateView(g, p.Role),
		}),
		model.GameBroadcast(g.ID, model.EventPlayerJoined, playerEvent(p)),
	)
	return saved(g, nil, c), nil
}

// seat checks the role is available to a (re)joining participant and
// assigns a slot to players. p must not count as a remaining participant yet.
func seat(g *model.Game, p *model.Player) error {
	p.Slot = nil
	switch p.Role {
	case model.RoleShowman:
		if showman := g.Showman(); showman != nil && showman.ID != p.ID {
			return model.ErrShowmanTaken
		}
	case model.RolePlayer:
		slot := g.FreeSlot()
		if slot < 0 {
			return model.ErrGameFull
		}
		p.Slot = &slot
	}
	return nil
}

func (s *Service) leaveGame(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	p, err := ec.RequirePlayer()
	if err != nil {
		return nil, err
	}
	g := ec.Game
	if p.Status == model.PlayerStatusLeft {
		return unchanged(g), nil
	}

	p.Status = model.PlayerStatusLeft
	passTurn(g, p.ID)
	res, err := s.routeIfRunning(ctx, ec, model.TriggerPlayerLeft, p)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(
		model.SocketBroadcast(ec.Session.SocketID, model.EventGameLeft, model.PlayerEvent{PlayerID: p.ID}),
		model.GameBroadcast(g.ID, model.EventPlayerLeft, playerEvent(p)),
	)
	return saved(g, res, c), nil
}

// disconnect tolerates a session that is already gone; the author is
// resolved from the action when it is
func (s *Service) disconnect(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	g := ec.Game
	p := ec.CurrentPlayer
	if p == nil || p.Status != model.PlayerStatusInGame {
		return unchanged(g), nil
	}

	p.Status = model.PlayerStatusDisconnected
	passTurn(g, p.ID)
	res, err := s.routeIfRunning(ctx, ec, model.TriggerPlayerLeft, p)
	if err != nil {
		return nil, err
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventPlayerDisconnected, playerEvent(p)))
	return saved(g, res, c), nil
}

func (s *Service) playerRestriction(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
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

	payload, err := model.DecodePayload[model.PlayerRestrictionPayload](ec.Action)
	if err != nil {
		return nil, err
	}
	target := g.FindPlayer(payload.PlayerID)
	if target == nil {
		return nil, model.ErrPlayerNotFound
	}
	if target.ID == p.ID {
		return nil, model.ErrCannotTargetSelf
	}

	wasActive := target.IsActive()
	target.Restrictions = model.Restrictions{
		Muted:      payload.Muted,
		Restricted: payload.Restricted,
		Banned:     payload.Banned,
	}

	var c changes
	c.broadcast(model.GameBroadcast(g.ID, model.EventPlayerRestricted, model.PlayerRestrictedEvent{
		PlayerID:     target.ID,
		Restrictions: target.Restrictions,
	}))
	if target.Restrictions.Banned && target.Status != model.PlayerStatusLeft {
		target.Status = model.PlayerStatusLeft
		c.broadcast(model.GameBroadcast(g.ID, model.EventPlayerLeft, playerEvent(target)))
	}

	var res *model.TransitionResult
	if wasActive && !target.IsActive() {
		passTurn(g, target.ID)
		if res, err = s.routeIfRunning(ctx, ec, model.TriggerPlayerLeft, target); err != nil {
			return nil, err
		}
	}
	return saved(g, res, c), nil
}

// passTurn moves any turn the leaving player holds to whoever is next
func passTurn(g *model.Game, leaver model.PlayerID) {
	st := &g.GameState
	active := isActive(g)

	if st.StakeQuestion != nil {
		if current, ok := st.StakeQuestion.CurrentBidder(); ok && current == leaver {
			st.StakeQuestion.AdvanceBidder(active)
		}
	}

	if st.CurrentTurnPlayer == nil || *st.CurrentTurnPlayer != leaver {
		return
	}
	if st.FinalRound != nil && st.QuestionState == model.QuestionStateThemeElimination {
		nextFinalTurn(g)
		return
	}
	st.CurrentTurnPlayer = nil
	if players := g.ActivePlayers(); len(players) > 0 {
		st.CurrentTurnPlayer = ptr(players[0].ID)
	}
}

// nextFinalTurn hands theme elimination to the next participant in turn order
func nextFinalTurn(g *model.Game) {
	final := g.GameState.FinalRound
	active := isActive(g)
	n := len(final.TurnOrder)
	for step := 1; step <= n; step++ {
		idx := (final.TurnIndex + step) % n
		if active(final.TurnOrder[idx]) {
			final.TurnIndex = idx
			g.GameState.CurrentTurnPlayer = ptr(final.TurnOrder[idx])
			return
		}
	}
	g.GameState.CurrentTurnPlayer = nil
}
