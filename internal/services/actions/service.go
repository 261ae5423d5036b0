package actions

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/services/phase"
	"github.com/mcoot/quizgame/internal/storage"
)

// minResumedTimer keeps a resumed timer from being written with a zero TTL
const minResumedTimer = time.Second

// Router picks and runs the phase transition matching a context
type Router interface {
	TryTransition(ctx context.Context, tc *model.TransitionContext) (*model.TransitionResult, error)
}

// Outcome is returned to the author of a successful action
type Outcome struct {
	Phase        model.GamePhase `json:"phase"`
	Transitioned bool            `json:"transitioned"`
	Data         any             `json:"data,omitempty"`
}

// Service implements the handler of every game action
type Service struct {
	packages  storage.PackageStore
	timers    storage.TimerStore
	router    Router
	durations phase.Durations
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates a new action Service
func NewService(
	packages storage.PackageStore,
	timers storage.TimerStore,
	router Router,
	durations phase.Durations,
	clock clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		packages:  packages,
		timers:    timers,
		router:    router,
		durations: durations,
		clock:     clock,
		logger:    logger,
	}
}

// Registry returns a registry with every user and timer action registered
func (s *Service) Registry() *Registry {
	r := NewRegistry()
	r.Register(model.ActionJoinGame, HandlerFunc(s.joinGame))
	r.Register(model.ActionLeaveGame, HandlerFunc(s.leaveGame))
	r.Register(model.ActionDisconnect, HandlerFunc(s.disconnect))
	r.Register(model.ActionStartGame, HandlerFunc(s.startGame))
	r.Register(model.ActionPauseGame, HandlerFunc(s.pauseGame))
	r.Register(model.ActionUnpauseGame, HandlerFunc(s.unpauseGame))
	r.Register(model.ActionQuestionPick, HandlerFunc(s.questionPick))
	r.Register(model.ActionMediaDownloaded, HandlerFunc(s.mediaDownloaded))
	r.Register(model.ActionAnswerRequest, HandlerFunc(s.answerRequest))
	r.Register(model.ActionAnswerResult, HandlerFunc(s.answerResult))
	r.Register(model.ActionQuestionSkip, HandlerFunc(s.questionSkip))
	r.Register(model.ActionSecretTransfer, HandlerFunc(s.secretTransfer))
	r.Register(model.ActionStakeBid, HandlerFunc(s.stakeBid))
	r.Register(model.ActionThemeEliminate, HandlerFunc(s.themeEliminate))
	r.Register(model.ActionFinalBid, HandlerFunc(s.finalBid))
	r.Register(model.ActionFinalAnswer, HandlerFunc(s.finalAnswer))
	r.Register(model.ActionFinalAnswerReview, HandlerFunc(s.finalAnswerReview))
	r.Register(model.ActionScoreChange, HandlerFunc(s.scoreChange))
	r.Register(model.ActionPlayerRestriction, HandlerFunc(s.playerRestriction))
	for _, t := range model.TimeoutActionTypes() {
		r.Register(t, HandlerFunc(s.timeout))
	}
	return r
}

// route loads the game's package and asks the router for a transition
func (s *Service) route(
	ctx context.Context,
	ec *model.ActionExecutionContext,
	trigger model.TransitionTrigger,
	by *model.Player,
	payload any,
) (*model.TransitionResult, *model.Package, error) {
	pkg, err := s.packages.GetPackage(ctx, ec.Game.ID)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.router.TryTransition(ctx, &model.TransitionContext{
		Game:        ec.Game,
		Package:     pkg,
		Trigger:     trigger,
		ActionType:  ec.Action.Type,
		TriggeredBy: by,
		Timer:       ec.Timer,
		Payload:     payload,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, pkg, nil
}

// routeIfRunning consults the router only for a started, unfinished game
func (s *Service) routeIfRunning(
	ctx context.Context,
	ec *model.ActionExecutionContext,
	trigger model.TransitionTrigger,
	by *model.Player,
) (*model.TransitionResult, error) {
	g := ec.Game
	if g.StartedAt == nil || g.IsFinished() {
		return nil, nil
	}
	res, _, err := s.route(ctx, ec, trigger, by, nil)
	return res, err
}

// changes collects what a handler wants persisted besides the game itself
type changes struct {
	mutations  []model.DataMutation
	broadcasts []model.Broadcast
}

func (c *changes) broadcast(b ...model.Broadcast) {
	c.broadcasts = append(c.broadcasts, b...)
}

// saved builds the result of a handler that changed the game. The game is
// saved first, then the handler's and the transition's writes, then the
// broadcasts in the order they were produced.
func saved(g *model.Game, res *model.TransitionResult, c changes) *model.ActionResult {
	mutations := []model.DataMutation{model.SaveGame(g)}
	mutations = append(mutations, c.mutations...)
	broadcasts := c.broadcasts

	out := Outcome{Phase: model.GetGamePhase(g)}
	if res != nil {
		mutations = append(mutations, res.Mutations...)
		broadcasts = append(broadcasts, res.Broadcasts...)
		out.Transitioned = true
		out.Data = res.Data
	}
	if len(broadcasts) > 0 {
		mutations = append(mutations, model.Broadcasts(broadcasts...))
	}

	return &model.ActionResult{
		Success:       true,
		Data:          out,
		Mutations:     mutations,
		BroadcastGame: g,
	}
}

// unchanged is the result of an action that had nothing to do
func unchanged(g *model.Game) *model.ActionResult {
	return &model.ActionResult{
		Success: true,
		Data:    Outcome{Phase: model.GetGamePhase(g)},
	}
}

// restartTimer replaces the active timer, used when a partial action hands
// the turn to the next player
func (s *Service) restartTimer(g *model.Game, d time.Duration) []model.DataMutation {
	t := model.NewTimer(s.clock.Now(), d)
	g.GameState.Timer = t
	return []model.DataMutation{
		model.DeleteTimer(g.ID),
		model.SetTimer(g.ID, t, d),
	}
}

// Validation helpers

func requireRunning(g *model.Game) error {
	if g.IsFinished() {
		return model.ErrGameFinished
	}
	if g.StartedAt == nil {
		return model.ErrGameNotStarted
	}
	return nil
}

func requireUnpaused(g *model.Game) error {
	if g.GameState.IsPaused {
		return model.ErrGamePaused
	}
	return nil
}

func requirePhase(g *model.Game, phases ...model.GamePhase) error {
	if !slices.Contains(phases, model.GetGamePhase(g)) {
		return model.ErrInvalidPhase
	}
	return nil
}

func requireShowman(p *model.Player) error {
	if p.Role != model.RoleShowman || p.Status == model.PlayerStatusLeft {
		return model.ErrNotShowman
	}
	return nil
}

func requireActivePlayer(p *model.Player) error {
	if p.Role != model.RolePlayer {
		return model.ErrNotPlayer
	}
	if p.Restrictions.Banned {
		return model.ErrPlayerBanned
	}
	if p.Restrictions.Restricted {
		return model.ErrPlayerRestricted
	}
	if p.Status != model.PlayerStatusInGame {
		return model.ErrPlayerNotFound
	}
	return nil
}

// requireGameplay checks what every in-round action needs
func requireGameplay(g *model.Game, phases ...model.GamePhase) error {
	if err := requireRunning(g); err != nil {
		return err
	}
	if err := requireUnpaused(g); err != nil {
		return err
	}
	return requirePhase(g, phases...)
}

func isActive(g *model.Game) func(model.PlayerID) bool {
	return func(id model.PlayerID) bool {
		p := g.FindPlayer(id)
		return p != nil && p.IsActivePlayer()
	}
}

func playerEvent(p *model.Player) model.PlayerEvent {
	return model.PlayerEvent{PlayerID: p.ID, Name: p.Name, Role: p.Role, Slot: p.Slot}
}

func ptr[T any](v T) *T {
	return &v
}
