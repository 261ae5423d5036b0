package lobby

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

const (
	// GameIDLength is the length of generated game ids
	GameIDLength = 4
	// GameIDAlphabet is the characters used in game ids (avoid confusing chars)
	GameIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultMaxPlayers = 6
	maxIDAttempts     = 32
)

// CreateGameParams describes a new game
type CreateGameParams struct {
	Title      string
	CreatedBy  model.PlayerID
	Password   string // empty for a public game
	MaxPlayers int
	Package    *model.Package
}

// GameInfo is a game as seen from outside the action pipeline
type GameInfo struct {
	Game  *model.Game
	Phase model.GamePhase
}

// QueueInfo describes the action backlog of a game
type QueueInfo struct {
	GameID  model.GameID
	Locked  bool
	Length  int64
	Pending []*model.GameAction
}

// Controller creates games and answers read-only queries about them. Every
// change to an existing game goes through the action executor instead.
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a new Controller
func NewController(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "lobby")),
	}
}

// CreateGame stores a new game waiting for players. The creator joins it
// with a JOIN_GAME action like everybody else.
func (c *Controller) CreateGame(ctx context.Context, params CreateGameParams) (*model.Game, error) {
	if params.Package == nil || len(params.Package.Rounds) == 0 {
		return nil, model.ErrInvalidPackage
	}
	if params.MaxPlayers <= 0 {
		params.MaxPlayers = DefaultMaxPlayers
	}

	id, err := c.newGameID(ctx)
	if err != nil {
		return nil, err
	}

	game := &model.Game{
		ID:         id,
		Title:      params.Title,
		CreatedBy:  params.CreatedBy,
		MaxPlayers: params.MaxPlayers,
		PackageID:  params.Package.ID,
		Players:    []*model.Player{},
		GameState: model.GameState{
			RoundType: params.Package.Rounds[0].Type,
		},
		CreatedAt: c.clock.Now(),
	}
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash game password: %w", err)
		}
		game.IsPrivate = true
		game.PasswordHash = string(hash)
	}

	if err := c.storage.CreateGame(ctx, game, params.Package); err != nil {
		return nil, fmt.Errorf("store game: %w", err)
	}
	c.logger.Info("game created",
		slog.String("game_id", string(id)),
		slog.String("package_id", params.Package.ID),
		slog.Bool("private", game.IsPrivate))
	return game, nil
}

// newGameID generates an id no stored game uses
func (c *Controller) newGameID(ctx context.Context) (model.GameID, error) {
	for range maxIDAttempts {
		id := model.GameID(c.random.String(GameIDLength, GameIDAlphabet))
		if id == "" {
			continue
		}
		exists, err := c.storage.GameExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free game id after %d attempts", maxIDAttempts)
}

// GetGame retrieves a game with its derived phase
func (c *Controller) GetGame(ctx context.Context, id model.GameID) (*GameInfo, error) {
	game, err := c.storage.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GameInfo{Game: game, Phase: model.GetGamePhase(game)}, nil
}

// Queue reports the lock and pending actions of a game
func (c *Controller) Queue(ctx context.Context, id model.GameID) (*QueueInfo, error) {
	exists, err := c.storage.GameExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrGameNotFound
	}

	locked, err := c.storage.LockHeld(ctx, id)
	if err != nil {
		return nil, err
	}
	length, err := c.storage.QueueLength(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := c.storage.QueuedActions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QueueInfo{GameID: id, Locked: locked, Length: length, Pending: pending}, nil
}
