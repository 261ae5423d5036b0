package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// Storage is the Redis-backed coordination store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// FetchContext reads the game, active timer and originating session for an
// action in one round trip, refreshing the TTL of the game and its package
// on the way
func (s *Storage) FetchContext(ctx context.Context, action *model.GameAction) (*storage.Prefetch, error) {
	pipe := s.client.Pipeline()
	gameCmd := pipe.HGetAll(ctx, gameKey(action.GameID))
	pipe.PExpire(ctx, gameKey(action.GameID), s.cfg.GameTTL)
	pipe.PExpire(ctx, packageKey(action.GameID), s.cfg.GameTTL)
	timerCmd := pipe.Get(ctx, timerKey(model.TimerTarget{GameID: action.GameID}))
	var sessionCmd *redis.MapStringStringCmd
	if action.SocketID != "" {
		sessionCmd = pipe.HGetAll(ctx, sessionKey(action.SocketID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("fetch context for %s: %w", action.GameID, err)
	}

	prefetch := &storage.Prefetch{}
	if fields := gameCmd.Val(); len(fields) > 0 {
		game, err := model.GameFromHash(fields)
		if err != nil {
			return nil, err
		}
		prefetch.Game = game
	}
	if raw, err := timerCmd.Result(); err == nil && raw != "" {
		timer, err := decodeTimer(raw)
		if err != nil {
			return nil, err
		}
		prefetch.Timer = timer
	}
	if sessionCmd != nil {
		if fields := sessionCmd.Val(); len(fields) > 0 {
			session, err := sessionFromHash(fields)
			if err != nil {
				return nil, err
			}
			prefetch.Session = session
		}
	}
	return prefetch, nil
}

// ApplyMutations writes every persistence mutation in one MULTI/EXEC and
// returns the side effects to run once the write committed
func (s *Storage) ApplyMutations(ctx context.Context, mutations []model.DataMutation) (*storage.ApplyResult, error) {
	result := &storage.ApplyResult{}
	pipe := s.client.TxPipeline()
	writes := 0

	for _, m := range mutations {
		switch m.Kind {
		case model.MutationSaveGame:
			if err := s.queueSaveGame(ctx, pipe, m.Game); err != nil {
				return nil, err
			}
			writes++
		case model.MutationSetTimer:
			raw, err := encodeTimer(m.Timer)
			if err != nil {
				return nil, err
			}
			pipe.Set(ctx, timerKey(m.TimerKey), raw, m.TTL)
			writes++
		case model.MutationDeleteTimer:
			pipe.Del(ctx, timerKey(m.TimerKey))
			writes++
		case model.MutationBroadcast:
			result.Broadcasts = append(result.Broadcasts, m.Broadcasts...)
		case model.MutationGameCompleted:
			result.Completed = append(result.Completed, m.GameID)
		default:
			return nil, fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	if writes > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("apply mutations: %w", err)
		}
	}
	return result, nil
}

// queueSaveGame adds the game hash write to the pipeline and pushes the
// package TTL and the expiration warning marker forward along with the
// game's TTL
func (s *Storage) queueSaveGame(ctx context.Context, pipe redis.Pipeliner, game *model.Game) error {
	fields, err := game.ToHash()
	if err != nil {
		return err
	}
	key := gameKey(game.ID)
	pipe.HSet(ctx, key, fields)
	pipe.PExpire(ctx, key, s.cfg.GameTTL)
	pipe.PExpire(ctx, packageKey(game.ID), s.cfg.GameTTL)
	if ttl := s.cfg.warningTTL(); ttl > 0 && !game.IsFinished() {
		pipe.Set(ctx, expirationWarningKey(game.ID), "1", ttl)
	} else {
		pipe.Del(ctx, expirationWarningKey(game.ID))
	}
	return nil
}

// Game operations

// CreateGame stores a new game with its question package
func (s *Storage) CreateGame(ctx context.Context, game *model.Game, pkg *model.Package) error {
	pkgFields, err := packageToHash(pkg)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	if err := s.queueSaveGame(ctx, pipe, game); err != nil {
		return err
	}
	pipe.HSet(ctx, packageKey(game.ID), pkgFields)
	pipe.PExpire(ctx, packageKey(game.ID), s.cfg.GameTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	fields, err := s.client.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return model.GameFromHash(fields)
}

func (s *Storage) GameExists(ctx context.Context, id model.GameID) (bool, error) {
	n, err := s.client.Exists(ctx, gameKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GameQuestionState reads only the gameState field of the game hash
func (s *Storage) GameQuestionState(ctx context.Context, id model.GameID) (*model.GameState, error) {
	raw, err := s.client.HGet(ctx, gameKey(id), model.GameStateHashField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var state model.GameState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &state, nil
}

func (s *Storage) GetPackage(ctx context.Context, gameID model.GameID) (*model.Package, error) {
	fields, err := s.client.HGetAll(ctx, packageKey(gameID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrPackageNotFound
	}
	return packageFromHash(fields)
}

// Timer operations

// GetTimer returns the active timer, or nil if none is running
func (s *Storage) GetTimer(ctx context.Context, gameID model.GameID) (*model.GameStateTimer, error) {
	return s.getTimer(ctx, model.TimerTarget{GameID: gameID})
}

// GetSavedTimer returns the timer saved for a question state, or nil
func (s *Storage) GetSavedTimer(ctx context.Context, gameID model.GameID, state model.QuestionState) (*model.GameStateTimer, error) {
	return s.getTimer(ctx, model.TimerTarget{GameID: gameID, State: state})
}

func (s *Storage) getTimer(ctx context.Context, target model.TimerTarget) (*model.GameStateTimer, error) {
	raw, err := s.client.Get(ctx, timerKey(target)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeTimer(raw)
}

// Socket session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.SocketSession) error {
	key := sessionKey(session.SocketID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, sessionToHash(session))
	pipe.Expire(ctx, key, s.cfg.SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, socketID string) (*model.SocketSession, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(socketID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrSessionNotFound
	}
	return sessionFromHash(fields)
}

// TouchSession pushes the session's expiry forward. It returns false if the
// session is already gone.
func (s *Storage) TouchSession(ctx context.Context, socketID string) (bool, error) {
	return s.client.Expire(ctx, sessionKey(socketID), s.cfg.SessionTTL).Result()
}

func (s *Storage) DeleteSession(ctx context.Context, socketID string) error {
	return s.client.Del(ctx, sessionKey(socketID)).Err()
}
