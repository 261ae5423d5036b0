package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GameTTL = time.Hour
	cfg.ExpirationWarningLead = 10 * time.Minute

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) newGame(id model.GameID) *model.Game {
	slot := 0
	return &model.Game{
		ID:         id,
		Title:      "Friday quiz",
		CreatedBy:  "showman-1",
		MaxPlayers: 4,
		PackageID:  "pkg-1",
		Players: []*model.Player{
			{ID: "showman-1", Name: "Sam", Role: model.RoleShowman, Status: model.PlayerStatusInGame, JoinedAt: s.now},
			{ID: "player-1", Name: "Alice", Role: model.RolePlayer, Slot: &slot, Status: model.PlayerStatusInGame, JoinedAt: s.now},
		},
		GameState: model.GameState{
			RoundType:     model.RoundTypeSimple,
			QuestionState: model.QuestionStateChoosing,
		},
		CreatedAt: s.now,
	}
}

func (s *StorageSuite) newAction(gameID model.GameID, id, socketID string) *model.GameAction {
	return &model.GameAction{
		ID:        id,
		Type:      model.ActionQuestionPick,
		GameID:    gameID,
		SocketID:  socketID,
		Timestamp: s.now,
		Payload:   json.RawMessage(`{"questionId":1}`),
	}
}

// Lock tests

func (s *StorageSuite) TestAcquireIsExclusive() {
	ok, err := s.storage.Acquire(s.ctx, "ABCD", "token-a")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.Acquire(s.ctx, "ABCD", "token-b")
	s.Require().NoError(err)
	s.False(ok, "second acquire within the TTL must fail")

	s.Equal("token-a", mustGet(s.mini, lockKey("ABCD")))
	s.True(s.mini.TTL(lockKey("ABCD")) > 0)
}

func (s *StorageSuite) TestAcquireDifferentGamesIndependently() {
	ok, err := s.storage.Acquire(s.ctx, "ABCD", "token-a")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.Acquire(s.ctx, "WXYZ", "token-b")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *StorageSuite) TestReleaseWithOwnToken() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")

	released, err := s.storage.Release(s.ctx, "ABCD", "token-a")
	s.Require().NoError(err)
	s.True(released)
	s.False(s.mini.Exists(lockKey("ABCD")))
}

func (s *StorageSuite) TestReleaseWithStaleTokenIsNoop() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")

	// The lock expires and another process takes it
	s.mini.FastForward(s.storage.cfg.LockTTL + time.Millisecond)
	ok, err := s.storage.Acquire(s.ctx, "ABCD", "token-b")
	s.Require().NoError(err)
	s.True(ok)

	released, err := s.storage.Release(s.ctx, "ABCD", "token-a")
	s.Require().NoError(err)
	s.False(released)
	s.Equal("token-b", mustGet(s.mini, lockKey("ABCD")))
}

func (s *StorageSuite) TestReleaseWithoutLock() {
	released, err := s.storage.Release(s.ctx, "ABCD", "token-a")
	s.Require().NoError(err)
	s.False(released)
}

// AcquireOrEnqueue tests

func (s *StorageSuite) TestAcquireOrEnqueueAcquiresFreeLock() {
	status, err := s.storage.AcquireOrEnqueue(s.ctx, s.newAction("ABCD", "a1", ""), "token-a")
	s.Require().NoError(err)
	s.Equal(storage.AcquireStatusAcquired, status)

	n, err := s.storage.QueueLength(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StorageSuite) TestAcquireOrEnqueueEnqueuesWhenHeld() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")

	status, err := s.storage.AcquireOrEnqueue(s.ctx, s.newAction("ABCD", "a2", ""), "token-b")
	s.Require().NoError(err)
	s.Equal(storage.AcquireStatusEnqueued, status)

	queued, err := s.storage.QueuedActions(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Require().Len(queued, 1)
	s.Equal("a2", queued[0].ID)
	s.Equal("token-a", mustGet(s.mini, lockKey("ABCD")))
}

func (s *StorageSuite) TestAcquireOrEnqueueKeepsBacklogOrder() {
	// A holder crashed and left an action behind
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "orphan", "")))

	status, err := s.storage.AcquireOrEnqueue(s.ctx, s.newAction("ABCD", "mine", ""), "token-a")
	s.Require().NoError(err)
	s.Equal(storage.AcquireStatusAcquiredWithBacklog, status)

	queued, err := s.storage.QueuedActions(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Require().Len(queued, 2)
	s.Equal("orphan", queued[0].ID)
	s.Equal("mine", queued[1].ID)
}

// Queue tests

func (s *StorageSuite) TestDrainIsFIFO() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "t0")
	for _, id := range []string{"A", "B", "C"} {
		s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", id, "")))
	}

	var order []string
	token := "t0"
	for i := 1; ; i++ {
		next := "t" + string(rune('0'+i))
		res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", token, next)
		s.Require().NoError(err)
		if res.Status == storage.DrainStatusDrained {
			break
		}
		s.Require().Equal(storage.DrainStatusNext, res.Status)
		order = append(order, res.Action.ID)
		s.Equal(next, mustGet(s.mini, lockKey("ABCD")), "lock is handed to the new token")
		token = next
	}

	s.Equal([]string{"A", "B", "C"}, order)
}

func (s *StorageSuite) TestDrainOnEmptyQueueDeletesLock() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")

	res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-a2")
	s.Require().NoError(err)
	s.Equal(storage.DrainStatusDrained, res.Status)
	s.False(s.mini.Exists(lockKey("ABCD")))

	// Another process can take the lock straight away
	ok, err := s.storage.Acquire(s.ctx, "ABCD", "token-b")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *StorageSuite) TestDrainWithForeignTokenIsLost() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-b")
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "A", "")))

	res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-a2")
	s.Require().NoError(err)
	s.Equal(storage.DrainStatusLost, res.Status)

	n, _ := s.storage.QueueLength(s.ctx, "ABCD")
	s.Equal(int64(1), n, "a lost drain must not pop")
	s.Equal("token-b", mustGet(s.mini, lockKey("ABCD")))
}

func (s *StorageSuite) TestDrainPrefetchesContext() {
	game := s.newGame("ABCD")
	s.Require().NoError(s.storage.CreateGame(s.ctx, game, &model.Package{ID: "pkg-1"}))
	s.Require().NoError(s.storage.SaveSession(s.ctx, &model.SocketSession{
		SocketID: "sock-1", UserID: "player-1", GameID: "ABCD", Role: model.RolePlayer, ConnectedAt: s.now,
	}))
	timer := model.NewTimer(s.now, 30*time.Second)
	_, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{model.SetTimer("ABCD", timer, 30*time.Second)})
	s.Require().NoError(err)

	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "A", "sock-1")))

	res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-b")
	s.Require().NoError(err)
	s.Require().Equal(storage.DrainStatusNext, res.Status)
	s.Require().NotNil(res.Prefetch.Game)
	s.Equal("Friday quiz", res.Prefetch.Game.Title)
	s.Len(res.Prefetch.Game.Players, 2)
	s.Require().NotNil(res.Prefetch.Timer)
	s.Equal(int64(30000), res.Prefetch.Timer.DurationMs)
	s.Require().NotNil(res.Prefetch.Session)
	s.Equal(model.PlayerID("player-1"), res.Prefetch.Session.UserID)
	s.Equal(json.RawMessage(`{"questionId":1}`), res.Action.Payload)
}

func (s *StorageSuite) TestDrainHandsOverLockPastUndecodableEntry() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")
	_, err := s.mini.Rpush(queueKey("ABCD"), "{not json")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "A", "")))

	res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-b")
	s.Require().NoError(err)
	s.Equal(storage.DrainStatusNext, res.Status)
	s.Error(res.Err)
	s.Nil(res.Action)
	owner, _ := s.mini.Get(lockKey("ABCD"))
	s.Equal("token-b", owner)

	res, err = s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-b", "token-c")
	s.Require().NoError(err)
	s.Require().NoError(res.Err)
	s.Equal("A", res.Action.ID)
}

func (s *StorageSuite) TestDrainWithoutSessionOrTimer() {
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "A", "gone-socket")))

	res, err := s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-b")
	s.Require().NoError(err)
	s.Require().Equal(storage.DrainStatusNext, res.Status)
	s.Nil(res.Prefetch.Game)
	s.Nil(res.Prefetch.Timer)
	s.Nil(res.Prefetch.Session)
}

// Context and mutation tests

func (s *StorageSuite) TestFetchContext() {
	game := s.newGame("ABCD")
	s.Require().NoError(s.storage.CreateGame(s.ctx, game, &model.Package{ID: "pkg-1"}))
	s.Require().NoError(s.storage.SaveSession(s.ctx, &model.SocketSession{
		SocketID: "sock-1", UserID: "player-1", ConnectedAt: s.now,
	}))

	prefetch, err := s.storage.FetchContext(s.ctx, s.newAction("ABCD", "A", "sock-1"))
	s.Require().NoError(err)
	s.Require().NotNil(prefetch.Game)
	s.Equal(model.GameID("ABCD"), prefetch.Game.ID)
	s.Nil(prefetch.Timer)
	s.Require().NotNil(prefetch.Session)
	s.Equal("sock-1", prefetch.Session.SocketID)
}

func (s *StorageSuite) TestFetchContextForMissingGame() {
	prefetch, err := s.storage.FetchContext(s.ctx, s.newAction("NOPE", "A", ""))
	s.Require().NoError(err)
	s.Nil(prefetch.Game)
	s.Nil(prefetch.Session)
}

func (s *StorageSuite) TestApplyMutations() {
	game := s.newGame("ABCD")
	game.GameState.QuestionState = model.QuestionStateShowing
	active := model.NewTimer(s.now, time.Minute)
	saved := model.NewTimer(s.now, 20*time.Second)

	res, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{
		model.SaveGame(game),
		model.SetTimer("ABCD", active, time.Minute),
		model.SaveTimer("ABCD", model.QuestionStateShowing, saved),
		model.Broadcasts(model.GameBroadcast("ABCD", model.EventQuestionShown, nil)),
		model.GameCompleted("ABCD"),
	})
	s.Require().NoError(err)
	s.Require().Len(res.Broadcasts, 1)
	s.Equal(model.EventQuestionShown, res.Broadcasts[0].Event)
	s.Equal([]model.GameID{"ABCD"}, res.Completed)

	stored, err := s.storage.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.QuestionStateShowing, stored.GameState.QuestionState)

	s.Equal(time.Minute, s.mini.TTL("timer:ABCD"))
	s.True(s.mini.Exists("timer:SHOWING:ABCD"))
	s.Equal(time.Duration(0), s.mini.TTL("timer:SHOWING:ABCD"), "saved timers never expire")

	_, err = s.storage.ApplyMutations(s.ctx, []model.DataMutation{
		model.DeleteTimer("ABCD"),
		model.DeleteSavedTimer("ABCD", model.QuestionStateShowing),
	})
	s.Require().NoError(err)
	s.False(s.mini.Exists("timer:ABCD"))
	s.False(s.mini.Exists("timer:SHOWING:ABCD"))
}

func (s *StorageSuite) TestSaveGameSchedulesExpirationWarning() {
	_, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{model.SaveGame(s.newGame("ABCD"))})
	s.Require().NoError(err)

	s.Equal(time.Hour, s.mini.TTL(gameKey("ABCD")))
	s.Equal(50*time.Minute, s.mini.TTL("game-expiration-warning:ABCD"))
}

func (s *StorageSuite) TestPackageLivesAsLongAsItsGame() {
	game := s.newGame("ABCD")
	s.Require().NoError(s.storage.CreateGame(s.ctx, game, &model.Package{ID: "pkg-1"}))
	s.Equal(time.Hour, s.mini.TTL(packageKey("ABCD")))

	s.mini.FastForward(40 * time.Minute)
	_, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{model.SaveGame(game)})
	s.Require().NoError(err)
	s.Equal(time.Hour, s.mini.TTL(packageKey("ABCD")))

	s.mini.FastForward(40 * time.Minute)
	_, err = s.storage.FetchContext(s.ctx, s.newAction("ABCD", "A", ""))
	s.Require().NoError(err)
	s.Equal(time.Hour, s.mini.TTL(packageKey("ABCD")))

	s.mini.FastForward(40 * time.Minute)
	_, _ = s.storage.Acquire(s.ctx, "ABCD", "token-a")
	s.Require().NoError(s.storage.Enqueue(s.ctx, s.newAction("ABCD", "B", "")))
	_, err = s.storage.DequeueAndReacquire(s.ctx, "ABCD", "token-a", "token-b")
	s.Require().NoError(err)
	s.Equal(time.Hour, s.mini.TTL(packageKey("ABCD")))

	_, err = s.storage.GetPackage(s.ctx, "ABCD")
	s.NoError(err)
}

func (s *StorageSuite) TestSaveFinishedGameClearsExpirationWarning() {
	game := s.newGame("ABCD")
	_, _ = s.storage.ApplyMutations(s.ctx, []model.DataMutation{model.SaveGame(game)})

	game.SetFinished(s.now)
	_, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{model.SaveGame(game)})
	s.Require().NoError(err)
	s.False(s.mini.Exists("game-expiration-warning:ABCD"))
}

// Game tests

func (s *StorageSuite) TestCreateAndGetGame() {
	game := s.newGame("ABCD")
	game.IsPrivate = true
	game.PasswordHash = "$2a$10$hash"
	pkg := &model.Package{
		ID:    "pkg-1",
		Title: "General knowledge",
		Rounds: []model.Round{{
			Name: "Round 1",
			Type: model.RoundTypeSimple,
			Themes: []model.Theme{{
				ID: 1, Name: "Space",
				Questions: []model.Question{{ID: 10, Price: 100, Type: model.QuestionTypeSimple}},
			}},
		}},
	}

	s.Require().NoError(s.storage.CreateGame(s.ctx, game, pkg))

	stored, err := s.storage.GetGame(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(game.Title, stored.Title)
	s.True(stored.IsPrivate)
	s.Equal("$2a$10$hash", stored.PasswordHash)
	s.Equal(4, stored.MaxPlayers)
	s.True(stored.CreatedAt.Equal(s.now))
	s.Nil(stored.StartedAt)

	storedPkg, err := s.storage.GetPackage(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal("General knowledge", storedPkg.Title)
	s.Require().Len(storedPkg.Rounds, 1)
	s.Equal(100, storedPkg.Rounds[0].Themes[0].Questions[0].Price)

	exists, err := s.storage.GameExists(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.storage.GetPackage(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrPackageNotFound)

	_, err = s.storage.GameQuestionState(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestGameQuestionState() {
	game := s.newGame("ABCD")
	game.GameState.QuestionState = model.QuestionStateAnswering
	s.Require().NoError(s.storage.CreateGame(s.ctx, game, &model.Package{}))

	state, err := s.storage.GameQuestionState(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.QuestionStateAnswering, state.QuestionState)
	s.Equal(model.RoundTypeSimple, state.RoundType)
}

// Session tests

func (s *StorageSuite) TestSessionLifecycle() {
	session := &model.SocketSession{SocketID: "sock-1", UserID: "player-1", GameID: "ABCD", Role: model.RolePlayer, ConnectedAt: s.now}
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	stored, err := s.storage.GetSession(s.ctx, "sock-1")
	s.Require().NoError(err)
	s.Equal(session.UserID, stored.UserID)
	s.Equal(session.Role, stored.Role)
	s.True(s.mini.TTL(sessionKey("sock-1")) > 0)

	s.Require().NoError(s.storage.DeleteSession(s.ctx, "sock-1"))
	_, err = s.storage.GetSession(s.ctx, "sock-1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestTouchSession() {
	session := &model.SocketSession{SocketID: "sock-1", UserID: "player-1", ConnectedAt: s.now}
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))
	s.mini.FastForward(20 * time.Hour)

	ok, err := s.storage.TouchSession(s.ctx, "sock-1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(24*time.Hour, s.mini.TTL(sessionKey("sock-1")))

	ok, err = s.storage.TouchSession(s.ctx, "sock-missing")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestIdempotencyLock() {
	ok, err := s.storage.AcquireIdempotencyLock(s.ctx, "game-expiration-warning:ABCD")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.storage.AcquireIdempotencyLock(s.ctx, "game-expiration-warning:ABCD")
	s.Require().NoError(err)
	s.False(ok)
	s.True(s.mini.Exists("expiration-lock:game-expiration-warning:ABCD"))
}

func mustGet(m *miniredis.Miniredis, key string) string {
	v, _ := m.Get(key)
	return v
}
