package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizgame/internal/dependencies/mocks"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/services/actions"
	"github.com/mcoot/quizgame/internal/services/phase"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
	"github.com/mcoot/quizgame/internal/testutil"
)

const (
	actionAppend  model.ActionType = "TEST_APPEND"
	actionFail    model.ActionType = "TEST_FAIL"
	actionPanic   model.ActionType = "TEST_PANIC"
	actionFinish  model.ActionType = "TEST_FINISH"
	actionInspect model.ActionType = "TEST_INSPECT"
)

type recordingBroadcaster struct {
	mu         sync.Mutex
	broadcasts []model.Broadcast
}

func (b *recordingBroadcaster) Publish(_ context.Context, bc model.Broadcast) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, bc)
	return nil
}

func (b *recordingBroadcaster) events() []model.Broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Broadcast(nil), b.broadcasts...)
}

type recordingCompleter struct {
	mu        sync.Mutex
	completed []model.GameID
}

func (c *recordingCompleter) Complete(_ context.Context, gameID model.GameID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, gameID)
}

// runRecorder records how test handlers were executed
type runRecorder struct {
	mu       sync.Mutex
	order    []string
	tokens   map[string]int
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (p *runRecorder) enter(ec *model.ActionExecutionContext) {
	if p.inFlight.Add(1) > 1 {
		p.overlaps.Add(1)
	}
	p.mu.Lock()
	p.order = append(p.order, ec.Action.ID)
	p.tokens[ec.LockToken]++
	p.mu.Unlock()
}

func (p *runRecorder) leave() {
	p.inFlight.Add(-1)
}

func (p *runRecorder) executed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

type ExecutorSuite struct {
	suite.Suite
	mini        *miniredis.Miniredis
	storage     *redisstorage.Storage
	executor    *Executor
	broadcaster *recordingBroadcaster
	completer   *recordingCompleter
	runs        *runRecorder
	clock       *mocks.MockClock
	ctx         context.Context
	now         time.Time
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.storage = redisstorage.NewWithClient(client, redisstorage.DefaultConfig())

	s.now = testutil.Now()
	s.clock = mocks.NewMockClock(s.now)
	s.ctx = context.Background()
	s.broadcaster = &recordingBroadcaster{}
	s.completer = &recordingCompleter{}
	s.runs = &runRecorder{tokens: map[string]int{}}

	router := phase.NewRouter(phase.DefaultDurations(), s.storage, s.clock)
	registry := actions.NewService(s.storage, s.storage, router, phase.DefaultDurations(), s.clock, testutil.NopLogger()).Registry()
	s.registerTestHandlers(registry)

	s.executor = New(s.storage, registry, s.broadcaster, s.completer, s.clock, random.New(), testutil.NopLogger())

	s.Require().NoError(s.storage.CreateGame(s.ctx, testutil.NewGame(s.now), testutil.Package()))
}

func (s *ExecutorSuite) TearDownTest() {
	_ = s.storage.Close()
}

// registerTestHandlers adds handlers that append the action id to the game
// title, so the stored title spells out the order actions were applied in
func (s *ExecutorSuite) registerTestHandlers(r *actions.Registry) {
	appendID := func(_ context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
		s.runs.enter(ec)
		defer s.runs.leave()
		time.Sleep(time.Millisecond)
		ec.Game.Title += "|" + ec.Action.ID
		return &model.ActionResult{
			Success:   true,
			Mutations: []model.DataMutation{model.SaveGame(ec.Game)},
		}, nil
	}
	r.Register(actionAppend, actions.HandlerFunc(appendID))
	r.Register(actionFail, actions.HandlerFunc(func(_ context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
		s.runs.enter(ec)
		defer s.runs.leave()
		ec.Game.Title = "must not be saved"
		return nil, model.ErrNotYourTurn
	}))
	r.Register(actionPanic, actions.HandlerFunc(func(_ context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
		panic("boom")
	}))
	r.Register(actionFinish, actions.HandlerFunc(func(_ context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
		ec.Game.SetFinished(s.now)
		return &model.ActionResult{
			Success: true,
			Mutations: []model.DataMutation{
				model.SaveGame(ec.Game),
				model.GameCompleted(ec.Game.ID),
				model.Broadcasts(model.GameBroadcast(ec.Game.ID, model.EventGameFinished, nil)),
			},
			BroadcastGame: ec.Game,
		}, nil
	}))
	r.Register(actionInspect, actions.HandlerFunc(func(_ context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
		var author model.PlayerID
		if ec.CurrentPlayer != nil {
			author = ec.CurrentPlayer.ID
		}
		return &model.ActionResult{Success: true, Data: author}, nil
	}))
}

func (s *ExecutorSuite) action(id string, actionType model.ActionType, by model.PlayerID) *model.GameAction {
	a := &model.GameAction{
		ID:        id,
		Type:      actionType,
		GameID:    testutil.GameID,
		PlayerID:  by,
		Timestamp: s.now,
	}
	if by != "" {
		a.SocketID = "sock-" + string(by)
	}
	return a
}

func (s *ExecutorSuite) connect(userID model.PlayerID) {
	s.Require().NoError(s.storage.SaveSession(s.ctx, testutil.SessionFor(userID, s.now)))
}

func (s *ExecutorSuite) storedGame() *model.Game {
	g, err := s.storage.GetGame(s.ctx, testutil.GameID)
	s.Require().NoError(err)
	return g
}

func (s *ExecutorSuite) requireUnlocked() {
	held, err := s.storage.LockHeld(s.ctx, testutil.GameID)
	s.Require().NoError(err)
	s.False(held, "lock must be released")
}

// holdLock takes the game's lock as if another process were executing
func (s *ExecutorSuite) holdLock() string {
	token := "other-process"
	ok, err := s.storage.Acquire(s.ctx, testutil.GameID, token)
	s.Require().NoError(err)
	s.Require().True(ok)
	return token
}

func (s *ExecutorSuite) TestSubmitRunsActionAndReleasesLock() {
	s.connect(testutil.ShowmanID)

	res, err := s.executor.SubmitAction(s.ctx, s.action("start", model.ActionStartGame, testutil.ShowmanID))
	s.Require().NoError(err)
	s.Require().NotNil(res)
	s.True(res.Success)

	s.Equal(model.PhaseChoosing, model.GetGamePhase(s.storedGame()))
	s.requireUnlocked()

	var events []string
	for _, b := range s.broadcaster.events() {
		events = append(events, b.Event)
	}
	s.Equal([]string{model.EventGameStarted, model.EventRoundStarted, model.EventGameState}, events)
}

func (s *ExecutorSuite) TestSubmitFillsMissingIDAndTimestamp() {
	a := &model.GameAction{Type: actionAppend, GameID: testutil.GameID}

	_, err := s.executor.SubmitAction(s.ctx, a)
	s.Require().NoError(err)

	s.NotEmpty(a.ID)
	s.Equal(s.now, a.Timestamp)
}

func (s *ExecutorSuite) TestSessionDeterminesAuthor() {
	s.connect(testutil.Player1ID)
	a := s.action("inspect", actionInspect, testutil.Player2ID)
	a.SocketID = "sock-p1"

	res, err := s.executor.SubmitAction(s.ctx, a)
	s.Require().NoError(err)
	s.Equal(testutil.Player1ID, res.Data)

	res, err = s.executor.SubmitAction(s.ctx, s.action("inspect-2", actionInspect, testutil.Player2ID))
	s.Require().NoError(err)
	s.Equal(testutil.Player2ID, res.Data, "without a session the action's player is used")
}

func (s *ExecutorSuite) TestConcurrentSubmissionsMatchSerialExecution() {
	const n = 25

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.executor.SubmitAction(s.ctx, s.action(fmt.Sprintf("a%02d", i), actionAppend, ""))
			s.NoError(err)
		}()
	}
	wg.Wait()

	order := s.runs.executed()
	s.Require().Len(order, n)
	s.Zero(s.runs.overlaps.Load(), "two actions were in flight at once")

	// applying the observed order serially yields the stored state
	expected := testutil.NewGame(s.now).Title + "|" + strings.Join(order, "|")
	s.Equal(expected, s.storedGame().Title)

	for token, uses := range s.runs.tokens {
		s.Equal(1, uses, "token %s was shared", token)
	}
	s.requireUnlocked()
}

func (s *ExecutorSuite) TestQueuedActionsRunInArrivalOrder() {
	token := s.holdLock()

	for _, id := range []string{"A", "B", "C"} {
		res, err := s.executor.SubmitAction(s.ctx, s.action(id, actionAppend, ""))
		s.Require().NoError(err)
		s.Nil(res, "queued behind the lock holder")
	}
	s.Empty(s.runs.executed())

	released, err := s.storage.Release(s.ctx, testutil.GameID, token)
	s.Require().NoError(err)
	s.Require().True(released)

	res, err := s.executor.SubmitAction(s.ctx, s.action("D", actionAppend, ""))
	s.Require().NoError(err)
	s.Require().NotNil(res, "own action result is returned after the backlog")

	s.Equal([]string{"A", "B", "C", "D"}, s.runs.executed())
	s.True(strings.HasSuffix(s.storedGame().Title, "|A|B|C|D"))
	s.requireUnlocked()
}

func (s *ExecutorSuite) TestQueuedActionErrorIsSentToItsSocket() {
	token := s.holdLock()
	_, err := s.executor.SubmitAction(s.ctx, s.action("bad", actionFail, testutil.Player1ID))
	s.Require().NoError(err)
	_, err = s.storage.Release(s.ctx, testutil.GameID, token)
	s.Require().NoError(err)

	res, err := s.executor.SubmitAction(s.ctx, s.action("good", actionAppend, ""))
	s.Require().NoError(err)
	s.Require().NotNil(res)

	var failures []model.Broadcast
	for _, b := range s.broadcaster.events() {
		if b.Event == model.EventError {
			failures = append(failures, b)
		}
	}
	s.Require().Len(failures, 1)
	s.Equal(model.TargetSocket, failures[0].Target)
	s.Equal("sock-p1", failures[0].SocketID)
	event := failures[0].Data.(model.ErrorEvent)
	s.Equal(model.ErrNotYourTurn.Code, event.Code)
	s.Equal("bad", event.ActionID)

	s.NotContains(s.storedGame().Title, "must not be saved")
}

func (s *ExecutorSuite) TestUndecodableQueueEntryIsSkipped() {
	token := s.holdLock()
	_, err := s.mini.Lpush("game:action:queue:"+string(testutil.GameID), "{not json")
	s.Require().NoError(err)
	_, err = s.executor.SubmitAction(s.ctx, s.action("A", actionAppend, ""))
	s.Require().NoError(err)
	_, err = s.storage.Release(s.ctx, testutil.GameID, token)
	s.Require().NoError(err)

	res, err := s.executor.SubmitAction(s.ctx, s.action("B", actionAppend, ""))
	s.Require().NoError(err)
	s.Require().NotNil(res)

	s.Equal([]string{"A", "B"}, s.runs.executed())
	s.True(strings.HasSuffix(s.storedGame().Title, "|A|B"))
	queued, err := s.storage.QueueLength(s.ctx, testutil.GameID)
	s.Require().NoError(err)
	s.Zero(queued)
	s.requireUnlocked()
}

func (s *ExecutorSuite) TestOriginatingErrorIsReturned() {
	_, err := s.executor.SubmitAction(s.ctx, s.action("bad", actionFail, testutil.Player1ID))
	s.ErrorIs(err, model.ErrNotYourTurn)

	s.Equal(testutil.NewGame(s.now).Title, s.storedGame().Title)
	s.requireUnlocked()
}

func (s *ExecutorSuite) TestPanickingHandlerDoesNotWedgeTheGame() {
	_, err := s.executor.SubmitAction(s.ctx, s.action("panic", actionPanic, ""))
	s.Require().Error(err)
	s.Contains(err.Error(), "panicked")
	s.requireUnlocked()

	_, err = s.executor.SubmitAction(s.ctx, s.action("after", actionAppend, ""))
	s.NoError(err)
}

func (s *ExecutorSuite) TestUnknownActionAndGame() {
	_, err := s.executor.SubmitAction(s.ctx, s.action("x", "NOT_AN_ACTION", ""))
	s.ErrorIs(err, model.ErrUnknownAction)

	missing := s.action("y", actionAppend, "")
	missing.GameID = "ZZZZ"
	_, err = s.executor.SubmitAction(s.ctx, missing)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ExecutorSuite) TestCompletionAndGameStateBroadcast() {
	_, err := s.executor.SubmitAction(s.ctx, s.action("finish", actionFinish, ""))
	s.Require().NoError(err)

	s.Equal([]model.GameID{testutil.GameID}, s.completer.completed)

	broadcasts := s.broadcaster.events()
	s.Require().Len(broadcasts, 2)
	s.Equal(model.EventGameFinished, broadcasts[0].Event)
	state := broadcasts[1]
	s.Equal(model.EventGameState, state.Event)
	s.True(state.UseRoleBasedBroadcast)
	s.Len(state.RoleData, 3)
}

// A timer:ABCD expiry while a player answers runs as a synthetic action and
// returns the game to SHOWING with the remaining showing time
func (s *ExecutorSuite) TestAnsweringTimerExpiry() {
	g := testutil.AnsweringGame(s.now, testutil.Player1ID)
	s.Require().NoError(s.storage.CreateGame(s.ctx, g, testutil.Package()))
	saved := model.NewTimer(s.now.Add(-30*time.Second), time.Minute).Paused(s.now)
	_, err := s.storage.ApplyMutations(s.ctx, []model.DataMutation{
		model.SaveTimer(g.ID, model.QuestionStateShowing, saved),
	})
	s.Require().NoError(err)

	res, err := s.executor.SubmitAction(s.ctx, &model.GameAction{
		Type:   model.ActionAnsweringTimeout,
		GameID: g.ID,
	})
	s.Require().NoError(err)
	s.Require().NotNil(res)

	stored := s.storedGame()
	s.Equal(model.PhaseShowing, model.GetGamePhase(stored))
	s.Equal(-testutil.SimpleQuestionVal, stored.FindPlayer(testutil.Player1ID).Score)
	s.Nil(stored.GameState.AnsweringPlayer)

	s.False(s.mini.Exists("timer:SHOWING:ABCD"))
	raw, err := s.mini.Get("timer:ABCD")
	s.Require().NoError(err)
	var active model.GameStateTimer
	s.Require().NoError(json.Unmarshal([]byte(raw), &active))
	s.Equal(int64(30000), active.DurationMs-active.ElapsedMs)
	s.Equal(30*time.Second, s.mini.TTL("timer:ABCD"))
	s.requireUnlocked()
}
