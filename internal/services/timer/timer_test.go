package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quizgame/internal/dependencies/mocks"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/model"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
	"github.com/mcoot/quizgame/internal/testutil"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	actions []*model.GameAction
	err     error
}

func (r *recordingSubmitter) SubmitAction(_ context.Context, action *model.GameAction) (*model.ActionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	if r.err != nil {
		return nil, r.err
	}
	return &model.ActionResult{Success: true}, nil
}

func (r *recordingSubmitter) submitted() []*model.GameAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.GameAction(nil), r.actions...)
}

type recordingPublisher struct {
	mu         sync.Mutex
	broadcasts []model.Broadcast
}

func (p *recordingPublisher) Publish(_ context.Context, b model.Broadcast) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, b)
	return nil
}

func (p *recordingPublisher) published() []model.Broadcast {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Broadcast(nil), p.broadcasts...)
}

type TimerSuite struct {
	suite.Suite
	mini       *miniredis.Miniredis
	storage    *redisstorage.Storage
	submitter  *recordingSubmitter
	publisher  *recordingPublisher
	questions  *QuestionTimerHandler
	warnings   *ExpirationWarningHandler
	dispatcher *Dispatcher
	ctx        context.Context
	now        time.Time
}

func TestTimerSuite(t *testing.T) {
	suite.Run(t, new(TimerSuite))
}

func (s *TimerSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.storage = redisstorage.NewWithClient(client, redisstorage.DefaultConfig())
	s.ctx = context.Background()
	s.now = testutil.Now()

	s.submitter = &recordingSubmitter{}
	s.publisher = &recordingPublisher{}
	logger := testutil.NopLogger()
	s.questions = NewQuestionTimerHandler(s.storage, s.submitter, mocks.NewMockClock(s.now), random.New(), logger)
	s.warnings = NewExpirationWarningHandler(s.storage, s.publisher, 10*time.Minute, logger)
	s.dispatcher = NewDispatcher(logger, s.questions, s.warnings)
}

func (s *TimerSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *TimerSuite) createGame(g *model.Game) {
	s.Require().NoError(s.storage.CreateGame(s.ctx, g, testutil.Package()))
}

func (s *TimerSuite) TestSupportedKeys() {
	s.True(s.questions.Supports("timer:ABCD"))
	s.False(s.questions.Supports("timer:SHOWING:ABCD"), "saved timers never expire")
	s.False(s.questions.Supports("timer:"))
	s.False(s.questions.Supports("game:ABCD"))

	s.True(s.warnings.Supports("game-expiration-warning:ABCD"))
	s.False(s.warnings.Supports("timer:ABCD"))
}

func (s *TimerSuite) TestExpiredTimerSubmitsTimeoutOfCurrentState() {
	s.createGame(testutil.AnsweringGame(s.now, testutil.Player1ID))

	s.True(s.dispatcher.Dispatch(s.ctx, "timer:ABCD"))

	submitted := s.submitter.submitted()
	s.Require().Len(submitted, 1)
	a := submitted[0]
	s.Equal(model.ActionAnsweringTimeout, a.Type)
	s.Equal(testutil.GameID, a.GameID)
	s.Equal(s.now, a.Timestamp)
	s.NotEmpty(a.ID)
	s.Empty(a.PlayerID, "timeouts are system actions")
}

func (s *TimerSuite) TestExpiredTimerInStateWithoutTimeout() {
	s.createGame(testutil.ChoosingGame(s.now))

	s.True(s.dispatcher.Dispatch(s.ctx, "timer:ABCD"))
	s.Empty(s.submitter.submitted())
}

func (s *TimerSuite) TestExpiredTimerOfMissingGame() {
	s.NoError(s.questions.Handle(s.ctx, "timer:GONE"))
	s.Empty(s.submitter.submitted())
}

func (s *TimerSuite) TestSubmitFailureIsReported() {
	s.createGame(testutil.ShowingGame(s.now))
	s.submitter.err = errors.New("redis down")

	err := s.questions.Handle(s.ctx, "timer:ABCD")
	s.Require().Error(err)
	s.Contains(err.Error(), string(model.ActionShowingTimeout))

	// the dispatcher only logs it
	s.True(s.dispatcher.Dispatch(s.ctx, "timer:ABCD"))
}

func (s *TimerSuite) TestUnknownKeyIsNotDispatched() {
	s.False(s.dispatcher.Dispatch(s.ctx, "socket:session:abc"))
	s.Empty(s.submitter.submitted())
	s.Empty(s.publisher.published())
}

func (s *TimerSuite) TestExpirationWarningBroadcastsOnce() {
	s.createGame(testutil.ChoosingGame(s.now))

	s.True(s.dispatcher.Dispatch(s.ctx, "game-expiration-warning:ABCD"))
	s.True(s.dispatcher.Dispatch(s.ctx, "game-expiration-warning:ABCD"))

	published := s.publisher.published()
	s.Require().Len(published, 1)
	b := published[0]
	s.Equal(model.EventExpirationWarning, b.Event)
	s.Equal(model.TargetGame, b.Target)
	s.Equal(testutil.GameID, b.GameID)
	s.Equal(model.ExpirationWarningEvent{GameID: testutil.GameID, ExpiresInMs: 600000}, b.Data)
	s.True(s.mini.Exists("expiration-lock:game-expiration-warning:ABCD"))
}

func (s *TimerSuite) TestExpirationWarningSkipsFinishedGame() {
	g := testutil.ChoosingGame(s.now)
	g.SetFinished(s.now)
	s.createGame(g)

	s.NoError(s.warnings.Handle(s.ctx, "game-expiration-warning:ABCD"))
	s.Empty(s.publisher.published())
}

func (s *TimerSuite) TestExpirationWarningSkipsMissingGame() {
	s.NoError(s.warnings.Handle(s.ctx, "game-expiration-warning:GONE"))
	s.Empty(s.publisher.published())
}

func (s *TimerSuite) TestSubscriberDispatchesExpiredKeys() {
	s.createGame(testutil.ShowingGame(s.now))

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	sub := NewSubscriber(s.storage, s.dispatcher, testutil.NopLogger())
	go func() { done <- sub.Run(ctx) }()

	s.Require().Eventually(func() bool {
		return s.mini.PubSubNumPat() == 1
	}, time.Second, 5*time.Millisecond)

	// miniredis has no keyspace notifications, so the event is published by hand
	s.mini.Publish("__keyevent@0__:expired", "timer:ABCD")
	s.mini.Publish("__keyevent@0__:expired", "game:package:ABCD")

	s.Require().Eventually(func() bool {
		return len(s.submitter.submitted()) == 1
	}, time.Second, 5*time.Millisecond)
	s.Equal(model.ActionShowingTimeout, s.submitter.submitted()[0].Type)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("subscriber did not stop")
	}
}
