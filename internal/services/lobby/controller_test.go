package lobby

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/quizgame/internal/dependencies/mocks"
	"github.com/mcoot/quizgame/internal/model"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
	"github.com/mcoot/quizgame/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	mini       *miniredis.Miniredis
	storage    *redisstorage.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.storage = redisstorage.NewWithClient(client, redisstorage.DefaultConfig())
	s.clock = mocks.NewMockClock(testutil.Now())
	s.random = mocks.NewMockRandom()
	s.controller = NewController(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *ControllerSuite) params() CreateGameParams {
	return CreateGameParams{
		Title:     "Friday quiz",
		CreatedBy: testutil.ShowmanID,
		Package:   testutil.Package(),
	}
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGame() {
	s.random.StringResults = []string{"QUIZ"}

	game, err := s.controller.CreateGame(s.ctx, s.params())
	s.Require().NoError(err)
	s.Equal(model.GameID("QUIZ"), game.ID)
	s.Equal(DefaultMaxPlayers, game.MaxPlayers)
	s.False(game.IsPrivate)
	s.Equal(s.clock.Now(), game.CreatedAt)

	info, err := s.controller.GetGame(s.ctx, "QUIZ")
	s.Require().NoError(err)
	s.Equal("Friday quiz", info.Game.Title)
	s.Equal(model.PhaseWaiting, info.Phase)

	pkg, err := s.storage.GetPackage(s.ctx, "QUIZ")
	s.Require().NoError(err)
	s.Equal(testutil.Package().ID, pkg.ID)
}

func (s *ControllerSuite) TestCreateGameRetriesTakenID() {
	s.Require().NoError(s.storage.CreateGame(s.ctx, testutil.NewGame(s.clock.Now()), testutil.Package()))
	s.random.StringResults = []string{string(testutil.GameID), "WXYZ"}

	game, err := s.controller.CreateGame(s.ctx, s.params())
	s.Require().NoError(err)
	s.Equal(model.GameID("WXYZ"), game.ID)
}

func (s *ControllerSuite) TestCreatePrivateGameHashesPassword() {
	s.random.StringResults = []string{"PRIV"}
	params := s.params()
	params.Password = "hunter2"

	_, err := s.controller.CreateGame(s.ctx, params)
	s.Require().NoError(err)

	stored, err := s.storage.GetGame(s.ctx, "PRIV")
	s.Require().NoError(err)
	s.True(stored.IsPrivate)
	s.NotEqual("hunter2", stored.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2")))
}

func (s *ControllerSuite) TestCreateGameRequiresRounds() {
	params := s.params()
	params.Package = &model.Package{ID: "empty"}

	_, err := s.controller.CreateGame(s.ctx, params)
	s.ErrorIs(err, model.ErrInvalidPackage)
}

// Query tests

func (s *ControllerSuite) TestGetMissingGame() {
	_, err := s.controller.GetGame(s.ctx, "NONE")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestQueue() {
	s.Require().NoError(s.storage.CreateGame(s.ctx, testutil.NewGame(s.clock.Now()), testutil.Package()))
	ok, err := s.storage.Acquire(s.ctx, testutil.GameID, "holder")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NoError(s.storage.Enqueue(s.ctx, &model.GameAction{ID: "a1", Type: model.ActionStartGame, GameID: testutil.GameID}))

	queue, err := s.controller.Queue(s.ctx, testutil.GameID)
	s.Require().NoError(err)
	s.True(queue.Locked)
	s.Equal(int64(1), queue.Length)
	s.Require().Len(queue.Pending, 1)
	s.Equal("a1", queue.Pending[0].ID)

	_, err = s.controller.Queue(s.ctx, "NONE")
	s.ErrorIs(err, model.ErrGameNotFound)
}
