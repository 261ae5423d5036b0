package factory

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/quizgame/internal/dependencies/clock"
	"github.com/mcoot/quizgame/internal/dependencies/random"
	"github.com/mcoot/quizgame/internal/services/actions"
	"github.com/mcoot/quizgame/internal/services/completion"
	"github.com/mcoot/quizgame/internal/services/executor"
	"github.com/mcoot/quizgame/internal/services/lobby"
	"github.com/mcoot/quizgame/internal/services/phase"
	"github.com/mcoot/quizgame/internal/services/timer"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
	"github.com/mcoot/quizgame/internal/web/ws"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage *redisstorage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Router          *phase.Router
	ActionService   *actions.Service
	Registry        *actions.Registry
	Executor        *executor.Executor
	Completion      *completion.Service
	LobbyController *lobby.Controller
	TimerSubscriber *timer.Subscriber

	// Connection layer
	HubManager    *ws.HubManager
	SocketHandler *ws.Handler
	Broadcaster   *ws.RedisBroadcaster
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Redis holds the coordination store settings
	Redis redisstorage.Config
	// Durations are the question timers; zero fields take their defaults
	Durations phase.Durations
	// PostgresDSN enables recording finished games in Postgres (optional)
	// If empty, results are only logged
	PostgresDSN string
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := redisstorage.New(cfg.Redis)
	if err != nil {
		return nil, err
	}

	var recorder completion.Recorder = completion.NewLogRecorder(logger)
	if cfg.PostgresDSN != "" {
		pg, err := completion.NewPostgresRecorder(ctx, cfg.PostgresDSN)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		recorder = pg
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.Durations.WithDefaults(), cfg.Redis.ExpirationWarningLead, recorder, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store *redisstorage.Storage,
	clk clock.Clock,
	rnd random.Random,
	durations phase.Durations,
	warningLead time.Duration,
	recorder completion.Recorder,
	logger *slog.Logger,
) *App {
	router := phase.NewRouter(durations, store, clk)
	actionService := actions.NewService(store, store, router, durations, clk, logger)
	registry := actionService.Registry()

	broadcaster := ws.NewRedisBroadcaster(store)
	completionService := completion.NewService(store, recorder, logger)
	exec := executor.New(store, registry, broadcaster, completionService, clk, rnd, logger)

	dispatcher := timer.NewDispatcher(logger,
		timer.NewQuestionTimerHandler(store, exec, clk, rnd, logger),
		timer.NewExpirationWarningHandler(store, broadcaster, warningLead, logger),
	)

	hubManager := ws.NewHubManager(store, logger)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		Router:          router,
		ActionService:   actionService,
		Registry:        registry,
		Executor:        exec,
		Completion:      completionService,
		LobbyController: lobby.NewController(store, clk, rnd, logger),
		TimerSubscriber: timer.NewSubscriber(store, dispatcher, logger),
		HubManager:      hubManager,
		SocketHandler:   ws.NewHandler(hubManager, exec, clk, rnd, logger),
		Broadcaster:     broadcaster,
	}
}

// Close releases the store connection after waiting for pending completions
func (a *App) Close() error {
	a.Completion.Wait()
	return a.Storage.Close()
}
