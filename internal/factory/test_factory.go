package factory

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quizgame/internal/dependencies/mocks"
	"github.com/mcoot/quizgame/internal/services/completion"
	"github.com/mcoot/quizgame/internal/services/phase"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
	"github.com/mcoot/quizgame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	Redis      *miniredis.Miniredis
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App on an in-process Redis with mocked dependencies
func NewTestApp(t testing.TB) *TestApp {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cfg := redisstorage.DefaultConfig()
	store := redisstorage.NewWithClient(client, cfg)

	mockClock := mocks.NewMockClock(testutil.Now())
	mockRandom := mocks.NewMockRandom()
	logger := testutil.NopLogger()

	app := newWithDependencies(store, mockClock, mockRandom, phase.DefaultDurations(),
		cfg.ExpirationWarningLead, completion.NewLogRecorder(logger), logger)
	t.Cleanup(func() { _ = app.Close() })

	return &TestApp{
		App:        app,
		Redis:      mini,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// FastForward moves both the mock clock and the Redis clock, expiring keys
// whose TTL ran out
func (t *TestApp) FastForward(d time.Duration) {
	t.MockClock.Advance(d)
	t.Redis.FastForward(d)
}
