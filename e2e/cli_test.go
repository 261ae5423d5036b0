package e2e_test

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizgame/internal/api"
	"github.com/mcoot/quizgame/internal/factory"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/testutil"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "quizctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/quizctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	return r.runAs("", args...)
}

func (r *cliRunner) runAs(socketID string, args ...string) (string, error) {
	fullArgs := []string{
		"--server", r.serverURL,
		"--output", "json",
	}
	if socketID != "" {
		fullArgs = append(fullArgs, "--socket", socketID)
	}
	fullArgs = append(fullArgs, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.Output()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer serves the API of an app backed by miniredis
func startTestServer(t *testing.T) (*httptest.Server, *factory.TestApp) {
	t.Helper()

	app := factory.NewTestApp(t)
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		LobbyController: app.LobbyController,
		Submitter:       app.Executor,
		Redis:           app.Storage,
		Sockets:         app.SocketHandler,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, app
}

func writePackage(t *testing.T) string {
	t.Helper()

	data, err := json.Marshal(testutil.Package())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// Response types for JSON parsing
type gameResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Phase   string `json:"phase"`
	Players []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"players"`
}

type actionResponse struct {
	ID      string `json:"id"`
	Queued  bool   `json:"queued"`
	Success bool   `json:"success"`
}

type queueResponse struct {
	GameID string `json:"game_id"`
	Locked bool   `json:"locked"`
	Length int64  `json:"length"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	server, _ := startTestServer(t)
	cli := newCLIRunner(t, server.URL)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_GameCommands(t *testing.T) {
	server, app := startTestServer(t)
	cli := newCLIRunner(t, server.URL)
	app.MockRandom.QueueString("QUIZ")

	output, err := cli.run("game", "create",
		"--title", "Friday quiz",
		"--created-by", string(testutil.ShowmanID),
		"--package", writePackage(t))
	require.NoError(t, err, "output: %s", output)

	var created gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.Equal(t, "QUIZ", created.ID)
	assert.Equal(t, string(model.PhaseWaiting), created.Phase)

	// Actions are attributed to the session of the socket
	require.NoError(t, app.Storage.SaveSession(t.Context(), &model.SocketSession{
		SocketID: "sock-showman",
		UserID:   testutil.ShowmanID,
	}))
	output, err = cli.runAs("sock-showman", "game", "submit", "quiz", "join_game",
		"--payload", `{"role": "SHOWMAN", "name": "Sam"}`)
	require.NoError(t, err, "output: %s", output)

	var action actionResponse
	require.NoError(t, json.Unmarshal([]byte(output), &action))
	assert.True(t, action.Success)
	assert.False(t, action.Queued)

	output, err = cli.run("game", "get", "QUIZ")
	require.NoError(t, err, "output: %s", output)

	var game gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &game))
	require.Len(t, game.Players, 1)
	assert.Equal(t, "Sam", game.Players[0].Name)
	assert.Equal(t, string(model.RoleShowman), game.Players[0].Role)

	output, err = cli.run("game", "queue", "QUIZ")
	require.NoError(t, err, "output: %s", output)

	var queue queueResponse
	require.NoError(t, json.Unmarshal([]byte(output), &queue))
	assert.Equal(t, "QUIZ", queue.GameID)
	assert.False(t, queue.Locked)
	assert.Zero(t, queue.Length)
}

func TestCLI_ReportsRejectedAction(t *testing.T) {
	server, app := startTestServer(t)
	cli := newCLIRunner(t, server.URL)
	app.MockRandom.QueueString("QUIZ")

	output, err := cli.run("game", "create",
		"--title", "Friday quiz",
		"--created-by", string(testutil.ShowmanID),
		"--package", writePackage(t))
	require.NoError(t, err, "output: %s", output)

	_, err = cli.run("game", "submit", "QUIZ", "START_GAME", "--player", string(testutil.Player1ID))
	require.Error(t, err)

	_, err = cli.run("game", "get", "NONE")
	require.Error(t, err)
}
