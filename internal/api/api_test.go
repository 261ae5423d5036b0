package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizgame/internal/api"
	"github.com/mcoot/quizgame/internal/api/apierr"
	"github.com/mcoot/quizgame/internal/api/handler"
	"github.com/mcoot/quizgame/internal/api/response"
	"github.com/mcoot/quizgame/internal/factory"
	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp(t)
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		LobbyController: app.LobbyController,
		Submitter:       app.Executor,
		Redis:           app.Storage,
		Sockets:         app.SocketHandler,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, socketID string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if socketID != "" {
		req.Header.Set(handler.SocketIDHeader, socketID)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) createGame(t *testing.T, id string) response.Game {
	t.Helper()
	ts.app.MockRandom.QueueString(id)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{
		"title":      "Quiz night",
		"created_by": "showman",
		"package":    testutil.Package(),
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var game response.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &game))
	return game
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestCreateAndGetGame(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createGame(t, "QZ42")
	assert.Equal(t, "QZ42", created.ID)
	assert.Equal(t, string(model.PhaseWaiting), created.Phase)
	assert.False(t, created.IsPrivate)

	rr := ts.request(http.MethodGet, "/api/v1/games/QZ42", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var game response.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &game))
	assert.Equal(t, "Quiz night", game.Title)
	assert.Empty(t, game.Players)
	assert.Nil(t, game.State)
}

func TestCreateGameValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"title": "No creator"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]any{
		"title":      "No rounds",
		"created_by": "showman",
		"package":    map[string]any{"id": "empty"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, model.ErrInvalidPackage.Code, decodeError(t, rr).Code)
}

func TestGetMissingGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/NONE", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, model.ErrGameNotFound.Code, decodeError(t, rr).Code)
}

func TestSubmitActions(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t, "QZ42")

	for _, id := range []model.PlayerID{testutil.ShowmanID, testutil.Player1ID} {
		require.NoError(t, ts.app.Storage.SaveSession(t.Context(), &model.SocketSession{
			SocketID: "sock-" + string(id),
			UserID:   id,
		}))
	}

	rr := ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{
		"type":    "JOIN_GAME",
		"payload": model.JoinGamePayload{Role: model.RoleShowman, Name: "Sam"},
	}, "sock-showman")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp response.ActionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Queued)
	assert.NotEmpty(t, resp.ID)

	// only the showman may start
	rr = ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{
		"type":    "JOIN_GAME",
		"payload": model.JoinGamePayload{Role: model.RolePlayer, Name: "Alice"},
	}, "sock-p1")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{"type": "START_GAME"}, "sock-p1")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, model.ErrNotShowman.Code, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{"type": "NOT_A_THING"}, "sock-p1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, model.ErrUnknownAction.Code, decodeError(t, rr).Code)
}

func TestSubmitActionIsQueuedBehindLockHolder(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t, "QZ42")

	ok, err := ts.app.Storage.Acquire(t.Context(), "QZ42", "other-process")
	require.NoError(t, err)
	require.True(t, ok)

	rr := ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{
		"type":      "DISCONNECT",
		"player_id": "p1",
	}, "")
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/games/QZ42/queue", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var queue response.Queue
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &queue))
	assert.True(t, queue.Locked)
	assert.Equal(t, int64(1), queue.Length)
	require.Len(t, queue.Pending, 1)
	assert.Equal(t, "DISCONNECT", queue.Pending[0].Type)
	assert.Equal(t, "p1", queue.Pending[0].PlayerID)
}

func TestSubmitActionRequiresType(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t, "QZ42")

	rr := ts.request(http.MethodPost, "/api/v1/games/QZ42/actions", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubmitTimeoutActionIsReserved(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t, "QZ42")

	for _, actionType := range model.TimeoutActionTypes() {
		rr := ts.request(http.MethodPost, "/api/v1/games/QZ42/actions",
			map[string]any{"type": actionType}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, actionType)
		assert.Equal(t, model.ErrReservedAction.Code, decodeError(t, rr).Code, actionType)
	}

	queued, err := ts.app.Storage.QueueLength(t.Context(), "QZ42")
	require.NoError(t, err)
	assert.Zero(t, queued)
}
