package middleware_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizgame/internal/api/apierr"
	"github.com/mcoot/quizgame/internal/api/middleware"
	"github.com/mcoot/quizgame/internal/testutil"
)

func newRouter(logger *slog.Logger, h http.HandlerFunc) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.HandleFunc("/api/v1/games/{id}", h)
	r.HandleFunc("/api/v1/health", h)
	return r
}

func TestRecoveryWritesJSONError(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	router := newRouter(logger, func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/games/ABCD", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodeInternalError, resp.Error.Code)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), `"game_id":"ABCD"`)
}

func TestLoggingRecordsGameAndSocket(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	router := newRouter(logger, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/games/ABCD", nil)
	req.Header.Set("X-Socket-ID", "sock-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "ABCD", entry["game_id"])
	assert.Equal(t, "sock-1", entry["socket_id"])
	assert.EqualValues(t, http.StatusAccepted, entry["status"])
	assert.EqualValues(t, 2, entry["size"])
}

func TestLoggingQuietsHealthChecks(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	router := newRouter(logger, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Empty(t, logs.String())
}
