package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowingduskpro/shuangxiangapp/internal/config"
	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/service"
	"github.com/flowingduskpro/shuangxiangapp/internal/store"
)

type httpEnv struct {
	router   *gin.Engine
	sessions *repository.MemoryClassSessionRepository
	eventLog *repository.MemoryEventLog
	counters *store.MemoryCounterStore
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.NewHub(config.WebSocketConfig{})
	go h.Run()

	sessions := repository.NewMemoryClassSessionRepository()
	eventLog := repository.NewMemoryEventLog()
	counters := store.NewMemoryCounterStore()
	reconciler := service.NewReconciler(h, eventLog, counters, time.Second)

	router := gin.New()
	NewHTTPHandler(sessions, reconciler).RegisterRoutes(router)

	return &httpEnv{
		router:   router,
		sessions: sessions,
		eventLog: eventLog,
		counters: counters,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestCreateClassSession(t *testing.T) {
	env := newHTTPEnv(t)

	w, body := doJSON(t, env.router, http.MethodPost, "/class-sessions", gin.H{"class_id": "class-1"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "class-1", data["class_id"])
	assert.NotEmpty(t, data["class_session_id"])

	// The minted id must resolve through the repository.
	_, err := env.sessions.GetByID(context.Background(), data["class_session_id"].(string))
	require.NoError(t, err)
}

func TestCreateClassSession_MissingClassID(t *testing.T) {
	env := newHTTPEnv(t)

	w, body := doJSON(t, env.router, http.MethodPost, "/class-sessions", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestGetClassSession(t *testing.T) {
	env := newHTTPEnv(t)
	require.NoError(t, env.sessions.Create(context.Background(), &domain.ClassSession{ID: "s1", ClassID: "class-1"}))

	w, body := doJSON(t, env.router, http.MethodGet, "/class-sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "s1", data["class_session_id"])
	assert.Equal(t, "class-1", data["class_id"])

	w, body = doJSON(t, env.router, http.MethodGet, "/class-sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestReconcileClassSession(t *testing.T) {
	env := newHTTPEnv(t)
	require.NoError(t, env.sessions.Create(context.Background(), &domain.ClassSession{ID: "s1", ClassID: "class-1"}))

	for i := 0; i < 3; i++ {
		require.NoError(t, env.eventLog.Append(context.Background(), &domain.EventRecord{
			ClassSessionID: "s1",
			Subject:        "u1",
			EventType:      domain.EventTypeClassEnter,
		}))
	}
	require.NoError(t, env.counters.SetCounts(context.Background(), "s1", domain.Counts{Joined: 9, EnterEvents: 9}))

	w, body := doJSON(t, env.router, http.MethodPost, "/class-sessions/s1/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["joined_count"])
	assert.Equal(t, float64(3), data["enter_event_count"])

	got, err := env.counters.GetCounts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Joined: 0, EnterEvents: 3}, got)
}

func TestReconcileClassSession_NotFound(t *testing.T) {
	env := newHTTPEnv(t)

	w, body := doJSON(t, env.router, http.MethodPost, "/class-sessions/missing/reconcile", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestHealth(t *testing.T) {
	env := newHTTPEnv(t)

	w, body := doJSON(t, env.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}
