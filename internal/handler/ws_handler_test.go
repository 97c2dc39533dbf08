package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowingduskpro/shuangxiangapp/internal/auth"
	"github.com/flowingduskpro/shuangxiangapp/internal/config"
	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/service"
	"github.com/flowingduskpro/shuangxiangapp/internal/store"
)

const (
	wsTestSecret = "test-secret"
	wsTestIssuer = "shuangxiang-app"
)

func newWSServer(t *testing.T) (*httptest.Server, *store.MemoryCounterStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}

	h := hub.NewHub(wsCfg)
	go h.Run()

	sessions := repository.NewMemoryClassSessionRepository()
	require.NoError(t, sessions.Create(context.Background(), &domain.ClassSession{ID: "s1", ClassID: "class-1"}))

	counters := store.NewMemoryCounterStore()
	verifier := auth.NewJWTVerifier(wsTestSecret, wsTestIssuer)
	svc := service.NewGatewayService(h, verifier, repository.NewMemoryEventLog(), sessions, counters, time.Second)

	router := gin.New()
	NewWSHandler(h, svc, wsCfg).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, counters
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m map[string]interface{}
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func wsToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      subject,
		"role":     "student",
		"class_id": "class-1",
		"iss":      wsTestIssuer,
	})
	signed, err := token.SignedString([]byte(wsTestSecret))
	require.NoError(t, err)
	return signed
}

func TestWS_UnknownMessageType(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"msg_type":       "bogus",
		"correlation_id": "corr-9",
	}))

	m := readWS(t, conn)
	assert.Equal(t, domain.MsgTypeAck, m["msg_type"])
	assert.Equal(t, false, m["ok"])
	assert.Equal(t, domain.ErrCodeUnknownMessageType, m["error"])
	// The nack names the unknown type so the client can see what was dropped.
	assert.Equal(t, "bogus", m["ack_type"])
	assert.Equal(t, "corr-9", m["correlation_id"])
}

func TestWS_UnparseableFrame(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	m := readWS(t, conn)
	assert.Equal(t, domain.MsgTypeAck, m["msg_type"])
	assert.Equal(t, false, m["ok"])
	assert.Equal(t, domain.ErrCodeBadRequest, m["error"])
	assert.Equal(t, "", m["ack_type"])
	assert.NotEmpty(t, m["correlation_id"])
}

// A message without a correlation id gets one minted server-side and echoed
// on the ack.
func TestWS_AssignsCorrelationID(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"msg_type": domain.MsgTypeAuth,
		"token":    "garbage",
	}))

	m := readWS(t, conn)
	assert.Equal(t, domain.MsgTypeAck, m["msg_type"])
	assert.Equal(t, false, m["ok"])
	assert.Equal(t, domain.ErrCodeInvalidCredential, m["error"])
	assert.NotEmpty(t, m["correlation_id"])
}

// Full flow over the wire: auth, join, event, with acks and aggregates, then
// a disconnect that settles the joined counter back to zero.
func TestWS_EndToEndFlow(t *testing.T) {
	server, counters := newWSServer(t)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"msg_type":       domain.MsgTypeAuth,
		"correlation_id": "corr-auth",
		"token":          wsToken(t, "u1"),
	}))
	m := readWS(t, conn)
	require.Equal(t, true, m["ok"])
	require.Equal(t, domain.MsgTypeAuth, m["ack_type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"msg_type":         domain.MsgTypeJoin,
		"correlation_id":   "corr-join",
		"class_session_id": "s1",
	}))
	m = readWS(t, conn)
	require.Equal(t, true, m["ok"])
	require.Equal(t, "corr-join", m["correlation_id"])

	m = readWS(t, conn)
	require.Equal(t, domain.MsgTypeAggregate, m["msg_type"])
	assert.Equal(t, float64(1), m["joined_count"])
	assert.Equal(t, float64(0), m["enter_event_count"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"msg_type":         domain.MsgTypeEvent,
		"correlation_id":   "corr-event",
		"event_type":       domain.EventTypeClassEnter,
		"class_session_id": "s1",
	}))
	m = readWS(t, conn)
	require.Equal(t, true, m["ok"])
	require.Equal(t, domain.MsgTypeEvent, m["ack_type"])

	m = readWS(t, conn)
	require.Equal(t, domain.MsgTypeAggregate, m["msg_type"])
	assert.Equal(t, float64(1), m["joined_count"])
	assert.Equal(t, float64(1), m["enter_event_count"])

	conn.Close()

	require.Eventually(t, func() bool {
		c, err := counters.GetCounts(context.Background(), "s1")
		return err == nil && c.Joined == 0
	}, 2*time.Second, 20*time.Millisecond, "disconnect should settle the joined counter")
}
