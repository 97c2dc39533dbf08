package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowingduskpro/shuangxiangapp/internal/config"
)

func newTestHub() *Hub {
	h := NewHub(config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	})
	go h.Run()
	return h
}

func newTestClient(id string, h *Hub) *Client {
	c := NewClient(id, h, nil, h.config)
	h.Register(c)
	return c
}

func recvPayload(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func expectNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinSession_MembershipCount(t *testing.T) {
	h := newTestHub()

	c1 := newTestClient("c1", h)
	c2 := newTestClient("c2", h)

	h.JoinSession(c1, "s1")
	h.JoinSession(c2, "s1")

	assert.Equal(t, 2, h.SessionClientCount("s1"))
	assert.Equal(t, 0, h.SessionClientCount("s2"))

	h.LeaveSession(c1, "s1")
	assert.Equal(t, 1, h.SessionClientCount("s1"))
}

func TestBroadcastToSession_ReachesOnlyMembersIncludingSender(t *testing.T) {
	h := newTestHub()

	member1 := newTestClient("c1", h)
	member2 := newTestClient("c2", h)
	outsider := newTestClient("c3", h)

	h.JoinSession(member1, "s1")
	h.JoinSession(member2, "s1")
	h.JoinSession(outsider, "s2")

	require.NoError(t, h.BroadcastToSession("s1", map[string]string{"hello": "world"}))

	assert.Equal(t, "world", recvPayload(t, member1)["hello"])
	assert.Equal(t, "world", recvPayload(t, member2)["hello"])
	expectNoMessage(t, outsider)
}

func TestUnregister_RemovesFromAllSessions(t *testing.T) {
	h := newTestHub()

	c1 := newTestClient("c1", h)
	c2 := newTestClient("c2", h)
	h.JoinSession(c1, "s1")
	h.JoinSession(c2, "s1")

	h.Unregister(c1)

	// The unregister is processed by the Run loop; poll until it lands.
	require.Eventually(t, func() bool {
		return h.SessionClientCount("s1") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestActiveSessions(t *testing.T) {
	h := newTestHub()

	c1 := newTestClient("c1", h)
	c2 := newTestClient("c2", h)
	h.JoinSession(c1, "s1")
	h.JoinSession(c2, "s2")

	assert.ElementsMatch(t, []string{"s1", "s2"}, h.ActiveSessions())

	h.LeaveSession(c1, "s1")
	assert.ElementsMatch(t, []string{"s2"}, h.ActiveSessions())
}
