package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/vitalslink/telecare/internal/adapters/http"
	"github.com/vitalslink/telecare/internal/app"
	"github.com/vitalslink/telecare/internal/config"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:       "release",
		ReadLimit:  32768,
		PingPeriod: 50 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  5 * time.Second,
		SendBuffer: 32,
		Secret:     "test-secret",
	}
	coord := app.NewCoordinator(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})

	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, coord))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/consult"
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func assertNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no frame within the window")
}

func joinRoom(t *testing.T, conn *websocket.Conn, room, participant, role string) {
	send(t, conn, map[string]any{
		"type":        "join-room",
		"room":        room,
		"participant": participant,
		"role":        role,
	})
}

func TestConsultation_EndToEnd(t *testing.T) {
	_, wsURL := newTestServer(t)

	patient := dial(t, wsURL)
	provider := dial(t, wsURL)

	joinRoom(t, patient, "consult-abc", "p1", "patient")
	state := readEvent(t, patient)
	require.Equal(t, "room-state", state["type"])
	assert.Len(t, state["members"], 1)

	joinRoom(t, provider, "consult-abc", "d1", "provider")
	state = readEvent(t, provider)
	require.Equal(t, "room-state", state["type"])
	members := state["members"].([]any)
	require.Len(t, members, 2)
	assert.Equal(t, "p1", members[0].(map[string]any)["id"])
	assert.Equal(t, "d1", members[1].(map[string]any)["id"])

	joined := readEvent(t, patient)
	require.Equal(t, "participant-joined", joined["type"])
	assert.Equal(t, "d1", joined["participant"].(map[string]any)["id"])

	// Offer relayed to the peer, never echoed.
	send(t, patient, map[string]any{
		"type":        "signal",
		"room":        "consult-abc",
		"participant": "p1",
		"signal":      map[string]any{"type": "offer", "sdp": "v=0..."},
	})
	sig := readEvent(t, provider)
	require.Equal(t, "signal", sig["type"])
	assert.Equal(t, "p1", sig["participant"])
	assert.Equal(t, "offer", sig["signal"].(map[string]any)["type"])

	// Chat is delivered to everyone, sender included, server-stamped.
	send(t, provider, map[string]any{
		"type":    "send-message",
		"room":    "consult-abc",
		"message": "hello, how can I help?",
	})
	for _, conn := range []*websocket.Conn{patient, provider} {
		msg := readEvent(t, conn)
		require.Equal(t, "receive-message", msg["type"])
		assert.Equal(t, "hello, how can I help?", msg["message"])
		assert.Equal(t, "d1", msg["sender"].(map[string]any)["id"])
		assert.NotEmpty(t, msg["timestamp"])
	}

	// Provider drops the transport: the patient gets exactly one
	// participant-left.
	require.NoError(t, provider.Close())
	left := readEvent(t, patient)
	require.Equal(t, "participant-left", left["type"])
	assert.Equal(t, "d1", left["participant"].(map[string]any)["id"])
	assertNoEvent(t, patient)
}

func TestConsultation_SignalIsolation(t *testing.T) {
	_, wsURL := newTestServer(t)

	member := dial(t, wsURL)
	outsider := dial(t, wsURL)

	joinRoom(t, member, "consult-abc", "p1", "patient")
	readEvent(t, member) // room-state

	joinRoom(t, outsider, "consult-other", "x1", "patient")
	readEvent(t, outsider) // room-state

	// A signal naming a room the sender is not in is dropped silently.
	send(t, outsider, map[string]any{
		"type":        "signal",
		"room":        "consult-abc",
		"participant": "x1",
		"signal":      map[string]any{"type": "offer"},
	})
	assertNoEvent(t, member)
}

func TestConsultation_MalformedFrame(t *testing.T) {
	_, wsURL := newTestServer(t)
	conn := dial(t, wsURL)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	evt := readEvent(t, conn)
	assert.Equal(t, "error", evt["type"])
	assert.Equal(t, "bad_payload", evt["error"])

	// The connection survives protocol misuse.
	send(t, conn, map[string]any{"type": "ping"})
	evt = readEvent(t, conn)
	assert.Equal(t, "pong", evt["type"])
}

func TestConsultation_LeaveRejoin(t *testing.T) {
	_, wsURL := newTestServer(t)

	c1 := dial(t, wsURL)
	c2 := dial(t, wsURL)

	joinRoom(t, c1, "consult-abc", "p1", "patient")
	readEvent(t, c1)
	joinRoom(t, c2, "consult-abc", "d1", "provider")
	readEvent(t, c2)
	readEvent(t, c1) // participant-joined d1

	// Explicit leave keeps the transport open.
	send(t, c2, map[string]any{"type": "leave-room"})
	evt := readEvent(t, c2)
	assert.Equal(t, "left", evt["type"])
	evt = readEvent(t, c1)
	assert.Equal(t, "participant-left", evt["type"])

	// Rejoining the same consultation works on the same connection.
	joinRoom(t, c2, "consult-abc", "d1", "provider")
	state := readEvent(t, c2)
	require.Equal(t, "room-state", state["type"])
	assert.Len(t, state["members"], 2)
	evt = readEvent(t, c1)
	assert.Equal(t, "participant-joined", evt["type"])
}
