package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures dispatched envelopes for assertions.
type recordingHandler struct {
	mu          sync.Mutex
	types       []string
	msgs        []map[string]any
	disconnects int
}

func (r *recordingHandler) Name() string { return "test" }

func (r *recordingHandler) HandleMessage(_ context.Context, _ *Conn, msgType string, msg map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msgType)
	r.msgs = append(r.msgs, msg)
}

func (r *recordingHandler) OnDisconnect(_ *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
}

func (r *recordingHandler) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}

func setupHubServer(t *testing.T, cfg HubConfig, handler ChannelHandler) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			t.Logf("WebSocket accept error: %v", err)
			return
		}
		hub.HandleConnection(r.Context(), conn, handler)
	}))
	t.Cleanup(func() { server.Close() })
	return hub, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHubWelcomeEnvelope(t *testing.T) {
	_, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	conn := connectWS(t, server)

	msg := readJSON(t, conn)
	assert.Equal(t, "welcome", msg["type"])
	assert.Contains(t, msg["message"], "test 频道")
	assert.NotNil(t, msg["timestamp"])

	cfg, ok := msg["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(60), cfg["heartbeat_interval"])
	assert.Equal(t, float64(90), cfg["timeout"])
}

func TestHubPingPong(t *testing.T) {
	_, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	writeJSON(t, conn, map[string]any{"type": "ping", "timestamp": 12345})

	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, float64(12345), msg["timestamp"], "pong echoes the client timestamp")
	assert.NotNil(t, msg["server_timestamp"])
}

func TestHubInvalidJSON(t *testing.T) {
	_, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "INVALID_JSON", msg["error_code"])
}

func TestHubDispatchesUnknownTypesToHandler(t *testing.T) {
	handler := &recordingHandler{}
	_, server := setupHubServer(t, HubConfig{}, handler)
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	writeJSON(t, conn, map[string]any{"type": "custom", "payload": "x"})

	require.Eventually(t, func() bool {
		return len(handler.dispatched()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"custom"}, handler.dispatched())
}

func TestHubDropsSilentConnection(t *testing.T) {
	handler := &recordingHandler{}
	hub, server := setupHubServer(t, HubConfig{
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  60 * time.Millisecond,
	}, handler)
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Stay silent; the read deadline and heartbeat check evict us.
	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 0
	}, 2*time.Second, 10*time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, 1, handler.disconnects)
}

func TestHubPongKeepsConnectionAlive(t *testing.T) {
	hub, server := setupHubServer(t, HubConfig{
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  150 * time.Millisecond,
	}, &recordingHandler{})
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	// Answer every server ping for a while; the connection must survive
	// several timeout windows.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		writeJSON(t, conn, map[string]any{"type": "pong"})
		time.Sleep(40 * time.Millisecond)
	}
	assert.Equal(t, 1, hub.ActiveConnections())
}

func TestHubBroadcast(t *testing.T) {
	hub, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	conn1 := connectWS(t, server)
	conn2 := connectWS(t, server)
	readJSON(t, conn1) // welcome
	readJSON(t, conn2) // welcome

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 2
	}, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(map[string]any{"type": "notice", "message": "hello"}, nil)

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readJSON(t, conn)
		assert.Equal(t, "notice", msg["type"])
		assert.Equal(t, "hello", msg["message"])
	}
}

func TestHubConnectionsSnapshot(t *testing.T) {
	hub, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	conn := connectWS(t, server)
	readJSON(t, conn) // welcome

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)

	infos := hub.Connections()
	require.Len(t, infos, 1)
	assert.Equal(t, "test", infos[0].HandlerName)
	assert.True(t, infos[0].IsActive)
	assert.False(t, infos[0].ConnectedAt.IsZero())
}

func TestHubShutdownClosesAll(t *testing.T) {
	hub, server := setupHubServer(t, HubConfig{}, &recordingHandler{})
	connectWS(t, server)
	connectWS(t, server)

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 2
	}, 2*time.Second, 10*time.Millisecond)

	hub.Shutdown()

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
