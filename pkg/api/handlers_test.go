package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/mode"
)

type stubBridgeStatus struct {
	st bridge.Status
}

func (s stubBridgeStatus) Status() bridge.Status { return s.st }

func newTestServer(t *testing.T, connected bool) (*Server, *journal.TaskList, *events.Store) {
	t.Helper()
	tasks := journal.NewTaskList("")
	store := events.NewStore(100)
	environment := env.New()
	s := NewServer(config.APIConfig{HeartbeatInterval: 60, HeartbeatTimeout: 90},
		tasks, mode.NewManager(), environment, store,
		stubBridgeStatus{st: bridge.Status{Connected: connected, Transport: "http", LastError: "连接中断"}})
	return s, tasks, store
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy when bridge connected", func(t *testing.T) {
		s, _, _ := newTestServer(t, true)
		rec := doRequest(t, s, http.MethodGet, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, healthStatusHealthy, resp.Status)
		assert.NotEmpty(t, resp.Version)
		assert.Equal(t, healthStatusHealthy, resp.Checks["bridge"].Status)
	})

	t.Run("degraded but 200 when bridge down", func(t *testing.T) {
		s, _, _ := newTestServer(t, false)
		rec := doRequest(t, s, http.MethodGet, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, healthStatusDegraded, resp.Status)
		assert.Equal(t, "连接中断", resp.Checks["bridge"].Message)
	})
}

func TestStatusHandler(t *testing.T) {
	s, tasks, store := newTestServer(t, true)

	require.NoError(t, s.env.UpdateFromObservation(map[string]any{
		"ok": true,
		"data": map[string]any{
			"username":  "Mai",
			"dimension": "overworld",
			"position":  map[string]any{"x": float64(10), "y": float64(64), "z": float64(-3)},
			"health":    map[string]any{"current": float64(17), "max": float64(20)},
			"food":      map[string]any{"current": float64(18), "max": float64(20)},
		},
	}))
	tasks.SetGoal("挖到钻石")
	_, err := tasks.Add("挖铁矿", "获得 3 个铁锭")
	require.NoError(t, err)
	require.NoError(t, tasks.MarkDone("1"))
	_, err = tasks.Add("造熔炉", "放置一个熔炉")
	require.NoError(t, err)

	reg := events.NewRegistry()
	store.Add(reg.CreateFromRaw(events.RawEvent{Type: events.TypeChat, Data: map[string]any{"username": "Alice", "message": "hi"}}))
	store.Add(reg.CreateFromRaw(events.RawEvent{Type: events.TypeChat, Data: map[string]any{"username": "Bob", "message": "yo"}}))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, mode.MainMode, resp.Mode.Current)
	assert.Equal(t, "Mai", resp.Player.Username)
	assert.Equal(t, 17.0, resp.Player.Health)
	assert.Equal(t, "overworld", resp.Player.Dimension)
	require.NotNil(t, resp.Player.Position)
	assert.Equal(t, 10.0, resp.Player.Position.X)
	assert.Equal(t, 2, resp.Tasks.Total)
	assert.Equal(t, 1, resp.Tasks.Completed)
	assert.Equal(t, 1, resp.Tasks.Pending)
	assert.Equal(t, "挖到钻石", resp.Tasks.Goal)
	assert.False(t, resp.Tasks.IsDone)
	assert.Equal(t, 2, resp.Events[events.TypeChat])
	assert.True(t, resp.Bridge.Connected)
	assert.Equal(t, 0, resp.Connections)
	assert.Equal(t, 0, resp.SendFailures)
}

func TestTasksRESTSnapshot(t *testing.T) {
	s, tasks, _ := newTestServer(t, true)
	tasks.SetGoal("建一座房子")
	_, err := tasks.Add("收集石头", "64 个圆石")
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/tasks")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap TaskSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, "建一座房子", snap.Goal)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "收集石头", snap.Tasks[0].Details)
	assert.False(t, snap.IsDone)
}

func TestSecurityHeaders(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	rec := doRequest(t, s, http.MethodGet, "/health")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
