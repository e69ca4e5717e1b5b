package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/game"
	"github.com/maicraft/maicraft-go/pkg/version"
)

// PlayerStatus is the bot summary embedded in the status response.
type PlayerStatus struct {
	Username  string         `json:"username"`
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"max_health"`
	Food      float64        `json:"food"`
	Position  *game.Position `json:"position,omitempty"`
	Dimension string         `json:"dimension,omitempty"`
}

// ModeStatus is the mode-machine summary.
type ModeStatus struct {
	Current        string  `json:"current"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// TaskCounts summarizes the task list.
type TaskCounts struct {
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	Goal      string `json:"goal"`
	IsDone    bool   `json:"is_done"`
}

// StatusResponse is the GET /api/v1/status body.
type StatusResponse struct {
	Version       string         `json:"version"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Mode          ModeStatus     `json:"mode"`
	Player        PlayerStatus   `json:"player"`
	Tasks         TaskCounts     `json:"tasks"`
	Events        map[string]int `json:"events"`
	Bridge        bridge.Status  `json:"bridge"`
	Connections   int            `json:"connections"`
	SendFailures  int            `json:"send_failures"`
}

// statusHandler handles GET /api/v1/status.
func (s *Server) statusHandler(c *echo.Context) error {
	snap := s.env.Snapshot()
	total, completed, pending := s.tasks.Counts()

	return c.JSON(http.StatusOK, &StatusResponse{
		Version:       version.Full(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Mode: ModeStatus{
			Current:        s.modes.Current(),
			ElapsedSeconds: s.modes.Elapsed().Seconds(),
		},
		Player: PlayerStatus{
			Username:  snap.Username,
			Health:    snap.Health.Current,
			MaxHealth: snap.Health.Max,
			Food:      snap.Food.Current,
			Position:  snap.Position,
			Dimension: snap.Dimension,
		},
		Tasks: TaskCounts{
			Total:     total,
			Completed: completed,
			Pending:   pending,
			Goal:      s.tasks.Goal(),
			IsDone:    s.tasks.CheckIfAllDone(),
		},
		Events:       s.store.Stats(),
		Bridge:       s.bridge.Status(),
		Connections:  s.hub.ActiveConnections(),
		SendFailures: s.hub.SendFailures(),
	})
}

// tasksHandler handles GET /api/v1/tasks with the same snapshot shape the
// WebSocket channel pushes.
func (s *Server) tasksHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, buildTaskSnapshot(s.tasks))
}
