package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/mode"
)

// BridgeStatus reports game-bridge connectivity for the health and status
// endpoints.
type BridgeStatus interface {
	Status() bridge.Status
}

// Server is the agent's HTTP surface: REST status endpoints plus the
// WebSocket task channel. Mutations go through the WebSocket protocol; the
// REST routes are read-only.
type Server struct {
	cfg  config.APIConfig
	echo *echo.Echo
	http *http.Server

	hub     *Hub
	tasksCh *TasksChannel

	tasks     *journal.TaskList
	modes     *mode.Manager
	env       *env.Environment
	store     *events.Store
	bridge    BridgeStatus
	startedAt time.Time
}

// NewServer wires the routes over the shared agent state.
func NewServer(cfg config.APIConfig, tasks *journal.TaskList, modes *mode.Manager,
	environment *env.Environment, store *events.Store, bridgeStatus BridgeStatus) *Server {
	hub := NewHub(HubConfig{
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval) * time.Second,
		HeartbeatTimeout:  time.Duration(cfg.HeartbeatTimeout) * time.Second,
	})
	s := &Server{
		cfg:       cfg,
		echo:      echo.New(),
		hub:       hub,
		tasksCh:   NewTasksChannel(tasks),
		tasks:     tasks,
		modes:     modes,
		env:       environment,
		store:     store,
		bridge:    bridgeStatus,
		startedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.Use(securityHeaders(), requestLog())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/api/v1/status", s.statusHandler)
	s.echo.GET("/api/v1/tasks", s.tasksHandler)
	s.echo.GET("/ws/tasks", s.wsTasksHandler)
}

// Start serves HTTP on addr. Blocks until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown stops the listener and force-closes every WebSocket connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
