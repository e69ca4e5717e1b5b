package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/maicraft/maicraft-go/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// HealthCheck is one component's health entry.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// healthHandler handles GET /health.
// A disconnected bridge degrades the status but stays 200: the agent keeps
// its HTTP surface up while reconnecting, and the orchestrator must not
// restart it for a game-side outage.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	bs := s.bridge.Status()
	if bs.Connected {
		checks["bridge"] = HealthCheck{Status: healthStatusHealthy}
	} else {
		status = healthStatusDegraded
		checks["bridge"] = HealthCheck{Status: healthStatusDegraded, Message: bs.LastError}
	}
	checks["websocket_hub"] = HealthCheck{Status: healthStatusHealthy}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
