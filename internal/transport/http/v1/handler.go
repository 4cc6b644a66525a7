// Package v1 provides the control-plane HTTP handlers.
package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the control-plane routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	// Agent API
	e.GET("/agents", h.ListAgents)
	e.POST("/agents/register", h.RegisterAgent)
	e.POST("/agents/:agentId/heartbeat", h.Heartbeat)
	e.POST("/agents/communicate", h.Communicate)

	// Shared collections
	e.GET("/data/:collection", h.GetData)
	e.POST("/data/:collection", h.SaveData)

	// Configuration
	e.GET("/config", h.GetConfig)
	e.POST("/config/update", h.UpdateConfig)

	// Coordination
	e.GET("/coordination/status", h.CoordinationStatus)
	e.POST("/coordination/deploy", h.Deploy)
	e.GET("/coordination/deployments/:deploymentId", h.GetDeployment)
}

// Health returns the orchestrator-visible summary.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	database := "disconnected"
	if h.service.DatabaseConnected(c.Request().Context()) {
		database = "connected"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
		"activeAgents": h.service.ActiveAgentIDs(),
		"database":     database,
		"storeMode":    h.service.StoreMode(),
	})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
