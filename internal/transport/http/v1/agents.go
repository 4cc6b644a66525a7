package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// ListAgents returns the agent table.
// GET /agents
func (h *Handler) ListAgents(c echo.Context) error {
	agents := h.service.ListAgents()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(agents),
		"agents":  agents,
	})
}

// RegisterAgent inserts or replaces an agent.
// POST /agents/register
func (h *Handler) RegisterAgent(c echo.Context) error {
	var req domain.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	if req.AgentID == "" {
		return fail(c, http.StatusBadRequest, "agentId is required")
	}
	if req.Type == "" {
		return fail(c, http.StatusBadRequest, "type is required")
	}

	agent := h.service.RegisterAgent(req.AgentID, req.Type, req.Capabilities, req.Endpoint)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"agentId":      agent.AgentID,
		"registeredAt": agent.RegisteredAt.UnixMilli(),
	})
}

// Heartbeat records a liveness report. Unknown agents get success without
// an entry being created.
// POST /agents/:agentId/heartbeat
func (h *Handler) Heartbeat(c echo.Context) error {
	agentID := c.Param("agentId")

	var req domain.HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Status != "" && !req.Status.Valid() {
		return fail(c, http.StatusBadRequest, "unknown status "+string(req.Status))
	}

	h.service.Heartbeat(agentID, req.Status, req.Metrics)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// Communicate logs an inter-agent message.
// POST /agents/communicate
func (h *Handler) Communicate(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.CommunicateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.FromAgent == "" || req.ToAgent == "" {
		return fail(c, http.StatusBadRequest, "fromAgent and toAgent are required")
	}

	id, err := h.service.Communicate(ctx, req.FromAgent, req.ToAgent, req.Message, req.Type)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": id,
	})
}
