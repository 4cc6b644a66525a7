package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
)

// GetConfig returns the current configuration snapshot.
// GET /config
func (h *Handler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"config":  h.service.ConfigSnapshot(),
	})
}

// UpdateConfig applies a dotted-path update to the business configuration.
// POST /config/update
func (h *Handler) UpdateConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ConfigUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return fail(c, http.StatusBadRequest, "path is required")
	}

	err := h.service.UpdateConfig(ctx, req.Path, req.Value, req.AgentID)
	switch {
	case errors.Is(err, service.ErrPolicyDenied):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, config.ErrInvalidPath):
		return fail(c, http.StatusBadRequest, err.Error())
	case err != nil:
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "configuration updated",
	})
}
