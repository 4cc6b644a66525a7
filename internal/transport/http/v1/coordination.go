package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
)

// CoordinationStatus returns the agent table summary.
// GET /coordination/status
func (h *Handler) CoordinationStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"coordination": h.service.CoordinationStatus(),
	})
}

// Deploy starts a deployment walk and returns without waiting for it.
// POST /coordination/deploy
func (h *Handler) Deploy(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.DeployRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	d, err := h.service.StartDeployment(ctx, req)
	switch {
	case errors.Is(err, service.ErrDeploymentInProgress):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPolicyDenied):
		return fail(c, http.StatusForbidden, err.Error())
	case err != nil:
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"deploymentId": d.ID,
		"message":      "deployment initiated",
	})
}

// GetDeployment returns a persisted deployment record.
// GET /coordination/deployments/:deploymentId
func (h *Handler) GetDeployment(c echo.Context) error {
	ctx := c.Request().Context()

	d, err := h.service.GetDeployment(ctx, c.Param("deploymentId"))
	if errors.Is(err, service.ErrDeploymentNotFound) {
		return fail(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"deployment": d,
	})
}
