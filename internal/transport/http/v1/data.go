package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

// GetData returns the records of a collection matching the JSON object in
// the query parameter.
// GET /data/:collection?query=<json>
func (h *Handler) GetData(c echo.Context) error {
	ctx := c.Request().Context()

	query := repository.Query{}
	if raw := c.QueryParam("query"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query); err != nil {
			return fail(c, http.StatusBadRequest, "query must be a JSON object")
		}
	}

	records, err := h.service.GetData(ctx, c.Param("collection"), query)
	if err != nil {
		return dataError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
	})
}

// SaveData stores the request body in a collection.
// POST /data/:collection
func (h *Handler) SaveData(c echo.Context) error {
	ctx := c.Request().Context()

	// BindBody only: path params must not leak into the record.
	rec := repository.Record{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &rec); err != nil {
		return fail(c, http.StatusBadRequest, "record must be a JSON object")
	}

	stored, err := h.service.SaveData(ctx, c.Param("collection"), rec)
	if err != nil {
		return dataError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  stored,
	})
}

func dataError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrInvalidCollection) {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return fail(c, http.StatusInternalServerError, err.Error())
}
