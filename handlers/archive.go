package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"edgescope/services"
)

// ArchiveHandlers serves saved simulation runs from the archive.
type ArchiveHandlers struct {
	archive *services.ArchiveService
}

func NewArchiveHandlers(archive *services.ArchiveService) *ArchiveHandlers {
	return &ArchiveHandlers{archive: archive}
}

func (ah *ArchiveHandlers) ListSimulations(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	summaries, err := ah.archive.ListSimulations(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"simulations": summaries,
		"count":       len(summaries),
	})
}

func (ah *ArchiveHandlers) GetSimulation(c echo.Context) error {
	id := c.Param("id")

	sim, err := ah.archive.GetSimulation(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}
	if sim == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "simulation not found"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"simulation": sim,
	})
}

func (ah *ArchiveHandlers) DeleteSimulation(c echo.Context) error {
	id := c.Param("id")

	if err := ah.archive.DeleteSimulation(c.Request().Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "simulation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": id,
	})
}
