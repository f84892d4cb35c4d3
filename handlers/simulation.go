package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"edgescope/services"
)

// SimulationHandlers exposes the orchestrator over HTTP: run control plus
// the read surface the dashboard polls.
type SimulationHandlers struct {
	simulator *services.SimulatorService
}

func NewSimulationHandlers(simulator *services.SimulatorService) *SimulationHandlers {
	return &SimulationHandlers{simulator: simulator}
}

// StartSimulation begins a new run, clearing any prior in-memory state.
func (sh *SimulationHandlers) StartSimulation(c echo.Context) error {
	sim, err := sh.simulator.Start()
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"simulation": sim,
	})
}

// StopSimulation pauses the run without saving; data stays in memory.
func (sh *SimulationHandlers) StopSimulation(c echo.Context) error {
	sim, err := sh.simulator.Stop()
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"simulation": sim,
	})
}

// SaveSimulation completes the run and archives it. A failed archive write
// still returns the completed record so the caller can retry the save.
func (sh *SimulationHandlers) SaveSimulation(c echo.Context) error {
	sim, err := sh.simulator.StopAndSave()
	if err != nil {
		if sim == nil {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":      "Failed to persist simulation",
			"message":    err.Error(),
			"simulation": sim,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"simulation": sim,
	})
}

// ResetSimulation discards all in-memory state unconditionally.
func (sh *SimulationHandlers) ResetSimulation(c echo.Context) error {
	sh.simulator.Reset()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"state":   sh.simulator.State(),
	})
}

// GetSimulation reports the current run state.
func (sh *SimulationHandlers) GetSimulation(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":      sh.simulator.State(),
		"simulation": sh.simulator.ActiveSimulation(),
		"metrics":    sh.simulator.Metrics(),
	})
}

// GetTraffic returns the most recent traffic entries, newest last.
func (sh *SimulationHandlers) GetTraffic(c echo.Context) error {
	limit := 100
	if val := c.QueryParam("limit"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			limit = n
		}
	}
	return c.JSON(http.StatusOK, sh.simulator.Traffic(limit))
}

// GetMetrics returns the current derived metrics.
func (sh *SimulationHandlers) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, sh.simulator.Metrics())
}

// GetAnomalies returns the live anomaly list.
func (sh *SimulationHandlers) GetAnomalies(c echo.Context) error {
	return c.JSON(http.StatusOK, sh.simulator.Anomalies())
}

// GetAnomalyHistory returns every anomaly detected during the current run,
// including ones already evicted from the live list.
func (sh *SimulationHandlers) GetAnomalyHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, sh.simulator.AnomalyHistory())
}
