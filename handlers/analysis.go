package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"edgescope/models"
	"edgescope/services"
)

// AnalysisHandlers turns detected anomalies into AI explanations.
type AnalysisHandlers struct {
	ai        *services.AIClient
	simulator *services.SimulatorService
}

func NewAnalysisHandlers(ai *services.AIClient, simulator *services.SimulatorService) *AnalysisHandlers {
	return &AnalysisHandlers{ai: ai, simulator: simulator}
}

type analyzeRequest struct {
	Anomaly *models.Anomaly         `json:"anomaly"`
	Traffic []models.TrafficRequest `json:"traffic"`
}

// AnalyzeAnomaly analyzes caller-supplied anomaly data. The AI client
// degrades internally, so this endpoint always answers with a structured
// analysis.
func (ah *AnalysisHandlers) AnalyzeAnomaly(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Anomaly == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Anomaly data is required"})
	}

	analysis := ah.ai.AnalyzeAnomaly(c.Request().Context(), req.Anomaly, req.Traffic)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": analysis,
	})
}

// AnalyzeLiveAnomaly analyzes a live anomaly by id and attaches the
// explanation to it. Correlation is by id, so out-of-order responses from
// the model land on the right anomaly.
func (ah *AnalysisHandlers) AnalyzeLiveAnomaly(c echo.Context) error {
	id := c.Param("id")

	anomaly, found := ah.simulator.AnomalyByID(id)
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "anomaly not found"})
	}

	analysis := ah.ai.AnalyzeAnomaly(c.Request().Context(), &anomaly, ah.simulator.Traffic(50))

	suggested := ""
	if len(analysis.RecommendedActions) > 0 {
		suggested = analysis.RecommendedActions[0]
	}
	// The anomaly may have been evicted from the live list while the
	// analysis call was in flight; the analysis is still returned.
	ah.simulator.AttachAnalysis(id, analysis.RootCause, suggested)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": analysis,
	})
}
