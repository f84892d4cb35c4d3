package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"edgescope/config"
	"edgescope/services"
	"edgescope/utils"
)

const serviceVersion = "1.0.0"

// SystemHandlers serves health and service metadata.
type SystemHandlers struct {
	cfg     *config.Config
	ai      *services.AIClient
	history *services.HistoryService
	archive *services.ArchiveService
}

func NewSystemHandlers(cfg *config.Config, ai *services.AIClient, history *services.HistoryService, archive *services.ArchiveService) *SystemHandlers {
	return &SystemHandlers{cfg: cfg, ai: ai, history: history, archive: archive}
}

// GetHealth reports service status, backend availability and the API
// surface. When the dashboard sends an X-Client-Version header the
// response includes an upgrade grade for it.
func (sh *SystemHandlers) GetHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "edgescope-backend",
		"version": serviceVersion,
		"ai":      sh.ai.Enabled(),
		"history": sh.history.Mode(),
		"archive": sh.archive.Enabled(),
		"endpoints": map[string]string{
			"chat":       "POST /api/chat",
			"history":    "GET /api/history/:sessionId",
			"sessions":   "GET /api/sessions",
			"analyze":    "POST /api/analyze",
			"simulation": "GET /api/simulation",
			"traffic":    "GET /api/traffic",
			"anomalies":  "GET /api/anomalies",
			"metrics":    "GET /api/metrics",
			"nodes":      "GET /api/nodes",
			"nearest":    "GET /api/nodes/nearest",
			"archive":    "GET /api/simulations",
			"health":     "GET /health",
		},
	}

	if clientVersion := c.Request().Header.Get("X-Client-Version"); clientVersion != "" {
		versions := &utils.VersionConfig{
			CurrentStable: sh.cfg.Frontend.CurrentVersion,
			MinSupported:  sh.cfg.Frontend.MinVersion,
		}
		status, needsUpgrade := utils.CheckClientVersion(clientVersion, versions)
		client := map[string]interface{}{
			"version":      clientVersion,
			"status":       status,
			"needsUpgrade": needsUpgrade,
		}
		if msg := utils.UpgradeMessage(clientVersion, versions); msg != "" {
			client["message"] = msg
		}
		resp["client"] = client
	}

	return c.JSON(http.StatusOK, resp)
}
