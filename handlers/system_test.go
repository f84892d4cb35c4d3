package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgescope/config"
	"edgescope/services"
)

func newSystemTestHandlers(t *testing.T) *SystemHandlers {
	t.Helper()

	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
		Frontend: config.FrontendConfig{
			CurrentVersion: "1.0.0",
			MinVersion:     "0.9.0",
		},
	}
	history := services.NewHistoryService(cfg)
	archive, err := services.NewArchiveService(cfg)
	require.NoError(t, err)

	return NewSystemHandlers(cfg, services.NewAIClient(cfg), history, archive)
}

func TestGetHealth(t *testing.T) {
	sh := newSystemTestHandlers(t)
	e := echo.New()

	rec := doRequest(e, sh.GetHealth, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status    string            `json:"status"`
		Service   string            `json:"service"`
		AI        bool              `json:"ai"`
		History   string            `json:"history"`
		Archive   bool              `json:"archive"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "edgescope-backend", resp.Service)
	assert.False(t, resp.AI)
	assert.Equal(t, "in-memory", resp.History)
	assert.False(t, resp.Archive)
	assert.Contains(t, resp.Endpoints, "chat")
	assert.Contains(t, resp.Endpoints, "simulation")
}

func TestGetHealthClientVersionGrading(t *testing.T) {
	sh := newSystemTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Client-Version", "0.8.0")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, sh.GetHealth(c))

	var resp struct {
		Client struct {
			Version      string `json:"version"`
			Status       string `json:"status"`
			NeedsUpgrade bool   `json:"needsUpgrade"`
			Message      string `json:"message"`
		} `json:"client"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0.8.0", resp.Client.Version)
	assert.Equal(t, "unsupported", resp.Client.Status)
	assert.True(t, resp.Client.NeedsUpgrade)
	assert.NotEmpty(t, resp.Client.Message)
}
