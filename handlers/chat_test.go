package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgescope/config"
	"edgescope/services"
)

func newChatTestHandlers(t *testing.T, modelReply string) (*ChatHandlers, *services.HistoryService) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": modelReply})
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		AI: config.AIConfig{
			Endpoint:    server.URL,
			Model:       "@cf/meta/llama-3-8b-instruct",
			Timeout:     2,
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Redis: config.RedisConfig{Enabled: false},
	}

	history := services.NewHistoryService(cfg)
	return NewChatHandlers(services.NewAIClient(cfg), history), history
}

func postJSON(e *echo.Echo, handler echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = handler(c)
	return rec
}

func TestPostChatSuccess(t *testing.T) {
	reply := `{"summary": "DNS failure", "reasoning": "Lookup timed out.", "potential_fix": "Check the resolver."}`
	ch, history := newChatTestHandlers(t, reply)
	e := echo.New()

	rec := postJSON(e, ch.PostChat, "/api/chat", `{"message": "ERROR: lookup failed", "sessionId": "sess-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success      bool   `json:"success"`
		SessionID    string `json:"sessionId"`
		MessageCount int    `json:"messageCount"`
		Analysis     struct {
			Summary string `json:"summary"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 2, resp.MessageCount)
	assert.Equal(t, "DNS failure", resp.Analysis.Summary)

	// both sides of the exchange were persisted
	saved := history.GetHistory("sess-1")
	require.Len(t, saved, 2)
	assert.Equal(t, "ERROR: lookup failed", saved[0].Content)
	assert.Contains(t, saved[1].Content, "DNS failure")
}

func TestPostChatGrowsHistory(t *testing.T) {
	reply := `{"summary": "s", "reasoning": "r", "potential_fix": "f"}`
	ch, _ := newChatTestHandlers(t, reply)
	e := echo.New()

	postJSON(e, ch.PostChat, "/api/chat", `{"message": "one", "sessionId": "sess-1"}`)
	rec := postJSON(e, ch.PostChat, "/api/chat", `{"message": "two", "sessionId": "sess-1"}`)

	var resp struct {
		MessageCount int `json:"messageCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.MessageCount)
}

func TestPostChatValidation(t *testing.T) {
	ch, _ := newChatTestHandlers(t, "{}")
	e := echo.New()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing message", `{"sessionId": "sess-1"}`, "Message is required and must be a string"},
		{"missing session", `{"message": "hello"}`, "SessionId is required and must be a string"},
		{"malformed body", `{"message": 42, "sessionId": "x"}`, "Invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(e, ch.PostChat, "/api/chat", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestGetHistoryUnknownSession(t *testing.T) {
	ch, _ := newChatTestHandlers(t, "{}")
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/history/ghost", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("ghost")
	require.NoError(t, ch.GetHistory(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success  bool              `json:"success"`
		Messages []json.RawMessage `json:"messages"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Messages)
	assert.Zero(t, resp.Count)
}

func TestDeleteSession(t *testing.T) {
	reply := `{"summary": "s", "reasoning": "r", "potential_fix": "f"}`
	ch, history := newChatTestHandlers(t, reply)
	e := echo.New()

	postJSON(e, ch.PostChat, "/api/chat", `{"message": "hello", "sessionId": "sess-1"}`)
	require.NotEmpty(t, history.GetHistory("sess-1"))

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("sess-1")
	require.NoError(t, ch.DeleteSession(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, history.GetHistory("sess-1"))
}
