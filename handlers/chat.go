package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"edgescope/models"
	"edgescope/services"
)

// ChatHandlers implements the analysis chat: each message runs through the
// AI client and both sides of the exchange are appended to the session
// history.
type ChatHandlers struct {
	ai      *services.AIClient
	history *services.HistoryService
}

func NewChatHandlers(ai *services.AIClient, history *services.HistoryService) *ChatHandlers {
	return &ChatHandlers{ai: ai, history: history}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// PostChat analyzes a message in the context of its session history and
// persists the updated conversation.
func (ch *ChatHandlers) PostChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message is required and must be a string"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "SessionId is required and must be a string"})
	}

	history := ch.history.GetHistory(req.SessionID)

	userMessage := models.Message{
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now().UnixMilli(),
	}

	analysis := ch.ai.Analyze(c.Request().Context(), history, req.Message)

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}
	assistantMessage := models.Message{
		Role:      models.RoleAssistant,
		Content:   string(analysisJSON),
		Timestamp: time.Now().UnixMilli(),
	}

	updated := append(history, userMessage, assistantMessage)
	if err := ch.history.SaveHistory(req.SessionID, updated); err != nil {
		log.Printf("Failed to save chat history for %s: %v", req.SessionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"sessionId":    req.SessionID,
		"analysis":     analysis,
		"messageCount": len(updated),
	})
}

// GetHistory returns a session's messages; a missing session yields an
// empty list, never an error page.
func (ch *ChatHandlers) GetHistory(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "SessionId is required"})
	}

	messages := ch.history.GetHistory(sessionID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"sessionId": sessionID,
		"messages":  messages,
		"count":     len(messages),
	})
}

// ListSessions returns the known session ids.
func (ch *ChatHandlers) ListSessions(c echo.Context) error {
	sessions := ch.history.ListSessions()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// DeleteSession removes a session's chat history.
func (ch *ChatHandlers) DeleteSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "SessionId is required"})
	}

	if err := ch.history.DeleteSession(sessionID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"sessionId": sessionID,
	})
}
