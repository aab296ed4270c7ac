package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contexthub/pkg/models"
)

type chatRequest struct {
	Messages []models.ConversationTurn `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// handleChat runs a chat completion over the supplied message history.
// Messages may carry base64 screenshots, which reach the model as image
// parts.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages are required"})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid message role"})
		}
	}

	log.Printf("[INFO] chat: processing %d messages", len(req.Messages))

	content, err := s.deps.ChatLLM.Chat(c.Request().Context(), s.systemPrompt(), req.Messages)
	if err != nil {
		log.Printf("[ERROR] chat: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process chat request"})
	}
	return c.JSON(http.StatusOK, chatResponse{Content: content})
}

func (s *Server) systemPrompt() string {
	if s.deps.Config != nil && s.deps.Config.LLM.SystemPrompt != "" {
		return s.deps.Config.LLM.SystemPrompt
	}
	return DefaultSystemPrompt
}
