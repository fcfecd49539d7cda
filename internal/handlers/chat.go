package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openhealth/shared-backend/internal/platform/apierr"
	"github.com/openhealth/shared-backend/internal/requestdata"
	"github.com/openhealth/shared-backend/internal/services"
)

type ChatHandler struct {
	orchestrator services.Orchestrator
}

func NewChatHandler(orchestrator services.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// Chat is the main conversational endpoint. Omitting conversation_id starts
// a new conversation.
func (ch *ChatHandler) Chat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		ConversationID *string `json:"conversation_id"`
		Message        string  `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var convID *uuid.UUID
	if req.ConversationID != nil && *req.ConversationID != "" {
		parsed, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
			return
		}
		convID = &parsed
	}

	result, err := ch.orchestrator.HandleMessage(c.Request.Context(), rd.UserID, convID, req.Message)
	if err != nil {
		if services.IsConfigurationError(err) {
			RespondFromError(c, apierr.New(http.StatusServiceUnavailable, "not_configured", err))
			return
		}
		RespondFromError(c, apierr.BadRequest("chat_failed", err))
		return
	}
	RespondOK(c, result)
}
