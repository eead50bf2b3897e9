package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/services"
)

// Assistant is the chat and insights pipeline behind the assistant endpoints.
type Assistant interface {
	SendChatMessage(ctx context.Context, text string) (services.ChatReply, error)
	LatestInsights(ctx context.Context, forceRefresh bool) services.InsightResult
	History() []services.Turn
	ClearConversation()
}

type AssistantController struct {
	assistant Assistant
}

func NewAssistantController(assistant Assistant) *AssistantController {
	return &AssistantController{assistant: assistant}
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (ac *AssistantController) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reply, err := ac.assistant.SendChatMessage(c.Request.Context(), req.Message)
	if err != nil {
		logger.WithAdmin(adminID(c)).WithField("kind", services.ErrorKind(err)).Warn("Chat message failed")
		respondAssistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (ac *AssistantController) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": ac.assistant.History()})
}

func (ac *AssistantController) ClearConversation(c *gin.Context) {
	ac.assistant.ClearConversation()
	logger.WithAdmin(adminID(c)).Info("Assistant conversation cleared")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Conversation cleared"})
}

// GetInsights serves cached insights; refresh=true forces a new model call.
func (ac *AssistantController) GetInsights(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	c.JSON(http.StatusOK, ac.assistant.LatestInsights(c.Request.Context(), force))
}
