package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Текст ошибки чата фиксирован, клиент показывает его как есть.
const chatErrorMessage = "An error occurred while processing your request."

// chatRelay POST /api/chat: {messages} -> {content}. Любая ошибка -> 500 {error}.
func (h *Handler) chatRelay(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid chat request body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, chatErrorResponse{Error: chatErrorMessage})
		return
	}

	content, err := h.chat.Reply(c.Request.Context(), req.Messages)
	if err != nil {
		h.logger.Error("Chat relay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, chatErrorResponse{Error: chatErrorMessage})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Content: content})
}
