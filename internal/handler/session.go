package handler

import (
	"net/http"

	"superstory-server/internal/session"
	"superstory-server/shared/models"

	"github.com/gin-gonic/gin"
)

// sessionEvent POST /api/sessions/:callId/events: события SDK веб-клиента.
func (h *Handler) sessionEvent(c *gin.Context) {
	callID := c.Param("callId")

	var req sessionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, models.ErrCodeValidation, err)
		return
	}

	event := session.Event{
		Type:           req.Type,
		Role:           req.Role,
		Transcript:     req.Transcript,
		TranscriptType: req.TranscriptType,
		Volume:         req.Volume,
		Reason:         req.Reason,
	}
	meta := session.Metadata{StoryID: req.StoryID, UserID: req.UserID}

	snap, transition, err := h.sessions.Apply(c.Request.Context(), callID, event, meta)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":    snap,
		"transition": transition,
	})
}

// getSession GET /api/sessions/:callId
func (h *Handler) getSession(c *gin.Context) {
	snap, ok := h.sessions.Get(c.Param("callId"))
	if !ok {
		h.handleServiceError(c, models.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, snap)
}
