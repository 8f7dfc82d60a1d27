package handler

import (
	"errors"
	"net/http"

	"superstory-server/internal/session"
	"superstory-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// vapiWebhook POST /api/vapi/webhook: серверные сообщения Vapi переводятся в события сессии.
// Повторные и неподходящие по состоянию события подтверждаются 200, чтобы Vapi не ретраил.
func (h *Handler) vapiWebhook(c *gin.Context) {
	var req vapiWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, models.ErrCodeBadRequest, err)
		return
	}
	msg := req.Message
	callID := msg.Call.ID
	log := h.logger.With(zap.String("type", msg.Type), zap.String("callID", callID))

	event, ok := webhookEvent(msg.Type, msg.Status, msg.Role, msg.Transcript, msg.TranscriptType, msg.EndedReason)
	if !ok || callID == "" {
		log.Debug("Webhook message ignored", zap.String("status", msg.Status))
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	meta := session.Metadata{
		StoryID: metadataString(msg.Call.Metadata, "story_id", "storyId"),
		UserID:  metadataString(msg.Call.Metadata, "user_id", "userId"),
	}

	_, _, err := h.sessions.Apply(c.Request.Context(), callID, event, meta)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrSessionEnded):
		log.Info("Duplicate or late webhook event ignored", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
	default:
		h.handleServiceError(c, err)
	}
}

// webhookEvent сопоставляет сообщение Vapi событию сессии.
func webhookEvent(msgType, status, role, transcript, transcriptType, endedReason string) (session.Event, bool) {
	switch msgType {
	case "status-update":
		switch status {
		case "queued", "ringing":
			return session.Event{Type: session.EventStartRequested}, true
		case "in-progress":
			return session.Event{Type: session.EventCallStart}, true
		case "ended":
			return session.Event{Type: session.EventCallEnd, Reason: endedReason}, true
		}
	case "end-of-call-report":
		return session.Event{Type: session.EventCallEnd, Reason: endedReason}, true
	case "speech-update":
		switch status {
		case "started":
			return session.Event{Type: session.EventSpeechStart, Role: role}, true
		case "stopped":
			return session.Event{Type: session.EventSpeechEnd, Role: role}, true
		}
	case "transcript":
		if transcript == "" {
			return session.Event{}, false
		}
		return session.Event{
			Type:           session.EventMessage,
			Role:           role,
			Transcript:     transcript,
			TranscriptType: session.TranscriptType(transcriptType),
		}, true
	}
	return session.Event{}, false
}

func metadataString(md map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := md[key]; ok && v != nil {
			if s := cast.ToString(v); s != "" {
				return &s
			}
		}
	}
	return nil
}
