package handler

import (
	"superstory-server/internal/session"
	"superstory-server/shared/models"
)

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

type chatErrorResponse struct {
	Error string `json:"error"`
}

type sessionEventRequest struct {
	Type           session.EventType      `json:"type" binding:"required"`
	Role           string                 `json:"role" binding:"omitempty,oneof=system user assistant"`
	Transcript     string                 `json:"transcript"`
	TranscriptType session.TranscriptType `json:"transcriptType" binding:"omitempty,oneof=partial final"`
	Volume         float64                `json:"volume" binding:"gte=0,lte=1"`
	Reason         string                 `json:"reason"`
	StoryID        *string                `json:"story_id" binding:"omitempty,uuid"`
	UserID         *string                `json:"user_id" binding:"omitempty,uuid"`
}

type runPipelineRequest struct {
	StoryID *string `json:"story_id" binding:"omitempty,uuid"`
	UserID  *string `json:"user_id" binding:"omitempty,uuid"`
}

type runPipelineResponse struct {
	Success      bool   `json:"success"`
	StoryID      string `json:"story_id,omitempty"`
	CharacterID  string `json:"character_id,omitempty"`
	StoryInputID string `json:"story_input_id,omitempty"`
	StoryCreated bool   `json:"story_created,omitempty"`
	Stage        string `json:"stage,omitempty"`
	Error        string `json:"error,omitempty"`
}

// vapiWebhookRequest конверт серверных сообщений Vapi. Разбираются только нужные поля.
type vapiWebhookRequest struct {
	Message struct {
		Type           string  `json:"type"`
		Status         string  `json:"status"`
		EndedReason    string  `json:"endedReason"`
		Role           string  `json:"role"`
		Transcript     string  `json:"transcript"`
		TranscriptType string  `json:"transcriptType"`
		Call           vapiRef `json:"call"`
	} `json:"message"`
}

type vapiRef struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}
