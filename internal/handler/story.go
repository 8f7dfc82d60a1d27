package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"superstory-server/internal/service"
	"superstory-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runPipeline POST /api/calls/:callId/story: ручной запуск конвейера (тело необязательно).
func (h *Handler) runPipeline(c *gin.Context) {
	callID := c.Param("callId")
	log := h.logger.With(zap.String("callID", callID))

	var req runPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, models.ErrCodeValidation, err)
		return
	}
	opts, err := req.toRunOptions()
	if err != nil {
		h.badRequest(c, models.ErrCodeValidation, err)
		return
	}

	acquired, err := h.locks.Acquire(c.Request.Context(), callID, h.lockTTL)
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("acquire call lock: %w", err))
		return
	}
	if !acquired {
		h.handleServiceError(c, models.ErrCallLocked)
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), callID, opts)
	if err == nil {
		c.JSON(http.StatusOK, runPipelineResponse{
			Success:      true,
			StoryID:      result.StoryID.String(),
			CharacterID:  result.CharacterID.String(),
			StoryInputID: result.StoryInputID.String(),
			StoryCreated: result.StoryCreated,
		})
		return
	}

	var pErr *service.PipelineError
	if !errors.As(err, &pErr) {
		h.releaseLock(log, callID)
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusInternalServerError
	switch pErr.Stage {
	case service.StageExtract:
		status = http.StatusUnprocessableEntity
		if pErr.Retryable() {
			h.releaseLock(log, callID)
		}
	case service.StageFetch:
		status = http.StatusBadGateway
		h.releaseLock(log, callID)
	case service.StageStorage:
		h.releaseLock(log, callID)
	}
	c.JSON(status, runPipelineResponse{Success: false, Stage: string(pErr.Stage), Error: pErr.Reason()})
}

func (h *Handler) releaseLock(log *zap.Logger, callID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.locks.Release(ctx, callID); err != nil {
		log.Error("Failed to release call lock", zap.Error(err))
	}
}

func (r runPipelineRequest) toRunOptions() (service.RunOptions, error) {
	var opts service.RunOptions
	if r.StoryID != nil && *r.StoryID != "" {
		id, err := uuid.Parse(*r.StoryID)
		if err != nil {
			return opts, fmt.Errorf("invalid story_id: %w", err)
		}
		opts.StoryID = &id
	}
	if r.UserID != nil && *r.UserID != "" {
		id, err := uuid.Parse(*r.UserID)
		if err != nil {
			return opts, fmt.Errorf("invalid user_id: %w", err)
		}
		opts.UserID = &id
	}
	return opts, nil
}

// getStory GET /api/stories/:id
func (h *Handler) getStory(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, models.ErrCodeBadRequest, fmt.Errorf("invalid story id: %w", err))
		return
	}

	details, err := h.stories.GetStoryDetails(c.Request.Context(), storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
