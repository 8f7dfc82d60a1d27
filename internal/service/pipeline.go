package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"superstory-server/internal/extraction"
	"superstory-server/internal/metrics"
	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage этап конвейера, на котором произошла ошибка.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageStorage Stage = "storage"
)

// PipelineError ошибка конвейера с указанием этапа.
type PipelineError struct {
	Stage  Stage
	CallID string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("call %s: %s stage failed: %v", e.CallID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Retryable - повторный запуск для того же звонка может дать другой результат.
// Не повторяются только ошибки извлечения из уже досчитанных данных:
// пустой structuredData означает, что анализ еще может появиться.
func (e *PipelineError) Retryable() bool {
	if e.Stage != StageExtract {
		return true
	}
	return errors.Is(e.Err, extraction.ErrNoStructuredData)
}

// Reason короткое описание причины для ответа клиенту.
func (e *PipelineError) Reason() string {
	if e.Err == nil {
		return string(e.Stage)
	}
	return e.Err.Error()
}

// storageAllowance запас на вставки после опроса.
const storageAllowance = time.Minute

// RunTimeout таймаут одного запуска, при котором опрос успевает исчерпать все попытки.
func RunTimeout(fetchBudget time.Duration) time.Duration {
	return fetchBudget + storageAllowance
}

// CallFetcher получает итоговую запись звонка (с повторами).
type CallFetcher interface {
	Fetch(ctx context.Context, callID string) (*models.SessionRecord, error)
}

// RunOptions параметры запуска. StoryID задан - история уже существует и не создается.
type RunOptions struct {
	StoryID *uuid.UUID
	UserID  *uuid.UUID
}

// PipelineResult идентификаторы созданных записей.
type PipelineResult struct {
	StoryID      uuid.UUID `json:"story_id"`
	CharacterID  uuid.UUID `json:"character_id"`
	StoryInputID uuid.UUID `json:"story_input_id"`
	StoryCreated bool      `json:"story_created"`
}

// PipelineRunner запускает обработку завершенного звонка.
type PipelineRunner interface {
	Run(ctx context.Context, callID string, opts RunOptions) (*PipelineResult, error)
}

// CallCompletionPipeline: Fetch -> Extract -> Story (если нет id) -> Character -> StoryInput.
type CallCompletionPipeline struct {
	fetcher       CallFetcher
	repo          interfaces.StoryRepository
	defaultUserID uuid.UUID
	logger        *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

var _ PipelineRunner = (*CallCompletionPipeline)(nil)

// NewCallCompletionPipeline создает конвейер. defaultUserID используется, когда вызывающий не передал пользователя.
func NewCallCompletionPipeline(fetcher CallFetcher, repo interfaces.StoryRepository, defaultUserID uuid.UUID, logger *zap.Logger) *CallCompletionPipeline {
	return &CallCompletionPipeline{
		fetcher:       fetcher,
		repo:          repo,
		defaultUserID: defaultUserID,
		logger:        logger.Named("CallCompletionPipeline"),
		now:           time.Now,
		newID:         uuid.New,
	}
}

// Run обрабатывает звонок. Если извлечение не удалось, в хранилище ничего не пишется.
// Ошибка вставки прерывает запуск, уже вставленные строки остаются.
func (p *CallCompletionPipeline) Run(ctx context.Context, callID string, opts RunOptions) (*PipelineResult, error) {
	start := p.now()
	log := p.logger.With(zap.String("callID", callID))
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	record, err := p.fetcher.Fetch(ctx, callID)
	if err != nil {
		return nil, p.fail(log, StageFetch, callID, err)
	}

	extracted, err := extraction.Extract(record.StructuredData())
	if err != nil {
		return nil, p.fail(log, StageExtract, callID, err)
	}
	log.Info("Structured data extracted",
		zap.String("characterKey", extracted.CharacterKey),
		zap.String("plotKey", extracted.PlotKey),
		zap.String("characterName", extracted.Character.Name),
	)

	result := &PipelineResult{}
	now := p.now().UTC()

	if opts.StoryID != nil {
		result.StoryID = *opts.StoryID
	} else {
		userID := p.defaultUserID
		if opts.UserID != nil {
			userID = *opts.UserID
		}
		story := &models.Story{
			ID:        p.newID(),
			Status:    models.StoryStatusInputGenerated,
			UserID:    userID,
			Title:     models.StoryTitleFor(now),
			CreatedAt: now,
		}
		if err := p.repo.CreateStory(ctx, story); err != nil {
			return nil, p.fail(log, StageStorage, callID, fmt.Errorf("create story: %w", err))
		}
		result.StoryID = story.ID
		result.StoryCreated = true
	}

	character := extracted.Character.ToCharacter()
	character.ID = p.newID()
	character.StoryID = result.StoryID
	character.CreatedAt = now
	if err := p.repo.CreateCharacter(ctx, character); err != nil {
		return nil, p.fail(log, StageStorage, callID, fmt.Errorf("create character: %w", err))
	}
	result.CharacterID = character.ID

	input := &models.StoryInput{
		ID:              p.newID(),
		StoryID:         result.StoryID,
		PlotIdea:        extracted.PlotIdea,
		MainCharacterID: &character.ID,
		CreatedAt:       now,
	}
	if err := p.repo.CreateStoryInput(ctx, input); err != nil {
		return nil, p.fail(log, StageStorage, callID, fmt.Errorf("create story input: %w", err))
	}
	result.StoryInputID = input.ID

	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	log.Info("Story data saved",
		zap.String("storyID", result.StoryID.String()),
		zap.String("characterID", result.CharacterID.String()),
		zap.String("storyInputID", result.StoryInputID.String()),
		zap.Bool("storyCreated", result.StoryCreated),
	)
	return result, nil
}

func (p *CallCompletionPipeline) fail(log *zap.Logger, stage Stage, callID string, err error) error {
	metrics.PipelineRunsTotal.WithLabelValues(string(stage)).Inc()
	log.Error("Pipeline failed", zap.String("stage", string(stage)), zap.Error(err))
	return &PipelineError{Stage: stage, CallID: callID, Err: err}
}
