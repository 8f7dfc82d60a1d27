package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"superstory-server/internal/extraction"
	"superstory-server/internal/mocks"
	"superstory-server/internal/service"
	"superstory-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const pipelineCallID = "call-42"

var defaultUserID = uuid.MustParse("ca5f8a12-ba36-4a82-9a9f-115336a2218e")

func recordWith(data map[string]any) *models.SessionRecord {
	return &models.SessionRecord{ID: pipelineCallID, Analysis: &models.SessionAnalysis{StructuredData: data}}
}

func validData() map[string]any {
	return map[string]any{
		"MainCharacter": map[string]any{"name": "Mia", "age": float64(7), "looks": "red boots"},
		"story_idea":    "a dragon who is afraid of the dark",
	}
}

func newPipeline(t *testing.T) (*service.CallCompletionPipeline, *mocks.MockCallFetcher, *mocks.MockStoryRepository) {
	t.Helper()
	fetcher := mocks.NewMockCallFetcher(t)
	repo := mocks.NewMockStoryRepository(t)
	return service.NewCallCompletionPipeline(fetcher, repo, defaultUserID, zap.NewNop()), fetcher, repo
}

func TestPipelineRun_Success(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	ctx := context.Background()

	fetcher.On("Fetch", ctx, pipelineCallID).Return(recordWith(validData()), nil).Once()

	var calls []string
	var story *models.Story
	var character *models.Character
	var input *models.StoryInput

	repo.On("CreateStory", ctx, mock.AnythingOfType("*models.Story")).
		Run(func(args mock.Arguments) {
			calls = append(calls, "story")
			story = args.Get(1).(*models.Story)
		}).Return(nil).Once()
	repo.On("CreateCharacter", ctx, mock.AnythingOfType("*models.Character")).
		Run(func(args mock.Arguments) {
			calls = append(calls, "character")
			character = args.Get(1).(*models.Character)
		}).Return(nil).Once()
	repo.On("CreateStoryInput", ctx, mock.AnythingOfType("*models.StoryInput")).
		Run(func(args mock.Arguments) {
			calls = append(calls, "input")
			input = args.Get(1).(*models.StoryInput)
		}).Return(nil).Once()

	result, err := p.Run(ctx, pipelineCallID, service.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"story", "character", "input"}, calls)

	assert.Equal(t, models.StoryStatusInputGenerated, story.Status)
	assert.Equal(t, defaultUserID, story.UserID)
	assert.Equal(t, models.StoryTitleFor(story.CreatedAt), story.Title)

	assert.Equal(t, story.ID, character.StoryID)
	assert.Equal(t, "Mia", character.Name)
	require.NotNil(t, character.Age)
	assert.Equal(t, 7, *character.Age)

	assert.Equal(t, story.ID, input.StoryID)
	assert.Equal(t, "a dragon who is afraid of the dark", input.PlotIdea)
	require.NotNil(t, input.MainCharacterID)
	assert.Equal(t, character.ID, *input.MainCharacterID)

	assert.Equal(t, story.ID, result.StoryID)
	assert.Equal(t, character.ID, result.CharacterID)
	assert.Equal(t, input.ID, result.StoryInputID)
	assert.True(t, result.StoryCreated)
}

func TestPipelineRun_ExistingStorySkipsStoryInsert(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	ctx := context.Background()
	storyID := uuid.New()
	userID := uuid.New()

	fetcher.On("Fetch", ctx, pipelineCallID).Return(recordWith(validData()), nil).Once()
	repo.On("CreateCharacter", ctx, mock.MatchedBy(func(c *models.Character) bool { return c.StoryID == storyID })).Return(nil).Once()
	repo.On("CreateStoryInput", ctx, mock.MatchedBy(func(in *models.StoryInput) bool { return in.StoryID == storyID })).Return(nil).Once()

	result, err := p.Run(ctx, pipelineCallID, service.RunOptions{StoryID: &storyID, UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, storyID, result.StoryID)
	assert.False(t, result.StoryCreated)
	repo.AssertNotCalled(t, "CreateStory", mock.Anything, mock.Anything)
}

func TestPipelineRun_CustomUser(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	ctx := context.Background()
	userID := uuid.New()

	fetcher.On("Fetch", ctx, pipelineCallID).Return(recordWith(validData()), nil).Once()
	repo.On("CreateStory", ctx, mock.MatchedBy(func(s *models.Story) bool { return s.UserID == userID })).Return(nil).Once()
	repo.On("CreateCharacter", ctx, mock.Anything).Return(nil).Once()
	repo.On("CreateStoryInput", ctx, mock.Anything).Return(nil).Once()

	_, err := p.Run(ctx, pipelineCallID, service.RunOptions{UserID: &userID})
	require.NoError(t, err)
}

func TestPipelineRun_ExtractionFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]any
		want      error
		retryable bool
	}{
		{name: "empty structured data", data: map[string]any{}, want: extraction.ErrNoStructuredData, retryable: true},
		{name: "missing plot", data: map[string]any{"character": map[string]any{"name": "Mia"}}, want: extraction.ErrNoPlotIdea},
		{name: "missing character", data: map[string]any{"plot": "x"}, want: extraction.ErrNoCharacterData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fetcher, repo := newPipeline(t)
			fetcher.On("Fetch", mock.Anything, pipelineCallID).Return(recordWith(tt.data), nil).Once()

			result, err := p.Run(context.Background(), pipelineCallID, service.RunOptions{})
			assert.Nil(t, result)

			var pErr *service.PipelineError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, service.StageExtract, pErr.Stage)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.Error(), pErr.Reason())
			assert.Equal(t, tt.retryable, pErr.Retryable())
			assert.Empty(t, repo.Calls)
		})
	}
}

func TestPipelineRun_FinalizedWithoutDataReportsNoStructuredData(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	ended := time.Now()
	fetcher.On("Fetch", mock.Anything, pipelineCallID).
		Return(&models.SessionRecord{ID: pipelineCallID, EndedAt: &ended}, nil).Once()

	_, err := p.Run(context.Background(), pipelineCallID, service.RunOptions{})
	assert.ErrorIs(t, err, extraction.ErrNoStructuredData)
	assert.Empty(t, repo.Calls)
}

func TestPipelineRun_FetchFailure(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	fetcher.On("Fetch", mock.Anything, pipelineCallID).Return(nil, models.ErrSessionNotFound).Once()

	_, err := p.Run(context.Background(), pipelineCallID, service.RunOptions{})

	var pErr *service.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, service.StageFetch, pErr.Stage)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Empty(t, repo.Calls)
}

func TestPipelineRun_StorageFailureAbortsRemainingInserts(t *testing.T) {
	p, fetcher, repo := newPipeline(t)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	fetcher.On("Fetch", ctx, pipelineCallID).Return(recordWith(validData()), nil).Once()
	repo.On("CreateStory", ctx, mock.Anything).Return(nil).Once()
	repo.On("CreateCharacter", ctx, mock.Anything).Return(dbErr).Once()

	result, err := p.Run(ctx, pipelineCallID, service.RunOptions{})
	assert.Nil(t, result)

	var pErr *service.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, service.StageStorage, pErr.Stage)
	assert.ErrorIs(t, err, dbErr)
	repo.AssertNotCalled(t, "CreateStoryInput", mock.Anything, mock.Anything)
}

func TestPipelineError_RetryableOutsideExtract(t *testing.T) {
	assert.True(t, (&service.PipelineError{Stage: service.StageFetch, Err: models.ErrSessionNotFound}).Retryable())
	assert.True(t, (&service.PipelineError{Stage: service.StageStorage, Err: errors.New("conn reset")}).Retryable())
}

func TestRunTimeout_CoversFetchBudget(t *testing.T) {
	budget := 9 * time.Minute
	assert.Greater(t, service.RunTimeout(budget), budget)
}
