package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"superstory-server/internal/extraction"
	"superstory-server/internal/mocks"
	"superstory-server/internal/service"
	"superstory-server/internal/vapi"
	"superstory-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const lockTTL = time.Hour

func newTestConsumer(t *testing.T) (*SessionEndedConsumer, *mocks.MockPipelineRunner, *mocks.MockCallLockRepository) {
	t.Helper()
	pipeline := mocks.NewMockPipelineRunner(t)
	locks := mocks.NewMockCallLockRepository(t)
	c := NewSessionEndedConsumer(nil, pipeline, locks, ConsumerConfig{LockTTL: lockTTL}, zap.NewNop())
	return c, pipeline, locks
}

func TestProcess_InvalidPayload(t *testing.T) {
	c, _, _ := newTestConsumer(t)
	assert.Equal(t, outcomeNack, c.process(context.Background(), []byte("{not json")))
	assert.Equal(t, outcomeNack, c.process(context.Background(), []byte(`{"call_id":""}`)))
}

func TestProcess_DuplicateIsSkipped(t *testing.T) {
	c, pipeline, locks := newTestConsumer(t)
	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(false, nil).Once()

	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
	pipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_LockError(t *testing.T) {
	c, _, locks := newTestConsumer(t)
	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(false, errors.New("redis down")).Once()

	assert.Equal(t, outcomeNack, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
}

func TestProcess_Success(t *testing.T) {
	c, pipeline, locks := newTestConsumer(t)
	storyID := uuid.New()
	userID := uuid.New()

	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	pipeline.On("Run", mock.Anything, "c1", service.RunOptions{StoryID: &storyID, UserID: &userID}).
		Return(&service.PipelineResult{StoryID: storyID}, nil).Once()

	body := []byte(`{"call_id":"c1","story_id":"` + storyID.String() + `","user_id":"` + userID.String() + `"}`)
	assert.Equal(t, outcomeAck, c.process(context.Background(), body))
	locks.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestProcess_InvalidIDsAreIgnored(t *testing.T) {
	c, pipeline, locks := newTestConsumer(t)
	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	pipeline.On("Run", mock.Anything, "c1", service.RunOptions{}).Return(&service.PipelineResult{}, nil).Once()

	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1","story_id":"nope","user_id":"bad"}`)))
}

func TestProcess_ExtractionFailureIsAcked(t *testing.T) {
	c, pipeline, locks := newTestConsumer(t)
	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	pipeline.On("Run", mock.Anything, "c1", service.RunOptions{}).
		Return(nil, &service.PipelineError{Stage: service.StageExtract, CallID: "c1", Err: extraction.ErrNoPlotIdea}).Once()

	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
	locks.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestProcess_NoStructuredDataReleasesLock(t *testing.T) {
	c, pipeline, locks := newTestConsumer(t)
	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	pipeline.On("Run", mock.Anything, "c1", service.RunOptions{}).
		Return(nil, &service.PipelineError{Stage: service.StageExtract, CallID: "c1", Err: extraction.ErrNoStructuredData}).Once()
	locks.On("Release", mock.Anything, "c1").Return(nil).Once()

	// Повтор из очереди не поможет, но ручной запуск должен остаться возможным
	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
}

func TestProcess_RunDeadlineFollowsConfig(t *testing.T) {
	pipeline := mocks.NewMockPipelineRunner(t)
	locks := mocks.NewMockCallLockRepository(t)
	timeout := 20 * time.Minute
	c := NewSessionEndedConsumer(nil, pipeline, locks, ConsumerConfig{LockTTL: lockTTL, PipelineTimeout: timeout}, zap.NewNop())

	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	started := time.Now()
	pipeline.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && deadline.Sub(started) > timeout-time.Minute && deadline.Sub(started) <= timeout+time.Second
	}), "c1", service.RunOptions{}).Return(&service.PipelineResult{}, nil).Once()

	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
}

func TestProcess_HardFailureReleasesLock(t *testing.T) {
	for _, stage := range []service.Stage{service.StageFetch, service.StageStorage} {
		t.Run(string(stage), func(t *testing.T) {
			c, pipeline, locks := newTestConsumer(t)
			locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
			pipeline.On("Run", mock.Anything, "c1", service.RunOptions{}).
				Return(nil, &service.PipelineError{Stage: stage, CallID: "c1", Err: errors.New("boom")}).Once()
			locks.On("Release", mock.Anything, "c1").Return(nil).Once()

			assert.Equal(t, outcomeNack, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
		})
	}
}

func TestProcess_CallEndedBeforeAnalysisLeavesCallRetryable(t *testing.T) {
	client := mocks.NewMockSessionClient(t)
	repo := mocks.NewMockStoryRepository(t)
	locks := mocks.NewMockCallLockRepository(t)

	ended := time.Now()
	client.On("GetCall", mock.Anything, "c1").Return(&models.SessionRecord{ID: "c1", EndedAt: &ended}, nil).Once()

	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	fetcher := vapi.NewFetcher(client, vapi.FetcherConfig{MaxAttempts: 5, InitialDelay: time.Second}, zap.NewNop(), vapi.WithSleepFunc(noSleep))
	pipeline := service.NewCallCompletionPipeline(fetcher, repo, uuid.New(), zap.NewNop())
	c := NewSessionEndedConsumer(nil, pipeline, locks, ConsumerConfig{LockTTL: lockTTL}, zap.NewNop())

	locks.On("Acquire", mock.Anything, "c1", lockTTL).Return(true, nil).Once()
	locks.On("Release", mock.Anything, "c1").Return(nil).Once()

	assert.Equal(t, outcomeAck, c.process(context.Background(), []byte(`{"call_id":"c1"}`)))
	client.AssertNumberOfCalls(t, "GetCall", 1)
	assert.Empty(t, repo.Calls)
}
