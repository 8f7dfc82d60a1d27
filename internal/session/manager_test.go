package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"superstory-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager() *Manager {
	m := NewManager(16, zap.NewNop())
	m.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestManager_FullLifecycle(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	storyID := "story-1"

	_, tr, err := m.Apply(ctx, "c1", Event{Type: EventStartRequested}, Metadata{StoryID: &storyID})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, StateIdle, tr.From)
	assert.Equal(t, StateConnecting, tr.To)

	_, _, err = m.Apply(ctx, "c1", Event{Type: EventCallStart}, Metadata{})
	require.NoError(t, err)

	s, tr, err := m.Apply(ctx, "c1", Event{Type: EventCallEnd, Reason: "customer-ended-call"}, Metadata{})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, StateEnded, s.State)
	assert.Equal(t, "customer-ended-call", s.EndedReason)
	require.NotNil(t, s.EndedAt)
	require.NotNil(t, s.StoryID)
	assert.Equal(t, "story-1", *s.StoryID)

	var got []State
	for len(m.Transitions()) > 0 {
		got = append(got, (<-m.Transitions()).To)
	}
	assert.Equal(t, []State{StateConnecting, StateActive, StateEnded}, got)
}

func TestManager_DuplicateEndIsRejected(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, _, err := m.Apply(ctx, "c1", Event{Type: EventCallEnd}, Metadata{})
	require.NoError(t, err)

	_, tr, err := m.Apply(ctx, "c1", Event{Type: EventCallEnd}, Metadata{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, tr)
	assert.Len(t, m.Transitions(), 1, "only the first end is published")
}

func TestManager_AttributeEvents(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, _, err := m.Apply(ctx, "c1", Event{Type: EventCallStart}, Metadata{})
	require.NoError(t, err)

	s, tr, err := m.Apply(ctx, "c1", Event{Type: EventSpeechStart}, Metadata{})
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.True(t, s.SpeechActive)

	s, _, _ = m.Apply(ctx, "c1", Event{Type: EventVolumeLevel, Volume: 0.4}, Metadata{})
	assert.InDelta(t, 0.4, s.AudioLevel, 1e-9)

	s, _, _ = m.Apply(ctx, "c1", Event{Type: EventMessage, Role: models.ChatRoleUser, Transcript: "a dra", TranscriptType: TranscriptPartial}, Metadata{})
	require.NotNil(t, s.ActiveTranscript)
	assert.Equal(t, "a dra", s.ActiveTranscript.Content)
	assert.Empty(t, s.Messages)

	s, _, _ = m.Apply(ctx, "c1", Event{Type: EventMessage, Role: models.ChatRoleUser, Transcript: "a dragon", TranscriptType: TranscriptFinal}, Metadata{})
	assert.Nil(t, s.ActiveTranscript)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "a dragon", s.Messages[0].Content)

	s, _, _ = m.Apply(ctx, "c1", Event{Type: EventSpeechEnd}, Metadata{})
	assert.False(t, s.SpeechActive)
	assert.Len(t, m.Transitions(), 1)
}

func TestManager_AttributeAfterEnd(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	_, _, _ = m.Apply(ctx, "c1", Event{Type: EventCallEnd}, Metadata{})

	_, _, err := m.Apply(ctx, "c1", Event{Type: EventSpeechStart}, Metadata{})
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestManager_UnknownEvent(t *testing.T) {
	m := newTestManager()
	_, _, err := m.Apply(context.Background(), "c1", Event{Type: "hang-up"}, Metadata{})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestManager_SnapshotIsCopy(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	_, _, _ = m.Apply(ctx, "c1", Event{Type: EventMessage, Role: models.ChatRoleUser, Transcript: "hi"}, Metadata{})

	s, ok := m.Get("c1")
	require.True(t, ok)
	s.Messages[0].Content = "changed"

	again, _ := m.Get("c1")
	assert.Equal(t, "hi", again.Messages[0].Content)
}

func TestManager_Prune(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	old := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, _, _ = m.Apply(ctx, "old", Event{Type: EventCallEnd, At: old}, Metadata{})
	_, _, _ = m.Apply(ctx, "fresh", Event{Type: EventCallEnd}, Metadata{})
	_, _, _ = m.Apply(ctx, "live", Event{Type: EventCallStart, At: old}, Metadata{})

	assert.Equal(t, 1, m.Prune(24*time.Hour))
	_, ok := m.Get("old")
	assert.False(t, ok)
	_, ok = m.Get("fresh")
	assert.True(t, ok)
	_, ok = m.Get("live")
	assert.True(t, ok)
}

func TestManager_ClosedRejectsEvents(t *testing.T) {
	m := newTestManager()
	m.Close()
	m.Close()

	_, _, err := m.Apply(context.Background(), "c1", Event{Type: EventCallStart}, Metadata{})
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestManager_PublishHonoursContext(t *testing.T) {
	m := NewManager(0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, tr, err := m.Apply(ctx, "c1", Event{Type: EventCallStart}, Metadata{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, tr)
	assert.Equal(t, StateActive, s.State)
}

func TestManager_TransitionsPublishedInApplyOrder(t *testing.T) {
	const calls = 50
	m := NewManager(calls*3, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		callID := fmt.Sprintf("c%d", i)
		for _, ev := range []EventType{EventStartRequested, EventCallStart, EventCallEnd} {
			wg.Add(1)
			go func(ev EventType) {
				defer wg.Done()
				_, _, _ = m.Apply(ctx, callID, Event{Type: ev}, Metadata{})
			}(ev)
		}
	}
	wg.Wait()

	var lastSeq uint64
	lastState := map[string]State{}
	for len(m.Transitions()) > 0 {
		tr := <-m.Transitions()
		assert.Greater(t, tr.Seq, lastSeq)
		lastSeq = tr.Seq

		prev, ok := lastState[tr.CallID]
		if !ok {
			prev = StateIdle
		}
		assert.Equal(t, prev, tr.From, "call %s: transition out of order", tr.CallID)
		lastState[tr.CallID] = tr.To
	}
	for id, st := range lastState {
		assert.Equal(t, StateEnded, st, "call %s", id)
	}
}
