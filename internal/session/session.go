package session

import (
	"fmt"
	"time"
)

// TranscriptType тип транскрипта в событии message.
type TranscriptType string

const (
	TranscriptPartial TranscriptType = "partial"
	TranscriptFinal   TranscriptType = "final"
)

// Event уведомление, применяемое к сессии.
type Event struct {
	Type           EventType      `json:"type"`
	Role           string         `json:"role,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	TranscriptType TranscriptType `json:"transcriptType,omitempty"`
	Volume         float64        `json:"volume,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	At             time.Time      `json:"at,omitempty"`
}

// TranscriptMessage реплика финального транскрипта.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session состояние одного звонка. Меняется только через Manager.
type Session struct {
	CallID           string              `json:"call_id"`
	State            State               `json:"state"`
	StoryID          *string             `json:"story_id,omitempty"`
	UserID           *string             `json:"user_id,omitempty"`
	SpeechActive     bool                `json:"speech_active"`
	AudioLevel       float64             `json:"audio_level"`
	Messages         []TranscriptMessage `json:"messages"`
	ActiveTranscript *TranscriptMessage  `json:"active_transcript,omitempty"`
	EndedReason      string              `json:"ended_reason,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	EndedAt          *time.Time          `json:"ended_at,omitempty"`
}

func newSession(callID string, now time.Time) *Session {
	return &Session{
		CallID:    callID,
		State:     StateIdle,
		Messages:  []TranscriptMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// apply применяет событие. Для событий-переходов возвращает предыдущее состояние и changed=true.
func (s *Session) apply(e Event, now time.Time) (from State, changed bool, err error) {
	from = s.State
	switch {
	case IsTransitionEvent(e.Type):
		to, err := Next(s.State, e.Type)
		if err != nil {
			return from, false, fmt.Errorf("%w: %s on %s", err, e.Type, s.State)
		}
		s.State = to
		if to == StateEnded {
			s.SpeechActive = false
			s.ActiveTranscript = nil
			s.EndedReason = e.Reason
			ended := now
			s.EndedAt = &ended
		}
		s.UpdatedAt = now
		return from, true, nil

	case IsAttributeEvent(e.Type):
		if s.State == StateEnded {
			return from, false, ErrSessionEnded
		}
		s.applyAttribute(e)
		s.UpdatedAt = now
		return from, false, nil

	default:
		return from, false, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
}

func (s *Session) applyAttribute(e Event) {
	switch e.Type {
	case EventSpeechStart:
		s.SpeechActive = true
	case EventSpeechEnd:
		s.SpeechActive = false
	case EventVolumeLevel:
		s.AudioLevel = e.Volume
	case EventMessage:
		msg := TranscriptMessage{Role: e.Role, Content: e.Transcript}
		if e.TranscriptType == TranscriptPartial {
			s.ActiveTranscript = &msg
			return
		}
		s.ActiveTranscript = nil
		s.Messages = append(s.Messages, msg)
	}
}

// snapshot копия сессии, безопасная для передачи за пределы Manager.
func (s *Session) snapshot() Session {
	cp := *s
	cp.Messages = append([]TranscriptMessage(nil), s.Messages...)
	if cp.Messages == nil {
		cp.Messages = []TranscriptMessage{}
	}
	if s.ActiveTranscript != nil {
		at := *s.ActiveTranscript
		cp.ActiveTranscript = &at
	}
	return cp
}
