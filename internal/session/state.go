package session

import "errors"

// State состояние голосовой сессии.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateEnded      State = "ended"
)

// EventType дискретное уведомление от клиента или голосового сервиса.
type EventType string

const (
	EventStartRequested EventType = "start-requested"
	EventCallStart      EventType = "call-start"
	EventCallEnd        EventType = "call-end"
	EventError          EventType = "error"

	// Не меняют состояние, только атрибуты сессии.
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventVolumeLevel EventType = "volume-level"
	EventMessage     EventType = "message"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrUnknownEvent      = errors.New("unknown session event")
	ErrSessionEnded      = errors.New("session already ended")
)

// transitions таблица переходов: состояние -> событие -> новое состояние.
var transitions = map[State]map[EventType]State{
	StateIdle: {
		EventStartRequested: StateConnecting,
		EventCallStart:      StateActive,
		EventCallEnd:        StateEnded,
		EventError:          StateEnded,
	},
	StateConnecting: {
		EventCallStart: StateActive,
		EventCallEnd:   StateEnded,
		EventError:     StateEnded,
	},
	StateActive: {
		EventCallEnd: StateEnded,
		EventError:   StateEnded,
	},
	StateEnded: {},
}

// IsTransitionEvent true для событий, меняющих состояние.
func IsTransitionEvent(e EventType) bool {
	switch e {
	case EventStartRequested, EventCallStart, EventCallEnd, EventError:
		return true
	}
	return false
}

// IsAttributeEvent true для событий, обновляющих только атрибуты.
func IsAttributeEvent(e EventType) bool {
	switch e {
	case EventSpeechStart, EventSpeechEnd, EventVolumeLevel, EventMessage:
		return true
	}
	return false
}

// Next возвращает состояние после события или ErrInvalidTransition.
func Next(from State, e EventType) (State, error) {
	if !IsTransitionEvent(e) {
		return from, ErrUnknownEvent
	}
	to, ok := transitions[from][e]
	if !ok {
		return from, ErrInvalidTransition
	}
	return to, nil
}
