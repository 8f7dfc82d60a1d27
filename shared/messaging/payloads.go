package messaging

import "time"

// SessionEndedPayload публикуется, когда голосовая сессия перешла в состояние ended.
// Потребитель по нему запускает конвейер извлечения данных истории.
type SessionEndedPayload struct {
	CallID  string    `json:"call_id"`
	StoryID *string   `json:"story_id,omitempty"`
	UserID  *string   `json:"user_id,omitempty"`
	EndedAt time.Time `json:"ended_at"`
	Reason  string    `json:"reason,omitempty"`
}
