package models

import "time"

// SessionRecord - запись о звонке, как ее возвращает голосовой сервис (GET /call/{id}).
// Полезная нагрузка может дополняться между запросами, пока сервис досчитывает анализ.
type SessionRecord struct {
	ID          string           `json:"id"`
	Status      string           `json:"status,omitempty"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	EndedAt     *time.Time       `json:"endedAt,omitempty"`
	EndedReason string           `json:"endedReason,omitempty"`
	Analysis    *SessionAnalysis `json:"analysis,omitempty"`
}

// SessionAnalysis - результат пост-обработки звонка.
type SessionAnalysis struct {
	Summary        string         `json:"summary,omitempty"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
}

// StructuredData возвращает analysis.structuredData или nil.
func (r *SessionRecord) StructuredData() map[string]any {
	if r == nil || r.Analysis == nil {
		return nil
	}
	return r.Analysis.StructuredData
}

// HasStructuredData - true, если structuredData присутствует и не пуста.
func (r *SessionRecord) HasStructuredData() bool {
	return len(r.StructuredData()) > 0
}

// IsFinalized - true, если у звонка есть время завершения.
func (r *SessionRecord) IsFinalized() bool {
	return r != nil && r.EndedAt != nil && !r.EndedAt.IsZero()
}
