package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus - статус истории.
type StoryStatus string

const (
	// StoryStatusInputGenerated - входные данные (персонаж и идея) собраны из разговора.
	StoryStatusInputGenerated StoryStatus = "input_generated"
)

// UnknownCharacterName подставляется, если в данных разговора нет имени персонажа.
const UnknownCharacterName = "Unknown Character"

// Story - корневая запись истории. Создается до дочерних записей.
type Story struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Status    StoryStatus `db:"status" json:"status"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Title     string      `db:"title" json:"title"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Character - главный персонаж истории.
type Character struct {
	ID              uuid.UUID `db:"id" json:"id"`
	StoryID         uuid.UUID `db:"story_id" json:"story_id"`
	Name            string    `db:"name" json:"name"`
	Interests       *string   `db:"interests" json:"interests,omitempty"`
	Age             *int      `db:"age" json:"age,omitempty"`
	Looks           *string   `db:"looks" json:"looks,omitempty"`
	CharacterPrompt *string   `db:"character_prompt" json:"character_prompt,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// StoryInput - идея сюжета, собранная в разговоре. Ссылается на Story и, опционально, на Character.
type StoryInput struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	StoryID         uuid.UUID  `db:"story_id" json:"story_id"`
	PlotIdea        string     `db:"plot_idea" json:"plot_idea"`
	MainCharacterID *uuid.UUID `db:"main_character_id" json:"main_character_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// StoryDetails - история вместе с последними персонажем и входными данными.
type StoryDetails struct {
	Story     Story       `json:"story"`
	Character *Character  `json:"character,omitempty"`
	Input     *StoryInput `json:"input,omitempty"`
}

// StoryTitleFor возвращает заголовок по умолчанию вида "Story 2006-01-02".
func StoryTitleFor(t time.Time) string {
	return "Story " + t.UTC().Format("2006-01-02")
}
