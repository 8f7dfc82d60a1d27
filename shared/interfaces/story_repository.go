package interfaces

import (
	"context"

	"superstory-server/shared/models"

	"github.com/google/uuid"
)

// StoryRepository - хранилище историй и их дочерних записей.
// Каждый метод Create* выполняет ровно одну вставку. Порядок вставок (Story -> Character -> StoryInput)
// обеспечивает вызывающий код.
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	CreateCharacter(ctx context.Context, character *models.Character) error
	CreateStoryInput(ctx context.Context, input *models.StoryInput) error
	// GetStoryDetails возвращает историю с последними персонажем и входными данными.
	// Возвращает models.ErrStoryNotFound, если истории нет.
	GetStoryDetails(ctx context.Context, storyID uuid.UUID) (*models.StoryDetails, error)
}
