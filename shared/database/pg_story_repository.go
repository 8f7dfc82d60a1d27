package database

import (
	"context"
	"errors"
	"fmt"

	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// pgStoryRepository реализует StoryRepository для PostgreSQL.
type pgStoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

// NewPgStoryRepository создает новый экземпляр репозитория историй.
func NewPgStoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

const createStoryQuery = `
	INSERT INTO stories (id, status, user_id, title, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING`

// CreateStory вставляет корневую запись истории. Повторная вставка с тем же id ничего не меняет.
func (r *pgStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	logFields := []zap.Field{
		zap.String("storyID", story.ID.String()),
		zap.String("userID", story.UserID.String()),
	}

	tag, err := r.db.Exec(ctx, createStoryQuery, story.ID, story.Status, story.UserID, story.Title, story.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Story already exists, insert skipped", logFields...)
		return nil
	}

	r.logger.Info("Story created", logFields...)
	return nil
}

const createCharacterQuery = `
	INSERT INTO characters (id, story_id, name, interests, age, looks, character_prompt, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// CreateCharacter вставляет персонажа истории.
func (r *pgStoryRepository) CreateCharacter(ctx context.Context, c *models.Character) error {
	logFields := []zap.Field{
		zap.String("characterID", c.ID.String()),
		zap.String("storyID", c.StoryID.String()),
	}

	_, err := r.db.Exec(ctx, createCharacterQuery,
		c.ID, c.StoryID, c.Name, c.Interests, c.Age, c.Looks, c.CharacterPrompt, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create character", append(logFields, zap.Error(err))...)
		return wrapInsertError("character", err)
	}

	r.logger.Info("Character created", logFields...)
	return nil
}

const createStoryInputQuery = `
	INSERT INTO story_inputs (id, story_id, plot_idea, main_character_id, created_at)
	VALUES ($1, $2, $3, $4, $5)`

// CreateStoryInput вставляет идею сюжета.
func (r *pgStoryRepository) CreateStoryInput(ctx context.Context, in *models.StoryInput) error {
	logFields := []zap.Field{
		zap.String("storyInputID", in.ID.String()),
		zap.String("storyID", in.StoryID.String()),
	}

	_, err := r.db.Exec(ctx, createStoryInputQuery, in.ID, in.StoryID, in.PlotIdea, in.MainCharacterID, in.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create story input", append(logFields, zap.Error(err))...)
		return wrapInsertError("story input", err)
	}

	r.logger.Info("Story input created", logFields...)
	return nil
}

const (
	getStoryQuery = `
		SELECT id, status, user_id, title, created_at
		FROM stories WHERE id = $1`
	getLatestCharacterQuery = `
		SELECT id, story_id, name, interests, age, looks, character_prompt, created_at
		FROM characters WHERE story_id = $1
		ORDER BY created_at DESC LIMIT 1`
	getLatestStoryInputQuery = `
		SELECT id, story_id, plot_idea, main_character_id, created_at
		FROM story_inputs WHERE story_id = $1
		ORDER BY created_at DESC LIMIT 1`
)

// GetStoryDetails возвращает историю с последними персонажем и идеей сюжета.
func (r *pgStoryRepository) GetStoryDetails(ctx context.Context, storyID uuid.UUID) (*models.StoryDetails, error) {
	details := &models.StoryDetails{}

	if err := pgxscan.Get(ctx, r.db, &details.Story, getStoryQuery, storyID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %s: %w", storyID, err)
	}

	var character models.Character
	if err := pgxscan.Get(ctx, r.db, &character, getLatestCharacterQuery, storyID); err == nil {
		details.Character = &character
	} else if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to get character for story %s: %w", storyID, err)
	}

	var input models.StoryInput
	if err := pgxscan.Get(ctx, r.db, &input, getLatestStoryInputQuery, storyID); err == nil {
		details.Input = &input
	} else if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to get story input for story %s: %w", storyID, err)
	}

	return details, nil
}

// wrapInsertError превращает нарушение внешнего ключа в models.ErrStoryNotFound.
func wrapInsertError(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("failed to create %s: %w", entity, models.ErrStoryNotFound)
	}
	return fmt.Errorf("failed to create %s: %w", entity, err)
}
