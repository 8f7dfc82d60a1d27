package database_test

import (
	"context"
	"testing"
	"time"

	"superstory-server/shared/database"
	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type StoryRepositorySuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	repo        interfaces.StoryRepository
}

func (s *StoryRepositorySuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("superstory-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = database.SetupPostgres(ctx, database.PoolConfig{DSN: dsn, MaxConns: 4, MaxRetries: 5, RetryDelay: time.Second}, zap.NewNop())
	require.NoError(s.T(), err)

	require.NoError(s.T(), database.NewMigrator(s.pool, zap.NewNop()).Up())
	s.repo = database.NewPgStoryRepository(s.pool, zap.NewNop())
}

func (s *StoryRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

func (s *StoryRepositorySuite) TestCreateAndReadBack() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	story := &models.Story{
		ID:        uuid.New(),
		Status:    models.StoryStatusInputGenerated,
		UserID:    uuid.New(),
		Title:     models.StoryTitleFor(now),
		CreatedAt: now,
	}
	s.Require().NoError(s.repo.CreateStory(ctx, story))
	// Повторная вставка не дублирует и не падает
	s.Require().NoError(s.repo.CreateStory(ctx, story))

	character := &models.Character{
		ID:        uuid.New(),
		StoryID:   story.ID,
		Name:      "Mia",
		Age:       models.IntPtr(7),
		Looks:     models.StringPtr("red boots"),
		CreatedAt: now,
	}
	s.Require().NoError(s.repo.CreateCharacter(ctx, character))

	input := &models.StoryInput{
		ID:              uuid.New(),
		StoryID:         story.ID,
		PlotIdea:        "a dragon",
		MainCharacterID: &character.ID,
		CreatedAt:       now,
	}
	s.Require().NoError(s.repo.CreateStoryInput(ctx, input))

	details, err := s.repo.GetStoryDetails(ctx, story.ID)
	s.Require().NoError(err)
	s.Equal(story.ID, details.Story.ID)
	s.Equal(models.StoryStatusInputGenerated, details.Story.Status)
	s.Require().NotNil(details.Character)
	s.Equal("Mia", details.Character.Name)
	s.Require().NotNil(details.Character.Age)
	s.Equal(7, *details.Character.Age)
	s.Nil(details.Character.Interests)
	s.Require().NotNil(details.Input)
	s.Equal("a dragon", details.Input.PlotIdea)
	s.Require().NotNil(details.Input.MainCharacterID)
	s.Equal(character.ID, *details.Input.MainCharacterID)
}

func (s *StoryRepositorySuite) TestChildWithoutStoryFails() {
	err := s.repo.CreateCharacter(context.Background(), &models.Character{
		ID:        uuid.New(),
		StoryID:   uuid.New(),
		Name:      "Orphan",
		CreatedAt: time.Now(),
	})
	s.ErrorIs(err, models.ErrStoryNotFound)
}

func (s *StoryRepositorySuite) TestGetMissingStory() {
	_, err := s.repo.GetStoryDetails(context.Background(), uuid.New())
	s.ErrorIs(err, models.ErrStoryNotFound)
}

func TestStoryRepositorySuite(t *testing.T) {
	requireDocker(t)
	suite.Run(t, new(StoryRepositorySuite))
}

func TestStoryTitleStable(t *testing.T) {
	assert.Equal(t, "Story 2024-12-31", models.StoryTitleFor(time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)))
}
