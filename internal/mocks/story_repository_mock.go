package mocks

import (
	"context"

	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// CreateStory provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	ret := _m.Called(ctx, story)
	return ret.Error(0)
}

// CreateCharacter provides a mock function with given fields: ctx, character
func (_m *MockStoryRepository) CreateCharacter(ctx context.Context, character *models.Character) error {
	ret := _m.Called(ctx, character)
	return ret.Error(0)
}

// CreateStoryInput provides a mock function with given fields: ctx, input
func (_m *MockStoryRepository) CreateStoryInput(ctx context.Context, input *models.StoryInput) error {
	ret := _m.Called(ctx, input)
	return ret.Error(0)
}

// GetStoryDetails provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) GetStoryDetails(ctx context.Context, storyID uuid.UUID) (*models.StoryDetails, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.StoryDetails
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.StoryDetails); ok {
		r0 = rf(ctx, storyID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryDetails)
	}

	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.StoryRepository = (*MockStoryRepository)(nil)
