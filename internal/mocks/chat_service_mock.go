package mocks

import (
	"context"

	"superstory-server/internal/service"
	"superstory-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockChatService is a mock type for the ChatService type
type MockChatService struct {
	mock.Mock
}

// Reply provides a mock function with given fields: ctx, messages
func (_m *MockChatService) Reply(ctx context.Context, messages []models.ChatMessage) (string, error) {
	ret := _m.Called(ctx, messages)
	return ret.String(0), ret.Error(1)
}

// NewMockChatService creates a new instance of MockChatService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockChatService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockChatService {
	m := &MockChatService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.ChatService = (*MockChatService)(nil)
