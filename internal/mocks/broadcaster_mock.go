package mocks

import (
	"context"

	"superstory-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockBroadcaster is a mock type for the Broadcaster type
type MockBroadcaster struct {
	mock.Mock
}

// Broadcast provides a mock function with given fields: ctx, messageType, topic, payload
func (_m *MockBroadcaster) Broadcast(ctx context.Context, messageType string, topic string, payload any) error {
	ret := _m.Called(ctx, messageType, topic, payload)
	return ret.Error(0)
}

// NewMockBroadcaster creates a new instance of MockBroadcaster. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockBroadcaster(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBroadcaster {
	m := &MockBroadcaster{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.Broadcaster = (*MockBroadcaster)(nil)
