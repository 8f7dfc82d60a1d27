package mocks

import (
	"context"

	"superstory-server/shared/messaging"

	"github.com/stretchr/testify/mock"
)

// MockSessionEventPublisher is a mock type for the SessionEventPublisher type
type MockSessionEventPublisher struct {
	mock.Mock
}

// PublishSessionEnded provides a mock function with given fields: ctx, payload
func (_m *MockSessionEventPublisher) PublishSessionEnded(ctx context.Context, payload messaging.SessionEndedPayload) error {
	ret := _m.Called(ctx, payload)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, messaging.SessionEndedPayload) error); ok {
		r0 = rf(ctx, payload)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockSessionEventPublisher creates a new instance of MockSessionEventPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionEventPublisher {
	m := &MockSessionEventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ messaging.SessionEventPublisher = (*MockSessionEventPublisher)(nil)
