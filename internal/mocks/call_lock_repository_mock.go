package mocks

import (
	"context"
	"time"

	"superstory-server/shared/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockCallLockRepository is a mock type for the CallLockRepository type
type MockCallLockRepository struct {
	mock.Mock
}

// Acquire provides a mock function with given fields: ctx, callID, ttl
func (_m *MockCallLockRepository) Acquire(ctx context.Context, callID string, ttl time.Duration) (bool, error) {
	ret := _m.Called(ctx, callID, ttl)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context, string, time.Duration) bool); ok {
		r0 = rf(ctx, callID, ttl)
	} else {
		r0 = ret.Bool(0)
	}

	return r0, ret.Error(1)
}

// Release provides a mock function with given fields: ctx, callID
func (_m *MockCallLockRepository) Release(ctx context.Context, callID string) error {
	ret := _m.Called(ctx, callID)
	return ret.Error(0)
}

// NewMockCallLockRepository creates a new instance of MockCallLockRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCallLockRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCallLockRepository {
	m := &MockCallLockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.CallLockRepository = (*MockCallLockRepository)(nil)
