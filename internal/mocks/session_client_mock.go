package mocks

import (
	"context"

	"superstory-server/shared/interfaces"
	"superstory-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockSessionClient is a mock type for the SessionClient type
type MockSessionClient struct {
	mock.Mock
}

// GetCall provides a mock function with given fields: ctx, callID
func (_m *MockSessionClient) GetCall(ctx context.Context, callID string) (*models.SessionRecord, error) {
	ret := _m.Called(ctx, callID)

	var r0 *models.SessionRecord
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.SessionRecord); ok {
		r0 = rf(ctx, callID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SessionRecord)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, callID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSessionClient creates a new instance of MockSessionClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionClient {
	m := &MockSessionClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.SessionClient = (*MockSessionClient)(nil)
