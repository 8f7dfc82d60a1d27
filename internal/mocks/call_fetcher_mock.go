package mocks

import (
	"context"

	"superstory-server/internal/service"
	"superstory-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockCallFetcher is a mock type for the CallFetcher type
type MockCallFetcher struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, callID
func (_m *MockCallFetcher) Fetch(ctx context.Context, callID string) (*models.SessionRecord, error) {
	ret := _m.Called(ctx, callID)

	var r0 *models.SessionRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.SessionRecord)
	}

	return r0, ret.Error(1)
}

// NewMockCallFetcher creates a new instance of MockCallFetcher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCallFetcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCallFetcher {
	m := &MockCallFetcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.CallFetcher = (*MockCallFetcher)(nil)
