package mocks

import (
	"context"

	"superstory-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockPipelineRunner is a mock type for the PipelineRunner type
type MockPipelineRunner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, callID, opts
func (_m *MockPipelineRunner) Run(ctx context.Context, callID string, opts service.RunOptions) (*service.PipelineResult, error) {
	ret := _m.Called(ctx, callID, opts)

	var r0 *service.PipelineResult
	if rf, ok := ret.Get(0).(func(context.Context, string, service.RunOptions) *service.PipelineResult); ok {
		r0 = rf(ctx, callID, opts)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.PipelineResult)
	}

	return r0, ret.Error(1)
}

// NewMockPipelineRunner creates a new instance of MockPipelineRunner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPipelineRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPipelineRunner {
	m := &MockPipelineRunner{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.PipelineRunner = (*MockPipelineRunner)(nil)
