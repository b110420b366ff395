package mocks

import (
	"context"

	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of dispatcher.Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) StartWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (engine.Run, error) {
	args := m.Called(ctx, name, workflowID, input)

	return args.Get(0).(engine.Run), args.Error(1)
}

func (m *MockEngine) ExecuteWorkflow(ctx context.Context, name, workflowID string, input models.WorkflowInput) (engine.Execution, error) {
	args := m.Called(ctx, name, workflowID, input)

	return args.Get(0).(engine.Execution), args.Error(1)
}

func (m *MockEngine) Describe(ctx context.Context, workflowID, runID string) (engine.WorkflowDescription, error) {
	args := m.Called(ctx, workflowID, runID)

	return args.Get(0).(engine.WorkflowDescription), args.Error(1)
}

func (m *MockEngine) Result(ctx context.Context, workflowID, runID string) (models.WorkflowResult, error) {
	args := m.Called(ctx, workflowID, runID)

	return args.Get(0).(models.WorkflowResult), args.Error(1)
}

func (m *MockEngine) Query(ctx context.Context, workflowID, runID, queryType string, queryArgs ...any) (any, error) {
	args := m.Called(ctx, workflowID, runID, queryType, queryArgs)

	return args.Get(0), args.Error(1)
}

func (m *MockEngine) Signal(ctx context.Context, workflowID, runID, signalName string, arg any) error {
	args := m.Called(ctx, workflowID, runID, signalName, arg)

	return args.Error(0)
}

func (m *MockEngine) Cancel(ctx context.Context, workflowID, runID string) error {
	args := m.Called(ctx, workflowID, runID)

	return args.Error(0)
}

func (m *MockEngine) Terminate(ctx context.Context, workflowID, runID, reason string) error {
	args := m.Called(ctx, workflowID, runID, reason)

	return args.Error(0)
}

func (m *MockEngine) List(ctx context.Context, query string, pageSize int32) ([]engine.WorkflowDescription, error) {
	args := m.Called(ctx, query, pageSize)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]engine.WorkflowDescription), args.Error(1)
}

func (m *MockEngine) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
