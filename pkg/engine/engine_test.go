package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var testConfig = config.EngineConfig{
	Enabled:           true,
	Address:           "localhost:7233",
	Namespace:         "default",
	TaskQueue:         "partnerflow",
	ConnectTimeout:    time.Second,
	RetryMaxAttempts:  3,
	RetryInitialDelay: time.Millisecond,
	FailureCooldown:   time.Minute,
}

type dialer struct {
	clients []*temporalmocks.Client
	err     error
	calls   atomic.Int32
}

func (d *dialer) dial(context.Context, client.Options) (client.Client, error) {
	n := int(d.calls.Add(1))
	if d.err != nil {
		return nil, d.err
	}

	return d.clients[min(n, len(d.clients))-1], nil
}

func newEngine(t *testing.T, clients ...*temporalmocks.Client) (*Engine, *dialer) {
	t.Helper()

	d := &dialer{clients: clients}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	return New(conn, testConfig, slog.Default()), d
}

func TestConnection_SharesClientBetweenLeases(t *testing.T) {
	c := &temporalmocks.Client{}
	d := &dialer{clients: []*temporalmocks.Client{c}}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	first, err := conn.Acquire(t.Context())
	require.NoError(t, err)

	second, err := conn.Acquire(t.Context())
	require.NoError(t, err)

	assert.Same(t, first.Client(), second.Client())
	assert.Equal(t, int32(1), d.calls.Load())

	first.Release()
	first.Release()
	second.Release()

	c.AssertNotCalled(t, "Close")
}

func TestConnection_InvalidateClosesAfterLastRelease(t *testing.T) {
	stale := &temporalmocks.Client{}
	stale.On("Close").Return().Once()

	fresh := &temporalmocks.Client{}

	d := &dialer{clients: []*temporalmocks.Client{stale, fresh}}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	lease, err := conn.Acquire(t.Context())
	require.NoError(t, err)

	other, err := conn.Acquire(t.Context())
	require.NoError(t, err)

	conn.Invalidate(lease)
	lease.Release()
	stale.AssertNotCalled(t, "Close")

	other.Release()
	stale.AssertExpectations(t)

	next, err := conn.Acquire(t.Context())
	require.NoError(t, err)
	assert.Same(t, fresh, next.Client())
	assert.Equal(t, int32(2), d.calls.Load())

	next.Release()
}

func TestConnection_DialRetriesThenFails(t *testing.T) {
	d := &dialer{err: errors.New("connection refused")}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	_, err := conn.Acquire(t.Context())
	require.ErrorIs(t, err, ErrEngineUnreachable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, int32(3), d.calls.Load())
}

func TestConnection_ConcurrentAcquireSharesFailedDial(t *testing.T) {
	d := &dialer{err: errors.New("connection refused")}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	var wg sync.WaitGroup

	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = conn.Acquire(t.Context())
		}()
	}

	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, ErrEngineUnreachable)
	}

	assert.Equal(t, int32(testConfig.RetryMaxAttempts), d.calls.Load())
}

func TestConnection_RedialsAfterCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := &temporalmocks.Client{}
	d := &dialer{err: errors.New("connection refused"), clients: []*temporalmocks.Client{c}}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial), WithConnectionClock(func() time.Time { return now }))

	_, err := conn.Acquire(t.Context())
	require.ErrorIs(t, err, ErrEngineUnreachable)

	d.err = nil

	_, err = conn.Acquire(t.Context())
	require.ErrorIs(t, err, ErrEngineUnreachable)
	assert.Equal(t, int32(3), d.calls.Load())

	now = now.Add(testConfig.FailureCooldown)

	lease, err := conn.Acquire(t.Context())
	require.NoError(t, err)
	assert.Same(t, c, lease.Client())

	lease.Release()
}

func TestConnection_ClosedRejectsAcquire(t *testing.T) {
	c := &temporalmocks.Client{}
	c.On("Close").Return().Once()

	d := &dialer{clients: []*temporalmocks.Client{c}}
	conn := NewConnection(testConfig, slog.Default(), WithDialer(d.dial))

	require.NoError(t, New(conn, testConfig, slog.Default()).Connect(t.Context()))

	conn.Close()
	c.AssertExpectations(t)

	_, err := conn.Acquire(t.Context())
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestEngine_StartWorkflow(t *testing.T) {
	c := &temporalmocks.Client{}
	run := &temporalmocks.WorkflowRun{}
	run.On("GetID").Return("propertyPublishing-7-1700000000000")
	run.On("GetRunID").Return("run-1")

	input := models.WorkflowInput{"draftId": 7}

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(options client.StartWorkflowOptions) bool {
		return options.ID == "propertyPublishing-7-1700000000000" &&
			options.TaskQueue == "partnerflow" &&
			!options.WorkflowExecutionErrorWhenAlreadyStarted
	}), "propertyPublishing", input).Return(run, nil).Once()

	e, _ := newEngine(t, c)

	started, err := e.StartWorkflow(t.Context(), "propertyPublishing", "propertyPublishing-7-1700000000000", input)
	require.NoError(t, err)
	assert.Equal(t, Run{WorkflowID: "propertyPublishing-7-1700000000000", RunID: "run-1"}, started)

	c.AssertExpectations(t)
}

func TestEngine_ExecuteWorkflowWaitsForResult(t *testing.T) {
	c := &temporalmocks.Client{}
	run := &temporalmocks.WorkflowRun{}
	run.On("GetID").Return("wf-1")
	run.On("GetRunID").Return("run-1")
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		result := args.Get(1).(*models.WorkflowResult)
		*result = models.WorkflowResult{Success: true, State: models.StateSucceeded}
	}).Return(nil)

	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, "partnerOnboarding", mock.Anything).Return(run, nil)

	e, _ := newEngine(t, c)

	execution, err := e.ExecuteWorkflow(t.Context(), "partnerOnboarding", "wf-1", models.WorkflowInput{})
	require.NoError(t, err)
	assert.Equal(t, "run-1", execution.RunID)
	assert.True(t, execution.Result.Success)
}

func TestEngine_ExecuteWorkflowLostAfterStartIsNotUnreachable(t *testing.T) {
	c := &temporalmocks.Client{}
	run := &temporalmocks.WorkflowRun{}
	run.On("GetID").Return("wf-1")
	run.On("GetRunID").Return("run-1")
	run.On("Get", mock.Anything, mock.Anything).Return(serviceerror.NewUnavailable("conn reset")).Once()

	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, "propertyPublishing", mock.Anything).Return(run, nil).Once()
	c.On("Close").Return().Once()

	e, _ := newEngine(t, c)

	execution, err := e.ExecuteWorkflow(t.Context(), "propertyPublishing", "wf-1", models.WorkflowInput{})
	require.ErrorIs(t, err, ErrResultUnavailable)
	require.NotErrorIs(t, err, ErrEngineUnreachable)
	assert.Contains(t, err.Error(), "conn reset")

	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	assert.Equal(t, Run{WorkflowID: "wf-1", RunID: "run-1"}, resultErr.Run)
	assert.Equal(t, "run-1", execution.RunID)

	c.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestEngine_ExecuteWorkflowStartFailureIsUnreachable(t *testing.T) {
	c := &temporalmocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewUnavailable("connection refused")).Once()
	c.On("Close").Return().Once()

	e, _ := newEngine(t, c)

	_, err := e.ExecuteWorkflow(t.Context(), "propertyPublishing", "wf-1", models.WorkflowInput{})
	require.ErrorIs(t, err, ErrEngineUnreachable)
	require.NotErrorIs(t, err, ErrResultUnavailable)
}

func TestEngine_UnavailableInvalidatesClient(t *testing.T) {
	broken := &temporalmocks.Client{}
	broken.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewUnavailable("connection reset")).Once()
	broken.On("Close").Return().Once()

	fresh := &temporalmocks.Client{}
	fresh.On("CheckHealth", mock.Anything, mock.Anything).Return(&client.CheckHealthResponse{}, nil).Once()

	e, d := newEngine(t, broken, fresh)

	_, err := e.StartWorkflow(t.Context(), "propertyPublishing", "wf-1", models.WorkflowInput{})
	require.ErrorIs(t, err, ErrEngineUnreachable)
	broken.AssertExpectations(t)

	require.NoError(t, e.HealthCheck(t.Context()))
	assert.Equal(t, int32(2), d.calls.Load())
	fresh.AssertExpectations(t)
}

func TestEngine_DescribeTranslatesNotFound(t *testing.T) {
	c := &temporalmocks.Client{}
	c.On("DescribeWorkflowExecution", mock.Anything, "missing", "").
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	e, _ := newEngine(t, c)

	_, err := e.Describe(t.Context(), "missing", "")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	require.NotErrorIs(t, err, ErrEngineUnreachable)
}

func TestEngine_Describe(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := &temporalmocks.Client{}
	c.On("DescribeWorkflowExecution", mock.Anything, "wf-1", "").Return(&workflowservice.DescribeWorkflowExecutionResponse{
		WorkflowExecutionInfo: executionInfo("wf-1", started),
	}, nil)

	e, _ := newEngine(t, c)

	description, err := e.Describe(t.Context(), "wf-1", "")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", description.WorkflowID)
	assert.Equal(t, "run-1", description.RunID)
	assert.Equal(t, "propertyPublishing", description.WorkflowType)
	assert.Equal(t, enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING.String(), description.Status)
	require.NotNil(t, description.StartTime)
	assert.True(t, started.Equal(*description.StartTime))
	assert.Nil(t, description.CloseTime)
}

func TestEngine_List(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := &temporalmocks.Client{}
	c.On("ListWorkflow", mock.Anything, mock.MatchedBy(func(req *workflowservice.ListWorkflowExecutionsRequest) bool {
		return req.GetNamespace() == "default" && req.GetPageSize() == 20 && req.GetQuery() == "WorkflowType='propertyPublishing'"
	})).Return(&workflowservice.ListWorkflowExecutionsResponse{
		Executions: []*workflowpb.WorkflowExecutionInfo{executionInfo("wf-1", started), executionInfo("wf-2", started)},
	}, nil)

	e, _ := newEngine(t, c)

	list, err := e.List(t.Context(), "WorkflowType='propertyPublishing'", 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "wf-2", list[1].WorkflowID)
}

func TestEngine_ManagementPassthrough(t *testing.T) {
	c := &temporalmocks.Client{}
	c.On("SignalWorkflow", mock.Anything, "wf-1", "", "retry", "now").Return(nil).Once()
	c.On("CancelWorkflow", mock.Anything, "wf-1", "").Return(nil).Once()
	c.On("TerminateWorkflow", mock.Anything, "wf-1", "", "operator request").Return(nil).Once()
	c.On("QueryWorkflow", mock.Anything, "wf-1", "", "currentState").Return(encodedString("PERSIST"), nil).Once()

	e, _ := newEngine(t, c)

	require.NoError(t, e.Signal(t.Context(), "wf-1", "", "retry", "now"))
	require.NoError(t, e.Cancel(t.Context(), "wf-1", ""))
	require.NoError(t, e.Terminate(t.Context(), "wf-1", "", "operator request"))

	answer, err := e.Query(t.Context(), "wf-1", "", "currentState")
	require.NoError(t, err)
	assert.Equal(t, "PERSIST", answer)

	c.AssertExpectations(t)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", serviceerror.NewNotFound("gone"), ErrWorkflowNotFound},
		{"already started", serviceerror.NewWorkflowExecutionAlreadyStarted("running", "req", "run"), ErrWorkflowAlreadyStarted},
		{"unavailable", serviceerror.NewUnavailable("down"), ErrEngineUnreachable},
		{"deadline", serviceerror.NewDeadlineExceeded("slow"), ErrEngineUnreachable},
		{"grpc unavailable", status.Error(codes.Unavailable, "dial tcp"), ErrEngineUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, translate(tt.err), tt.want)
		})
	}

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
	require.NoError(t, translate(nil))
	assert.False(t, isUnreachable(translate(context.Canceled)))
}

func TestMonitor(t *testing.T) {
	checker := &flakyChecker{}

	monitor, err := NewMonitor(checker, "@every 1h", time.Second, slog.Default())
	require.NoError(t, err)

	assert.True(t, monitor.Healthy())

	checker.fail.Store(true)
	monitor.Check()
	assert.False(t, monitor.Healthy())

	checker.fail.Store(false)
	monitor.Check()
	assert.True(t, monitor.Healthy())

	monitor.Start()
	monitor.Stop()

	_, err = NewMonitor(checker, "whenever", time.Second, slog.Default())
	require.Error(t, err)
}

type flakyChecker struct {
	fail atomic.Bool
}

func (c *flakyChecker) HealthCheck(context.Context) error {
	if c.fail.Load() {
		return ErrEngineUnreachable
	}

	return nil
}

func executionInfo(id string, started time.Time) *workflowpb.WorkflowExecutionInfo {
	return &workflowpb.WorkflowExecutionInfo{
		Execution:     &commonpb.WorkflowExecution{WorkflowId: id, RunId: "run-1"},
		Type:          &commonpb.WorkflowType{Name: "propertyPublishing"},
		Status:        enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
		StartTime:     timestamppb.New(started),
		HistoryLength: 12,
	}
}

type encodedString string

func (s encodedString) HasValue() bool {
	return true
}

func (s encodedString) Get(valuePtr interface{}) error {
	target, ok := valuePtr.(*any)
	if !ok {
		return errors.New("unexpected target")
	}

	*target = string(s)

	return nil
}
