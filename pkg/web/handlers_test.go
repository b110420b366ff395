package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/estatedesk/partnerflow/pkg/activities"
	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/dispatcher"
	"github.com/estatedesk/partnerflow/pkg/engine"
	"github.com/estatedesk/partnerflow/pkg/mocks"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence/file"
	"github.com/estatedesk/partnerflow/pkg/testutil"
	"github.com/estatedesk/partnerflow/pkg/web"
	"github.com/estatedesk/partnerflow/pkg/workflows"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app    *fiber.App
	engine *mocks.MockEngine
	store  *file.Persistence
}

func setupTestApp(t *testing.T, withEngine bool, balance int64) *testApp {
	t.Helper()

	store := testutil.NewFundedStore(t, balance)

	sender := &mocks.MockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	acts := activities.New(store, sender, config.CreditsConfig{PropertyPublishCost: 10}, slog.Default())
	registry := workflows.DefaultRegistry()
	eng := &mocks.MockEngine{}

	var opts []dispatcher.Option
	if withEngine {
		opts = append(opts, dispatcher.WithEngine(eng))
	}

	d, err := dispatcher.New(registry, workflows.NewDirectRunner(registry, acts.Functions()), opts...)
	require.NoError(t, err)

	app := fiber.New()
	web.NewAPIHandlers(d, store, validator.New(validator.WithRequiredStructEnabled())).Register(app)

	return &testApp{app: app, engine: eng, store: store}
}

func (a *testApp) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp.StatusCode, decoded
}

func propertyRequest() web.RunRequest {
	return web.RunRequest{Input: testutil.PropertyInput()}
}

func TestAPIHandlers_RunDirect(t *testing.T) {
	t.Parallel()

	a := setupTestApp(t, false, 50)

	status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/direct", propertyRequest())

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "direct", body["mode"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "Property published successfully", result["message"])
}

func TestAPIHandlers_RunSyncBusinessFailures(t *testing.T) {
	t.Parallel()

	t.Run("insufficient credits", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, false, 5)

		status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/sync", propertyRequest())

		assert.Equal(t, http.StatusPaymentRequired, status)
		result := body["result"].(map[string]any)
		assert.Equal(t, string(models.StateFailedPayment), result["state"])
	})

	t.Run("invalid listing data", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, false, 50)

		req := web.RunRequest{Input: testutil.PropertyInput(func(in models.WorkflowInput) {
			delete(in["propertyData"].(map[string]any), "price")
		})}

		status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/sync", req)

		assert.Equal(t, http.StatusBadRequest, status)
		result := body["result"].(map[string]any)
		assert.Equal(t, string(models.StateFailedValidation), result["state"])
	})
}

func TestAPIHandlers_RunSyncResultUnavailable(t *testing.T) {
	t.Parallel()

	a := setupTestApp(t, true, 50)

	run := engine.Run{WorkflowID: "listing-7", RunID: "run-2"}
	a.engine.On("ExecuteWorkflow", mock.Anything, workflows.PropertyPublishing, "listing-7", mock.Anything).
		Return(engine.Execution{Run: run}, &engine.ResultError{Run: run, Err: engine.ErrEngineUnreachable})

	req := propertyRequest()
	req.WorkflowID = "listing-7"

	status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/sync", req)

	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "result_unavailable", body["type"])
	assert.Contains(t, body["detail"], "run-2")

	balance, err := a.store.Ledger().Balance(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestAPIHandlers_RunAsync(t *testing.T) {
	t.Parallel()

	t.Run("accepted by engine", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, true, 50)
		a.engine.On("StartWorkflow", mock.Anything, workflows.PropertyPublishing, "listing-7", mock.Anything).
			Return(engine.Run{WorkflowID: "listing-7", RunID: "run-1"}, nil)

		req := propertyRequest()
		req.WorkflowID = "listing-7"

		status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/async", req)

		assert.Equal(t, http.StatusAccepted, status)
		assert.Equal(t, "temporal", body["mode"])
		assert.Equal(t, "run-1", body["runId"])
		assert.Nil(t, body["result"])
	})

	t.Run("engine unreachable", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, true, 50)
		a.engine.On("StartWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(engine.Run{}, engine.ErrEngineUnreachable)

		status, body := a.do(t, http.MethodPost, "/workflows/propertyPublishing/async", propertyRequest())

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "direct-fallback", body["mode"])

		balance, err := a.store.Ledger().Balance(t.Context(), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(40), balance)
	})
}

func TestAPIHandlers_RunRejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "malformed json",
			path:           "/workflows/propertyPublishing/sync",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "missing input",
			path:           "/workflows/propertyPublishing/sync",
			body:           map[string]any{"workflowId": "x"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "unknown workflow",
			path:           "/workflows/listingArchival/sync",
			body:           propertyRequest(),
			expectedStatus: http.StatusNotFound,
			expectedType:   "unknown_workflow",
		},
		{
			name: "input schema violation",
			path: "/workflows/propertyPublishing/sync",
			body: web.RunRequest{Input: map[string]any{
				"userId":       3,
				"propertyData": map[string]any{"title": "x"},
			}},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := setupTestApp(t, false, 50)

			status, body := a.do(t, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedType, body["type"])
		})
	}
}

func TestAPIHandlers_Management(t *testing.T) {
	t.Parallel()

	t.Run("engine disabled", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, false, 0)

		status, body := a.do(t, http.MethodGet, "/workflows", nil)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "engine_disabled", body["type"])

		status, _ = a.do(t, http.MethodPost, "/workflows/wf/cancel", nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("engine enabled", func(t *testing.T) {
		t.Parallel()

		a := setupTestApp(t, true, 0)
		a.engine.On("List", mock.Anything, "WorkflowType='propertyPublishing'", int32(5)).
			Return([]engine.WorkflowDescription{{WorkflowID: "wf", Status: "Running"}}, nil)
		a.engine.On("Describe", mock.Anything, "missing", "").Return(engine.WorkflowDescription{}, engine.ErrWorkflowNotFound)
		a.engine.On("Query", mock.Anything, "wf", "", workflows.CurrentStateQueryType, mock.Anything).Return("PERSIST", nil)
		a.engine.On("Terminate", mock.Anything, "wf", "r1", "stuck").Return(nil)
		a.engine.On("Result", mock.Anything, "wf", "").
			Return(models.WorkflowResult{Success: false, State: models.StateFailedPersist, Message: "Failed to save property"}, nil)

		status, body := a.do(t, http.MethodGet, "/workflows?page_size=5&query=WorkflowType%3D%27propertyPublishing%27", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body["workflows"], 1)

		status, body = a.do(t, http.MethodGet, "/workflows/missing", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "workflow_not_found", body["type"])

		status, body = a.do(t, http.MethodPost, "/workflows/wf/query/currentState", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "PERSIST", body["result"])

		status, _ = a.do(t, http.MethodPost, "/workflows/wf/terminate?run_id=r1", web.TerminateRequest{Reason: "stuck"})
		assert.Equal(t, http.StatusAccepted, status)

		status, body = a.do(t, http.MethodGet, "/workflows/wf/result", nil)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Failed to save property", body["message"])

		status, _ = a.do(t, http.MethodGet, "/workflows?page_size=zero", nil)
		assert.Equal(t, http.StatusBadRequest, status)

		a.engine.AssertExpectations(t)
	})
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	a := setupTestApp(t, true, 0)
	a.engine.On("HealthCheck", mock.Anything).Return(engine.ErrEngineUnreachable)

	status, body := a.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	checks := body["checkers"].(map[string]any)
	assert.Equal(t, "ok", checks["persistence"])
	assert.Contains(t, checks["engine"], "unreachable")
}

func TestAPIHandlers_GetDefinitions(t *testing.T) {
	t.Parallel()

	a := setupTestApp(t, false, 0)

	status, body := a.do(t, http.MethodGet, "/definitions", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["using_engine"])
	assert.Len(t, body["definitions"], 6)
}
