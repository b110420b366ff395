package models

// WorkflowInput is the caller-supplied payload of a workflow run. It crosses the
// engine boundary as JSON, so values must be JSON-serializable.
type WorkflowInput map[string]any

// WorkflowState names the terminal state a workflow run ended in.
type WorkflowState string

const (
	StateSucceeded        WorkflowState = "SUCCEEDED"
	StateFailedValidation WorkflowState = "FAILED_VALIDATION"
	StateFailedPersist    WorkflowState = "FAILED_PERSIST"
	StateFailedPayment    WorkflowState = "FAILED_PAYMENT"
)

// WorkflowResult is the terminal value of every workflow, identical in both execution modes.
type WorkflowResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
	State   WorkflowState  `json:"state"`
}

// ExecutionMode tags which path actually ran a workflow.
type ExecutionMode string

const (
	ModeTemporal       ExecutionMode = "temporal"
	ModeDirect         ExecutionMode = "direct"
	ModeDirectFallback ExecutionMode = "direct-fallback"
)
