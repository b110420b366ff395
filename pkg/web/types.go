// Package web provides the HTTP handlers that dispatch and manage workflow runs.
package web

import "github.com/estatedesk/partnerflow/pkg/engine"

// RunRequest is the body of the run endpoints.
type RunRequest struct {
	Input      map[string]any `json:"input"                validate:"required"`
	WorkflowID string         `json:"workflowId,omitempty" validate:"omitempty,max=255,printascii"`
}

type QueryRequest struct {
	Args []any `json:"args,omitempty"`
}

type SignalRequest struct {
	Payload any `json:"payload,omitempty"`
}

type TerminateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ListWorkflowsResponse struct {
	Workflows []engine.WorkflowDescription `json:"workflows"`
	PageSize  int32                        `json:"page_size"`
	Query     string                       `json:"query,omitempty"`
}

type DefinitionsResponse struct {
	Definitions []string `json:"definitions"`
	UsingEngine bool     `json:"using_engine"`
}
