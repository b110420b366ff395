package workflows

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/estatedesk/partnerflow/pkg/models"
)

type runInput struct {
	UserID  int64          `json:"userId"`
	DraftID int64          `json:"draftId"`
	Email   string         `json:"email"`
	Data    map[string]any `json:"-"`
}

// decodeInput reads the identifiers and the dataKey payload out of a raw workflow input.
// It returns the messages to report when the input is unusable.
func decodeInput(input models.WorkflowInput, dataKey string, needsDraft bool) (runInput, []string) {
	var decoded runInput

	raw, err := json.Marshal(input)
	if err != nil {
		return decoded, []string{"input is not serializable"}
	}

	if err := json.Unmarshal(raw, &decoded); err != nil {
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			return decoded, []string{typeError.Field + " must be a whole number"}
		}

		return decoded, []string{"input is malformed"}
	}

	var problems []string

	if decoded.UserID <= 0 {
		problems = append(problems, "userId is required")
	}

	if needsDraft && decoded.DraftID <= 0 {
		problems = append(problems, "draftId is required")
	}

	data, ok := input[dataKey].(map[string]any)
	if !ok {
		problems = append(problems, dataKey+" is required")
	}

	decoded.Data = data

	return decoded, problems
}

func inputSchema(dataKey string, needsDraft bool) map[string]any {
	id := map[string]any{"type": "integer", "minimum": 1}

	properties := map[string]any{
		"userId": id,
		dataKey:  map[string]any{"type": "object"},
		"email":  map[string]any{"type": "string"},
	}
	required := []any{"userId", dataKey}

	if needsDraft {
		properties["draftId"] = id
		required = append(required, "draftId")
	}

	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": properties,
	}
}

func validationFailed(errs []string) models.WorkflowResult {
	return models.WorkflowResult{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
		State:   models.StateFailedValidation,
	}
}

func failed(state models.WorkflowState, message string) models.WorkflowResult {
	return models.WorkflowResult{Success: false, Message: message, State: state}
}

func succeeded(label string, isUpdate bool, data map[string]any) models.WorkflowResult {
	verb := "published"
	if isUpdate {
		verb = "updated"
	}

	return models.WorkflowResult{
		Success: true,
		Message: fmt.Sprintf("%s %s successfully", label, verb),
		Data:    data,
		State:   models.StateSucceeded,
	}
}
