package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityKind_DraftKeyed(t *testing.T) {
	for _, kind := range []EntityKind{KindProperty, KindProject, KindPGHostel, KindDeveloper} {
		assert.True(t, kind.DraftKeyed(), kind)
		assert.True(t, kind.Valid(), kind)
	}

	for _, kind := range []EntityKind{KindPartner, KindBusiness} {
		assert.False(t, kind.DraftKeyed(), kind)
		assert.True(t, kind.Valid(), kind)
	}

	assert.False(t, EntityKind("castle").Valid())
}

func TestOutcome_Helpers(t *testing.T) {
	ok := Succeeded("done")
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Code)

	failed := Failed(CodeValidationFailed, "Validation failed", "title is required")
	assert.False(t, failed.Success)
	assert.Equal(t, CodeValidationFailed, failed.Code)
	assert.Equal(t, []string{"title is required"}, failed.Errors)
}

func TestWorkflowResult_JSONShape(t *testing.T) {
	result := WorkflowResult{
		Success: true,
		Message: "Property published successfully",
		Data:    map[string]any{"propertyId": 1, "isUpdate": false},
		State:   StateSucceeded,
	}

	payload, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, "SUCCEEDED", decoded["state"])
	assert.NotContains(t, decoded, "errors")
	assert.NotContains(t, decoded, "mode")
}
