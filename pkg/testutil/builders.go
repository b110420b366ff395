// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"testing"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/estatedesk/partnerflow/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

// UserID is the user the builders publish and onboard for.
const UserID = 3

// PropertyInput returns a valid propertyPublishing input for draft 7.
func PropertyInput(overrides ...func(models.WorkflowInput)) models.WorkflowInput {
	input := models.WorkflowInput{
		"draftId": 7,
		"userId":  UserID,
		"propertyData": map[string]any{
			"title": "2BHK near park",
			"price": 5000000,
		},
	}

	for _, override := range overrides {
		override(input)
	}

	return input
}

// PartnerInput returns a valid partnerOnboarding input.
func PartnerInput(overrides ...func(models.WorkflowInput)) models.WorkflowInput {
	input := models.WorkflowInput{
		"userId": UserID,
		"partnerData": map[string]any{
			"name":        "Asha",
			"email":       "asha@example.com",
			"phone":       "+919876543210",
			"partnerType": "agent",
		},
	}

	for _, override := range overrides {
		override(input)
	}

	return input
}

func WithDraftID(id any) func(models.WorkflowInput) {
	return func(input models.WorkflowInput) {
		input["draftId"] = id
	}
}

func WithoutKey(key string) func(models.WorkflowInput) {
	return func(input models.WorkflowInput) {
		delete(input, key)
	}
}

// WithField sets field inside the payload stored under dataKey.
func WithField(dataKey, field string, value any) func(models.WorkflowInput) {
	return func(input models.WorkflowInput) {
		data, ok := input[dataKey].(map[string]any)
		if !ok {
			data = map[string]any{}
			input[dataKey] = data
		}

		data[field] = value
	}
}

// NewFundedStore returns a file store in a temporary directory where UserID holds balance credits.
func NewFundedStore(t *testing.T, balance int64) *file.Persistence {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	if balance > 0 {
		_, _, err := store.Ledger().Append(t.Context(), persistence.LedgerRequest{
			UserID: UserID, Type: models.EntryTypeCredit, Amount: balance, Reason: "top up",
		})
		require.NoError(t, err)
	}

	return store
}
