package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyInput_Overrides(t *testing.T) {
	input := PropertyInput(WithDraftID(9), WithField("propertyData", "price", 0), WithoutKey("userId"))

	assert.Equal(t, 9, input["draftId"])
	assert.NotContains(t, input, "userId")
	assert.Equal(t, 0, input["propertyData"].(map[string]any)["price"])
	assert.Equal(t, "2BHK near park", input["propertyData"].(map[string]any)["title"])
}

func TestPartnerInput_FreshCopies(t *testing.T) {
	first := PartnerInput(WithField("partnerData", "name", "Ravi"))
	second := PartnerInput()

	assert.Equal(t, "Ravi", first["partnerData"].(map[string]any)["name"])
	assert.Equal(t, "Asha", second["partnerData"].(map[string]any)["name"])
}

func TestNewFundedStore(t *testing.T) {
	store := NewFundedStore(t, 40)

	balance, err := store.Ledger().Balance(t.Context(), UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	empty := NewFundedStore(t, 0)

	balance, err = empty.Ledger().Balance(t.Context(), UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}
