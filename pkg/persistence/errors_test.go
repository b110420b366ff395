package persistence_test

import (
	"errors"
	"testing"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("entity error unwraps to sentinel", func(t *testing.T) {
		err := persistence.NewEntityError("FindByDraft", "property", "draft 7", persistence.ErrNotFound)

		assert.True(t, persistence.IsNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrNotFound))
		assert.Contains(t, err.Error(), "FindByDraft")
		assert.Contains(t, err.Error(), "draft 7")
	})

	t.Run("ledger error contains key", func(t *testing.T) {
		err := persistence.NewLedgerError("Append", 3, "publish:property:1", persistence.ErrInsufficientBalance)

		assert.True(t, persistence.IsInsufficientBalance(err))
		assert.Contains(t, err.Error(), "user 3")
		assert.Contains(t, err.Error(), "publish:property:1")
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	balance, err := persistence.Apply(50, persistence.LedgerRequest{Type: models.EntryTypeDebit, Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)

	balance, err = persistence.Apply(5, persistence.LedgerRequest{Type: models.EntryTypeDebit, Amount: 10})
	require.ErrorIs(t, err, persistence.ErrInsufficientBalance)
	assert.Equal(t, int64(5), balance)

	balance, err = persistence.Apply(0, persistence.LedgerRequest{Type: models.EntryTypeCredit, Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	_, err = persistence.Apply(0, persistence.LedgerRequest{Type: models.EntryTypeCredit, Amount: 0})
	require.ErrorIs(t, err, persistence.ErrInvalidAmount)
}
