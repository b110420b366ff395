package file

import (
	"os"
	"sync"
	"testing"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence("./test-data")
	err := fp.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	testDir := t.TempDir()

	require.NoError(t, NewPersistence(testDir).HealthCheck(t.Context()))

	missing := testDir + "/missing"
	assert.ErrorIs(t, NewPersistence(missing).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestDraftRepository(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()

	draft := &models.ListingDraft{ID: 7, UserID: 3, Kind: models.KindProperty, Data: map[string]any{"title": "2BHK"}}
	require.NoError(t, fp.Drafts().Save(ctx, draft))
	assert.Equal(t, models.DraftStatusDraft, draft.Status)

	require.NoError(t, fp.Drafts().UpdateStatus(ctx, 7, models.DraftStatusPublished, 1))

	loaded, err := fp.Drafts().GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPublished, loaded.Status)
	assert.Equal(t, int64(1), loaded.PublishedEntityID)

	fresh := &models.ListingDraft{UserID: 3, Kind: models.KindProject}
	require.NoError(t, fp.Drafts().Save(ctx, fresh))
	assert.Equal(t, int64(8), fresh.ID)

	_, err = fp.Drafts().GetByID(ctx, 404)
	require.ErrorIs(t, err, persistence.ErrNotFound)
	require.ErrorIs(t, fp.Drafts().UpdateStatus(ctx, 404, models.DraftStatusPublished, 0), persistence.ErrNotFound)
}

func TestEntityRepository_CreateIsUniquePerDraft(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()

	first := &models.PublishedEntity{Kind: models.KindProperty, UserID: 3, DraftID: 7, Name: "2BHK near park"}
	created, err := fp.Entities().Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, models.EntityStatusActive, first.Status)

	dup := &models.PublishedEntity{Kind: models.KindProperty, UserID: 3, DraftID: 7, Name: "dup"}
	created, err = fp.Entities().Create(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, dup.ID)
	assert.Equal(t, "2BHK near park", dup.Name)

	other := &models.PublishedEntity{Kind: models.KindProject, UserID: 3, DraftID: 7, Name: "Skyline"}
	created, err = fp.Entities().Create(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)

	list, err := fp.Entities().ListByUser(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEntityRepository_ConcurrentCreatesYieldOneRecord(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()

	var wg sync.WaitGroup

	results := make([]bool, 8)

	for i := range results {
		wg.Add(1)

		go func() {
			defer wg.Done()

			created, err := fp.Entities().Create(ctx, &models.PublishedEntity{Kind: models.KindPGHostel, UserID: 1, DraftID: 2, Name: "Sunrise PG"})
			assert.NoError(t, err)

			results[i] = created
		}()
	}

	wg.Wait()

	createdCount := 0
	for _, created := range results {
		if created {
			createdCount++
		}
	}

	assert.Equal(t, 1, createdCount)

	ids, err := recordIDs(fp.dir("entities", string(models.KindPGHostel)))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestEntityRepository_UpdateDeleteAndIDsNeverReused(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()

	partner := &models.PublishedEntity{Kind: models.KindPartner, UserID: 9, Name: "Asha"}
	_, err := fp.Entities().Create(ctx, partner)
	require.NoError(t, err)

	found, err := fp.Entities().FindByUser(ctx, models.KindPartner, 9)
	require.NoError(t, err)
	assert.Equal(t, partner.ID, found.ID)

	partner.Name = "Asha R"
	require.NoError(t, fp.Entities().Update(ctx, partner))

	loaded, err := fp.Entities().GetByID(ctx, models.KindPartner, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha R", loaded.Name)

	require.NoError(t, fp.Entities().Delete(ctx, models.KindPartner, partner.ID))
	require.ErrorIs(t, fp.Entities().Delete(ctx, models.KindPartner, partner.ID), persistence.ErrNotFound)

	_, err = fp.Entities().FindByUser(ctx, models.KindPartner, 9)
	require.ErrorIs(t, err, persistence.ErrNotFound)

	again := &models.PublishedEntity{Kind: models.KindPartner, UserID: 9, Name: "Asha"}
	_, err = fp.Entities().Create(ctx, again)
	require.NoError(t, err)
	assert.Greater(t, again.ID, partner.ID)
}

func TestLedgerRepository(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()
	ledger := fp.Ledger()

	balance, err := ledger.Balance(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	_, applied, err := ledger.Append(ctx, persistence.LedgerRequest{UserID: 3, Type: models.EntryTypeCredit, Amount: 50})
	require.NoError(t, err)
	assert.True(t, applied)

	debit, applied, err := ledger.Append(ctx, persistence.LedgerRequest{
		UserID: 3, Type: models.EntryTypeDebit, Amount: 10, IdempotencyKey: "publish:property:1",
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(40), debit.BalanceAfter)

	repeat, applied, err := ledger.Append(ctx, persistence.LedgerRequest{
		UserID: 3, Type: models.EntryTypeDebit, Amount: 10, IdempotencyKey: "publish:property:1",
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, debit.ID, repeat.ID)

	_, _, err = ledger.Append(ctx, persistence.LedgerRequest{
		UserID: 3, Type: models.EntryTypeCredit, Amount: 10, IdempotencyKey: "publish:property:1",
	})
	require.ErrorIs(t, err, persistence.ErrDuplicateLedgerEntry)

	_, _, err = ledger.Append(ctx, persistence.LedgerRequest{UserID: 3, Type: models.EntryTypeDebit, Amount: 41})
	require.ErrorIs(t, err, persistence.ErrInsufficientBalance)

	entries, err := ledger.Entries(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EntryTypeDebit, entries[1].Type)

	found, err := ledger.FindByKey(ctx, "publish:property:1")
	require.NoError(t, err)
	assert.Equal(t, debit.ID, found.ID)

	_, err = ledger.FindByKey(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestLedgerRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	ctx := t.Context()
	ledger := fp.Ledger()

	_, _, err := ledger.Append(ctx, persistence.LedgerRequest{UserID: 5, Type: models.EntryTypeCredit, Amount: 25})
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, _ = ledger.Append(ctx, persistence.LedgerRequest{UserID: 5, Type: models.EntryTypeDebit, Amount: 10})
		}()
	}

	wg.Wait()

	entries, err := ledger.Entries(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	for _, entry := range entries {
		assert.GreaterOrEqual(t, entry.BalanceAfter, int64(0))
	}

	balance, err := ledger.Balance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}
