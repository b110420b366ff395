package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/estatedesk/partnerflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"credit_ledger", "published_entities", "listing_drafts", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("partnerflow_test"),
			postgres.WithUsername("partnerflow"),
			postgres.WithPassword("partnerflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = persistence.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return persistence, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var version int
	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"listing_drafts", "published_entities", "credit_ledger"} {
		var exists bool
		err = db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestNewPersistence_RerunIsNoop(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}

func TestDraftRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	drafts := p.Drafts()

	draft := &models.ListingDraft{
		ID:     7,
		UserID: 3,
		Kind:   models.KindProperty,
		Data:   map[string]any{"title": "2BHK near park"},
	}
	require.NoError(t, drafts.Save(ctx, draft))

	loaded, err := drafts.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusDraft, loaded.Status)
	assert.Equal(t, "2BHK near park", loaded.Data["title"])

	require.NoError(t, drafts.UpdateStatus(ctx, 7, models.DraftStatusPublished, 42))

	loaded, err = drafts.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPublished, loaded.Status)
	assert.Equal(t, int64(42), loaded.PublishedEntityID)

	next := &models.ListingDraft{UserID: 3, Kind: models.KindProject, Data: map[string]any{}}
	require.NoError(t, drafts.Save(ctx, next))
	assert.Greater(t, next.ID, int64(7))

	_, err = drafts.GetByID(ctx, 999)
	require.ErrorIs(t, err, persistence.ErrNotFound)

	err = drafts.UpdateStatus(ctx, 999, models.DraftStatusPublished, 0)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestEntityRepository_CreateIsUniquePerDraft(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	entities := p.Entities()

	first := &models.PublishedEntity{
		Kind:    models.KindProperty,
		UserID:  3,
		DraftID: 7,
		Name:    "2BHK near park",
		Data:    map[string]any{"price": 5000000},
	}
	created, err := entities.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second := &models.PublishedEntity{
		Kind:    models.KindProperty,
		UserID:  3,
		DraftID: 7,
		Name:    "duplicate",
	}
	created, err = entities.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "2BHK near park", second.Name)

	found, err := entities.FindByDraft(ctx, models.KindProperty, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = entities.FindByDraft(ctx, models.KindProject, 7)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestEntityRepository_ProfilesAreUniquePerUser(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	entities := p.Entities()

	partner := &models.PublishedEntity{Kind: models.KindPartner, UserID: 9, Name: "Asha"}
	created, err := entities.Create(ctx, partner)
	require.NoError(t, err)
	assert.True(t, created)

	again := &models.PublishedEntity{Kind: models.KindPartner, UserID: 9, Name: "Asha R"}
	created, err = entities.Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, partner.ID, again.ID)

	business := &models.PublishedEntity{Kind: models.KindBusiness, UserID: 9, Name: "Asha Realty"}
	created, err = entities.Create(ctx, business)
	require.NoError(t, err)
	assert.True(t, created)

	list, err := entities.ListByUser(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEntityRepository_UpdateAndDelete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	entities := p.Entities()

	entity := &models.PublishedEntity{Kind: models.KindProject, UserID: 1, DraftID: 11, Name: "Skyline"}
	_, err := entities.Create(ctx, entity)
	require.NoError(t, err)

	entity.Name = "Skyline Phase 2"
	entity.Data = map[string]any{"totalUnits": 120}
	require.NoError(t, entities.Update(ctx, entity))

	loaded, err := entities.GetByID(ctx, models.KindProject, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Skyline Phase 2", loaded.Name)
	assert.InDelta(t, 120, loaded.Data["totalUnits"], 0)

	require.NoError(t, entities.Delete(ctx, models.KindProject, entity.ID))
	require.ErrorIs(t, entities.Delete(ctx, models.KindProject, entity.ID), persistence.ErrNotFound)
	require.ErrorIs(t, entities.Update(ctx, entity), persistence.ErrNotFound)
}

func TestLedgerRepository_DebitAndCredit(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	ledger := p.Ledger()

	balance, err := ledger.Balance(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	_, applied, err := ledger.Append(ctx, persistence.LedgerRequest{
		UserID: 3, Type: models.EntryTypeCredit, Amount: 50, Reason: "top up",
	})
	require.NoError(t, err)
	assert.True(t, applied)

	debit, applied, err := ledger.Append(ctx, persistence.LedgerRequest{
		UserID:         3,
		Type:           models.EntryTypeDebit,
		Amount:         10,
		Reason:         "publish property",
		IdempotencyKey: "publish:property:1",
		Metadata:       map[string]any{"entityId": 1},
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
		UserID: 3, Type: models.EntryTypeDebit, Amount: 25, IdempotencyKey: "publish:property:1",
	})
	require.ErrorIs(t, err, persistence.ErrDuplicateLedgerEntry)

	_, _, err = ledger.Append(ctx, persistence.LedgerRequest{
		UserID: 3, Type: models.EntryTypeDebit, Amount: 41, Reason: "too much",
	})
	require.ErrorIs(t, err, persistence.ErrInsufficientBalance)

	entries, err := ledger.Entries(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	found, err := ledger.FindByKey(ctx, "publish:property:1")
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeDebit, found.Type)
	assert.InDelta(t, 1, found.Metadata["entityId"], 0)
}

func TestLedgerRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	ledger := p.Ledger()

	_, _, err := ledger.Append(ctx, persistence.LedgerRequest{UserID: 5, Type: models.EntryTypeCredit, Amount: 30})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, ok, err := ledger.Append(ctx, persistence.LedgerRequest{UserID: 5, Type: models.EntryTypeDebit, Amount: 10})
			if err == nil && ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 3, applied)

	balance, err := ledger.Balance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}
