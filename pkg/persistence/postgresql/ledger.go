package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

const ledgerColumns = `
			id
		  , user_id
		  , type
		  , amount
		  , balance_after
		  , reason
		  , COALESCE(idempotency_key, '')
		  , metadata
		  , created_at
`

// LedgerRepository handles credit ledger database operations.
type LedgerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLedgerRepository(db *sql.DB, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, logger: logger}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanLedgerEntry(row rowScanner) (*models.LedgerEntry, error) {
	var (
		entry    models.LedgerEntry
		metadata []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Type,
		&entry.Amount,
		&entry.BalanceAfter,
		&entry.Reason,
		&entry.IdempotencyKey,
		&metadata,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
		}
	}

	return &entry, nil
}

func balance(ctx context.Context, q queryRower, userID int64) (int64, error) {
	var current int64

	err := q.QueryRowContext(ctx,
		"SELECT balance_after FROM credit_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT 1", userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to query balance: %w", err)
	}

	return current, nil
}

func findByKey(ctx context.Context, q queryRower, key string) (*models.LedgerEntry, error) {
	entry, err := scanLedgerEntry(q.QueryRowContext(ctx,
		`SELECT`+ledgerColumns+`FROM credit_ledger WHERE idempotency_key = $1`, key,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	return entry, nil
}

func (r *LedgerRepository) Balance(ctx context.Context, userID int64) (int64, error) {
	return balance(ctx, r.db, userID)
}

func (r *LedgerRepository) FindByKey(ctx context.Context, idempotencyKey string) (*models.LedgerEntry, error) {
	entry, err := findByKey(ctx, r.db, idempotencyKey)
	if err != nil {
		return nil, persistence.NewLedgerError("FindByKey", 0, idempotencyKey, err)
	}

	return entry, nil
}

// Append serializes movements per user with a transaction-scoped advisory lock, so the
// balance read and the insert form one atomic conditional update.
func (r *LedgerRepository) Append(ctx context.Context, req persistence.LedgerRequest) (*models.LedgerEntry, bool, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	_, err = transaction.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", req.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock ledger for user %d: %w", req.UserID, err)
	}

	if req.IdempotencyKey != "" {
		existing, err := findByKey(ctx, transaction, req.IdempotencyKey)

		switch {
		case err == nil:
			if !persistence.SameMovement(existing, req) {
				return nil, false, persistence.NewLedgerError("Append", req.UserID, req.IdempotencyKey, persistence.ErrDuplicateLedgerEntry)
			}

			return existing, false, nil
		case !errors.Is(err, persistence.ErrNotFound):
			return nil, false, err
		}
	}

	current, err := balance(ctx, transaction, req.UserID)
	if err != nil {
		return nil, false, err
	}

	next, err := persistence.Apply(current, req)
	if err != nil {
		return nil, false, persistence.NewLedgerError("Append", req.UserID, req.IdempotencyKey, err)
	}

	var metadata any
	if req.Metadata != nil {
		payload, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal ledger metadata: %w", err)
		}

		metadata = payload
	}

	entry := &models.LedgerEntry{
		UserID:         req.UserID,
		Type:           req.Type,
		Amount:         req.Amount,
		BalanceAfter:   next,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	err = transaction.QueryRowContext(ctx, `
		INSERT INTO credit_ledger (user_id, type, amount, balance_after, reason, idempotency_key, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		RETURNING id
	`,
		entry.UserID, entry.Type, entry.Amount, entry.BalanceAfter, entry.Reason, entry.IdempotencyKey, metadata, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, false, fmt.Errorf("failed to commit ledger entry: %w", err)
	}

	return entry, true, nil
}

func (r *LedgerRepository) Entries(ctx context.Context, userID int64) ([]*models.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+ledgerColumns+`FROM credit_ledger WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}

	defer func(ctx context.Context, r *LedgerRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	entries := make([]*models.LedgerEntry, 0)

	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}

	return entries, nil
}
