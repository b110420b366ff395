package file

import (
	"context"
	"errors"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

// LedgerRepository keeps each user's entries in ledger/{userId}.json, oldest first.
type LedgerRepository struct {
	store *Persistence
}

func (r *LedgerRepository) load(userID int64) ([]*models.LedgerEntry, error) {
	entries := make([]*models.LedgerEntry, 0)

	err := readJSON(recordPath(r.store.dir("ledger"), userID), &entries)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}

	return entries, nil
}

func (r *LedgerRepository) Balance(_ context.Context, userID int64) (int64, error) {
	entries, err := r.load(userID)
	if err != nil {
		return 0, persistence.NewLedgerError("Balance", userID, "", err)
	}

	if len(entries) == 0 {
		return 0, nil
	}

	return entries[len(entries)-1].BalanceAfter, nil
}

func (r *LedgerRepository) Entries(_ context.Context, userID int64) ([]*models.LedgerEntry, error) {
	return r.load(userID)
}

func (r *LedgerRepository) FindByKey(_ context.Context, idempotencyKey string) (*models.LedgerEntry, error) {
	entry, err := r.findByKey(idempotencyKey)
	if err != nil {
		return nil, persistence.NewLedgerError("FindByKey", 0, idempotencyKey, err)
	}

	return entry, nil
}

func (r *LedgerRepository) findByKey(key string) (*models.LedgerEntry, error) {
	users, err := recordIDs(r.store.dir("ledger"))
	if err != nil {
		return nil, err
	}

	for _, userID := range users {
		entries, err := r.load(userID)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if entry.IdempotencyKey == key {
				return entry, nil
			}
		}
	}

	return nil, persistence.ErrNotFound
}

func (r *LedgerRepository) Append(_ context.Context, req persistence.LedgerRequest) (*models.LedgerEntry, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if req.IdempotencyKey != "" {
		existing, err := r.findByKey(req.IdempotencyKey)

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

	entries, err := r.load(req.UserID)
	if err != nil {
		return nil, false, err
	}

	var current int64
	if len(entries) > 0 {
		current = entries[len(entries)-1].BalanceAfter
	}

	next, err := persistence.Apply(current, req)
	if err != nil {
		return nil, false, persistence.NewLedgerError("Append", req.UserID, req.IdempotencyKey, err)
	}

	id, err := nextID(r.store.dir("ledger", "ids"))
	if err != nil {
		return nil, false, err
	}

	entry := &models.LedgerEntry{
		ID:             id,
		UserID:         req.UserID,
		Type:           req.Type,
		Amount:         req.Amount,
		BalanceAfter:   next,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	if err := writeJSON(recordPath(r.store.dir("ledger"), req.UserID), append(entries, entry)); err != nil {
		return nil, false, err
	}

	return entry, true, nil
}
