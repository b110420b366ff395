// Package persistence provides the storage abstraction used by workflow activities.
package persistence

import (
	"context"

	"github.com/estatedesk/partnerflow/pkg/models"
)

type Persistence interface {
	Drafts() DraftRepository
	Entities() EntityRepository
	Ledger() LedgerRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// DraftRepository stores listing drafts.
type DraftRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ListingDraft, error)
	// Save inserts the draft when its ID is zero and assigns one, otherwise replaces it.
	Save(ctx context.Context, draft *models.ListingDraft) error
	UpdateStatus(ctx context.Context, id int64, status models.DraftStatus, publishedEntityID int64) error
}

// EntityRepository stores published listings and onboarded profiles. A draft maps to
// at most one entity per kind, and a user to at most one profile per kind.
type EntityRepository interface {
	GetByID(ctx context.Context, kind models.EntityKind, id int64) (*models.PublishedEntity, error)
	FindByDraft(ctx context.Context, kind models.EntityKind, draftID int64) (*models.PublishedEntity, error)
	FindByUser(ctx context.Context, kind models.EntityKind, userID int64) (*models.PublishedEntity, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.PublishedEntity, error)
	// Create inserts the entity and reports true. When the draft or user key is already
	// taken it loads the existing row into entity and reports false.
	Create(ctx context.Context, entity *models.PublishedEntity) (bool, error)
	Update(ctx context.Context, entity *models.PublishedEntity) error
	Delete(ctx context.Context, kind models.EntityKind, id int64) error
}

// LedgerRequest describes a wallet movement to append.
type LedgerRequest struct {
	UserID         int64
	Type           models.EntryType
	Amount         int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]any
}

// LedgerRepository is the append-only credit ledger.
type LedgerRepository interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	// Append atomically checks the balance and appends the entry. A debit that would
	// make the balance negative fails with ErrInsufficientBalance and writes nothing.
	// A request whose idempotency key was already applied returns the stored entry and false.
	Append(ctx context.Context, req LedgerRequest) (*models.LedgerEntry, bool, error)
	Entries(ctx context.Context, userID int64) ([]*models.LedgerEntry, error)
	FindByKey(ctx context.Context, idempotencyKey string) (*models.LedgerEntry, error)
}

// Apply computes the balance after req given the current balance.
func Apply(balance int64, req LedgerRequest) (int64, error) {
	if req.Amount <= 0 {
		return balance, ErrInvalidAmount
	}

	switch req.Type {
	case models.EntryTypeCredit:
		return balance + req.Amount, nil
	case models.EntryTypeDebit:
		if balance < req.Amount {
			return balance, ErrInsufficientBalance
		}

		return balance - req.Amount, nil
	default:
		return balance, ErrInvalidAmount
	}
}

// SameMovement reports whether an existing entry matches the movement req asks for.
func SameMovement(entry *models.LedgerEntry, req LedgerRequest) bool {
	return entry.UserID == req.UserID && entry.Type == req.Type && entry.Amount == req.Amount
}
