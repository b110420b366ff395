package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

// PublishKey is the idempotency key of the debit for publishing one entity.
func PublishKey(kind models.EntityKind, entityID int64) string {
	return fmt.Sprintf("publish:%s:%d", kind, entityID)
}

// WelcomeKey is the idempotency key of the welcome grant for one onboarded profile.
func WelcomeKey(kind models.EntityKind, userID int64) string {
	return fmt.Sprintf("welcome:%s:%d", kind, userID)
}

func insufficient(required, available int64) CreditResult {
	return CreditResult{
		Outcome: models.Failed(models.CodeInsufficientCredits,
			fmt.Sprintf("Insufficient credits: %d required, %d available", required, available)),
		Amount:       required,
		BalanceAfter: available,
	}
}

// CheckPublishingCredits is a read-only pre-check so an unaffordable publish fails
// before anything is written.
func (a *Activities) CheckPublishingCredits(ctx context.Context, in CreditInput) (CreditResult, error) {
	amount := in.Amount
	if amount == 0 {
		amount = a.credits.PublishCost(in.Kind)
	}

	balance, err := a.store.Ledger().Balance(ctx, in.UserID)
	if err != nil {
		return CreditResult{}, fmt.Errorf("failed to read balance for user %d: %w", in.UserID, err)
	}

	if balance < amount {
		return insufficient(amount, balance), nil
	}

	return CreditResult{Outcome: models.Succeeded("Sufficient credits"), Amount: amount, BalanceAfter: balance}, nil
}

// DeductPublishingCredits debits the publish price once per entity. The ledger
// refuses overdrafts atomically; a repeated call for the same entity reports
// AlreadyApplied instead of charging again.
func (a *Activities) DeductPublishingCredits(ctx context.Context, in CreditInput) (CreditResult, error) {
	amount := in.Amount
	if amount == 0 {
		amount = a.credits.PublishCost(in.Kind)
	}

	if amount == 0 {
		return CreditResult{Outcome: models.Succeeded("Publishing is free")}, nil
	}

	key := PublishKey(in.Kind, in.EntityID)

	entry, applied, err := a.store.Ledger().Append(ctx, persistence.LedgerRequest{
		UserID:         in.UserID,
		Type:           models.EntryTypeDebit,
		Amount:         amount,
		Reason:         fmt.Sprintf("%s publishing fee", label(in.Kind)),
		IdempotencyKey: key,
		Metadata:       map[string]any{"kind": string(in.Kind), "entityId": in.EntityID},
	})

	switch {
	case errors.Is(err, persistence.ErrInsufficientBalance):
		balance, balanceErr := a.store.Ledger().Balance(ctx, in.UserID)
		if balanceErr != nil {
			return CreditResult{}, fmt.Errorf("failed to read balance for user %d: %w", in.UserID, balanceErr)
		}

		a.logger.InfoContext(ctx, "Insufficient credits", "user_id", in.UserID, "required", amount, "available", balance)

		return insufficient(amount, balance), nil
	case errors.Is(err, persistence.ErrDuplicateLedgerEntry):
		// charged earlier at a different price
		return a.alreadyCharged(ctx, key)
	case err != nil:
		return CreditResult{}, fmt.Errorf("failed to deduct credits for user %d: %w", in.UserID, err)
	}

	return CreditResult{
		Outcome:        models.Succeeded("Credits deducted"),
		EntryID:        entry.ID,
		Amount:         entry.Amount,
		BalanceAfter:   entry.BalanceAfter,
		AlreadyApplied: !applied,
	}, nil
}

func (a *Activities) alreadyCharged(ctx context.Context, key string) (CreditResult, error) {
	entry, err := a.store.Ledger().FindByKey(ctx, key)
	if err != nil {
		return CreditResult{}, fmt.Errorf("failed to load ledger entry %s: %w", key, err)
	}

	return CreditResult{
		Outcome:        models.Succeeded("Credits already deducted"),
		EntryID:        entry.ID,
		Amount:         entry.Amount,
		BalanceAfter:   entry.BalanceAfter,
		AlreadyApplied: true,
	}, nil
}

// GrantWelcomeCredits credits a newly onboarded user once per profile kind.
func (a *Activities) GrantWelcomeCredits(ctx context.Context, in CreditInput) (CreditResult, error) {
	amount := in.Amount
	if amount == 0 {
		amount = a.credits.WelcomeGrant(in.Kind)
	}

	if amount == 0 {
		return CreditResult{Outcome: models.Succeeded("No welcome credits configured")}, nil
	}

	key := WelcomeKey(in.Kind, in.UserID)

	entry, applied, err := a.store.Ledger().Append(ctx, persistence.LedgerRequest{
		UserID:         in.UserID,
		Type:           models.EntryTypeCredit,
		Amount:         amount,
		Reason:         fmt.Sprintf("%s welcome bonus", label(in.Kind)),
		IdempotencyKey: key,
		Metadata:       map[string]any{"kind": string(in.Kind)},
	})

	switch {
	case errors.Is(err, persistence.ErrDuplicateLedgerEntry):
		return a.alreadyCharged(ctx, key)
	case err != nil:
		return CreditResult{}, fmt.Errorf("failed to grant welcome credits to user %d: %w", in.UserID, err)
	}

	return CreditResult{
		Outcome:        models.Succeeded("Welcome credits granted"),
		EntryID:        entry.ID,
		Amount:         entry.Amount,
		BalanceAfter:   entry.BalanceAfter,
		AlreadyApplied: !applied,
	}, nil
}
