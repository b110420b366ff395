package activities

import "github.com/estatedesk/partnerflow/pkg/models"

type ValidationResult struct {
	models.Outcome
}

type LookupInput struct {
	Kind    models.EntityKind `json:"kind"`
	DraftID int64             `json:"draftId,omitempty"`
	UserID  int64             `json:"userId,omitempty"`
}

type LookupResult struct {
	models.Outcome
	Found    bool  `json:"found"`
	EntityID int64 `json:"entityId,omitempty"`
}

// RecordInput carries the payload persisted by create and update activities.
// EntityID is set on the update branch.
type RecordInput struct {
	UserID   int64          `json:"userId"`
	DraftID  int64          `json:"draftId,omitempty"`
	EntityID int64          `json:"entityId,omitempty"`
	Data     map[string]any `json:"data"`
}

type RecordResult struct {
	models.Outcome
	EntityID int64 `json:"entityId,omitempty"`
	IsUpdate bool  `json:"isUpdate"`
	// Created is true only when this invocation inserted the row.
	Created bool `json:"created"`
}

type DiscardInput struct {
	Kind     models.EntityKind `json:"kind"`
	EntityID int64             `json:"entityId"`
}

// CreditInput describes a wallet movement. A zero Amount resolves to the configured
// price or grant for Kind.
type CreditInput struct {
	UserID   int64             `json:"userId"`
	Kind     models.EntityKind `json:"kind"`
	EntityID int64             `json:"entityId,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
}

type CreditResult struct {
	models.Outcome
	EntryID        int64 `json:"entryId,omitempty"`
	Amount         int64 `json:"amount"`
	BalanceAfter   int64 `json:"balanceAfter"`
	AlreadyApplied bool  `json:"alreadyApplied"`
}

type DraftStatusInput struct {
	DraftID  int64              `json:"draftId"`
	Status   models.DraftStatus `json:"status"`
	EntityID int64              `json:"entityId,omitempty"`
}

type NotificationInput struct {
	UserID   int64             `json:"userId"`
	Kind     models.EntityKind `json:"kind"`
	EntityID int64             `json:"entityId"`
	IsUpdate bool              `json:"isUpdate"`
	Name     string            `json:"name,omitempty"`
	Email    string            `json:"email,omitempty"`
}
