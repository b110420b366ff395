package models

import "time"

type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "DRAFT"
	DraftStatusPublished DraftStatus = "PUBLISHED"
)

// ListingDraft is the user-edited record consumed by a publishing workflow.
type ListingDraft struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"user_id"`
	Kind              EntityKind     `json:"kind"`
	Status            DraftStatus    `json:"status"`
	Data              map[string]any `json:"data"`
	PublishedEntityID int64          `json:"published_entity_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
