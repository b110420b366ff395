// Package models defines the domain records and workflow payloads shared by activities, workflows and stores.
package models

import "time"

// EntityKind identifies the type of record a workflow publishes or onboards.
type EntityKind string

const (
	KindProperty  EntityKind = "property"
	KindProject   EntityKind = "project"
	KindPGHostel  EntityKind = "pg_hostel"
	KindDeveloper EntityKind = "developer"
	KindPartner   EntityKind = "partner"
	KindBusiness  EntityKind = "business"
)

// DraftKeyed reports whether records of this kind are published from a listing draft.
// Onboarding kinds are keyed by user instead.
func (k EntityKind) DraftKeyed() bool {
	switch k {
	case KindProperty, KindProject, KindPGHostel, KindDeveloper:
		return true
	default:
		return false
	}
}

func (k EntityKind) Valid() bool {
	switch k {
	case KindProperty, KindProject, KindPGHostel, KindDeveloper, KindPartner, KindBusiness:
		return true
	default:
		return false
	}
}

type EntityStatus string

const (
	EntityStatusActive EntityStatus = "active"
)

// PublishedEntity is a live record created from a draft (listings) or for a user (profiles).
// DraftID is zero for user-keyed kinds.
type PublishedEntity struct {
	ID        int64          `json:"id"`
	Kind      EntityKind     `json:"kind"`
	UserID    int64          `json:"user_id"`
	DraftID   int64          `json:"draft_id,omitempty"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	Status    EntityStatus   `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
