package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

func (a *Activities) FindPublishedEntity(ctx context.Context, in LookupInput) (LookupResult, error) {
	var (
		entity *models.PublishedEntity
		err    error
	)

	if in.Kind.DraftKeyed() {
		entity, err = a.store.Entities().FindByDraft(ctx, in.Kind, in.DraftID)
	} else {
		entity, err = a.store.Entities().FindByUser(ctx, in.Kind, in.UserID)
	}

	switch {
	case err == nil:
		return LookupResult{Outcome: models.Succeeded("Existing record found"), Found: true, EntityID: entity.ID}, nil
	case errors.Is(err, persistence.ErrNotFound):
		return LookupResult{Outcome: models.Succeeded("No existing record")}, nil
	default:
		return LookupResult{}, fmt.Errorf("failed to look up %s: %w", in.Kind, err)
	}
}

func (a *Activities) CreatePropertyRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindProperty, in)
}

func (a *Activities) UpdatePropertyRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindProperty, in)
}

func (a *Activities) CreateProjectRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindProject, in)
}

func (a *Activities) UpdateProjectRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindProject, in)
}

func (a *Activities) CreatePGHostelRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindPGHostel, in)
}

func (a *Activities) UpdatePGHostelRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindPGHostel, in)
}

func (a *Activities) CreateDeveloperRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindDeveloper, in)
}

func (a *Activities) UpdateDeveloperRecord(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindDeveloper, in)
}

func (a *Activities) CreatePartnerProfile(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindPartner, in)
}

func (a *Activities) UpdatePartnerProfile(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindPartner, in)
}

func (a *Activities) CreateBusinessProfile(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.createRecord(ctx, models.KindBusiness, in)
}

func (a *Activities) UpdateBusinessProfile(ctx context.Context, in RecordInput) (RecordResult, error) {
	return a.updateRecord(ctx, models.KindBusiness, in)
}

// createRecord checks for a record tied to the same draft or user before inserting.
// The store's unique key backs the check, so a retry racing another run ends up
// updating the row that won instead of creating a second one.
func (a *Activities) createRecord(ctx context.Context, kind models.EntityKind, in RecordInput) (RecordResult, error) {
	if kind.DraftKeyed() && in.DraftID == 0 {
		return RecordResult{Outcome: models.Failed(models.CodePersistFailed, "draftId is required to publish a "+label(kind))}, nil
	}

	lookup, err := a.FindPublishedEntity(ctx, LookupInput{Kind: kind, DraftID: in.DraftID, UserID: in.UserID})
	if err != nil {
		return RecordResult{}, err
	}

	if lookup.Found {
		a.logger.InfoContext(ctx, "Record already exists, updating instead", "kind", kind, "entity_id", lookup.EntityID)

		in.EntityID = lookup.EntityID

		return a.updateRecord(ctx, kind, in)
	}

	entity := &models.PublishedEntity{
		Kind:    kind,
		UserID:  in.UserID,
		DraftID: in.DraftID,
		Name:    displayName(kind, in.Data),
		Data:    in.Data,
		Status:  models.EntityStatusActive,
	}

	created, err := a.store.Entities().Create(ctx, entity)
	if err != nil {
		return RecordResult{}, fmt.Errorf("failed to create %s: %w", kind, err)
	}

	if !created {
		in.EntityID = entity.ID

		return a.updateRecord(ctx, kind, in)
	}

	a.logger.InfoContext(ctx, "Record created", "kind", kind, "entity_id", entity.ID, "draft_id", in.DraftID)

	return RecordResult{
		Outcome:  models.Succeeded(label(kind) + " created"),
		EntityID: entity.ID,
		Created:  true,
	}, nil
}

func (a *Activities) updateRecord(ctx context.Context, kind models.EntityKind, in RecordInput) (RecordResult, error) {
	entity, err := a.store.Entities().GetByID(ctx, kind, in.EntityID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return RecordResult{Outcome: models.Failed(models.CodePersistFailed,
				fmt.Sprintf("%s %d no longer exists", label(kind), in.EntityID))}, nil
		}

		return RecordResult{}, fmt.Errorf("failed to load %s %d: %w", kind, in.EntityID, err)
	}

	entity.Data = in.Data
	if name := displayName(kind, in.Data); name != "" {
		entity.Name = name
	}

	if err := a.store.Entities().Update(ctx, entity); err != nil {
		return RecordResult{}, fmt.Errorf("failed to update %s %d: %w", kind, entity.ID, err)
	}

	a.logger.InfoContext(ctx, "Record updated", "kind", kind, "entity_id", entity.ID)

	return RecordResult{
		Outcome:  models.Succeeded(label(kind) + " updated"),
		EntityID: entity.ID,
		IsUpdate: true,
	}, nil
}

// DiscardPublishedEntity removes a record created earlier in the same run. A record
// that is already gone counts as discarded.
func (a *Activities) DiscardPublishedEntity(ctx context.Context, in DiscardInput) (models.Outcome, error) {
	err := a.store.Entities().Delete(ctx, in.Kind, in.EntityID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return models.Outcome{}, fmt.Errorf("failed to discard %s %d: %w", in.Kind, in.EntityID, err)
	}

	a.logger.InfoContext(ctx, "Record discarded", "kind", in.Kind, "entity_id", in.EntityID)

	return models.Succeeded(label(in.Kind) + " discarded"), nil
}

func (a *Activities) UpdateListingDraftStatus(ctx context.Context, in DraftStatusInput) (models.Outcome, error) {
	err := a.store.Drafts().UpdateStatus(ctx, in.DraftID, in.Status, in.EntityID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return models.Failed(models.CodeNotFound, fmt.Sprintf("draft %d not found", in.DraftID)), nil
		}

		return models.Outcome{}, fmt.Errorf("failed to update draft %d: %w", in.DraftID, err)
	}

	return models.Succeeded(fmt.Sprintf("Draft marked %s", in.Status)), nil
}
