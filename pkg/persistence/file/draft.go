package file

import (
	"context"
	"strconv"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

// DraftRepository stores one JSON file per draft under drafts/.
type DraftRepository struct {
	store *Persistence
}

func (r *DraftRepository) GetByID(_ context.Context, id int64) (*models.ListingDraft, error) {
	var draft models.ListingDraft

	err := readJSON(recordPath(r.store.dir("drafts"), id), &draft)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", "draft", strconv.FormatInt(id, 10), err)
	}

	return &draft, nil
}

func (r *DraftRepository) Save(_ context.Context, draft *models.ListingDraft) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()

	if draft.ID == 0 {
		id, err := nextID(r.store.dir("drafts"))
		if err != nil {
			return err
		}

		draft.ID = id
	}

	if draft.Status == "" {
		draft.Status = models.DraftStatusDraft
	}

	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now

	return writeJSON(recordPath(r.store.dir("drafts"), draft.ID), draft)
}

func (r *DraftRepository) UpdateStatus(ctx context.Context, id int64, status models.DraftStatus, publishedEntityID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	draft, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	draft.Status = status
	if publishedEntityID != 0 {
		draft.PublishedEntityID = publishedEntityID
	}

	draft.UpdatedAt = time.Now().UTC()

	return writeJSON(recordPath(r.store.dir("drafts"), id), draft)
}
