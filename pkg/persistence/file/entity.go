package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

// EntityRepository stores published entities under entities/{kind}/{id}.json.
type EntityRepository struct {
	store *Persistence
}

func (r *EntityRepository) kindDir(kind models.EntityKind) string {
	return r.store.dir("entities", string(kind))
}

func (r *EntityRepository) GetByID(_ context.Context, kind models.EntityKind, id int64) (*models.PublishedEntity, error) {
	var entity models.PublishedEntity

	err := readJSON(recordPath(r.kindDir(kind), id), &entity)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", string(kind), "id "+strconv.FormatInt(id, 10), err)
	}

	return &entity, nil
}

func (r *EntityRepository) all(ctx context.Context, kind models.EntityKind) ([]*models.PublishedEntity, error) {
	ids, err := recordIDs(r.kindDir(kind))
	if err != nil {
		return nil, err
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entities := make([]*models.PublishedEntity, 0, len(ids))

	for _, id := range ids {
		entity, err := r.GetByID(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %d: %w", kind, id, err)
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (r *EntityRepository) find(ctx context.Context, kind models.EntityKind, match func(*models.PublishedEntity) bool) (*models.PublishedEntity, error) {
	entities, err := r.all(ctx, kind)
	if err != nil {
		return nil, err
	}

	for _, entity := range entities {
		if match(entity) {
			return entity, nil
		}
	}

	return nil, persistence.ErrNotFound
}

func (r *EntityRepository) FindByDraft(ctx context.Context, kind models.EntityKind, draftID int64) (*models.PublishedEntity, error) {
	entity, err := r.find(ctx, kind, func(e *models.PublishedEntity) bool { return e.DraftID == draftID })
	if err != nil {
		return nil, persistence.NewEntityError("FindByDraft", string(kind), "draft "+strconv.FormatInt(draftID, 10), err)
	}

	return entity, nil
}

func (r *EntityRepository) FindByUser(ctx context.Context, kind models.EntityKind, userID int64) (*models.PublishedEntity, error) {
	entity, err := r.find(ctx, kind, func(e *models.PublishedEntity) bool { return e.UserID == userID && e.DraftID == 0 })
	if err != nil {
		return nil, persistence.NewEntityError("FindByUser", string(kind), "user "+strconv.FormatInt(userID, 10), err)
	}

	return entity, nil
}

func (r *EntityRepository) ListByUser(ctx context.Context, userID int64) ([]*models.PublishedEntity, error) {
	result := make([]*models.PublishedEntity, 0)

	for _, kind := range []models.EntityKind{
		models.KindProperty, models.KindProject, models.KindPGHostel,
		models.KindDeveloper, models.KindPartner, models.KindBusiness,
	} {
		entities, err := r.all(ctx, kind)
		if err != nil {
			return nil, err
		}

		for _, entity := range entities {
			if entity.UserID == userID {
				result = append(result, entity)
			}
		}
	}

	return result, nil
}

// Create enforces the draft and profile uniqueness under the store mutex.
func (r *EntityRepository) Create(ctx context.Context, entity *models.PublishedEntity) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var (
		existing *models.PublishedEntity
		err      error
	)

	if entity.Kind.DraftKeyed() {
		existing, err = r.FindByDraft(ctx, entity.Kind, entity.DraftID)
	} else {
		existing, err = r.FindByUser(ctx, entity.Kind, entity.UserID)
	}

	switch {
	case err == nil:
		*entity = *existing

		return false, nil
	case !errors.Is(err, persistence.ErrNotFound):
		return false, err
	}

	id, err := nextID(r.kindDir(entity.Kind))
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	entity.ID = id
	entity.CreatedAt = now
	entity.UpdatedAt = now

	if entity.Status == "" {
		entity.Status = models.EntityStatusActive
	}

	if err := writeJSON(recordPath(r.kindDir(entity.Kind), id), entity); err != nil {
		return false, err
	}

	return true, nil
}

func (r *EntityRepository) Update(ctx context.Context, entity *models.PublishedEntity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, err := r.GetByID(ctx, entity.Kind, entity.ID)
	if err != nil {
		return err
	}

	entity.CreatedAt = current.CreatedAt
	entity.UpdatedAt = time.Now().UTC()

	return writeJSON(recordPath(r.kindDir(entity.Kind), entity.ID), entity)
}

func (r *EntityRepository) Delete(_ context.Context, kind models.EntityKind, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	err := os.Remove(recordPath(r.kindDir(kind), id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewEntityError("Delete", string(kind), "id "+strconv.FormatInt(id, 10), persistence.ErrNotFound)
		}

		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}

	return nil
}
