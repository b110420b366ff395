package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/persistence"
)

const entityColumns = `
			id
		  , kind
		  , user_id
		  , COALESCE(draft_id, 0)
		  , name
		  , data
		  , status
		  , created_at
		  , updated_at
`

// EntityRepository handles published entity database operations.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EntityRepository) scanEntity(row rowScanner) (*models.PublishedEntity, error) {
	var (
		entity models.PublishedEntity
		data   []byte
	)

	err := row.Scan(
		&entity.ID,
		&entity.Kind,
		&entity.UserID,
		&entity.DraftID,
		&entity.Name,
		&data,
		&entity.Status,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entity.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity data: %w", err)
	}

	return &entity, nil
}

func (r *EntityRepository) findOne(ctx context.Context, op string, key string, query string, args ...any) (*models.PublishedEntity, error) {
	entity, err := r.scanEntity(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, fmt.Sprint(args[0]), key, persistence.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	return entity, nil
}

func (r *EntityRepository) GetByID(ctx context.Context, kind models.EntityKind, id int64) (*models.PublishedEntity, error) {
	query := `SELECT` + entityColumns + `FROM published_entities WHERE kind = $1 AND id = $2`

	return r.findOne(ctx, "GetByID", "id "+strconv.FormatInt(id, 10), query, kind, id)
}

func (r *EntityRepository) FindByDraft(ctx context.Context, kind models.EntityKind, draftID int64) (*models.PublishedEntity, error) {
	query := `SELECT` + entityColumns + `FROM published_entities WHERE kind = $1 AND draft_id = $2`

	return r.findOne(ctx, "FindByDraft", "draft "+strconv.FormatInt(draftID, 10), query, kind, draftID)
}

func (r *EntityRepository) FindByUser(ctx context.Context, kind models.EntityKind, userID int64) (*models.PublishedEntity, error) {
	query := `SELECT` + entityColumns + `FROM published_entities WHERE kind = $1 AND user_id = $2 AND draft_id IS NULL`

	return r.findOne(ctx, "FindByUser", "user "+strconv.FormatInt(userID, 10), query, kind, userID)
}

func (r *EntityRepository) ListByUser(ctx context.Context, userID int64) ([]*models.PublishedEntity, error) {
	query := `SELECT` + entityColumns + `FROM published_entities WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	defer func(ctx context.Context, r *EntityRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	entities := make([]*models.PublishedEntity, 0)

	for rows.Next() {
		entity, err := r.scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}

	return entities, nil
}

// Create inserts the entity. A unique violation on the draft or profile index loads the
// existing row instead, so a retried create never produces a second record.
func (r *EntityRepository) Create(ctx context.Context, entity *models.PublishedEntity) (bool, error) {
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	if entity.Status == "" {
		entity.Status = models.EntityStatusActive
	}

	data, err := json.Marshal(entity.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity data: %w", err)
	}

	query := `
		INSERT INTO published_entities (kind, user_id, draft_id, name, data, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		entity.Kind, entity.UserID, entity.DraftID, entity.Name, data, entity.Status, entity.CreatedAt, entity.UpdatedAt,
	).Scan(&entity.ID)
	if err == nil {
		return true, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to insert entity: %w", err)
	}

	var existing *models.PublishedEntity
	if entity.Kind.DraftKeyed() {
		existing, err = r.FindByDraft(ctx, entity.Kind, entity.DraftID)
	} else {
		existing, err = r.FindByUser(ctx, entity.Kind, entity.UserID)
	}

	if err != nil {
		return false, fmt.Errorf("failed to load conflicting entity: %w", err)
	}

	*entity = *existing

	return false, nil
}

func (r *EntityRepository) Update(ctx context.Context, entity *models.PublishedEntity) error {
	entity.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(entity.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entity data: %w", err)
	}

	query := `
		UPDATE published_entities
		SET name = $3, data = $4, status = $5, updated_at = $6
		WHERE kind = $1 AND id = $2
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		entity.Kind, entity.ID, entity.Name, data, entity.Status, entity.UpdatedAt,
	).Scan(&entity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewEntityError("Update", string(entity.Kind), "id "+strconv.FormatInt(entity.ID, 10), persistence.ErrNotFound)
		}

		return fmt.Errorf("failed to update entity: %w", err)
	}

	return nil
}

func (r *EntityRepository) Delete(ctx context.Context, kind models.EntityKind, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM published_entities WHERE kind = $1 AND id = $2", kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", string(kind), "id "+strconv.FormatInt(id, 10), persistence.ErrNotFound)
	}

	return nil
}
