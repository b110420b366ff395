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

// DraftRepository handles listing draft database operations.
type DraftRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDraftRepository(db *sql.DB, logger *slog.Logger) *DraftRepository {
	return &DraftRepository{db: db, logger: logger}
}

func (r *DraftRepository) GetByID(ctx context.Context, id int64) (*models.ListingDraft, error) {
	query := `
		SELECT
			id
		  , user_id
		  , kind
		  , status
		  , data
		  , COALESCE(published_entity_id, 0)
		  , created_at
		  , updated_at
		FROM listing_drafts
		WHERE id = $1
	`

	var (
		draft models.ListingDraft
		data  []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&draft.ID,
		&draft.UserID,
		&draft.Kind,
		&draft.Status,
		&data,
		&draft.PublishedEntityID,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "draft", strconv.FormatInt(id, 10), persistence.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}

	if err := json.Unmarshal(data, &draft.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft data: %w", err)
	}

	return &draft, nil
}

// Save inserts a new draft or replaces an existing one.
func (r *DraftRepository) Save(ctx context.Context, draft *models.ListingDraft) error {
	now := time.Now().UTC()

	if draft.Status == "" {
		draft.Status = models.DraftStatusDraft
	}

	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now

	data, err := json.Marshal(draft.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal draft data: %w", err)
	}

	if draft.ID == 0 {
		query := `
			INSERT INTO listing_drafts (user_id, kind, status, data, published_entity_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7)
			RETURNING id
		`

		err = r.db.QueryRowContext(ctx, query,
			draft.UserID, draft.Kind, draft.Status, data, draft.PublishedEntityID, draft.CreatedAt, draft.UpdatedAt,
		).Scan(&draft.ID)
		if err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}

		return nil
	}

	query := `
		INSERT INTO listing_drafts (id, user_id, kind, status, data, published_entity_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			kind = EXCLUDED.kind,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			published_entity_id = EXCLUDED.published_entity_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		draft.ID, draft.UserID, draft.Kind, draft.Status, data, draft.PublishedEntityID, draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	// keep the id sequence ahead of explicitly assigned ids
	_, err = r.db.ExecContext(ctx, `
		SELECT setval(pg_get_serial_sequence('listing_drafts', 'id'), GREATEST((SELECT MAX(id) FROM listing_drafts), 1))
	`)
	if err != nil {
		return fmt.Errorf("failed to advance draft id sequence: %w", err)
	}

	return nil
}

func (r *DraftRepository) UpdateStatus(ctx context.Context, id int64, status models.DraftStatus, publishedEntityID int64) error {
	query := `
		UPDATE listing_drafts
		SET status = $2, published_entity_id = COALESCE(NULLIF($3, 0), published_entity_id), updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, publishedEntityID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update draft status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("UpdateStatus", "draft", strconv.FormatInt(id, 10), persistence.ErrNotFound)
	}

	return nil
}
