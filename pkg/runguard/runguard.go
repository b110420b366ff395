// Package runguard keeps two in-process runs of the same workflow ID from executing
// concurrently and replays the result of a finished one.
package runguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/redis/go-redis/v9"
)

var ErrRunInProgress = errors.New("workflow run already in progress")

const DefaultTTL = 24 * time.Hour

type status string

const (
	statusRunning   status = "running"
	statusCompleted status = "completed"
)

type record struct {
	Status status                 `json:"status"`
	Result *models.WorkflowResult `json:"result,omitempty"`
}

// Guard claims workflow IDs for direct runs.
type Guard interface {
	// Begin claims workflowID. It returns the stored result when a run with this ID
	// already completed, and ErrRunInProgress while one is still running.
	Begin(ctx context.Context, workflowID string) (*models.WorkflowResult, error)
	Complete(ctx context.Context, workflowID string, result models.WorkflowResult) error
	// Abandon releases a claim whose run failed so the ID can be retried.
	Abandon(ctx context.Context, workflowID string) error
}

// New returns a redis guard when redisURL is set and an in-memory guard otherwise.
func New(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (Guard, error) {
	if redisURL == "" {
		logger.InfoContext(ctx, "Using in-memory run guard")

		return NewMemory(ttl), nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewRedis(client, ttl), nil
}

func replay(rec record) (*models.WorkflowResult, error) {
	if rec.Status == statusCompleted && rec.Result != nil {
		return rec.Result, nil
	}

	return nil, ErrRunInProgress
}
