package runguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "partnerflow:run:"

// Redis shares claims between API replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Begin(ctx context.Context, workflowID string) (*models.WorkflowResult, error) {
	running, err := json.Marshal(record{Status: statusRunning})
	if err != nil {
		return nil, err
	}

	claimed, err := r.client.SetNX(ctx, keyPrefix+workflowID, running, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim run %s: %w", workflowID, err)
	}

	if claimed {
		return nil, nil
	}

	raw, err := r.client.Get(ctx, keyPrefix+workflowID).Bytes()
	if errors.Is(err, redis.Nil) {
		return r.Begin(ctx, workflowID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", workflowID, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", workflowID, err)
	}

	return replay(rec)
}

func (r *Redis) Complete(ctx context.Context, workflowID string, result models.WorkflowResult) error {
	payload, err := json.Marshal(record{Status: statusCompleted, Result: &result})
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, keyPrefix+workflowID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result of run %s: %w", workflowID, err)
	}

	return nil
}

func (r *Redis) Abandon(ctx context.Context, workflowID string) error {
	if err := r.client.Del(ctx, keyPrefix+workflowID).Err(); err != nil {
		return fmt.Errorf("failed to release run %s: %w", workflowID, err)
	}

	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
