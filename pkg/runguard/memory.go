package runguard

import (
	"context"
	"time"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/patrickmn/go-cache"
)

// Memory is a process-local guard.
type Memory struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (m *Memory) Begin(ctx context.Context, workflowID string) (*models.WorkflowResult, error) {
	if err := m.cache.Add(workflowID, record{Status: statusRunning}, m.ttl); err == nil {
		return nil, nil
	}

	existing, found := m.cache.Get(workflowID)
	if !found {
		// expired between Add and Get
		return m.Begin(ctx, workflowID)
	}

	return replay(existing.(record))
}

func (m *Memory) Complete(_ context.Context, workflowID string, result models.WorkflowResult) error {
	m.cache.Set(workflowID, record{Status: statusCompleted, Result: &result}, m.ttl)

	return nil
}

func (m *Memory) Abandon(_ context.Context, workflowID string) error {
	m.cache.Delete(workflowID)

	return nil
}
