package graph

import (
	"context"
	"sync"
	"time"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// Loader produces a fresh graph snapshot, typically from SQLSource.Load.
type Loader func(ctx context.Context) (Store, error)

// CachedStore wraps a Loader with a bounded-TTL snapshot. Configuration is
// read-only at request time, so staleness within the TTL only risks
// rejecting a transition that was just made legal, never accepting an
// illegal one beyond the TTL window. Pick the TTL accordingly.
//
// If a refresh fails, the previous snapshot keeps serving and the error is
// retained for inspection via LastError.
type CachedStore struct {
	load Loader
	ttl  time.Duration

	mu       sync.RWMutex
	snapshot Store
	loadedAt time.Time
	lastErr  error
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore eagerly loads the first snapshot.
func NewCachedStore(ctx context.Context, load Loader, ttl time.Duration) (*CachedStore, error) {
	snap, err := load(ctx)
	if err != nil {
		return nil, err
	}
	return &CachedStore{
		load:     load,
		ttl:      ttl,
		snapshot: snap,
		loadedAt: time.Now(),
	}, nil
}

// Refresh forces a reload regardless of TTL.
func (c *CachedStore) Refresh(ctx context.Context) error {
	snap, err := c.load(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		return err
	}
	c.snapshot = snap
	c.loadedAt = time.Now()
	c.lastErr = nil
	return nil
}

// LastError returns the error from the most recent failed refresh, if the
// current snapshot is older than intended because of it.
func (c *CachedStore) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *CachedStore) current() Store {
	c.mu.RLock()
	snap := c.snapshot
	expired := time.Since(c.loadedAt) >= c.ttl
	c.mu.RUnlock()

	if !expired || c.ttl <= 0 {
		return snap
	}

	// Best-effort refresh; on failure the stale snapshot keeps serving.
	_ = c.Refresh(context.Background())

	c.mu.RLock()
	snap = c.snapshot
	c.mu.RUnlock()
	return snap
}

func (c *CachedStore) EdgeLegal(workflow string, from, to api.StatusCode) bool {
	return c.current().EdgeLegal(workflow, from, to)
}

func (c *CachedStore) Edge(workflow string, from, to api.StatusCode) (api.PathDefinition, bool) {
	return c.current().Edge(workflow, from, to)
}

func (c *CachedStore) HandlerFor(workflow string, status api.StatusCode) (string, bool) {
	return c.current().HandlerFor(workflow, status)
}

func (c *CachedStore) NextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	return c.current().NextStatuses(workflow, from)
}

func (c *CachedStore) AgentNextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	return c.current().AgentNextStatuses(workflow, from)
}

func (c *CachedStore) ReasonKnown(status api.StatusCode, reason string) bool {
	return c.current().ReasonKnown(status, reason)
}

func (c *CachedStore) ReasonsFor(status api.StatusCode) []string {
	return c.current().ReasonsFor(status)
}

func (c *CachedStore) Workflow(name string) (api.WorkflowDefinition, bool) {
	return c.current().Workflow(name)
}
