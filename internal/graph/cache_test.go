package graph

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

func registryWithEdge(t *testing.T, name string, from, to api.StatusCode) *Registry {
	t.Helper()
	r := NewRegistry()
	err := r.Register(api.WorkflowDefinition{
		Name:   name,
		Active: true,
		Paths: []api.PathDefinition{
			{From: from, To: to, Type: api.PathHappy, Active: true},
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return r
}

func TestCachedStore_ServesSnapshotWithinTTL(t *testing.T) {
	ctx := context.Background()
	loads := 0
	load := func(ctx context.Context) (Store, error) {
		loads++
		return registryWithEdge(t, "wf", 100, 105), nil
	}

	c, err := NewCachedStore(ctx, load, time.Hour)
	if err != nil {
		t.Fatalf("NewCachedStore failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if !c.EdgeLegal("wf", 100, 105) {
			t.Fatalf("expected edge to be legal")
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single eager load within TTL, got %d", loads)
	}
}

func TestCachedStore_RefreshesAfterTTL(t *testing.T) {
	ctx := context.Background()
	loads := 0
	load := func(ctx context.Context) (Store, error) {
		loads++
		if loads == 1 {
			return registryWithEdge(t, "wf", 100, 105), nil
		}
		// Second generation drops the edge.
		return registryWithEdge(t, "wf", 100, 120), nil
	}

	c, err := NewCachedStore(ctx, load, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewCachedStore failed: %v", err)
	}
	if !c.EdgeLegal("wf", 100, 105) {
		t.Fatalf("expected first-generation edge to be legal")
	}

	time.Sleep(20 * time.Millisecond)

	if c.EdgeLegal("wf", 100, 105) {
		t.Fatalf("expected edge removed by refresh to be illegal")
	}
	if !c.EdgeLegal("wf", 100, 120) {
		t.Fatalf("expected second-generation edge to be legal")
	}
	if loads < 2 {
		t.Fatalf("expected a reload after TTL expiry, got %d loads", loads)
	}
}

func TestCachedStore_StaleSnapshotServesOnRefreshFailure(t *testing.T) {
	ctx := context.Background()
	loads := 0
	load := func(ctx context.Context) (Store, error) {
		loads++
		if loads == 1 {
			return registryWithEdge(t, "wf", 100, 105), nil
		}
		return nil, errors.New("database unavailable")
	}

	c, err := NewCachedStore(ctx, load, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewCachedStore failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if !c.EdgeLegal("wf", 100, 105) {
		t.Fatalf("stale snapshot must keep serving when refresh fails")
	}
	if c.LastError() == nil {
		t.Fatalf("expected LastError to report the failed refresh")
	}
}

func TestCachedStore_FirstLoadFailureIsFatal(t *testing.T) {
	_, err := NewCachedStore(context.Background(), func(ctx context.Context) (Store, error) {
		return nil, errors.New("database unavailable")
	}, time.Minute)
	if err == nil {
		t.Fatalf("expected construction to fail when the eager load fails")
	}
}
