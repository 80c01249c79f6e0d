package platform

import (
	"context"
	"fmt"
	"sync"

	"sitereg/internal/lifecycle"
	"sitereg/internal/model"
)

// MemoryAdapter is a scriptable in-memory Adapter for tests and local
// development. It records every call and plays back configured
// failures and probe outcomes.
type MemoryAdapter struct {
	platform model.Platform

	mu        sync.Mutex
	resources map[string]model.ResourceRef
	archived  map[string]bool
	calls     []string
	restored  []model.ResourceRef

	// ArchiveErr/RestoreErr, when set, fail the matching verb.
	ArchiveErr error
	RestoreErr error
	// ListErr, when set, fails List.
	ListErr error
	// ProbeDetail, when set, is returned verbatim by Probe.
	ProbeDetail *model.HealthDetail
	// Block, when set, is received from before each call returns;
	// close it to release every in-flight call. Used to test timeouts.
	Block chan struct{}
	// Entered, when set, receives a signal as each call starts
	// blocking. Must be buffered.
	Entered chan struct{}
}

var _ lifecycle.Adapter = (*MemoryAdapter)(nil)

func NewMemoryAdapter(platform model.Platform) *MemoryAdapter {
	return &MemoryAdapter{
		platform:  platform,
		resources: make(map[string]model.ResourceRef),
		archived:  make(map[string]bool),
	}
}

func (a *MemoryAdapter) Platform() model.Platform { return a.platform }

// AddResource registers a resource the adapter will report from List.
func (a *MemoryAdapter) AddResource(ref model.ResourceRef) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resources[ref.ID] = ref
}

// RemoveResource drops a resource, simulating out-of-band deletion.
func (a *MemoryAdapter) RemoveResource(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.resources, id)
}

// Archived reports whether the resource has been archived.
func (a *MemoryAdapter) Archived(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.archived[id]
}

// Calls returns the verbs invoked so far, in order.
func (a *MemoryAdapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// RestoreRefs returns the refs Restore was invoked with, in order.
func (a *MemoryAdapter) RestoreRefs() []model.ResourceRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.ResourceRef(nil), a.restored...)
}

func (a *MemoryAdapter) wait(ctx context.Context) error {
	if a.Block == nil {
		return nil
	}
	if a.Entered != nil {
		select {
		case a.Entered <- struct{}{}:
		default:
		}
	}
	select {
	case <-a.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *MemoryAdapter) Archive(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	if err := a.wait(ctx); err != nil {
		return lifecycle.Failed(err, nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "archive:"+ref.ID)
	if a.ArchiveErr != nil {
		return lifecycle.Failed(a.ArchiveErr, nil)
	}
	a.archived[ref.ID] = true
	return lifecycle.OK(map[string]any{"id": ref.ID})
}

func (a *MemoryAdapter) Restore(ctx context.Context, ref model.ResourceRef) lifecycle.Result {
	if err := a.wait(ctx); err != nil {
		return lifecycle.Failed(err, nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "restore:"+ref.ID)
	a.restored = append(a.restored, ref)
	if a.RestoreErr != nil {
		return lifecycle.Failed(a.RestoreErr, nil)
	}
	a.archived[ref.ID] = false
	return lifecycle.OK(map[string]any{"id": ref.ID})
}

func (a *MemoryAdapter) Probe(ctx context.Context, ref model.ResourceRef) model.HealthDetail {
	if err := a.wait(ctx); err != nil {
		return model.HealthDetail{Healthy: false, Issue: err.Error()}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "probe:"+ref.ID)
	if a.ProbeDetail != nil {
		return *a.ProbeDetail
	}
	if _, ok := a.resources[ref.ID]; !ok {
		return model.HealthDetail{Healthy: false, Issue: fmt.Sprintf("resource %s not found", ref.ID)}
	}
	return model.HealthDetail{Healthy: true}
}

func (a *MemoryAdapter) List(ctx context.Context) ([]model.ResourceRef, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "list")
	if a.ListErr != nil {
		return nil, a.ListErr
	}
	refs := make([]model.ResourceRef, 0, len(a.resources))
	for _, ref := range a.resources {
		refs = append(refs, ref)
	}
	return refs, nil
}
