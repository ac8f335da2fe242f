package tx

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory stores so the memory runner can
// roll their state back when a transactional function fails.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// MemoryRunner serializes transactional functions under one lock and
// restores participating stores on failure. Good enough for unit tests and
// single-process demos; the SQL runner carries the real isolation story.
type MemoryRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

// NewMemory builds a runner over the given stores.
func NewMemory(stores ...Snapshotter) *MemoryRunner {
	return &MemoryRunner{stores: stores}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]any, len(r.stores))
	for i, s := range r.stores {
		snapshots[i] = s.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, s := range r.stores {
			s.Restore(snapshots[i])
		}
		return err
	}
	return nil
}
