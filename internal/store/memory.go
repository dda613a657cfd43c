package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/recuria/recuria/internal/simulation"
)

// MemoryStore implements Store in memory for tests and one-off sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*simulation.Batch
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]*simulation.Batch)}
}

// Write saves a copy of b.
func (s *MemoryStore) Write(ctx context.Context, b *simulation.Batch) error {
	if b.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = cloneBatch(b)
	return nil
}

// ListBatches returns stored batches, newest first.
func (s *MemoryStore) ListBatches(ctx context.Context, limit int) ([]BatchInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]BatchInfo, 0, len(s.batches))
	for _, b := range s.batches {
		infos = append(infos, infoOf(b))
	}
	sortNewestFirst(infos)
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

// LoadBatch returns a copy of the stored batch.
func (s *MemoryStore) LoadBatch(ctx context.Context, id string) (*simulation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return cloneBatch(b), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(infos []BatchInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].ID > infos[j].ID
		}
		return infos[i].StartedAt.After(infos[j].StartedAt)
	})
}

func cloneBatch(b *simulation.Batch) *simulation.Batch {
	c := *b
	c.Systems = make([]simulation.SystemResult, len(b.Systems))
	for i, sys := range b.Systems {
		sys.Signals = append([]float64(nil), sys.Signals...)
		sys.History.Decisions = append([]int(nil), sys.History.Decisions...)
		sys.History.Stability = append([]float64(nil), sys.History.Stability...)
		sys.History.SelfEval = append([]float64(nil), sys.History.SelfEval...)
		c.Systems[i] = sys
	}
	return &c
}
