// Package store persists completed simulation batches.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/recuria/recuria/internal/simulation"
)

// ErrBatchNotFound is returned when a batch ID is unknown.
var ErrBatchNotFound = errors.New("batch not found")

// BatchInfo is the listing view of a stored batch.
type BatchInfo struct {
	ID             string    `json:"id"`
	Seed           int64     `json:"seed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	MaxSteps       int       `json:"max_steps"`
	MemoryCapacity int       `json:"memory_capacity"`
}

// Store saves batches and reads them back.
type Store interface {
	// Write saves a completed batch. It implements simulation.Sink.
	Write(ctx context.Context, b *simulation.Batch) error

	// ListBatches returns stored batches, newest first. limit <= 0 means no limit.
	ListBatches(ctx context.Context, limit int) ([]BatchInfo, error)

	// LoadBatch returns a stored batch with every system's full history.
	LoadBatch(ctx context.Context, id string) (*simulation.Batch, error)

	Close() error
}

func infoOf(b *simulation.Batch) BatchInfo {
	return BatchInfo{
		ID:             b.ID,
		Seed:           b.Seed,
		StartedAt:      b.StartedAt,
		FinishedAt:     b.FinishedAt,
		MaxSteps:       b.Scenario.MaxSteps,
		MemoryCapacity: b.Scenario.Engine.MemoryCapacity,
	}
}
