package store

import (
	"context"
	"errors"
	"time"

	"github.com/credlens/credcheck/internal/model"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Label        model.Label `json:"label,omitempty"`
	Fingerprint  string      `json:"fingerprint,omitempty"`
	CreatedAfter time.Time   `json:"created_after,omitempty"`
	Limit        int         `json:"limit,omitempty"`
	Offset       int         `json:"offset,omitempty"`
}

// Store persists the history of completed analyses. Writes are
// best-effort: the pipeline records runs after aggregation but never fails
// a request on a storage error.
type Store interface {
	RecordRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
