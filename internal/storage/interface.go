package storage

import (
	"context"
	"time"

	"glsearch/internal/domain"
)

// Storage is the abstract interface for the run-history persistence layer
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *domain.SearchRun) error
	UpdateRunStatus(ctx context.Context, runID, status string, finishedAt time.Time) error
	GetRun(ctx context.Context, runID string) (*domain.SearchRun, error)
	GetRuns(ctx context.Context, limit int) ([]*domain.SearchRun, error)

	// Result operations
	SaveResults(ctx context.Context, runID string, results []*domain.SearchResult) error
	GetResults(ctx context.Context, runID string) ([]*domain.SearchResult, error)
	CountResultsByStatus(ctx context.Context, runID string) (map[domain.SearchStatus]int64, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
