package aggregator

import (
	"context"

	"glsearch/internal/domain"
	"glsearch/internal/storage"
)

// Aggregator summarizes stored search runs
type Aggregator interface {
	// SummarizeRun returns one run with its per-status result counts
	SummarizeRun(ctx context.Context, runID string) (*domain.RunSummary, error)

	// ListRunSummaries returns summaries for the most recent runs
	ListRunSummaries(ctx context.Context, limit int) ([]*domain.RunSummary, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage storage.Storage
}

// NewAggregator creates a new aggregator
func NewAggregator(storage storage.Storage) Aggregator {
	return &aggregator{
		storage: storage,
	}
}

// SummarizeRun returns one run with its per-status result counts
func (a *aggregator) SummarizeRun(ctx context.Context, runID string) (*domain.RunSummary, error) {
	run, err := a.storage.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	counts, err := a.storage.CountResultsByStatus(ctx, runID)
	if err != nil {
		return nil, err
	}

	return summarize(run, counts), nil
}

// ListRunSummaries returns summaries for the most recent runs
func (a *aggregator) ListRunSummaries(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	runs, err := a.storage.GetRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	var summaries []*domain.RunSummary
	for _, run := range runs {
		counts, err := a.storage.CountResultsByStatus(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(run, counts))
	}

	return summaries, nil
}

// Summarize builds a summary from a run and in-memory results. Used by the
// CLI right after a run, before anything is read back from storage.
func Summarize(run *domain.SearchRun, results []*domain.SearchResult) *domain.RunSummary {
	counts := make(map[domain.SearchStatus]int64)
	for _, r := range results {
		counts[r.Status]++
	}
	return summarize(run, counts)
}

func summarize(run *domain.SearchRun, counts map[domain.SearchStatus]int64) *domain.RunSummary {
	summary := &domain.RunSummary{
		Run:           run,
		Found:         counts[domain.StatusFound],
		NotFound:      counts[domain.StatusNotFound],
		BranchMissing: counts[domain.StatusBranchMissing],
		Errors:        counts[domain.StatusError],
	}
	summary.Total = summary.Found + summary.NotFound + summary.BranchMissing + summary.Errors
	return summary
}
