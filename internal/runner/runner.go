// Package runner drives the per-project search phase over a bounded worker
// pool, preserving input order in the collected results.
package runner

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"glsearch/internal/collector"
	"glsearch/internal/domain"
)

// DefaultWorkers matches the reference's fixed pool of three workers
const DefaultWorkers = 3

// Runner fans searches out across projects
type Runner struct {
	searcher collector.Searcher
	workers  int
	logger   *zap.Logger
}

// New creates a runner. workers < 1 falls back to DefaultWorkers.
func New(searcher collector.Searcher, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		searcher: searcher,
		workers:  workers,
		logger:   logger,
	}
}

// Run searches every project exactly once and returns one result per
// project, indexed by input position. Per-project failures are already
// folded into result statuses by the searcher, so the batch never aborts.
func (r *Runner) Run(ctx context.Context, projects []*domain.Project, branch, phrase string, onProgress collector.ProgressCallback) []*domain.SearchResult {
	results := make([]*domain.SearchResult, len(projects))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	semaphore := make(chan struct{}, r.workers)

	for i, project := range projects {
		wg.Add(1)
		go func(i int, p *domain.Project) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = r.searcher.Search(ctx, p, branch, phrase)

			mu.Lock()
			done++
			completed := done
			mu.Unlock()

			r.logger.Debug("project searched",
				zap.String("project", p.Name),
				zap.String("status", string(results[i].Status)),
				zap.Int("done", completed),
				zap.Int("total", len(projects)))

			if onProgress != nil {
				onProgress(completed, len(projects), p.Name)
			}
		}(i, project)
	}

	wg.Wait()
	return results
}
