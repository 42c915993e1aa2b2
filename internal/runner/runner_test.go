package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glsearch/internal/domain"
)

// stubSearcher maps project IDs to canned statuses and records concurrency
type stubSearcher struct {
	statuses map[int]domain.SearchStatus
	delay    time.Duration

	mu         sync.Mutex
	active     int
	peakActive int
}

func (s *stubSearcher) Search(ctx context.Context, project *domain.Project, branch, phrase string) *domain.SearchResult {
	s.mu.Lock()
	s.active++
	if s.active > s.peakActive {
		s.peakActive = s.active
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	status, ok := s.statuses[project.ID]
	if !ok {
		status = domain.StatusNotFound
	}
	result := &domain.SearchResult{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Branch:      branch,
		Status:      status,
	}
	if status == domain.StatusError {
		result.Error = "simulated failure"
	}
	return result
}

func makeProjects(n int) []*domain.Project {
	projects := make([]*domain.Project, n)
	for i := range projects {
		projects[i] = &domain.Project{ID: i + 1, Name: fmt.Sprintf("project-%d", i+1)}
	}
	return projects
}

func TestRunPreservesInputOrder(t *testing.T) {
	searcher := &stubSearcher{
		statuses: map[int]domain.SearchStatus{
			1: domain.StatusFound,
			2: domain.StatusBranchMissing,
			3: domain.StatusError,
		},
		delay: time.Millisecond,
	}
	projects := makeProjects(10)

	r := New(searcher, 4, nil)
	results := r.Run(context.Background(), projects, "master", "needle", nil)

	require.Len(t, results, len(projects))
	for i, result := range results {
		require.NotNil(t, result, "missing result at position %d", i)
		assert.Equal(t, projects[i].ID, result.ProjectID)
		assert.Equal(t, projects[i].Name, result.ProjectName)
		assert.Equal(t, "master", result.Branch)
	}

	assert.Equal(t, domain.StatusFound, results[0].Status)
	assert.Equal(t, domain.StatusBranchMissing, results[1].Status)
	assert.Equal(t, domain.StatusError, results[2].Status)
	assert.Equal(t, "simulated failure", results[2].Error)
	assert.Equal(t, domain.StatusNotFound, results[3].Status)
}

func TestRunBoundsConcurrency(t *testing.T) {
	searcher := &stubSearcher{
		statuses: map[int]domain.SearchStatus{},
		delay:    10 * time.Millisecond,
	}
	projects := makeProjects(12)

	r := New(searcher, 3, nil)
	results := r.Run(context.Background(), projects, "master", "needle", nil)

	require.Len(t, results, len(projects))
	assert.LessOrEqual(t, searcher.peakActive, 3)
	assert.Greater(t, searcher.peakActive, 1, "pool should actually run in parallel")
}

func TestRunReportsProgress(t *testing.T) {
	searcher := &stubSearcher{statuses: map[int]domain.SearchStatus{}}
	projects := makeProjects(5)

	var (
		mu        sync.Mutex
		calls     int
		finalDone int
	)
	r := New(searcher, 2, nil)
	r.Run(context.Background(), projects, "master", "needle", func(done, total int, project string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, len(projects), total)
		if done > finalDone {
			finalDone = done
		}
	})

	assert.Equal(t, len(projects), calls)
	assert.Equal(t, len(projects), finalDone)
}

func TestNewDefaultsWorkerCount(t *testing.T) {
	r := New(&stubSearcher{}, 0, nil)
	assert.Equal(t, DefaultWorkers, r.workers)

	r = New(&stubSearcher{}, -2, nil)
	assert.Equal(t, DefaultWorkers, r.workers)
}
