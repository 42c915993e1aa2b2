package collector

import (
	"context"

	"glsearch/internal/domain"
)

// Lister enumerates every project reachable from a group, descending
// recursively through subgroups
type Lister interface {
	// ListGroupProjects returns the deduplicated project set of the group
	// and all of its descendant subgroups, in first-seen fetch order
	ListGroupProjects(ctx context.Context, groupPath string) ([]*domain.Project, error)
}

// Searcher checks a single project's branch for a literal phrase
type Searcher interface {
	// Search never returns an error; failures are surfaced as the result's
	// Status so one project can never abort a batch
	Search(ctx context.Context, project *domain.Project, branch, phrase string) *domain.SearchResult
}

// Collector combines project discovery and branch search over one
// authenticated GitLab client
type Collector interface {
	Lister
	Searcher
}

// ProgressCallback is a callback function for reporting progress
type ProgressCallback func(done, total int, project string)
