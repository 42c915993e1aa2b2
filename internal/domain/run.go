package domain

import "time"

// Run status values
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// SearchRun represents one execution of the search pipeline
type SearchRun struct {
	ID           string     `json:"id"`
	GroupPath    string     `json:"group_path"`
	Phrase       string     `json:"phrase"`
	Branch       string     `json:"branch"`
	ProjectCount int        `json:"project_count"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunSummary aggregates result counts for a run
type RunSummary struct {
	Run           *SearchRun `json:"run"`
	Total         int64      `json:"total"`
	Found         int64      `json:"found"`
	NotFound      int64      `json:"not_found"`
	BranchMissing int64      `json:"branch_missing"`
	Errors        int64      `json:"errors"`
}
