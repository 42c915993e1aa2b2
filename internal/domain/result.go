package domain

// SearchStatus represents the outcome of searching one project
type SearchStatus string

const (
	StatusFound         SearchStatus = "Found"
	StatusNotFound      SearchStatus = "NotFound"
	StatusBranchMissing SearchStatus = "BranchMissing"
	StatusError         SearchStatus = "Error"
)

// SearchResult is the terminal outcome of searching one project's branch.
// FilePath and Snippet are only set when Status is Found; Error is only set
// when Status is Error.
type SearchResult struct {
	ProjectID   int          `json:"project_id"`
	ProjectName string       `json:"project_name"`
	Branch      string       `json:"branch"`
	FilePath    string       `json:"file_path,omitempty"`
	Snippet     string       `json:"snippet,omitempty"`
	Status      SearchStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
}
