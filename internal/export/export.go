// Package export serializes project listings and search results to the
// JSON/CSV output files. Writers overwrite any pre-existing file at the
// target path so reruns against unchanged state are byte-identical.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"

	"glsearch/internal/domain"
)

// projectRecord is the flattened on-disk shape of a project
type projectRecord struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	WebURL            string `json:"web_url"`
}

func toRecord(p *domain.Project) projectRecord {
	return projectRecord{
		ID:                p.ID,
		Name:              p.Name,
		PathWithNamespace: p.PathWithNamespace,
		DefaultBranch:     p.DefaultBranch,
		WebURL:            p.WebURL,
	}
}

// WriteProjectsJSON writes the project list as a JSON array
func WriteProjectsJSON(path string, projects []*domain.Project) error {
	records := make([]projectRecord, 0, len(projects))
	for _, p := range projects {
		records = append(records, toRecord(p))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// WriteProjectsCSV writes the project list as CSV, one row per project,
// with a header row matching the JSON field names
func WriteProjectsCSV(path string, projects []*domain.Project) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "path_with_namespace", "default_branch", "web_url"}); err != nil {
		return err
	}
	for _, p := range projects {
		r := toRecord(p)
		if err := w.Write([]string{strconv.Itoa(r.ID), r.Name, r.PathWithNamespace, r.DefaultBranch, r.WebURL}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// WriteResultsCSV writes one row per search result. Absent file/snippet
// render as empty cells.
func WriteResultsCSV(path string, results []*domain.SearchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Project", "Branch", "File", "Snippet", "Status"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{r.ProjectName, r.Branch, r.FilePath, r.Snippet, string(r.Status)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
