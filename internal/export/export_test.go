package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glsearch/internal/domain"
)

func sampleProjects() []*domain.Project {
	return []*domain.Project{
		{ID: 1, Name: "ProjectA", PathWithNamespace: "acme/project-a", DefaultBranch: "master", WebURL: "https://example.com/acme/project-a"},
		{ID: 2, Name: "ProjectB", PathWithNamespace: "acme/project-b", DefaultBranch: "main", WebURL: "https://example.com/acme/project-b"},
	}
}

func sampleResults() []*domain.SearchResult {
	return []*domain.SearchResult{
		{ProjectID: 1, ProjectName: "ProjectA", Branch: "master", FilePath: "README.md", Snippet: "...do TODO-X before...", Status: domain.StatusFound},
		{ProjectID: 2, ProjectName: "ProjectB", Branch: "master", Status: domain.StatusBranchMissing},
		{ProjectID: 3, ProjectName: "ProjectC", Branch: "master", Status: domain.StatusNotFound},
	}
}

func TestWriteProjectsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, WriteProjectsJSON(path, sampleProjects()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, float64(1), decoded[0]["id"])
	assert.Equal(t, "ProjectA", decoded[0]["name"])
	assert.Equal(t, "acme/project-a", decoded[0]["path_with_namespace"])
	assert.Equal(t, "main", decoded[1]["default_branch"])
	assert.Equal(t, "https://example.com/acme/project-b", decoded[1]["web_url"])
}

func TestWriteProjectsJSONEmptyListIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, WriteProjectsJSON(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteProjectsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.csv")
	require.NoError(t, WriteProjectsCSV(path, sampleProjects()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "id,name,path_with_namespace,default_branch,web_url\n" +
		"1,ProjectA,acme/project-a,master,https://example.com/acme/project-a\n" +
		"2,ProjectB,acme/project-b,main,https://example.com/acme/project-b\n"
	assert.Equal(t, want, string(data))
}

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, WriteResultsCSV(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "Project,Branch,File,Snippet,Status\n" +
		"ProjectA,master,README.md,...do TODO-X before...,Found\n" +
		"ProjectB,master,,,BranchMissing\n" +
		"ProjectC,master,,,NotFound\n"
	assert.Equal(t, want, string(data))
}

func TestWritersOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")

	require.NoError(t, os.WriteFile(path, []byte("stale content that is much longer than the real output will ever be\n"), 0644))
	require.NoError(t, WriteResultsCSV(path, sampleResults()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Second run against identical input must produce identical bytes
	require.NoError(t, WriteResultsCSV(path, sampleResults()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotContains(t, string(second), "stale content")
}
