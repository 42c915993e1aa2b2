package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("GITLAB_URL", "")
	t.Setenv("TARGET_BRANCH", "")
	t.Setenv("SEARCH_WORKERS", "")
	t.Setenv("STORAGE_TYPE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com", cfg.GitLabURL)
	assert.Equal(t, "master", cfg.TargetBranch)
	assert.Equal(t, 3, cfg.SearchWorkers)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, "./glsearch.db", cfg.SQLitePath)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "localhost", cfg.APIHost)
	assert.Equal(t, "http://localhost:8080", cfg.APIEndpoint)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "glpat-test")
	t.Setenv("GITLAB_URL", "https://gitlab.example.com")
	t.Setenv("TARGET_BRANCH", "develop")
	t.Setenv("SEARCH_WORKERS", "8")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://localhost/glsearch")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "glpat-test", cfg.GitLabToken)
	assert.Equal(t, "https://gitlab.example.com", cfg.GitLabURL)
	assert.Equal(t, "develop", cfg.TargetBranch)
	assert.Equal(t, 8, cfg.SearchWorkers)
	assert.Equal(t, "postgres", cfg.StorageType)
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresInvalidWorkerCount(t *testing.T) {
	t.Setenv("SEARCH_WORKERS", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SearchWorkers)

	t.Setenv("SEARCH_WORKERS", "-1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SearchWorkers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid sqlite", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.GitLabToken = "" }, "GITLAB_TOKEN"},
		{"missing url", func(c *Config) { c.GitLabURL = "" }, "GITLAB_URL"},
		{"unknown storage", func(c *Config) { c.StorageType = "mysql" }, "STORAGE_TYPE"},
		{"postgres without url", func(c *Config) { c.StorageType = "postgres"; c.PostgresURL = "" }, "POSTGRES_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				GitLabToken: "glpat-test",
				GitLabURL:   "https://gitlab.com",
				StorageType: "sqlite",
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}
