package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"glsearch/internal/domain"
	apperrors "glsearch/internal/errors"
	"glsearch/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(url string) (storage.Storage, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		group_path TEXT NOT NULL,
		phrase TEXT NOT NULL,
		branch TEXT NOT NULL,
		project_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_group_path ON runs(group_path);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		project_name TEXT NOT NULL,
		branch TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_status ON results(run_id, status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun saves a search run
func (s *postgresStorage) SaveRun(ctx context.Context, run *domain.SearchRun) error {
	query := `
		INSERT INTO runs (id, group_path, phrase, branch, project_count, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			group_path = EXCLUDED.group_path,
			phrase = EXCLUDED.phrase,
			branch = EXCLUDED.branch,
			project_count = EXCLUDED.project_count,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.GroupPath,
		run.Phrase,
		run.Branch,
		run.ProjectCount,
		run.Status,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

// UpdateRunStatus marks a run's terminal status and finish time
func (s *postgresStorage) UpdateRunStatus(ctx context.Context, runID, status string, finishedAt time.Time) error {
	query := `UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`
	_, err := s.db.ExecContext(ctx, query, status, finishedAt, runID)
	return err
}

// GetRun retrieves a single run by ID
func (s *postgresStorage) GetRun(ctx context.Context, runID string) (*domain.SearchRun, error) {
	query := `
		SELECT id, group_path, phrase, branch, project_count, status, started_at, finished_at
		FROM runs WHERE id = $1
	`
	var run domain.SearchRun
	var finishedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID, &run.GroupPath, &run.Phrase, &run.Branch,
		&run.ProjectCount, &run.Status, &run.StartedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("run")
	}
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}

// GetRuns retrieves the most recent runs
func (s *postgresStorage) GetRuns(ctx context.Context, limit int) ([]*domain.SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, group_path, phrase, branch, project_count, status, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SearchRun
	for rows.Next() {
		var run domain.SearchRun
		var finishedAt sql.NullTime
		err := rows.Scan(
			&run.ID, &run.GroupPath, &run.Phrase, &run.Branch,
			&run.ProjectCount, &run.Status, &run.StartedAt, &finishedAt,
		)
		if err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// SaveResults saves all results of a run, keyed by their batch position
func (s *postgresStorage) SaveResults(ctx context.Context, runID string, results []*domain.SearchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, position, project_id, project_name, branch, file_path, snippet, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, position) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			project_name = EXCLUDED.project_name,
			branch = EXCLUDED.branch,
			file_path = EXCLUDED.file_path,
			snippet = EXCLUDED.snippet,
			status = EXCLUDED.status,
			error = EXCLUDED.error
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range results {
		_, err = stmt.ExecContext(ctx,
			runID,
			i,
			r.ProjectID,
			r.ProjectName,
			r.Branch,
			r.FilePath,
			r.Snippet,
			string(r.Status),
			r.Error,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetResults retrieves a run's results in batch order
func (s *postgresStorage) GetResults(ctx context.Context, runID string) ([]*domain.SearchResult, error) {
	query := `
		SELECT project_id, project_name, branch, file_path, snippet, status, error
		FROM results
		WHERE run_id = $1
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var status string
		err := rows.Scan(&r.ProjectID, &r.ProjectName, &r.Branch, &r.FilePath, &r.Snippet, &status, &r.Error)
		if err != nil {
			return nil, err
		}
		r.Status = domain.SearchStatus(status)
		results = append(results, &r)
	}

	return results, rows.Err()
}

// CountResultsByStatus returns how many results of each status a run has
func (s *postgresStorage) CountResultsByStatus(ctx context.Context, runID string) (map[domain.SearchStatus]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM results
		WHERE run_id = $1
		GROUP BY status
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SearchStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.SearchStatus(status)] = count
	}

	return counts, rows.Err()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
