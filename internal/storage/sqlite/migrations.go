package sqlite

import "database/sql"

// Migrate creates the job and job_transitions tables if they do not already
// exist. There is no versioned migration chain (unneeded at this schema's
// size) - this mirrors the teacher's own single-pass schema.go for small
// tables, just scoped to the Job entity.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			locator TEXT NOT NULL,
			normalized_locator TEXT NOT NULL,
			caller TEXT NOT NULL,
			variant TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			error_kind TEXT NOT NULL DEFAULT '',
			artifact_url TEXT NOT NULL DEFAULT '',
			has_write_access INTEGER NOT NULL DEFAULT 0,
			pull_request_url TEXT NOT NULL DEFAULT '',
			bundle_url TEXT NOT NULL DEFAULT '',
			enqueued INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_active_locator
			ON jobs(normalized_locator)
			WHERE status IN ('pending', 'processing', 'completed')`,
		`CREATE TABLE IF NOT EXISTS job_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_transitions_job_id ON job_transitions(job_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
