package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
)

// ErrJobNotFound is returned by Get/SetStatus/Delete when no row matches.
var ErrJobNotFound = errors.New("job not found")

// ErrJobConflict is returned by Create when an active Job already exists
// for the normalized locator (invariant P1 / spec.md §4.1 create()).
var ErrJobConflict = errors.New("job already exists for this locator")

// ErrIllegalTransition is returned by SetStatus when (from, to) is not in
// the allowed forward set (invariant P2).
var ErrIllegalTransition = errors.New("illegal job status transition")

// JobStorage is the Job Store (C1): the only component allowed to mutate
// Job rows. Every write holds mu, and Create and SetStatus run their check
// and write in one transaction on the single shared connection, so the
// normalized-locator uniqueness check (P1) and the status-transition guard
// (P2) are both race-free across the worker pool.
type JobStorage struct {
	db     *sql.DB
	logger arbor.ILogger
	mu     sync.Mutex
}

func NewJobStorage(db *sql.DB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{db: db, logger: logger}
}

// retryWithExponentialBackoff retries operation while it fails with a
// "database is locked" / SQLITE_BUSY error, adapted from the teacher's
// job_storage.go of the same name.
func retryWithExponentialBackoff(ctx context.Context, operation func() error, maxAttempts int, initialDelay time.Duration, logger arbor.ILogger) error {
	delay := initialDelay
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !isBusyError(lastErr) {
			return lastErr
		}
		if logger != nil {
			logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("sqlite busy, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Create implements §4.1 create(): atomically returns either a brand-new
// pending Job, or the existing active Job for the same normalized locator
// (ErrJobConflict, wrapping that Job via the returned value) per invariant
// P1 ("at most one active Job per locator").
func (s *JobStorage) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.Job
	op := func() error {
		// The single shared *sql.DB connection (see connection.go) plus
		// BeginTx gives us the same serialization BEGIN IMMEDIATE would;
		// only one write transaction is ever open at a time.
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		existing, err := queryJobByNormalizedLocator(ctx, tx, job.NormalizedLocator,
			[]models.Status{models.StatusPending, models.StatusProcessing, models.StatusCompleted})
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			return err
		}
		if existing != nil {
			result = existing
			return ErrJobConflict
		}

		now := time.Now()
		job.Status = models.StatusPending
		job.CreatedAt = now
		job.UpdatedAt = now

		_, err = tx.ExecContext(ctx, `INSERT INTO jobs
			(id, locator, normalized_locator, caller, variant, status, error, error_kind,
			 artifact_url, has_write_access, pull_request_url, bundle_url, enqueued, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, '', '', '', ?, '', '', 0, ?, ?)`,
			job.ID, job.Locator, job.NormalizedLocator, job.Caller, string(job.Variant),
			string(job.Status), boolToInt(job.HasWriteAccess), job.CreatedAt.Unix(), job.UpdatedAt.Unix())
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		result = job
		return nil
	}

	err := retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger)
	if errors.Is(err, ErrJobConflict) {
		return result, ErrJobConflict
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkEnqueued records that the Submitter's broker Enqueue call for this Job
// succeeded. The Reaper uses this flag to tell a Job that genuinely never
// reached the broker (Enqueue itself failed) apart from one that enqueued
// fine and is simply still waiting its turn in a backlog larger than the
// worker pool can drain within the enqueue timeout - only the former should
// ever be failed with enqueue-timeout.
func (s *JobStorage) MarkEnqueued(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE jobs SET enqueued=1 WHERE id=?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrJobNotFound
		}
		return nil
	}
	return retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger)
}

func queryJobByNormalizedLocator(ctx context.Context, tx *sql.Tx, normalizedLocator string, statuses []models.Status) (*models.Job, error) {
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, normalizedLocator)
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE normalized_locator = ? AND status IN (%s) LIMIT 1`,
		jobColumns, strings.Join(placeholders, ","))
	row := tx.QueryRowContext(ctx, query, args...)
	return scanJob(row)
}

const jobColumns = `id, locator, normalized_locator, caller, variant, status, error, error_kind,
	artifact_url, has_write_access, pull_request_url, bundle_url, enqueued, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var variant, status string
	var hasWriteAccess, enqueued int
	var createdAt, updatedAt int64
	err := row.Scan(&j.ID, &j.Locator, &j.NormalizedLocator, &j.Caller, &variant, &status,
		&j.Error, &j.ErrorKind, &j.ArtifactURL, &hasWriteAccess, &j.PullRequestURL, &j.BundleURL,
		&enqueued, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Variant = models.Variant(variant)
	j.Status = models.Status(status)
	j.HasWriteAccess = hasWriteAccess != 0
	j.Enqueued = enqueued != 0
	j.CreatedAt = time.Unix(createdAt, 0)
	j.UpdatedAt = time.Unix(updatedAt, 0)
	return &j, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Get implements §4.1 get(id).
func (s *JobStorage) Get(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = ?`, jobColumns)
	row := s.db.QueryRowContext(ctx, query, id)
	return scanJob(row)
}

// List implements §4.1 list(skip, limit).
func (s *JobStorage) List(ctx context.Context, skip, limit int) ([]*models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`, jobColumns)
	rows, err := s.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SetStatus implements §4.1 set_status(), enforcing invariant P2: it
// rejects any (from, to) pair not in the allowed forward set, and rejects
// any mutation of an already-terminal Job. fields may set Error, ErrorKind,
// ArtifactURL, and PullRequestURL in the same transaction.
func (s *JobStorage) SetStatus(ctx context.Context, id string, next models.Status, fields JobFields) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.Job
	op := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM jobs WHERE id = ?`, jobColumns), id)
		current, err := scanJob(row)
		if err != nil {
			return err
		}

		if current.Status.IsTerminal() {
			return ErrIllegalTransition
		}
		if !current.Status.CanTransition(next) {
			return ErrIllegalTransition
		}

		// P3: completed requires artifact_url or pull_request_url.
		artifactURL := fields.ArtifactURL
		if artifactURL == "" {
			artifactURL = current.ArtifactURL
		}
		prURL := fields.PullRequestURL
		if prURL == "" {
			prURL = current.PullRequestURL
		}
		if next == models.StatusCompleted && artifactURL == "" && prURL == "" {
			return errs.New(errs.KindInternal, "completed job must have artifact_url or pull_request_url")
		}
		bundleURL := fields.BundleURL
		if bundleURL == "" {
			bundleURL = current.BundleURL
		}
		// P4: failed requires a non-empty error.
		errMsg := fields.Error
		if errMsg == "" {
			errMsg = current.Error
		}
		if next == models.StatusFailed && errMsg == "" {
			return errs.New(errs.KindInternal, "failed job must have a non-empty error")
		}

		hasWriteAccess := current.HasWriteAccess
		if fields.HasWriteAccess != nil {
			hasWriteAccess = *fields.HasWriteAccess
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `UPDATE jobs SET status=?, error=?, error_kind=?,
			artifact_url=?, has_write_access=?, pull_request_url=?, bundle_url=?, updated_at=? WHERE id=?`,
			string(next), errMsg, fields.ErrorKind, artifactURL, boolToInt(hasWriteAccess), prURL, bundleURL, now.Unix(), id)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO job_transitions (job_id, from_state, to_state, reason, at)
			VALUES (?, ?, ?, ?, ?)`, id, string(current.Status), string(next), fields.Reason, now.Unix())
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		current.Status = next
		current.Error = errMsg
		current.ErrorKind = fields.ErrorKind
		current.ArtifactURL = artifactURL
		current.HasWriteAccess = hasWriteAccess
		current.PullRequestURL = prURL
		current.BundleURL = bundleURL
		current.UpdatedAt = now
		result = current
		return nil
	}

	if err := retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger); err != nil {
		return nil, err
	}
	return result, nil
}

// ResetToPending implements the crash-recovery reset of §4.4 step 8: a
// processing Job whose owning worker was lost is returned to pending
// without writing a job_transitions row, so invariant P2 (whose enumerated
// pairs do not include processing->pending) holds over the recorded
// history exactly as stated.
func (s *JobStorage) ResetToPending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status=?, updated_at=?
			WHERE id=? AND status=?`,
			string(models.StatusPending), time.Now().Unix(), id, string(models.StatusProcessing))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrJobNotFound
		}
		return nil
	}
	return retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger)
}

// Delete implements §4.1 delete(id), removing the Job row and its recorded
// transitions. A worker running the Job is not signalled: its pipeline runs
// on, and its final status write fails with ErrJobNotFound.
func (s *JobStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// job_transitions.job_id references jobs(id) with foreign keys on, so
	// the history rows go first.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM job_transitions WHERE job_id = ?`, id)
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Transitions returns the recorded status history for a Job, used by tests
// to verify invariant P2 without re-deriving it from mutation order.
func (s *JobStorage) Transitions(ctx context.Context, jobID string) ([]models.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_id, from_state, to_state, reason, at
		FROM job_transitions WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var t models.Transition
		var at int64
		if err := rows.Scan(&t.JobID, &t.FromState, &t.ToState, &t.Reason, &at); err != nil {
			return nil, err
		}
		t.At = time.Unix(at, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}

// JobFields carries the optional fields SetStatus may update alongside the
// status transition itself.
type JobFields struct {
	Error          string
	ErrorKind      string
	ArtifactURL    string
	HasWriteAccess *bool // nil leaves the existing value unchanged
	PullRequestURL string
	BundleURL      string
	Reason         string
}

// IsNotFound reports whether err is (or wraps) ErrJobNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
