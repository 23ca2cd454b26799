// Package submitter implements the Submitter (C3): the only path by which a
// caller-supplied repository locator becomes a durable, queued Job.
package submitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
)

// Service implements the four-step submit operation of spec.md §4.3.
type Service struct {
	jobs   *sqlite.JobStorage
	queue  *queue.Manager
	logger arbor.ILogger
}

func NewService(jobs *sqlite.JobStorage, q *queue.Manager, logger arbor.ILogger) *Service {
	return &Service{jobs: jobs, queue: q, logger: logger}
}

// Result reports whether Submit created a brand-new Job or returned an
// existing active one for the same locator (invariant P1).
type Result struct {
	Job     *models.Job
	Created bool
}

// Submit implements submit(locator, caller?, variant) exactly as described
// in spec.md §4.3.
func (s *Service) Submit(ctx context.Context, locator, caller, credential string, variant models.Variant) (*Result, error) {
	normalized := Normalize(locator)

	job := &models.Job{
		ID:                uuid.New().String(),
		Locator:           locator,
		NormalizedLocator: normalized,
		Caller:            caller,
		Variant:           variant,
	}

	created, err := s.jobs.Create(ctx, job)
	if errors.Is(err, sqlite.ErrJobConflict) {
		s.logger.Info().
			Str("job_id", created.ID).
			Str("locator", normalized).
			Msg("submit: returning existing active job")
		return &Result{Job: created, Created: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	item := models.WorkItem{
		JobID:      created.ID,
		Locator:    created.Locator,
		Credential: credential,
		Variant:    variant,
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		// The Job is left pending and unmarked; the reaper will eventually
		// fail it with enqueue-timeout (spec.md §4.3 step 4). The Submitter
		// does not retry synchronously.
		s.logger.Error().Err(err).Str("job_id", created.ID).
			Msg("submit: enqueue failed, job left pending for reaper")
		return &Result{Job: created, Created: true}, nil
	}

	if err := s.jobs.MarkEnqueued(ctx, created.ID); err != nil {
		// The broker accepted the work item; a failure to record that fact
		// is a storage hiccup, not an enqueue failure, so the job is left
		// running through the queue and simply logged.
		s.logger.Warn().Err(err).Str("job_id", created.ID).
			Msg("submit: recording enqueued flag failed")
	}

	s.logger.Info().Str("job_id", created.ID).Str("locator", normalized).
		Str("variant", string(variant)).Msg("submit: job created and enqueued")
	return &Result{Job: created, Created: true}, nil
}
