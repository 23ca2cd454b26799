// Package worker implements the Worker Runtime (C4, spec.md §4.4): a fixed
// pool of W slots, each looping reserve -> load -> transition -> pipeline ->
// finalize, adapted from the teacher's WorkerPool goroutine-per-slot shape
// in internal/worker/pool.go but rebuilt around the Job/Pipeline model
// instead of quaero's generic Executor registry.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/queue"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
)

// Pipeline is the subset of *pipeline.Pipeline the runtime depends on, so
// tests can substitute a fake.
type Pipeline interface {
	Run(ctx context.Context, rs *pipeline.RunState) error
}

// Config bounds one worker slot's behavior, sourced from common.Config.
type Config struct {
	Slots             int
	PollInterval      time.Duration
	SoftDeadline      time.Duration
	HardDeadline      time.Duration
	DefaultCredential string // used when a WorkItem carries no per-job credential
}

// Runtime is the Worker Runtime (C4).
type Runtime struct {
	cfg      Config
	queue    *queue.Manager
	jobs     *sqlite.JobStorage
	pipeline Pipeline
	logger   arbor.ILogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewRuntime(cfg Config, q *queue.Manager, jobs *sqlite.JobStorage, p Pipeline, logger arbor.ILogger) *Runtime {
	if cfg.Slots <= 0 {
		cfg.Slots = 2
	}
	return &Runtime{cfg: cfg, queue: q, jobs: jobs, pipeline: p, logger: logger}
}

// Start launches cfg.Slots worker goroutines. Stop blocks until they drain.
func (r *Runtime) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.cfg.Slots; i++ {
		r.wg.Add(1)
		go r.slotLoop(ctx, i)
	}
}

func (r *Runtime) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runtime) slotLoop(ctx context.Context, slot int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		received, err := r.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			// queue.ErrNoMessage or a transient broker error: wait and poll again.
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.PollInterval):
			}
			continue
		}

		r.processOne(ctx, slot, received)
	}
}

// processOne implements spec.md §4.4 steps 2-8 for one reserved WorkItem.
func (r *Runtime) processOne(ctx context.Context, slot int, received *queue.Received) {
	item := received.Item
	jobID := item.JobID

	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		if sqlite.IsNotFound(err) {
			r.logger.Info().Str("job_id", jobID).Msg("worker: job no longer exists, dropping")
			r.ack(ctx, received, jobID)
			return
		}
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: loading job failed, dropping")
		r.ack(ctx, received, jobID)
		return
	}
	if job.Status != models.StatusPending {
		if received.ExceedsMax {
			r.recoverCrashed(ctx, received, job)
			return
		}
		r.logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("worker: job not pending, dropping (idempotent)")
		r.ack(ctx, received, jobID)
		return
	}

	processing, err := r.jobs.SetStatus(ctx, job.ID, models.StatusProcessing, sqlite.JobFields{Reason: "worker reserved"})
	if err != nil {
		r.logger.Info().Err(err).Str("job_id", jobID).Msg("worker: lost the transition race, dropping")
		r.ack(ctx, received, jobID)
		return
	}

	r.run(ctx, received, processing, item)
}

// recoverCrashed implements step 8: a redelivered message whose Job is
// still processing means the previous owning worker was lost.
func (r *Runtime) recoverCrashed(ctx context.Context, received *queue.Received, job *models.Job) {
	if job.Status != models.StatusProcessing {
		r.ack(ctx, received, job.ID)
		return
	}
	if received.ExceedsMax {
		r.logger.Warn().Str("job_id", job.ID).Int("recv_count", received.RecvCount).
			Msg("worker: crash-recovery redelivery limit exceeded, failing job")
		_, err := r.jobs.SetStatus(ctx, job.ID, models.StatusFailed, sqlite.JobFields{
			Error: "worker crashed while processing this job too many times", ErrorKind: string(errs.KindInternal),
			Reason: "worker-crash",
		})
		if err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: failing crashed job record failed")
		}
		r.ack(ctx, received, job.ID)
		return
	}

	r.logger.Warn().Str("job_id", job.ID).Int("recv_count", received.RecvCount).
		Msg("worker: crash-recovered job, resetting to pending")
	if err := r.jobs.ResetToPending(ctx, job.ID); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: resetting crash-recovered job failed")
	}
	if err := received.Nack(ctx); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: nack after crash-recovery reset failed")
	}
}

// run implements spec.md §4.4 steps 4-7: construct RunState, invoke the
// Pipeline under the soft/hard deadline pair, and finalize the Job.
func (r *Runtime) run(ctx context.Context, received *queue.Received, job *models.Job, item models.WorkItem) {
	credential := item.Credential
	if credential == "" {
		credential = r.cfg.DefaultCredential
	}
	rs := pipeline.NewRunState(job.ID, item.Locator, credential, item.Variant)

	hardCtx, hardCancel := context.WithTimeout(ctx, r.cfg.HardDeadline)
	defer hardCancel()
	softCtx, softCancel := context.WithCancel(hardCtx)
	defer softCancel()

	softTimer := time.AfterFunc(r.cfg.SoftDeadline, softCancel)
	defer softTimer.Stop()

	done := make(chan error, 1)
	go func() {
		done <- r.pipeline.Run(softCtx, rs)
	}()

	select {
	case err := <-done:
		r.finalize(ctx, job, rs, err)
		r.ack(ctx, received, job.ID)

	case <-hardCtx.Done():
		// Step 7: hard-deadline abort. The pipeline goroutine is left to
		// observe softCtx/hardCtx cancellation and exit on its own; the
		// Cleanup stage it eventually runs removes the workspace.
		r.logger.Error().Str("job_id", job.ID).Msg("worker: hard deadline exceeded, aborting")
		_, err := r.jobs.SetStatus(ctx, job.ID, models.StatusFailed, sqlite.JobFields{
			Error: "pipeline exceeded the hard deadline", ErrorKind: "deadline-exceeded",
			Reason: "hard-deadline",
		})
		if err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: failing deadline-exceeded job record failed")
		}
		if err := received.Nack(ctx); err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: nack after hard-deadline abort failed")
		}
	}
}

// finalize implements spec.md §4.4 step 5.
func (r *Runtime) finalize(ctx context.Context, job *models.Job, rs *pipeline.RunState, runErr error) {
	if runErr != nil {
		kind := errs.KindOf(runErr)
		errorKind := string(kind)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			errorKind = "timed-out"
		}
		_, err := r.jobs.SetStatus(ctx, job.ID, models.StatusFailed, sqlite.JobFields{
			Error: runErr.Error(), ErrorKind: errorKind, Reason: "pipeline failed",
		})
		if err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: recording failed job failed")
		}
		return
	}

	fields := sqlite.JobFields{Reason: "pipeline completed"}
	if rs.Publish != nil {
		fields.ArtifactURL = rs.Publish.ArtifactURL
		fields.PullRequestURL = rs.Publish.PullRequestURL
		fields.BundleURL = rs.Publish.BundleURL
	}
	hasWriteAccess := rs.WriteAccessConfirmed
	fields.HasWriteAccess = &hasWriteAccess

	if _, err := r.jobs.SetStatus(ctx, job.ID, models.StatusCompleted, fields); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: recording completed job failed")
	}
}

func (r *Runtime) ack(ctx context.Context, received *queue.Received, jobID string) {
	if err := received.Ack(ctx); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: ack failed")
	}
}
