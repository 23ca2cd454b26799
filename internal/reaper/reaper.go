// Package reaper implements the periodic sweep that covers the one gap the
// Worker Runtime cannot close on its own (expansion, grounded on the
// teacher's robfig/cron usage in internal/services/scheduler): a Job stuck
// in pending because its enqueue never reached the broker (spec.md §4.3
// step 4). Crash-recovery redelivery is handled separately by the broker's
// visibility timeout and the Worker Runtime's own crash-recovery path.
package reaper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/storage/sqlite"
)

// Reaper runs cfg.Schedule on a robfig/cron scheduler, failing any Job that
// has sat pending longer than cfg.EnqueueTimeout without ever having been
// marked enqueued (Job.Enqueued false).
type Reaper struct {
	jobs   *sqlite.JobStorage
	cfg    *common.ReaperConfig
	logger arbor.ILogger
	cron   *cron.Cron
}

func New(jobs *sqlite.JobStorage, cfg *common.ReaperConfig, logger arbor.ILogger) *Reaper {
	return &Reaper{jobs: jobs, cfg: cfg, logger: logger, cron: cron.New()}
}

// Start registers the sweep and begins the cron scheduler. Stop should be
// called on shutdown to drain any sweep in progress.
func (r *Reaper) Start() error {
	timeout := common.ParseDurationOr(r.cfg.EnqueueTimeout, 5*time.Minute)
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		r.sweep(context.Background(), timeout)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// sweep implements spec.md §4.3 step 4: a Job whose broker Enqueue call
// itself never succeeded is failed with enqueue-timeout rather than left
// stuck forever. A Job that did enqueue successfully and is merely still
// waiting its turn behind a backlog larger than the worker pool can drain
// within timeout is left alone - Enqueued distinguishes the two cases, since
// age alone cannot (spec.md §4.3 step 4 is about the enqueue call failing,
// not about queue depth).
func (r *Reaper) sweep(ctx context.Context, timeout time.Duration) {
	jobs, err := r.jobs.List(ctx, 0, 1000)
	if err != nil {
		r.logger.Error().Err(err).Msg("reaper: listing jobs failed")
		return
	}

	cutoff := time.Now().Add(-timeout)
	swept := 0
	for _, job := range jobs {
		if job.Status != models.StatusPending {
			continue
		}
		if job.Enqueued {
			continue
		}
		if job.CreatedAt.After(cutoff) {
			continue
		}

		_, err := r.jobs.SetStatus(ctx, job.ID, models.StatusFailed, sqlite.JobFields{
			Error:     "job was never successfully enqueued to the broker within the enqueue timeout",
			ErrorKind: string(errs.KindTimeout),
			Reason:    "enqueue-timeout",
		})
		if err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("reaper: failing stale pending job failed")
			continue
		}
		swept++
		r.logger.Warn().Str("job_id", job.ID).Msg("reaper: failed job stuck pending past enqueue timeout")
	}

	if swept > 0 {
		r.logger.Info().Int("count", swept).Msg("reaper: sweep complete")
	}
}
