package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// Stage is one pipeline step: a pure-ish function over the shared RunState
// that may perform I/O, matching the Stage Tools contract of spec.md §4.6
// at the orchestration layer (stages themselves call into C6 tools).
type Stage struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, rs *RunState) error
}

// Pipeline is the strict linear sequence Fetch -> Scan -> Analyze ->
// Generate -> Publish, short-circuiting to Cleanup on first error, exactly
// as spec.md §4.5 describes.
type Pipeline struct {
	stages  []Stage
	cleanup func(ctx context.Context, rs *RunState) error
	logger  arbor.ILogger
}

func New(logger arbor.ILogger, cleanup func(ctx context.Context, rs *RunState) error, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, cleanup: cleanup, logger: logger}
}

// Run executes each stage in order under its own timeout (derived from the
// parent ctx, which already carries the per-job soft/hard deadline set by
// the Worker Runtime). Cleanup always runs, via defer, and its failure is
// logged but never changes the returned error (spec.md §4.5 S6).
func (p *Pipeline) Run(ctx context.Context, rs *RunState) error {
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.cleanup(cleanupCtx, rs); err != nil {
			p.logger.Warn().Err(err).Str("job_id", rs.JobID).Msg("cleanup failed, job outcome unaffected")
		}
	}()

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			p.logger.Info().Str("job_id", rs.JobID).Str("stage", stage.Name).
				Msg("pipeline canceled before stage, short-circuiting")
			return err
		}

		stageCtx := ctx
		var cancel context.CancelFunc
		if stage.Timeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
		}

		p.logger.Debug().Str("job_id", rs.JobID).Str("stage", stage.Name).Msg("stage starting")
		err := stage.Run(stageCtx, rs)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			p.logger.Error().Err(err).Str("job_id", rs.JobID).Str("stage", stage.Name).
				Msg("stage failed, short-circuiting to cleanup")
			return err
		}
		p.logger.Debug().Str("job_id", rs.JobID).Str("stage", stage.Name).Msg("stage completed")
	}

	return nil
}
