package stages

import (
	"context"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/pipeline"
)

// Cleanup implements S6: removes the per-job workspace directory created by
// Fetch. Pipeline always runs this via its cleanup hook, success or
// failure (spec.md §4.5 S6), so a missing Repo is expected rather than an
// error.
func Cleanup(logger arbor.ILogger) func(ctx context.Context, rs *pipeline.RunState) error {
	return func(ctx context.Context, rs *pipeline.RunState) error {
		if rs.Repo == nil {
			return nil
		}
		if err := os.RemoveAll(rs.Repo.WorkspacePath); err != nil {
			logger.Warn().Err(err).Str("job_id", rs.JobID).Str("path", rs.Repo.WorkspacePath).
				Msg("cleanup: failed to remove workspace directory")
			return err
		}
		return nil
	}
}
