package stages

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/analyzer"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/pipeline"
)

// Analyze implements S3: per-file source extraction over the subset of
// scanned files the Analyzer Tool selects (spec.md §4.5 S3).
func Analyze(cfg *common.AnalyzerConfig, logger arbor.ILogger) pipeline.Stage {
	return pipeline.Stage{
		Name: "analyze",
		Run: func(ctx context.Context, rs *pipeline.RunState) error {
			if rs.Scan == nil || rs.Repo == nil {
				return errs.New(errs.KindInternal, "analyze ran before scan populated the workspace")
			}

			result, err := analyzer.Analyze(rs.Repo.WorkspacePath, rs.Scan.Files, cfg.MaxFiles)
			if err != nil {
				return err
			}

			rs.Analysis = result
			logger.Info().Str("job_id", rs.JobID).Int("analyzed_files", len(result.Files)).
				Msg("analyze: extraction complete")
			return nil
		},
	}
}
