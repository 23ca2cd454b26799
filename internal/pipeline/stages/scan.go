package stages

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/scanner"
)

// Scan implements S2: bounded recursive enumeration of the fetched
// workspace. A truncated scan is a non-fatal advisory, not a stage error.
func Scan(cfg *common.ScannerConfig, logger arbor.ILogger) pipeline.Stage {
	ignored := make(map[string]bool, len(cfg.IgnoredNames))
	for _, name := range cfg.IgnoredNames {
		ignored[name] = true
	}

	return pipeline.Stage{
		Name: "scan",
		Run: func(ctx context.Context, rs *pipeline.RunState) error {
			if rs.Repo == nil {
				return errs.New(errs.KindInternal, "scan ran before fetch populated the workspace")
			}

			result, err := scanner.Scan(rs.Repo.WorkspacePath, scanner.Options{
				MaxDepth:     cfg.MaxDepth,
				MaxFiles:     cfg.MaxFiles,
				IgnoredNames: ignored,
			})
			if err != nil {
				return err
			}

			rs.Scan = result
			if result.Truncated {
				logger.Warn().Str("job_id", rs.JobID).Int("file_count", len(result.Files)).
					Msg("scan: truncated at configured limit")
			}

			if cfg.WriteManifest {
				if err := scanner.WriteManifest(rs.Repo.WorkspacePath, result); err != nil {
					logger.Warn().Err(err).Str("job_id", rs.JobID).Msg("scan: writing manifest failed, continuing")
				}
			}

			return nil
		},
	}
}
