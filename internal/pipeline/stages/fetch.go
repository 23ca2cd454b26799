// Package stages wires the scanner, analyzer, llm, artifactstore and github
// connector packages into the six pipeline.Stage values S1-S6, per
// spec.md §4.5. Stage functions are thin: all actual logic lives in the
// packages they call, per the Stage Tools seam (spec.md §4.6).
package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/connectors/github"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/pipeline"
)

// Fetch implements S1: a shallow tarball snapshot of the default branch
// into a private workspace directory under workspaceRoot.
func Fetch(workspaceRoot string, logger arbor.ILogger) pipeline.Stage {
	return pipeline.Stage{
		Name: "fetch",
		Run: func(ctx context.Context, rs *pipeline.RunState) error {
			owner, repo, err := github.ParseLocator(rs.Locator)
			if err != nil {
				return err
			}

			workspacePath := filepath.Join(workspaceRoot, rs.JobID)
			if err := os.MkdirAll(workspacePath, 0755); err != nil {
				return errs.Wrap(errs.KindInternal, "creating workspace directory", err)
			}

			conn := github.NewConnector(ctx, rs.Credential)
			branch, revision, err := conn.FetchArchive(ctx, owner, repo, workspacePath)
			if err != nil {
				return err
			}

			rs.Repo = &pipeline.RepoMeta{
				DisplayName:   fmt.Sprintf("%s/%s", owner, repo),
				Branch:        branch,
				Revision:      revision,
				WorkspacePath: workspacePath,
			}
			rs.WriteAccessConfirmed = conn.HasWriteAccess(ctx, owner, repo)

			logger.Info().Str("job_id", rs.JobID).Str("repo", rs.Repo.DisplayName).
				Str("revision", revision).Bool("write_access", rs.WriteAccessConfirmed).
				Msg("fetch: workspace populated")
			return nil
		},
	}
}
