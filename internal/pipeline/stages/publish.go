package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/connectors/github"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/pipeline"
)

// bundleEntry is one element of the JSON fallback bundle the
// docs-plus-comments variant ships through the Artifact Store Gateway when
// no pull request could be opened (spec.md §4.5 S5).
type bundleEntry struct {
	Path      string `json:"path"`
	Original  string `json:"original"`
	Commented string `json:"commented"`
}

// Publish implements S5: a durable local copy of the generated markdown,
// an optional Artifact Store Gateway upload, and for docs-plus-comments
// either a pull request or a JSON bundle carrying the per-file commented
// source - exactly one of PullRequestURL or BundleURL is set on success.
func Publish(cfg *common.PipelineConfig, gateway artifactstore.Gateway, logger arbor.ILogger) pipeline.Stage {
	return pipeline.Stage{
		Name: "publish",
		Run: func(ctx context.Context, rs *pipeline.RunState) error {
			if rs.Generate == nil || rs.Repo == nil {
				return errs.New(errs.KindInternal, "publish ran before generate produced output")
			}

			result := &pipeline.PublishResult{}

			localPath, err := writeLocalDocs(cfg.PublishDir, rs.JobID, rs.Generate.Markdown)
			if err != nil {
				return err
			}
			result.LocalPath = localPath

			if gateway.Configured() {
				url, err := gateway.Put(ctx, "docs/"+rs.JobID, []byte(rs.Generate.Markdown), "text/markdown", "max-age=3600")
				if err != nil {
					logger.Warn().Err(err).Str("job_id", rs.JobID).Msg("publish: artifact upload failed, docs-only result still has a local copy")
				} else {
					result.ArtifactURL = externalArtifactURL(url, rs.JobID, "/artifact")
				}
			}

			if rs.Variant == models.VariantDocsPlusComments {
				if err := publishCommented(ctx, rs, gateway, result, logger); err != nil {
					return err
				}
			}

			rs.Publish = result
			logger.Info().Str("job_id", rs.JobID).Str("artifact_url", result.ArtifactURL).
				Str("pull_request_url", result.PullRequestURL).Str("bundle_url", result.BundleURL).
				Msg("publish: stage complete")
			return nil
		},
	}
}

// externalArtifactURL rewrites a gateway-internal URL scheme (badger://,
// which no external client can reach) into the HTTP API route that actually
// serves those bytes, so artifact_url and bundle_url are always URLs an
// external client can GET. S3 URLs are already externally fetchable and
// pass through unchanged.
func externalArtifactURL(rawURL, jobID, apiSuffix string) string {
	if strings.HasPrefix(rawURL, "badger://") {
		return "/v1/jobs/" + jobID + apiSuffix
	}
	return rawURL
}

func writeLocalDocs(publishDir, jobID, markdown string) (string, error) {
	dir := filepath.Join(publishDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.Wrap(errs.KindStorageUnavail, "creating local publish directory", err)
	}
	path := filepath.Join(dir, "README.md")
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", errs.Wrap(errs.KindStorageUnavail, "writing local documentation copy", err)
	}
	return path, nil
}

// publishCommented attempts a pull request when the Fetch stage confirmed
// write access, falling back to a gateway-hosted bundle on either no access
// or a failed PR attempt. A failed bundle upload is terminal: there is
// nowhere else for the commented source to go.
func publishCommented(ctx context.Context, rs *pipeline.RunState, gateway artifactstore.Gateway, result *pipeline.PublishResult, logger arbor.ILogger) error {
	owner, repo, err := github.ParseLocator(rs.Locator)
	if err != nil {
		return err
	}

	if rs.WriteAccessConfirmed {
		conn := github.NewConnector(ctx, rs.Credential)
		changes := make([]github.FileChange, 0, len(rs.Generate.CommentedFiles))
		for _, cf := range rs.Generate.CommentedFiles {
			changes = append(changes, github.FileChange{Path: cf.Path, Content: cf.Commented})
		}

		prURL, err := conn.CreatePullRequest(ctx, owner, repo, rs.Repo.Branch, changes,
			fmt.Sprintf("Add generated documentation comments for %s/%s", owner, repo),
			"Automatically generated commented source. Review before merging.")
		if err == nil {
			result.PullRequestURL = prURL
			return nil
		}
		logger.Warn().Err(err).Str("job_id", rs.JobID).Msg("publish: pull request failed, falling back to bundle")
	}

	entries := make([]bundleEntry, 0, len(rs.Generate.CommentedFiles))
	for _, cf := range rs.Generate.CommentedFiles {
		entries = append(entries, bundleEntry{Path: cf.Path, Original: cf.Original, Commented: cf.Commented})
	}
	bundle, err := json.Marshal(entries)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "encoding commented-source bundle", err)
	}

	if !gateway.Configured() {
		return errs.New(errs.KindPublishConflict, "no pull request and no artifact store configured for the commented-source bundle")
	}

	key := "commented/" + rs.JobID
	url, err := gateway.Put(ctx, key, bundle, "application/json", "")
	if err != nil {
		return errs.Wrap(errs.KindPublishConflict, "uploading commented-source bundle", err)
	}

	result.BundleURL = externalArtifactURL(url, rs.JobID, "/bundle")
	return nil
}

