package stages

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/services/llm"
)

// Generate implements S4: one documentation-generation call, and for the
// docs-plus-comments variant a further per-file commented-source call per
// analyzed file (spec.md §4.5 S4).
func Generate(provider llm.Provider, cfg *common.LLMConfig, logger arbor.ILogger) pipeline.Stage {
	return pipeline.Stage{
		Name: "generate",
		Run: func(ctx context.Context, rs *pipeline.RunState) error {
			if rs.Analysis == nil || rs.Repo == nil {
				return errs.New(errs.KindInternal, "generate ran before analyze populated the workspace")
			}

			docsReq := llm.BuildDocsRequest(rs, cfg.ReadmeCharBudget)
			docsReq.MaxTokens = cfg.OutputTokenBudget

			docsResp, err := provider.GenerateContent(ctx, docsReq)
			if err != nil {
				return err
			}
			if err := llm.ValidateMarkdown(docsResp.Text); err != nil {
				return err
			}

			result := &pipeline.GenerateResult{
				Markdown:     docsResp.Text,
				InputTokens:  docsResp.InputTokens,
				OutputTokens: docsResp.OutputTokens,
			}

			if rs.Variant == models.VariantDocsPlusComments {
				commented, err := generateCommentedFiles(ctx, provider, rs, logger)
				if err != nil {
					return err
				}
				result.CommentedFiles = commented
			}

			rs.Generate = result
			logger.Info().Str("job_id", rs.JobID).Int("markdown_bytes", len(result.Markdown)).
				Int("commented_files", len(result.CommentedFiles)).Msg("generate: model output accepted")
			return nil
		},
	}
}

// generateCommentedFiles runs the per-file commenting pass over every file
// the Analyze stage selected. A single file's model failure does not abort
// the run; it is recorded with its original content unchanged so Publish
// still has something to ship for that path.
func generateCommentedFiles(ctx context.Context, provider llm.Provider, rs *pipeline.RunState, logger arbor.ILogger) ([]pipeline.CommentedFile, error) {
	out := make([]pipeline.CommentedFile, 0, len(rs.Analysis.Files))

	for _, fa := range rs.Analysis.Files {
		full := filepath.Join(rs.Repo.WorkspacePath, fa.Path)
		src, err := os.ReadFile(full)
		if err != nil {
			logger.Warn().Err(err).Str("path", fa.Path).Msg("generate: skipping unreadable file for commenting")
			continue
		}
		original := string(src)

		req := llm.BuildCommentRequest(fa.Path, original)
		resp, err := provider.GenerateContent(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Str("path", fa.Path).Msg("generate: commenting call failed, keeping original")
			out = append(out, pipeline.CommentedFile{Path: fa.Path, Original: original, Commented: original})
			continue
		}

		out = append(out, pipeline.CommentedFile{Path: fa.Path, Original: original, Commented: resp.Text})
	}

	return out, nil
}
