package stages

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/models"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/services/llm"
)

const sampleGoFile = `package sample

// Greeter says hello.
type Greeter struct{}

// Greet returns a greeting.
func (g *Greeter) Greet(name string) string {
	return "hello " + name
}
`

func writeTestWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(sampleGoFile), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Sample\n\nA sample repo."), 0644))
	return dir
}

func newTestRunState(t *testing.T, workspace string) *pipeline.RunState {
	rs := pipeline.NewRunState("job-1", "acme/sample", "", models.VariantDocsOnly)
	rs.Repo = &pipeline.RepoMeta{
		DisplayName:   "acme/sample",
		Branch:        "main",
		Revision:      "deadbeef",
		WorkspacePath: workspace,
	}
	return rs
}

func TestScanStagePopulatesRunState(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)

	cfg := &common.ScannerConfig{MaxDepth: 10, MaxFiles: 1000}
	stage := Scan(cfg, arbor.NewLogger())

	require.NoError(t, stage.Run(context.Background(), rs))
	require.NotNil(t, rs.Scan)
	assert.NotEmpty(t, rs.Scan.Files)
	assert.Contains(t, rs.Scan.ReadmeExcerpt, "A sample repo.")
}

func TestAnalyzeStagePopulatesRunState(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Scan = &pipeline.ScanResult{
		Files: []pipeline.FileEntry{{Path: "greeter.go", Size: int64(len(sampleGoFile)), Category: "code"}},
	}

	stage := Analyze(&common.AnalyzerConfig{MaxFiles: 20}, arbor.NewLogger())
	require.NoError(t, stage.Run(context.Background(), rs))

	require.NotNil(t, rs.Analysis)
	require.Len(t, rs.Analysis.Files, 1)
	assert.Equal(t, "greeter.go", rs.Analysis.Files[0].Path)
	require.Len(t, rs.Analysis.Files[0].Classes, 1)
	assert.Equal(t, "Greeter", rs.Analysis.Files[0].Classes[0].Name)
}

type fakeProvider struct {
	text string
	err  error
}

func (f *fakeProvider) GenerateContent(ctx context.Context, req *llm.ContentRequest) (*llm.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ContentResponse{Text: f.text, Provider: llm.ProviderClaude, Model: "test-model", InputTokens: 10, OutputTokens: 20}, nil
}

func (f *fakeProvider) Type() llm.ProviderType { return llm.ProviderClaude }
func (f *fakeProvider) Close() error           { return nil }

func TestGenerateStageDocsOnly(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Analysis = &pipeline.AnalysisResult{Files: []pipeline.FileAnalysis{{Path: "greeter.go"}}}

	provider := &fakeProvider{text: "## Sample\n\nGenerated docs."}
	stage := Generate(provider, &common.LLMConfig{ReadmeCharBudget: 3000, OutputTokenBudget: 8000}, arbor.NewLogger())

	require.NoError(t, stage.Run(context.Background(), rs))
	require.NotNil(t, rs.Generate)
	assert.Equal(t, "## Sample\n\nGenerated docs.", rs.Generate.Markdown)
	assert.Empty(t, rs.Generate.CommentedFiles)
}

func TestGenerateStageRejectsHeadinglessOutput(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Analysis = &pipeline.AnalysisResult{Files: []pipeline.FileAnalysis{{Path: "greeter.go"}}}

	provider := &fakeProvider{text: "just a plain sentence, no heading at all"}
	stage := Generate(provider, &common.LLMConfig{ReadmeCharBudget: 3000, OutputTokenBudget: 8000}, arbor.NewLogger())

	err := stage.Run(context.Background(), rs)
	assert.Error(t, err)
}

func TestGenerateStageDocsPlusCommentsProducesPerFileOutput(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Variant = models.VariantDocsPlusComments
	rs.Analysis = &pipeline.AnalysisResult{Files: []pipeline.FileAnalysis{{Path: "greeter.go"}}}

	provider := &fakeProvider{text: "## Sample\n\nGenerated docs."}
	stage := Generate(provider, &common.LLMConfig{ReadmeCharBudget: 3000, OutputTokenBudget: 8000}, arbor.NewLogger())

	require.NoError(t, stage.Run(context.Background(), rs))
	require.Len(t, rs.Generate.CommentedFiles, 1)
	assert.Equal(t, "greeter.go", rs.Generate.CommentedFiles[0].Path)
	assert.Equal(t, sampleGoFile, rs.Generate.CommentedFiles[0].Original)
}

func newTestGateway(t *testing.T) artifactstore.Gateway {
	t.Helper()
	gw, err := artifactstore.NewBadgerGateway(&common.BadgerGatewayConfig{Path: filepath.Join(t.TempDir(), "artifacts")}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestPublishStageDocsOnlyWritesLocalAndArtifact(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Generate = &pipeline.GenerateResult{Markdown: "## Docs\n\nhello"}

	cfg := &common.PipelineConfig{PublishDir: t.TempDir()}
	stage := Publish(cfg, newTestGateway(t), arbor.NewLogger())

	require.NoError(t, stage.Run(context.Background(), rs))
	require.NotNil(t, rs.Publish)
	assert.FileExists(t, rs.Publish.LocalPath)
	assert.Contains(t, rs.Publish.ArtifactURL, "job-1")
	assert.Empty(t, rs.Publish.PullRequestURL)
	assert.Empty(t, rs.Publish.BundleURL)
}

func TestPublishStageDocsPlusCommentsFallsBackToBundleWithoutWriteAccess(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)
	rs.Variant = models.VariantDocsPlusComments
	rs.WriteAccessConfirmed = false
	rs.Generate = &pipeline.GenerateResult{
		Markdown:       "## Docs\n\nhello",
		CommentedFiles: []pipeline.CommentedFile{{Path: "greeter.go", Original: sampleGoFile, Commented: sampleGoFile}},
	}

	gw := newTestGateway(t)
	cfg := &common.PipelineConfig{PublishDir: t.TempDir()}
	stage := Publish(cfg, gw, arbor.NewLogger())

	require.NoError(t, stage.Run(context.Background(), rs))
	require.NotNil(t, rs.Publish)
	assert.Empty(t, rs.Publish.PullRequestURL)
	assert.NotEmpty(t, rs.Publish.BundleURL)

	data, err := gw.(*artifactstore.BadgerGateway).Get(context.Background(), "commented/job-1")
	require.NoError(t, err)
	var entries []bundleEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "greeter.go", entries[0].Path)
}

func TestCleanupRemovesWorkspaceDirectory(t *testing.T) {
	workspace := writeTestWorkspace(t)
	rs := newTestRunState(t, workspace)

	cleanup := Cleanup(arbor.NewLogger())
	require.NoError(t, cleanup(context.Background(), rs))

	_, err := os.Stat(workspace)
	assert.True(t, os.IsNotExist(err))
}
