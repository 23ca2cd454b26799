package stages

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/artifactstore"
	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/pipeline"
	"github.com/ternarybob/docugen/internal/services/llm"
)

// Build assembles the S1-S6 Pipeline from the configured stage timeouts
// (spec.md §4.5), wiring each stage to the already-constructed provider and
// gateway rather than letting stages build their own dependencies.
func Build(cfg *common.Config, provider llm.Provider, gateway artifactstore.Gateway, logger arbor.ILogger) *pipeline.Pipeline {
	fetchTimeout := common.ParseDurationOr(cfg.Pipeline.FetchTimeout, 0)
	scanTimeout := common.ParseDurationOr(cfg.Pipeline.ScanTimeout, 0)
	analyzeTimeout := common.ParseDurationOr(cfg.Pipeline.AnalyzeTimeout, 0)
	generateTimeout := common.ParseDurationOr(cfg.Pipeline.GenerateTimeout, 0)
	publishTimeout := common.ParseDurationOr(cfg.Pipeline.PublishTimeout, 0)

	fetchStage := Fetch(cfg.Pipeline.WorkspaceRoot, logger)
	fetchStage.Timeout = fetchTimeout

	scanStage := Scan(&cfg.Scanner, logger)
	scanStage.Timeout = scanTimeout

	analyzeStage := Analyze(&cfg.Analyzer, logger)
	analyzeStage.Timeout = analyzeTimeout

	generateStage := Generate(provider, &cfg.LLM, logger)
	generateStage.Timeout = generateTimeout

	publishStage := Publish(&cfg.Pipeline, gateway, logger)
	publishStage.Timeout = publishTimeout

	return pipeline.New(logger, Cleanup(logger), fetchStage, scanStage, analyzeStage, generateStage, publishStage)
}
