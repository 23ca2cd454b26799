package llm

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
)

// NewProvider builds the configured default Provider (LLMConfig.DefaultProvider),
// adapted from the teacher's ProviderFactory but narrowed to the single
// provider the Generate stage actually calls per run - the spec has no
// per-request provider override, unlike the teacher's per-model detection.
func NewProvider(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (Provider, error) {
	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, &cfg.LLM, logger)
	case common.LLMProviderGemini:
		return NewGeminiService(ctx, &cfg.Gemini, &cfg.LLM, logger)
	default:
		return nil, errs.New(errs.KindInternal, "unknown llm default_provider: "+string(cfg.LLM.DefaultProvider))
	}
}
