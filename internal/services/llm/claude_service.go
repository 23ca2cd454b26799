package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
)

// ClaudeService implements Provider over the Anthropic Claude API, adapted
// from the teacher's ClaudeService of the same name.
type ClaudeService struct {
	config *common.ClaudeConfig
	logger arbor.ILogger
	client anthropic.Client
	retry  *RetryConfig
}

func NewClaudeService(cfg *common.ClaudeConfig, llmCfg *common.LLMConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.KindModelUnavailable, "anthropic api key not configured")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	baseDelay := common.ParseDurationOr(llmCfg.RetryBaseDelay, 500*time.Millisecond)
	maxDelay := common.ParseDurationOr(llmCfg.RetryMaxDelay, 10*time.Second)

	return &ClaudeService{
		config: cfg,
		logger: logger,
		client: client,
		retry:  NewRetryConfig(llmCfg.MaxRetries, baseDelay, maxDelay),
	}, nil
}

func (s *ClaudeService) Type() ProviderType { return ProviderClaude }

func (s *ClaudeService) Close() error { return nil }

// convertMessagesToClaude mirrors the teacher's helper of the same name:
// system-role messages are pulled out for the System param, the rest become
// ordered user/assistant turns.
func convertMessagesToClaude(messages []Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	var systemText string
	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return claudeMessages, systemText, nil
}

func (s *ClaudeService) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = s.config.Model
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "converting messages for claude", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = s.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = s.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if IsNonTransientError(apiErr) {
			return nil, errs.Wrap(errs.KindModelRefused, "claude api call rejected, not retrying", apiErr)
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, 0)
		if IsRateLimitError(apiErr) {
			backoff = s.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		}

		s.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("retrying claude api call")

		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindTimeout, "claude retry wait canceled", ctx.Err())
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		kind := errs.KindModelUnavailable
		if IsRateLimitError(apiErr) {
			kind = errs.KindRateLimited
		}
		return nil, errs.Wrap(kind, fmt.Sprintf("claude api call failed after %d retries", s.retry.MaxRetries), apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errs.New(errs.KindEmptyOutput, "empty response from claude api")
	}

	return &ContentResponse{
		Text:         text.String(),
		Provider:     ProviderClaude,
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
