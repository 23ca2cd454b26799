package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
)

// GeminiService implements Provider over google.golang.org/genai, adapted
// from the teacher's gemini_service.go / provider.go generateWithGemini.
type GeminiService struct {
	config *common.GeminiConfig
	logger arbor.ILogger
	client *genai.Client
	retry  *RetryConfig
}

func NewGeminiService(ctx context.Context, cfg *common.GeminiConfig, llmCfg *common.LLMConfig, logger arbor.ILogger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.KindModelUnavailable, "gemini api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindModelUnavailable, "creating gemini client", err)
	}

	baseDelay := common.ParseDurationOr(llmCfg.RetryBaseDelay, 45*time.Second)
	maxDelay := common.ParseDurationOr(llmCfg.RetryMaxDelay, 90*time.Second)

	return &GeminiService{
		config: cfg,
		logger: logger,
		client: client,
		retry:  NewRetryConfig(llmCfg.MaxRetries, baseDelay, maxDelay),
	}, nil
}

func (s *GeminiService) Type() ProviderType { return ProviderGemini }

func (s *GeminiService) Close() error { return nil }

func convertMessagesToGemini(messages []Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	var systemText string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, systemText, nil
}

func (s *GeminiService) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = s.config.Model
	}

	contents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "converting messages for gemini", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = s.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = s.client.Models.GenerateContent(ctx, model, contents, config)
		if apiErr == nil {
			break
		}
		if IsNonTransientError(apiErr) {
			return nil, errs.Wrap(errs.KindModelRefused, "gemini api call rejected, not retrying", apiErr)
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = s.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = s.retry.CalculateBackoff(attempt, 0)
		}

		s.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("retrying gemini api call")

		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindTimeout, "gemini retry wait canceled", ctx.Err())
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		kind := errs.KindModelUnavailable
		if IsRateLimitError(apiErr) {
			kind = errs.KindRateLimited
		}
		return nil, errs.Wrap(kind, fmt.Sprintf("gemini api call failed after %d retries", s.retry.MaxRetries), apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errs.New(errs.KindEmptyOutput, "empty response from gemini api")
	}
	text := resp.Text()
	if text == "" {
		return nil, errs.New(errs.KindEmptyOutput, "empty text in gemini response")
	}

	return &ContentResponse{
		Text:     text,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}
