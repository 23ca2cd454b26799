package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig is the shared backoff policy for both providers, adapted from
// the teacher's GeminiRetryConfig but generalized to also cover Claude.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewRetryConfig builds a RetryConfig from the R_model/backoff settings in
// LLMConfig (spec.md §4.6 "generate_doc tool" retry policy).
func NewRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    initialBackoff,
		MaxBackoff:        maxBackoff,
		BackoffMultiplier: 1.5,
	}
}

// IsRateLimitError reports whether err looks like a 429 / quota-exhausted
// response from either provider's SDK.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota")
}

// IsNonTransientError reports whether err is a terminal model error - a
// malformed request, an authentication failure, or a content-policy
// rejection - that retrying can never fix. These must surface immediately
// rather than pay the retry/backoff cost (spec.md §4.6 "non-transient model
// errors surface immediately").
func IsNonTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "invalid_request"),
		strings.Contains(msg, "invalid request"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "content_policy"),
		strings.Contains(msg, "content policy"),
		strings.Contains(msg, "safety"):
		return true
	default:
		return false
	}
}

var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses an API-suggested retry delay out of err's message,
// returning 0 when none is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the wait before the next attempt, preferring an
// API-provided delay over the configured initial backoff, capped at
// MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 2*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}
