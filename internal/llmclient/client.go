// File: internal/llmclient/client.go

// Package llmclient provides the language-model completion clients the
// planner talks to. Every client implements schemas.LLMClient: one prompt
// in, the raw completion text out. Provider selection happens once, at
// session creation; clients are safe for concurrent use and shared across
// sessions.
package llmclient

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
)

// NewLimiter builds the shared outbound request limiter for one provider.
// A non-positive rate disables limiting.
func NewLimiter(cfg config.LLMConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
}

// NewClient is a factory function that creates an LLMClient for the given
// provider. The limiter may be shared between clients to bound the process's
// total call rate against one API.
func NewClient(provider config.Provider, cfg config.ProviderConfig, limiter *rate.Limiter, logger *zap.Logger) (schemas.LLMClient, error) {
	switch provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, limiter, logger)
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg, limiter, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			provider, config.ProviderOpenAI, config.ProviderAnthropic)
	}
}
