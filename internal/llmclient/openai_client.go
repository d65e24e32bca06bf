// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pilot-cli/internal/config"
)

// OpenAIClient implements schemas.LLMClient on top of the official OpenAI
// chat-completions SDK. A custom endpoint makes it work against any
// OpenAI-compatible API.
type OpenAIClient struct {
	client  openai.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	config  config.ProviderConfig
}

// NewOpenAIClient initializes the client.
func NewOpenAIClient(cfg config.ProviderConfig, limiter *rate.Limiter, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(3),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.APITimeout))
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		limiter: limiter,
		config:  cfg,
		logger:  logger.Named("llm_client.openai"),
	}, nil
}

// Name identifies the provider for logging.
func (c *OpenAIClient) Name() string { return string(config.ProviderOpenAI) }

// Complete sends the prompt as a single user message and returns the model's
// text response. The SDK handles transient retries internally.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.config.MaxTokens))
	}

	startTime := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	duration := time.Since(startTime)
	if err != nil {
		return "", fmt.Errorf("openai completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	c.logger.Info("LLM generation complete (OpenAI)",
		zap.Duration("duration", duration),
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
