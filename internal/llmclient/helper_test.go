package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pilot-cli/internal/config"
)

// setupTestLogger returns a logger wired into the test's output.
func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// getValidProviderConfig provides a baseline provider configuration for tests.
func getValidProviderConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Model:       "test-model",
		APIKey:      "test-api-key-123",
		Temperature: 0.0,
		MaxTokens:   512,
		APITimeout:  10 * time.Second,
	}
}
