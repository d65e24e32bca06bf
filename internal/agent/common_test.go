// File: internal/agent/common_test.go
package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/mocks"
	"github.com/xkilldash9x/pilot-cli/internal/vault"
)

// testSetup holds the components a single agent test works with.
type testSetup struct {
	llm   *mocks.MockLLMClient
	page  *mocks.MockPage
	vault *vault.Vault
	agent *Agent

	agentCfg   config.AgentConfig
	browserCfg config.BrowserConfig
}

type setupOption func(*testSetup)

func withSecrets(secrets map[string]string) setupOption {
	return func(s *testSetup) { s.vault = vault.New(secrets) }
}

func withAgentConfig(cfg config.AgentConfig) setupOption {
	return func(s *testSetup) { s.agentCfg = cfg }
}

func withBrowserConfig(cfg config.BrowserConfig) setupOption {
	return func(s *testSetup) { s.browserCfg = cfg }
}

// setup builds an agent over mock LLM and page with tight test defaults.
func setup(t *testing.T, command string, opts ...setupOption) *testSetup {
	t.Helper()

	s := &testSetup{
		llm:   &mocks.MockLLMClient{},
		page:  &mocks.MockPage{},
		vault: vault.New(nil),
		agentCfg: config.AgentConfig{
			MaxSteps:            20,
			PlanAttempts:        3,
			StagnationThreshold: 3,
			SessionTimeout:      time.Minute,
			TranscriptWindow:    8,
		},
		browserCfg: config.BrowserConfig{
			ElementAttempts: 3,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := zaptest.NewLogger(t)
	s.llm.On("Name").Return("test-provider").Maybe()

	planner := NewPlanner(s.llm, s.agentCfg.PlanAttempts, logger)
	executor := NewExecutor(s.page, s.vault, s.browserCfg, logger)
	s.agent = NewAgent("sess-test", command, planner, executor, s.vault, s.agentCfg, logger)

	t.Cleanup(func() {
		mock.AssertExpectationsForObjects(t, s.llm, s.page)
	})
	return s
}

// expectSummary wires an unconditional page summary response.
func (s *testSetup) expectSummary(summary schemas.PageSummary) {
	s.page.On("Summarize", mock.Anything).Return(summary, nil).Maybe()
}

// planJSON queues one planner response, already wrapped in a fenced block the
// way chat models usually answer.
func (s *testSetup) planJSON(body string) {
	s.llm.On("Complete", mock.Anything, mock.Anything).Return("```json\n"+body+"\n```", nil).Once()
}
