// File: internal/agent/executors_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/mocks"
	"github.com/xkilldash9x/pilot-cli/internal/vault"
)

type executorSetup struct {
	page     *mocks.MockPage
	vault    *vault.Vault
	executor *Executor
}

func setupExecutor(t *testing.T, secrets map[string]string, cfg config.BrowserConfig) *executorSetup {
	t.Helper()

	s := &executorSetup{
		page:  &mocks.MockPage{},
		vault: vault.New(secrets),
	}
	s.executor = NewExecutor(s.page, s.vault, cfg, zaptest.NewLogger(t))

	t.Cleanup(func() {
		mock.AssertExpectationsForObjects(t, s.page)
	})
	return s
}

func defaultBrowserCfg() config.BrowserConfig {
	return config.BrowserConfig{ElementAttempts: 3}
}

func TestExecuteNavigate(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())

	summary := schemas.PageSummary{URL: "https://example.com/", Title: "Example Domain"}
	s.page.On("Navigate", mock.Anything, "https://example.com").Return(nil).Once()
	s.page.On("Summarize", mock.Anything).Return(summary, nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type: schemas.ActionNavigate,
		URL:  "https://example.com",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	assert.Empty(t, obs.ErrorCode)
	assert.Equal(t, summary.Title, obs.Page.Title)
}

func TestExecuteUnknownVariable(t *testing.T) {
	s := setupExecutor(t, map[string]string{"username": "operator"}, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionTypeText,
		Selector: "#password",
		Value:    "{{password}}",
	})

	assert.Equal(t, schemas.ObservationFailure, obs.Status)
	assert.Equal(t, schemas.ErrCodeUnknownVariable, obs.ErrorCode)
	assert.Contains(t, obs.ErrorDetails, "password")
	s.page.AssertNotCalled(t, "Type", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteSubstitutionAtExecutionTime(t *testing.T) {
	s := setupExecutor(t, map[string]string{"token": "s3cr3t-value"}, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()

	// The page receives the concrete value; the observation never does.
	s.page.On("Type", mock.Anything, "#api-key", "s3cr3t-value").Return(nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionTypeText,
		Selector: "#api-key",
		Value:    "{{token}}",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	assert.NotContains(t, obs.Data, "s3cr3t-value")
	assert.NotContains(t, obs.ErrorDetails, "s3cr3t-value")
}

func TestExecuteElementRetrySucceeds(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()

	locateErr := fmt.Errorf("click failed: no element found for selector %q within 3s: context deadline exceeded", "#late")
	s.page.On("Click", mock.Anything, "#late").Return(locateErr).Twice()
	s.page.On("Click", mock.Anything, "#late").Return(nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionClick,
		Selector: "#late",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	s.page.AssertNumberOfCalls(t, "Click", 3)
}

func TestExecuteElementAttemptsExhausted(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()

	locateErr := fmt.Errorf("click failed: no element found for selector %q within 3s: context deadline exceeded", "#ghost")
	s.page.On("Click", mock.Anything, "#ghost").Return(locateErr).Times(3)

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionClick,
		Selector: "#ghost",
	})

	assert.Equal(t, schemas.ObservationFailure, obs.Status)
	assert.Equal(t, schemas.ErrCodeElementNotFound, obs.ErrorCode)
	assert.Contains(t, obs.ErrorDetails, "#ghost")
	assert.Contains(t, obs.ErrorDetails, "3 attempts")
}

func TestExecuteNonRetryableFailure(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()

	// A scripting failure is not a rendering race; no retry.
	s.page.On("Click", mock.Anything, "#broken").
		Return(errors.New("exception thrown in click handler")).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionClick,
		Selector: "#broken",
	})

	assert.Equal(t, schemas.ObservationFailure, obs.Status)
	assert.Equal(t, schemas.ErrCodeExecution, obs.ErrorCode)
	s.page.AssertNumberOfCalls(t, "Click", 1)
}

func TestExecuteErrorClassification(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "NavigationError",
			err:      errors.New("navigation failed: page load error net::ERR_NAME_NOT_RESOLVED"),
			wantCode: schemas.ErrCodeNavigation,
		},
		{
			name:     "TimeoutError",
			err:      errors.New("navigation timed out after 1m30s: context deadline exceeded"),
			wantCode: schemas.ErrCodeTimeout,
		},
		{
			name:     "ExecutionError",
			err:      errors.New("target crashed"),
			wantCode: schemas.ErrCodeExecution,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupExecutor(t, nil, defaultBrowserCfg())
			s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()
			s.page.On("Navigate", mock.Anything, "https://bad.invalid").Return(tc.err).Once()

			obs := s.executor.Execute(context.Background(), schemas.Action{
				Type: schemas.ActionNavigate,
				URL:  "https://bad.invalid",
			})

			assert.Equal(t, schemas.ObservationFailure, obs.Status)
			assert.Equal(t, tc.wantCode, obs.ErrorCode)
		})
	}
}

func TestExecuteExtractDataRedacted(t *testing.T) {
	s := setupExecutor(t, map[string]string{"token": "s3cr3t-value"}, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()
	s.page.On("ExtractText", mock.Anything, "#status").
		Return("active token: s3cr3t-value", nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:     schemas.ActionExtract,
		Selector: "#status",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	assert.Equal(t, "active token: [redacted:token]", obs.Data)
}

func TestExecuteSummaryRedacted(t *testing.T) {
	s := setupExecutor(t, map[string]string{"token": "s3cr3t-value"}, defaultBrowserCfg())

	leaky := schemas.PageSummary{
		Title:       "Dashboard for s3cr3t-value",
		TextExcerpt: "signed in with s3cr3t-value",
		Elements:    []schemas.Element{{Index: 0, TagName: "span", Text: "s3cr3t-value"}},
	}
	s.page.On("Summarize", mock.Anything).Return(leaky, nil).Once()
	s.page.On("Navigate", mock.Anything, "https://app.test").Return(nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type: schemas.ActionNavigate,
		URL:  "https://app.test",
	})

	assert.NotContains(t, obs.Page.Title, "s3cr3t-value")
	assert.NotContains(t, obs.Page.TextExcerpt, "s3cr3t-value")
	assert.NotContains(t, obs.Page.Elements[0].Text, "s3cr3t-value")
}

func TestExecuteWaitVariants(t *testing.T) {
	t.Run("DurationSleeps", func(t *testing.T) {
		s := setupExecutor(t, nil, defaultBrowserCfg())
		s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()
		s.page.On("Sleep", mock.Anything, 250).Return(nil).Once()

		obs := s.executor.Execute(context.Background(), schemas.Action{
			Type:       schemas.ActionWait,
			DurationMS: 250,
		})
		assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	})

	t.Run("SelectorWaitsVisible", func(t *testing.T) {
		s := setupExecutor(t, nil, defaultBrowserCfg())
		s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()
		s.page.On("WaitVisible", mock.Anything, "#spinner-done").Return(nil).Once()

		obs := s.executor.Execute(context.Background(), schemas.Action{
			Type:     schemas.ActionWait,
			Selector: "#spinner-done",
		})
		assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	})
}

func TestExecuteExtractAttribute(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())
	s.page.On("Summarize", mock.Anything).Return(schemas.PageSummary{}, nil).Once()
	s.page.On("ExtractAttribute", mock.Anything, "a.next", "href").
		Return("/page/2", nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type:      schemas.ActionExtract,
		Selector:  "a.next",
		Attribute: "href",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	assert.Equal(t, "/page/2", obs.Data)
}

func TestExecuteVisualizeElements(t *testing.T) {
	cfg := defaultBrowserCfg()
	cfg.VisualizeElements = true
	s := setupExecutor(t, nil, cfg)

	summary := schemas.PageSummary{
		Elements: []schemas.Element{{Index: 0, TagName: "button", X: 1, Y: 2, Width: 3, Height: 4}},
	}
	s.page.On("Summarize", mock.Anything).Return(summary, nil).Once()
	s.page.On("Navigate", mock.Anything, "https://app.test").Return(nil).Once()
	// Stale overlays come down before the action, fresh ones go up with the
	// new observation.
	s.page.On("HighlightElements", mock.Anything, []schemas.Element(nil)).Return(nil).Once()
	s.page.On("HighlightElements", mock.Anything, summary.Elements).Return(nil).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type: schemas.ActionNavigate,
		URL:  "https://app.test",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	s.page.AssertNumberOfCalls(t, "HighlightElements", 2)
}

func TestExecuteSummarizeFailureIsNonFatal(t *testing.T) {
	s := setupExecutor(t, nil, defaultBrowserCfg())
	s.page.On("Navigate", mock.Anything, "https://app.test").Return(nil).Once()
	s.page.On("Summarize", mock.Anything).
		Return(schemas.PageSummary{}, errors.New("target detached")).Once()

	obs := s.executor.Execute(context.Background(), schemas.Action{
		Type: schemas.ActionNavigate,
		URL:  "https://app.test",
	})

	assert.Equal(t, schemas.ObservationSuccess, obs.Status)
	assert.Empty(t, obs.Page.URL)
}
