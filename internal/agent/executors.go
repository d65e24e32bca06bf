// File: internal/agent/executors.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/vault"
)

// actionHandler executes one resolved action against the page and returns any
// extracted data.
type actionHandler func(ctx context.Context, action schemas.Action) (string, error)

// Executor dispatches planned actions to the page. Variable references are
// resolved immediately before execution; observations carry the
// pre-substitution form and are redacted, so secret values stop here.
type Executor struct {
	page     schemas.Page
	vault    *vault.Vault
	cfg      config.BrowserConfig
	logger   *zap.Logger
	handlers map[schemas.ActionType]actionHandler
}

// NewExecutor creates an executor bound to one page and one vault.
func NewExecutor(page schemas.Page, v *vault.Vault, cfg config.BrowserConfig, logger *zap.Logger) *Executor {
	e := &Executor{
		page:     page,
		vault:    v,
		cfg:      cfg,
		logger:   logger.Named("executor"),
		handlers: make(map[schemas.ActionType]actionHandler),
	}
	e.registerHandlers()
	return e
}

// registerHandlers wires the page-facing actions. Terminate never reaches the
// executor; the loop consumes it.
func (e *Executor) registerHandlers() {
	e.handlers[schemas.ActionNavigate] = e.handleNavigate
	e.handlers[schemas.ActionClick] = e.handleClick
	e.handlers[schemas.ActionTypeText] = e.handleType
	e.handlers[schemas.ActionWait] = e.handleWait
	e.handlers[schemas.ActionExtract] = e.handleExtract
}

// Execute runs one action and reports the outcome as an observation. It never
// returns an error; failures are encoded in the observation so the planner
// can react to them.
func (e *Executor) Execute(ctx context.Context, action schemas.Action) schemas.Observation {
	resolved, err := e.vault.Substitute(action)
	if err != nil {
		var unknown *schemas.UnknownVariableError
		obs := schemas.Observation{
			Status:    schemas.ObservationFailure,
			ErrorCode: schemas.ErrCodeExecution,
		}
		if errors.As(err, &unknown) {
			obs.ErrorCode = schemas.ErrCodeUnknownVariable
			obs.ErrorDetails = fmt.Sprintf("undeclared variable: %s", unknown.Name)
		} else {
			obs.ErrorDetails = e.vault.Redact(err.Error())
		}
		e.logger.Warn("Action rejected before execution.",
			zap.String("action_type", string(action.Type)),
			zap.String("error_code", obs.ErrorCode))
		return e.withPageState(ctx, obs)
	}

	handler, ok := e.handlers[action.Type]
	if !ok {
		return e.withPageState(ctx, schemas.Observation{
			Status:       schemas.ObservationFailure,
			ErrorCode:    schemas.ErrCodeExecution,
			ErrorDetails: fmt.Sprintf("no handler registered for action type: %s", action.Type),
		})
	}

	// Overlays from the previous observation come down before the page is
	// touched again.
	if e.cfg.VisualizeElements {
		if err := e.page.HighlightElements(ctx, nil); err != nil {
			e.logger.Debug("Could not clear element overlays.", zap.Error(err))
		}
	}

	stepCtx := ctx
	if e.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.cfg.StepTimeout)
		defer cancel()
	}

	data, err := e.runWithRetry(stepCtx, handler, action, resolved)
	if err != nil {
		errorCode, details := e.classifyError(err, action)
		e.logger.Warn("Action execution failed.",
			zap.String("action_type", string(action.Type)),
			zap.String("error_code", errorCode),
			zap.Error(err))
		return e.withPageState(ctx, schemas.Observation{
			Status:       schemas.ObservationFailure,
			ErrorCode:    errorCode,
			ErrorDetails: details,
		})
	}

	return e.withPageState(ctx, schemas.Observation{
		Status: schemas.ObservationSuccess,
		Data:   e.vault.Redact(data),
	})
}

// runWithRetry executes the handler, retrying element-gated actions while the
// selector has not yet rendered. Attempts beyond the budget convert into an
// ElementNotFoundError, which the loop treats as terminal.
func (e *Executor) runWithRetry(ctx context.Context, handler actionHandler, action, resolved schemas.Action) (string, error) {
	attempts := 1
	if retryableAction(action) {
		attempts = e.cfg.ElementAttempts
		if attempts < 1 {
			attempts = 1
		}
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := handler(ctx, resolved)
		if err == nil {
			return data, nil
		}

		code, _ := e.classifyError(err, action)
		if code != schemas.ErrCodeElementNotFound || ctx.Err() != nil {
			return "", err
		}
		if attempt < attempts {
			e.logger.Debug("Element not yet rendered, retrying.",
				zap.String("selector", action.Selector),
				zap.Int("attempt", attempt))
		}
	}

	return "", &schemas.ElementNotFoundError{Selector: action.Selector, Attempts: attempts}
}

// retryableAction reports whether the action waits on a selector and so may
// legitimately fail while the element has not rendered yet.
func retryableAction(action schemas.Action) bool {
	if action.Selector == "" {
		return false
	}
	switch action.Type {
	case schemas.ActionClick, schemas.ActionTypeText, schemas.ActionWait, schemas.ActionExtract:
		return true
	default:
		return false
	}
}

// classifyError maps raw browser errors onto stable error codes. Heuristic by
// necessity: chromedp reports failures as strings. Details are redacted and
// reference the pre-substitution selector only.
func (e *Executor) classifyError(err error, action schemas.Action) (string, string) {
	var notFound *schemas.ElementNotFoundError
	if errors.As(err, &notFound) {
		return schemas.ErrCodeElementNotFound,
			fmt.Sprintf("no element matched selector %q after %d attempts", action.Selector, notFound.Attempts)
	}

	errStr := e.vault.Redact(err.Error())
	switch {
	case strings.Contains(errStr, "no element found") || strings.Contains(errStr, "selector"):
		return schemas.ErrCodeElementNotFound, errStr
	case strings.Contains(errStr, "net::ERR"):
		return schemas.ErrCodeNavigation, errStr
	case strings.Contains(errStr, "timed out") || strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return schemas.ErrCodeTimeout, errStr
	default:
		return schemas.ErrCodeExecution, errStr
	}
}

// withPageState attaches a redacted page summary to the observation. Summary
// failures are logged and leave the observation usable; the planner then sees
// the last known page state in the transcript instead.
func (e *Executor) withPageState(ctx context.Context, obs schemas.Observation) schemas.Observation {
	summary, err := e.page.Summarize(ctx)
	if err != nil {
		e.logger.Debug("Could not summarize page after action.", zap.Error(err))
		return obs
	}
	obs.Page = e.redactSummary(summary)

	if e.cfg.VisualizeElements && len(obs.Page.Elements) > 0 {
		if err := e.page.HighlightElements(ctx, obs.Page.Elements); err != nil {
			e.logger.Debug("Could not draw element overlays.", zap.Error(err))
		}
	}
	return obs
}

// redactSummary strips secret values from every text field the page may echo
// back, including a typed secret resurfacing in the DOM.
func (e *Executor) redactSummary(summary schemas.PageSummary) schemas.PageSummary {
	summary.URL = e.vault.Redact(summary.URL)
	summary.Title = e.vault.Redact(summary.Title)
	summary.TextExcerpt = e.vault.Redact(summary.TextExcerpt)
	for i := range summary.Elements {
		summary.Elements[i].Text = e.vault.Redact(summary.Elements[i].Text)
	}
	return summary
}

// -- Action Handlers --

func (e *Executor) handleNavigate(ctx context.Context, action schemas.Action) (string, error) {
	return "", e.page.Navigate(ctx, action.URL)
}

func (e *Executor) handleClick(ctx context.Context, action schemas.Action) (string, error) {
	return "", e.page.Click(ctx, action.Selector)
}

func (e *Executor) handleType(ctx context.Context, action schemas.Action) (string, error) {
	return "", e.page.Type(ctx, action.Selector, action.Value)
}

func (e *Executor) handleWait(ctx context.Context, action schemas.Action) (string, error) {
	if action.Selector != "" {
		return "", e.page.WaitVisible(ctx, action.Selector)
	}
	return "", e.page.Sleep(ctx, action.DurationMS)
}

func (e *Executor) handleExtract(ctx context.Context, action schemas.Action) (string, error) {
	if action.Attribute != "" {
		return e.page.ExtractAttribute(ctx, action.Selector, action.Attribute)
	}
	return e.page.ExtractText(ctx, action.Selector)
}
