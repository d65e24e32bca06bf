// File: internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/vault"
)

// Agent runs the interaction loop for one session: plan an action, execute
// it, observe the outcome, repeat until a terminal condition. Termination is
// reached by a terminate action, the step budget, stagnation, the session
// deadline, a fatally absent element, planner failure, or a cancel request.
type Agent struct {
	id         string
	command    string
	planner    *Planner
	executor   *Executor
	vault      *vault.Vault
	transcript *Transcript
	cfg        config.AgentConfig
	logger     *zap.Logger

	state           atomic.Value
	cancelRequested atomic.Bool
}

// NewAgent assembles the loop for one session.
func NewAgent(id, command string, planner *Planner, executor *Executor, v *vault.Vault, cfg config.AgentConfig, logger *zap.Logger) *Agent {
	a := &Agent{
		id:         id,
		command:    command,
		planner:    planner,
		executor:   executor,
		vault:      v,
		transcript: NewTranscript(),
		cfg:        cfg,
		logger:     logger.Named("agent").With(zap.String("session_id", id)),
	}
	a.state.Store(StatePlanning)
	return a
}

// Cancel requests a cooperative stop. The in-flight step finishes; the loop
// observes the flag at the next observation boundary and terminates as
// aborted. Safe to call from any goroutine, any number of times.
func (a *Agent) Cancel() {
	a.cancelRequested.Store(true)
}

// State returns the loop's current phase.
func (a *Agent) State() State {
	return a.state.Load().(State)
}

// Transcript exposes the session's action/observation record.
func (a *Agent) Transcript() *Transcript {
	return a.transcript
}

func (a *Agent) setState(s State) {
	a.state.Store(s)
}

// Run drives the loop to termination and returns the outcome. The wall-clock
// deadline is independent of the step budget; whichever trips first ends the
// session.
func (a *Agent) Run(ctx context.Context) Result {
	a.logger.Info("Starting interaction loop.",
		zap.String("command", a.command),
		zap.Int("max_steps", a.cfg.MaxSteps),
		zap.Duration("session_timeout", a.cfg.SessionTimeout))

	sessionCtx := ctx
	if a.cfg.SessionTimeout > 0 {
		var cancel context.CancelFunc
		sessionCtx, cancel = context.WithTimeout(ctx, a.cfg.SessionTimeout)
		defer cancel()
	}

	// The planner starts blind; the first observation fills the page state.
	var page schemas.PageSummary

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		a.setState(StatePlanning)
		if a.cancelRequested.Load() {
			return a.finish(schemas.StatusAborted, schemas.ReasonCanceled)
		}
		if result, done := a.checkClock(sessionCtx); done {
			return result
		}

		action, err := a.planner.PlanNext(sessionCtx, PlanInput{
			Command:       a.command,
			VariableNames: a.vault.Names(),
			History:       a.transcript.Window(a.cfg.TranscriptWindow),
			Page:          page,
		})
		if err != nil {
			return a.planningFailure(sessionCtx, err)
		}

		if action.Type == schemas.ActionTerminate {
			return a.terminateRequested(action, page)
		}

		a.setState(StateExecuting)
		obs := a.executor.Execute(sessionCtx, action)

		a.setState(StateObserving)
		entry := a.transcript.Append(action, obs)
		page = obs.Page

		a.logger.Info("Step observed.",
			zap.Int("step", entry.Step),
			zap.String("action_type", string(action.Type)),
			zap.String("status", string(obs.Status)),
			zap.String("error_code", obs.ErrorCode))

		if a.cancelRequested.Load() {
			return a.finish(schemas.StatusAborted, schemas.ReasonCanceled)
		}
		if obs.ErrorCode == schemas.ErrCodeElementNotFound {
			return a.finish(schemas.StatusFailed, schemas.ReasonElementNotFound)
		}
		if run := a.transcript.TailSignatureRun(); run >= a.cfg.StagnationThreshold {
			a.logger.Warn("Loop is stagnating.", zap.Int("identical_steps", run))
			return a.finish(schemas.StatusFailed, schemas.ReasonStagnation)
		}
		if result, done := a.checkClock(sessionCtx); done {
			return result
		}
	}

	a.logger.Warn("Step budget exhausted.", zap.Int("max_steps", a.cfg.MaxSteps))
	return a.finish(schemas.StatusFailed, schemas.ReasonBudget)
}

// checkClock maps context expiry onto a termination: the session deadline
// yields a timeout failure, a canceled parent yields an abort.
func (a *Agent) checkClock(sessionCtx context.Context) (Result, bool) {
	err := sessionCtx.Err()
	if err == nil {
		return Result{}, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("Session deadline exceeded.")
		return a.finish(schemas.StatusFailed, schemas.ReasonTimeout), true
	}
	return a.finish(schemas.StatusAborted, schemas.ReasonCanceled), true
}

func (a *Agent) planningFailure(sessionCtx context.Context, err error) Result {
	var pf *schemas.PlanningFailureError
	if errors.As(err, &pf) {
		a.logger.Error("Planner exhausted its attempts.", zap.Int("attempts", pf.Attempts), zap.Error(pf.LastErr))
		return a.finish(schemas.StatusFailed, schemas.ReasonPlanning)
	}
	if result, done := a.checkClock(sessionCtx); done {
		return result
	}
	a.logger.Error("Planning failed.", zap.Error(err))
	return a.finish(schemas.StatusFailed, schemas.ReasonPlanning)
}

// terminateRequested records the terminate action as the final transcript
// entry and maps its declared status onto the session outcome.
func (a *Agent) terminateRequested(action schemas.Action, page schemas.PageSummary) Result {
	a.transcript.Append(action, schemas.Observation{
		Status: schemas.ObservationSuccess,
		Page:   page,
	})

	status := schemas.StatusCompleted
	if action.Status != "success" {
		status = schemas.StatusFailed
	}
	a.logger.Info("Planner requested termination.",
		zap.String("declared_status", action.Status),
		zap.String("reason", action.Reason))
	return a.finish(status, schemas.ReasonRequested)
}

func (a *Agent) finish(status schemas.SessionStatus, reason schemas.TerminationReason) Result {
	a.setState(StateTerminated)
	result := Result{
		Status: status,
		Reason: reason,
		Steps:  a.transcript.Len(),
	}
	a.logger.Info("Interaction loop terminated.",
		zap.String("status", string(status)),
		zap.String("reason", string(reason)),
		zap.Int("steps", result.Steps),
		zap.Time("finished_at", time.Now().UTC()))
	return result
}
