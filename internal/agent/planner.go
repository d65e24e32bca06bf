// File: internal/agent/planner.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/llmutil"
)

// PlanInput is everything the planner may look at when choosing the next
// action. Variable names are listed; values never are.
type PlanInput struct {
	Command       string
	VariableNames []string
	History       []schemas.TranscriptEntry
	Page          schemas.PageSummary
}

// Planner turns session state into the next action by querying an LLM and
// parsing its reply. Malformed replies are corrected by re-prompting with the
// rejected output and the parse error, up to a bounded number of attempts.
type Planner struct {
	client   schemas.LLMClient
	attempts int
	logger   *zap.Logger
}

// NewPlanner creates a planner. attempts caps LLM calls per step; values
// below 1 are raised to 1.
func NewPlanner(client schemas.LLMClient, attempts int, logger *zap.Logger) *Planner {
	if attempts < 1 {
		attempts = 1
	}
	return &Planner{
		client:   client,
		attempts: attempts,
		logger:   logger.Named("planner"),
	}
}

// PlanNext produces one valid action or a *schemas.PlanningFailureError after
// the attempt budget is spent.
func (p *Planner) PlanNext(ctx context.Context, in PlanInput) (schemas.Action, error) {
	var lastErr error
	var lastRaw string

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return schemas.Action{}, err
		}

		prevErrText := ""
		if lastErr != nil {
			prevErrText = lastErr.Error()
		}
		userPrompt, err := buildUserPrompt(in.Command, in.VariableNames, in.History, in.Page, lastRaw, prevErrText)
		if err != nil {
			return schemas.Action{}, err
		}

		response, err := p.client.Complete(ctx, systemPrompt+"\n\n"+userPrompt)
		if err != nil {
			if ctx.Err() != nil {
				return schemas.Action{}, err
			}
			p.logger.Warn("LLM completion failed during planning.",
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = err
			lastRaw = ""
			continue
		}

		action, err := parseActionResponse(response)
		if err != nil {
			p.logger.Warn("Rejected planner response, re-prompting.",
				zap.Int("attempt", attempt),
				zap.String("provider", p.client.Name()),
				zap.Error(err))
			lastErr = err
			lastRaw = response
			continue
		}

		p.logger.Debug("Planned next action.",
			zap.String("action_type", string(action.Type)),
			zap.Int("attempt", attempt))
		return action, nil
	}

	return schemas.Action{}, &schemas.PlanningFailureError{Attempts: p.attempts, LastErr: lastErr}
}

// parseActionResponse extracts a single action from the LLM's response,
// tolerating fenced code blocks, surrounding prose, or raw JSON, and holds
// the result against the action schema.
func parseActionResponse(response string) (schemas.Action, error) {
	action, err := llmutil.ParseJSONResponse[schemas.Action](response)
	if err != nil {
		return schemas.Action{}, err
	}
	if err := action.Validate(); err != nil {
		return schemas.Action{}, fmt.Errorf("action failed validation: %w", err)
	}
	return *action, nil
}
