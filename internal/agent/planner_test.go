// File: internal/agent/planner_test.go
package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/mocks"
)

func TestParseActionResponse(t *testing.T) {
	cases := []struct {
		name     string
		response string
		wantType schemas.ActionType
		wantErr  bool
	}{
		{
			name:     "FencedBlock",
			response: "```json\n{\"type\": \"navigate\", \"url\": \"https://example.com\"}\n```",
			wantType: schemas.ActionNavigate,
		},
		{
			name:     "FencedBlockWithoutLanguage",
			response: "```\n{\"type\": \"click\", \"selector\": \"#go\"}\n```",
			wantType: schemas.ActionClick,
		},
		{
			name:     "RawJSON",
			response: `{"type": "wait", "duration_ms": 100}`,
			wantType: schemas.ActionWait,
		},
		{
			name:     "ProseAroundObject",
			response: `Sure! The next action is {"type": "extract", "selector": "h1"} which reads the heading.`,
			wantType: schemas.ActionExtract,
		},
		{
			name:     "TerminateWithStatus",
			response: `{"type": "terminate", "status": "success", "reason": "done"}`,
			wantType: schemas.ActionTerminate,
		},
		{
			name:     "NoJSONAtAll",
			response: "I cannot decide on an action.",
			wantErr:  true,
		},
		{
			name:     "MissingType",
			response: `{"url": "https://example.com"}`,
			wantErr:  true,
		},
		{
			name:     "UnknownType",
			response: `{"type": "hover", "selector": "#menu"}`,
			wantErr:  true,
		},
		{
			name:     "NavigateWithoutURL",
			response: `{"type": "navigate"}`,
			wantErr:  true,
		},
		{
			name:     "TerminateWithBadStatus",
			response: `{"type": "terminate", "status": "maybe"}`,
			wantErr:  true,
		},
		{
			name:     "Empty",
			response: "",
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := parseActionResponse(tc.response)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, action.Type)
		})
	}
}

func TestPlanNextRepromptsWithRejectedOutput(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()

	var prompts []string
	llm.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.String(1)) }).
		Return("this is not an action", nil).Once()
	llm.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.String(1)) }).
		Return(`{"type": "navigate", "url": "https://example.com"}`, nil).Once()

	planner := NewPlanner(llm, 3, zaptest.NewLogger(t))
	action, err := planner.PlanNext(context.Background(), PlanInput{Command: "open example.com"})

	require.NoError(t, err)
	assert.Equal(t, schemas.ActionNavigate, action.Type)
	require.Len(t, prompts, 2)

	// The corrective prompt replays the rejected output and the parse error.
	assert.NotContains(t, prompts[0], "this is not an action")
	assert.Contains(t, prompts[1], "this is not an action")
	assert.Contains(t, prompts[1], "failed to unmarshal")

	mock.AssertExpectationsForObjects(t, llm)
}

func TestPlanNextExhaustsAttempts(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()
	llm.On("Complete", mock.Anything, mock.Anything).Return("garbage", nil).Times(3)

	planner := NewPlanner(llm, 3, zaptest.NewLogger(t))
	_, err := planner.PlanNext(context.Background(), PlanInput{Command: "do something"})

	var pf *schemas.PlanningFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 3, pf.Attempts)
	mock.AssertExpectationsForObjects(t, llm)
}

func TestPlanNextVariableNamesOnly(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()

	var captured string
	llm.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return(`{"type": "terminate", "status": "failure", "reason": "nothing to do"}`, nil).Once()

	planner := NewPlanner(llm, 3, zaptest.NewLogger(t))
	_, err := planner.PlanNext(context.Background(), PlanInput{
		Command:       "log in",
		VariableNames: []string{"password", "username"},
	})

	require.NoError(t, err)
	assert.Contains(t, captured, "password")
	assert.Contains(t, captured, "username")
	mock.AssertExpectationsForObjects(t, llm)
}

func TestPlanNextTransientProviderErrorRetries(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()
	llm.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("upstream 503")).Once()
	llm.On("Complete", mock.Anything, mock.Anything).
		Return(`{"type": "wait", "duration_ms": 50}`, nil).Once()

	planner := NewPlanner(llm, 3, zaptest.NewLogger(t))
	action, err := planner.PlanNext(context.Background(), PlanInput{Command: "pause"})

	require.NoError(t, err)
	assert.Equal(t, schemas.ActionWait, action.Type)
	mock.AssertExpectationsForObjects(t, llm)
}

func TestPlanNextContextCanceled(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	planner := NewPlanner(llm, 3, zaptest.NewLogger(t))
	_, err := planner.PlanNext(ctx, PlanInput{Command: "anything"})

	assert.ErrorIs(t, err, context.Canceled)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestPlanNextPromptContainsPageState(t *testing.T) {
	llm := &mocks.MockLLMClient{}
	llm.On("Name").Return("test-provider").Maybe()

	var captured string
	llm.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return(`{"type": "click", "selector": "#login"}`, nil).Once()

	planner := NewPlanner(llm, 1, zaptest.NewLogger(t))
	_, err := planner.PlanNext(context.Background(), PlanInput{
		Command: "log in",
		Page: schemas.PageSummary{
			URL:   "https://app.test/login",
			Title: "Sign in",
			Elements: []schemas.Element{
				{Index: 0, TagName: "button", ID: "login", Text: "Log in"},
			},
		},
	})

	require.NoError(t, err)
	assert.True(t, strings.Contains(captured, "https://app.test/login"))
	assert.True(t, strings.Contains(captured, `"id":"login"`))
	mock.AssertExpectationsForObjects(t, llm)
}
