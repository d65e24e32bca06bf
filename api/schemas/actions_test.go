// File: api/schemas/actions_test.go
package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// TestActionValidate exercises the per-variant rules the planner's parser
// enforces before an action may reach the executor.
func TestActionValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		action  schemas.Action
		wantErr string
	}{
		{
			name:   "ValidNavigate",
			action: schemas.Action{Type: schemas.ActionNavigate, URL: "https://example.com"},
		},
		{
			name:    "NavigateMissingURL",
			action:  schemas.Action{Type: schemas.ActionNavigate},
			wantErr: "non-empty url",
		},
		{
			name:    "NavigateBlankURL",
			action:  schemas.Action{Type: schemas.ActionNavigate, URL: "   "},
			wantErr: "non-empty url",
		},
		{
			name:   "ValidClick",
			action: schemas.Action{Type: schemas.ActionClick, Selector: "button[type=submit]"},
		},
		{
			name:    "ClickMissingSelector",
			action:  schemas.Action{Type: schemas.ActionClick},
			wantErr: "non-empty selector",
		},
		{
			name:   "ValidType",
			action: schemas.Action{Type: schemas.ActionTypeText, Selector: "#user", Value: "{{username}}"},
		},
		{
			name:    "TypeMissingValue",
			action:  schemas.Action{Type: schemas.ActionTypeText, Selector: "#user"},
			wantErr: "requires a value",
		},
		{
			name:   "ValidWaitSelector",
			action: schemas.Action{Type: schemas.ActionWait, Selector: ".results"},
		},
		{
			name:   "ValidWaitDuration",
			action: schemas.Action{Type: schemas.ActionWait, DurationMS: 500},
		},
		{
			name:    "WaitWithNeither",
			action:  schemas.Action{Type: schemas.ActionWait},
			wantErr: "selector or a positive duration_ms",
		},
		{
			name:    "WaitNegativeDuration",
			action:  schemas.Action{Type: schemas.ActionWait, DurationMS: -100},
			wantErr: "selector or a positive duration_ms",
		},
		{
			name:   "ExtractWithoutSelectorMeansTitle",
			action: schemas.Action{Type: schemas.ActionExtract},
		},
		{
			name:   "ValidTerminateSuccess",
			action: schemas.Action{Type: schemas.ActionTerminate, Status: "success"},
		},
		{
			name:   "ValidTerminateFailure",
			action: schemas.Action{Type: schemas.ActionTerminate, Status: "failure", Reason: "login blocked"},
		},
		{
			name:    "TerminateBadStatus",
			action:  schemas.Action{Type: schemas.ActionTerminate, Status: "done"},
			wantErr: "terminate action requires status",
		},
		{
			name:    "MissingType",
			action:  schemas.Action{URL: "https://example.com"},
			wantErr: "missing the required type field",
		},
		{
			name:    "UnknownType",
			action:  schemas.Action{Type: "hover"},
			wantErr: "unknown action type",
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.action.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
