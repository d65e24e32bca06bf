// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/llmutil"
	"github.com/xkilldash9x/pilot-cli/internal/observability"
	"github.com/xkilldash9x/pilot-cli/internal/service"
)

// pollInterval is how often the one-shot runner samples session status.
const pollInterval = 250 * time.Millisecond

// newRunCmd creates the `run` command: a single synchronous session whose
// transcript is printed when it finishes. The exit code follows the terminal
// status: 0 completed, 1 failed, 130 aborted.
func newRunCmd() *cobra.Command {
	var (
		vars  []string
		model string
	)

	runCmd := &cobra.Command{
		Use:   `run "<command>"`,
		Short: "Run one natural-language browser session and print its transcript",
		Example: `  pilot run "open https://example.com and read the page title"
  pilot run "log in to the portal" --var username=alice --var password=s3cr3t
  pilot run "check the dashboard" --model openai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			variables, err := parseVariables(vars)
			if err != nil {
				return err
			}

			components, err := service.NewComponents(config.Get(), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			id, err := components.Sessions.Start(ctx, schemas.StartSessionRequest{
				Command:   args[0],
				Variables: variables,
				Model:     model,
			})
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}

			status, err := waitForOutcome(ctx, components.Sessions, id)
			if err != nil {
				return err
			}

			printTranscript(cmd.OutOrStdout(), status)

			switch status.Status {
			case schemas.StatusCompleted:
				return nil
			case schemas.StatusAborted:
				return &ExitError{Code: 130, Message: "session aborted"}
			default:
				return &ExitError{Code: 1, Message: fmt.Sprintf("session failed (%s)", status.Reason)}
			}
		},
	}

	runCmd.Flags().StringArrayVar(&vars, "var", nil, "session variable as name=value; repeatable, values never appear in output")
	runCmd.Flags().StringVar(&model, "model", "", `model to plan with ("openai" selects OpenAI, anything else Anthropic)`)
	return runCmd
}

// parseVariables turns repeated --var name=value flags into the session's
// variable map. Values may contain '='; names may not be empty.
func parseVariables(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	variables := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q, expected name=value", pair)
		}
		variables[name] = value
	}
	return variables, nil
}

// waitForOutcome polls the session until it reaches a terminal status. A
// canceled context requests a cooperative stop and keeps polling until the
// in-flight step has wound down.
func waitForOutcome(ctx context.Context, sessions schemas.SessionService, id string) (schemas.SessionStatusResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		status, err := sessions.Status(id)
		if err != nil {
			return schemas.SessionStatusResponse{}, err
		}
		if status.Status.Terminal() {
			return status, nil
		}

		select {
		case <-ticker.C:
		case <-done:
			if err := sessions.Cancel(id); err != nil {
				return schemas.SessionStatusResponse{}, err
			}
			// From here on only the ticker drives the loop; the session
			// winds down on its own.
			done = nil
		}
	}
}

// printTranscript renders the session outcome and its step record. Actions
// are stored pre-substitution and observations are redacted at source, so
// the output is safe to show.
func printTranscript(w io.Writer, status schemas.SessionStatusResponse) {
	fmt.Fprintf(w, "session %s: %s", status.SessionID, status.Status)
	if status.Reason != "" {
		fmt.Fprintf(w, " (%s)", status.Reason)
	}
	fmt.Fprintln(w)

	for _, entry := range status.Transcript {
		fmt.Fprintf(w, "%3d. %-9s %s\n", entry.Step, entry.Action.Type, describeTranscriptEntry(entry))
	}
}

func describeTranscriptEntry(entry schemas.TranscriptEntry) string {
	var b strings.Builder
	switch entry.Action.Type {
	case schemas.ActionNavigate:
		b.WriteString(entry.Action.URL)
	case schemas.ActionClick, schemas.ActionTypeText, schemas.ActionExtract:
		b.WriteString(entry.Action.Selector)
	case schemas.ActionWait:
		if entry.Action.Selector != "" {
			b.WriteString(entry.Action.Selector)
		} else {
			fmt.Fprintf(&b, "%dms", entry.Action.DurationMS)
		}
	case schemas.ActionTerminate:
		fmt.Fprintf(&b, "%s: %s", entry.Action.Status, entry.Action.Reason)
	}

	fmt.Fprintf(&b, " -> %s", entry.Observation.Status)
	if entry.Observation.ErrorCode != "" {
		fmt.Fprintf(&b, " [%s]", entry.Observation.ErrorCode)
	}
	if entry.Observation.Data != "" {
		fmt.Fprintf(&b, " %q", llmutil.Truncate(entry.Observation.Data, 80))
	}
	return b.String()
}
