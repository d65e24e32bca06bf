// File: cmd/pilot/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/pilot-cli/cmd"
	"github.com/xkilldash9x/pilot-cli/internal/observability"
)

const panicLogFile = "panic.log"

// Function variables injected so tests can observe writes and exits.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// Interrupt signals cancel the context; every long-running command
	// winds down cooperatively from there.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		osExit(cmd.ExitCode(err))
	}
}

// handlePanic writes a crash report with the stack trace before exiting, so
// a panic in a background loop is not lost with the process.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}

	observability.Sync()

	report := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "%s\n", report)
		osExit(1)
		return
	}

	fmt.Fprintf(os.Stderr, "crash detected; details logged to %s\n", panicLogFile)
	osExit(1)
}
