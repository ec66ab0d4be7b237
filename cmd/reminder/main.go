// Command reminder runs a single reminder cycle and exits. It is meant to be
// invoked by an external timer; the exit code is non-zero when the cycle
// could not run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reviewreminder/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Scheduler.RunCycle(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		a.Log.Warn().Err(encErr).Msg("failed to write cycle report")
	}

	if err != nil {
		return fmt.Errorf("reminder cycle %s failed: %w", report.ID, err)
	}
	return nil
}
