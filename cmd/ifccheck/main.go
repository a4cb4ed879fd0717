// Command ifccheck validates building models against the ontology shapes
// and writes the RDF graph and a conflict report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

// exitViolations is returned by validate --fail-on-violations when the model
// does not conform.
const exitViolations = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var ve violationsError
	if errors.As(err, &ve) {
		os.Exit(exitViolations)
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}
