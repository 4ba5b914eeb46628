package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surveyor/internal/config"
	"surveyor/internal/trace"
)

var activeTracer trace.Tracer = trace.Nop

// setupTracing initializes the tracer from the merged [trace] settings and
// attaches it to the command context.
func setupTracing(cmd *cobra.Command, cfg config.TraceConfig) error {
	ringSize, err := cmd.Root().PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}

	// --trace without a level means phase tracing
	if level == trace.LevelOff && cfg.Output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}

	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: cfg.Output,
		RingSize:   ringSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return nil
}

// finishTracing flushes the tracer. A ring buffer is dumped to stderr when
// the command failed, which is what ring mode is for.
func finishTracing(failed bool) {
	tracer := activeTracer
	activeTracer = trace.Nop
	if ring, ok := trace.Ring(tracer); ok && failed {
		fmt.Fprintln(os.Stderr, "trace: last events before failure")
		if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
		}
	}
	if err := tracer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "trace: flush error: %v\n", err)
	}
	if err := tracer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
	}
}
