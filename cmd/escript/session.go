package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"escript/internal/observ"
	"escript/internal/prof"
	"escript/internal/trace"
)

// session holds what PersistentPreRunE sets up. main tears it down after
// the command returns, whether or not it failed.
type session struct {
	tracer    trace.Tracer
	heartbeat *trace.Heartbeat
	profiler  *prof.Session
	timer     *observ.Timer
}

var current session

func startSession(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	cpu, _ := flags.GetString("cpu-profile")
	mem, _ := flags.GetString("mem-profile")
	rt, _ := flags.GetString("runtime-trace")
	profiler, err := prof.Start(prof.Config{CPU: cpu, Mem: mem, Trace: rt})
	if err != nil {
		return err
	}
	current.profiler = profiler

	if timings, _ := flags.GetBool("timings"); timings {
		current.timer = observ.NewTimer()
	}
	if err := setupTracing(cmd); err != nil {
		stopSession(cmd)
		return err
	}
	return nil
}

func stopSession(cmd *cobra.Command) {
	if current.heartbeat != nil {
		current.heartbeat.Stop()
	}
	if current.tracer != nil {
		if err := current.tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := current.tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	if err := current.profiler.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
	}
	current = session{}
}

// setupTracing attaches the tracer described by the trace flags to the
// command context.
func setupTracing(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	output, _ := flags.GetString("trace")
	levelStr, _ := flags.GetString("trace-level")
	modeStr, _ := flags.GetString("trace-mode")
	ringSize, _ := flags.GetInt("trace-ring-size")
	heartbeat, _ := flags.GetDuration("trace-heartbeat")

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone means phase-level tracing.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return err
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	current.tracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	if heartbeat > 0 {
		current.heartbeat = trace.StartHeartbeat(tracer, heartbeat)
	}
	return nil
}

type colorMode string

const (
	colorAuto colorMode = "auto"
	colorOn   colorMode = "on"
	colorOff  colorMode = "off"
)

func readColorMode(value string) (colorMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return colorAuto, nil
	case "on", "always":
		return colorOn, nil
	case "off", "never":
		return colorOff, nil
	}
	return "", fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
}

// useColor resolves --color for output written to f.
func useColor(cmd *cobra.Command, f *os.File) bool {
	value, _ := cmd.Root().PersistentFlags().GetString("color")
	mode, err := readColorMode(value)
	if err != nil {
		return false
	}
	switch mode {
	case colorOn:
		return true
	case colorOff:
		return false
	}
	return isTerminal(f)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
