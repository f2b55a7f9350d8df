// Package wazero executes wasm-compiled probes in-process under a
// hermetic runtime: no host filesystem beyond an optional workspace
// mount, no sockets, no clock drift between probe and harness. This is
// the execution backend for the wasm-isolated run mode.
package wazero

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// runnerConfig holds configuration for the Runner.
type runnerConfig struct {
	workspaceMount string
	outputLimit    int
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{
		// Guest path the workspace root is mounted at.
		workspaceMount: "/work",
		outputLimit:    1 << 20,
	}
}

// Option configures the Runner.
type Option func(*runnerConfig)

// WithWorkspaceMount sets the guest path the workspace root appears at.
func WithWorkspaceMount(guestPath string) Option {
	return func(c *runnerConfig) {
		c.workspaceMount = guestPath
	}
}

// WithOutputLimit caps captured stdout/stderr bytes.
func WithOutputLimit(limit int) Option {
	return func(c *runnerConfig) {
		c.outputLimit = limit
	}
}

// Result carries the raw outcome of one wasm probe execution: the same
// fields an external process would yield, classified by the caller.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes wasm probes. Stateless between runs; each Run gets a
// fresh runtime so probes cannot observe each other.
type Runner struct {
	config runnerConfig
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runner{config: cfg}
}

// Run loads and executes the wasm module at path. The env map becomes
// WASI environment variables; workspaceRoot, when non-empty, is the only
// host directory mounted. The context bounds execution: cancellation
// closes the runtime and the probe with it.
func (r *Runner) Run(ctx context.Context, path string, env map[string]string, workspaceRoot string) (*Result, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wasm probe: %w", err)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer runtime.Close(context.Background())

	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName(filepath.Base(path)).
		WithArgs(filepath.Base(path)).
		WithStdout(&limitWriter{w: &stdout, limit: r.config.outputLimit}).
		WithStderr(&limitWriter{w: &stderr, limit: r.config.outputLimit})

	for k, v := range env {
		modCfg = modCfg.WithEnv(k, v)
	}
	if workspaceRoot != "" {
		modCfg = modCfg.WithFSConfig(wazero.NewFSConfig().WithDirMount(workspaceRoot, r.config.workspaceMount))
	}

	start := time.Now()
	mod, runErr := runtime.InstantiateWithConfig(ctx, wasmBytes, modCfg)
	duration := time.Since(start)
	if mod != nil {
		mod.Close(context.Background())
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if runErr != nil {
		var exitErr *sys.ExitError
		if errors.As(runErr, &exitErr) {
			// A nonzero exit is probe signal, not a runtime failure.
			result.ExitCode = int(exitErr.ExitCode())
			return result, nil
		}
		return result, fmt.Errorf("instantiating wasm probe: %w", runErr)
	}
	return result, nil
}

// limitWriter caps bytes written, silently dropping the excess; probe
// output beyond the cap is noise the snippet truncation would cut
// anyway.
type limitWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	remaining := lw.limit - lw.w.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		lw.w.Write(p[:remaining])
		return len(p), nil
	}
	return lw.w.Write(p)
}
