// Package runner orchestrates probe executions: resolve the probe,
// obtain the run-mode plan, consult the preflight classifier, execute
// the probe (external process or hermetic wasm), and turn its emission
// into a validated boundary record. Probes run one process each and are
// order-independent; the orchestrator is safe for concurrent use.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/resolve"
	"github.com/fenceline/fenceline/domain/runmode"
	"github.com/fenceline/fenceline/infrastructure/wazero"
)

// runConfig holds configuration for the Orchestrator.
type runConfig struct {
	workspaceRoot string
	timeout       time.Duration
	stack         map[string]any
	wasmRunner    *wazero.Runner
	baseEnv       []string
	appender      Appender
	now           func() time.Time
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
		baseEnv: os.Environ(),
		now:     time.Now,
	}
}

// Option configures the Orchestrator.
type Option func(*runConfig)

// WithWorkspaceRoot declares the writable workspace for runs and
// preflight checks.
func WithWorkspaceRoot(root string) Option {
	return func(c *runConfig) {
		c.workspaceRoot = root
	}
}

// WithTimeout bounds one probe execution.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithStack attaches the environment snapshot stamped into records.
func WithStack(stack map[string]any) Option {
	return func(c *runConfig) {
		c.stack = stack
	}
}

// WithWASMRunner enables the wasm-isolated mode backend.
func WithWASMRunner(r *wazero.Runner) Option {
	return func(c *runConfig) {
		c.wasmRunner = r
	}
}

// WithBaseEnv replaces the inherited process environment; useful for
// hermetic tests.
func WithBaseEnv(env []string) Option {
	return func(c *runConfig) {
		c.baseEnv = env
	}
}

// Appender receives each record as it is produced; the corpus store
// implements it.
type Appender interface {
	Append(rec *entities.BoundaryRecord) error
}

// WithAppender forwards every produced record to an append-only sink.
func WithAppender(a Appender) Option {
	return func(c *runConfig) {
		c.appender = a
	}
}

// Request describes one probe run.
type Request struct {
	// ProbeID is the probe identifier handed to the resolver; the
	// probe's declared name must equal its file name.
	ProbeID string

	// Declaration is the probe's declared identity and capability ids.
	Declaration entities.ProbeDeclaration

	// Mode is the run-mode name; validated against the registry.
	Mode string

	// EnvOverrides merge over the mode's sandbox env, caller winning.
	EnvOverrides map[string]string

	// Operation is the single action the probe will perform, used by
	// preflight classification and synthesized records.
	Operation entities.Operation
}

// Orchestrator runs probes against the sandbox under observation.
type Orchestrator struct {
	resolver *resolve.Resolver
	config   runConfig
}

// NewOrchestrator creates an Orchestrator using the given probe
// resolver.
func NewOrchestrator(resolver *resolve.Resolver, opts ...Option) *Orchestrator {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{resolver: resolver, config: cfg}
}

// Run executes one probe under the named mode and returns the validated
// boundary record. A sandbox denial is a successful run with a denied
// classification; only harness-level failures (unknown mode, resolution
// failure, append failure) surface as errors.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*entities.BoundaryRecord, error) {
	plan, err := runmode.PlanFor(req.Mode, req.EnvOverrides)
	if err != nil {
		return nil, err
	}

	path, err := o.resolver.Resolve(req.ProbeID)
	if err != nil {
		return nil, err
	}

	// Preflight classifies only after the probe itself resolves: a
	// missing or uncontained probe is a harness error, not a sandbox
	// observation.
	if plan.Preflight != nil {
		if verdict := plan.Preflight(req.Operation, o.config.workspaceRoot); verdict != nil {
			rec := o.synthesize(req, plan, verdict)
			return rec, o.emit(rec)
		}
	}

	env := mergedEnv(plan, o.config)
	var outcome *wazero.Result
	if plan.ModeName == runmode.ModeWASMIsolated {
		if o.config.wasmRunner == nil {
			return nil, &domerr.ExecError{Command: path, Err: errors.New("wasm runner not configured")}
		}
		outcome, err = o.runWASM(ctx, path, env)
	} else {
		outcome, err = o.runProcess(ctx, plan.Command(path), env)
	}
	if err != nil {
		return nil, err
	}

	rec := o.classify(req, plan, path, outcome)
	return rec, o.emit(rec)
}

func (o *Orchestrator) runProcess(ctx context.Context, argv []string, env map[string]string) (*wazero.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(append([]string(nil), o.config.baseEnv...), flatten(env)...)
	if o.config.workspaceRoot != "" {
		cmd.Dir = o.config.workspaceRoot
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := o.config.now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &wazero.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// A nonzero probe exit is signal for classification, not a
			// harness failure.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, &domerr.ExecError{Command: argv[0], Err: err, Stderr: stderr.String()}
	}
	return result, nil
}

func (o *Orchestrator) runWASM(ctx context.Context, path string, env map[string]string) (*wazero.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.timeout)
	defer cancel()
	return o.config.wasmRunner.Run(ctx, path, env, o.config.workspaceRoot)
}

// classify turns a probe's raw outcome into the final record. Probes
// emit exactly one serialized record on stdout; anything else becomes an
// error-classified record so the run is still accounted for.
func (o *Orchestrator) classify(req Request, plan *entities.RunModePlan, path string, outcome *wazero.Result) *entities.BoundaryRecord {
	line := bytes.TrimSpace([]byte(outcome.Stdout))
	if rec, err := record.Parse(line); err == nil {
		if rec.Stack == nil && o.config.stack != nil {
			rec.Stack = o.config.stack
		}
		return rec
	}

	return record.Build(
		entities.ProbeRef{
			ID:                     req.Declaration.Name,
			Version:                req.Declaration.Version,
			PrimaryCapabilityID:    req.Declaration.PrimaryCapabilityID,
			SecondaryCapabilityIDs: req.Declaration.SecondaryCapabilityIDs,
		},
		entities.RunInfo{
			Mode:          plan.ModeName,
			WorkspaceRoot: o.config.workspaceRoot,
			Command:       plan.Command(path),
			ObservedAt:    o.config.now().UTC(),
		},
		req.Operation,
		entities.Outcome{
			ObservedResult: entities.ResultError,
			RawExitCode:    outcome.ExitCode,
			Message:        "probe emitted no valid boundary record",
			DurationMS:     outcome.Duration.Milliseconds(),
		},
		entities.Payload{
			StdoutSnippet: outcome.Stdout,
			StderrSnippet: outcome.Stderr,
		},
		record.WithStack(o.config.stack),
	)
}

// synthesize builds the record for a preflighted run: nothing executed,
// duration_ms still populated (zero), command empty.
func (o *Orchestrator) synthesize(req Request, plan *entities.RunModePlan, verdict *entities.PreflightVerdict) *entities.BoundaryRecord {
	return record.Build(
		entities.ProbeRef{
			ID:                     req.Declaration.Name,
			Version:                req.Declaration.Version,
			PrimaryCapabilityID:    req.Declaration.PrimaryCapabilityID,
			SecondaryCapabilityIDs: req.Declaration.SecondaryCapabilityIDs,
		},
		entities.RunInfo{
			Mode:          plan.ModeName,
			WorkspaceRoot: o.config.workspaceRoot,
			ObservedAt:    o.config.now().UTC(),
		},
		req.Operation,
		entities.Outcome{
			ObservedResult: verdict.Result,
			RawExitCode:    -1,
			Message:        verdict.Message,
			DurationMS:     0,
		},
		entities.Payload{},
		record.WithStack(o.config.stack),
	)
}

func (o *Orchestrator) emit(rec *entities.BoundaryRecord) error {
	if o.config.appender == nil {
		return nil
	}
	return o.config.appender.Append(rec)
}

func mergedEnv(plan *entities.RunModePlan, cfg runConfig) map[string]string {
	env := make(map[string]string, len(plan.SandboxEnvOverrides)+2)
	for k, v := range plan.SandboxEnvOverrides {
		env[k] = v
	}
	if cfg.workspaceRoot != "" {
		if _, set := env[runmode.EnvWorkspaceRoot]; !set {
			env[runmode.EnvWorkspaceRoot] = cfg.workspaceRoot
		}
	}
	if _, set := env[runmode.EnvRunMode]; !set {
		env[runmode.EnvRunMode] = plan.ModeName
	}
	return env
}

func flatten(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
