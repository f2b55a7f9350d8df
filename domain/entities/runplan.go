package entities

// PreflightVerdict is a static prediction that an operation's outcome is
// certain regardless of sandbox state. The orchestrator synthesizes the
// verdict into a record instead of executing the probe, so environmental
// failures are never miscounted as sandbox signal.
type PreflightVerdict struct {
	// Result is the synthesized classification: ResultDenied or
	// ResultPartial.
	Result ObservedResult

	// Message explains why execution was short-circuited.
	Message string
}

// PreflightFunc inspects a planned operation and returns a verdict when
// the outcome is certain, or nil when the probe must actually run.
type PreflightFunc func(op Operation, workspaceRoot string) *PreflightVerdict

// RunModePlan is the execution plan for one named run mode. Plans are
// defined statically per mode and looked up, never mutated, by name;
// PlanFor returns a copy with caller overrides merged in.
type RunModePlan struct {
	// ModeName is the registry key, from the closed mode set.
	ModeName string

	// DefaultEnabled marks modes included when a caller asks for the
	// default mode sweep.
	DefaultEnabled bool

	// SandboxEnvOverrides are environment variables applied to the probe
	// process to put the sandbox under test into this mode.
	SandboxEnvOverrides map[string]string

	// CommandTemplate shapes the probe invocation, with "{probe}"
	// standing for the resolved probe path.
	CommandTemplate []string

	// Preflight, when non-nil, may short-circuit execution with a
	// synthetic classification.
	Preflight PreflightFunc
}

// Command expands the plan's command template for the given resolved
// probe path.
func (p *RunModePlan) Command(probePath string) []string {
	cmd := make([]string, len(p.CommandTemplate))
	for i, part := range p.CommandTemplate {
		if part == "{probe}" {
			cmd[i] = probePath
			continue
		}
		cmd[i] = part
	}
	return cmd
}
