// Package runmode is the static registry of named execution plans. The
// mode set is closed: callers validate names through PlanFor or
// AllowedModeNames instead of discovering a typo at execution time.
//
// A plan may carry a preflight classifier. Preflight predicts outcomes
// that are certain regardless of sandbox state (for example a
// filesystem write targeting a path outside the declared workspace
// root), so the orchestrator synthesizes the classification instead of
// running the probe and miscounting an environmental failure as sandbox
// signal.
package runmode

import (
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
)

// The closed run-mode set.
const (
	// ModeUnsandboxed is the unmediated baseline: no sandbox env, every
	// observation reflects the bare host.
	ModeUnsandboxed = "unsandboxed"

	// ModeSandboxEnforce runs the probe under the sandbox in enforcing
	// configuration.
	ModeSandboxEnforce = "sandbox-enforce"

	// ModeSandboxPermissive runs the probe under the sandbox with
	// enforcement relaxed; useful for isolating profile mechanics from
	// policy decisions.
	ModeSandboxPermissive = "sandbox-permissive"

	// ModeWASMIsolated runs a wasm-compiled probe in-process under a
	// hermetic runtime with no host filesystem or network access.
	ModeWASMIsolated = "wasm-isolated"
)

// EnvWorkspaceRoot names the environment variable carrying the declared
// workspace root into probe processes.
const EnvWorkspaceRoot = "SANDBOX_WORKSPACE_ROOT"

// EnvRunMode names the environment variable carrying the run-mode name
// into probe processes, so their emitted records name the mode they
// actually ran under. Distinct from SANDBOX_MODE, which belongs to the
// sandbox's own vocabulary.
const EnvRunMode = "FENCELINE_RUN_MODE"

var table = map[string]entities.RunModePlan{
	ModeUnsandboxed: {
		ModeName:            ModeUnsandboxed,
		DefaultEnabled:      true,
		SandboxEnvOverrides: map[string]string{"SANDBOX_MODE": "off"},
		CommandTemplate:     []string{"/bin/sh", "-eu", "{probe}"},
	},
	ModeSandboxEnforce: {
		ModeName:       ModeSandboxEnforce,
		DefaultEnabled: true,
		SandboxEnvOverrides: map[string]string{
			"SANDBOX_MODE":          "enforce",
			"SANDBOX_ALLOW_NETWORK": "0",
			"SANDBOX_ALLOW_FORK":    "0",
		},
		CommandTemplate: []string{"/bin/sh", "-eu", "{probe}"},
		Preflight:       classifyEnforced,
	},
	ModeSandboxPermissive: {
		ModeName:       ModeSandboxPermissive,
		DefaultEnabled: false,
		SandboxEnvOverrides: map[string]string{
			"SANDBOX_MODE":          "permissive",
			"SANDBOX_ALLOW_NETWORK": "1",
			"SANDBOX_ALLOW_FORK":    "1",
		},
		CommandTemplate: []string{"/bin/sh", "-eu", "{probe}"},
	},
	ModeWASMIsolated: {
		ModeName:            ModeWASMIsolated,
		DefaultEnabled:      false,
		SandboxEnvOverrides: map[string]string{"SANDBOX_MODE": "wasm"},
		CommandTemplate:     []string{"{probe}"},
		Preflight:           classifyHermetic,
	},
}

// AllowedModeNames returns every registered mode name, sorted.
func AllowedModeNames() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultModeNames returns the modes included in a default sweep, sorted.
func DefaultModeNames() []string {
	var names []string
	for name, plan := range table {
		if plan.DefaultEnabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PlanFor returns a copy of the named plan with caller-supplied
// environment overrides merged in, caller values winning on conflict.
// Unknown names fail with *errors.UnknownModeError.
func PlanFor(modeName string, overrides map[string]string) (*entities.RunModePlan, error) {
	base, ok := table[modeName]
	if !ok {
		return nil, &domerr.UnknownModeError{Mode: modeName, Allowed: AllowedModeNames()}
	}

	env := make(map[string]string, len(base.SandboxEnvOverrides)+len(overrides))
	for k, v := range base.SandboxEnvOverrides {
		env[k] = v
	}
	for k, v := range overrides {
		env[k] = v
	}

	plan := base
	plan.SandboxEnvOverrides = env
	plan.CommandTemplate = append([]string(nil), base.CommandTemplate...)
	return &plan, nil
}

// mutating filesystem verbs covered by the workspace-containment rule
var writeVerbs = map[string]bool{
	"write":    true,
	"create":   true,
	"append":   true,
	"truncate": true,
	"delete":   true,
	"unlink":   true,
	"rename":   true,
	"mkdir":    true,
	"chmod":    true,
	"chown":    true,
}

// classifyEnforced short-circuits filesystem mutations aimed outside the
// declared workspace root: those fail regardless of sandbox state, so
// running the probe would only record an environmental artifact.
func classifyEnforced(op entities.Operation, workspaceRoot string) *entities.PreflightVerdict {
	if op.Category != entities.CategoryFilesystem || !writeVerbs[op.Verb] {
		return nil
	}
	if workspaceRoot == "" {
		return nil
	}
	for _, target := range writeTargets(op) {
		if !withinWorkspace(target, workspaceRoot) {
			return &entities.PreflightVerdict{
				Result:  entities.ResultDenied,
				Message: "filesystem " + op.Verb + " targets " + target + ", outside the workspace root",
			}
		}
	}
	return nil
}

// writeTargets gathers every path an operation touches: the primary
// target plus any extras the probe declared in args. Multi-path verbs
// like rename carry the destination under "path" or "paths".
func writeTargets(op entities.Operation) []string {
	targets := make([]string, 0, 2)
	if op.Target != "" {
		targets = append(targets, op.Target)
	}
	if path, ok := entities.GetString(op.Args, "path"); ok {
		targets = append(targets, path)
	}
	if paths, ok := entities.GetStringSlice(op.Args, "paths"); ok {
		targets = append(targets, paths...)
	}
	return targets
}

// classifyHermetic extends the enforced rules for the wasm runtime,
// which has no sockets at all: any network operation is denied before
// instantiation.
func classifyHermetic(op entities.Operation, workspaceRoot string) *entities.PreflightVerdict {
	if op.Category == entities.CategoryNetwork {
		return &entities.PreflightVerdict{
			Result:  entities.ResultDenied,
			Message: "the hermetic wasm runtime exposes no network surface",
		}
	}
	return classifyEnforced(op, workspaceRoot)
}

// withinWorkspace is a lexical check: the target may not exist yet, so
// the path is cleaned, not canonicalized. Relative targets resolve
// against the workspace root and are therefore inside it.
func withinWorkspace(target, root string) bool {
	if !filepath.IsAbs(target) {
		return true
	}
	cleanRoot := filepath.ToSlash(filepath.Clean(root))
	cleanTarget := filepath.ToSlash(filepath.Clean(target))
	if cleanTarget == cleanRoot {
		return true
	}
	ok, err := doublestar.Match(cleanRoot+"/**", cleanTarget)
	return err == nil && ok
}
