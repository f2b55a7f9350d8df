package runmode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/runmode"
)

func TestPlanFor_UnknownMode(t *testing.T) {
	_, err := runmode.PlanFor("bogus-mode", nil)
	require.Error(t, err)

	var ume *domerr.UnknownModeError
	require.ErrorAs(t, err, &ume)
	assert.Equal(t, "bogus-mode", ume.Mode)
	assert.Equal(t, runmode.AllowedModeNames(), ume.Allowed)
}

func TestPlanFor_EnforceDefaults(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeSandboxEnforce, nil)
	require.NoError(t, err)

	assert.Equal(t, runmode.ModeSandboxEnforce, plan.ModeName)
	assert.True(t, plan.DefaultEnabled)
	assert.Equal(t, map[string]string{
		"SANDBOX_MODE":          "enforce",
		"SANDBOX_ALLOW_NETWORK": "0",
		"SANDBOX_ALLOW_FORK":    "0",
	}, plan.SandboxEnvOverrides)
	assert.NotNil(t, plan.Preflight)
}

func TestPlanFor_CallerOverridesWin(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeSandboxEnforce, map[string]string{
		"SANDBOX_ALLOW_NETWORK": "1",
		runmode.EnvWorkspaceRoot: "/work",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", plan.SandboxEnvOverrides["SANDBOX_ALLOW_NETWORK"])
	assert.Equal(t, "/work", plan.SandboxEnvOverrides[runmode.EnvWorkspaceRoot])
	assert.Equal(t, "enforce", plan.SandboxEnvOverrides["SANDBOX_MODE"])
}

func TestPlanFor_ReturnsCopies(t *testing.T) {
	a, err := runmode.PlanFor(runmode.ModeUnsandboxed, map[string]string{"EXTRA": "1"})
	require.NoError(t, err)
	b, err := runmode.PlanFor(runmode.ModeUnsandboxed, nil)
	require.NoError(t, err)

	_, leaked := b.SandboxEnvOverrides["EXTRA"]
	assert.False(t, leaked, "overrides must never mutate the registry")
	assert.NotSame(t, a, b)
}

func TestModeNames(t *testing.T) {
	assert.Equal(t, []string{
		runmode.ModeSandboxEnforce,
		runmode.ModeSandboxPermissive,
		runmode.ModeUnsandboxed,
		runmode.ModeWASMIsolated,
	}, runmode.AllowedModeNames())

	assert.Equal(t, []string{
		runmode.ModeSandboxEnforce,
		runmode.ModeUnsandboxed,
	}, runmode.DefaultModeNames())
}

func TestCommandTemplate_Expansion(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeUnsandboxed, nil)
	require.NoError(t, err)
	cmd := plan.Command("/repo/probes/fs/fs_tmp_write.sh")
	assert.Equal(t, []string{"/bin/sh", "-eu", "/repo/probes/fs/fs_tmp_write.sh"}, cmd)
}

func TestPreflight_EnforcedFilesystemContainment(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeSandboxEnforce, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		op   entities.Operation
		want *entities.ObservedResult
	}{
		{
			"write outside workspace",
			entities.Operation{Category: entities.CategoryFilesystem, Verb: "write", Target: "/etc/passwd"},
			ptr(entities.ResultDenied),
		},
		{
			"delete outside workspace",
			entities.Operation{Category: entities.CategoryFilesystem, Verb: "delete", Target: "/var/log/syslog"},
			ptr(entities.ResultDenied),
		},
		{
			"write inside workspace",
			entities.Operation{Category: entities.CategoryFilesystem, Verb: "write", Target: "/work/out.txt"},
			nil,
		},
		{
			"relative target stays inside",
			entities.Operation{Category: entities.CategoryFilesystem, Verb: "write", Target: "out.txt"},
			nil,
		},
		{
			"rename destination in args escapes workspace",
			entities.Operation{
				Category: entities.CategoryFilesystem, Verb: "rename", Target: "/work/a.txt",
				Args: map[string]any{"path": "/tmp/a.txt"},
			},
			ptr(entities.ResultDenied),
		},
		{
			"extra paths in args escape workspace",
			entities.Operation{
				Category: entities.CategoryFilesystem, Verb: "write", Target: "/work/a.txt",
				Args: map[string]any{"paths": []any{"/work/b.txt", "/etc/hosts"}},
			},
			ptr(entities.ResultDenied),
		},
		{
			"args paths all inside workspace",
			entities.Operation{
				Category: entities.CategoryFilesystem, Verb: "write", Target: "/work/a.txt",
				Args: map[string]any{"path": "/work/b.txt", "paths": []any{"/work/c.txt"}},
			},
			nil,
		},
		{
			"read is never preflighted",
			entities.Operation{Category: entities.CategoryFilesystem, Verb: "read", Target: "/etc/passwd"},
			nil,
		},
		{
			"non-filesystem category passes through",
			entities.Operation{Category: entities.CategoryProcess, Verb: "fork", Target: "self"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := plan.Preflight(tt.op, "/work")
			if tt.want == nil {
				assert.Nil(t, verdict)
				return
			}
			require.NotNil(t, verdict)
			assert.Equal(t, *tt.want, verdict.Result)
			assert.NotEmpty(t, verdict.Message)
		})
	}
}

func TestPreflight_HermeticDeniesNetwork(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeWASMIsolated, nil)
	require.NoError(t, err)

	verdict := plan.Preflight(entities.Operation{
		Category: entities.CategoryNetwork,
		Verb:     "connect",
		Target:   "93.184.216.34:443",
	}, "/work")
	require.NotNil(t, verdict)
	assert.Equal(t, entities.ResultDenied, verdict.Result)
}

func TestPreflight_NoWorkspaceRootSkips(t *testing.T) {
	plan, err := runmode.PlanFor(runmode.ModeSandboxEnforce, nil)
	require.NoError(t, err)

	verdict := plan.Preflight(entities.Operation{
		Category: entities.CategoryFilesystem, Verb: "write", Target: "/etc/passwd",
	}, "")
	assert.Nil(t, verdict)
}

func ptr(r entities.ObservedResult) *entities.ObservedResult {
	return &r
}
