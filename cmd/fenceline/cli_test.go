package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/domain/entities"
	"github.com/fenceline/fenceline/domain/runmode"
	"github.com/fenceline/fenceline/infrastructure/corpus"
	"github.com/fenceline/fenceline/internal/testutil"
)

// resetFlags restores every changed flag on cmd and its subcommands to
// its default so flag values set by one test do not leak into the next
// through the shared rootCmd.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with the given arguments and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEmitProducesOneValidRecord(t *testing.T) {
	out, err := execute(t, "emit",
		"--mode", runmode.ModeSandboxEnforce,
		"--probe", "fs_write_outside",
		"--probe-version", "1.2.0",
		"--capability", "fs_write_outside_workspace",
		"--secondary", "proc_fork_allowed",
		"--category", "filesystem",
		"--verb", "write",
		"--target", "/etc/hosts",
		"--args", `{"flags": "O_CREAT"}`,
		"--status", "denied",
		"--errno", "13",
		"--message", "permission denied",
		"--exit-code", "1",
		"--duration-ms", "9",
		"--stderr", "sh: permission denied",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1, "emit must print exactly one record line")

	rec, err := record.Parse([]byte(lines[0]))
	require.NoError(t, err)
	assert.Equal(t, entities.SchemaVersion, rec.SchemaVersionTag)
	assert.Equal(t, "fs_write_outside", rec.Probe.ID)
	assert.Equal(t, "1.2.0", rec.Probe.Version)
	assert.Equal(t, entities.ResultDenied, rec.Result.ObservedResult)
	require.NotNil(t, rec.Result.Errno)
	assert.Equal(t, 13, *rec.Result.Errno)
	assert.Equal(t, "O_CREAT", rec.Operation.Args["flags"])
	assert.NotEmpty(t, rec.Stack, "emit stamps the environment snapshot")
}

func TestEmitPayloadFromFile(t *testing.T) {
	payload := writeFile(t, filepath.Join(t.TempDir(), "payload.json"), `{"listing": ["a", "b"]}`)

	out, err := execute(t, "emit",
		"--mode", runmode.ModeUnsandboxed,
		"--probe", "fs_list",
		"--capability", "fs_read_workspace",
		"--category", "filesystem",
		"--verb", "read",
		"--status", "success",
		"--payload-file", payload,
		"--no-stack",
	)
	require.NoError(t, err)

	rec, err := record.Parse([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, rec.Payload.Raw["listing"])
	assert.Nil(t, rec.Stack)
}

func TestEmitStructuredPayloadFile(t *testing.T) {
	payload := writeFile(t, filepath.Join(t.TempDir(), "payload.json"),
		`{"stdout_snippet": "wrote 0 bytes", "stderr_snippet": "EACCES", "errno": 13, "raw": {"syscall": "openat"}}`)

	out, err := execute(t, "emit",
		"--mode", runmode.ModeUnsandboxed,
		"--probe", "fs_escape",
		"--capability", "fs_write_outside_workspace",
		"--category", "filesystem",
		"--verb", "write",
		"--status", "denied",
		"--payload-file", payload,
		"--no-stack",
	)
	require.NoError(t, err)

	rec, err := record.Parse([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, "wrote 0 bytes", rec.Payload.StdoutSnippet)
	assert.Equal(t, "EACCES", rec.Payload.StderrSnippet)
	require.NotNil(t, rec.Result.Errno)
	assert.Equal(t, 13, *rec.Result.Errno)
	assert.Equal(t, "openat", rec.Payload.Raw["syscall"])
}

func TestEmitRejectsUnknownStatus(t *testing.T) {
	_, err := execute(t, "emit",
		"--probe", "p",
		"--capability", "c",
		"--category", "filesystem",
		"--verb", "read",
		"--status", "maybe",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe")
}

func TestEmitRejectsUnknownMode(t *testing.T) {
	_, err := execute(t, "emit",
		"--mode", "chroot-jail",
		"--probe", "p",
		"--capability", "c",
		"--category", "filesystem",
		"--verb", "read",
		"--status", "success",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chroot-jail")
}

func TestCatalogValidateAndList(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "capabilities.json"), testutil.SampleCatalogJSON)

	out, err := execute(t, "catalog", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid, 2 capabilities")

	out, err = execute(t, "catalog", "list", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fs_write_outside_workspace")
	assert.Contains(t, out, "sandbox-policy/filesystem")
	assert.Contains(t, out, "proc_fork_allowed")
}

func TestCatalogValidateRejectsBadDocument(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "bad.json"), `{"scope": {}, "docs": {}, "capabilities": []}`)

	_, err := execute(t, "catalog", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/scope")
}

func TestModesListsClosedSet(t *testing.T) {
	out, err := execute(t, "modes")
	require.NoError(t, err)

	for _, name := range runmode.AllowedModeNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "* "+runmode.ModeSandboxEnforce)
}

func TestAuditCleanCorpus(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFile(t, filepath.Join(dir, "capabilities.json"), testutil.SampleCatalogJSON)
	declPath := writeFile(t, filepath.Join(dir, "declarations.json"), `[
		{"name": "fs_write_outside", "version": "1.0.0", "primary_capability_id": "fs_write_outside_workspace"},
		{"name": "proc_fork", "version": "1.0.0", "primary_capability_id": "proc_fork_allowed"}
	]`)
	corpusPath := filepath.Join(dir, "records.jsonl")
	store := corpus.NewStore(corpus.WithPath(corpusPath))
	require.NoError(t, store.Append(testutil.SampleRecord()))

	resetAuditFlags()
	out, err := execute(t, "audit",
		"--catalog", catalogPath,
		"--corpus", corpusPath,
		"--declarations", declPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "coverage: clean")
}

func TestAuditMissingCapabilityIsHardError(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFile(t, filepath.Join(dir, "capabilities.json"), testutil.SampleCatalogJSON)
	declPath := writeFile(t, filepath.Join(dir, "declarations.json"), `[
		{"name": "ghost", "version": "1.0.0", "primary_capability_id": "cap_missing"}
	]`)

	resetAuditFlags()
	out, err := execute(t, "audit",
		"--catalog", catalogPath,
		"--corpus", filepath.Join(dir, "records.jsonl"),
		"--declarations", declPath,
	)
	require.Error(t, err)
	assert.Contains(t, out, "cap_missing")
}

func TestRunPrintsRecordWithoutAppending(t *testing.T) {
	dir := t.TempDir()
	probeRoot := filepath.Join(dir, "probes")
	line := testutil.SampleRecordLine(t)
	writeFile(t, filepath.Join(probeRoot, "fs_write_outside.sh"),
		"#!/bin/sh\nprintf '%s\\n' '"+string(line)+"'\n")
	require.NoError(t, os.Chmod(filepath.Join(probeRoot, "fs_write_outside.sh"), 0o755))

	t.Setenv("FENCELINE_PROBE_ROOT", probeRoot)
	t.Setenv("FENCELINE_REPO_ROOT", dir)
	t.Setenv("FENCELINE_WORKSPACE_ROOT", dir)
	t.Setenv("FENCELINE_CORPUS", filepath.Join(dir, "records.jsonl"))

	out, err := execute(t, "run", "fs_write_outside",
		"--mode", runmode.ModeUnsandboxed,
		"--capability", "fs_write_outside_workspace",
		"--category", "filesystem",
		"--verb", "write",
		"--target", "/etc/hosts",
		"--no-record",
	)
	require.NoError(t, err)

	rec, err := record.Parse([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, entities.ResultDenied, rec.Result.ObservedResult)
	assert.NoFileExists(t, filepath.Join(dir, "records.jsonl"))
}

// audit flag values persist between executions in the same process; the
// PreRun default fill only replaces empty values.
func resetAuditFlags() {
	auditFlags.catalogPath = ""
	auditFlags.corpusPath = ""
	auditFlags.declarations = "probes/declarations.json"
	auditFlags.asJSON = false
}
