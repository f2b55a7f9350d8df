// Package testutil provides shared fixtures and assertions for harness tests.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/domain/entities"
)

// AssertJSONEqual compares two JSON documents for equality, ignoring
// formatting and key order.
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...any) {
	t.Helper()

	var expectedJSON, actualJSON any
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// SampleRecord builds a small valid boundary record: a denied
// filesystem write observed under sandbox-enforce.
func SampleRecord() *entities.BoundaryRecord {
	errno := 13
	return record.Build(
		entities.ProbeRef{
			ID:                  "fs_write_outside",
			Version:             "1.0.0",
			PrimaryCapabilityID: "fs_write_outside_workspace",
		},
		entities.RunInfo{
			Mode:          "sandbox-enforce",
			WorkspaceRoot: "/work",
			Command:       []string{"/bin/sh", "-eu", "fs_write_outside.sh"},
			ObservedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		entities.Operation{
			Category: "filesystem",
			Verb:     "write",
			Target:   "/etc/hosts",
		},
		entities.Outcome{
			ObservedResult: entities.ResultDenied,
			RawExitCode:    1,
			Errno:          &errno,
			Message:        "open /etc/hosts: permission denied",
			DurationMS:     7,
		},
		entities.Payload{StderrSnippet: "sh: /etc/hosts: Permission denied"},
	)
}

// SampleRecordLine serializes SampleRecord the way a probe emits it.
func SampleRecordLine(t *testing.T) []byte {
	t.Helper()
	line, err := record.Serialize(SampleRecord())
	require.NoError(t, err)
	return line
}

// SampleCatalogJSON is a minimal valid capability catalog document.
const SampleCatalogJSON = `{
  "scope": {
    "description": "capabilities under observation",
    "platforms": ["linux", "darwin"]
  },
  "docs": {
    "sandbox_guide": {
      "title": "Sandbox Guide",
      "url": "https://example.test/sandbox-guide"
    }
  },
  "capabilities": [
    {
      "id": "fs_write_outside_workspace",
      "platform": ["linux", "darwin"],
      "layer": "sandbox-policy",
      "category": "filesystem",
      "description": "Attempts to create or modify a file outside the declared workspace root.",
      "operations": {"deny": ["file-write-create", "file-write-data"]},
      "status": "core",
      "level": "high",
      "sources": [{"doc": "sandbox_guide", "section": "filesystem"}]
    },
    {
      "id": "proc_fork_allowed",
      "platform": ["linux"],
      "layer": "profile-mechanics",
      "category": "process",
      "description": "Spawns a child process and reports whether the sandbox permits it.",
      "operations": {"allow": ["process-fork"]},
      "status": "experimental",
      "level": "medium",
      "sources": [{"doc": "sandbox_guide", "section": "process"}]
    }
  ]
}`
