package entities

import "time"

// SchemaVersion identifies the boundary record wire format. Parsers
// reject any record that does not carry exactly this value.
const SchemaVersion = "cfbo-v1"

// ObservedResult is the closed classification of a probed action's
// outcome. A denial is a valid classified outcome, not a harness error.
type ObservedResult string

const (
	// ResultSuccess indicates the mediated action completed.
	ResultSuccess ObservedResult = "success"

	// ResultDenied indicates the sandbox refused the action outright.
	ResultDenied ObservedResult = "denied"

	// ResultPartial indicates the action partly succeeded, or was
	// short-circuited by a preflight prediction.
	ResultPartial ObservedResult = "partial"

	// ResultError indicates the probe could not classify the action
	// (unexpected tool failure, timeout, malformed output).
	ResultError ObservedResult = "error"
)

// KnownObservedResults lists every valid ObservedResult value.
func KnownObservedResults() []ObservedResult {
	return []ObservedResult{ResultSuccess, ResultDenied, ResultPartial, ResultError}
}

// Valid reports whether r is a member of the closed enumeration.
func (r ObservedResult) Valid() bool {
	switch r {
	case ResultSuccess, ResultDenied, ResultPartial, ResultError:
		return true
	}
	return false
}

// ProbeRef identifies the probe that produced a record and the
// capability claims it exercises.
type ProbeRef struct {
	ID                     string   `json:"id"`
	Version                string   `json:"version"`
	PrimaryCapabilityID    string   `json:"primary_capability_id"`
	SecondaryCapabilityIDs []string `json:"secondary_capability_ids,omitempty"`
}

// RunInfo captures the execution context of one probe run.
type RunInfo struct {
	// Mode is a run-mode name from the closed registry set.
	Mode string `json:"mode"`

	// WorkspaceRoot is the directory the run declared as writable.
	WorkspaceRoot string `json:"workspace_root"`

	// Command is the command line as executed, one element per argv
	// entry. Empty for preflighted runs.
	Command []string `json:"command,omitempty"`

	// ObservedAt is when the observation was made.
	ObservedAt time.Time `json:"observed_at"`
}

// Operation describes the single mediated action a probe performed.
type Operation struct {
	Category Category       `json:"category"`
	Verb     string         `json:"verb"`
	Target   string         `json:"target"`
	Args     map[string]any `json:"args,omitempty"`
}

// Outcome carries the classified result fields of a probe run.
type Outcome struct {
	ObservedResult ObservedResult `json:"observed_result"`
	RawExitCode    int            `json:"raw_exit_code"`
	Errno          *int           `json:"errno,omitempty"`
	Message        string         `json:"message"`
	DurationMS     int64          `json:"duration_ms"`
	ErrorDetail    *ErrorDetail   `json:"error_detail,omitempty"`
}

// Payload carries the raw evidence behind a classification. Snippets are
// truncated by the record codec before assembly; Raw is an open blob for
// probe-specific detail.
type Payload struct {
	StdoutSnippet string         `json:"stdout_snippet"`
	StderrSnippet string         `json:"stderr_snippet"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// BoundaryRecord is one immutable, versioned observation of a single
// probed action and its classified outcome. Records are created once per
// probe execution and appended to a corpus; nothing mutates a record
// after emission.
type BoundaryRecord struct {
	SchemaVersionTag string         `json:"schema_version"`
	Stack            map[string]any `json:"stack,omitempty"`
	Probe            ProbeRef       `json:"probe"`
	Run              RunInfo        `json:"run"`
	Operation        Operation      `json:"operation"`
	Result           Outcome        `json:"result"`
	Payload          Payload        `json:"payload"`
}

// CapabilityIDs returns the primary capability id followed by any
// secondary ids, in declaration order.
func (r *BoundaryRecord) CapabilityIDs() []string {
	ids := make([]string, 0, 1+len(r.Probe.SecondaryCapabilityIDs))
	ids = append(ids, r.Probe.PrimaryCapabilityID)
	ids = append(ids, r.Probe.SecondaryCapabilityIDs...)
	return ids
}
