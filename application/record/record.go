// Package record is the boundary record codec: it assembles observation
// records (applying the snippet truncation rule), serializes them with a
// deterministic key order, and parses emitted bytes back into typed
// records after a schema-version gate and structural validation.
//
// Records are immutable after Build; the corpus store appends them as
// whole lines and never rewrites one in place.
package record

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/schema"
)

const (
	// SnippetMaxChars is the cap applied to stdout/stderr snippets,
	// measured in characters so the rule is well-defined across
	// encodings.
	SnippetMaxChars = 400

	// TruncationMarker is appended to a snippet that was cut.
	TruncationMarker = "...[truncated]"
)

//go:embed schema.json
var rawSchema []byte

var compiledSchema = mustCompile()

func mustCompile() *schema.Schema {
	var raw map[string]any
	if err := json.Unmarshal(rawSchema, &raw); err != nil {
		panic(fmt.Sprintf("embedded record schema is not valid JSON: %v", err))
	}
	s, err := schema.Compile(raw, raw)
	if err != nil {
		panic(fmt.Sprintf("embedded record schema does not compile: %v", err))
	}
	return s
}

// BuildOption configures optional record fields.
type BuildOption func(*entities.BoundaryRecord)

// WithStack attaches the opaque environment/tooling snapshot.
func WithStack(stack map[string]any) BuildOption {
	return func(r *entities.BoundaryRecord) {
		r.Stack = stack
	}
}

// Build assembles a boundary record from its parts, stamping the schema
// version and truncating both payload snippets to the fixed cap.
func Build(probe entities.ProbeRef, run entities.RunInfo, op entities.Operation, result entities.Outcome, payload entities.Payload, opts ...BuildOption) *entities.BoundaryRecord {
	payload.StdoutSnippet = Truncate(payload.StdoutSnippet)
	payload.StderrSnippet = Truncate(payload.StderrSnippet)

	rec := &entities.BoundaryRecord{
		SchemaVersionTag: entities.SchemaVersion,
		Probe:            probe,
		Run:              run,
		Operation:        op,
		Result:           result,
		Payload:          payload,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Truncate cuts s to SnippetMaxChars characters and appends the
// truncation marker when a cut happened. Strings at or under the cap
// pass through unchanged.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= SnippetMaxChars {
		return s
	}
	return string(runes[:SnippetMaxChars]) + TruncationMarker
}

// Serialize renders a record as JSON with a deterministic key order:
// struct fields serialize in declaration order and map keys sort, so two
// logically equal records produce byte-identical output.
func Serialize(rec *entities.BoundaryRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// Parse decodes emitted bytes back into a typed record. The declared
// schema_version is checked first and an unrecognized value is a hard
// parse failure; the instance is then validated structurally before the
// typed view is exposed. Unknown keys are ignored and missing optional
// keys default, preserving forward compatibility.
func Parse(data []byte) (*entities.BoundaryRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing boundary record: %w", err)
	}

	version, _ := raw["schema_version"].(string)
	if version != entities.SchemaVersion {
		return nil, &domerr.ValidationError{
			Subject: "boundary record",
			Violations: []entities.SchemaViolation{{
				Path:    "/schema_version",
				Message: fmt.Sprintf("unrecognized schema version %q (want %q)", version, entities.SchemaVersion),
			}},
		}
	}

	if violations := compiledSchema.Validate(raw); len(violations) > 0 {
		return nil, &domerr.ValidationError{Subject: "boundary record", Violations: violations}
	}

	var rec entities.BoundaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding boundary record: %w", err)
	}
	if !rec.Result.ObservedResult.Valid() {
		// Unreachable once the schema passed, kept as a guard for
		// future schema edits.
		return nil, &domerr.ValidationError{
			Subject: "boundary record",
			Violations: []entities.SchemaViolation{{
				Path:    "/result/observed_result",
				Message: fmt.Sprintf("unknown observed result %q", rec.Result.ObservedResult),
			}},
		}
	}
	return &rec, nil
}

// Revalidate serializes and re-parses a record, returning the structural
// violations (if any) without the typed decode. Useful for checking a
// record assembled outside Build.
func Revalidate(rec *entities.BoundaryRecord) ([]entities.SchemaViolation, error) {
	data, err := Serialize(rec)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return compiledSchema.Validate(raw), nil
}
