// Package errors provides the harness error taxonomy. All error types
// support unwrapping via errors.As() and errors.Is(), and every core
// component returns these as values; callers decide what is fatal for
// their workflow.
package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/fenceline/fenceline/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for error types that can convert
// themselves to a structured ErrorDetail. New error types only need to
// implement this interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail,
// recognizing the harness error types and categorizing them.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// ValidationError reports that an instance failed structural validation.
// Findings are accumulated, never single-shot: every violating location
// gets its own path-tagged entry.
type ValidationError struct {
	// Subject names what was being validated ("catalog document",
	// "boundary record", ...).
	Subject    string
	Violations []entities.SchemaViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s failed validation", e.Subject)
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s failed validation: %s", e.Subject, strings.Join(parts, "; "))
}

// ToErrorDetail implements DetailedError.
func (e *ValidationError) ToErrorDetail() *entities.ErrorDetail {
	details := make(map[string]any, len(e.Violations))
	for _, v := range e.Violations {
		details[v.Path] = v.Message
	}
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: e.Subject, Details: details}
}

// MalformedSchemaError is a fatal evaluation error: the schema itself is
// unusable (unresolvable reference, impossible structure). Distinct in
// kind from a validation finding about an instance.
type MalformedSchemaError struct {
	// Pointer locates the broken schema node, when known.
	Pointer string
	Reason  string
}

func (e *MalformedSchemaError) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("malformed schema at %s: %s", e.Pointer, e.Reason)
	}
	return fmt.Sprintf("malformed schema: %s", e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *MalformedSchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "schema", Code: e.Pointer}
}

// DuplicateIDError reports two catalog entries colliding on one id.
// Both positions are named so the maintainer can find each entry.
type DuplicateIDError struct {
	ID          string
	FirstIndex  int
	SecondIndex int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate capability id %q: entries %d and %d", e.ID, e.FirstIndex, e.SecondIndex)
}

// ToErrorDetail implements DetailedError.
func (e *DuplicateIDError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "catalog", Code: e.ID}
}

// ContainmentError reports a probe identifier whose canonical path
// escapes the trusted probe root. Symlink escapes land here too.
type ContainmentError struct {
	Identifier string
	Resolved   string
	Root       string
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("probe %q resolves to %s, outside trusted root %s", e.Identifier, e.Resolved, e.Root)
}

// ToErrorDetail implements DetailedError.
func (e *ContainmentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "containment", Code: e.Identifier}
}

// NotFoundError reports a probe identifier with no candidate on disk.
type NotFoundError struct {
	Identifier string
	Tried      []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("probe %q not found (tried %s)", e.Identifier, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("probe %q not found", e.Identifier)
}

// ToErrorDetail implements DetailedError.
func (e *NotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "not_found", Code: e.Identifier, IsNotFound: true}
}

// UnknownModeError reports a run-mode name absent from the registry.
type UnknownModeError struct {
	Mode    string
	Allowed []string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown run mode %q (allowed: %s)", e.Mode, strings.Join(e.Allowed, ", "))
}

// ToErrorDetail implements DetailedError.
func (e *UnknownModeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "mode", Code: e.Mode}
}

// CoverageGapError is a hard coverage finding: a capability id referenced
// by a probe or record that the catalog does not define.
type CoverageGapError struct {
	CapabilityID string
	// ReferencedBy names the probe or record source of the reference.
	ReferencedBy string
}

func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("capability %q referenced by %s is absent from the catalog", e.CapabilityID, e.ReferencedBy)
}

// ToErrorDetail implements DetailedError.
func (e *CoverageGapError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "coverage", Code: e.CapabilityID}
}

// ExecError represents a probe process execution failure outside the
// sandbox signal itself (spawn failure, timeout). Sandbox denials are
// not errors: they are classified results.
type ExecError struct {
	Err      error
	Command  string
	Stderr   string
	ExitCode int
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to execute '%s': %v", e.Command, e.Err)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("command '%s' exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command '%s' exited with code %d", e.Command, e.ExitCode)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ExecError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "exec", Code: fmt.Sprintf("exit_%d", e.ExitCode)}
}

// ConfigError represents a harness configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
