// Package config provides harness configuration, parsed from the
// environment and validated before anything runs.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	domerr "github.com/fenceline/fenceline/domain/errors"
)

// validate is a package-level singleton; constructing a validator per
// call is expensive.
var validate = validator.New()

// Harness is the process-level configuration every command starts from.
type Harness struct {
	// CatalogPath locates the capability catalog document.
	CatalogPath string `env:"FENCELINE_CATALOG" envDefault:"catalog/capabilities.json" validate:"required"`

	// ProbeRoot is the trusted probe tree; resolved probes must never
	// escape it.
	ProbeRoot string `env:"FENCELINE_PROBE_ROOT" envDefault:"probes" validate:"required"`

	// RepoRoot anchors relative probe identifiers.
	RepoRoot string `env:"FENCELINE_REPO_ROOT" envDefault:"." validate:"required"`

	// WorkspaceRoot is the directory runs declare as writable.
	WorkspaceRoot string `env:"FENCELINE_WORKSPACE_ROOT" envDefault:"." validate:"required"`

	// CorpusPath is the append-only record corpus (one JSON record per
	// line).
	CorpusPath string `env:"FENCELINE_CORPUS" envDefault:"observations/records.jsonl" validate:"required"`

	// DefaultMode is the run mode used when none is given.
	DefaultMode string `env:"FENCELINE_MODE" envDefault:"sandbox-enforce" validate:"required"`

	// ProbeTimeoutSeconds bounds one probe execution.
	ProbeTimeoutSeconds int `env:"FENCELINE_PROBE_TIMEOUT" envDefault:"30" validate:"gt=0,lte=600"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"FENCELINE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// FromEnv parses and validates the harness configuration from the
// process environment.
func FromEnv() (*Harness, error) {
	var cfg Harness
	if err := env.Parse(&cfg); err != nil {
		return nil, &domerr.ConfigError{Err: err}
	}
	if err := validate.Struct(&cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return nil, &domerr.ConfigError{Err: err, Field: verrs[0].Field()}
		}
		return nil, &domerr.ConfigError{Err: err}
	}
	return &cfg, nil
}
