package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/application/stack"
	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/runmode"
)

var emitFlags struct {
	mode         string
	probe        string
	probeVersion string
	capability   string
	secondary    []string
	category     string
	verb         string
	target       string
	args         string
	status       string
	errno        int
	message      string
	exitCode     int
	durationMS   int64
	stdoutText   string
	stderrText   string
	payload      string
	payloadFile  string
	command      []string
	noStack      bool
}

// emitCmd is the record-emission interface every probe calls: it turns
// flag-supplied observation fields into exactly one validated boundary
// record on stdout, and writes nothing else there.
var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Emit one validated boundary record to stdout",
	Long: `emit assembles a boundary record from the supplied observation
fields, validates it against the record schema, and prints the single
serialized record to standard output.

Probes call emit exactly once, as their only stdout write.`,
	RunE: runEmit,
}

func runEmit(cmd *cobra.Command, args []string) error {
	if _, err := runmode.PlanFor(emitFlags.mode, nil); err != nil {
		return err
	}
	result := entities.ObservedResult(emitFlags.status)
	if !result.Valid() {
		return fmt.Errorf("unknown status %q, want one of %v", emitFlags.status, entities.KnownObservedResults())
	}

	opArgs, err := decodeValues("args", emitFlags.args)
	if err != nil {
		return err
	}
	payload, fileErrno, err := loadPayload()
	if err != nil {
		return err
	}

	var errno *int
	if cmd.Flags().Changed("errno") {
		errno = &emitFlags.errno
	} else {
		errno = fileErrno
	}

	rec := record.Build(
		entities.ProbeRef{
			ID:                     emitFlags.probe,
			Version:                emitFlags.probeVersion,
			PrimaryCapabilityID:    emitFlags.capability,
			SecondaryCapabilityIDs: emitFlags.secondary,
		},
		entities.RunInfo{
			Mode:          emitFlags.mode,
			WorkspaceRoot: cfg.WorkspaceRoot,
			Command:       emitFlags.command,
			ObservedAt:    time.Now().UTC(),
		},
		entities.Operation{
			Category: entities.Category(emitFlags.category),
			Verb:     emitFlags.verb,
			Target:   emitFlags.target,
			Args:     opArgs,
		},
		entities.Outcome{
			ObservedResult: result,
			RawExitCode:    emitFlags.exitCode,
			Errno:          errno,
			Message:        emitFlags.message,
			DurationMS:     emitFlags.durationMS,
		},
		payload,
		stackOption(),
	)

	violations, err := record.Revalidate(rec)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &domerr.ValidationError{Subject: "boundary record", Violations: violations}
	}
	line, err := record.Serialize(rec)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return nil
}

func stackOption() record.BuildOption {
	if emitFlags.noStack {
		return record.WithStack(nil)
	}
	return record.WithStack(stack.Collect("SANDBOX_"))
}

func decodeValues(name, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", name, err)
	}
	return out, nil
}

// loadPayload assembles the record payload from the payload flags. A
// --payload-file holds the whole payload object: stdout_snippet,
// stderr_snippet, errno, and raw are lifted into their record fields,
// with explicit flags winning over file values. An object carrying none
// of those keys is kept intact as the raw map.
func loadPayload() (entities.Payload, *int, error) {
	payload := entities.Payload{
		StdoutSnippet: emitFlags.stdoutText,
		StderrSnippet: emitFlags.stderrText,
	}
	if emitFlags.payloadFile == "" {
		raw, err := decodeValues("payload", emitFlags.payload)
		if err != nil {
			return entities.Payload{}, nil, err
		}
		payload.Raw = raw
		return payload, nil, nil
	}

	data, err := os.ReadFile(emitFlags.payloadFile)
	if err != nil {
		return entities.Payload{}, nil, err
	}
	object, err := decodeValues("payload-file", string(data))
	if err != nil {
		return entities.Payload{}, nil, err
	}

	var errno *int
	known := false
	if s, ok := entities.GetString(object, "stdout_snippet"); ok {
		known = true
		if payload.StdoutSnippet == "" {
			payload.StdoutSnippet = s
		}
	}
	if s, ok := entities.GetString(object, "stderr_snippet"); ok {
		known = true
		if payload.StderrSnippet == "" {
			payload.StderrSnippet = s
		}
	}
	if n, ok := entities.GetInt(object, "errno"); ok {
		known = true
		errno = &n
	}
	if raw, ok := entities.GetMap(object, "raw"); ok {
		known = true
		payload.Raw = raw
	}
	if !known {
		payload.Raw = object
	}
	return payload, errno, nil
}

func init() {
	f := emitCmd.Flags()
	f.StringVar(&emitFlags.mode, "mode", runmode.ModeSandboxEnforce, "run mode the observation was made under")
	f.StringVar(&emitFlags.probe, "probe", "", "probe name (must equal the probe file name)")
	f.StringVar(&emitFlags.probeVersion, "probe-version", "1.0.0", "probe version")
	f.StringVar(&emitFlags.capability, "capability", "", "primary capability id under observation")
	f.StringSliceVar(&emitFlags.secondary, "secondary", nil, "secondary capability ids")
	f.StringVar(&emitFlags.category, "category", "", "operation category")
	f.StringVar(&emitFlags.verb, "verb", "", "operation verb")
	f.StringVar(&emitFlags.target, "target", "", "operation target")
	f.StringVar(&emitFlags.args, "args", "", "operation args as a JSON object")
	f.StringVar(&emitFlags.status, "status", "", "observed result: success, denied, partial, error")
	f.IntVar(&emitFlags.errno, "errno", 0, "errno observed, if any")
	f.StringVar(&emitFlags.message, "message", "", "human-readable outcome message")
	f.IntVar(&emitFlags.exitCode, "exit-code", 0, "raw exit code of the observed command")
	f.Int64Var(&emitFlags.durationMS, "duration-ms", 0, "observed duration in milliseconds")
	f.StringVar(&emitFlags.stdoutText, "stdout", "", "stdout snippet (truncated to the record cap)")
	f.StringVar(&emitFlags.stderrText, "stderr", "", "stderr snippet (truncated to the record cap)")
	f.StringVar(&emitFlags.payload, "payload", "", "probe-specific payload as a JSON object")
	f.StringVar(&emitFlags.payloadFile, "payload-file", "", "file holding the payload JSON object")
	f.StringSliceVar(&emitFlags.command, "command", nil, "command as executed")
	f.BoolVar(&emitFlags.noStack, "no-stack", false, "omit the environment snapshot")

	for _, required := range []string{"probe", "capability", "category", "verb", "status"} {
		_ = emitCmd.MarkFlagRequired(required)
	}
	emitCmd.MarkFlagsMutuallyExclusive("payload", "payload-file")

	rootCmd.AddCommand(emitCmd)
}
