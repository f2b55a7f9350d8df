package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/application/runner"
	"github.com/fenceline/fenceline/application/stack"
	"github.com/fenceline/fenceline/domain/entities"
	"github.com/fenceline/fenceline/domain/resolve"
	"github.com/fenceline/fenceline/infrastructure/corpus"
	"github.com/fenceline/fenceline/infrastructure/wazero"
)

var runFlags struct {
	mode         string
	probeVersion string
	capability   string
	secondary    []string
	category     string
	verb         string
	target       string
	args         string
	env          []string
	noRecord     bool
}

var runCmd = &cobra.Command{
	Use:   "run <probe-id>",
	Short: "Run one probe under a named mode and append its record",
	Long: `run resolves the probe inside the trusted probe tree, plans the
execution under the requested run mode, consults the mode's preflight
classifier, executes the probe, and appends the resulting boundary
record to the corpus.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	probeID := args[0]
	mode := runFlags.mode
	if mode == "" {
		mode = cfg.DefaultMode
	}

	opArgs, err := decodeValues("args", runFlags.args)
	if err != nil {
		return err
	}
	overrides, err := splitEnvPairs(runFlags.env)
	if err != nil {
		return err
	}

	opts := []runner.Option{
		runner.WithWorkspaceRoot(cfg.WorkspaceRoot),
		runner.WithTimeout(time.Duration(cfg.ProbeTimeoutSeconds) * time.Second),
		runner.WithStack(stack.Collect("SANDBOX_")),
		runner.WithWASMRunner(wazero.NewRunner()),
	}
	if !runFlags.noRecord {
		opts = append(opts, runner.WithAppender(corpus.NewStore(corpus.WithPath(cfg.CorpusPath))))
	}

	orch := runner.NewOrchestrator(
		resolve.NewResolver(cfg.ProbeRoot, resolve.WithRepoRoot(cfg.RepoRoot)),
		opts...,
	)

	rec, err := orch.Run(cmd.Context(), runner.Request{
		ProbeID: probeID,
		Declaration: entities.ProbeDeclaration{
			Name:                   probeID,
			Version:                runFlags.probeVersion,
			PrimaryCapabilityID:    runFlags.capability,
			SecondaryCapabilityIDs: runFlags.secondary,
		},
		Mode:         mode,
		EnvOverrides: overrides,
		Operation: entities.Operation{
			Category: entities.Category(runFlags.category),
			Verb:     runFlags.verb,
			Target:   runFlags.target,
			Args:     opArgs,
		},
	})
	if err != nil {
		return err
	}

	slog.Info("probe run classified",
		"probe", rec.Probe.ID,
		"mode", rec.Run.Mode,
		"observed_result", rec.Result.ObservedResult,
		"duration_ms", rec.Result.DurationMS)

	line, err := record.Serialize(rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return nil
}

func splitEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad env pair %q, want KEY=VALUE", pair)
		}
		out[key] = value
	}
	return out, nil
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.mode, "mode", "", "run mode (defaults to the configured mode)")
	f.StringVar(&runFlags.probeVersion, "probe-version", "1.0.0", "declared probe version")
	f.StringVar(&runFlags.capability, "capability", "", "declared primary capability id")
	f.StringSliceVar(&runFlags.secondary, "secondary", nil, "declared secondary capability ids")
	f.StringVar(&runFlags.category, "category", "", "planned operation category")
	f.StringVar(&runFlags.verb, "verb", "", "planned operation verb")
	f.StringVar(&runFlags.target, "target", "", "planned operation target")
	f.StringVar(&runFlags.args, "args", "", "planned operation args as a JSON object")
	f.StringSliceVar(&runFlags.env, "env", nil, "extra sandbox env overrides, KEY=VALUE")
	f.BoolVar(&runFlags.noRecord, "no-record", false, "print the record without appending it to the corpus")

	_ = runCmd.MarkFlagRequired("capability")
	_ = runCmd.MarkFlagRequired("category")
	_ = runCmd.MarkFlagRequired("verb")

	rootCmd.AddCommand(runCmd)
}
