package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/catalog"
	"github.com/fenceline/fenceline/application/coverage"
	"github.com/fenceline/fenceline/domain/entities"
	"github.com/fenceline/fenceline/infrastructure/corpus"
)

var auditFlags struct {
	catalogPath  string
	corpusPath   string
	declarations string
	asJSON       bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Reconcile catalog, probe declarations, and record corpus",
	Long: `audit cross-checks three data sources: the capability catalog, the
set of probe-declared capability ids, and the corpus of emitted records.

Capability ids referenced anywhere but missing from the catalog are hard
errors. Catalog ids no probe exercises are warnings. Records whose probe
version or primary capability disagree with the current declarations and
catalog are reported as drift.`,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	cat, err := catalog.LoadFile(auditFlags.catalogPath)
	if err != nil {
		return err
	}

	declarations, err := loadDeclarations(auditFlags.declarations)
	if err != nil {
		return err
	}

	store := corpus.NewStore(corpus.WithPath(auditFlags.corpusPath))
	records, discarded, err := store.Load()
	if err != nil {
		return err
	}
	if discarded > 0 {
		slog.Warn("discarded incomplete trailing corpus line", "count", discarded)
	}

	report := coverage.Check(cat, declarations, records)
	if err := printReport(cmd, report); err != nil {
		return err
	}
	if len(report.HardErrors) > 0 {
		return fmt.Errorf("%d capability id(s) missing from the catalog", len(report.HardErrors))
	}
	return nil
}

func printReport(cmd *cobra.Command, report *coverage.Report) error {
	out := cmd.OutOrStdout()
	if auditFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if report.Clean() {
		fmt.Fprintln(out, "coverage: clean")
		return nil
	}
	for _, gap := range report.HardErrors {
		fmt.Fprintf(out, "error: %v\n", gap)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "warning: %s: %s\n", warning.CapabilityID, warning.Message)
	}
	for _, drift := range report.Drift {
		fmt.Fprintf(out, "drift: %s\n", drift.Message())
	}
	return nil
}

// loadDeclarations reads a JSON array of probe declarations; a missing
// file means no probes are declared yet.
func loadDeclarations(path string) ([]entities.ProbeDeclaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var declarations []entities.ProbeDeclaration
	if err := json.Unmarshal(data, &declarations); err != nil {
		return nil, fmt.Errorf("declarations file %s: %w", path, err)
	}
	return declarations, nil
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditFlags.catalogPath, "catalog", "", "capability catalog document (defaults to the configured path)")
	f.StringVar(&auditFlags.corpusPath, "corpus", "", "record corpus, one JSON record per line (defaults to the configured path)")
	f.StringVar(&auditFlags.declarations, "declarations", "probes/declarations.json", "JSON array of probe declarations")
	f.BoolVar(&auditFlags.asJSON, "json", false, "print the report as JSON")

	auditCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if auditFlags.catalogPath == "" {
			auditFlags.catalogPath = cfg.CatalogPath
		}
		if auditFlags.corpusPath == "" {
			auditFlags.corpusPath = cfg.CorpusPath
		}
	}

	rootCmd.AddCommand(auditCmd)
}
