// Package coverage reconciles the capability catalog, the ids probes
// declare, and the emitted record corpus, reporting drift between the
// three. Pure reporting: no side effects, safe to run repeatedly over an
// evolving corpus.
package coverage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fenceline/fenceline/application/catalog"
	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
)

// Warning is a soft finding: a catalog id no probe exercises. The claim
// stands uncorroborated but nothing is inconsistent.
type Warning struct {
	CapabilityID string
	Message      string
}

// Drift is a record that disagrees with the current catalog or probe
// declarations: the world moved after the record was emitted.
type Drift struct {
	// RecordIndex is the record's position in the corpus.
	RecordIndex int
	ProbeID     string
	Field       string
	Got         string
	Want        string
}

// Message renders the drift finding for display.
func (d Drift) Message() string {
	return fmt.Sprintf("record %d (probe %s): %s is %q, expected %q", d.RecordIndex, d.ProbeID, d.Field, d.Got, d.Want)
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	// HardErrors are capability ids referenced by a probe or record but
	// absent from the catalog: one error per missing id, however many
	// references it has.
	HardErrors []*domerr.CoverageGapError

	// Warnings are catalog ids referenced by zero probes.
	Warnings []Warning

	// Drift lists records that disagree with current expectations.
	Drift []Drift
}

// Clean reports whether the pass found no hard errors.
func (r *Report) Clean() bool {
	return len(r.HardErrors) == 0
}

// Check runs one reconciliation pass. The catalog is borrowed read-only;
// records are never mutated.
func Check(cat *catalog.Catalog, declarations []entities.ProbeDeclaration, corpus []*entities.BoundaryRecord) *Report {
	report := &Report{}

	// One hard error per missing id, sources accumulated.
	missing := make(map[string][]string)
	reference := func(id, source string) {
		if id == "" || cat.Has(id) {
			return
		}
		missing[id] = append(missing[id], source)
	}

	probed := make(map[string]bool)
	declByName := make(map[string]entities.ProbeDeclaration, len(declarations))
	for _, decl := range declarations {
		declByName[decl.Name] = decl
		reference(decl.PrimaryCapabilityID, "probe "+decl.Name)
		probed[decl.PrimaryCapabilityID] = true
		for _, id := range decl.SecondaryCapabilityIDs {
			reference(id, "probe "+decl.Name)
			probed[id] = true
		}
	}

	for i, rec := range corpus {
		for _, id := range rec.CapabilityIDs() {
			reference(id, fmt.Sprintf("record %d (probe %s)", i, rec.Probe.ID))
		}

		if decl, ok := declByName[rec.Probe.ID]; ok {
			if rec.Probe.Version != decl.Version {
				report.Drift = append(report.Drift, Drift{
					RecordIndex: i, ProbeID: rec.Probe.ID,
					Field: "probe.version", Got: rec.Probe.Version, Want: decl.Version,
				})
			}
			if rec.Probe.PrimaryCapabilityID != decl.PrimaryCapabilityID {
				report.Drift = append(report.Drift, Drift{
					RecordIndex: i, ProbeID: rec.Probe.ID,
					Field: "probe.primary_capability_id", Got: rec.Probe.PrimaryCapabilityID, Want: decl.PrimaryCapabilityID,
				})
			}
		}

		// A record against a still-planned capability means the catalog
		// status went backwards after emission, or the record predates
		// the claim.
		if entry, ok := cat.Lookup(rec.Probe.PrimaryCapabilityID); ok && entry.Status == entities.StatusPlanned {
			report.Drift = append(report.Drift, Drift{
				RecordIndex: i, ProbeID: rec.Probe.ID,
				Field: "catalog.status", Got: string(entities.StatusPlanned), Want: "experimental or core",
			})
		}
	}

	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		report.HardErrors = append(report.HardErrors, &domerr.CoverageGapError{
			CapabilityID: id,
			ReferencedBy: strings.Join(missing[id], ", "),
		})
	}

	for _, id := range cat.IDs() {
		if !probed[id] {
			report.Warnings = append(report.Warnings, Warning{
				CapabilityID: id,
				Message:      fmt.Sprintf("capability %q is not exercised by any probe", id),
			})
		}
	}

	return report
}
