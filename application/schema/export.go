// Package schema exports reference JSON Schemas reflected from the
// system's Go types. The embedded schemas under the catalog and record
// packages are the authoritative wire contracts; these reflected
// documents exist for editor tooling and downstream consumers that
// want a Draft 2020-12 description of the same shapes.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/fenceline/fenceline/domain/entities"
)

// Generate reflects a JSON Schema (Draft 2020-12) from a Go value.
func Generate(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// Reference returns the set of exportable reference schemas, keyed by
// document name in sorted order.
func Reference() ([]string, map[string]any) {
	docs := map[string]any{
		"boundary_record":  entities.BoundaryRecord{},
		"catalog_document": entities.CatalogDocument{},
		"error_detail":     entities.ErrorDetail{},
	}
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, docs
}
