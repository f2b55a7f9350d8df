// Package catalog loads capability catalog documents, validates them
// against the embedded catalog schema, and exposes an immutable indexed
// view. A catalog is loaded once per harness run and passed by reference
// into every consuming component; there is no ambient singleton.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/schema"
)

//go:embed schema.json
var rawSchema []byte

// compiledSchema is built once at package init; the schema ships with the
// binary, so failure to compile it is a programming error.
var compiledSchema = mustCompile()

func mustCompile() *schema.Schema {
	var raw map[string]any
	if err := json.Unmarshal(rawSchema, &raw); err != nil {
		panic(fmt.Sprintf("embedded catalog schema is not valid JSON: %v", err))
	}
	s, err := schema.Compile(raw, raw)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog schema does not compile: %v", err))
	}
	return s
}

// Format identifies the encoding of a catalog document.
type Format int

const (
	FormatJSON Format = iota
	FormatJSONC
	FormatYAML
)

// FormatForPath picks the decoding format from a file extension.
// Unrecognized extensions decode as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".jsonc":
		return FormatJSONC
	default:
		return FormatJSON
	}
}

// Catalog is the validated, indexed, immutable view of one catalog
// document. Safe for concurrent readers; nothing mutates it after Load.
type Catalog struct {
	doc   entities.CatalogDocument
	index map[string]int
	order []string
}

// Load decodes, validates, and indexes a catalog document. Validation
// findings come back as a *errors.ValidationError with one path-tagged
// violation per offending location; an id collision comes back as a
// *errors.DuplicateIDError naming both entries.
func Load(data []byte, format Format) (*Catalog, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, err
	}

	violations := compiledSchema.Validate(raw)
	violations = append(violations, checkReferences(raw)...)
	if len(violations) > 0 {
		return nil, &domerr.ValidationError{Subject: "catalog document", Violations: violations}
	}

	var doc entities.CatalogDocument
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding catalog document: %w", err)
	}
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog document: %w", err)
	}

	c := &Catalog{
		doc:   doc,
		index: make(map[string]int, len(doc.Capabilities)),
		order: make([]string, 0, len(doc.Capabilities)),
	}
	for i, entry := range doc.Capabilities {
		if first, dup := c.index[entry.ID]; dup {
			return nil, &domerr.DuplicateIDError{ID: entry.ID, FirstIndex: first, SecondIndex: i}
		}
		c.index[entry.ID] = i
		c.order = append(c.order, entry.ID)
	}
	return c, nil
}

// LoadFile reads and loads a catalog document, picking the format from
// the file extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog document: %w", err)
	}
	return Load(data, FormatForPath(path))
}

func decodeRaw(data []byte, format Format) (map[string]any, error) {
	switch format {
	case FormatJSONC:
		data = jsonc.ToJSON(data)
		fallthrough
	case FormatJSON:
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing catalog document: %w", err)
		}
		return raw, nil
	case FormatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing catalog document: %w", err)
		}
		// Round-trip through JSON so nested values take the same decoded
		// shapes the validator and codec expect.
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("normalizing catalog document: %w", err)
		}
		var norm map[string]any
		if err := json.Unmarshal(b, &norm); err != nil {
			return nil, fmt.Errorf("normalizing catalog document: %w", err)
		}
		return norm, nil
	default:
		return nil, fmt.Errorf("unsupported catalog format %d", format)
	}
}

// checkReferences enforces the invariants the structural schema cannot
// express: every capability cites at least one source, and every cited
// doc key exists in the bibliography map.
func checkReferences(raw map[string]any) []entities.SchemaViolation {
	var out []entities.SchemaViolation

	docs, _ := raw["docs"].(map[string]any)
	caps, _ := raw["capabilities"].([]any)

	for i, c := range caps {
		entry, ok := c.(map[string]any)
		if !ok {
			continue
		}
		sources, _ := entry["sources"].([]any)
		if len(sources) == 0 {
			out = append(out, entities.SchemaViolation{
				Path:    fmt.Sprintf("/capabilities/%d/sources", i),
				Message: "at least one source is required",
			})
			continue
		}
		for j, s := range sources {
			src, ok := s.(map[string]any)
			if !ok {
				continue
			}
			key, _ := src["doc"].(string)
			if _, known := docs[key]; !known {
				out = append(out, entities.SchemaViolation{
					Path:    fmt.Sprintf("/capabilities/%d/sources/%d/doc", i, j),
					Message: fmt.Sprintf("doc key %q is not in the bibliography", key),
				})
			}
		}
	}
	return out
}

// Lookup returns the entry for id, if the catalog defines it.
func (c *Catalog) Lookup(id string) (entities.CapabilityEntry, bool) {
	i, ok := c.index[id]
	if !ok {
		return entities.CapabilityEntry{}, false
	}
	return c.doc.Capabilities[i], true
}

// Has reports whether the catalog defines id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// IDs returns capability ids in document order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns the capability entries in document order.
func (c *Catalog) Entries() []entities.CapabilityEntry {
	out := make([]entities.CapabilityEntry, len(c.doc.Capabilities))
	copy(out, c.doc.Capabilities)
	return out
}

// Scope returns the document's declared scope.
func (c *Catalog) Scope() entities.CatalogScope {
	return c.doc.Scope
}

// Docs returns the bibliography map.
func (c *Catalog) Docs() map[string]entities.DocRef {
	out := make(map[string]entities.DocRef, len(c.doc.Docs))
	for k, v := range c.doc.Docs {
		out[k] = v
	}
	return out
}

// Len returns the number of capability entries.
func (c *Catalog) Len() int {
	return len(c.doc.Capabilities)
}
