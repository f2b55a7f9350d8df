// Package schema implements the structural validator every other harness
// surface is built on. A raw schema document (the decoded JSON form) is
// compiled into a tagged constraint tree once; evaluation walks instance
// and tree together by explicit case analysis and accumulates path-tagged
// violations. A structurally invalid instance is the expected output, not
// an error; only a malformed schema (unresolvable or non-local reference,
// impossible keyword shape) is fatal.
//
// The supported subset: "type" (single name or list), "const", "enum",
// object constraints ("properties", "required", "additionalProperties"),
// array constraints ("items" as a single schema, "uniqueItems"), and
// local "$ref" pointers of the form "#/segment/segment".
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fenceline/fenceline/domain/entities"
	domerr "github.com/fenceline/fenceline/domain/errors"
)

// Schema is a compiled, reusable constraint tree. Compiled schemas are
// immutable and safe for concurrent use.
type Schema struct {
	root *node
}

// node is one compiled schema position. Absent constraints are nil.
type node struct {
	types  []string
	cnst   *constValue
	enum   []any
	object *objectConstraint
	array  *arrayConstraint
}

type constValue struct {
	value any
}

type objectConstraint struct {
	properties map[string]*node
	required   []string

	// additionalAllowed is true unless "additionalProperties" is false.
	// additionalSchema validates unnamed keys when it is non-nil.
	additionalAllowed bool
	additionalSchema  *node
}

type arrayConstraint struct {
	items       *node
	uniqueItems bool
}

// Compile builds a reusable Schema from a raw schema document. The root
// document is the resolution base for local "$ref" pointers; pass the
// schema itself when it is self-contained.
func Compile(raw, root map[string]any) (*Schema, error) {
	c := &compiler{root: root, refs: make(map[string]*node)}
	n, err := c.compile(raw, "#")
	if err != nil {
		return nil, err
	}
	return &Schema{root: n}, nil
}

// Validate compiles the schema and evaluates the instance against it in
// one call. The violation list is empty for a valid instance; the error
// is non-nil only for a malformed schema.
func Validate(instance any, raw, root map[string]any) ([]entities.SchemaViolation, error) {
	s, err := Compile(raw, root)
	if err != nil {
		return nil, err
	}
	return s.Validate(instance), nil
}

// Validate evaluates an instance against the compiled schema, returning
// one violation per offending instance location. Idempotent: validating
// the same instance twice yields the same findings.
func (s *Schema) Validate(instance any) []entities.SchemaViolation {
	var out []entities.SchemaViolation
	eval(s.root, instance, "", &out)
	return out
}

type compiler struct {
	root map[string]any
	refs map[string]*node
}

func (c *compiler) compile(raw map[string]any, ptr string) (*node, error) {
	if ref, ok := raw["$ref"]; ok {
		return c.compileRef(ref, ptr)
	}

	n := &node{}

	if tv, ok := raw["type"]; ok {
		types, err := typeNames(tv, ptr)
		if err != nil {
			return nil, err
		}
		n.types = types
	}

	if cv, ok := raw["const"]; ok {
		n.cnst = &constValue{value: cv}
	}

	if ev, ok := raw["enum"]; ok {
		list, ok := ev.([]any)
		if !ok || len(list) == 0 {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/enum", Reason: "enum must be a non-empty array"}
		}
		n.enum = list
	}

	obj, err := c.compileObject(raw, ptr)
	if err != nil {
		return nil, err
	}
	n.object = obj

	arr, err := c.compileArray(raw, ptr)
	if err != nil {
		return nil, err
	}
	n.array = arr

	return n, nil
}

func (c *compiler) compileRef(ref any, ptr string) (*node, error) {
	target, ok := ref.(string)
	if !ok {
		return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/$ref", Reason: "$ref must be a string"}
	}
	if !strings.HasPrefix(target, "#/") {
		return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/$ref", Reason: fmt.Sprintf("reference %q is not a local pointer", target)}
	}
	if n, ok := c.refs[target]; ok {
		return n, nil
	}

	// Placeholder first so self-referential schemas terminate.
	n := &node{}
	c.refs[target] = n

	cur := any(c.root)
	for _, seg := range strings.Split(strings.TrimPrefix(target, "#/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/$ref", Reason: fmt.Sprintf("segment %q of %q does not address an object", seg, target)}
		}
		cur, ok = m[seg]
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/$ref", Reason: fmt.Sprintf("reference %q has no target (missing %q)", target, seg)}
		}
	}
	raw, ok := cur.(map[string]any)
	if !ok {
		return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/$ref", Reason: fmt.Sprintf("reference %q does not resolve to a schema", target)}
	}

	resolved, err := c.compile(raw, target)
	if err != nil {
		return nil, err
	}
	*n = *resolved
	return n, nil
}

func (c *compiler) compileObject(raw map[string]any, ptr string) (*objectConstraint, error) {
	_, hasProps := raw["properties"]
	_, hasRequired := raw["required"]
	_, hasAdditional := raw["additionalProperties"]
	if !hasProps && !hasRequired && !hasAdditional {
		return nil, nil
	}

	obj := &objectConstraint{additionalAllowed: true}

	if hasProps {
		props, ok := raw["properties"].(map[string]any)
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/properties", Reason: "properties must be an object"}
		}
		obj.properties = make(map[string]*node, len(props))
		for name, sub := range props {
			subRaw, ok := sub.(map[string]any)
			if !ok {
				return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/properties/" + name, Reason: "property schema must be an object"}
			}
			sn, err := c.compile(subRaw, ptr+"/properties/"+name)
			if err != nil {
				return nil, err
			}
			obj.properties[name] = sn
		}
	}

	if hasRequired {
		reqs, ok := raw["required"].([]any)
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/required", Reason: "required must be an array of property names"}
		}
		for _, r := range reqs {
			name, ok := r.(string)
			if !ok {
				return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/required", Reason: "required entries must be strings"}
			}
			obj.required = append(obj.required, name)
		}
	}

	if hasAdditional {
		switch ap := raw["additionalProperties"].(type) {
		case bool:
			obj.additionalAllowed = ap
		case map[string]any:
			sn, err := c.compile(ap, ptr+"/additionalProperties")
			if err != nil {
				return nil, err
			}
			obj.additionalSchema = sn
		default:
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/additionalProperties", Reason: "additionalProperties must be a boolean or a schema"}
		}
	}

	return obj, nil
}

func (c *compiler) compileArray(raw map[string]any, ptr string) (*arrayConstraint, error) {
	_, hasItems := raw["items"]
	_, hasUnique := raw["uniqueItems"]
	if !hasItems && !hasUnique {
		return nil, nil
	}

	arr := &arrayConstraint{}

	if hasItems {
		itemsRaw, ok := raw["items"].(map[string]any)
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/items", Reason: "items must be a single schema object"}
		}
		sn, err := c.compile(itemsRaw, ptr+"/items")
		if err != nil {
			return nil, err
		}
		arr.items = sn
	}

	if hasUnique {
		u, ok := raw["uniqueItems"].(bool)
		if !ok {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/uniqueItems", Reason: "uniqueItems must be a boolean"}
		}
		arr.uniqueItems = u
	}

	return arr, nil
}

func typeNames(v any, ptr string) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		names := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/type", Reason: "type list entries must be strings"}
			}
			names = append(names, s)
		}
		if len(names) == 0 {
			return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/type", Reason: "type list must not be empty"}
		}
		return names, nil
	default:
		return nil, &domerr.MalformedSchemaError{Pointer: ptr + "/type", Reason: "type must be a string or a list of strings"}
	}
}

func eval(n *node, instance any, path string, out *[]entities.SchemaViolation) {
	if n.types != nil && !typeMatches(n.types, instance) {
		*out = append(*out, entities.SchemaViolation{
			Path:    path,
			Message: fmt.Sprintf("expected %s, got %s", strings.Join(n.types, " or "), typeName(instance)),
		})
	}

	if n.cnst != nil && Canonical(instance) != Canonical(n.cnst.value) {
		*out = append(*out, entities.SchemaViolation{
			Path:    path,
			Message: fmt.Sprintf("value must equal %s", Canonical(n.cnst.value)),
		})
	}

	if n.enum != nil && !enumContains(n.enum, instance) {
		*out = append(*out, entities.SchemaViolation{
			Path:    path,
			Message: fmt.Sprintf("value %s is not one of %s", Canonical(instance), enumList(n.enum)),
		})
	}

	if n.object != nil {
		if m, ok := instance.(map[string]any); ok {
			evalObject(n.object, m, path, out)
		}
	}

	if n.array != nil {
		if list, ok := instance.([]any); ok {
			evalArray(n.array, list, path, out)
		}
	}
}

func evalObject(obj *objectConstraint, m map[string]any, path string, out *[]entities.SchemaViolation) {
	for _, req := range obj.required {
		if _, ok := m[req]; !ok {
			*out = append(*out, entities.SchemaViolation{
				Path:    path,
				Message: fmt.Sprintf("missing required property %q", req),
			})
		}
	}

	// Deterministic key order keeps violation lists stable across runs.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := m[k]
		childPath := path + "/" + escapePointer(k)
		if sub, ok := obj.properties[k]; ok {
			eval(sub, v, childPath, out)
			continue
		}
		if obj.additionalSchema != nil {
			eval(obj.additionalSchema, v, childPath, out)
			continue
		}
		if !obj.additionalAllowed {
			*out = append(*out, entities.SchemaViolation{
				Path:    childPath,
				Message: fmt.Sprintf("additional property %q is not allowed", k),
			})
		}
	}
}

func evalArray(arr *arrayConstraint, list []any, path string, out *[]entities.SchemaViolation) {
	if arr.items != nil {
		for i, v := range list {
			eval(arr.items, v, fmt.Sprintf("%s/%d", path, i), out)
		}
	}

	if arr.uniqueItems {
		seen := make(map[string]int, len(list))
		for i, v := range list {
			key := Canonical(v)
			if first, dup := seen[key]; dup {
				*out = append(*out, entities.SchemaViolation{
					Path:    fmt.Sprintf("%s/%d", path, i),
					Message: fmt.Sprintf("duplicate array item (first seen at index %d)", first),
				})
				continue
			}
			seen[key] = i
		}
	}
}

func typeMatches(names []string, v any) bool {
	for _, name := range names {
		if typeIs(name, v) {
			return true
		}
	}
	return false
}

func typeIs(name string, v any) bool {
	switch name {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "null":
		return v == nil
	case "number":
		return isNumber(v)
	case "integer":
		return isInteger(v)
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

// isInteger treats a float with no fractional component as an integer, so
// JSON-decoded whole numbers (always float64 in Go) pass integer checks.
func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return true
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case float32:
		f := float64(n)
		return f == math.Trunc(f) && !math.IsInf(f, 0)
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	if isInteger(v) {
		return "integer"
	}
	if isNumber(v) {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func enumContains(enum []any, v any) bool {
	key := Canonical(v)
	for _, e := range enum {
		if Canonical(e) == key {
			return true
		}
	}
	return false
}

func enumList(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = Canonical(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Canonical renders a value in a canonical JSON form: object keys are
// sorted, so two objects differing only in key order compare equal. Used
// for const/enum deep equality and uniqueItems duplicate detection.
func Canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only non-JSON values (channels, funcs) land here; render them
		// distinctly so equality checks stay conservative.
		return fmt.Sprintf("!%T(%v)", v, v)
	}
	return string(b)
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}
