package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerr "github.com/fenceline/fenceline/domain/errors"
	"github.com/fenceline/fenceline/domain/schema"
)

// decode parses a JSON literal into the decoded form the validator
// consumes. Keeping fixtures as JSON text mirrors how real documents
// arrive.
func decode(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func decodeSchema(t *testing.T, src string) map[string]any {
	t.Helper()
	v := decode(t, src)
	m, ok := v.(map[string]any)
	require.True(t, ok, "schema fixture must be an object")
	return m
}

func TestValidate_TypeChecks(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		instance string
		wantErrs int
	}{
		{"string ok", `{"type":"string"}`, `"hello"`, 0},
		{"string mismatch", `{"type":"string"}`, `42`, 1},
		{"integer accepts whole float", `{"type":"integer"}`, `3`, 0},
		{"integer rejects fraction", `{"type":"integer"}`, `3.5`, 1},
		{"number accepts fraction", `{"type":"number"}`, `3.5`, 0},
		{"number accepts whole", `{"type":"number"}`, `3`, 0},
		{"type list accepts either", `{"type":["string","null"]}`, `null`, 0},
		{"type list rejects others", `{"type":["string","null"]}`, `true`, 1},
		{"boolean", `{"type":"boolean"}`, `false`, 0},
		{"object", `{"type":"object"}`, `{}`, 0},
		{"array", `{"type":"array"}`, `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := schema.Validate(decode(t, tt.instance), decodeSchema(t, tt.schema), nil)
			require.NoError(t, err)
			assert.Len(t, errs, tt.wantErrs)
		})
	}
}

func TestValidate_ConstAndEnum(t *testing.T) {
	s := decodeSchema(t, `{"const":{"a":1,"b":2}}`)

	// Key order must not affect deep equality.
	errs, err := schema.Validate(decode(t, `{"b":2,"a":1}`), s, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = schema.Validate(decode(t, `{"a":1,"b":3}`), s, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)

	enum := decodeSchema(t, `{"enum":["success","denied","partial","error"]}`)
	errs, err = schema.Validate("denied", enum, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = schema.Validate("maybe", enum, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `"maybe"`)
}

func TestValidate_ObjectRules(t *testing.T) {
	s := decodeSchema(t, `{
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"level": {"enum": ["low", "medium", "high"]}
		},
		"required": ["id", "level"],
		"additionalProperties": false
	}`)

	errs, err := schema.Validate(decode(t, `{"id":"cap_a","level":"low"}`), s, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)

	// One distinct error per missing required property.
	errs, err = schema.Validate(decode(t, `{}`), s, nil)
	require.NoError(t, err)
	assert.Len(t, errs, 2)

	errs, err = schema.Validate(decode(t, `{"id":"cap_a","level":"low","extra":1}`), s, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/extra", errs[0].Path)
}

func TestValidate_AdditionalPropertiesSchema(t *testing.T) {
	s := decodeSchema(t, `{
		"properties": {"known": {"type": "string"}},
		"additionalProperties": {"type": "integer"}
	}`)

	errs, err := schema.Validate(decode(t, `{"known":"x","count":3}`), s, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = schema.Validate(decode(t, `{"known":"x","count":"three"}`), s, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/count", errs[0].Path)
}

func TestValidate_NestedPathTagging(t *testing.T) {
	s := decodeSchema(t, `{
		"type": "object",
		"properties": {
			"capabilities": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {"id": {"type": "string"}},
					"required": ["id"]
				}
			}
		}
	}`)

	errs, err := schema.Validate(decode(t, `{"capabilities":[{"id":"ok"},{"id":7}]}`), s, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/capabilities/1/id", errs[0].Path)
}

func TestValidate_UniqueItemsCanonicalForm(t *testing.T) {
	s := decodeSchema(t, `{"type":"array","uniqueItems":true}`)

	// Differing key order must not hide the duplicate.
	errs, err := schema.Validate(decode(t, `[{"a":1,"b":2},{"b":2,"a":1}]`), s, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/1", errs[0].Path)
	assert.Contains(t, errs[0].Message, "first seen at index 0")

	// One error per duplicate index.
	errs, err = schema.Validate(decode(t, `[1,1,1]`), s, nil)
	require.NoError(t, err)
	assert.Len(t, errs, 2)

	errs, err = schema.Validate(decode(t, `[{"a":1},{"a":2}]`), s, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidate_LocalRef(t *testing.T) {
	root := decodeSchema(t, `{
		"defs": {
			"slug": {"type": "string"}
		},
		"type": "object",
		"properties": {
			"id": {"$ref": "#/defs/slug"}
		}
	}`)

	errs, err := schema.Validate(decode(t, `{"id":"cap_a"}`), root, root)
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = schema.Validate(decode(t, `{"id":5}`), root, root)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "/id", errs[0].Path)
}

func TestValidate_MalformedSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"unresolvable ref", `{"$ref":"#/defs/missing"}`},
		{"non-local ref", `{"$ref":"https://example.com/schema.json"}`},
		{"bad type keyword", `{"type":12}`},
		{"bad properties", `{"properties":[]}`},
		{"bad items", `{"items":[]}`},
		{"empty enum", `{"enum":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decodeSchema(t, tt.schema)
			_, err := schema.Validate(decode(t, `{}`), raw, raw)
			require.Error(t, err)
			var mse *domerr.MalformedSchemaError
			assert.ErrorAs(t, err, &mse)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	s := decodeSchema(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	compiled, err := schema.Compile(s, s)
	require.NoError(t, err)

	instance := decode(t, `{"name":"fork_probe"}`)
	assert.Empty(t, compiled.Validate(instance))
	assert.Empty(t, compiled.Validate(instance))

	bad := decode(t, `{}`)
	assert.Len(t, compiled.Validate(bad), 1)
	assert.Len(t, compiled.Validate(bad), 1)
}

func TestCanonical_SortsObjectKeys(t *testing.T) {
	a := decode(t, `{"b":2,"a":1}`)
	b := decode(t, `{"a":1,"b":2}`)
	assert.Equal(t, schema.Canonical(a), schema.Canonical(b))
}
