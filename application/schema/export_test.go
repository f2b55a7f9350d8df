package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenceline/fenceline/domain/entities"
)

func TestGenerateBoundaryRecordSchema(t *testing.T) {
	out, err := Generate(entities.BoundaryRecord{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, properties, "schema_version")
	assert.Contains(t, properties, "probe")
	assert.Contains(t, properties, "run")
	assert.Contains(t, properties, "operation")
	assert.Contains(t, properties, "result")
	assert.Contains(t, properties, "payload")
}

func TestGenerateCatalogDocumentSchema(t *testing.T) {
	out, err := Generate(entities.CatalogDocument{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	schemaStr := string(out)
	assert.Contains(t, schemaStr, "capabilities")
	assert.Contains(t, schemaStr, "scope")
	assert.Contains(t, schemaStr, "docs")
}

func TestReferenceIsSortedAndComplete(t *testing.T) {
	names, docs := Reference()

	assert.Equal(t, []string{"boundary_record", "catalog_document", "error_detail"}, names)
	for _, name := range names {
		out, err := Generate(docs[name])
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded), "schema %s must be valid JSON", name)
	}
}
