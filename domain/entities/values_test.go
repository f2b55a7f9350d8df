package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenceline/fenceline/domain/entities"
)

func TestValueAccessors(t *testing.T) {
	values := entities.Values{
		"mode":    "0644",
		"bytes":   float64(12),
		"append":  true,
		"flags":   []any{"O_CREAT", "O_EXCL"},
		"nested":  map[string]any{"tool": "touch"},
		"badList": []any{"ok", 3},
	}

	s, ok := entities.GetString(values, "mode")
	assert.True(t, ok)
	assert.Equal(t, "0644", s)

	n, ok := entities.GetInt(values, "bytes")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	b, ok := entities.GetBool(values, "append")
	assert.True(t, ok)
	assert.True(t, b)

	list, ok := entities.GetStringSlice(values, "flags")
	assert.True(t, ok)
	assert.Equal(t, []string{"O_CREAT", "O_EXCL"}, list)

	_, ok = entities.GetStringSlice(values, "badList")
	assert.False(t, ok)

	m, ok := entities.GetMap(values, "nested")
	assert.True(t, ok)
	assert.Equal(t, "touch", m["tool"])

	_, ok = entities.GetString(values, "absent")
	assert.False(t, ok)
}
