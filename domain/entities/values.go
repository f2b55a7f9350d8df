package entities

// Values is an open key-value map, the shape of a record's
// operation.args and payload.raw fields. The typed accessors below are
// how consumers read probe-supplied values out of these maps without
// scattering type assertions.
type Values = map[string]any

// GetString extracts a string from an open map, returning (value, found).
func GetString(values Values, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt extracts an int, handling the int, int64, and float64 shapes
// JSON decoding produces.
func GetInt(values Values, key string) (int, bool) {
	v, ok := values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetBool extracts a bool, returning (value, found).
func GetBool(values Values, key string) (bool, bool) {
	v, ok := values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetStringSlice extracts a []string, accepting both []string and the
// []any shape JSON decoding produces.
func GetStringSlice(values Values, key string) ([]string, bool) {
	v, ok := values[key]
	if !ok {
		return nil, false
	}
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

// GetMap extracts a nested open map, returning (value, found).
func GetMap(values Values, key string) (Values, bool) {
	v, ok := values[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
