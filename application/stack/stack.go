// Package stack collects the opaque environment/tooling snapshot stored
// in a boundary record's stack field. The format is intentionally loose:
// downstream summarizers treat it as an open blob.
package stack

import (
	"os"
	"runtime"
	"strings"
)

// Version is the harness version stamped into snapshots.
const Version = "0.3.0"

// Collect gathers the host snapshot. Only environment variables with
// one of the given prefixes are captured, so run secrets never leak
// into records.
func Collect(envPrefixes ...string) map[string]any {
	snap := map[string]any{
		"harness_version": Version,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
		"go_version":      runtime.Version(),
	}

	if host, err := os.Hostname(); err == nil {
		snap["hostname"] = host
	}
	if kernel := kernelRelease(); kernel != "" {
		snap["kernel"] = kernel
	}

	if len(envPrefixes) > 0 {
		captured := map[string]any{}
		for _, kv := range os.Environ() {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			for _, prefix := range envPrefixes {
				if strings.HasPrefix(key, prefix) {
					captured[key] = value
					break
				}
			}
		}
		if len(captured) > 0 {
			snap["env"] = captured
		}
	}

	return snap
}
