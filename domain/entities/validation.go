package entities

import "fmt"

// SchemaViolation is one structural validation finding, tagged with a
// pointer-like path into the offending instance location.
type SchemaViolation struct {
	Path    string
	Message string
}

// String renders the violation as "path: message".
func (v SchemaViolation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, v.Message)
}

// ProbeDeclaration is the identity a probe script declares about itself:
// its name (which must equal its file name), its version, and the
// capability ids it exercises. The coverage checker reconciles these
// against the catalog and the record corpus.
type ProbeDeclaration struct {
	Name                   string   `json:"name"`
	Version                string   `json:"version"`
	PrimaryCapabilityID    string   `json:"primary_capability_id"`
	SecondaryCapabilityIDs []string `json:"secondary_capability_ids,omitempty"`
}
