package entities

// Layer identifies which part of the sandbox stack a capability claim is
// about.
type Layer string

const (
	// LayerSandboxPolicy covers claims about what the sandbox policy
	// itself allows or denies.
	LayerSandboxPolicy Layer = "sandbox-policy"

	// LayerProfileMechanics covers claims about how sandbox profiles are
	// constructed and composed.
	LayerProfileMechanics Layer = "profile-mechanics"

	// LayerOrchestrationPolicy covers claims about the orchestration
	// layer sitting above the sandbox.
	LayerOrchestrationPolicy Layer = "orchestration-policy"
)

// Category is the action family a capability mediates.
type Category string

const (
	CategoryFilesystem       Category = "filesystem"
	CategoryProcess          Category = "process"
	CategoryNetwork          Category = "network"
	CategorySysctl           Category = "sysctl"
	CategoryIPC              Category = "ipc"
	CategorySandboxMechanics Category = "sandbox-mechanics"
	CategoryOrchestration    Category = "orchestration"
)

// Status tracks how far a capability claim has been validated.
// New entries start as StatusExperimental until a probe exercises them.
type Status string

const (
	StatusPlanned      Status = "planned"
	StatusExperimental Status = "experimental"
	StatusCore         Status = "core"
)

// Level is the coarse confidence/impact level of a capability claim.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// OperationSet lists the raw mediation primitives a capability is
// believed to allow and deny.
type OperationSet struct {
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty" yaml:"deny,omitempty"`
}

// SourceRef points a capability claim at an entry in the catalog's
// bibliography map.
type SourceRef struct {
	// Doc is the bibliography key in CatalogDocument.Docs.
	Doc string `json:"doc" yaml:"doc"`

	// Section locates the claim inside the referenced document.
	Section string `json:"section" yaml:"section"`

	// URLHint optionally points at an online rendering of the section.
	URLHint string `json:"url_hint,omitempty" yaml:"url_hint,omitempty"`
}

// CapabilityEntry is one named, cataloged claim about what the sandbox
// allows or denies. The ID is a stable snake-case slug and is never
// reused for a different meaning.
type CapabilityEntry struct {
	ID            string       `json:"id" yaml:"id"`
	Platform      []string     `json:"platform" yaml:"platform"`
	Layer         Layer        `json:"layer" yaml:"layer"`
	Category      Category     `json:"category" yaml:"category"`
	Description   string       `json:"description" yaml:"description"`
	Operations    OperationSet `json:"operations,omitempty" yaml:"operations,omitempty"`
	MetaOps       []string     `json:"meta_ops,omitempty" yaml:"meta_ops,omitempty"`
	AgentControls []string     `json:"agent_controls,omitempty" yaml:"agent_controls,omitempty"`
	Status        Status       `json:"status" yaml:"status"`
	Level         Level        `json:"level" yaml:"level"`
	Notes         string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Sources       []SourceRef  `json:"sources" yaml:"sources"`
}

// DocRef is reference metadata for one bibliography entry.
type DocRef struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CatalogScope describes what a catalog document claims to cover.
type CatalogScope struct {
	Description string   `json:"description" yaml:"description"`
	Platforms   []string `json:"platforms" yaml:"platforms"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CatalogDocument is the raw, decoded form of a capability catalog file.
// It is loaded once per harness run and treated as immutable thereafter;
// the indexed view lives in the catalog application package.
type CatalogDocument struct {
	Scope        CatalogScope      `json:"scope" yaml:"scope"`
	Docs         map[string]DocRef `json:"docs" yaml:"docs"`
	Capabilities []CapabilityEntry `json:"capabilities" yaml:"capabilities"`
}
