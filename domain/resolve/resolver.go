// Package resolve maps probe identifiers to canonical on-disk paths and
// enforces that every resolved probe lives inside the trusted probe
// tree. Canonicalization (symlink resolution) always happens before the
// containment comparison; a string-prefix check on non-canonical paths
// would let a symlink walk out of the tree.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	domerr "github.com/fenceline/fenceline/domain/errors"
)

// DefaultImpliedExtension is appended to bare identifiers when trying
// suffix candidates.
const DefaultImpliedExtension = ".sh"

// Option configures a Resolver.
type Option func(*Resolver)

// WithRepoRoot sets the repository root tried before the probe tree for
// relative identifiers. Defaults to the parent of the trusted root.
func WithRepoRoot(dir string) Option {
	return func(r *Resolver) {
		r.repoRoot = dir
	}
}

// WithImpliedExtension overrides the extension appended to bare
// identifiers.
func WithImpliedExtension(ext string) Option {
	return func(r *Resolver) {
		r.ext = ext
	}
}

// Resolver resolves probe identifiers against a trusted probe tree.
// Stateless after construction; safe for concurrent use.
type Resolver struct {
	trustedRoot string
	repoRoot    string
	ext         string
}

// NewResolver creates a Resolver for the given trusted probe tree.
func NewResolver(trustedRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		trustedRoot: trustedRoot,
		repoRoot:    filepath.Dir(trustedRoot),
		ext:         DefaultImpliedExtension,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps an identifier to the canonical absolute path of an
// existing probe inside the trusted root.
//
// An absolute identifier is taken verbatim but still containment-checked.
// A relative identifier tries, in order: the identifier under the repo
// root, the same with the implied extension, the identifier under the
// trusted probe tree, and that suffix variant under the probe tree. The
// first existing candidate is canonicalized and compared against the
// canonicalized trusted root; anything resolving outside, including via
// a symlink, fails with *errors.ContainmentError.
func (r *Resolver) Resolve(identifier string) (string, error) {
	if identifier == "" {
		return "", &domerr.NotFoundError{Identifier: identifier}
	}

	root, err := canonicalize(r.trustedRoot)
	if err != nil {
		return "", &domerr.NotFoundError{Identifier: identifier, Tried: []string{r.trustedRoot}}
	}

	var candidates []string
	if filepath.IsAbs(identifier) {
		candidates = []string{identifier}
	} else {
		candidates = []string{
			filepath.Join(r.repoRoot, identifier),
			filepath.Join(r.repoRoot, identifier+r.ext),
			filepath.Join(r.trustedRoot, identifier),
			filepath.Join(r.trustedRoot, identifier+r.ext),
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		resolved, err := canonicalize(candidate)
		if err != nil {
			continue
		}
		if !contained(resolved, root) {
			return "", &domerr.ContainmentError{Identifier: identifier, Resolved: resolved, Root: root}
		}
		return resolved, nil
	}

	return "", &domerr.NotFoundError{Identifier: identifier, Tried: candidates}
}

// canonicalize returns the absolute, symlink-resolved form of path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// contained reports whether path equals root or lies beneath it. Both
// arguments must already be canonical.
func contained(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
