// Package identifier decomposes flat identifier tokens into
// (system, kind, slug) triples using longest-prefix matching against the
// registered system hierarchy. Composite tokens embed a secondary kind
// segment scoped to a parent document's own identifier.
package identifier

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSystem marks a token whose system prefix is not registered.
	// Such references are external and exempt from coverage checks.
	ErrUnknownSystem = errors.New("no registered system matches token")

	// ErrAmbiguousSystem marks a token matched by two distinct registered
	// prefixes of equal maximal length.
	ErrAmbiguousSystem = errors.New("ambiguous system match")
)

// Parsed is the decomposition of one identifier token. It is a value type,
// produced per resolution call and never persisted.
type Parsed struct {
	System   string
	Kind     string
	Slug     string
	ParentID string // set only for composite identifiers
}

// IsComposite reports whether the identifier is scoped to a parent document.
func (p *Parsed) IsComposite() bool {
	return p.ParentID != ""
}

// ExistsFunc reports whether an identifier is independently known to be
// defined. Supplied by callers that can consult a definition index.
type ExistsFunc func(id string) bool

// Resolver matches tokens against a registered set of system hierarchy
// prefixes. The prefix set is built once per run and never mutated during
// traversal, so a resolver is safe for concurrent readers.
type Resolver struct {
	scheme   string
	prefixes []string

	// Exists, when non-nil, gates composite resolution on the parent
	// identifier being defined.
	Exists ExistsFunc
}

// NewResolver builds a resolver for the given scheme and hierarchy prefixes.
func NewResolver(scheme string, prefixes []string) *Resolver {
	return &Resolver{scheme: scheme, prefixes: prefixes}
}

// Scheme returns the identifier scheme tokens must open with.
func (r *Resolver) Scheme() string {
	return r.scheme
}

// System returns the registered system prefix the token belongs to, selecting
// the longest match when one system's prefix is a prefix of another's. Two
// distinct registered prefixes matching at the same maximal length is an
// ambiguous registry and reported as an error rather than guessed at.
func (r *Resolver) System(token string) (string, error) {
	lower := strings.ToLower(token)
	best := ""
	ambiguous := false
	for _, p := range r.prefixes {
		head := strings.ToLower(r.scheme + "-" + p + "-")
		if !strings.HasPrefix(lower, head) {
			continue
		}
		switch {
		case len(p) > len(best):
			best, ambiguous = p, false
		case len(p) == len(best) && p != best:
			ambiguous = true
		}
	}
	if ambiguous {
		return "", fmt.Errorf("%w: %q", ErrAmbiguousSystem, token)
	}
	if best == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownSystem, token)
	}
	return best, nil
}

// Resolve parses token expecting the given identifier kind. The first kind
// segment always takes precedence: only when it differs from kind does the
// resolver search for an embedded composite segment.
func (r *Resolver) Resolve(token, kind string) (*Parsed, error) {
	system, err := r.System(token)
	if err != nil {
		return nil, err
	}
	rest := token[len(r.scheme)+1+len(system)+1:]
	if rest == "" {
		return nil, fmt.Errorf("identifier %q has no kind segment", token)
	}

	first, remainder, _ := strings.Cut(rest, "-")
	if strings.EqualFold(first, kind) {
		if remainder == "" {
			return nil, fmt.Errorf("identifier %q has no slug", token)
		}
		return &Parsed{System: system, Kind: kind, Slug: simpleSlug(remainder)}, nil
	}

	needle := "-" + strings.ToLower(kind) + "-"
	idx := strings.Index(strings.ToLower(rest), needle)
	if idx < 0 {
		return nil, fmt.Errorf("identifier %q does not contain kind %q", token, kind)
	}
	parent := r.scheme + "-" + system + "-" + rest[:idx]
	slug := rest[idx+len(needle):]
	if slug == "" {
		return nil, fmt.Errorf("identifier %q has no slug", token)
	}
	if r.Exists != nil && !r.Exists(parent) {
		return nil, fmt.Errorf("identifier %q references unknown parent %q", token, parent)
	}
	return &Parsed{System: system, Kind: kind, Slug: slug, ParentID: parent}, nil
}

// simpleSlug returns the slug for a token whose leading kind segment matched
// the expected kind. A remainder long enough to embed a trailing child pair
// (kind plus slug) is a composite child token, so the slug for the leading
// kind stops at its first segment; shorter remainders are taken whole.
func simpleSlug(remainder string) string {
	head, tail, ok := strings.Cut(remainder, "-")
	if !ok || head == "" {
		return remainder
	}
	if childKind, childSlug, ok := strings.Cut(tail, "-"); ok && childKind != "" && childSlug != "" {
		return head
	}
	return remainder
}

// ResolveAny parses token taking the first segment after the system prefix as
// the kind. Used by markerless scanning, where the expected kind is unknown.
func (r *Resolver) ResolveAny(token string) (*Parsed, error) {
	system, err := r.System(token)
	if err != nil {
		return nil, err
	}
	rest := token[len(r.scheme)+1+len(system)+1:]
	kind, slug, ok := strings.Cut(rest, "-")
	if !ok || slug == "" {
		return nil, fmt.Errorf("identifier %q has no slug", token)
	}
	// Tokens match case-insensitively everywhere, so the parsed kind is
	// canonicalized for uniform records.
	return &Parsed{System: system, Kind: strings.ToLower(kind), Slug: slug}, nil
}
