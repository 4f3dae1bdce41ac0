// Package constraints parses the external declarative constraint document
// mapping artifact kinds to per-identifier-kind rules, and applies the
// resulting model onto parsed templates.
package constraints

import "strings"

// TriState is the task/priority directive on a rule.
type TriState string

const (
	Required   TriState = "required"
	Allowed    TriState = "allowed"
	Prohibited TriState = "prohibited"
)

// Coverage is the cross-kind reference requirement of a ReferenceRule.
type Coverage string

const (
	CoverageRequired   Coverage = "required"
	CoverageOptional   Coverage = "optional"
	CoverageProhibited Coverage = "prohibited"
)

// ReferenceRule declares how definitions of an identifier kind must be
// referenced from artifacts of a target kind.
type ReferenceRule struct {
	Coverage Coverage
	Task     TriState
	Priority TriState
	Headings []string
	Line     int
}

// IDConstraint is the rule set for one identifier kind within an artifact
// kind. Kind is unique (case-insensitively) within its owning list.
type IDConstraint struct {
	Kind     string
	Required bool
	Task     TriState
	Priority TriState
	Headings []string

	// References maps a target artifact kind to its coverage rule.
	References map[string]*ReferenceRule

	Line int
}

// HeadingAllowed reports whether the given open-heading stack satisfies the
// rule's heading scoping. A rule with no headings allows any scope.
func (c *IDConstraint) HeadingAllowed(stack []string) bool {
	return headingAllowed(c.Headings, stack)
}

// HeadingAllowed is the same scoping check for a reference rule.
func (r *ReferenceRule) HeadingAllowed(stack []string) bool {
	return headingAllowed(r.Headings, stack)
}

func headingAllowed(want, stack []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range stack {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

// KindConstraints is the full rule set for one artifact kind.
type KindConstraints struct {
	Kind        string
	Name        string
	Description string
	IDs         []*IDConstraint
	Line        int
}

// ID returns the constraint for an identifier kind, matched
// case-insensitively, or nil.
func (k *KindConstraints) ID(kind string) *IDConstraint {
	for _, c := range k.IDs {
		if strings.EqualFold(c.Kind, kind) {
			return c
		}
	}
	return nil
}

// AllowsKind reports whether the identifier kind appears in the allow-list.
func (k *KindConstraints) AllowsKind(kind string) bool {
	return k.ID(kind) != nil
}

// Model is the validated constraint document. A model is only ever built
// whole: a document with any error in any kind is rejected outright, because
// rules for one kind may be referenced by another kind's reference rules.
type Model struct {
	kinds map[string]*KindConstraints
	order []string
}

// Kind returns the constraints for an artifact kind, matched
// case-insensitively, or nil.
func (m *Model) Kind(kind string) *KindConstraints {
	if m == nil {
		return nil
	}
	return m.kinds[strings.ToLower(kind)]
}

// Kinds returns every artifact kind's constraints in document order.
func (m *Model) Kinds() []*KindConstraints {
	if m == nil {
		return nil
	}
	out := make([]*KindConstraints, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.kinds[k])
	}
	return out
}
