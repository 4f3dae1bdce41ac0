// Package crossref aggregates identifier definitions and references across a
// file set and checks them against the constraint model's coverage rules.
// Indexing must complete for every file before any rule is judged: coverage
// cannot be decided from a partial index.
package crossref

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specmark/specmark/internal/artifact"
	"github.com/specmark/specmark/internal/constraints"
	"github.com/specmark/specmark/internal/identifier"
	"github.com/specmark/specmark/internal/report"
)

// Entry is one indexed definition or reference occurrence.
type Entry struct {
	Rec          *artifact.IDRecord
	Path         string
	ArtifactKind string
}

// Index holds the definitions-by-id and references-by-id maps for a run. It
// is built once and read-only afterwards.
type Index struct {
	defs  map[string][]Entry
	refs  map[string][]Entry
	order []string // first-seen id order, for deterministic reporting
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{defs: map[string][]Entry{}, refs: map[string][]Entry{}}
}

// Add indexes one artifact's identifier records. artifactKind is the kind of
// the owning file, which may differ from the record's identifier kind.
func (ix *Index) Add(a *artifact.Artifact, artifactKind string, res *identifier.Resolver) {
	for _, rec := range a.IDs(res) {
		entry := Entry{Rec: rec, Path: a.Path, ArtifactKind: artifactKind}
		key := strings.ToLower(rec.ID)
		if _, seenDef := ix.defs[key]; !seenDef {
			if _, seenRef := ix.refs[key]; !seenRef {
				ix.order = append(ix.order, key)
			}
		}
		if rec.Definition {
			ix.defs[key] = append(ix.defs[key], entry)
		} else {
			ix.refs[key] = append(ix.refs[key], entry)
		}
	}
}

// Definitions returns the indexed definitions for an id.
func (ix *Index) Definitions(id string) []Entry {
	return ix.defs[strings.ToLower(id)]
}

// References returns the indexed references for an id.
func (ix *Index) References(id string) []Entry {
	return ix.refs[strings.ToLower(id)]
}

// Validate judges every cross-artifact rule against the completed index.
func Validate(ix *Index, model *constraints.Model) []report.Error {
	var errs []report.Error
	errs = append(errs, checkResolution(ix)...)
	errs = append(errs, checkCoverage(ix, model)...)
	errs = append(errs, checkReferenceRules(ix, model)...)
	errs = append(errs, checkTaskStates(ix)...)
	errs = append(errs, checkHeadingScopes(ix, model)...)
	return errs
}

// checkResolution requires every reference's id to be defined somewhere in
// the set. References whose system is unregistered are external and exempt;
// an ambiguous system match is always an error.
func checkResolution(ix *Index) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		for _, ref := range ix.refs[key] {
			rec := ref.Rec
			if rec.Err != nil {
				if errors.Is(rec.Err, identifier.ErrAmbiguousSystem) {
					errs = append(errs, refError(ref, "ambiguous-system", fmt.Sprintf("ambiguous system match for %s", rec.ID)))
				}
				continue
			}
			if len(ix.defs[key]) == 0 {
				errs = append(errs, refError(ref, "undefined-reference", fmt.Sprintf("reference to undefined identifier %s", rec.ID)))
			}
		}
	}
	return errs
}

// checkCoverage enforces required and prohibited reference coverage between
// identifier kinds and target artifact kinds, scoped to the same system.
func checkCoverage(ix *Index, model *constraints.Model) []report.Error {
	var errs []report.Error
	for _, kc := range model.Kinds() {
		for _, idc := range kc.IDs {
			for _, tr := range sortedRefs(idc.References) {
				switch tr.rule.Coverage {
				case constraints.CoverageRequired:
					errs = append(errs, checkRequiredCoverage(ix, idc, tr.target, tr.rule)...)
				case constraints.CoverageProhibited:
					errs = append(errs, checkProhibitedCoverage(ix, idc, tr.target, tr.rule)...)
				}
			}
		}
	}
	return errs
}

// checkRequiredCoverage: every definition of the rule's owning kind must be
// referenced from at least one artifact of the target kind in the same
// system.
func checkRequiredCoverage(ix *Index, idc *constraints.IDConstraint, target string, rule *constraints.ReferenceRule) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		for _, def := range ix.defs[key] {
			if !strings.EqualFold(def.Rec.Kind, idc.Kind) || def.Rec.System == "" {
				continue
			}
			covered := false
			for _, ref := range ix.refs[key] {
				if strings.EqualFold(ref.ArtifactKind, target) &&
					strings.EqualFold(ref.Rec.System, def.Rec.System) &&
					rule.HeadingAllowed(ref.Rec.Headings) {
					covered = true
					break
				}
			}
			if !covered {
				errs = append(errs, defError(def, "coverage-required", fmt.Sprintf(
					"%s is never referenced from a %s artifact", def.Rec.ID, target)).
					With("target_kind", target))
			}
		}
	}
	return errs
}

// checkProhibitedCoverage: even one reference from the target kind violates
// the rule.
func checkProhibitedCoverage(ix *Index, idc *constraints.IDConstraint, target string, rule *constraints.ReferenceRule) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		hasOwnedDef := false
		for _, def := range ix.defs[key] {
			if strings.EqualFold(def.Rec.Kind, idc.Kind) {
				hasOwnedDef = true
				break
			}
		}
		if !hasOwnedDef {
			continue
		}
		for _, ref := range ix.refs[key] {
			if strings.EqualFold(ref.ArtifactKind, target) {
				errs = append(errs, refError(ref, "coverage-prohibited", fmt.Sprintf(
					"%s must not be referenced from a %s artifact", ref.Rec.ID, target)).
					With("target_kind", target))
			}
		}
	}
	return errs
}

// checkReferenceRules enforces a reference rule's own task, priority, and
// heading directives on every reference it scopes: references to the owning
// identifier kind found in artifacts of the rule's target kind.
func checkReferenceRules(ix *Index, model *constraints.Model) []report.Error {
	var errs []report.Error
	for _, kc := range model.Kinds() {
		for _, idc := range kc.IDs {
			for _, tr := range sortedRefs(idc.References) {
				errs = append(errs, checkScopedReferences(ix, idc, tr.target, tr.rule)...)
			}
		}
	}
	return errs
}

func checkScopedReferences(ix *Index, idc *constraints.IDConstraint, target string, rule *constraints.ReferenceRule) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		for _, ref := range ix.refs[key] {
			rec := ref.Rec
			if !strings.EqualFold(rec.Kind, idc.Kind) || !strings.EqualFold(ref.ArtifactKind, target) {
				continue
			}
			if rule.Task == constraints.Required && !rec.HasTask {
				errs = append(errs, refError(ref, "reference-task", fmt.Sprintf(
					"reference to %s must carry a task checkbox", rec.ID)))
			}
			if rule.Task == constraints.Prohibited && rec.HasTask {
				errs = append(errs, refError(ref, "reference-task", fmt.Sprintf(
					"reference to %s must not carry a task checkbox", rec.ID)))
			}
			if rule.Priority == constraints.Required && !rec.HasPriority() {
				errs = append(errs, refError(ref, "reference-priority", fmt.Sprintf(
					"reference to %s is missing a priority token", rec.ID)))
			}
			if rule.Priority == constraints.Prohibited && rec.HasPriority() {
				errs = append(errs, refError(ref, "reference-priority", fmt.Sprintf(
					"reference to %s must not carry a priority token", rec.ID)))
			}
			if len(rule.Headings) > 0 && !rule.HeadingAllowed(rec.Headings) {
				errs = append(errs, refError(ref, "heading-scope", fmt.Sprintf(
					"reference to %s must appear under one of: %s", rec.ID, strings.Join(rule.Headings, ", "))).
					With("section", strings.Join(rec.Headings, " > ")))
			}
		}
	}
	return errs
}

// checkTaskStates: a checked reference implies its definition is checked,
// never the reverse.
func checkTaskStates(ix *Index) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		defChecked, defKnown := aggregateChecked(ix.defs[key])
		if !defKnown || defChecked {
			continue
		}
		for _, ref := range ix.refs[key] {
			if ref.Rec.Checked != nil && *ref.Rec.Checked {
				errs = append(errs, refError(ref, "task-state", fmt.Sprintf(
					"reference to %s is checked but its definition is not", ref.Rec.ID)))
			}
		}
	}
	return errs
}

// aggregateChecked reports whether any definition carries an explicit
// checkbox, and whether any of those is checked.
func aggregateChecked(defs []Entry) (checked, known bool) {
	for _, d := range defs {
		if d.Rec.Checked == nil {
			continue
		}
		known = true
		if *d.Rec.Checked {
			checked = true
		}
	}
	return checked, known
}

// checkHeadingScopes applies declared heading rules symmetrically to
// references.
func checkHeadingScopes(ix *Index, model *constraints.Model) []report.Error {
	var errs []report.Error
	for _, key := range ix.order {
		for _, ref := range ix.refs[key] {
			rec := ref.Rec
			if rec.Kind == "" {
				continue
			}
			kc := model.Kind(ref.ArtifactKind)
			if kc == nil {
				continue
			}
			idc := kc.ID(rec.Kind)
			if idc == nil || len(idc.Headings) == 0 || idc.HeadingAllowed(rec.Headings) {
				continue
			}
			errs = append(errs, refError(ref, "heading-scope", fmt.Sprintf(
				"reference to %s must appear under one of: %s", rec.ID, strings.Join(idc.Headings, ", "))).
				With("section", strings.Join(rec.Headings, " > ")))
		}
	}
	return errs
}

type targetRule struct {
	target string
	rule   *constraints.ReferenceRule
}

// sortedRefs returns a rule map in deterministic target order.
func sortedRefs(refs map[string]*constraints.ReferenceRule) []targetRule {
	out := make([]targetRule, 0, len(refs))
	for target, rule := range refs {
		out = append(out, targetRule{target, rule})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].target < out[j].target })
	return out
}

func refError(ref Entry, rule, msg string) report.Error {
	return report.Error{
		Type:    report.TypeReference,
		Message: msg,
		Path:    ref.Path,
		Line:    ref.Rec.Line,
		Context: map[string]string{"id": ref.Rec.ID, "rule": rule},
	}
}

func defError(def Entry, rule, msg string) report.Error {
	return report.Error{
		Type:    report.TypeReference,
		Message: msg,
		Path:    def.Path,
		Line:    def.Rec.Line,
		Context: map[string]string{"id": def.Rec.ID, "rule": rule},
	}
}
