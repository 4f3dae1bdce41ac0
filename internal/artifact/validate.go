package artifact

import (
	"fmt"
	"strings"

	"github.com/specmark/specmark/internal/constraints"
	"github.com/specmark/specmark/internal/identifier"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

// Validator walks a parsed artifact applying content, cardinality, nesting,
// and strict constraint checks. Constraints and Resolver are optional; the
// strict pass runs only when both are set.
type Validator struct {
	Template    *template.Template
	Constraints *constraints.KindConstraints
	Resolver    *identifier.Resolver
}

// Validate returns every violation found in the artifact. Violations
// accumulate rather than short-circuit so a single pass surfaces everything
// at once. Structural errors suppress the remaining structural checks, since
// block identity cannot be trusted past that point; the strict identifier
// pass is markerless and runs regardless.
func (v *Validator) Validate(a *Artifact) []report.Error {
	errs := append([]report.Error(nil), a.StructuralErrors...)

	if a.StructuralOK() {
		for _, b := range a.Blocks {
			errs = append(errs, checkContent(a.Path, b)...)
		}
		errs = append(errs, v.checkCardinality(a)...)
		errs = append(errs, v.checkNesting(a)...)
		if v.Template.Policy == template.PolicyError {
			errs = append(errs, v.UnknownSections(a)...)
		}
	}

	if v.Constraints != nil && v.Resolver != nil {
		errs = append(errs, v.checkStrict(a)...)
	}
	return errs
}

// checkCardinality enforces required and repeat=one rules per distinct
// (kind, name) key. Instances are scoped to their nearest repeat=many
// ancestor: siblings under different repeated containers never count against
// each other.
func (v *Validator) checkCardinality(a *Artifact) []report.Error {
	var errs []report.Error

	catalog := map[string]*template.Block{}
	var order []string
	for _, tb := range v.Template.Blocks {
		if _, ok := catalog[tb.Key()]; !ok {
			catalog[tb.Key()] = tb
			order = append(order, tb.Key())
		}
	}

	instances := map[string][]*Block{}
	for _, ab := range a.Blocks {
		if !ab.Unknown {
			instances[ab.Key()] = append(instances[ab.Key()], ab)
		}
	}

	for _, key := range order {
		tb := catalog[key]
		ins := instances[key]
		if tb.Required && len(ins) == 0 {
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("required block %s is missing", key),
				Path:    a.Path,
				Context: map[string]string{"artifact_kind": v.Template.Kind},
			})
			continue
		}
		if tb.Repeat != template.RepeatOne {
			continue
		}
		seen := map[*Block]int{}
		for _, ab := range ins {
			anc := v.nearestManyAncestor(a, ab)
			seen[anc]++
			if seen[anc] == 2 {
				errs = append(errs, report.Error{
					Type:    report.TypeStructure,
					Message: fmt.Sprintf("Block %s must appear once", key),
					Path:    a.Path,
					Line:    ab.StartLine,
					Context: map[string]string{"artifact_kind": v.Template.Kind},
				})
			}
		}
	}
	return errs
}

// nearestManyAncestor walks the enclosing chain for the closest artifact
// block whose template declaration repeats. nil keys the top-level group.
func (v *Validator) nearestManyAncestor(a *Artifact, ab *Block) *Block {
	for cur := InnermostEnclosing(a.Blocks, ab); cur != nil; cur = InnermostEnclosing(a.Blocks, cur) {
		if cur.Template != nil && cur.Template.Repeat == template.RepeatMany {
			return cur
		}
	}
	return nil
}

// checkNesting verifies each block sits under the parent its template
// declaration sits under, unless that template parent repeats, in which case
// repeated containers may vary their internal shape per instance.
func (v *Validator) checkNesting(a *Artifact) []report.Error {
	var errs []report.Error
	for _, ab := range a.Blocks {
		if ab.Template == nil {
			continue
		}
		tparent := template.InnermostEnclosing(v.Template.Blocks, ab.Template)
		if tparent != nil && tparent.Repeat == template.RepeatMany {
			continue
		}
		aparent := InnermostEnclosing(a.Blocks, ab)

		switch {
		case tparent == nil && aparent == nil:
		case tparent == nil:
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("block %s must be top-level, found inside %s", ab.Key(), aparent.Key()),
				Path:    a.Path,
				Line:    ab.StartLine,
			})
		case aparent == nil || aparent.Key() != tparent.Key():
			found := "top level"
			if aparent != nil {
				found = aparent.Key()
			}
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("block %s must be nested inside %s, found at %s", ab.Key(), tparent.Key(), found),
				Path:    a.Path,
				Line:    ab.StartLine,
				Context: map[string]string{"expected_parent": tparent.Key()},
			})
		}
	}
	return errs
}

// UnknownSections returns a record for every heading that opens prose outside
// all declared block spans. The template's unknown_sections policy decides
// whether these become errors, warnings, or accepted prose; unknown markers
// are structural errors regardless. Callers route warn-policy records to the
// warning tier themselves.
func (v *Validator) UnknownSections(a *Artifact) []report.Error {
	var errs []report.Error
	inFence := false
	for i := bodyStart(a.lines) - 1; i < len(a.lines); i++ {
		line := a.lines[i]
		if fencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum := i + 1
		if a.blockAt(lineNum) != nil {
			continue
		}
		errs = append(errs, report.Error{
			Type:    report.TypeStructure,
			Message: fmt.Sprintf("section %q is not part of the %s template", m[2], v.Template.Kind),
			Path:    a.Path,
			Line:    lineNum,
			Context: map[string]string{"section": m[2], "artifact_kind": v.Template.Kind},
		})
	}
	return errs
}

// checkStrict applies the constraint model to the artifact's identifier
// definitions: allow-listed kinds only, required kinds present, heading
// scoping honored.
func (v *Validator) checkStrict(a *Artifact) []report.Error {
	var errs []report.Error
	kc := v.Constraints
	defs := a.Definitions(v.Resolver)

	counts := map[string]int{}
	for _, d := range defs {
		if d.System == "" {
			// Unregistered system: external identifier, not ours to police.
			continue
		}
		idc := kc.ID(d.Kind)
		if idc == nil {
			errs = append(errs, report.Error{
				Type:    report.TypeConstraints,
				Message: fmt.Sprintf("identifier kind %q is not allowed in %s artifacts", d.Kind, kc.Kind),
				Path:    a.Path,
				Line:    d.Line,
				Context: map[string]string{"id": d.ID, "artifact_kind": kc.Kind},
			})
			continue
		}
		counts[strings.ToLower(d.Kind)]++
		if !idc.HeadingAllowed(d.Headings) {
			errs = append(errs, report.Error{
				Type:    report.TypeConstraints,
				Message: fmt.Sprintf("definition of %s must appear under one of: %s", d.ID, strings.Join(idc.Headings, ", ")),
				Path:    a.Path,
				Line:    d.Line,
				Context: map[string]string{"id": d.ID, "section": strings.Join(d.Headings, " > ")},
			})
		}
	}

	for _, idc := range kc.IDs {
		if idc.Required && counts[strings.ToLower(idc.Kind)] == 0 {
			errs = append(errs, report.Error{
				Type:    report.TypeConstraints,
				Message: fmt.Sprintf("required identifier kind %q has no definition", idc.Kind),
				Path:    a.Path,
				Context: map[string]string{"id_kind": idc.Kind, "artifact_kind": kc.Kind},
			})
		}
	}
	return errs
}
