package constraints

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specmark/specmark/internal/marker"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

// Apply merges the model's rules for the template's kind onto its id blocks.
// Constraints tighten an existing contract: a rule whose kind matches no
// block is an error, and a rule that contradicts an explicit template
// attribute is recorded as a conflict, never silently overridden. A template
// is mutated at most once; repeat calls are no-ops.
func Apply(m *Model, t *template.Template) []report.Error {
	if t.ConstraintsApplied {
		return nil
	}
	t.ConstraintsApplied = true

	kc := m.Kind(t.Kind)
	if kc == nil {
		return nil
	}

	var errs []report.Error
	for _, idc := range kc.IDs {
		matched := false
		for _, b := range t.IDBlocks() {
			if !strings.EqualFold(b.Name, idc.Kind) {
				continue
			}
			matched = true
			errs = append(errs, mergeDirective(t.Path, b, idc.Kind, "task", idc.Task)...)
			errs = append(errs, mergeDirective(t.Path, b, idc.Kind, "priority", idc.Priority)...)
		}
		if !matched {
			errs = append(errs, report.Error{
				Type:    report.TypeConstraints,
				Message: fmt.Sprintf("constraint references missing template block: no id block named %q", idc.Kind),
				Path:    t.Path,
				Context: map[string]string{"id_kind": idc.Kind},
			})
		}
	}
	return errs
}

// mergeDirective folds one tri-state directive into a block's has token set.
// required adds the token, prohibited removes it, allowed is a no-op. A
// directive that fights the template's own explicit token membership is a
// constraint-contradicts-template error.
func mergeDirective(path string, b *template.Block, idKind, token string, directive TriState) []report.Error {
	present := b.Has(token)
	switch directive {
	case Required:
		if present {
			return nil
		}
		if b.HasDeclared() {
			// The template author enumerated the token set and left this one
			// out; the rule demands it. Record the conflict, keep the
			// template's text.
			return []report.Error{contradiction(path, b, idKind, token, "required", "explicitly absent")}
		}
		setTokens(b, append(marker.Tokens(b.Attrs["has"]), token))
	case Prohibited:
		if !present {
			return nil
		}
		return []report.Error{contradiction(path, b, idKind, token, "prohibited", "explicitly present")}
	case Allowed:
	}
	return nil
}

func contradiction(path string, b *template.Block, idKind, token, directive, state string) report.Error {
	return report.Error{
		Type:    report.TypeConstraints,
		Message: fmt.Sprintf("constraint contradicts template: %s token is %s on block %s but rule says %s", token, state, b.Key(), directive),
		Path:    path,
		Line:    b.StartLine,
		Context: map[string]string{"id_kind": idKind, "token": token},
	}
}

func setTokens(b *template.Block, tokens []string) {
	sort.Strings(tokens)
	b.Attrs["has"] = strings.Join(tokens, ",")
}
