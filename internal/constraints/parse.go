package constraints

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Issue is one rejection found while loading a constraint document.
type Issue struct {
	Line    int
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("line %d: %s: %s", i.Line, i.Field, i.Message)
	}
	return fmt.Sprintf("line %d: %s", i.Line, i.Message)
}

// ParseError aggregates every issue in a rejected document. Partial
// acceptance is explicitly disallowed: a document either loads whole or not
// at all.
type ParseError struct {
	Issues []Issue
}

func (e *ParseError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("constraint document rejected: %s", strings.Join(parts, "; "))
}

// Load reads and parses a constraint document from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}
	return Parse(data)
}

// Parse builds a Model from document bytes. The document maps artifact kind
// to {name, description, identifiers}; keys starting with $ are schema
// metadata and ignored.
func Parse(data []byte) (*Model, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid constraint document: %w", err)
	}
	top := rootMapping(&root)
	if top == nil {
		return nil, fmt.Errorf("constraint document must be a mapping of artifact kinds")
	}

	model := &Model{kinds: map[string]*KindConstraints{}}
	var issues []Issue

	eachPair(top, func(key, value *yaml.Node) {
		if strings.HasPrefix(key.Value, "$") {
			return
		}
		kc, kindIssues := parseKind(key.Value, value)
		issues = append(issues, kindIssues...)
		lower := strings.ToLower(key.Value)
		if _, dup := model.kinds[lower]; dup {
			issues = append(issues, Issue{
				Line:    nodeLine(key),
				Field:   key.Value,
				Message: "duplicate artifact kind",
			})
			return
		}
		model.kinds[lower] = kc
		model.order = append(model.order, lower)
	})

	if len(issues) > 0 {
		return nil, &ParseError{Issues: issues}
	}
	return model, nil
}

// parseKind builds one artifact kind's constraints.
func parseKind(kind string, node *yaml.Node) (*KindConstraints, []Issue) {
	var issues []Issue
	kc := &KindConstraints{Kind: kind, Line: nodeLine(node)}

	if rootMapping(node) == nil {
		return kc, []Issue{{Line: nodeLine(node), Field: kind, Message: "artifact kind must be a mapping"}}
	}

	if n := findNode(node, "name"); n != nil {
		kc.Name = n.Value
	}
	if n := findNode(node, "description"); n != nil {
		kc.Description = n.Value
	}

	ids := findNode(node, "identifiers")
	if ids == nil {
		issues = append(issues, Issue{Line: nodeLine(node), Field: kind, Message: "missing required field: identifiers"})
		return kc, issues
	}
	if rootMapping(ids) == nil {
		issues = append(issues, Issue{Line: nodeLine(ids), Field: kind + ".identifiers", Message: "identifiers must be a mapping"})
		return kc, issues
	}

	seen := map[string]bool{}
	eachPair(ids, func(key, value *yaml.Node) {
		field := fmt.Sprintf("%s.identifiers.%s", kind, key.Value)
		lower := strings.ToLower(key.Value)
		if seen[lower] {
			// Duplicate identifier kinds are a load-time error, never
			// silently merged.
			issues = append(issues, Issue{Line: nodeLine(key), Field: field, Message: "duplicate identifier kind"})
			return
		}
		seen[lower] = true

		idc, idIssues := parseIDConstraint(key.Value, field, value)
		issues = append(issues, idIssues...)
		kc.IDs = append(kc.IDs, idc)
	})

	return kc, issues
}

// parseIDConstraint builds the rule for one identifier kind.
func parseIDConstraint(kind, field string, node *yaml.Node) (*IDConstraint, []Issue) {
	var issues []Issue
	idc := &IDConstraint{
		Kind:     kind,
		Required: true,
		Task:     Allowed,
		Priority: Allowed,
		Line:     nodeLine(node),
	}

	if node.Kind == yaml.ScalarNode && node.Value == "" {
		// Bare key with no body: all defaults.
		return idc, nil
	}
	if rootMapping(node) == nil {
		return idc, []Issue{{Line: nodeLine(node), Field: field, Message: "rule must be a mapping"}}
	}

	if n := findNode(node, "required"); n != nil {
		if v, ok := boolValue(n); ok {
			idc.Required = v
		} else {
			issues = append(issues, Issue{Line: nodeLine(n), Field: field + ".required", Message: "must be a boolean"})
		}
	}

	idc.Task = parseTriState(findNode(node, "task"), field+".task", idc.Task, &issues)
	idc.Priority = parseTriState(findNode(node, "priority"), field+".priority", idc.Priority, &issues)

	if n := findNode(node, "headings"); n != nil {
		if list, ok := stringList(n); ok {
			idc.Headings = list
		} else {
			issues = append(issues, Issue{Line: nodeLine(n), Field: field + ".headings", Message: "must be a list of strings"})
		}
	}

	if refs := findNode(node, "references"); refs != nil {
		if rootMapping(refs) == nil {
			issues = append(issues, Issue{Line: nodeLine(refs), Field: field + ".references", Message: "must be a mapping of target artifact kinds"})
		} else {
			idc.References = map[string]*ReferenceRule{}
			eachPair(refs, func(key, value *yaml.Node) {
				refField := fmt.Sprintf("%s.references.%s", field, key.Value)
				rule, refIssues := parseReferenceRule(refField, value)
				issues = append(issues, refIssues...)
				idc.References[key.Value] = rule
			})
		}
	}

	return idc, issues
}

// parseReferenceRule builds a cross-kind coverage rule.
func parseReferenceRule(field string, node *yaml.Node) (*ReferenceRule, []Issue) {
	var issues []Issue
	rule := &ReferenceRule{
		Coverage: CoverageOptional,
		Task:     Allowed,
		Priority: Allowed,
		Line:     nodeLine(node),
	}
	if rootMapping(node) == nil {
		return rule, []Issue{{Line: nodeLine(node), Field: field, Message: "reference rule must be a mapping"}}
	}

	if n := findNode(node, "coverage"); n != nil {
		switch Coverage(n.Value) {
		case CoverageRequired, CoverageOptional, CoverageProhibited:
			rule.Coverage = Coverage(n.Value)
		default:
			issues = append(issues, Issue{
				Line:    nodeLine(n),
				Field:   field + ".coverage",
				Message: fmt.Sprintf("invalid value %q (want required, optional, or prohibited)", n.Value),
			})
		}
	}

	rule.Task = parseTriState(findNode(node, "task"), field+".task", rule.Task, &issues)
	rule.Priority = parseTriState(findNode(node, "priority"), field+".priority", rule.Priority, &issues)

	if n := findNode(node, "headings"); n != nil {
		if list, ok := stringList(n); ok {
			rule.Headings = list
		} else {
			issues = append(issues, Issue{Line: nodeLine(n), Field: field + ".headings", Message: "must be a list of strings"})
		}
	}

	return rule, issues
}

// parseTriState accepts a boolean (true means required, false prohibited) or
// one of the three literal tri-state strings. Any other value is an error
// naming the offending field.
func parseTriState(node *yaml.Node, field string, fallback TriState, issues *[]Issue) TriState {
	if node == nil {
		return fallback
	}
	if v, ok := boolValue(node); ok {
		if v {
			return Required
		}
		return Prohibited
	}
	switch TriState(node.Value) {
	case Required, Allowed, Prohibited:
		return TriState(node.Value)
	}
	*issues = append(*issues, Issue{
		Line:    nodeLine(node),
		Field:   field,
		Message: fmt.Sprintf("invalid value %q (want a boolean or required, allowed, prohibited)", node.Value),
	})
	return fallback
}
