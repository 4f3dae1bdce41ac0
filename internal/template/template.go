// Package template parses marker-delimited template files into ordered Block
// lists. A template is the structural contract an artifact of the same kind
// is validated against.
package template

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specmark/specmark/internal/marker"
	"github.com/specmark/specmark/internal/report"
)

// Policy controls how unknown free-prose sections in an artifact are treated.
// Unknown markers are always errors regardless of policy.
type Policy string

const (
	PolicyError Policy = "error"
	PolicyWarn  Policy = "warn"
	PolicyAllow Policy = "allow"
)

// Version is a template's declared major.minor version pair.
type Version struct {
	Major int `yaml:"major"`
	Minor int `yaml:"minor"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// frontMatter is the optional key-value block preceding the template body.
type frontMatter struct {
	Kind            string  `yaml:"kind"`
	Version         Version `yaml:"version"`
	UnknownSections Policy  `yaml:"unknown_sections"`
}

// kindFromPathPattern infers the artifact kind from a conventional
// .../artifacts/{KIND}/template.md location.
var kindFromPathPattern = regexp.MustCompile(`artifacts[/\\]([^/\\]+)[/\\]template\.md$`)

// Template is a parsed template file and its block catalog.
type Template struct {
	Path    string
	Kind    string
	Version Version
	Policy  Policy
	Blocks  []*Block

	// Problems collects structural errors found during the parse. A template
	// with problems still exposes the blocks that closed cleanly.
	Problems []report.Error

	// ConstraintsApplied guards the one-shot constraint merge.
	ConstraintsApplied bool

	loaded bool
}

// New returns an unloaded template for path. Parsing happens on Load.
func New(path string) *Template {
	return &Template{Path: path, Policy: PolicyError}
}

// Load reads and parses the template file. Load is idempotent: a second call
// is a no-op, and re-parsing never mutates an already loaded template.
func (t *Template) Load() error {
	if t.loaded {
		return nil
	}
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	t.parse(data)
	t.loaded = true
	return nil
}

// Parse builds a template directly from source bytes. Used by tests and by
// callers that already hold the file contents.
func Parse(path string, src []byte) *Template {
	t := New(path)
	t.parse(src)
	t.loaded = true
	return t
}

func (t *Template) parse(src []byte) {
	lines := strings.Split(string(src), "\n")

	body, bodyStart, err := splitFrontMatter(lines)
	if err != nil {
		t.Problems = append(t.Problems, report.Error{
			Type:    report.TypeStructure,
			Message: err.Error(),
			Path:    t.Path,
			Line:    1,
		})
	} else if fm := t.applyFrontMatter(lines); fm != nil {
		t.Problems = append(t.Problems, *fm)
	}
	if t.Kind == "" {
		if m := kindFromPathPattern.FindStringSubmatch(t.Path); m != nil {
			t.Kind = m[1]
		}
	}
	if t.Policy == "" {
		t.Policy = PolicyError
	}

	t.Blocks, t.Problems = scanBlocks(t.Path, body, bodyStart, t.Problems)
	t.Problems = append(t.Problems, checkCollisions(t.Path, t.Blocks)...)
}

// applyFrontMatter decodes the front matter block, returning an error record
// on malformed YAML or an invalid policy value.
func (t *Template) applyFrontMatter(lines []string) *report.Error {
	raw, ok := frontMatterSource(lines)
	if !ok {
		return nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return &report.Error{
			Type:    report.TypeStructure,
			Message: fmt.Sprintf("invalid front matter: %v", err),
			Path:    t.Path,
			Line:    1,
		}
	}
	t.Kind = fm.Kind
	t.Version = fm.Version
	if fm.UnknownSections != "" {
		switch fm.UnknownSections {
		case PolicyError, PolicyWarn, PolicyAllow:
			t.Policy = fm.UnknownSections
		default:
			t.Policy = PolicyError
			return &report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("invalid unknown_sections policy %q (want error, warn, or allow)", fm.UnknownSections),
				Path:    t.Path,
				Line:    1,
			}
		}
	}
	return nil
}

// KindFromSource returns the kind declared in a file's front matter, or ""
// when no front matter or no kind is present. Artifacts use the same front
// matter convention as templates.
func KindFromSource(src []byte) string {
	raw, ok := frontMatterSource(strings.Split(string(src), "\n"))
	if !ok {
		return ""
	}
	var fm frontMatter
	if yaml.Unmarshal([]byte(raw), &fm) != nil {
		return ""
	}
	return fm.Kind
}

// frontMatterSource returns the raw YAML between the leading --- fences.
func frontMatterSource(lines []string) (string, bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return "", false
}

// splitFrontMatter returns the body lines and the 1-based line number the
// body starts on. An opening fence with no closing fence is an error.
func splitFrontMatter(lines []string) (body []string, bodyStart int, err error) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return lines, 1, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[i+1:], i + 2, nil
		}
	}
	return nil, 1, fmt.Errorf("unterminated front matter block")
}

// openMarker is a stack entry for an open marker awaiting its close.
type openMarker struct {
	occ marker.Occurrence
}

// scanBlocks runs the single top-to-bottom scan over the body, pairing
// markers with a stack. A close must match the stack top exactly; a mismatch
// is reported as an unclosed marker for the original opener rather than
// silently resynchronized, since resync would mask structural corruption.
func scanBlocks(path string, body []string, bodyStart int, problems []report.Error) ([]*Block, []report.Error) {
	var blocks []*Block
	var stack []openMarker

	for i, line := range body {
		lineNum := bodyStart + i
		occs, scanErrs := marker.ScanLine(line, lineNum)
		for _, se := range scanErrs {
			problems = append(problems, report.Error{
				Type:    report.TypeStructure,
				Message: se.Msg,
				Path:    path,
				Line:    se.Line,
			})
		}
		for _, occ := range occs {
			if !occ.Close {
				stack = append(stack, openMarker{occ: occ})
				continue
			}
			if len(stack) == 0 {
				problems = append(problems, report.Error{
					Type:    report.TypeStructure,
					Message: fmt.Sprintf("close marker %s has no open marker", occ.Key()),
					Path:    path,
					Line:    occ.Line,
				})
				continue
			}
			top := stack[len(stack)-1]
			if top.occ.Key() != occ.Key() {
				problems = append(problems, report.Error{
					Type:    report.TypeStructure,
					Message: fmt.Sprintf("unclosed marker %s", top.occ.Key()),
					Path:    path,
					Line:    top.occ.Line,
				})
				// The mismatched close is reported against the opener; the
				// close itself is dropped along with the broken stack entry.
				stack = stack[:len(stack)-1]
				continue
			}
			stack = stack[:len(stack)-1]
			block, errs := buildBlock(path, top.occ, occ.Line)
			problems = append(problems, errs...)
			blocks = append(blocks, block)
		}
	}

	for _, open := range stack {
		problems = append(problems, report.Error{
			Type:    report.TypeStructure,
			Message: fmt.Sprintf("unclosed marker %s", open.occ.Key()),
			Path:    path,
			Line:    open.occ.Line,
		})
	}

	orderByStart(blocks)
	return blocks, problems
}

// buildBlock materializes a Block from a matched open/close pair, validating
// the cardinality attributes.
func buildBlock(path string, open marker.Occurrence, endLine int) (*Block, []report.Error) {
	var errs []report.Error

	b := &Block{
		Kind:      open.Kind,
		Name:      open.Name,
		Required:  true,
		Repeat:    RepeatOne,
		Attrs:     open.Attrs,
		StartLine: open.Line,
		EndLine:   endLine,
	}
	if b.Attrs == nil {
		b.Attrs = map[string]string{}
	}

	if v, ok := b.Attrs["required"]; ok {
		b.Required = v != "false"
	}
	if v, ok := b.Attrs["repeat"]; ok {
		switch Repeat(v) {
		case RepeatOne, RepeatMany:
			b.Repeat = Repeat(v)
		default:
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("invalid repeat value %q for block %s (want one or many)", v, b.Key()),
				Path:    path,
				Line:    open.Line,
			})
		}
	}

	// Identifier kinds are concatenated into compound names later; a hyphen
	// in the kind name would make those compounds ambiguous.
	if b.Kind == marker.KindID && strings.Contains(b.Name, "-") {
		errs = append(errs, report.Error{
			Type:    report.TypeStructure,
			Message: fmt.Sprintf("id block name %q must not contain hyphens", b.Name),
			Path:    path,
			Line:    open.Line,
		})
	}

	return b, errs
}

// checkCollisions reports duplicate (kind, name) keys that share the same
// enclosing block. Duplicates under distinct repeat=many containers are
// legitimate repeated structure.
func checkCollisions(path string, blocks []*Block) []report.Error {
	var errs []report.Error
	seen := map[string]*Block{}
	for _, b := range blocks {
		parent := InnermostEnclosing(blocks, b)
		key := b.Key()
		if parent != nil {
			key = fmt.Sprintf("%s@%d", key, parent.StartLine)
		}
		if first, ok := seen[key]; ok {
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: fmt.Sprintf("duplicate block %s collides with declaration at line %d", b.Key(), first.StartLine),
				Path:    path,
				Line:    b.StartLine,
			})
			continue
		}
		seen[key] = b
	}
	return errs
}

// Lookup returns all blocks with the given (kind, name) key in declaration
// order. Several blocks may share a key under repeat=many ancestry; callers
// use the first as a structural reference and resolve exact identity by line
// containment.
func (t *Template) Lookup(kind marker.Kind, name string) []*Block {
	var out []*Block
	for _, b := range t.Blocks {
		if b.Kind == kind && b.Name == name {
			out = append(out, b)
		}
	}
	return out
}

// IDBlocks returns the template's identifier blocks in declaration order.
func (t *Template) IDBlocks() []*Block {
	var out []*Block
	for _, b := range t.Blocks {
		if b.Kind == marker.KindID {
			out = append(out, b)
		}
	}
	return out
}

func orderByStart(blocks []*Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartLine < blocks[j].StartLine
	})
}
