// Package artifact parses candidate files against a template's block catalog
// and validates their structure, content shapes, cardinality, and declared
// identifier constraints.
package artifact

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/specmark/specmark/internal/marker"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

// Block is one marker-delimited span found in an artifact. Template is a
// reference, not ownership: several artifact blocks may reference the same
// template block under repeat=many ancestry. Unknown blocks are synthetic
// descriptors for markers the template does not declare.
type Block struct {
	Template  *template.Block
	Kind      marker.Kind
	Name      string
	Unknown   bool
	Content   []string
	StartLine int
	EndLine   int
}

// Key returns the (kind, name) matching key.
func (b *Block) Key() string {
	return string(b.Kind) + ":" + b.Name
}

// Has reports whether the matched template declaration demands the token.
// Unknown blocks demand nothing.
func (b *Block) Has(tok string) bool {
	return b.Template != nil && b.Template.Has(tok)
}

// Encloses reports whether b strictly contains other by line range.
func (b *Block) Encloses(other *Block) bool {
	return b.StartLine < other.StartLine && other.EndLine < b.EndLine
}

// InnermostEnclosing returns the innermost artifact block strictly enclosing
// target, computed geometrically as for template blocks.
func InnermostEnclosing(blocks []*Block, target *Block) *Block {
	var innermost *Block
	for _, b := range blocks {
		if b == target || !b.Encloses(target) {
			continue
		}
		if innermost == nil || innermost.Encloses(b) {
			innermost = b
		}
	}
	return innermost
}

// Artifact is a parsed candidate file.
type Artifact struct {
	Template *template.Template
	Path     string
	Blocks   []*Block

	// StructuralErrors collects unclosed markers, unknown markers, and scan
	// failures. Block identity cannot be trusted once any are present, so
	// content and cardinality checks are skipped; markerless identifier
	// scanning still runs.
	StructuralErrors []report.Error

	lines   []string
	ids     []*IDRecord
	scanned bool
}

// StructuralOK reports whether block identity can be trusted.
func (a *Artifact) StructuralOK() bool {
	return len(a.StructuralErrors) == 0
}

// Load reads and parses the artifact file against tmpl.
func Load(tmpl *template.Template, path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return Parse(tmpl, path, data), nil
}

// Parse re-scans the artifact's lines with the marker scanner and matches
// each opening marker against the template's block catalog.
func Parse(tmpl *template.Template, path string, src []byte) *Artifact {
	a := &Artifact{
		Template: tmpl,
		Path:     path,
		lines:    strings.Split(string(src), "\n"),
	}
	a.scanBlocks()
	return a
}

func (a *Artifact) scanBlocks() {
	type openMarker struct {
		occ marker.Occurrence
	}
	var stack []openMarker

	start := bodyStart(a.lines)
	for i := start - 1; i < len(a.lines); i++ {
		lineNum := i + 1
		occs, scanErrs := marker.ScanLine(a.lines[i], lineNum)
		for _, se := range scanErrs {
			a.addStructural(se.Line, se.Msg, nil)
		}
		for _, occ := range occs {
			if !occ.Close {
				stack = append(stack, openMarker{occ: occ})
				continue
			}
			if len(stack) == 0 {
				a.addStructural(occ.Line, fmt.Sprintf("close marker %s has no open marker", occ.Key()), nil)
				continue
			}
			top := stack[len(stack)-1]
			if top.occ.Key() != occ.Key() {
				a.addStructural(top.occ.Line, fmt.Sprintf("unclosed marker %s", top.occ.Key()), nil)
				stack = stack[:len(stack)-1]
				continue
			}
			stack = stack[:len(stack)-1]
			a.emit(top.occ, occ.Line)
		}
	}
	for _, open := range stack {
		a.addStructural(open.occ.Line, fmt.Sprintf("unclosed marker %s", open.occ.Key()), nil)
	}

	orderByStart(a.Blocks)
}

// emit materializes a matched pair into an artifact block. Matching against
// the template is by (kind, name); when several template blocks share the key
// under repeat=many ancestry, the first serves as a structural reference only
// and exact identity is resolved later by line containment.
func (a *Artifact) emit(open marker.Occurrence, endLine int) {
	b := &Block{
		Kind:      open.Kind,
		Name:      open.Name,
		StartLine: open.Line,
		EndLine:   endLine,
	}
	if open.Line < endLine-1 {
		b.Content = a.lines[open.Line : endLine-1]
	}

	candidates := a.Template.Lookup(open.Kind, open.Name)
	if len(candidates) == 0 {
		// A marker the template never declared is a typo or structural
		// drift; it fails regardless of the unknown_sections policy, which
		// only governs free prose.
		b.Unknown = true
		a.Blocks = append(a.Blocks, b)
		a.addStructural(open.Line, fmt.Sprintf("unknown marker %s not declared by template", b.Key()), map[string]string{
			"artifact_kind": a.Template.Kind,
		})
		return
	}
	b.Template = candidates[0]
	a.Blocks = append(a.Blocks, b)
}

func (a *Artifact) addStructural(line int, msg string, ctx map[string]string) {
	a.StructuralErrors = append(a.StructuralErrors, report.Error{
		Type:    report.TypeStructure,
		Message: msg,
		Path:    a.Path,
		Line:    line,
		Context: ctx,
	})
}

// bodyStart returns the 1-based first line after any front matter block.
func bodyStart(lines []string) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 1
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i + 2
		}
	}
	return 1
}

func orderByStart(blocks []*Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartLine < blocks[j].StartLine
	})
}

// blockAt returns the innermost artifact block whose span contains the given
// line, or nil.
func (a *Artifact) blockAt(line int) *Block {
	var innermost *Block
	for _, b := range a.Blocks {
		if line <= b.StartLine || line >= b.EndLine {
			continue
		}
		if innermost == nil || (innermost.StartLine < b.StartLine && b.EndLine < innermost.EndLine) {
			innermost = b
		}
	}
	return innermost
}
