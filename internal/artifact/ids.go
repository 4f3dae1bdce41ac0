package artifact

import (
	"regexp"
	"strings"

	"github.com/specmark/specmark/internal/identifier"
)

// IDRecord is one identifier definition or reference found by the markerless
// scan. Kind and System come from first-segment resolution; both are empty
// when the token's system is unregistered, and Err keeps the resolution
// failure for callers that distinguish external tokens from ambiguous ones.
type IDRecord struct {
	ID         string
	System     string
	Kind       string
	Line       int
	Definition bool
	Checked    *bool // nil when the line carries no checkbox
	HasTask    bool
	Priority   string
	Headings   []string // open heading titles at the line, outermost first
	Block      *Block   // owning block, nil for prose outside any block
	Err        error
}

// HasPriority reports whether the record's line carried a priority token.
func (r *IDRecord) HasPriority() bool {
	return r.Priority != ""
}

var (
	fencePattern    = regexp.MustCompile("^\\s*(```|~~~)")
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	defLinePattern  = regexp.MustCompile(`^\s*(?:[-*]\s+\[([ xX])\]\s+)?\*\*ID\*\*:`)
	checkboxPattern = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+`)
	priorityPattern = regexp.MustCompile(`\bP([0-3])\b`)
)

// tokenPattern matches backticked identifier tokens for the given scheme.
// Case-insensitive to match the resolver and the crossref index keys.
func tokenPattern(scheme string) *regexp.Regexp {
	return regexp.MustCompile("(?i)`(" + regexp.QuoteMeta(scheme) + "-[A-Za-z0-9][A-Za-z0-9-]*)`")
}

// IDs runs the markerless identifier scan over the artifact's raw text. The
// scan is derived directly from the text, ignoring the marker structure,
// because a reference can legally appear in prose outside any id-ref block.
// The result is computed at most once per Artifact and reflects only content
// outside fenced code blocks.
func (a *Artifact) IDs(res *identifier.Resolver) []*IDRecord {
	if a.scanned {
		return a.ids
	}
	a.scanned = true

	pattern := tokenPattern(res.Scheme())
	inFence := false
	var headings []string // headings[i] is the open title at depth i+1

	for i, line := range a.lines {
		lineNum := i + 1
		if fencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			if level <= len(headings) {
				headings = headings[:level-1]
			}
			headings = append(headings, m[2])
			continue
		}

		tokens := pattern.FindAllStringSubmatch(line, -1)
		if len(tokens) == 0 {
			continue
		}

		isDef := defLinePattern.MatchString(line)
		var checked *bool
		if m := checkboxPattern.FindStringSubmatch(line); m != nil {
			v := strings.EqualFold(m[1], "x")
			checked = &v
		}
		priority := ""
		if m := priorityPattern.FindString(line); m != "" {
			priority = m
		}
		stack := append([]string(nil), headings...)
		block := a.blockAt(lineNum)

		for t, tok := range tokens {
			rec := &IDRecord{
				ID:         tok[1],
				Line:       lineNum,
				Definition: isDef && t == 0,
				Checked:    checked,
				HasTask:    checked != nil,
				Priority:   priority,
				Headings:   stack,
				Block:      block,
			}
			if parsed, err := res.ResolveAny(tok[1]); err != nil {
				rec.Err = err
			} else {
				rec.System = parsed.System
				rec.Kind = parsed.Kind
			}
			a.ids = append(a.ids, rec)
		}
	}
	return a.ids
}

// Definitions returns the memoized identifier definitions.
func (a *Artifact) Definitions(res *identifier.Resolver) []*IDRecord {
	var out []*IDRecord
	for _, r := range a.IDs(res) {
		if r.Definition {
			out = append(out, r)
		}
	}
	return out
}

// References returns the memoized identifier references.
func (a *Artifact) References(res *identifier.Resolver) []*IDRecord {
	var out []*IDRecord
	for _, r := range a.IDs(res) {
		if !r.Definition {
			out = append(out, r)
		}
	}
	return out
}
