package marker

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// envelopePattern matches one marker envelope. Group 1 is the close
	// slash, group 2 the type token (possibly type:subtype), group 3 the
	// name, group 4 the raw attribute list.
	envelopePattern = regexp.MustCompile(`<!--\s*(/?)([a-z][a-z0-9-]*(?::[a-z][a-z0-9-]*)?):([^\s>]+)((?:\s+[a-z][a-z0-9_-]*="[^"]*")*)\s*-->`)

	// attrPattern matches a single key="value" pair inside an envelope.
	attrPattern = regexp.MustCompile(`([a-z][a-z0-9_-]*)="([^"]*)"`)
)

// Occurrence is one marker found on a line.
type Occurrence struct {
	Close bool
	Kind  Kind
	Name  string
	Attrs map[string]string
	Line  int
	Col   int // 1-based byte offset of the envelope start
}

// Key returns the (kind, name) pairing key used for open/close matching and
// template catalog lookup.
func (o Occurrence) Key() string {
	return string(o.Kind) + ":" + o.Name
}

// ScanError describes a malformed marker on a line.
type ScanError struct {
	Line int
	Col  int
	Msg  string
}

func (e ScanError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
}

// ScanLine tokenizes a single line for marker occurrences. Both well-formed
// occurrences and errors may be returned for the same line; occurrences are
// ordered left to right.
func ScanLine(line string, lineNum int) ([]Occurrence, []ScanError) {
	idxs := envelopePattern.FindAllStringSubmatchIndex(line, -1)
	if len(idxs) == 0 {
		return nil, nil
	}

	var occs []Occurrence
	var errs []ScanError
	for _, m := range idxs {
		col := m[0] + 1
		closeTok := line[m[2]:m[3]]
		typeTok := line[m[4]:m[5]]
		name := line[m[6]:m[7]]
		rawAttrs := line[m[8]:m[9]]

		rawKind, subtype, _ := strings.Cut(typeTok, ":")
		kind, err := ParseKind(rawKind, subtype)
		if err != nil {
			errs = append(errs, ScanError{Line: lineNum, Col: col, Msg: err.Error()})
			continue
		}

		occ := Occurrence{
			Close: closeTok == "/",
			Kind:  kind,
			Name:  name,
			Line:  lineNum,
			Col:   col,
		}
		if occ.Close && strings.TrimSpace(rawAttrs) != "" {
			errs = append(errs, ScanError{Line: lineNum, Col: col, Msg: "close marker must not carry attributes"})
			continue
		}
		if !occ.Close {
			occ.Attrs = parseAttrs(rawAttrs)
		}
		occs = append(occs, occ)
	}
	return occs, errs
}

func parseAttrs(raw string) map[string]string {
	pairs := attrPattern.FindAllStringSubmatch(raw, -1)
	if len(pairs) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		attrs[p[1]] = p[2]
	}
	return attrs
}

// Tokens splits a comma-separated attribute value (such as has="task,priority")
// into its trimmed, non-empty tokens.
func Tokens(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// HasToken reports whether value, read as a comma-separated token set,
// contains tok.
func HasToken(value, tok string) bool {
	for _, t := range Tokens(value) {
		if t == tok {
			return true
		}
	}
	return false
}
