package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specmark/specmark/internal/marker"
	"github.com/specmark/specmark/internal/report"
)

var (
	bulletPrefix   = regexp.MustCompile(`^\s*[-*]\s+\S`)
	numberedPrefix = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	taskPrefix     = regexp.MustCompile(`^\s*[-*]\s+\[[ xX]\]\s+\S`)
	checkboxToken  = regexp.MustCompile(`\[[ xX]\]`)
	idShape        = regexp.MustCompile("^\\s*(?:[-*]\\s+\\[[ xX]\\]\\s+)?\\*\\*ID\\*\\*:\\s*`[A-Za-z0-9]+(?:-[A-Za-z0-9]+){2,}`")
	refShape       = regexp.MustCompile("`[A-Za-z0-9]+(?:-[A-Za-z0-9]+){2,}`")
	linkShape      = regexp.MustCompile(`\[[^\]]*\]\([^)]+\)`)
	imageShape     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	separatorCell  = regexp.MustCompile(`^:?-+:?$`)
)

// checkContent applies the per-kind content shape rule to one block. The
// switch over the kind enum is exhaustive: adding a block type is a
// compile-visible decision here, not a silently ignored default.
func checkContent(path string, b *Block) []report.Error {
	lines := prose(b)
	if len(lines) == 0 {
		return []report.Error{content(path, b.StartLine, fmt.Sprintf("block %s is empty", b.Key()))}
	}

	switch b.Kind {
	case marker.KindFree, marker.KindParagraph:
		return nil
	case marker.KindID:
		return checkIDContent(path, b, lines)
	case marker.KindIDRef:
		return checkIDRefContent(path, b, lines)
	case marker.KindList:
		return checkPrefixed(path, b, lines, bulletPrefix, "list item")
	case marker.KindNumberedList:
		return checkPrefixed(path, b, lines, numberedPrefix, "numbered list item")
	case marker.KindTaskList:
		return checkTaskList(path, b, lines)
	case marker.KindTable:
		return checkTable(path, b, lines)
	case marker.KindCode:
		return checkCode(path, b, lines)
	case marker.KindH1, marker.KindH2, marker.KindH3, marker.KindH4, marker.KindH5, marker.KindH6:
		return checkHeading(path, b, lines)
	case marker.KindLink:
		return checkInline(path, b, lines, linkShape, "markdown link")
	case marker.KindImage:
		return checkInline(path, b, lines, imageShape, "markdown image")
	}
	return nil
}

// prose returns the block's content minus nested marker lines, keeping the
// original line numbers.
func prose(b *Block) []numberedLine {
	var out []numberedLine
	for i, line := range b.Content {
		if occs, errs := marker.ScanLine(line, 0); len(occs) > 0 || len(errs) > 0 {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, numberedLine{num: b.StartLine + 1 + i, text: line})
	}
	return out
}

type numberedLine struct {
	num  int
	text string
}

func content(path string, line int, msg string) report.Error {
	return report.Error{Type: report.TypeContent, Message: msg, Path: path, Line: line}
}

// checkIDContent enforces the canonical definition line shape: at least one
// "**ID**: `scheme-kind-slug`" line outside code fences, a priority token on
// every such line when the block demands one, and checkbox tokens only inside
// a list-item prefix.
func checkIDContent(path string, b *Block, lines []numberedLine) []report.Error {
	var errs []report.Error
	found := 0
	inFence := false
	for _, l := range lines {
		if fencePattern.MatchString(l.text) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if checkboxToken.MatchString(l.text) && !taskPrefix.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "checkbox token must be inside a list-item prefix"))
		}
		if !defLinePattern.MatchString(l.text) {
			continue
		}
		if !idShape.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "malformed identifier line, want **ID**: `scheme-kind-slug`"))
			continue
		}
		found++
		if b.Has("task") && !taskPrefix.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "identifier line is missing a task checkbox"))
		}
		if b.Has("priority") && !priorityPattern.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "identifier line is missing a priority token"))
		}
	}
	if found == 0 {
		errs = append(errs, content(path, b.StartLine, fmt.Sprintf("block %s has no identifier line", b.Key())))
	}
	return errs
}

// checkIDRefContent requires every comma-separated token to match the
// canonical reference shape.
func checkIDRefContent(path string, b *Block, lines []numberedLine) []report.Error {
	var errs []report.Error
	for _, l := range lines {
		for _, cell := range strings.Split(l.text, ",") {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if !refShape.MatchString(cell) {
				errs = append(errs, content(path, l.num, "malformed identifier reference, want `scheme-kind-slug`"))
			}
		}
		if b.Has("priority") && !priorityPattern.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "reference line is missing a priority token"))
		}
	}
	return errs
}

func checkPrefixed(path string, b *Block, lines []numberedLine, prefix *regexp.Regexp, what string) []report.Error {
	var errs []report.Error
	for _, l := range lines {
		if !prefix.MatchString(l.text) {
			errs = append(errs, content(path, l.num, fmt.Sprintf("line is not a %s", what)))
		}
	}
	return errs
}

func checkTaskList(path string, b *Block, lines []numberedLine) []report.Error {
	errs := checkPrefixed(path, b, lines, taskPrefix, "task list item")
	if !b.Has("priority") {
		return errs
	}
	for _, l := range lines {
		if taskPrefix.MatchString(l.text) && !priorityPattern.MatchString(l.text) {
			errs = append(errs, content(path, l.num, "task is missing a priority token"))
		}
	}
	return errs
}

// checkTable validates header, separator, and data rows. Column counts are
// judged against the header row.
func checkTable(path string, b *Block, lines []numberedLine) []report.Error {
	if len(lines) < 2 {
		return []report.Error{content(path, b.StartLine, "table needs a header and separator row")}
	}
	header := tableCells(lines[0].text)
	separator := tableCells(lines[1].text)

	var errs []report.Error
	for _, cell := range separator {
		if !separatorCell.MatchString(strings.TrimSpace(cell)) {
			errs = append(errs, content(path, lines[1].num, "table separator cells may contain only - and :"))
			break
		}
	}
	if len(header) != len(separator) {
		errs = append(errs, content(path, lines[1].num, "table separator column count does not match header"))
		return errs
	}
	if len(lines) == 2 {
		errs = append(errs, content(path, b.StartLine, "table has no data rows"))
		return errs
	}
	for _, l := range lines[2:] {
		if len(tableCells(l.text)) != len(header) {
			// A row off the declared grid is a structure defect, not a prose
			// problem.
			errs = append(errs, report.Error{
				Type:    report.TypeStructure,
				Message: "Table row column count mismatch",
				Path:    path,
				Line:    l.num,
			})
		}
	}
	return errs
}

// tableCells splits a markdown table row into its cells, dropping the outer
// edge pipes.
func tableCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	return strings.Split(line, "|")
}

func checkCode(path string, b *Block, lines []numberedLine) []report.Error {
	if !strings.HasPrefix(strings.TrimSpace(lines[0].text), "```") {
		return []report.Error{content(path, lines[0].num, "code block must open with a fence")}
	}
	for _, l := range lines[1:] {
		if strings.HasPrefix(strings.TrimSpace(l.text), "```") {
			return nil
		}
	}
	return []report.Error{content(path, b.StartLine, "code fence is never closed")}
}

func checkHeading(path string, b *Block, lines []numberedLine) []report.Error {
	level := b.Kind.HeadingLevel()
	want := strings.Repeat("#", level) + " "
	first := lines[0]
	if !strings.HasPrefix(first.text, want) || strings.HasPrefix(first.text, want+"#") {
		return []report.Error{content(path, first.num, fmt.Sprintf("expected a level %d heading", level))}
	}
	return nil
}

func checkInline(path string, b *Block, lines []numberedLine, shape *regexp.Regexp, what string) []report.Error {
	if !shape.MatchString(lines[0].text) {
		return []report.Error{content(path, lines[0].num, fmt.Sprintf("first line must contain a %s", what))}
	}
	return nil
}
