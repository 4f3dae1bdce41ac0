package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Renderer writes a report for terminal consumption.
type Renderer struct {
	NoColor bool
	Width   int // 0 means autodetect
}

// Render writes the report grouped by file, errors first, then warnings,
// then the status line.
func (r *Renderer) Render(w io.Writer, rep *Report) {
	width := r.width()
	failTag := color.New(color.FgRed, color.Bold).SprintFunc()
	passTag := color.New(color.FgGreen, color.Bold).SprintFunc()
	warnTag := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	if r.NoColor {
		failTag, passTag, warnTag, dim = fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint
	}

	if len(rep.Errors) > 0 {
		fmt.Fprintln(w, failTag(fmt.Sprintf("%d error(s):", len(rep.Errors))))
		renderGroup(w, rep.Errors, dim)
	}
	if len(rep.Warnings) > 0 {
		fmt.Fprintln(w, warnTag(fmt.Sprintf("%d warning(s):", len(rep.Warnings))))
		renderGroup(w, rep.Warnings, dim)
	}

	fmt.Fprintln(w, dim(strings.Repeat("-", min(width, 60))))
	if rep.Status == StatusFail {
		fmt.Fprintln(w, failTag("FAIL"))
	} else {
		fmt.Fprintln(w, passTag("PASS"))
	}
}

func renderGroup(w io.Writer, errs []Error, dim func(...interface{}) string) {
	lastPath := ""
	for _, e := range errs {
		if e.Path != lastPath {
			fmt.Fprintf(w, "%s\n", dim(e.Path))
			lastPath = e.Path
		}
		loc := "     "
		if e.Line > 0 {
			loc = fmt.Sprintf("%5d", e.Line)
		}
		fmt.Fprintf(w, "  %s  [%s] %s\n", loc, e.Type, e.Message)
		if len(e.Context) > 0 {
			fmt.Fprintf(w, "         %s\n", dim(contextLine(e)))
		}
	}
}

func contextLine(e Error) string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, e.Context[k])
	}
	return strings.Join(parts, " ")
}

func (r *Renderer) width() int {
	if r.Width > 0 {
		return r.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
