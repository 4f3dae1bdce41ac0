// Package report defines the single failure channel every validation stage
// feeds into. Error records are self-describing: type, message, and line are
// always present, and contextual keys are only ever added across versions so
// downstream tooling can rely on key presence.
package report

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the overall outcome of a validation run.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Error record types. Load and IO failures share this shape rather than
// surfacing as a distinct crash channel.
const (
	TypeStructure   = "structure"
	TypeContent     = "content"
	TypeConstraints = "constraints"
	TypeReference   = "reference"
	TypeFile        = "file"
)

// Error is one validation finding.
type Error struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Path    string            `json:"path,omitempty"`
	Line    int               `json:"line,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// With returns a copy of the error with an extra context key set.
func (e Error) With(key, value string) Error {
	ctx := make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	e.Context = ctx
	return e
}

func (e Error) String() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ":%d", e.Line)
		}
		sb.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	fmt.Fprintf(&sb, "[%s] %s", e.Type, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, e.Context[k])
		}
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	}
	return sb.String()
}

// Report is the aggregate outcome of a run.
type Report struct {
	Status   Status  `json:"status"`
	Errors   []Error `json:"errors"`
	Warnings []Error `json:"warnings"`
}

// New returns an empty passing report.
func New() *Report {
	return &Report{Status: StatusPass}
}

// Add records an error and flips the status to FAIL.
func (r *Report) Add(errs ...Error) {
	if len(errs) == 0 {
		return
	}
	r.Errors = append(r.Errors, errs...)
	r.Status = StatusFail
}

// Warn records a warning. Warnings never affect status.
func (r *Report) Warn(errs ...Error) {
	r.Warnings = append(r.Warnings, errs...)
}

// HasErrors reports whether any error of any tier was recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Finalize sorts errors and warnings so that records for a single file appear
// in line-ascending order, and recomputes the status.
func (r *Report) Finalize() {
	sortRecords(r.Errors)
	sortRecords(r.Warnings)
	if r.HasErrors() {
		r.Status = StatusFail
	} else {
		r.Status = StatusPass
	}
}

func sortRecords(errs []Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Line < errs[j].Line
	})
}
