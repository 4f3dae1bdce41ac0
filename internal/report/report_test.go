package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportPasses(t *testing.T) {
	rep := New()
	assert.Equal(t, StatusPass, rep.Status)
	assert.False(t, rep.HasErrors())
}

func TestAddFlipsStatus(t *testing.T) {
	rep := New()
	rep.Add(Error{Type: TypeStructure, Message: "boom", Path: "a.md"})
	assert.Equal(t, StatusFail, rep.Status)
	assert.True(t, rep.HasErrors())

	// Adding nothing must not flip the status of a fresh report.
	fresh := New()
	fresh.Add()
	assert.Equal(t, StatusPass, fresh.Status)
}

func TestWarningsNeverAffectStatus(t *testing.T) {
	rep := New()
	rep.Warn(Error{Type: TypeContent, Message: "loose prose", Path: "a.md"})
	rep.Finalize()
	assert.Equal(t, StatusPass, rep.Status)
	assert.Len(t, rep.Warnings, 1)
}

func TestFinalizeSorts(t *testing.T) {
	rep := New()
	rep.Add(
		Error{Path: "b.md", Line: 3},
		Error{Path: "a.md", Line: 9},
		Error{Path: "a.md", Line: 2},
		Error{Path: "b.md", Line: 1},
		Error{Path: "a.md"},
	)
	rep.Finalize()

	require.Equal(t, StatusFail, rep.Status)
	var got []string
	for _, e := range rep.Errors {
		got = append(got, e.Path)
	}
	assert.Equal(t, []string{"a.md", "a.md", "a.md", "b.md", "b.md"}, got)
	assert.Equal(t, 0, rep.Errors[0].Line)
	assert.Equal(t, 2, rep.Errors[1].Line)
	assert.Equal(t, 9, rep.Errors[2].Line)
	assert.Equal(t, 1, rep.Errors[3].Line)
	assert.Equal(t, 3, rep.Errors[4].Line)
}

func TestErrorWithCopies(t *testing.T) {
	base := Error{Type: TypeReference, Message: "m", Context: map[string]string{"rule": "x"}}
	derived := base.With("id", "spec-core-req-a")

	assert.Equal(t, "x", derived.Context["rule"])
	assert.Equal(t, "spec-core-req-a", derived.Context["id"])
	_, leaked := base.Context["id"]
	assert.False(t, leaked, "With must not mutate the receiver's context")
}
