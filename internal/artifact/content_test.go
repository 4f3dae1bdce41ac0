package artifact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

// singleBlock parses an artifact holding one block against a template
// declaring the same marker, and returns the content violations.
func singleBlock(t *testing.T, openMarker string, body ...string) []string {
	t.Helper()
	key := strings.Fields(strings.Trim(openMarker, "<!- >"))[0]
	src := strings.Join(append(append([]string{openMarker}, body...), "<!-- /"+key+" -->"), "\n")

	tpl := template.Parse("artifacts/design/template.md", []byte(src))
	require.Empty(t, tpl.Problems)
	a := Parse(tpl, "design.md", []byte(src))
	require.True(t, a.StructuralOK())
	require.Len(t, a.Blocks, 1)

	var msgs []string
	for _, e := range checkContent(a.Path, a.Blocks[0]) {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestCheckContentEmpty(t *testing.T) {
	msgs := singleBlock(t, "<!-- paragraph:summary -->")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "block paragraph:summary is empty")
}

func TestCheckContentFreeAndParagraph(t *testing.T) {
	assert.Empty(t, singleBlock(t, "<!-- free:notes -->", "anything at all"))
	assert.Empty(t, singleBlock(t, "<!-- paragraph:summary -->", "One sentence."))
}

func TestCheckContentLists(t *testing.T) {
	t.Run("bullet list", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- list:items -->", "- one", "* two"))

		msgs := singleBlock(t, "<!-- list:items -->", "- one", "not a bullet")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "line is not a list item")
	})

	t.Run("numbered list", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- list:numbered:steps -->", "1. first", "2) second"))

		msgs := singleBlock(t, "<!-- list:numbered:steps -->", "first")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "line is not a numbered list item")
	})

	t.Run("task list", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- list:task:work -->", "- [ ] todo", "- [x] done"))

		msgs := singleBlock(t, "<!-- list:task:work -->", "- plain bullet")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "line is not a task list item")
	})

	t.Run("task list with priority", func(t *testing.T) {
		msgs := singleBlock(t, `<!-- list:task:work has="priority" -->`, "- [ ] todo P2", "- [ ] missing")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "task is missing a priority token")
	})
}

func TestCheckContentTable(t *testing.T) {
	t.Run("well-formed", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- table:matrix -->",
			"| a | b | c |",
			"| --- | :-: | --- |",
			"| 1 | 2 | 3 |",
		))
	})

	t.Run("row column mismatch yields exactly one structure error", func(t *testing.T) {
		src := strings.Join([]string{
			"<!-- table:matrix -->",
			"| a | b | c |",
			"| --- | --- | --- |",
			"| 1 | 2 |",
			"<!-- /table:matrix -->",
		}, "\n")
		tpl := template.Parse("artifacts/design/template.md", []byte(src))
		require.Empty(t, tpl.Problems)
		a := Parse(tpl, "design.md", []byte(src))

		errs := checkContent(a.Path, a.Blocks[0])
		require.Len(t, errs, 1)
		assert.Equal(t, report.TypeStructure, errs[0].Type)
		assert.Equal(t, "Table row column count mismatch", errs[0].Message)
		assert.Equal(t, 4, errs[0].Line)
	})

	t.Run("separator mismatch", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- table:matrix -->",
			"| a | b |",
			"| --- |",
			"| 1 | 2 |",
		)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "separator column count")
	})

	t.Run("no data rows", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- table:matrix -->",
			"| a | b |",
			"| --- | --- |",
		)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "no data rows")
	})

	t.Run("bad separator cell", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- table:matrix -->",
			"| a | b |",
			"| --- | == |",
			"| 1 | 2 |",
		)
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[0], "separator cells")
	})
}

func TestCheckContentCode(t *testing.T) {
	assert.Empty(t, singleBlock(t, "<!-- code:example -->", "```go", "x := 1", "```"))

	msgs := singleBlock(t, "<!-- code:example -->", "x := 1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "must open with a fence")

	msgs = singleBlock(t, "<!-- code:example -->", "```go", "x := 1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "never closed")
}

func TestCheckContentHeadings(t *testing.T) {
	assert.Empty(t, singleBlock(t, "<!-- h2:overview -->", "## Overview"))

	msgs := singleBlock(t, "<!-- h2:overview -->", "### Overview")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "expected a level 2 heading")

	msgs = singleBlock(t, "<!-- h3:detail -->", "## Detail")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "expected a level 3 heading")
}

func TestCheckContentLinkAndImage(t *testing.T) {
	assert.Empty(t, singleBlock(t, "<!-- link:source -->", "[docs](https://example.test)"))
	assert.Empty(t, singleBlock(t, "<!-- image:diagram -->", "![flow](./flow.png)"))

	msgs := singleBlock(t, "<!-- link:source -->", "https://example.test")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "markdown link")

	msgs = singleBlock(t, "<!-- image:diagram -->", "[flow](./flow.png)")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "markdown image")
}

func TestCheckContentID(t *testing.T) {
	t.Run("canonical definition", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- id:req -->", "**ID**: `spec-core-req-login`"))
	})

	t.Run("malformed identifier line", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- id:req -->", "**ID**: spec-core-req-login")
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[0], "malformed identifier line")
	})

	t.Run("missing identifier line", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- id:req -->", "just prose")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "has no identifier line")
	})

	t.Run("task and priority demanded", func(t *testing.T) {
		msgs := singleBlock(t, `<!-- id:req has="task,priority" -->`, "**ID**: `spec-core-req-login`")
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0], "missing a task checkbox")
		assert.Contains(t, msgs[1], "missing a priority token")

		assert.Empty(t, singleBlock(t, `<!-- id:req has="task,priority" -->`,
			"- [ ] **ID**: `spec-core-req-login` P1"))
	})

	t.Run("checkbox outside list prefix", func(t *testing.T) {
		msgs := singleBlock(t, "<!-- id:req -->",
			"**ID**: `spec-core-req-login`",
			"state [x] inline",
		)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "checkbox token must be inside a list-item prefix")
	})

	t.Run("fenced content ignored", func(t *testing.T) {
		assert.Empty(t, singleBlock(t, "<!-- id:req -->",
			"**ID**: `spec-core-req-login`",
			"```",
			"**ID**: broken",
			"```",
		))
	})
}

func TestCheckContentIDRef(t *testing.T) {
	assert.Empty(t, singleBlock(t, "<!-- id:ref:covers -->", "`spec-core-req-login`, `spec-core-req-session`"))

	msgs := singleBlock(t, "<!-- id:ref:covers -->", "`spec-core-req-login`, plain-text")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "malformed identifier reference")
}
