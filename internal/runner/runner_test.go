package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specmark/specmark/internal/config"
	"github.com/specmark/specmark/internal/report"
)

const testRegistry = `
systems:
  - name: Core
    slug: core
    children:
      - name: API
        slug: api
`

const testConstraints = `
design:
  identifiers:
    req:
      required: false
      references:
        ops:
          coverage: required
ops:
  identifiers:
    step:
      required: false
`

const testDesignTemplate = `---
kind: design
---
<!-- h2:overview -->
## Overview
<!-- /h2:overview -->
<!-- id:req required="false" -->
**ID**: ` + "`spec-core-req-example`" + `
<!-- /id:req -->
`

const testOpsTemplate = `---
kind: ops
---
<!-- free:runbook -->
text
<!-- /free:runbook -->
<!-- id:step required="false" -->
**ID**: ` + "`spec-core-step-example`" + `
<!-- /id:step -->
`

// workspace lays out a registry, constraint document, template catalog, and
// doc tree in a temp dir and returns its config.
func workspace(t *testing.T) (*config.Configuration, string) {
	t.Helper()
	dir := t.TempDir()

	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("registry.yaml", testRegistry)
	write("constraints.yaml", testConstraints)
	write(filepath.Join("artifacts", "design", "template.md"), testDesignTemplate)
	write(filepath.Join("artifacts", "ops", "template.md"), testOpsTemplate)

	cfg := &config.Configuration{
		RegistryPath:    filepath.Join(dir, "registry.yaml"),
		ConstraintsPath: filepath.Join(dir, "constraints.yaml"),
		ArtifactsDir:    filepath.Join(dir, "artifacts"),
		Scheme:          "spec",
	}
	return cfg, dir
}

func writeDoc(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewContext(t *testing.T) {
	cfg, _ := workspace(t)
	ctx := NewContext(cfg)

	assert.Empty(t, ctx.Setup)
	assert.NotNil(t, ctx.TemplateFor("design"))
	assert.NotNil(t, ctx.TemplateFor("OPS"))
	assert.Nil(t, ctx.TemplateFor("unknown"))
	assert.Equal(t, []string{"core", "core-api"}, ctx.Registry.Prefixes())
	require.NotNil(t, ctx.Model)
	assert.NotNil(t, ctx.Model.Kind("design"))
}

func TestNewContextMissingRegistry(t *testing.T) {
	cfg, _ := workspace(t)
	cfg.RegistryPath = filepath.Join(t.TempDir(), "absent.yaml")

	ctx := NewContext(cfg)
	require.NotEmpty(t, ctx.Setup)
	assert.Equal(t, report.TypeFile, ctx.Setup[0].Type)
	// The run is still usable with an empty prefix set.
	assert.Empty(t, ctx.Registry.Prefixes())
}

func TestNewContextBadConstraints(t *testing.T) {
	cfg, dir := workspace(t)
	writeDoc(t, dir, "constraints.yaml", "design:\n  identifiers:\n    req:\n      task: maybe\n")
	ctx := NewContext(cfg)

	require.NotEmpty(t, ctx.Setup)
	assert.Equal(t, report.TypeConstraints, ctx.Setup[0].Type)
	assert.Nil(t, ctx.Model)
}

func TestRunPassingSet(t *testing.T) {
	cfg, dir := workspace(t)
	docs := filepath.Join(dir, "docs")
	writeDoc(t, dir, "docs/design/auth.md", strings.Join([]string{
		"---",
		"kind: design",
		"---",
		"<!-- h2:overview -->",
		"## Overview",
		"<!-- /h2:overview -->",
		"<!-- id:req -->",
		"**ID**: `spec-core-req-login`",
		"<!-- /id:req -->",
	}, "\n"))
	writeDoc(t, dir, "docs/ops/auth.md", strings.Join([]string{
		"---",
		"kind: ops",
		"---",
		"<!-- free:runbook -->",
		"covers `spec-core-req-login`",
		"<!-- /free:runbook -->",
	}, "\n"))

	ctx := NewContext(cfg)
	rep := ctx.Run([]string{docs})
	assert.Equal(t, report.StatusPass, rep.Status, "unexpected errors: %v", rep.Errors)
}

func TestRunCoverageFailure(t *testing.T) {
	cfg, dir := workspace(t)
	docs := filepath.Join(dir, "docs")
	writeDoc(t, dir, "docs/design/auth.md", strings.Join([]string{
		"---",
		"kind: design",
		"---",
		"<!-- h2:overview -->",
		"## Overview",
		"<!-- /h2:overview -->",
		"<!-- id:req -->",
		"**ID**: `spec-core-req-login`",
		"<!-- /id:req -->",
	}, "\n"))

	ctx := NewContext(cfg)
	rep := ctx.Run([]string{docs})
	require.Equal(t, report.StatusFail, rep.Status)

	found := false
	for _, e := range rep.Errors {
		if e.Context["rule"] == "coverage-required" {
			found = true
			assert.Contains(t, e.Message, "never referenced from a ops artifact")
		}
	}
	assert.True(t, found, "got: %v", rep.Errors)
}

func TestRunKindFromPath(t *testing.T) {
	cfg, dir := workspace(t)
	// No front matter: the kind comes from the containing directory name.
	path := writeDoc(t, dir, "docs/design/auth.md", strings.Join([]string{
		"<!-- h2:overview -->",
		"## Overview",
		"<!-- /h2:overview -->",
	}, "\n"))

	ctx := NewContext(cfg)
	rep := ctx.Run([]string{path})
	assert.Equal(t, report.StatusPass, rep.Status, "unexpected errors: %v", rep.Errors)
}

func TestRunUnknownKindStillIndexes(t *testing.T) {
	cfg, dir := workspace(t)
	docs := filepath.Join(dir, "docs")
	writeDoc(t, dir, "docs/design/auth.md", strings.Join([]string{
		"---",
		"kind: design",
		"---",
		"<!-- h2:overview -->",
		"## Overview",
		"<!-- /h2:overview -->",
		"<!-- id:req -->",
		"**ID**: `spec-core-req-login`",
		"<!-- /id:req -->",
		"needs `spec-core-req-session`",
	}, "\n"))
	// A file of an unregistered kind defines the missing identifier.
	writeDoc(t, dir, "docs/notes/scratch.md", "**ID**: `spec-core-req-session`\n")

	ctx := NewContext(cfg)
	rep := ctx.Run([]string{docs})

	var noTemplate, undefined bool
	for _, e := range rep.Errors {
		if strings.Contains(e.Message, `no template registered for artifact kind "notes"`) {
			noTemplate = true
		}
		if e.Context["rule"] == "undefined-reference" {
			undefined = true
		}
	}
	assert.True(t, noTemplate, "got: %v", rep.Errors)
	assert.False(t, undefined, "loose files must still feed the index: %v", rep.Errors)
}

func TestRunUnknownSectionPolicy(t *testing.T) {
	doc := strings.Join([]string{
		"---",
		"kind: design",
		"---",
		"## Scratchpad",
		"<!-- h2:overview -->",
		"## Overview",
		"<!-- /h2:overview -->",
	}, "\n")

	t.Run("error policy fails the run", func(t *testing.T) {
		cfg, dir := workspace(t)
		path := writeDoc(t, dir, "docs/design/auth.md", doc)

		rep := NewContext(cfg).Run([]string{path})
		require.Equal(t, report.StatusFail, rep.Status)
		found := false
		for _, e := range rep.Errors {
			if strings.Contains(e.Message, `section "Scratchpad"`) {
				found = true
				assert.Equal(t, report.TypeStructure, e.Type)
			}
		}
		assert.True(t, found, "got: %v", rep.Errors)
	})

	t.Run("warn policy passes with a warning", func(t *testing.T) {
		cfg, dir := workspace(t)
		writeDoc(t, dir, filepath.Join("artifacts", "design", "template.md"),
			"---\nkind: design\nunknown_sections: warn\n---\n"+
				"<!-- h2:overview -->\n## Overview\n<!-- /h2:overview -->\n"+
				"<!-- id:req required=\"false\" -->\n**ID**: `spec-core-req-example`\n<!-- /id:req -->\n")
		path := writeDoc(t, dir, "docs/design/auth.md", doc)

		rep := NewContext(cfg).Run([]string{path})
		assert.Equal(t, report.StatusPass, rep.Status, "unexpected errors: %v", rep.Errors)
		require.Len(t, rep.Warnings, 1)
		assert.Contains(t, rep.Warnings[0].Message, `section "Scratchpad"`)
	})
}

func TestRunMissingPath(t *testing.T) {
	cfg, dir := workspace(t)
	ctx := NewContext(cfg)

	rep := ctx.Run([]string{filepath.Join(dir, "absent")})
	require.Equal(t, report.StatusFail, rep.Status)
	assert.Contains(t, rep.Errors[0].Message, "cannot stat")
}

func TestRunSkipsTemplates(t *testing.T) {
	cfg, dir := workspace(t)
	ctx := NewContext(cfg)

	// Walking the artifacts dir itself must not validate template.md files.
	rep := ctx.Run([]string{filepath.Join(dir, "artifacts")})
	assert.Equal(t, report.StatusPass, rep.Status, "unexpected errors: %v", rep.Errors)
}

func TestRunErrorsSortedByFileAndLine(t *testing.T) {
	cfg, dir := workspace(t)
	docs := filepath.Join(dir, "docs")
	writeDoc(t, dir, "docs/design/b.md", strings.Join([]string{
		"---",
		"kind: design",
		"---",
		"<!-- h2:overview -->",
		"### wrong",
		"<!-- /h2:overview -->",
		"<!-- free:stray -->",
		"text",
		"<!-- /free:stray -->",
	}, "\n"))
	writeDoc(t, dir, "docs/design/a.md", "---\nkind: design\n---\nno blocks at all\n")

	ctx := NewContext(cfg)
	rep := ctx.Run([]string{docs})
	require.Equal(t, report.StatusFail, rep.Status)

	var last struct {
		path string
		line int
	}
	for _, e := range rep.Errors {
		if e.Path < last.path || (e.Path == last.path && e.Line < last.line) {
			t.Fatalf("errors out of order: %v", rep.Errors)
		}
		last.path, last.line = e.Path, e.Line
	}
}
