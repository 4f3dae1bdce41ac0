// Package runner wires the registry, constraint model, and template catalog
// into an explicitly constructed validation context and drives full runs
// over artifact file sets. There is no ambient global state: every component
// reads the context it is handed, and the shared indices are immutable for
// the duration of a run.
package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specmark/specmark/internal/artifact"
	"github.com/specmark/specmark/internal/config"
	"github.com/specmark/specmark/internal/constraints"
	"github.com/specmark/specmark/internal/crossref"
	"github.com/specmark/specmark/internal/identifier"
	"github.com/specmark/specmark/internal/registry"
	"github.com/specmark/specmark/internal/report"
	"github.com/specmark/specmark/internal/template"
)

// Context holds everything a validation run reads: the system registry, the
// constraint model, and the template catalog, all loaded once. Load failures
// are fatal to the affected unit only and surface as ordinary report errors,
// never as a distinct crash channel.
type Context struct {
	Config    *config.Configuration
	Registry  *registry.Registry
	Model     *constraints.Model
	Templates map[string]*template.Template
	Resolver  *identifier.Resolver

	// Setup collects registry, constraint, and template load problems that
	// every run inherits.
	Setup []report.Error
}

// NewContext builds a context from configuration. The returned context is
// usable even when parts failed to load; the failures ride along in Setup.
func NewContext(cfg *config.Configuration) *Context {
	c := &Context{
		Config:    cfg,
		Templates: map[string]*template.Template{},
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		c.Setup = append(c.Setup, report.Error{
			Type:    report.TypeFile,
			Message: err.Error(),
			Path:    cfg.RegistryPath,
		})
		reg = &registry.Registry{}
	}
	c.Registry = reg
	c.Resolver = identifier.NewResolver(cfg.Scheme, reg.Prefixes())

	if cfg.ConstraintsPath != "" {
		model, err := constraints.Load(cfg.ConstraintsPath)
		if err != nil {
			c.Setup = append(c.Setup, report.Error{
				Type:    report.TypeConstraints,
				Message: err.Error(),
				Path:    cfg.ConstraintsPath,
			})
		} else {
			c.Model = model
		}
	}

	c.loadTemplates()
	return c
}

// loadTemplates discovers artifacts/{KIND}/template.md files under the
// configured artifacts directory and applies the constraint model to each.
func (c *Context) loadTemplates() {
	pattern := filepath.Join(c.Config.ArtifactsDir, "*", "template.md")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	sort.Strings(matches)
	for _, path := range matches {
		t := template.New(path)
		if err := t.Load(); err != nil {
			c.Setup = append(c.Setup, report.Error{
				Type:    report.TypeFile,
				Message: err.Error(),
				Path:    path,
			})
			continue
		}
		c.Setup = append(c.Setup, t.Problems...)
		if c.Model != nil {
			c.Setup = append(c.Setup, constraints.Apply(c.Model, t)...)
		}
		if t.Kind != "" {
			c.Templates[strings.ToLower(t.Kind)] = t
		}
	}
}

// TemplateFor returns the template registered for an artifact kind, or nil.
func (c *Context) TemplateFor(kind string) *template.Template {
	return c.Templates[strings.ToLower(kind)]
}

// Run validates the given files and directories. Per-file checks run first;
// cross-artifact rules are evaluated only after every file has been indexed,
// since coverage cannot be judged from a partial index.
func (c *Context) Run(paths []string) *report.Report {
	rep := report.New()
	rep.Add(c.Setup...)

	files, err := expand(paths)
	if err != nil {
		rep.Add(report.Error{Type: report.TypeFile, Message: err.Error()})
		rep.Finalize()
		return rep
	}

	ix := crossref.NewIndex()
	for _, path := range files {
		c.runFile(path, rep, ix)
	}

	rep.Add(crossref.Validate(ix, c.Model)...)
	rep.Finalize()
	return rep
}

// runFile validates one artifact. One file's failure never aborts the run.
func (c *Context) runFile(path string, rep *report.Report, ix *crossref.Index) {
	data, err := os.ReadFile(path)
	if err != nil {
		rep.Add(report.Error{
			Type:    report.TypeFile,
			Message: fmt.Sprintf("failed to read artifact: %v", err),
			Path:    path,
		})
		return
	}

	kind := c.kindOf(path, data)
	tmpl := c.TemplateFor(kind)
	if tmpl == nil {
		rep.Add(report.Error{
			Type:    report.TypeFile,
			Message: fmt.Sprintf("no template registered for artifact kind %q", kind),
			Path:    path,
			Context: map[string]string{"artifact_kind": kind},
		})
		// Identifier scanning is markerless and still contributes to the
		// cross-artifact index.
		loose := artifact.Parse(template.Parse(path, nil), path, data)
		ix.Add(loose, kind, c.Resolver)
		return
	}

	a := artifact.Parse(tmpl, path, data)
	v := &artifact.Validator{
		Template:    tmpl,
		Constraints: c.Model.Kind(kind),
		Resolver:    c.Resolver,
	}
	rep.Add(v.Validate(a)...)
	if tmpl.Policy == template.PolicyWarn && a.StructuralOK() {
		rep.Warn(v.UnknownSections(a)...)
	}
	ix.Add(a, kind, c.Resolver)
}

// kindOf determines an artifact's kind: front matter first, then the
// conventional artifacts/{KIND}/ path position, then the containing
// directory name.
func (c *Context) kindOf(path string, data []byte) string {
	if kind := template.KindFromSource(data); kind != "" {
		return kind
	}
	segments := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if _, ok := c.Templates[strings.ToLower(segments[i])]; ok {
			return segments[i]
		}
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return ""
}

// expand flattens files and directories into a sorted markdown file list.
// Template files themselves are skipped.
func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".md") || filepath.Base(path) == "template.md" {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
