// Package registry loads the system registry document: the kit catalog and
// the system hierarchy whose slug paths form the prefix set consumed by the
// identifier resolver.
package registry

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// slugPattern is the fixed shape a system slug must match: lowercase
// alphanumerics with internal hyphens only.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Kit is an entry in the registry's kit catalog.
type Kit struct {
	Format string `yaml:"format" validate:"required"`
	Path   string `yaml:"path" validate:"required"`
}

// System is one node of the registered system hierarchy. The node's
// hierarchy prefix, not its human-readable name, is what the identifier
// resolver matches against.
type System struct {
	Name      string    `yaml:"name" validate:"required"`
	Slug      string    `yaml:"slug" validate:"required"`
	Kit       string    `yaml:"kit"`
	Artifacts []string  `yaml:"artifacts"`
	Codebase  []string  `yaml:"codebase"`
	Children  []*System `yaml:"children"`

	parent *System
}

// Parent returns the enclosing system, or nil at the roots.
func (s *System) Parent() *System {
	return s.parent
}

// Prefix returns the hierarchy prefix: the slug path from root to this node
// joined by hyphens.
func (s *System) Prefix() string {
	if s.parent == nil {
		return s.Slug
	}
	return s.parent.Prefix() + "-" + s.Slug
}

// Registry is the loaded system registry document.
type Registry struct {
	Kits    map[string]Kit `yaml:"kits"`
	Systems []*System      `yaml:"systems"`
}

// Load reads and validates a registry document. The document may be YAML or
// JSON; yaml.v3 accepts both.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from document bytes, linking parent references and
// rejecting malformed slugs.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("invalid registry document: %w", err)
	}

	validate := validator.New()
	for id, kit := range reg.Kits {
		if err := validate.Struct(kit); err != nil {
			return nil, fmt.Errorf("invalid kit %q: %w", id, err)
		}
	}

	for _, root := range reg.Systems {
		if err := link(root, nil, validate); err != nil {
			return nil, err
		}
	}
	return &reg, nil
}

// link walks the hierarchy setting parent back-references and validating
// each node.
func link(node *System, parent *System, validate *validator.Validate) error {
	node.parent = parent
	if err := validate.Struct(node); err != nil {
		return fmt.Errorf("invalid system node %q: %w", node.Name, err)
	}
	if !slugPattern.MatchString(node.Slug) {
		return fmt.Errorf("invalid slug %q for system %q (want lowercase alphanumerics and internal hyphens)", node.Slug, node.Name)
	}
	for _, child := range node.Children {
		if err := link(child, node, validate); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every system node depth-first in declaration order.
func (r *Registry) Walk(fn func(*System)) {
	var visit func(*System)
	visit = func(s *System) {
		fn(s)
		for _, c := range s.Children {
			visit(c)
		}
	}
	for _, root := range r.Systems {
		visit(root)
	}
}

// Prefixes returns every node's hierarchy prefix in depth-first order. The
// slice is the immutable prefix set handed to the identifier resolver.
func (r *Registry) Prefixes() []string {
	var out []string
	r.Walk(func(s *System) {
		out = append(out, s.Prefix())
	})
	return out
}

// IsRegistered reports whether prefix names a system in this registry.
// References whose system is unregistered are external and exempt from
// definition-coverage checks.
func (r *Registry) IsRegistered(prefix string) bool {
	found := false
	r.Walk(func(s *System) {
		if strings.EqualFold(s.Prefix(), prefix) {
			found = true
		}
	})
	return found
}

// Find returns the system node with the given hierarchy prefix, or nil.
func (r *Registry) Find(prefix string) *System {
	var match *System
	r.Walk(func(s *System) {
		if match == nil && strings.EqualFold(s.Prefix(), prefix) {
			match = s
		}
	})
	return match
}
