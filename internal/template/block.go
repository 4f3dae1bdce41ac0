package template

import (
	"github.com/specmark/specmark/internal/marker"
)

// Repeat is a block's cardinality within its enclosing container.
type Repeat string

const (
	RepeatOne  Repeat = "one"
	RepeatMany Repeat = "many"
)

// Block is one marker-delimited span recognized in a template. Blocks are
// immutable after the parse except for the single constraint-application
// pass, which may extend the has attribute token set.
type Block struct {
	Kind      marker.Kind
	Name      string
	Required  bool
	Repeat    Repeat
	Attrs     map[string]string
	StartLine int
	EndLine   int
}

// Key returns the (kind, name) catalog key.
func (b *Block) Key() string {
	return string(b.Kind) + ":" + b.Name
}

// Has reports whether the block's has attribute token set contains tok.
func (b *Block) Has(tok string) bool {
	return marker.HasToken(b.Attrs["has"], tok)
}

// HasDeclared reports whether the has attribute was present at all. An
// explicitly declared token set makes absence of a token meaningful to the
// constraint applier; an undeclared set does not.
func (b *Block) HasDeclared() bool {
	_, ok := b.Attrs["has"]
	return ok
}

// Encloses reports whether b strictly contains other by line range.
func (b *Block) Encloses(other *Block) bool {
	return b.StartLine < other.StartLine && other.EndLine < b.EndLine
}

// InnermostEnclosing returns the innermost block in blocks that strictly
// encloses target, or nil for a top-level block. Ancestry is always computed
// geometrically from line ranges; blocks carry no parent pointers, so the
// structure can be rebuilt from the flat list alone.
func InnermostEnclosing(blocks []*Block, target *Block) *Block {
	var innermost *Block
	for _, b := range blocks {
		if b == target || !b.Encloses(target) {
			continue
		}
		if innermost == nil || innermost.Encloses(b) {
			innermost = b
		}
	}
	return innermost
}

// Ancestors returns every block enclosing target, innermost first.
func Ancestors(blocks []*Block, target *Block) []*Block {
	var out []*Block
	for cur := InnermostEnclosing(blocks, target); cur != nil; cur = InnermostEnclosing(blocks, cur) {
		out = append(out, cur)
	}
	return out
}
