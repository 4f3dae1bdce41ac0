package constraints

import "gopkg.in/yaml.v3"

// Node-walking helpers. The constraint document is parsed through yaml.Node
// rather than straight unmarshalling so every rejection can name the exact
// source line, and so duplicate mapping keys are visible to the parser.

// rootMapping unwraps a document node down to its mapping.
func rootMapping(root *yaml.Node) *yaml.Node {
	if root == nil {
		return nil
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		return rootMapping(root.Content[0])
	}
	if root.Kind == yaml.MappingNode {
		return root
	}
	return nil
}

// findNode returns the value node for key in a mapping node, or nil.
func findNode(node *yaml.Node, key string) *yaml.Node {
	m := rootMapping(node)
	if m == nil {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// eachPair visits the key/value node pairs of a mapping in document order.
func eachPair(node *yaml.Node, fn func(key, value *yaml.Node)) {
	m := rootMapping(node)
	if m == nil {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		fn(m.Content[i], m.Content[i+1])
	}
}

// nodeLine returns the 1-based line of a node, 0 for nil.
func nodeLine(node *yaml.Node) int {
	if node == nil {
		return 0
	}
	return node.Line
}

// stringList decodes a sequence of scalars, returning false for any other
// node shape.
func stringList(node *yaml.Node) ([]string, bool) {
	if node == nil {
		return nil, true
	}
	if node.Kind != yaml.SequenceNode {
		return nil, false
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, false
		}
		out = append(out, item.Value)
	}
	return out, true
}

// boolValue decodes a scalar bool, returning ok=false when the node is not a
// boolean scalar.
func boolValue(node *yaml.Node) (val, ok bool) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return false, false
	}
	var b bool
	if err := node.Decode(&b); err != nil {
		return false, false
	}
	return b, true
}
