/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: Schema tree for semi-structured records. Each node describes one field:
its interpreted type tags, the interpretation it resolved to, child fields for objects,
the element node for sequences, and the derived metadata and example attached after
analysis. Nodes form a strict tree and are copied, never shared, when transformed.
*/

package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/fieldlens/pkg/metadata"
)

// Type tags used by schema nodes
const (
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeArray   = "array"
	TypeObject  = "object"
)

// ItemsSegment is the path segment naming the element node of a sequence
const ItemsSegment = "[]"

// Node is one field in a schema tree
type Node struct {
	Name           string                  `json:"name" yaml:"name"`
	Path           string                  `json:"path" yaml:"path"`
	Types          []string                `json:"types,omitempty" yaml:"types,omitempty"`
	Format         string                  `json:"format,omitempty" yaml:"format,omitempty"`
	Interpretation string                  `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
	Chain          []string                `json:"chain,omitempty" yaml:"chain,omitempty"`
	Properties     map[string]*Node        `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items          *Node                   `json:"items,omitempty" yaml:"items,omitempty"`
	Example        interface{}             `json:"example,omitempty" yaml:"example,omitempty"`
	Metadata       *metadata.Snapshot      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	fieldMetadata  *metadata.FieldMetadata // Cached derived artifact behind Metadata
}

// NewNode creates an untyped node for the given field path
func NewNode(path string) *Node {
	return &Node{
		Name: UnescapeKey(LastSegment(path)),
		Path: path,
	}
}

// Clone returns a deep copy of the node and its subtree
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Types = append([]string(nil), n.Types...)
	c.Chain = append([]string(nil), n.Chain...)
	if n.Properties != nil {
		c.Properties = make(map[string]*Node, len(n.Properties))
		for k, child := range n.Properties {
			c.Properties[k] = child.Clone()
		}
	}
	c.Items = n.Items.Clone()
	if n.Metadata != nil {
		snap := *n.Metadata
		c.Metadata = &snap
	}
	if n.fieldMetadata != nil {
		c.fieldMetadata = n.fieldMetadata.Clone()
	}
	return &c
}

// WithTypes returns a copy with the given type tags
func (n *Node) WithTypes(types ...string) *Node {
	c := n.Clone()
	c.Types = append([]string(nil), types...)
	return c
}

// HasType reports whether the node carries tag
func (n *Node) HasType(tag string) bool {
	for _, t := range n.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// SetMetadata attaches derived metadata, replacing any previous value
func (n *Node) SetMetadata(m *metadata.FieldMetadata) {
	if m == nil {
		n.Metadata = nil
		n.fieldMetadata = nil
		return
	}
	snap := m.Snapshot()
	n.Metadata = &snap
	n.fieldMetadata = m.Clone()
}

// FieldMetadata returns the attached metadata, if any
func (n *Node) FieldMetadata() *metadata.FieldMetadata {
	return n.fieldMetadata
}

// Child returns the child node at a single path segment
func (n *Node) Child(segment string) *Node {
	if segment == ItemsSegment {
		return n.Items
	}
	return n.Properties[segment]
}

// Lookup walks a dotted field path from this node
func (n *Node) Lookup(path string) *Node {
	cur := n
	for _, seg := range SplitPath(path) {
		if cur == nil {
			return nil
		}
		cur = cur.Child(seg)
	}
	return cur
}

// Attach places node at its path below the root, creating untyped intermediate nodes.
// An existing node at the path is replaced but keeps its children.
func (n *Node) Attach(node *Node) error {
	segments := SplitPath(node.Path)
	if len(segments) == 0 {
		return fmt.Errorf("cannot attach node with empty path")
	}

	parent := n
	for i, seg := range segments[:len(segments)-1] {
		next := parent.Child(seg)
		if next == nil {
			next = NewNode(JoinPath(segments[:i+1]...))
			parent.setChild(seg, next)
		}
		parent = next
	}

	last := segments[len(segments)-1]
	if existing := parent.Child(last); existing != nil {
		if node.Properties == nil {
			node.Properties = existing.Properties
		}
		if node.Items == nil {
			node.Items = existing.Items
		}
	}
	parent.setChild(last, node)
	return nil
}

// Walk visits the node and its subtree depth-first with children in name order
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := n.Properties[k].Walk(fn); err != nil {
			return err
		}
	}
	if n.Items != nil {
		return n.Items.Walk(fn)
	}
	return nil
}

func (n *Node) setChild(segment string, child *Node) {
	if segment == ItemsSegment {
		n.Items = child
		return
	}
	if n.Properties == nil {
		n.Properties = make(map[string]*Node)
	}
	n.Properties[segment] = child
}

// EscapeKey turns an object key into a path segment. Backslash, "." and "[" are
// escaped with a backslash and the empty key is written as \_, so keys containing
// separators never collide with nested paths or the "[]" segment.
func EscapeKey(key string) string {
	if key == "" {
		return `\_`
	}
	if !strings.ContainsAny(key, `\.[`) {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '\\', '.', '[':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// UnescapeKey is the inverse of EscapeKey
func UnescapeKey(segment string) string {
	if !strings.Contains(segment, `\`) {
		return segment
	}
	var b strings.Builder
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c == '\\' && i+1 < len(segment) {
			i++
			if segment[i] != '_' {
				b.WriteByte(segment[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// SplitPath splits a field path such as "user.tags[].name" into segments
// ["user", "tags", "[]", "name"]. Escaped characters stay escaped in the segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	var (
		segments []string
		cur      strings.Builder
		open     bool
	)
	flush := func() {
		if open {
			segments = append(segments, cur.String())
			cur.Reset()
			open = false
		}
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path):
			cur.WriteByte(c)
			cur.WriteByte(path[i+1])
			i++
			open = true
		case c == '.':
			flush()
			open = true
		case c == '[' && i+1 < len(path) && path[i+1] == ']':
			flush()
			segments = append(segments, ItemsSegment)
			i++
		default:
			cur.WriteByte(c)
			open = true
		}
	}
	flush()
	return segments
}

// JoinPath is the inverse of SplitPath. Key segments must already be escaped.
func JoinPath(segments ...string) string {
	var b strings.Builder
	for i, seg := range segments {
		if seg == ItemsSegment {
			b.WriteString(ItemsSegment)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// LastSegment returns the final segment of a path
func LastSegment(path string) string {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
