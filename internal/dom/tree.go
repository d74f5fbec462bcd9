package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// NodeType classifies a node.
type NodeType uint8

// Node types.
const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
	// ProcessingInstructionNode is a "<?...?>" construct. The HTML parser
	// reports these as comments whose data starts with '?'.
	ProcessingInstructionNode
)

// NodeID addresses a node inside a Tree.
type NodeID int32

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Node is one entry of the arena.
type Node struct {
	Type NodeType
	// Kind is KindUnknown for non-element nodes.
	Kind ElementKind
	// Tag is the lowercase element name.
	Tag string
	// Data is the text of text, comment and doctype nodes.
	Data     string
	Attrs    []html.Attribute
	Parent   NodeID
	Children []NodeID
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Tree is an immutable arena of nodes.
type Tree struct {
	nodes  []Node
	source *html.Node
}

// Parse parses an HTML document. The parser recovers from malformed
// markup, so an error is only returned when reading r fails.
func Parse(r io.Reader) (*Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Build(doc), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

// Build flattens an already parsed document into a Tree.
func Build(root *html.Node) *Tree {
	t := &Tree{source: root}
	t.add(root, NoNode)
	return t
}

func (t *Tree) add(n *html.Node, parent NodeID) NodeID {
	id := NodeID(len(t.nodes))
	node := Node{Parent: parent}

	switch n.Type {
	case html.DocumentNode:
		node.Type = DocumentNode
	case html.ElementNode:
		node.Type = ElementNode
		node.Tag = strings.ToLower(n.Data)
		node.Kind = KindOf(n.DataAtom)
		node.Attrs = n.Attr
	case html.TextNode, html.RawNode:
		node.Type = TextNode
		node.Data = n.Data
	case html.CommentNode:
		node.Type = CommentNode
		if strings.HasPrefix(n.Data, "?") {
			node.Type = ProcessingInstructionNode
		}
		node.Data = n.Data
	case html.DoctypeNode:
		node.Type = DoctypeNode
		node.Data = n.Data
	default:
		// Error nodes carry nothing renderable.
		node.Type = CommentNode
	}
	t.nodes = append(t.nodes, node)

	var children []NodeID
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, t.add(c, id))
	}
	t.nodes[id].Children = children

	return id
}

// Root returns the document node.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Source returns the parser output the tree was built from.
func (t *Tree) Source() *html.Node { return t.source }

// Text returns the concatenated text of id and its descendants.
func (t *Tree) Text(id NodeID) string {
	var b strings.Builder
	t.collectText(id, &b)
	return b.String()
}

func (t *Tree) collectText(id NodeID, b *strings.Builder) {
	n := &t.nodes[id]
	if n.Type == TextNode {
		b.WriteString(n.Data)
		return
	}
	for _, c := range n.Children {
		t.collectText(c, b)
	}
}

// FirstChildOfKind returns the first element child of id with the given
// kind, or NoNode.
func (t *Tree) FirstChildOfKind(id NodeID, kind ElementKind) NodeID {
	for _, c := range t.nodes[id].Children {
		n := &t.nodes[c]
		if n.Type == ElementNode && n.Kind == kind {
			return c
		}
	}
	return NoNode
}

// Find returns the IDs of all elements of the given kind in document order.
func (t *Tree) Find(kind ElementKind) []NodeID {
	var ids []NodeID
	for i := range t.nodes {
		if t.nodes[i].Type == ElementNode && t.nodes[i].Kind == kind {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}
