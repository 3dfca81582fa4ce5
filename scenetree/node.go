package scenetree

import (
	"fmt"
	"io"
	"strings"

	"github.com/binzume/simimport/scene"
)

// Node mirrors one prim of a source stage. Nodes are read-only once parsed.
type Node struct {
	Path     scene.Path
	TypeName string
	Kind     Kind
	Children []*Node

	// Stage is the stage the node was parsed from. Attribute lookups go
	// through it so an unloaded source is noticed.
	Stage *scene.Stage
}

func (n *Node) Name() string {
	return n.Path.Name()
}

// Prim resolves the node's prim in its stage. Returns nil if the stage no
// longer has it (e.g. after Unload).
func (n *Node) Prim() *scene.Prim {
	if n == nil || n.Stage == nil {
		return nil
	}
	return n.Stage.GetPrimAtPath(n.Path)
}

func (n *Node) IsValid() bool {
	return n.Prim() != nil
}

// ChildrenOf returns the children of the given kind, in order.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var nodes []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %s", n.Kind, n.Path)
}

// Walk visits n and its descendants depth-first. If fn returns false the
// descendants of that node are skipped.
func Walk(n *Node, fn func(n *Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree.
func Count(n *Node) int {
	count := 0
	Walk(n, func(*Node) bool {
		count++
		return true
	})
	return count
}

func dumpNode(w io.Writer, n *Node, depth int) {
	fmt.Fprintf(w, "%s%s [%s]", strings.Repeat("  ", depth), n.Name(), n.Kind)
	if n.TypeName != "" && n.TypeName != n.Kind.String() {
		fmt.Fprintf(w, " (%s)", n.TypeName)
	}
	fmt.Fprintln(w)
	for _, c := range n.Children {
		dumpNode(w, c, depth+1)
	}
}

func Dump(w io.Writer, n *Node) {
	if n != nil {
		dumpNode(w, n, 0)
	}
}
