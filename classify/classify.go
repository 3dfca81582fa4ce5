package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/binzume/simimport/scenetree"
)

// DefaultMaterialsName is the reserved name of the materials container
// directly under the source root.
const DefaultMaterialsName = "_materials"

var ErrStructuralMismatch = errors.New("structural mismatch")

type Options struct {
	// MaterialsName overrides DefaultMaterialsName.
	MaterialsName string

	// ExcludeMarkers are path elements. Nodes with one of them anywhere in
	// their path are dropped together with their descendants.
	ExcludeMarkers []string
}

type Result struct {
	Materials *scenetree.Node
	Assets    []*scenetree.Node
}

// MaterialNodes returns the materials defined in the materials container.
func (r *Result) MaterialNodes() []*scenetree.Node {
	if r.Materials == nil {
		return nil
	}
	return r.Materials.ChildrenOf(scenetree.KindMaterial)
}

func (r *Result) Asset(name string) *scenetree.Node {
	for _, a := range r.Assets {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

type classifier struct {
	materialsName string
	markers       []string
}

// Classify splits the children of a parsed root into the materials
// container and asset subtrees. The parsed tree is not modified; filtered
// subtrees are returned as copies.
func Classify(root *scenetree.Node, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	c := &classifier{materialsName: opts.MaterialsName, markers: opts.ExcludeMarkers}
	if c.materialsName == "" {
		c.materialsName = DefaultMaterialsName
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root", ErrStructuralMismatch)
	}

	result := &Result{}
	for _, n := range root.Children {
		if n.Name() == c.materialsName {
			if result.Materials == nil {
				result.Materials = n
			}
			continue
		}
		if a := c.filter(n); a != nil {
			result.Assets = append(result.Assets, a)
		}
	}
	if result.Materials == nil {
		return nil, fmt.Errorf("%w: %q not found under %s", ErrStructuralMismatch, c.materialsName, root.Path)
	}
	return result, nil
}

func (c *classifier) excluded(n *scenetree.Node) bool {
	if len(c.markers) == 0 {
		return false
	}
	for _, e := range n.Path.Elements() {
		for _, m := range c.markers {
			if m != "" && strings.Contains(e, m) {
				return true
			}
		}
	}
	return false
}

func onlyLights(n *scenetree.Node) bool {
	if len(n.Children) == 0 {
		return false
	}
	for _, c := range n.Children {
		if c.Kind != scenetree.KindLight {
			return false
		}
	}
	return true
}

// filter returns n, a pruned copy of n, or nil if n is dropped.
func (c *classifier) filter(n *scenetree.Node) *scenetree.Node {
	if n.Kind == scenetree.KindLight || onlyLights(n) || c.excluded(n) {
		return nil
	}
	children := make([]*scenetree.Node, 0, len(n.Children))
	changed := false
	for _, ch := range n.Children {
		f := c.filter(ch)
		if f != ch {
			changed = true
		}
		if f != nil {
			children = append(children, f)
		}
	}
	if !changed {
		return n
	}
	cp := *n
	cp.Children = children
	return &cp
}
