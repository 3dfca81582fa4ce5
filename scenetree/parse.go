package scenetree

import (
	"errors"
	"fmt"

	"github.com/binzume/simimport/scene"
)

// ErrInvalidRoot is returned when the parse root cannot be resolved.
var ErrInvalidRoot = errors.New("invalid root")

// Parse parses the stage starting at its default prim.
func Parse(stage *scene.Stage) (*Node, error) {
	if stage == nil {
		return nil, fmt.Errorf("%w: nil stage", ErrInvalidRoot)
	}
	root := stage.DefaultPrim()
	if root == nil {
		return nil, fmt.Errorf("%w: stage has no default prim", ErrInvalidRoot)
	}
	return parsePrim(stage, root), nil
}

// ParseAt parses the subtree rooted at path.
func ParseAt(stage *scene.Stage, path scene.Path) (*Node, error) {
	if stage == nil {
		return nil, fmt.Errorf("%w: nil stage", ErrInvalidRoot)
	}
	root := stage.GetPrimAtPath(path)
	if root == nil || path.IsRoot() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, path)
	}
	return parsePrim(stage, root), nil
}

func parsePrim(stage *scene.Stage, p *scene.Prim) *Node {
	n := &Node{
		Path:     p.Path(),
		TypeName: p.TypeName(),
		Kind:     KindOf(p.TypeName()),
		Stage:    stage,
	}
	for _, c := range p.Children() {
		if !c.IsValid() {
			continue
		}
		n.Children = append(n.Children, parsePrim(stage, c))
	}
	return n
}
