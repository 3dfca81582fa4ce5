package scene

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Stage is a scene graph: a tree of prims under an untyped pseudo-root.
type Stage struct {
	// RootLayer is the path of the document this stage was read from.
	// Empty for in-memory stages.
	RootLayer string

	root        *Prim
	prims       map[Path]*Prim
	defaultPrim string
}

func NewStage() *Stage {
	s := &Stage{prims: map[Path]*Prim{}}
	s.root = &Prim{stage: s, path: AbsoluteRootPath}
	s.prims[AbsoluteRootPath] = s.root
	return s
}

func (s *Stage) PseudoRoot() *Prim {
	return s.root
}

// DefinePrim defines a prim of the given type at path, creating missing
// ancestors as untyped prims. Defining an existing path re-types it (when
// typeName is not empty) and returns the existing prim.
func (s *Stage) DefinePrim(path Path, typeName string) (*Prim, error) {
	if !path.IsValid() || path.IsRoot() {
		return nil, fmt.Errorf("invalid prim path: %q", path)
	}
	if p, ok := s.prims[path]; ok {
		if typeName != "" {
			p.typeName = typeName
		}
		return p, nil
	}
	parent := s.prims[path.Parent()]
	if parent == nil {
		var err error
		parent, err = s.DefinePrim(path.Parent(), "")
		if err != nil {
			return nil, err
		}
	}
	p := &Prim{stage: s, path: path, typeName: typeName, parent: parent}
	parent.children = append(parent.children, p)
	s.prims[path] = p
	return p, nil
}

// OutermostMissing returns the outermost prim on path that is not defined
// yet, or "" if path exists. Removing it undoes a DefinePrim of path.
func (s *Stage) OutermostMissing(path Path) Path {
	var missing Path
	for p := path; p.IsValid() && !p.IsRoot() && s.prims[p] == nil; p = p.Parent() {
		missing = p
	}
	return missing
}

// GetPrimAtPath returns nil if there is no prim at path or it has been unloaded.
func (s *Stage) GetPrimAtPath(path Path) *Prim {
	p := s.prims[path]
	if !p.IsValid() {
		return nil
	}
	return p
}

// RemovePrim removes the prim and its descendants.
func (s *Stage) RemovePrim(path Path) bool {
	p, ok := s.prims[path]
	if !ok || p == s.root {
		return false
	}
	for i, c := range p.parent.children {
		if c == p {
			p.parent.children = append(p.parent.children[:i], p.parent.children[i+1:]...)
			break
		}
	}
	s.forget(p)
	return true
}

func (s *Stage) forget(p *Prim) {
	delete(s.prims, p.path)
	for _, c := range p.children {
		s.forget(c)
	}
}

func (s *Stage) DefaultPrim() *Prim {
	if s.defaultPrim == "" {
		return nil
	}
	return s.GetPrimAtPath(AbsoluteRootPath.AppendChild(s.defaultPrim))
}

func (s *Stage) SetDefaultPrim(p *Prim) error {
	if p == nil || p.stage != s || p.path.Parent() != AbsoluteRootPath {
		return fmt.Errorf("default prim must be a root prim of this stage")
	}
	s.defaultPrim = p.Name()
	return nil
}

// Unload makes the subtree at path invalid. Handles held by callers stay
// allocated but no longer resolve.
func (s *Stage) Unload(path Path) {
	if p, ok := s.prims[path]; ok {
		p.unloaded = true
	}
}

func (s *Stage) Load(path Path) {
	if p, ok := s.prims[path]; ok {
		p.unloaded = false
	}
}

// Traverse visits valid prims depth-first in child order. Returning false
// from fn skips the prim's descendants.
func (s *Stage) Traverse(fn func(p *Prim) bool) {
	var walk func(p *Prim)
	walk = func(p *Prim) {
		for _, c := range p.children {
			if !c.IsValid() {
				continue
			}
			if fn(c) {
				walk(c)
			}
		}
	}
	walk(s.root)
}

// ResolveAssetPath returns the asset with ResolvedPath set to an absolute
// file path. Relative paths are anchored at the root layer's directory.
func (s *Stage) ResolveAssetPath(a AssetPath) AssetPath {
	if a.Path == "" {
		return a
	}
	if a.ResolvedPath != "" && filepath.IsAbs(a.ResolvedPath) {
		return a
	}
	p, err := homedir.Expand(a.Path)
	if err != nil {
		p = a.Path
	}
	if !filepath.IsAbs(p) {
		dir := "."
		if s.RootLayer != "" {
			dir = filepath.Dir(s.RootLayer)
		}
		p = filepath.Join(dir, filepath.FromSlash(p))
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	a.ResolvedPath = p
	return a
}
