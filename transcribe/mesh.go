package transcribe

import (
	"fmt"

	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
)

var meshAttributes = []string{
	"doubleSided",
	"extent",
	"faceVertexCounts",
	"faceVertexIndices",
	"points",
	"normals",
	"subdivisionScheme",
}

var subsetAttributes = []string{
	"elementType",
	"familyName",
	"indices",
}

// copyAuthored copies the named attributes that have an authored value.
func copyAuthored(src, dst *scene.Prim, names []string) {
	for _, name := range names {
		a := src.Attribute(name)
		if v, ok := a.Get(); ok {
			dst.CreateAttribute(name, a.TypeName()).Set(scene.CloneValue(v))
		}
	}
}

// TranscribeMesh copies a mesh to target. Only authored attributes are
// copied so unauthored source attributes stay unauthored.
func (c *Context) TranscribeMesh(src *scenetree.Node, target scene.Path) (*scene.Prim, error) {
	srcPrim := src.Prim()
	if srcPrim == nil {
		return nil, fmt.Errorf("%w: mesh %s", ErrUnresolvableSource, src.Path)
	}
	mesh, err := c.Target.DefinePrim(target, "Mesh")
	if err != nil {
		return nil, err
	}
	copyAuthored(srcPrim, mesh, meshAttributes)

	for _, pv := range srcPrim.AttributesInNamespace("primvars") {
		a := mesh.CreateAttribute(pv.Name(), pv.TypeName())
		a.SetInterpolation(pv.Interpolation())
		a.SetElementSize(pv.ElementSize())
		if v, ok := pv.Get(); ok && !scene.IsEmptyValue(v) {
			a.Set(scene.CloneValue(v))
		}
	}
	if normals := srcPrim.Attribute("normals"); normals.Interpolation() != "" {
		mesh.CreateAttribute("normals", normals.TypeName()).SetInterpolation(normals.Interpolation())
	}

	for _, child := range src.Children {
		if child.Kind != scenetree.KindGeometrySubset {
			c.warnf("%s: skipping %s, unsupported mesh child", src.Path, child)
			continue
		}
		if _, err := c.TranscribeSubset(child, target.AppendChild(SubsetPrefix+child.Name())); err != nil {
			return nil, err
		}
	}

	if err := c.bindMaterial(srcPrim, mesh); err != nil {
		return nil, err
	}
	mesh.SetInstanceable(false)
	return mesh, nil
}

// TranscribeSubset copies a GeomSubset and rebinds its material.
func (c *Context) TranscribeSubset(src *scenetree.Node, target scene.Path) (*scene.Prim, error) {
	srcPrim := src.Prim()
	if srcPrim == nil {
		return nil, fmt.Errorf("%w: subset %s", ErrUnresolvableSource, src.Path)
	}
	subset, err := c.Target.DefinePrim(target, "GeomSubset")
	if err != nil {
		return nil, err
	}
	if err := c.bindMaterial(srcPrim, subset); err != nil {
		return nil, err
	}
	copyAuthored(srcPrim, subset, subsetAttributes)
	return subset, nil
}
