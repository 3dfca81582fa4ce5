package transcribe

import (
	"fmt"

	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/binzume/simimport/texture"
)

// Shader ids understood by the material transcriber.
const (
	ShaderPreviewSurface = "UsdPreviewSurface"
	ShaderUVTexture      = "UsdUVTexture"
	ShaderPrimvarReader  = "UsdPrimvarReader_float2"
)

type shaderKind struct {
	name    string // canonical prim name
	surface bool
}

var shaderKinds = map[string]shaderKind{
	ShaderPreviewSurface: {name: "Principled_BSDF", surface: true},
	ShaderUVTexture:      {name: "Image_Texture"},
	ShaderPrimvarReader:  {name: "uvmap"},
}

type EdgeState int

const (
	EdgePending EdgeState = iota
	EdgeResolved
	EdgeDropped
)

func (s EdgeState) String() string {
	switch s {
	case EdgeResolved:
		return "resolved"
	case EdgeDropped:
		return "dropped"
	}
	return "pending"
}

// ShaderInputEdge is a connection of a transcribed shader input that refers
// to a shader of the source graph and has to be re-pointed at its copy.
type ShaderInputEdge struct {
	Input  *scene.Attribute
	Source scene.Path // source shader
	Output string

	State    EdgeState
	Resolved scene.Path // shader the input was connected to
}

type materialBuilder struct {
	*Context
	material *scene.Prim
	renamed  map[scene.Path]scene.Path
	surfaces map[scene.Path]bool
	counts   map[string]int
	edges    []*ShaderInputEdge
}

// TranscribeMaterial copies a material and its shader network to
// container/<name>. Connections inside the network are returned as edges
// after they have been resolved against the copy.
func (c *Context) TranscribeMaterial(src *scenetree.Node, container scene.Path) (*scene.Prim, []*ShaderInputEdge, error) {
	srcPrim := src.Prim()
	if srcPrim == nil {
		return nil, nil, fmt.Errorf("%w: material %s", ErrUnresolvableSource, src.Path)
	}
	mat, err := c.Target.DefinePrim(container.AppendChild(src.Name()), "Material")
	if err != nil {
		return nil, nil, err
	}
	b := &materialBuilder{
		Context:  c,
		material: mat,
		renamed:  map[scene.Path]scene.Path{},
		surfaces: map[scene.Path]bool{},
		counts:   map[string]int{},
	}

	for _, child := range src.Children {
		if child.Kind != scenetree.KindShader {
			c.warnf("%s: skipping %s, not a shader", src.Path, child)
			continue
		}
		if err := b.copyShader(child); err != nil {
			return nil, nil, err
		}
	}
	b.resolveEdges()

	// Surface output is connected only when fed by a surface shader.
	for _, conn := range srcPrim.Attribute("outputs:surface").Connections() {
		if b.surfaces[conn.Source] {
			mat.CreateAttribute("outputs:surface", scene.TypeToken).ConnectToSource(b.renamed[conn.Source], "surface")
			break
		}
	}
	return mat, b.edges, nil
}

func (b *materialBuilder) copyShader(n *scenetree.Node) error {
	src := n.Prim()
	if src == nil {
		return fmt.Errorf("%w: shader %s", ErrUnresolvableSource, n.Path)
	}
	id, _ := src.Attribute("info:id").GetToken()
	kind, ok := shaderKinds[id]
	if !ok {
		b.warnf("%s: unsupported shader %q", n.Path, id)
		return nil
	}
	name := kind.name
	if i := b.counts[kind.name]; i > 0 {
		name = fmt.Sprintf("%s_%d", kind.name, i)
	}
	b.counts[kind.name]++

	dst, err := b.Target.DefinePrim(b.material.Path().AppendChild(name), "Shader")
	if err != nil {
		return err
	}
	dst.CreateAttribute("info:implementationSource", scene.TypeToken)
	dst.CreateAttribute("info:id", scene.TypeToken).Set(id)
	b.renamed[n.Path] = dst.Path()
	if kind.surface {
		b.surfaces[n.Path] = true
	}

	for _, in := range src.AttributesInNamespace("inputs") {
		a := dst.CreateAttribute(in.Name(), in.TypeName())
		if in.HasConnections() {
			conn := in.Connections()[0]
			b.edges = append(b.edges, &ShaderInputEdge{Input: a, Source: conn.Source, Output: conn.Output})
			continue
		}
		v, ok := in.Get()
		if !ok {
			continue
		}
		if asset, ok := v.(scene.AssetPath); ok {
			asset = b.Source.ResolveAssetPath(asset)
			a.Set(scene.AssetPath{Path: asset.ResolvedPath, ResolvedPath: asset.ResolvedPath})
			if b.CheckTextures && id == ShaderUVTexture {
				b.checkTexture(dst.Path(), asset.ResolvedPath)
			}
			continue
		}
		a.Set(scene.CloneValue(v))
	}
	for _, out := range src.AttributesInNamespace("outputs") {
		dst.CreateAttribute(out.Name(), out.TypeName())
	}
	return nil
}

func (b *materialBuilder) checkTexture(shader scene.Path, path string) {
	if _, err := texture.Probe(path); err != nil {
		b.warnf("%s: texture %s: %v", shader, path, err)
	}
}

// resolveEdges connects every pending edge to the copy of its source
// shader. The copy is looked up through the names assigned while copying
// first, then by the source shader's name under the new material.
func (b *materialBuilder) resolveEdges() {
	for _, e := range b.edges {
		if e.State != EdgePending {
			continue
		}
		var p *scene.Prim
		if renamed, ok := b.renamed[e.Source]; ok {
			p = b.Target.GetPrimAtPath(renamed)
		}
		if p == nil {
			p = b.Target.GetPrimAtPath(b.material.Path().AppendChild(e.Source.Name()))
			if !p.IsA("Shader") {
				p = nil
			}
		}
		if p == nil {
			e.State = EdgeDropped
			continue
		}
		e.Input.ConnectToSource(p.Path(), e.Output)
		e.Resolved = p.Path()
		e.State = EdgeResolved
	}
}

// TranscribeMaterials copies every material in the source materials
// container to the materials path. When two materials share a name the
// first one is kept.
func (c *Context) TranscribeMaterials(container *scenetree.Node) ([]*scene.Prim, error) {
	root, err := c.Target.DefinePrim(c.materialsPath(), "Scope")
	if err != nil {
		return nil, err
	}
	var materials []*scene.Prim
	for _, n := range container.Children {
		if n.Kind != scenetree.KindMaterial {
			c.warnf("%s: skipping %s, not a material", container.Path, n)
			continue
		}
		if existing := root.Child(n.Name()); existing != nil {
			c.warnf("%s: material %q is already defined at %s", n.Path, n.Name(), existing.Path())
			continue
		}
		mat, _, err := c.TranscribeMaterial(n, root.Path())
		if err != nil {
			return nil, err
		}
		materials = append(materials, mat)
	}
	return materials, nil
}

// LookupMaterial finds a transcribed material by the terminal name of a
// source binding target. The first material with that name is returned.
func (c *Context) LookupMaterial(binding scene.Path) (*scene.Prim, error) {
	container := c.Target.GetPrimAtPath(c.materialsPath())
	if container == nil {
		return nil, fmt.Errorf("%w: no materials at %s", ErrUnresolvableSource, c.materialsPath())
	}
	name := binding.Name()
	for _, m := range container.Children() {
		if m.Name() == name && m.IsValid() {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: material %q not found in %s", ErrUnresolvableSource, name, c.materialsPath())
}

// bindMaterial rebinds dst to the transcribed copy of the material bound to src.
func (c *Context) bindMaterial(src, dst *scene.Prim) error {
	targets := src.Relationship("material:binding").Targets()
	if len(targets) == 0 {
		return nil
	}
	mat, err := c.LookupMaterial(targets[0])
	if err != nil {
		return fmt.Errorf("%s: %w", src.Path(), err)
	}
	dst.ApplyAPI(MaterialBindingAPI)
	dst.CreateRelationship("material:binding").SetTargets(mat.Path())
	return nil
}
