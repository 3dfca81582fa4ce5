package converter

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/simimport/geom"
	"github.com/binzume/simimport/gltfutil"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/texture"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Default USD camera apertures in millimeters.
const (
	horizontalAperture = 20.955
	verticalAperture   = 15.2908
)

type GLTFToSceneOption struct {
	// Scale is applied to positions and translations. 0: 1.
	Scale float32

	// RootName is the name of the default prim. Default: "World".
	RootName string
	// MaterialsName is the name of the materials container under the root.
	// Default: "_materials".
	MaterialsName string

	// TextureDir receives images embedded in the document. Embedded
	// images are dropped when empty.
	TextureDir string

	Logger *log.Logger
}

type gltfToScene struct {
	*GLTFToSceneOption

	doc       *gltf.Document
	stage     *scene.Stage
	srcDir    string
	root      scene.Path
	materials []scene.Path
	images    map[uint32]*scene.AssetPath
}

func NewGLTFToSceneConverter(options *GLTFToSceneOption) *gltfToScene {
	if options == nil {
		options = &GLTFToSceneOption{}
	}
	if options.RootName == "" {
		options.RootName = "World"
	}
	if options.MaterialsName == "" {
		options.MaterialsName = "_materials"
	}
	return &gltfToScene{GLTFToSceneOption: options}
}

func (c *gltfToScene) warnf(format string, v ...interface{}) {
	l := c.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING: "+format, v...)
}

// uniqueChild returns a valid child name of parent that is not taken yet.
func (c *gltfToScene) uniqueChild(parent scene.Path, name, fallback string) scene.Path {
	if name == "" {
		name = fallback
	}
	name = scene.MakeValidName(name)
	p := parent.AppendChild(name)
	for i := 1; c.stage.GetPrimAtPath(p) != nil; i++ {
		p = parent.AppendChild(fmt.Sprintf("%s_%d", name, i))
	}
	return p
}

// Convert builds a source stage from doc. Relative image URIs are
// resolved against srcDir. doc is modified in place when Scale is set.
func (c *gltfToScene) Convert(doc *gltf.Document, srcDir string) (*scene.Stage, error) {
	c.doc = doc
	c.srcDir = srcDir
	c.stage = scene.NewStage()
	c.root = scene.AbsoluteRootPath.AppendChild(c.RootName)
	c.materials = nil
	c.images = map[uint32]*scene.AssetPath{}

	if c.Scale != 0 && c.Scale != 1 {
		if err := gltfutil.Transform(doc, &geom.Vector3{X: c.Scale, Y: c.Scale, Z: c.Scale}, nil); err != nil {
			return nil, err
		}
	}

	world, err := c.stage.DefinePrim(c.root, "Xform")
	if err != nil {
		return nil, err
	}
	c.stage.SetDefaultPrim(world)

	if len(doc.Materials) > 0 {
		container, err := c.stage.DefinePrim(c.root.AppendChild(c.MaterialsName), "Scope")
		if err != nil {
			return nil, err
		}
		for i, m := range doc.Materials {
			p, err := c.convertMaterial(container.Path(), i, m)
			if err != nil {
				return nil, err
			}
			c.materials = append(c.materials, p)
		}
	}

	for _, n := range c.rootNodes() {
		if err := c.convertNode(c.root, n, map[uint32]bool{}); err != nil {
			return nil, err
		}
	}
	return c.stage, nil
}

func (c *gltfToScene) rootNodes() []uint32 {
	if len(c.doc.Scenes) > 0 {
		s := uint32(0)
		if c.doc.Scene != nil && int(*c.doc.Scene) < len(c.doc.Scenes) {
			s = *c.doc.Scene
		}
		return c.doc.Scenes[s].Nodes
	}
	child := map[uint32]bool{}
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			child[ch] = true
		}
	}
	var roots []uint32
	for i := range c.doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (c *gltfToScene) convertMaterial(container scene.Path, index int, m *gltf.Material) (scene.Path, error) {
	mat, err := c.stage.DefinePrim(c.uniqueChild(container, m.Name, fmt.Sprintf("Material_%d", index)), "Material")
	if err != nil {
		return "", err
	}
	surface, err := c.stage.DefinePrim(mat.Path().AppendChild("Principled_BSDF"), "Shader")
	if err != nil {
		return "", err
	}
	surface.CreateAttribute("info:id", scene.TypeToken).Set("UsdPreviewSurface")
	surface.CreateAttribute("outputs:surface", scene.TypeToken)
	mat.CreateAttribute("outputs:surface", scene.TypeToken).ConnectToSource(surface.Path(), "surface")

	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		pbr = &gltf.PBRMetallicRoughness{}
	}
	col := pbr.BaseColorFactorOrDefault()
	surface.CreateAttribute("inputs:diffuseColor", scene.TypeColor3).Set([3]float32{col[0], col[1], col[2]})
	surface.CreateAttribute("inputs:metallic", scene.TypeFloat).Set(pbr.MetallicFactorOrDefault())
	surface.CreateAttribute("inputs:roughness", scene.TypeFloat).Set(pbr.RoughnessFactorOrDefault())
	if m.EmissiveFactor != [3]float32{} {
		surface.CreateAttribute("inputs:emissiveColor", scene.TypeColor3).Set(m.EmissiveFactor)
	}
	opacity := surface.CreateAttribute("inputs:opacity", scene.TypeFloat)
	switch m.AlphaMode {
	case gltf.AlphaMask:
		opacity.Set(col[3])
		surface.CreateAttribute("inputs:opacityThreshold", scene.TypeFloat).Set(m.AlphaCutoffOrDefault())
	case gltf.AlphaBlend:
		opacity.Set(col[3])
	default:
		opacity.Set(float32(1))
	}

	var uvmap *scene.Prim
	addTexture := func(index uint32, raw bool) (*scene.Prim, error) {
		file := c.imageFor(index)
		if file == nil {
			return nil, nil
		}
		if uvmap == nil {
			if uvmap, err = c.stage.DefinePrim(mat.Path().AppendChild("uvmap"), "Shader"); err != nil {
				return nil, err
			}
			uvmap.CreateAttribute("info:id", scene.TypeToken).Set("UsdPrimvarReader_float2")
			uvmap.CreateAttribute("inputs:varname", scene.TypeToken).Set("st")
			uvmap.CreateAttribute("outputs:result", scene.TypeFloat2)
		}
		tex, err := c.stage.DefinePrim(c.uniqueChild(mat.Path(), "Image_Texture", ""), "Shader")
		if err != nil {
			return nil, err
		}
		tex.CreateAttribute("info:id", scene.TypeToken).Set("UsdUVTexture")
		tex.CreateAttribute("inputs:file", scene.TypeAsset).Set(*file)
		tex.CreateAttribute("inputs:st", scene.TypeFloat2).ConnectToSource(uvmap.Path(), "result")
		tex.CreateAttribute("inputs:wrapS", scene.TypeToken).Set("repeat")
		tex.CreateAttribute("inputs:wrapT", scene.TypeToken).Set("repeat")
		if raw {
			tex.CreateAttribute("inputs:sourceColorSpace", scene.TypeToken).Set("raw")
		}
		tex.CreateAttribute("outputs:rgb", scene.TypeFloat3)
		tex.CreateAttribute("outputs:a", scene.TypeFloat)
		return tex, nil
	}

	if pbr.BaseColorTexture != nil {
		tex, err := addTexture(pbr.BaseColorTexture.Index, false)
		if err != nil {
			return "", err
		}
		if tex != nil {
			surface.Attribute("inputs:diffuseColor").ConnectToSource(tex.Path(), "rgb")
			if m.AlphaMode == gltf.AlphaMask || m.AlphaMode == gltf.AlphaBlend {
				opacity.ConnectToSource(tex.Path(), "a")
			}
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		tex, err := addTexture(*m.NormalTexture.Index, true)
		if err != nil {
			return "", err
		}
		if tex != nil {
			surface.CreateAttribute("inputs:normal", scene.TypeNormal3).ConnectToSource(tex.Path(), "rgb")
		}
	}
	return mat.Path(), nil
}

// imageFor returns the file of the image used by a texture. Embedded
// images are written to TextureDir first.
func (c *gltfToScene) imageFor(textureIndex uint32) *scene.AssetPath {
	if int(textureIndex) >= len(c.doc.Textures) || c.doc.Textures[textureIndex].Source == nil {
		return nil
	}
	index := *c.doc.Textures[textureIndex].Source
	if a, ok := c.images[index]; ok {
		return a
	}
	a, err := c.convertImage(index)
	if err != nil {
		c.warnf("image %d: %v", index, err)
	}
	c.images[index] = a
	return a
}

func (c *gltfToScene) convertImage(index uint32) (*scene.AssetPath, error) {
	if int(index) >= len(c.doc.Images) {
		return nil, fmt.Errorf("no such image")
	}
	img := c.doc.Images[index]
	if img.URI != "" && !strings.HasPrefix(img.URI, "data:") {
		path := filepath.FromSlash(img.URI)
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.srcDir, path)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return &scene.AssetPath{Path: img.URI, ResolvedPath: path}, nil
	}

	var data []byte
	if img.BufferView != nil {
		bv := c.doc.BufferViews[*img.BufferView]
		buf := c.doc.Buffers[bv.Buffer].Data
		if int(bv.ByteOffset+bv.ByteLength) > len(buf) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		data = buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	} else if i := strings.IndexByte(img.URI, ','); i > 0 {
		var err error
		if data, err = base64.StdEncoding.DecodeString(img.URI[i+1:]); err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	if c.TextureDir == "" {
		return nil, fmt.Errorf("embedded image dropped, no texture directory")
	}

	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image_%d", index)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + imageExt(texture.MimeType(name, data), img.MimeType)
	if err := os.MkdirAll(c.TextureDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(c.TextureDir, filepath.Base(name))
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &scene.AssetPath{Path: filepath.ToSlash(path), ResolvedPath: path}, nil
}

func imageExt(sniffed, declared string) string {
	mime := sniffed
	if mime == "" {
		mime = declared
	}
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/x-tga":
		return ".tga"
	}
	return ".png"
}

func setTransform(p *scene.Prim, n *gltf.Node) {
	pos := geom.NewVector3FromArray(n.Translation)
	rot := geom.NewQuaternionFromArray(n.Rotation)
	scale := geom.NewVector3FromArray(n.Scale)
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != [16]float32{} {
		pos, rot, scale = geom.NewMatrix4FromSlice(n.Matrix[:]).Decompose()
	} else if n.Scale == [3]float32{} {
		scale = geom.NewVector3(1, 1, 1)
	}
	if n.Rotation == [4]float32{} {
		rot = geom.NewQuaternion(0, 0, 0, 1)
	}

	var order []string
	if *pos != (geom.Vector3{}) {
		p.CreateAttribute("xformOp:translate", scene.TypeDouble3).Set([3]float64{float64(pos.X), float64(pos.Y), float64(pos.Z)})
		order = append(order, "xformOp:translate")
	}
	if *rot != *geom.NewQuaternion(0, 0, 0, 1) {
		p.CreateAttribute("xformOp:rotateXYZ", scene.TypeFloat3).Set(geom.NewRotateXYZFromQuaternion(rot))
		order = append(order, "xformOp:rotateXYZ")
	}
	if *scale != *geom.NewVector3(1, 1, 1) {
		p.CreateAttribute("xformOp:scale", scene.TypeFloat3).Set([3]float32{scale.X, scale.Y, scale.Z})
		order = append(order, "xformOp:scale")
	}
	if len(order) > 0 {
		p.CreateAttribute("xformOpOrder", scene.TypeTokenArr).Set(order)
	}
}

func (c *gltfToScene) convertNode(parent scene.Path, index uint32, visited map[uint32]bool) error {
	if int(index) >= len(c.doc.Nodes) || visited[index] {
		return fmt.Errorf("invalid node hierarchy at node %d", index)
	}
	visited[index] = true
	n := c.doc.Nodes[index]

	xf, err := c.stage.DefinePrim(c.uniqueChild(parent, n.Name, fmt.Sprintf("Node_%d", index)), "Xform")
	if err != nil {
		return err
	}
	setTransform(xf, n)

	if n.Mesh != nil && int(*n.Mesh) < len(c.doc.Meshes) {
		if err := c.convertMesh(xf.Path(), c.doc.Meshes[*n.Mesh]); err != nil {
			return fmt.Errorf("node %q: %w", n.Name, err)
		}
	}
	if n.Camera != nil && int(*n.Camera) < len(c.doc.Cameras) {
		if err := c.convertCamera(xf.Path(), c.doc.Cameras[*n.Camera]); err != nil {
			return err
		}
	}
	if l := nodeLight(c.doc, n); l != nil {
		if err := c.convertLight(xf.Path(), l); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if err := c.convertNode(xf.Path(), child, visited); err != nil {
			return err
		}
	}
	return nil
}

type meshBuilder struct {
	points  [][3]float32
	normals [][3]float32
	uvs     [][2]float32
	indices []int

	hasNormals bool
	hasUVs     bool

	// face indices per material, -1 for primitives without one
	faces     map[int][]int
	materials []int
}

func (c *gltfToScene) readPrimitive(b *meshBuilder, p *gltf.Primitive) error {
	a, ok := p.Attributes["POSITION"]
	if !ok {
		return nil
	}
	pos, err := modeler.ReadPosition(c.doc, c.doc.Accessors[a], [][3]float32{})
	if err != nil {
		return err
	}
	base := len(b.points)
	b.points = append(b.points, pos...)

	if a, ok := p.Attributes["NORMAL"]; ok && b.hasNormals {
		n, err := modeler.ReadNormal(c.doc, c.doc.Accessors[a], [][3]float32{})
		if err != nil {
			return err
		}
		b.normals = append(b.normals, n...)
	} else {
		b.hasNormals = false
	}
	if a, ok := p.Attributes["TEXCOORD_0"]; ok && b.hasUVs {
		t, err := modeler.ReadTextureCoord(c.doc, c.doc.Accessors[a], [][2]float32{})
		if err != nil {
			return err
		}
		for _, uv := range t {
			b.uvs = append(b.uvs, [2]float32{uv[0], 1 - uv[1]})
		}
	} else {
		b.hasUVs = false
	}

	var indices []uint32
	if p.Indices != nil {
		if indices, err = modeler.ReadIndices(c.doc, c.doc.Accessors[*p.Indices], []uint32{}); err != nil {
			return err
		}
	} else {
		for i := range pos {
			indices = append(indices, uint32(i))
		}
	}

	mat := -1
	if p.Material != nil && int(*p.Material) < len(c.materials) {
		mat = int(*p.Material)
	}
	if _, ok := b.faces[mat]; !ok {
		b.materials = append(b.materials, mat)
	}
	for i := 0; i+2 < len(indices); i += 3 {
		b.faces[mat] = append(b.faces[mat], len(b.indices)/3)
		b.indices = append(b.indices, base+int(indices[i]), base+int(indices[i+1]), base+int(indices[i+2]))
	}
	return nil
}

func (c *gltfToScene) convertMesh(parent scene.Path, m *gltf.Mesh) error {
	b := &meshBuilder{hasNormals: true, hasUVs: true, faces: map[int][]int{}}
	for i, p := range m.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			c.warnf("mesh %q: skipping primitive %d, mode %v is not triangles", m.Name, i, p.Mode)
			continue
		}
		if err := c.readPrimitive(b, p); err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", m.Name, i, err)
		}
	}
	if len(b.indices) == 0 {
		c.warnf("mesh %q: no triangles", m.Name)
		return nil
	}

	mesh, err := c.stage.DefinePrim(c.uniqueChild(parent, m.Name, "Mesh"), "Mesh")
	if err != nil {
		return err
	}
	counts := make([]int, len(b.indices)/3)
	for i := range counts {
		counts[i] = 3
	}
	mesh.CreateAttribute("points", scene.TypePoint3).Set(b.points)
	mesh.CreateAttribute("faceVertexCounts", scene.TypeIntArray).Set(counts)
	mesh.CreateAttribute("faceVertexIndices", scene.TypeIntArray).Set(b.indices)
	mesh.CreateAttribute("extent", scene.TypeFloat3Arr).Set(extent(b.points))
	mesh.CreateAttribute("subdivisionScheme", scene.TypeToken).Set("none")
	if b.hasNormals && len(b.normals) == len(b.points) {
		normals := mesh.CreateAttribute("normals", scene.TypeNormal3)
		normals.Set(b.normals)
		normals.SetInterpolation("vertex")
	}
	if b.hasUVs && len(b.uvs) == len(b.points) {
		st := mesh.CreateAttribute("primvars:st", scene.TypeTexCoord2)
		st.Set(b.uvs)
		st.SetInterpolation("vertex")
	}

	doubleSided := false
	for _, mat := range b.materials {
		if mat >= 0 && c.doc.Materials[mat].DoubleSided {
			doubleSided = true
		}
	}
	mesh.CreateAttribute("doubleSided", scene.TypeBool).Set(doubleSided)

	if len(b.materials) == 1 {
		if mat := b.materials[0]; mat >= 0 {
			bind(mesh, c.materials[mat])
		}
		return nil
	}
	for _, mat := range b.materials {
		name := "Unassigned"
		if mat >= 0 {
			name = c.materials[mat].Name()
		}
		subset, err := c.stage.DefinePrim(c.uniqueChild(mesh.Path(), name, ""), "GeomSubset")
		if err != nil {
			return err
		}
		subset.CreateAttribute("elementType", scene.TypeToken).Set("face")
		subset.CreateAttribute("familyName", scene.TypeToken).Set("materialBind")
		subset.CreateAttribute("indices", scene.TypeIntArray).Set(b.faces[mat])
		if mat >= 0 {
			bind(subset, c.materials[mat])
		}
	}
	return nil
}

func bind(p *scene.Prim, material scene.Path) {
	p.ApplyAPI("MaterialBindingAPI")
	p.CreateRelationship("material:binding").SetTargets(material)
}

func extent(points [][3]float32) [][3]float32 {
	min := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, p := range points {
		for i, v := range p {
			min[i] = float32(math.Min(float64(min[i]), float64(v)))
			max[i] = float32(math.Max(float64(max[i]), float64(v)))
		}
	}
	return [][3]float32{min, max}
}

func (c *gltfToScene) convertCamera(parent scene.Path, cam *gltf.Camera) error {
	p, err := c.stage.DefinePrim(c.uniqueChild(parent, "Camera", ""), "Camera")
	if err != nil {
		return err
	}
	if cam.Orthographic != nil {
		p.CreateAttribute("projection", scene.TypeToken).Set("orthographic")
		return nil
	}
	p.CreateAttribute("projection", scene.TypeToken).Set("perspective")
	if cam.Perspective != nil && cam.Perspective.Yfov > 0 {
		focal := verticalAperture / (2 * math.Tan(float64(cam.Perspective.Yfov)/2))
		p.CreateAttribute("focalLength", scene.TypeFloat).Set(float32(focal))
		p.CreateAttribute("horizontalAperture", scene.TypeFloat).Set(float32(horizontalAperture))
		p.CreateAttribute("verticalAperture", scene.TypeFloat).Set(float32(verticalAperture))
		p.CreateAttribute("clippingRange", scene.TypeFloat2).Set([2]float32{cam.Perspective.Znear, 1000000})
	}
	return nil
}

func (c *gltfToScene) convertLight(parent scene.Path, l *Light) error {
	typeName := "SphereLight"
	if l.Type == LightDirectional {
		typeName = "DistantLight"
	}
	p, err := c.stage.DefinePrim(c.uniqueChild(parent, l.Name, "Light"), typeName)
	if err != nil {
		return err
	}
	p.CreateAttribute("inputs:color", scene.TypeColor3).Set(l.ColorOrDefault())
	p.CreateAttribute("inputs:intensity", scene.TypeFloat).Set(l.IntensityOrDefault())
	switch l.Type {
	case LightPoint:
		p.CreateAttribute("treatAsPoint", scene.TypeBool).Set(true)
	case LightSpot:
		p.CreateAttribute("treatAsPoint", scene.TypeBool).Set(true)
		if l.Spot != nil && l.Spot.OuterConeAngle != nil {
			deg := float32(float64(*l.Spot.OuterConeAngle) * 180 / math.Pi)
			p.CreateAttribute("shaping:cone:angle", scene.TypeFloat).Set(deg)
		}
	}
	return nil
}
