package converter

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/binzume/simimport/geom"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/texture"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const webpExtensionName = "EXT_texture_webp"

// Attribute namespaces exported as node extras.
var extrasNamespaces = []string{"physics", "physxRigidBody", "physxCollision", "physxDeformable"}

type SceneToGLTFOption struct {
	TextureReCompress      bool
	TextureResolutionLimit int // 0: unlimited
	TextureScale           float32
	// TextureWebP re-encodes textures as WebP (EXT_texture_webp).
	TextureWebP bool

	Logger *log.Logger
}

type sceneToGltf struct {
	*SceneToGLTFOption
	*gltf.Document

	stage     *scene.Stage
	textures  *texture.Cache
	materials map[scene.Path]*uint32
	texIDs    map[string]*uint32
	useWebP   bool
}

func NewSceneToGLTFConverter(options *SceneToGLTFOption) *sceneToGltf {
	if options == nil {
		options = &SceneToGLTFOption{}
	}
	if options.TextureScale == 0 {
		options.TextureScale = 1.0
	}
	return &sceneToGltf{SceneToGLTFOption: options}
}

func (m *sceneToGltf) warnf(format string, v ...interface{}) {
	l := m.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING: "+format, v...)
}

// Convert exports the subtree at root. Materials bound inside the subtree
// are exported with their textures embedded.
func (m *sceneToGltf) Convert(stage *scene.Stage, root scene.Path) (*gltf.Document, error) {
	p := stage.GetPrimAtPath(root)
	if p == nil {
		return nil, fmt.Errorf("no prim at %s", root)
	}
	m.Document = gltf.NewDocument()
	m.stage = stage
	m.textures = texture.NewCache("")
	m.materials = map[scene.Path]*uint32{}
	m.texIDs = map[string]*uint32{}
	m.useWebP = false

	if idx, ok := m.convertPrim(p); ok {
		m.Scenes[0].Nodes = append(m.Scenes[0].Nodes, idx)
	}

	if len(m.Textures) > 0 {
		m.Samplers = []*gltf.Sampler{{}}
	}
	if m.useWebP {
		m.ExtensionsUsed = append(m.ExtensionsUsed, webpExtensionName)
		m.ExtensionsRequired = append(m.ExtensionsRequired, webpExtensionName)
	}
	return m.Document, nil
}

func skipped(p *scene.Prim) bool {
	switch p.TypeName() {
	case "Material", "Shader", "GeomSubset":
		return true
	}
	return false
}

func (m *sceneToGltf) convertPrim(p *scene.Prim) (uint32, bool) {
	if skipped(p) {
		return 0, false
	}
	node := &gltf.Node{Name: p.Name(), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}
	readTransform(p, node)
	if extras := physicsExtras(p); len(extras) > 0 {
		node.Extras = extras
	}
	if p.IsA("Mesh") {
		mesh, err := m.convertMesh(p)
		if err != nil {
			m.warnf("%s: %v", p.Path(), err)
		} else if mesh != nil {
			node.Mesh = gltf.Index(uint32(len(m.Meshes)))
			m.Meshes = append(m.Meshes, mesh)
		}
	}

	idx := uint32(len(m.Nodes))
	m.Nodes = append(m.Nodes, node)
	for _, c := range p.Children() {
		if child, ok := m.convertPrim(c); ok {
			node.Children = append(node.Children, child)
		}
	}
	return idx, true
}

func readTransform(p *scene.Prim, node *gltf.Node) {
	if v, ok := p.Attribute("xformOp:translate").GetVec3(); ok {
		node.Translation = v
	}
	if v, ok := p.Attribute("xformOp:rotateXYZ").GetVec3(); ok {
		q := geom.NewQuaternionFromRotateXYZ(v)
		node.Rotation = [4]float32{q.X, q.Y, q.Z, q.W}
	}
	if v, ok := p.Attribute("xformOp:scale").GetVec3(); ok {
		node.Scale = v
	}
}

// physicsExtras collects applied API schemas and physics attributes.
func physicsExtras(p *scene.Prim) map[string]interface{} {
	extras := map[string]interface{}{}
	for _, ns := range extrasNamespaces {
		for _, a := range p.AttributesInNamespace(ns) {
			if v, ok := a.Get(); ok {
				extras[a.Name()] = v
			}
		}
	}
	if s := p.AppliedSchemas(); len(s) > 0 {
		extras["apiSchemas"] = s
	}
	return extras
}

type corner struct {
	point int
	index int // face-vertex index
	face  int
}

// primvarAt returns the element of a vec primvar for a corner.
func primvarAt(interp string, n int, c corner) (int, bool) {
	i := c.point
	switch interp {
	case "faceVarying":
		i = c.index
	case "uniform":
		i = c.face
	case "constant":
		i = 0
	}
	return i, i < n
}

func (m *sceneToGltf) faceMaterials(p *scene.Prim, faces int) []scene.Path {
	mats := make([]scene.Path, faces)
	if t := p.Relationship("material:binding").Targets(); len(t) > 0 {
		for i := range mats {
			mats[i] = t[0]
		}
	}
	for _, s := range p.Children() {
		if !s.IsA("GeomSubset") {
			continue
		}
		if f, _ := s.Attribute("familyName").GetToken(); f != "" && f != "materialBind" {
			continue
		}
		t := s.Relationship("material:binding").Targets()
		indices, _ := s.Attribute("indices").GetIntArray()
		if len(t) == 0 {
			continue
		}
		for _, i := range indices {
			if i >= 0 && i < faces {
				mats[i] = t[0]
			}
		}
	}
	return mats
}

func (m *sceneToGltf) convertMesh(p *scene.Prim) (*gltf.Mesh, error) {
	points, ok := p.Attribute("points").GetVec3Array()
	if !ok || len(points) == 0 {
		return nil, nil
	}
	counts, _ := p.Attribute("faceVertexCounts").GetIntArray()
	indices, _ := p.Attribute("faceVertexIndices").GetIntArray()

	normalsAttr := p.Attribute("normals")
	normals, _ := normalsAttr.GetVec3Array()
	stAttr := p.Attribute("primvars:st")
	st, _ := stAttr.GetVec2Array()

	// One glTF vertex per corner, merged by (point, normal, uv) element.
	type key struct{ p, n, t int }
	var (
		positions [][3]float32
		outNormal [][3]float32
		outUV     [][2]float32
		vertex    = map[key]uint32{}
	)
	useNormals := len(normals) > 0
	useUVs := len(st) > 0

	mats := m.faceMaterials(p, len(counts))
	var order []scene.Path
	groups := map[scene.Path][]uint32{}

	offset := 0
	for face, n := range counts {
		if offset+n > len(indices) {
			return nil, fmt.Errorf("face %d: index out of range", face)
		}
		verts := make([]uint32, n)
		poly := make([]*geom.Vector3, n)
		for i := 0; i < n; i++ {
			c := corner{point: indices[offset+i], index: offset + i, face: face}
			if c.point < 0 || c.point >= len(points) {
				return nil, fmt.Errorf("face %d: point %d out of range", face, c.point)
			}
			k := key{p: c.point, n: -1, t: -1}
			if useNormals {
				if i, ok := primvarAt(normalsAttr.Interpolation(), len(normals), c); ok {
					k.n = i
				} else {
					useNormals = false
				}
			}
			if useUVs {
				if i, ok := primvarAt(stAttr.Interpolation(), len(st), c); ok {
					k.t = i
				} else {
					useUVs = false
				}
			}
			v, ok := vertex[k]
			if !ok {
				v = uint32(len(positions))
				vertex[k] = v
				positions = append(positions, points[c.point])
				if k.n >= 0 {
					outNormal = append(outNormal, normals[k.n])
				}
				if k.t >= 0 {
					outUV = append(outUV, [2]float32{st[k.t][0], 1 - st[k.t][1]})
				}
			}
			verts[i] = v
			poly[i] = geom.NewVector3FromArray(points[c.point])
		}
		offset += n

		if n < 3 {
			continue
		}
		mat := mats[face]
		if _, ok := groups[mat]; !ok {
			order = append(order, mat)
		}
		if n == 3 {
			groups[mat] = append(groups[mat], verts...)
			continue
		}
		for _, t := range geom.Triangulate(poly) {
			groups[mat] = append(groups[mat], verts[t[0]], verts[t[1]], verts[t[2]])
		}
	}
	if len(order) == 0 {
		return nil, nil
	}

	attributes := map[string]uint32{"POSITION": modeler.WritePosition(m.Document, positions)}
	if useNormals && len(outNormal) == len(positions) {
		attributes["NORMAL"] = modeler.WriteNormal(m.Document, outNormal)
	}
	if useUVs && len(outUV) == len(positions) {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(m.Document, outUV)
	}

	mesh := &gltf.Mesh{Name: p.Name()}
	for _, mat := range order {
		prim := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(m.Document, groups[mat])),
			Attributes: attributes,
		}
		if mat != "" {
			prim.Material = m.materialIndex(mat)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	return mesh, nil
}

func (m *sceneToGltf) materialIndex(path scene.Path) *uint32 {
	if id, ok := m.materials[path]; ok {
		return id
	}
	p := m.stage.GetPrimAtPath(path)
	if !p.IsA("Material") {
		m.warnf("%s: material not found", path)
		m.materials[path] = nil
		return nil
	}
	m.Materials = append(m.Materials, m.convertMaterial(p))
	id := gltf.Index(uint32(len(m.Materials) - 1))
	m.materials[path] = id
	return id
}

// connectedShader returns the shader an input is connected to.
func (m *sceneToGltf) connectedShader(a *scene.Attribute) *scene.Prim {
	for _, c := range a.Connections() {
		if s := m.stage.GetPrimAtPath(c.Source); s.IsA("Shader") {
			return s
		}
	}
	return nil
}

func (m *sceneToGltf) convertMaterial(mat *scene.Prim) *gltf.Material {
	var rf float32 = 0.5
	var mf float32 = 0
	mm := &gltf.Material{
		Name: mat.Name(),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{0.18, 0.18, 0.18, 1},
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
	}
	surface := m.connectedShader(mat.Attribute("outputs:surface"))
	if surface == nil {
		return mm
	}
	pbr := mm.PBRMetallicRoughness
	if v, ok := surface.Attribute("inputs:diffuseColor").GetVec3(); ok {
		pbr.BaseColorFactor = &[4]float32{v[0], v[1], v[2], 1}
	}
	if v, ok := surface.Attribute("inputs:roughness").GetFloat(); ok {
		pbr.RoughnessFactor = &v
	}
	if v, ok := surface.Attribute("inputs:metallic").GetFloat(); ok {
		pbr.MetallicFactor = &v
	}
	if v, ok := surface.Attribute("inputs:emissiveColor").GetVec3(); ok {
		mm.EmissiveFactor = v
	}
	opacity := surface.Attribute("inputs:opacity")
	if v, ok := opacity.GetFloat(); ok && v < 1 {
		pbr.BaseColorFactor[3] = v
		mm.AlphaMode = gltf.AlphaBlend
	}
	if v, ok := surface.Attribute("inputs:opacityThreshold").GetFloat(); ok && v > 0 {
		mm.AlphaMode = gltf.AlphaMask
		mm.AlphaCutoff = &v
	}

	if tex := m.connectedShader(surface.Attribute("inputs:diffuseColor")); tex != nil {
		if id, err := m.addTexture(tex); err == nil {
			pbr.BaseColorTexture = &gltf.TextureInfo{Index: *id}
			pbr.BaseColorFactor = &[4]float32{1, 1, 1, pbr.BaseColorFactor[3]}
			if m.connectedShader(opacity) == tex && mm.AlphaMode == gltf.AlphaOpaque {
				mm.AlphaMode = gltf.AlphaBlend
			}
		} else {
			m.warnf("%s: texture read error: %v", tex.Path(), err)
		}
	}
	if tex := m.connectedShader(surface.Attribute("inputs:normal")); tex != nil {
		if id, err := m.addTexture(tex); err == nil {
			mm.NormalTexture = &gltf.NormalTexture{Index: id}
		} else {
			m.warnf("%s: texture read error: %v", tex.Path(), err)
		}
	}
	return mm
}

func (m *sceneToGltf) addTexture(shader *scene.Prim) (*uint32, error) {
	asset, ok := shader.Attribute("inputs:file").GetAsset()
	if !ok {
		return nil, fmt.Errorf("no file")
	}
	path := m.stage.ResolveAssetPath(asset).ResolvedPath
	if id, ok := m.texIDs[path]; ok {
		return id, nil
	}

	data, mime, err := m.textures.Raw(path)
	if err != nil {
		return nil, err
	}
	encode := m.TextureReCompress || m.TextureWebP || m.TextureScale != 1.0 || m.TextureResolutionLimit > 0
	if mime != "image/png" && mime != "image/jpeg" {
		encode = true
	}
	var r io.Reader = bytes.NewReader(data)
	if encode {
		mime = texture.OutputMimeType(path, m.TextureWebP)
		if r, err = m.textures.Reencode(path, mime, m.TextureScale, m.TextureResolutionLimit); err != nil {
			return nil, err
		}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	img, err := modeler.WriteImage(m.Document, name, mime, r)
	if err != nil {
		return nil, err
	}
	m.Buffers[0].ByteLength = uint32(len(m.Buffers[0].Data))

	tex := &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(img)}
	if mime == "image/webp" {
		tex.Source = nil
		tex.Extensions = gltf.Extensions{webpExtensionName: map[string]uint32{"source": img}}
		m.useWebP = true
	}
	m.Textures = append(m.Textures, tex)
	id := gltf.Index(uint32(len(m.Textures)) - 1)
	m.texIDs[path] = id
	return id, nil
}
