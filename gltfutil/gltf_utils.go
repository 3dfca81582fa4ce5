package gltfutil

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/binzume/simimport/geom"
	"github.com/binzume/simimport/texture"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/binary"
	"github.com/qmuntal/gltf/modeler"
)

var ErrSparseAccessor = errors.New("sparse accessors are not supported")

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// Save writes doc as .glb or .gltf depending on the extension of path.
func Save(doc *gltf.Document, path string) error {
	if strings.ToLower(filepath.Ext(path)) == ".glb" {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}

// EmbedImages moves images referenced by URI into the binary buffer so the
// document can be written as a single file. Relative URIs are resolved
// against srcDir.
func EmbedImages(doc *gltf.Document, srcDir string) error {
	for _, b := range doc.Buffers {
		b.URI = ""
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	for _, m := range doc.Images {
		if m.BufferView != nil || m.URI == "" || strings.HasPrefix(m.URI, "data:") {
			continue
		}
		path := filepath.FromSlash(m.URI)
		if !filepath.IsAbs(path) {
			path = filepath.Join(srcDir, path)
		}
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			log.Print(err)
			continue
		}
		if m.MimeType == "" {
			m.MimeType = texture.MimeType(path, buf)
		}
		m.BufferView = gltf.Index(modeler.WriteBufferView(doc, gltf.TargetNone, buf))
		m.URI = ""
	}
	doc.Buffers[0].ByteLength = uint32(len(doc.Buffers[0].Data))
	return nil
}

// Transform scales and offsets every mesh position and node translation.
// Morph target positions are only scaled.
func Transform(doc *gltf.Document, scale *geom.Vector3, offset *geom.Vector3) error {
	if scale == nil && offset == nil {
		return nil
	}
	scaleMat := geom.NewMatrix4()
	if scale != nil {
		scaleMat = geom.NewScaleMatrix4(scale.X, scale.Y, scale.Z)
	}
	scaleOffsetMat := scaleMat
	if offset != nil {
		scaleOffsetMat = geom.NewTranslateMatrix4(offset.X, offset.Y, offset.Z).Mul(scaleMat)
	}

	accs := map[uint32]bool{}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if a, ok := p.Attributes["POSITION"]; ok {
				accs[a] = false
			}
			for _, t := range p.Targets {
				if a, ok := t["POSITION"]; ok {
					accs[a] = true
				}
			}
		}
	}
	for a, diff := range accs {
		acr := doc.Accessors[a]
		if acr.Sparse != nil {
			return fmt.Errorf("accessor %d: %w", a, ErrSparseAccessor)
		}
		if acr.BufferView == nil {
			continue
		}
		pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
		if err != nil {
			return fmt.Errorf("accessor %d: %w", a, err)
		}

		acr.Min = []float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
		acr.Max = []float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
		for i := range pos {
			if diff {
				scaleMat.ApplyTo(geom.NewVector3FromArray(pos[i])).ToArray(pos[i][:])
			} else {
				scaleOffsetMat.ApplyTo(geom.NewVector3FromArray(pos[i])).ToArray(pos[i][:])
			}
			for t, v := range pos[i] {
				acr.Min[t] = float32(math.Min(float64(acr.Min[t]), float64(v)))
				acr.Max[t] = float32(math.Max(float64(acr.Max[t]), float64(v)))
			}
		}
		bufferView := doc.BufferViews[*acr.BufferView]
		buffer := doc.Buffers[bufferView.Buffer]
		err = binary.Write(buffer.Data[bufferView.ByteOffset+acr.ByteOffset:], bufferView.ByteStride, pos)
		if err != nil {
			return fmt.Errorf("accessor %d: %w", a, err)
		}
	}
	for _, node := range doc.Nodes {
		scaleMat.ApplyTo(geom.NewVector3FromArray(node.Translation)).ToArray(node.Translation[:])
		if node.Matrix != gltf.DefaultMatrix && node.Matrix != [16]float32{} {
			node.Matrix[12] *= scaleMat[0]
			node.Matrix[13] *= scaleMat[5]
			node.Matrix[14] *= scaleMat[10]
		}
	}
	return nil
}
