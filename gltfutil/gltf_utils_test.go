package gltfutil

import (
	"bytes"
	"image"
	"image/png"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/binzume/simimport/geom"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 2, 3}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{"POSITION": pos}}}}}
	doc.Nodes = []*gltf.Node{{Translation: [3]float32{1, 1, 1}, Mesh: gltf.Index(0)}}

	require.NoError(t, Transform(doc, geom.NewVector3(2, 2, 2), geom.NewVector3(0, 1, 0)))

	v, err := modeler.ReadPosition(doc, doc.Accessors[pos], [][3]float32{})
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{0, 1, 0}, {2, 5, 6}}, v)
	assert.Equal(t, []float32{0, 1, 0}, doc.Accessors[pos].Min)
	assert.Equal(t, []float32{2, 5, 6}, doc.Accessors[pos].Max)
	assert.Equal(t, [3]float32{2, 2, 2}, doc.Nodes[0].Translation)

	assert.NoError(t, Transform(doc, nil, nil))
}

func TestEmbedImages(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "wood.png"), buf.Bytes(), 0644))

	doc := gltf.NewDocument()
	doc.Images = []*gltf.Image{{URI: "wood.png"}, {URI: "missing.png"}}
	require.NoError(t, EmbedImages(doc, dir))

	assert.Equal(t, "", doc.Images[0].URI)
	require.NotNil(t, doc.Images[0].BufferView)
	assert.Equal(t, "image/png", doc.Images[0].MimeType)
	assert.Equal(t, uint32(buf.Len()), doc.BufferViews[*doc.Images[0].BufferView].ByteLength)
	assert.Equal(t, "missing.png", doc.Images[1].URI)
	assert.Equal(t, uint32(len(doc.Buffers[0].Data)), doc.Buffers[0].ByteLength)
}

func TestSave(t *testing.T) {
	doc := gltf.NewDocument()
	modeler.WritePosition(doc, [][3]float32{{0, 0, 0}})
	path := filepath.Join(t.TempDir(), "out.glb")
	require.NoError(t, Save(doc, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Accessors, 1)
}
