package classify

import (
	"testing"

	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, prims [][2]string) *scenetree.Node {
	s := scene.NewStage()
	for _, p := range prims {
		_, err := s.DefinePrim(scene.Path(p[0]), p[1])
		require.NoError(t, err)
	}
	root, err := scenetree.ParseAt(s, "/World")
	require.NoError(t, err)
	return root
}

var testPrims = [][2]string{
	{"/World", "Xform"},
	{"/World/_materials", "Scope"},
	{"/World/_materials/Wood", "Material"},
	{"/World/_materials/Metal", "Material"},
	{"/World/Shelf_01", "Xform"},
	{"/World/Shelf_01/Shelf_01_geo", "Mesh"},
	{"/World/Shelf_01/Lamp", "SphereLight"},
	{"/World/Sun", "DistantLight"},
	{"/World/Lights", "Xform"},
	{"/World/Lights/Key", "RectLight"},
	{"/World/Lights/Fill", "SphereLight"},
	{"/World/Crate_BUGGY", "Xform"},
	{"/World/Crate_01", "Xform"},
	{"/World/Crate_01/broken_BUGGY", "Mesh"},
	{"/World/Crate_01/Crate_01_geo", "Mesh"},
}

func TestClassify(t *testing.T) {
	root := parse(t, testPrims)
	r, err := Classify(root, &Options{ExcludeMarkers: []string{"BUGGY"}})
	require.NoError(t, err)

	require.NotNil(t, r.Materials)
	assert.Equal(t, scene.Path("/World/_materials"), r.Materials.Path)
	var mats []string
	for _, m := range r.MaterialNodes() {
		mats = append(mats, m.Name())
	}
	assert.Equal(t, []string{"Wood", "Metal"}, mats)

	var assets []string
	for _, a := range r.Assets {
		assets = append(assets, a.Name())
	}
	assert.Equal(t, []string{"Shelf_01", "Crate_01"}, assets)

	// Nested lights and excluded nodes are pruned from the asset copies.
	require.Len(t, r.Asset("Shelf_01").Children, 1)
	assert.Equal(t, "Shelf_01_geo", r.Asset("Shelf_01").Children[0].Name())
	require.Len(t, r.Asset("Crate_01").Children, 1)
	assert.Equal(t, "Crate_01_geo", r.Asset("Crate_01").Children[0].Name())

	// The parsed tree is untouched.
	assert.Len(t, root.Child("Shelf_01").Children, 2)
	assert.Len(t, root.Child("Crate_01").Children, 2)
}

func TestClassifyIsIdempotent(t *testing.T) {
	root := parse(t, testPrims)
	opts := &Options{ExcludeMarkers: []string{"BUGGY"}}
	r1, err := Classify(root, opts)
	require.NoError(t, err)
	r2, err := Classify(root, opts)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestClassifyWithoutMarkers(t *testing.T) {
	root := parse(t, testPrims)
	r, err := Classify(root, nil)
	require.NoError(t, err)
	assert.NotNil(t, r.Asset("Crate_BUGGY"))
	assert.Len(t, r.Asset("Crate_01").Children, 2)
	assert.Nil(t, r.Asset("Lights"))
	assert.Nil(t, r.Asset("Sun"))
}

func TestClassifyMissingMaterials(t *testing.T) {
	root := parse(t, [][2]string{
		{"/World", "Xform"},
		{"/World/materials", "Scope"},
		{"/World/Shelf_01", "Xform"},
	})
	_, err := Classify(root, nil)
	assert.ErrorIs(t, err, ErrStructuralMismatch)

	r, err := Classify(root, &Options{MaterialsName: "materials"})
	require.NoError(t, err)
	assert.Len(t, r.Assets, 1)
}
