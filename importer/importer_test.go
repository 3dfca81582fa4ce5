package importer

import (
	"bytes"
	"log"
	"path/filepath"
	"testing"

	"github.com/binzume/simimport/assetcfg"
	"github.com/binzume/simimport/classify"
	"github.com/binzume/simimport/gltfutil"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/transcribe"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWarehouse(t *testing.T) (*Environment, *bytes.Buffer) {
	cfg, err := assetcfg.LoadConfig(filepath.Join("testdata", "warehouse_config.yaml"))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	env, err := DefineAssetConfigs(scene.NewStage(), cfg, log.New(logs, "", 0))
	require.NoError(t, err)
	return env, logs
}

func TestDefineAssetConfigs(t *testing.T) {
	env, _ := loadWarehouse(t)

	assert.Equal(t, []string{"Crate_01", "Shelf_01"}, env.Names())
	assert.Len(t, env.Materials, 2)
	assert.Equal(t, "Scope", env.Target.GetPrimAtPath("/World/materials").TypeName())
	assert.NotNil(t, env.Target.GetPrimAtPath("/World/materials/Wood/Principled_BSDF"))

	assert.Equal(t, assetcfg.Dynamic, env.Records["Crate_01"].RigidBodyBehavior)
	assert.Equal(t, assetcfg.Static, env.Records["Shelf_01"].RigidBodyBehavior)
	assert.Equal(t, "/World/envs/env_.*/Shelf_01", env.Assets["Shelf_01"].PrimPath)

	// Nothing is spawned yet.
	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs"))
}

func TestSpawn(t *testing.T) {
	env, _ := loadWarehouse(t)
	require.NoError(t, env.Spawn(env.Config.NumEnvs))

	for i := 0; i < 2; i++ {
		shelf := env.Target.GetPrimAtPath(env.EnvPath(i).AppendChild("Shelf_01").AppendChild("Shelf_01"))
		require.NotNil(t, shelf, i)
		kinematic, _ := shelf.Attribute("physics:kinematicEnabled").GetBool()
		assert.True(t, kinematic)

		mesh := shelf.Child("MSH_Shelf_01_geo")
		require.NotNil(t, mesh)
		approx, _ := mesh.Attribute("physics:approximation").GetToken()
		assert.Equal(t, "convexDecomposition", approx)
		subset := mesh.Child("GS_Boards")
		require.NotNil(t, subset)
		assert.Equal(t, []scene.Path{"/World/materials/Wood"}, subset.Relationship("material:binding").Targets())

		crate := env.Target.GetPrimAtPath(env.EnvPath(i).AppendChild("Crate_01").AppendChild("Crate_01"))
		require.NotNil(t, crate, i)
		kinematic, _ = crate.Attribute("physics:kinematicEnabled").GetBool()
		assert.False(t, kinematic)
		require.NotNil(t, crate.Child("MSH_Crate_01"))
	}

	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs/env_0/Lamp"))
	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs/env_0/Wall_collider"))

	offset, _ := env.Target.GetPrimAtPath("/World/envs/env_1").Attribute("xformOp:translate").Get()
	assert.Equal(t, [3]float64{40, 0, 0}, offset)

	// Environments do not share property records.
	a := env.Target.GetPrimAtPath("/World/envs/env_0/Shelf_01/Shelf_01").Attribute("physics:mass")
	b := env.Target.GetPrimAtPath("/World/envs/env_1/Shelf_01/Shelf_01").Attribute("physics:mass")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
}

func TestEnvOffset(t *testing.T) {
	assert.Equal(t, [3]float64{0, 0, 0}, envOffset(0, 1, 10))
	assert.Equal(t, [3]float64{10, 0, 0}, envOffset(1, 4, 10))
	assert.Equal(t, [3]float64{0, 10, 0}, envOffset(2, 4, 10))
	assert.Equal(t, [3]float64{20, 10, 0}, envOffset(5, 9, 10))
}

func TestSpawnAfterClose(t *testing.T) {
	env, _ := loadWarehouse(t)
	env.Close()
	err := env.Spawn(1)
	assert.ErrorIs(t, err, transcribe.ErrUnresolvableSource)
	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs"))
}

func TestSpawnFailureRemovesEnvironment(t *testing.T) {
	env, _ := loadWarehouse(t)
	require.True(t, env.Target.RemovePrim("/World/materials/Metal"))

	// Crate_01 spawns, Shelf_01 is bound to the removed material.
	err := env.Spawn(2)
	assert.ErrorIs(t, err, transcribe.ErrUnresolvableSource)
	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs/env_0"))
	assert.Nil(t, env.Target.GetPrimAtPath("/World/envs"))
	assert.NotNil(t, env.Target.GetPrimAtPath("/World/materials/Wood"))
}

func TestDefineAssetConfigsStructuralMismatch(t *testing.T) {
	cfg := &assetcfg.Config{Source: "nomaterials.yaml"}
	require.NoError(t, cfg.Normalize("testdata"))

	target := scene.NewStage()
	_, err := DefineAssetConfigs(target, cfg, log.New(&bytes.Buffer{}, "", 0))
	assert.ErrorIs(t, err, classify.ErrStructuralMismatch)

	count := 0
	target.Traverse(func(*scene.Prim) bool { count++; return true })
	assert.Zero(t, count)
}

func TestDefineAssetConfigsUnknownFormat(t *testing.T) {
	cfg := &assetcfg.Config{Source: "warehouse.usd"}
	require.NoError(t, cfg.Normalize("testdata"))
	_, err := DefineAssetConfigs(scene.NewStage(), cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownSourceFormat)
}

func TestDefineAssetConfigsFromGLTF(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Materials = []*gltf.Material{{Name: "Paint", PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{1, 0, 0, 1},
	}}}
	doc.Meshes = []*gltf.Mesh{{Name: "Box_geo", Primitives: []*gltf.Primitive{
		{Attributes: map[string]uint32{"POSITION": pos}, Indices: gltf.Index(idx), Material: gltf.Index(0)},
	}}}
	doc.Nodes = []*gltf.Node{{Name: "Box", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []uint32{0}

	dir := t.TempDir()
	require.NoError(t, gltfutil.Save(doc, filepath.Join(dir, "box.glb")))

	cfg := &assetcfg.Config{Source: "box.glb", SourceScale: 2}
	require.NoError(t, cfg.Normalize(dir))
	env, err := DefineAssetConfigs(scene.NewStage(), cfg, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Box"}, env.Names())
	assert.NotNil(t, env.Target.GetPrimAtPath("/World/materials/Paint"))

	require.NoError(t, env.Spawn(1))
	mesh := env.Target.GetPrimAtPath("/World/envs/env_0/Box/Box/MSH_Box_geo")
	require.NotNil(t, mesh)
	pts, _ := mesh.Attribute("points").GetVec3Array()
	assert.Equal(t, [3]float32{2, 0, 0}, pts[1])
	assert.Equal(t, []scene.Path{"/World/materials/Paint"}, mesh.Relationship("material:binding").Targets())
}
