package assetcfg

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/simimport/physics"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assets(names ...string) []*scenetree.Node {
	var r []*scenetree.Node
	for _, name := range names {
		r = append(r, &scenetree.Node{Path: scene.Path("/World/" + name), TypeName: "Xform", Kind: scenetree.KindTransform})
	}
	return r
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "Cube_045*", GlobExpr("Cube_045"))
	assert.Equal(t, `a\{b\}*`, GlobExpr("a{b}"))
	assert.Equal(t, `a\[b*`, GlobExpr("a[b"))
	assert.Equal(t, `Shelf_[0-3]*`, GlobExpr("Shelf_[0-3]"))

	for pattern, cases := range map[string]map[string]bool{
		"Crate_.*":    {"Crate_01": true, "Crate_": true, "Crate": false, "crate_01": false},
		"Bodyframe":   {"Bodyframe": true, "Bodyframe_001": true, "bodyframe": false, "Shelf_Bodyframe": false},
		"crispix.*":   {"crispix_001": true, "crispix": true, "crispi": false},
		"Shelf_0?":    {"Shelf_01": true, "Shelf_1": false},
		"a{b}":        {"a{b}": true, "ab": false},
		"a[b":         {"a[b": true, "a[b_01": true, "ab": false},
		"Shelf_[0-3]": {"Shelf_2": true, "Shelf_21": true, "Shelf_5": false},
	} {
		p, err := CompilePattern(pattern)
		require.NoError(t, err, pattern)
		for name, want := range cases {
			assert.Equal(t, want, p.Match(name), "%s ~ %s", pattern, name)
		}
	}
}

func TestBuildPrecedence(t *testing.T) {
	var logs bytes.Buffer
	records, err := Build(assets("Crate_01", "Crate_02"), &BuildOptions{
		DefaultBehavior:  Static,
		StaticAssets:     []string{"Crate_.*"},
		DynamicAssets:    []string{"Crate_01"},
		DefaultCollision: physics.ConvexHull,
	}, log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.Equal(t, Dynamic, records["Crate_01"].RigidBodyBehavior)
	assert.Equal(t, Static, records["Crate_02"].RigidBodyBehavior)
	assert.Contains(t, logs.String(), "both static and dynamic")
	assert.Contains(t, logs.String(), "static asset list has no effect")
}

func TestBuildAirport(t *testing.T) {
	var logs bytes.Buffer
	records, err := Build(assets("Cube_045", "Bodyframe", "Bodyframe_001", "crispix_01", "Shelf"), &BuildOptions{
		DefaultBehavior:  Static,
		StaticAssets:     []string{"Bodyframe"},
		DynamicAssets:    []string{"crispix.*"},
		DefaultCollision: physics.ConvexDecomposition,
		CollisionOverrides: []CollisionOverride{
			{"Cube_045", physics.MeshSimplification},
			{"Bodyframe", physics.SDF},
			{"crispix.*", physics.SDF},
		},
	}, log.New(&logs, "", 0))
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, &ConfigRecord{Static, physics.MeshSimplification}, records["Cube_045"])
	assert.Equal(t, &ConfigRecord{Static, physics.SDF}, records["Bodyframe"])
	assert.Equal(t, &ConfigRecord{Static, physics.SDF}, records["Bodyframe_001"])
	assert.Equal(t, &ConfigRecord{Dynamic, physics.SDF}, records["crispix_01"])
	assert.Equal(t, &ConfigRecord{Static, physics.ConvexDecomposition}, records["Shelf"])
	assert.NotContains(t, logs.String(), "matches no asset")
}

func TestBuildOverrideOrder(t *testing.T) {
	records, err := Build(assets("Cube_045", "Cube_046"), &BuildOptions{
		DefaultBehavior:  Dynamic,
		DefaultCollision: physics.ConvexHull,
		CollisionOverrides: []CollisionOverride{
			{"Cube_045", physics.MeshSimplification},
			{"Cube_.*", physics.BoundingCube},
		},
	}, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, err)
	assert.Equal(t, physics.BoundingCube, records["Cube_045"].CollisionApproximation)
	assert.Equal(t, physics.BoundingCube, records["Cube_046"].CollisionApproximation)
}

func TestBuildUnmatchedPattern(t *testing.T) {
	var logs bytes.Buffer
	_, err := Build(assets("Crate_01", "Shelf_01"), &BuildOptions{
		DefaultBehavior:  Static,
		DynamicAssets:    []string{"Crat_01", "Lamp"},
		DefaultCollision: physics.ConvexHull,
	}, log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `dynamic pattern "Crat_01" matches no asset. Did you mean "Crate_01"?`)
	assert.Contains(t, logs.String(), `dynamic pattern "Lamp" matches no asset`+"\n")
}

func TestBuildInvalidOptions(t *testing.T) {
	_, err := Build(assets("Crate_01"), &BuildOptions{DefaultBehavior: "floating", DefaultCollision: physics.ConvexHull}, nil)
	assert.Error(t, err)
	_, err = Build(assets("Crate_01"), &BuildOptions{DefaultBehavior: Static, DefaultCollision: "voxels"}, nil)
	assert.Error(t, err)

	records, err := Build(assets("Crate_01"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &ConfigRecord{Static, physics.ConvexHull}, records["Crate_01"])
}

func TestDefine(t *testing.T) {
	nodes := assets("Shelf_01", "crispix_01", "Cloth")
	records := map[string]*ConfigRecord{
		"Shelf_01":   {Static, physics.ConvexDecomposition},
		"crispix_01": {Dynamic, physics.SDF},
		"Cloth":      {Dynamic, physics.ConvexHull},
	}
	defs, err := Define(records, nodes, &DefineOptions{DeformableAssets: []string{"Cloth"}})
	require.NoError(t, err)
	require.Len(t, defs, 3)

	shelf := defs["Shelf_01"]
	assert.Equal(t, "/World/envs/env_.*/Shelf_01", shelf.PrimPath)
	assert.Equal(t, scene.Path("/World/envs/env_3/Shelf_01"), shelf.PrimPathFor(3))
	assert.Same(t, nodes[0], shelf.Spawn.Source)
	assert.Equal(t, 0.5, shelf.Spawn.Scale)
	assert.Equal(t, physics.ConvexDecomposition, shelf.Spawn.Collision)
	assert.True(t, *shelf.Spawn.RigidProps.RigidBodyEnabled)
	assert.True(t, *shelf.Spawn.RigidProps.KinematicEnabled)
	assert.Equal(t, 4, *shelf.Spawn.RigidProps.SolverPositionIterationCount)
	assert.True(t, *shelf.Spawn.CollisionProps.CollisionEnabled)
	assert.Equal(t, float32(100), *shelf.Spawn.MassProps.Mass)
	assert.Nil(t, shelf.Spawn.DeformableProps)

	assert.False(t, *defs["crispix_01"].Spawn.RigidProps.KinematicEnabled)

	cloth := defs["Cloth"].Spawn
	assert.Nil(t, cloth.RigidProps)
	require.NotNil(t, cloth.DeformableProps)
	assert.True(t, *cloth.DeformableProps.DeformableEnabled)
}

func TestDefineSkipsAssetsWithoutRecord(t *testing.T) {
	defs, err := Define(map[string]*ConfigRecord{"A": {Static, physics.ConvexHull}}, assets("A", "B"),
		&DefineOptions{Scale: 2, Mass: 5, EnvsPath: "/Envs"})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "/Envs/env_.*/A", defs["A"].PrimPath)
	assert.Equal(t, 2.0, defs["A"].Spawn.Scale)
	assert.Equal(t, float32(5), *defs["A"].Spawn.MassProps.Mass)
}

func TestSpecForIsIndependent(t *testing.T) {
	defs, err := Define(map[string]*ConfigRecord{"Shelf_01": {Static, physics.SDF}}, assets("Shelf_01"), nil)
	require.NoError(t, err)
	d := defs["Shelf_01"]

	s0, err := d.SpecFor(0)
	require.NoError(t, err)
	s1, err := d.SpecFor(1)
	require.NoError(t, err)
	assert.Same(t, d.Spawn.Source, s0.Source)
	assert.Equal(t, d.Spawn, s0)

	*s0.RigidProps.KinematicEnabled = false
	*s0.MassProps.Mass = 1
	s0.Scale = 3
	assert.True(t, *s1.RigidProps.KinematicEnabled)
	assert.True(t, *d.Spawn.RigidProps.KinematicEnabled)
	assert.Equal(t, float32(100), *d.Spawn.MassProps.Mass)
	assert.Equal(t, 0.5, d.Spawn.Scale)
	assert.Nil(t, s1.DeformableProps)
}

func TestLoadConfigYAML(t *testing.T) {
	conf, err := LoadConfig(filepath.Join("testdata", "airport.yaml"))
	require.NoError(t, err)
	abs, _ := filepath.Abs(filepath.Join("scenes", "airport_environment.yaml"))
	got, _ := filepath.Abs(conf.Source)
	assert.Equal(t, abs, got)
	assert.Equal(t, DefaultAssetRoot, conf.AssetRoot)
	assert.Equal(t, "_materials", conf.MaterialsName)
	assert.Equal(t, Static, conf.DefaultRigidBodyBehavior)
	assert.Equal(t, physics.ConvexDecomposition, conf.DefaultCollisionApproximation)
	assert.Equal(t, CollisionOverrides{
		{"Cube_045", physics.MeshSimplification},
		{"Bodyframe", physics.SDF},
		{"crispix.*", physics.SDF},
	}, conf.CollisionOverrides)
	assert.Equal(t, []string{"crispix.*"}, conf.DynamicAssets)
	assert.Equal(t, []string{"Bodyframe"}, conf.StaticAssets)
	assert.Equal(t, []string{"_collider"}, conf.ExcludeMarkers)
	assert.Equal(t, 4, conf.NumEnvs)
	assert.Equal(t, DefaultEnvSpacing, conf.EnvSpacing)

	opts := conf.BuildOptions()
	assert.Equal(t, []string{"Bodyframe"}, opts.StaticAssets)
	assert.Equal(t, []string{"_collider"}, conf.ClassifyOptions().ExcludeMarkers)
}

func TestLoadConfigTOML(t *testing.T) {
	conf, err := LoadConfig(filepath.Join("testdata", "airport.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenes", "airport_environment.glb"), conf.Source)
	assert.Equal(t, Static, conf.DefaultRigidBodyBehavior)
	assert.Equal(t, physics.ConvexDecomposition, conf.DefaultCollisionApproximation)
	assert.Equal(t, CollisionOverrides{
		{"Cube_045", physics.MeshSimplification},
		{"crispix.*", physics.SDF},
	}, conf.CollisionOverrides)
	assert.Nil(t, conf.StaticAssets)
	assert.Equal(t, float32(20), conf.Mass)
	assert.Equal(t, 12.5, conf.EnvSpacing)
	assert.Equal(t, 1, conf.NumEnvs)
	assert.Equal(t, float32(20), conf.DefineOptions().Mass)
}

func TestLoadConfigJSON(t *testing.T) {
	conf, err := LoadConfig(filepath.Join("testdata", "airport.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/airport_environment.yaml"), conf.Source)
	assert.Equal(t, Dynamic, conf.DefaultRigidBodyBehavior)
	assert.Equal(t, physics.ConvexHull, conf.DefaultCollisionApproximation)
	assert.Equal(t, CollisionOverrides{
		{"crispix.*", physics.SDF},
		{"Cube_045", physics.MeshSimplification},
		{"Cube_.*", physics.BoundingCube},
	}, conf.CollisionOverrides)
	assert.Equal(t, 1.0, conf.Scale)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	_, err := LoadConfig(write("a.ini", "source=x"))
	assert.Error(t, err)
	_, err = LoadConfig(write("b.yaml", "defaultRigidBodyBehavior: static\n"))
	assert.Error(t, err)
	_, err = LoadConfig(write("c.yaml", "source: x.yaml\ndefaultRigidBodyBehavior: floating\n"))
	assert.Error(t, err)
	_, err = LoadConfig(write("d.yaml", "source: x.yaml\ncollisionOverrides:\n  Cube: voxels\n"))
	assert.Error(t, err)

	conf, err := LoadConfig(write("e.yaml", "source: x.yaml\ncollisionOverrides:\n  - {pattern: Cube, method: sdf}\n"))
	require.NoError(t, err)
	assert.Equal(t, CollisionOverrides{{"Cube", physics.SDF}}, conf.CollisionOverrides)
	assert.Equal(t, filepath.Join(dir, "x.yaml"), conf.Source)
}
