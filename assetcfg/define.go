package assetcfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/binzume/simimport/physics"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/binzume/simimport/transcribe"
	"github.com/jinzhu/copier"
)

// EnvRegex is the environment element of prim path templates. It is
// replaced by env_<n> for each spawned environment.
const EnvRegex = "env_.*"

// DefaultEnvsPath is where environments are spawned.
const DefaultEnvsPath scene.Path = "/World/envs"

type DefineOptions struct {
	// EnvsPath is the parent of the environment prims. Default: /World/envs.
	EnvsPath scene.Path

	// 0 means the default.
	Scale                        float64
	Mass                         float32
	SolverPositionIterationCount int

	// Assets matching these patterns are spawned as deformable bodies
	// instead of rigid ones.
	DeformableAssets []string
}

func DefaultDefineOptions() *DefineOptions {
	return &DefineOptions{
		EnvsPath:                     DefaultEnvsPath,
		Scale:                        0.5,
		Mass:                         100,
		SolverPositionIterationCount: 4,
	}
}

func (o *DefineOptions) withDefaults() *DefineOptions {
	d := DefaultDefineOptions()
	if o == nil {
		return d
	}
	r := *o
	if r.EnvsPath == "" {
		r.EnvsPath = d.EnvsPath
	}
	if r.Scale == 0 {
		r.Scale = d.Scale
	}
	if r.Mass == 0 {
		r.Mass = d.Mass
	}
	if r.SolverPositionIterationCount == 0 {
		r.SolverPositionIterationCount = d.SolverPositionIterationCount
	}
	return &r
}

// AssetDefinition is the spawn configuration of one asset, shared by all
// environments.
type AssetDefinition struct {
	Name string
	// PrimPath is a template like /World/envs/env_.*/Shelf_01.
	PrimPath string
	Spawn    *transcribe.AssetSpawnSpec
}

// PrimPathFor returns the prim path of the asset in environment env.
func (d *AssetDefinition) PrimPathFor(env int) scene.Path {
	return scene.Path(strings.Replace(d.PrimPath, EnvRegex, "env_"+strconv.Itoa(env), 1))
}

// SpecFor returns a copy of the spawn spec for environment env. The copies
// share the source node but no property records.
func (d *AssetDefinition) SpecFor(env int) (*transcribe.AssetSpawnSpec, error) {
	src := *d.Spawn
	src.Source = nil
	spec := &transcribe.AssetSpawnSpec{}
	if err := copier.CopyWithOption(spec, &src, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("%s: env %d: %w", d.Name, env, err)
	}
	spec.Source = d.Spawn.Source
	return spec, nil
}

func newSpawnSpec(n *scenetree.Node, r *ConfigRecord, opts *DefineOptions, deformable bool) *transcribe.AssetSpawnSpec {
	spec := &transcribe.AssetSpawnSpec{
		Source:         n,
		Scale:          opts.Scale,
		Collision:      r.CollisionApproximation,
		CollisionProps: &physics.CollisionProps{CollisionEnabled: physics.Bool(true)},
		MassProps:      &physics.MassProps{Mass: physics.Float(opts.Mass)},
	}
	if deformable {
		spec.DeformableProps = &physics.DeformableBodyProps{
			DeformableEnabled:            physics.Bool(true),
			SolverPositionIterationCount: physics.Int(opts.SolverPositionIterationCount),
		}
	} else {
		spec.RigidProps = &physics.RigidBodyProps{
			RigidBodyEnabled:             physics.Bool(true),
			KinematicEnabled:             physics.Bool(r.RigidBodyBehavior == Static),
			SolverPositionIterationCount: physics.Int(opts.SolverPositionIterationCount),
		}
	}
	return spec
}

// Define creates an asset definition for every asset that has a record.
func Define(records map[string]*ConfigRecord, assets []*scenetree.Node, opts *DefineOptions) (map[string]*AssetDefinition, error) {
	opts = opts.withDefaults()
	deformable, err := compileList("deformable", opts.DeformableAssets)
	if err != nil {
		return nil, err
	}

	defs := map[string]*AssetDefinition{}
	for _, n := range assets {
		r, ok := records[n.Name()]
		if !ok {
			continue
		}
		isDeformable := false
		for _, p := range deformable {
			if p.Match(n.Name()) {
				isDeformable = true
			}
		}
		d := &AssetDefinition{
			Name:     n.Name(),
			PrimPath: opts.EnvsPath.AppendChild(EnvRegex).AppendChild(n.Name()).String(),
			Spawn:    newSpawnSpec(n, r, opts, isDeformable),
		}
		if err := d.Spawn.Validate(); err != nil {
			return nil, err
		}
		defs[d.Name] = d
	}
	return defs, nil
}
