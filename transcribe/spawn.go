package transcribe

import (
	"errors"
	"fmt"

	"github.com/binzume/simimport/physics"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
)

var ErrInvalidSpec = errors.New("invalid spawn spec")

// AssetSpawnSpec describes one asset to spawn.
type AssetSpawnSpec struct {
	Source *scenetree.Node

	// Scale is applied uniformly by the wrapper prim. 0 means 1.
	Scale float64

	Collision physics.CollisionApproximation

	RigidProps      *physics.RigidBodyProps
	CollisionProps  *physics.CollisionProps
	MassProps       *physics.MassProps
	DeformableProps *physics.DeformableBodyProps
}

func (s *AssetSpawnSpec) Validate() error {
	if s.Source == nil {
		return fmt.Errorf("%w: no source", ErrInvalidSpec)
	}
	if s.Scale < 0 {
		return fmt.Errorf("%w: negative scale %v", ErrInvalidSpec, s.Scale)
	}
	if s.DeformableProps != nil && s.RigidProps != nil {
		return fmt.Errorf("%w: %s is both deformable and rigid", ErrInvalidSpec, s.Source.Name())
	}
	return nil
}

var xformOps = []string{"xformOp:translate", "xformOp:rotateXYZ", "xformOp:scale"}

// copyTransform copies the translate, rotate and scale channels that are
// authored on src and writes the op order.
func copyTransform(src, dst *scene.Prim) {
	var order []string
	for _, op := range xformOps {
		a := src.Attribute(op)
		if v, ok := a.Get(); ok {
			dst.CreateAttribute(op, a.TypeName()).Set(scene.CloneValue(v))
			order = append(order, op)
		}
	}
	if len(order) > 0 {
		dst.CreateAttribute("xformOpOrder", scene.TypeTokenArr).Set(order)
	}
}

type spawnFunc func(c *Context, parent *scene.Prim, n *scenetree.Node, spec *AssetSpawnSpec) error

var spawnTable map[scenetree.Kind]spawnFunc

func init() {
	spawnTable = map[scenetree.Kind]spawnFunc{
		scenetree.KindTransform:      spawnTransform,
		scenetree.KindMesh:           spawnMesh,
		scenetree.KindGeometrySubset: spawnSubset,
	}
}

// spawnChildren dispatches children by kind. spec is nil below the asset root.
func (c *Context) spawnChildren(parent *scene.Prim, children []*scenetree.Node, spec *AssetSpawnSpec) error {
	for _, n := range children {
		f, ok := spawnTable[n.Kind]
		if !ok {
			c.warnf("%s: skipping %s, unsupported kind", parent.Path(), n)
			continue
		}
		if err := f(c, parent, n, spec); err != nil {
			return err
		}
	}
	return nil
}

func spawnTransform(c *Context, parent *scene.Prim, n *scenetree.Node, _ *AssetSpawnSpec) error {
	src := n.Prim()
	if src == nil {
		return fmt.Errorf("%w: %s", ErrUnresolvableSource, n.Path)
	}
	xf, err := c.Target.DefinePrim(parent.Path().AppendChild(n.Name()), "Xform")
	if err != nil {
		return err
	}
	copyTransform(src, xf)
	return c.spawnChildren(xf, n.Children, nil)
}

func spawnMesh(c *Context, parent *scene.Prim, n *scenetree.Node, spec *AssetSpawnSpec) error {
	mesh, err := c.TranscribeMesh(n, parent.Path().AppendChild(MeshPrefix+n.Name()))
	if err != nil {
		return err
	}
	if spec != nil && spec.DeformableProps == nil && spec.CollisionProps != nil {
		physics.ApplyMeshCollision(mesh, spec.Collision, spec.CollisionProps)
	}
	return nil
}

func spawnSubset(c *Context, parent *scene.Prim, n *scenetree.Node, _ *AssetSpawnSpec) error {
	_, err := c.TranscribeSubset(n, parent.Path().AppendChild(SubsetPrefix+n.Name()))
	return err
}

// Spawn transcribes the asset of spec under primPath. primPath becomes a
// wrapper Xform carrying the spawn scale and the asset root is created as
// primPath/<asset name>. Physics properties are applied to the asset root.
// Prims created by a failed spawn are removed again.
func (c *Context) Spawn(primPath scene.Path, spec *AssetSpawnSpec) (*scene.Prim, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	src := spec.Source.Prim()
	if src == nil {
		return nil, fmt.Errorf("%w: asset %s", ErrUnresolvableSource, spec.Source.Path)
	}
	if spec.Source.Kind != scenetree.KindTransform && spec.Source.Kind != scenetree.KindMesh {
		return nil, fmt.Errorf("%w: asset root %s", ErrInvalidSpec, spec.Source)
	}

	created := c.Target.OutermostMissing(primPath.AppendChild(spec.Source.Name()))
	root, err := c.spawn(primPath, spec, src)
	if err != nil {
		if created != "" {
			c.Target.RemovePrim(created)
		}
		return nil, err
	}
	return root, nil
}

func (c *Context) spawn(primPath scene.Path, spec *AssetSpawnSpec, src *scene.Prim) (*scene.Prim, error) {
	if c.Target.GetPrimAtPath(primPath) == nil {
		wrapper, err := c.Target.DefinePrim(primPath, "Xform")
		if err != nil {
			return nil, err
		}
		s := spec.Scale
		if s == 0 {
			s = 1
		}
		wrapper.CreateAttribute("xformOp:scale", scene.TypeDouble3).Set([3]float64{s, s, s})
		wrapper.CreateAttribute("xformOpOrder", scene.TypeTokenArr).Set([]string{"xformOp:scale"})
	}

	root, err := c.Target.DefinePrim(primPath.AppendChild(spec.Source.Name()), "Xform")
	if err != nil {
		return nil, err
	}
	if spec.Source.Kind == scenetree.KindMesh {
		// A bare mesh gets an untransformed root of its own.
		err = c.spawnChildren(root, []*scenetree.Node{spec.Source}, spec)
	} else {
		copyTransform(src, root)
		err = c.spawnChildren(root, spec.Source.Children, spec)
	}
	if err != nil {
		return nil, err
	}

	if spec.DeformableProps != nil {
		if spec.MassProps != nil {
			physics.DefineMassProperties(root, spec.MassProps)
		}
		physics.DefineDeformableBodyProperties(root, spec.DeformableProps)
	} else if spec.RigidProps != nil {
		if spec.MassProps != nil {
			physics.DefineMassProperties(root, spec.MassProps)
		}
		physics.DefineRigidBodyProperties(root, spec.RigidProps)
	}
	root.SetKind(scene.KindComponent)
	return root, nil
}
