package physics

import (
	"github.com/binzume/simimport/scene"
)

// Applied API schema names.
const (
	RigidBodyAPI           = "PhysicsRigidBodyAPI"
	PhysxRigidBodyAPI      = "PhysxRigidBodyAPI"
	CollisionAPI           = "PhysicsCollisionAPI"
	PhysxCollisionAPI      = "PhysxCollisionAPI"
	MeshCollisionAPI       = "PhysicsMeshCollisionAPI"
	MassAPI                = "PhysicsMassAPI"
	PhysxDeformableBodyAPI = "PhysxDeformableBodyAPI"
)

// Property records. nil fields are left unauthored.

type RigidBodyProps struct {
	RigidBodyEnabled             *bool    `yaml:"rigidBodyEnabled,omitempty" json:"rigidBodyEnabled,omitempty" toml:"rigidBodyEnabled,omitempty"`
	KinematicEnabled             *bool    `yaml:"kinematicEnabled,omitempty" json:"kinematicEnabled,omitempty" toml:"kinematicEnabled,omitempty"`
	SolverPositionIterationCount *int     `yaml:"solverPositionIterationCount,omitempty" json:"solverPositionIterationCount,omitempty" toml:"solverPositionIterationCount,omitempty"`
	SolverVelocityIterationCount *int     `yaml:"solverVelocityIterationCount,omitempty" json:"solverVelocityIterationCount,omitempty" toml:"solverVelocityIterationCount,omitempty"`
	MaxDepenetrationVelocity     *float32 `yaml:"maxDepenetrationVelocity,omitempty" json:"maxDepenetrationVelocity,omitempty" toml:"maxDepenetrationVelocity,omitempty"`
	DisableGravity               *bool    `yaml:"disableGravity,omitempty" json:"disableGravity,omitempty" toml:"disableGravity,omitempty"`
}

type CollisionProps struct {
	CollisionEnabled *bool    `yaml:"collisionEnabled,omitempty" json:"collisionEnabled,omitempty" toml:"collisionEnabled,omitempty"`
	ContactOffset    *float32 `yaml:"contactOffset,omitempty" json:"contactOffset,omitempty" toml:"contactOffset,omitempty"`
	RestOffset       *float32 `yaml:"restOffset,omitempty" json:"restOffset,omitempty" toml:"restOffset,omitempty"`
}

type MassProps struct {
	Mass    *float32 `yaml:"mass,omitempty" json:"mass,omitempty" toml:"mass,omitempty"`
	Density *float32 `yaml:"density,omitempty" json:"density,omitempty" toml:"density,omitempty"`
}

type DeformableBodyProps struct {
	DeformableEnabled              *bool `yaml:"deformableEnabled,omitempty" json:"deformableEnabled,omitempty" toml:"deformableEnabled,omitempty"`
	SolverPositionIterationCount   *int  `yaml:"solverPositionIterationCount,omitempty" json:"solverPositionIterationCount,omitempty" toml:"solverPositionIterationCount,omitempty"`
	SelfCollision                  *bool `yaml:"selfCollision,omitempty" json:"selfCollision,omitempty" toml:"selfCollision,omitempty"`
	SimulationHexahedralResolution *int  `yaml:"simulationHexahedralResolution,omitempty" json:"simulationHexahedralResolution,omitempty" toml:"simulationHexahedralResolution,omitempty"`
}

func Bool(v bool) *bool {
	return &v
}

func Int(v int) *int {
	return &v
}

func Float(v float32) *float32 {
	return &v
}

func setBool(p *scene.Prim, name string, v *bool) {
	if v != nil {
		p.CreateAttribute(name, scene.TypeBool).Set(*v)
	}
}

func setInt(p *scene.Prim, name string, v *int) {
	if v != nil {
		p.CreateAttribute(name, scene.TypeInt).Set(*v)
	}
}

func setFloat(p *scene.Prim, name string, v *float32) {
	if v != nil {
		p.CreateAttribute(name, scene.TypeFloat).Set(*v)
	}
}

func DefineRigidBodyProperties(p *scene.Prim, props *RigidBodyProps) {
	p.ApplyAPI(RigidBodyAPI)
	p.ApplyAPI(PhysxRigidBodyAPI)
	setBool(p, "physics:rigidBodyEnabled", props.RigidBodyEnabled)
	setBool(p, "physics:kinematicEnabled", props.KinematicEnabled)
	setInt(p, "physxRigidBody:solverPositionIterationCount", props.SolverPositionIterationCount)
	setInt(p, "physxRigidBody:solverVelocityIterationCount", props.SolverVelocityIterationCount)
	setFloat(p, "physxRigidBody:maxDepenetrationVelocity", props.MaxDepenetrationVelocity)
	setBool(p, "physxRigidBody:disableGravity", props.DisableGravity)
}

func DefineCollisionProperties(p *scene.Prim, props *CollisionProps) {
	p.ApplyAPI(CollisionAPI)
	p.ApplyAPI(PhysxCollisionAPI)
	setBool(p, "physics:collisionEnabled", props.CollisionEnabled)
	setFloat(p, "physxCollision:contactOffset", props.ContactOffset)
	setFloat(p, "physxCollision:restOffset", props.RestOffset)
}

func DefineMassProperties(p *scene.Prim, props *MassProps) {
	p.ApplyAPI(MassAPI)
	setFloat(p, "physics:mass", props.Mass)
	setFloat(p, "physics:density", props.Density)
}

func DefineDeformableBodyProperties(p *scene.Prim, props *DeformableBodyProps) {
	p.ApplyAPI(PhysxDeformableBodyAPI)
	setBool(p, "physxDeformable:deformableEnabled", props.DeformableEnabled)
	setInt(p, "physxDeformable:solverPositionIterationCount", props.SolverPositionIterationCount)
	setBool(p, "physxDeformable:selfCollision", props.SelfCollision)
	setInt(p, "physxDeformable:simulationHexahedralResolution", props.SimulationHexahedralResolution)
}
