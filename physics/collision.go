package physics

import (
	"github.com/binzume/simimport/scene"
	"github.com/iancoleman/strcase"
)

// CollisionApproximation selects how a collider is derived from a mesh.
type CollisionApproximation string

const (
	TriangleMesh        CollisionApproximation = "triangle_mesh"
	ConvexDecomposition CollisionApproximation = "convex_decomposition"
	ConvexHull          CollisionApproximation = "convex_hull"
	BoundingSphere      CollisionApproximation = "bounding_sphere"
	BoundingCube        CollisionApproximation = "bounding_cube"
	MeshSimplification  CollisionApproximation = "mesh_simplification"
	SDF                 CollisionApproximation = "sdf"
	SphereApproximation CollisionApproximation = "sphere_approximation"
)

// ApproximationNone is the token for using the triangle mesh as is.
const ApproximationNone = "none"

var collisionTokens = map[CollisionApproximation]string{
	TriangleMesh:        ApproximationNone,
	ConvexDecomposition: "convexDecomposition",
	ConvexHull:          "convexHull",
	BoundingSphere:      "boundingSphere",
	BoundingCube:        "boundingCube",
	MeshSimplification:  "meshSimplification",
	SDF:                 "sdf",
	SphereApproximation: "sphereFill",
}

// CollisionApproximations lists every known method.
var CollisionApproximations = []CollisionApproximation{
	TriangleMesh,
	ConvexDecomposition,
	ConvexHull,
	BoundingSphere,
	BoundingCube,
	MeshSimplification,
	SDF,
	SphereApproximation,
}

// Token returns the physics:approximation token. Unknown methods fall back to "none".
func (c CollisionApproximation) Token() string {
	if t, ok := collisionTokens[c]; ok {
		return t
	}
	return ApproximationNone
}

func (c CollisionApproximation) IsValid() bool {
	_, ok := collisionTokens[c]
	return ok
}

// ParseCollisionApproximation accepts the snake_case names as well as other
// spellings ("convexHull", "Convex-Hull", and the target tokens themselves).
func ParseCollisionApproximation(s string) (CollisionApproximation, bool) {
	c := CollisionApproximation(strcase.ToSnake(s))
	if c.IsValid() {
		return c, true
	}
	for k, t := range collisionTokens {
		if t == s {
			return k, true
		}
	}
	return c, false
}

// ApplyMeshCollision makes mesh a collider using the given approximation.
// Collision properties are authored when props is not nil.
func ApplyMeshCollision(mesh *scene.Prim, method CollisionApproximation, props *CollisionProps) {
	mesh.ApplyAPI(MeshCollisionAPI)
	mesh.CreateAttribute("physics:approximation", scene.TypeToken).Set(method.Token())
	if props != nil {
		DefineCollisionProperties(mesh, props)
	}
}
