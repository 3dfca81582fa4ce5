package scenetree

// Kind is the structural type of a parsed node.
type Kind int

const (
	KindOther Kind = iota
	KindTransform
	KindMesh
	KindGeometrySubset
	KindMaterial
	KindShader
	KindLight
)

var kindNames = [...]string{
	KindOther:          "Other",
	KindTransform:      "Transform",
	KindMesh:           "Mesh",
	KindGeometrySubset: "GeometrySubset",
	KindMaterial:       "Material",
	KindShader:         "Shader",
	KindLight:          "Light",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Other"
	}
	return kindNames[k]
}

var kindByTypeName = map[string]Kind{
	"Xform":         KindTransform,
	"Mesh":          KindMesh,
	"GeomSubset":    KindGeometrySubset,
	"Material":      KindMaterial,
	"Shader":        KindShader,
	"DistantLight":  KindLight,
	"DomeLight":     KindLight,
	"SphereLight":   KindLight,
	"RectLight":     KindLight,
	"DiskLight":     KindLight,
	"CylinderLight": KindLight,
	"GeometryLight": KindLight,
	"PortalLight":   KindLight,
	"PluginLight":   KindLight,
	"MeshLight":     KindLight,
	"VolumeLight":   KindLight,
	"LightFilter":   KindLight,
}

// KindOf maps a prim type name to its Kind. Unknown and empty type names are KindOther.
func KindOf(typeName string) Kind {
	return kindByTypeName[typeName]
}
