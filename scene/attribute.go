package scene

import "strings"

// Connection points an attribute at an output of another prim.
type Connection struct {
	Source Path
	Output string // output base name, e.g. "rgb" for "outputs:rgb"
}

func (c Connection) String() string {
	return c.Source.String() + ".outputs:" + c.Output
}

// ParseConnection parses "/path/to/prim.outputs:name".
func ParseConnection(s string) (Connection, bool) {
	i := strings.LastIndex(s, ".outputs:")
	if i <= 0 {
		return Connection{}, false
	}
	c := Connection{Source: Path(s[:i]), Output: s[i+len(".outputs:"):]}
	return c, c.Source.IsValid() && c.Output != ""
}

type Attribute struct {
	prim     *Prim
	name     string
	typeName ValueType

	value    interface{}
	authored bool

	connections   []Connection
	interpolation string
	elementSize   int
}

func (a *Attribute) Name() string {
	return a.name
}

// BaseName strips the namespace: "inputs:diffuseColor" -> "diffuseColor".
func (a *Attribute) BaseName() string {
	if i := strings.LastIndexByte(a.name, ':'); i >= 0 {
		return a.name[i+1:]
	}
	return a.name
}

// Namespace returns the leading namespace of the name: "inputs", "primvars", ...
func (a *Attribute) Namespace() string {
	if i := strings.IndexByte(a.name, ':'); i >= 0 {
		return a.name[:i]
	}
	return ""
}

func (a *Attribute) TypeName() ValueType {
	return a.typeName
}

func (a *Attribute) Prim() *Prim {
	return a.prim
}

// Get returns the authored value. ok is false if no value has been authored.
func (a *Attribute) Get() (interface{}, bool) {
	if a == nil || !a.authored {
		return nil, false
	}
	return a.value, true
}

func (a *Attribute) Set(v interface{}) {
	a.value = v
	a.authored = true
}

func (a *Attribute) Clear() {
	a.value = nil
	a.authored = false
}

func (a *Attribute) HasAuthoredValue() bool {
	return a != nil && a.authored
}

func (a *Attribute) HasConnections() bool {
	return a != nil && len(a.connections) > 0
}

func (a *Attribute) Connections() []Connection {
	if a == nil {
		return nil
	}
	return append([]Connection(nil), a.connections...)
}

// ConnectToSource replaces the connections with a single source.
func (a *Attribute) ConnectToSource(source Path, output string) {
	a.connections = []Connection{{Source: source, Output: output}}
}

func (a *Attribute) AddConnection(c Connection) {
	a.connections = append(a.connections, c)
}

func (a *Attribute) DisconnectAll() {
	a.connections = nil
}

// Interpolation is the primvar interpolation ("constant", "uniform", "vertex", "faceVarying"...).
// Empty means not authored.
func (a *Attribute) Interpolation() string {
	if a == nil {
		return ""
	}
	return a.interpolation
}

func (a *Attribute) SetInterpolation(interp string) {
	a.interpolation = interp
}

// ElementSize is the primvar element size. 0 means not authored (treated as 1).
func (a *Attribute) ElementSize() int {
	if a == nil {
		return 0
	}
	return a.elementSize
}

func (a *Attribute) SetElementSize(n int) {
	a.elementSize = n
}

// Typed getters return ok=false when unauthored or of another Go type.

func (a *Attribute) GetBool() (bool, bool) {
	v, ok := a.Get()
	b, ok2 := v.(bool)
	return b, ok && ok2
}

func (a *Attribute) GetInt() (int, bool) {
	v, ok := a.Get()
	i, ok2 := v.(int)
	return i, ok && ok2
}

func (a *Attribute) GetFloat() (float32, bool) {
	v, ok := a.Get()
	f, ok2 := v.(float32)
	return f, ok && ok2
}

func (a *Attribute) GetToken() (string, bool) {
	v, ok := a.Get()
	s, ok2 := v.(string)
	return s, ok && ok2
}

func (a *Attribute) GetIntArray() ([]int, bool) {
	v, ok := a.Get()
	s, ok2 := v.([]int)
	return s, ok && ok2
}

func (a *Attribute) GetVec3Array() ([][3]float32, bool) {
	v, ok := a.Get()
	s, ok2 := v.([][3]float32)
	return s, ok && ok2
}

func (a *Attribute) GetVec2Array() ([][2]float32, bool) {
	v, ok := a.Get()
	s, ok2 := v.([][2]float32)
	return s, ok && ok2
}

func (a *Attribute) GetVec3() ([3]float32, bool) {
	v, ok := a.Get()
	switch vv := v.(type) {
	case [3]float32:
		return vv, ok
	case [3]float64:
		return [3]float32{float32(vv[0]), float32(vv[1]), float32(vv[2])}, ok
	}
	return [3]float32{}, false
}

func (a *Attribute) GetAsset() (AssetPath, bool) {
	v, ok := a.Get()
	s, ok2 := v.(AssetPath)
	return s, ok && ok2
}

// Relationship holds target paths, e.g. "material:binding".
type Relationship struct {
	prim    *Prim
	name    string
	targets []Path
}

func (r *Relationship) Name() string {
	return r.name
}

func (r *Relationship) Targets() []Path {
	if r == nil {
		return nil
	}
	return append([]Path(nil), r.targets...)
}

func (r *Relationship) SetTargets(targets ...Path) {
	r.targets = append([]Path(nil), targets...)
}

func (r *Relationship) AddTarget(p Path) {
	r.targets = append(r.targets, p)
}
