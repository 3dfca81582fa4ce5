package transcribe

import (
	"errors"
	"log"

	"github.com/binzume/simimport/scene"
)

// ErrUnresolvableSource is returned when a source prim, a bound material or
// a spawn root cannot be resolved, typically because the source stage was
// unloaded.
var ErrUnresolvableSource = errors.New("unresolvable source")

// DefaultMaterialsPath is where materials are transcribed to.
const DefaultMaterialsPath scene.Path = "/World/materials"

// Name prefixes of transcribed meshes and subsets.
const (
	MeshPrefix   = "MSH_"
	SubsetPrefix = "GS_"
)

const MaterialBindingAPI = "MaterialBindingAPI"

// Context carries the stages a transcription reads from and writes to.
// It is not modified by any transcription call.
type Context struct {
	Source *scene.Stage
	Target *scene.Stage

	// MaterialsPath is the container that transcribed materials live in and
	// that material bindings are resolved against.
	MaterialsPath scene.Path

	// Logger receives warnings. nil: log.Default().
	Logger *log.Logger

	// CheckTextures probes texture files referenced by transcribed shaders.
	CheckTextures bool
}

func NewContext(source, target *scene.Stage) *Context {
	return &Context{Source: source, Target: target, MaterialsPath: DefaultMaterialsPath}
}

func (c *Context) materialsPath() scene.Path {
	if c.MaterialsPath == "" {
		return DefaultMaterialsPath
	}
	return c.MaterialsPath
}

func (c *Context) warnf(format string, v ...interface{}) {
	l := c.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING: "+format, v...)
}
