package assetcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/binzume/simimport/classify"
	"github.com/binzume/simimport/physics"
	"github.com/binzume/simimport/scene"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultAssetRoot  scene.Path = "/World"
	DefaultEnvSpacing            = 40.0
)

// CollisionOverrides is an ordered list of overrides. In YAML and JSON it
// can be written as a mapping from pattern to method; the order of the keys
// is kept.
type CollisionOverrides []CollisionOverride

func (o *CollisionOverrides) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// A sequence would also decode into a MapSlice, so the list form goes first.
	var list []CollisionOverride
	if err := unmarshal(&list); err == nil {
		*o = list
		return nil
	}
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return err
	}
	*o = nil
	for _, item := range ms {
		*o = append(*o, CollisionOverride{
			Pattern: fmt.Sprint(item.Key),
			Method:  physics.CollisionApproximation(fmt.Sprint(item.Value)),
		})
	}
	return nil
}

func (o *CollisionOverrides) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []CollisionOverride
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*o = list
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if t, err := dec.Token(); err != nil {
		return err
	} else if t != json.Delim('{') {
		return fmt.Errorf("collision overrides: unexpected %v", t)
	}
	*o = nil
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		var method string
		if err := dec.Decode(&method); err != nil {
			return err
		}
		*o = append(*o, CollisionOverride{Pattern: t.(string), Method: physics.CollisionApproximation(method)})
	}
	_, err := dec.Token()
	return err
}

// Config is an environment definition: the source scene and how its
// assets are simulated.
type Config struct {
	// Source is the scene to import (.yaml, .yml, .gltf or .glb).
	Source        string     `yaml:"source" json:"source" toml:"source"`
	AssetRoot     scene.Path `yaml:"assetRoot,omitempty" json:"assetRoot,omitempty" toml:"assetRoot,omitempty"`
	MaterialsName string     `yaml:"materialsName,omitempty" json:"materialsName,omitempty" toml:"materialsName,omitempty"`
	Encoding      string     `yaml:"encoding,omitempty" json:"encoding,omitempty" toml:"encoding,omitempty"`

	// glTF sources only.
	SourceScale float32 `yaml:"sourceScale,omitempty" json:"sourceScale,omitempty" toml:"sourceScale,omitempty"`
	TextureDir  string  `yaml:"textureDir,omitempty" json:"textureDir,omitempty" toml:"textureDir,omitempty"`

	DefaultRigidBodyBehavior      Behavior                       `yaml:"defaultRigidBodyBehavior,omitempty" json:"defaultRigidBodyBehavior,omitempty" toml:"defaultRigidBodyBehavior,omitempty"`
	StaticAssets                  []string                       `yaml:"staticAssets,omitempty" json:"staticAssets,omitempty" toml:"staticAssets,omitempty"`
	DynamicAssets                 []string                       `yaml:"dynamicAssets,omitempty" json:"dynamicAssets,omitempty" toml:"dynamicAssets,omitempty"`
	DeformableAssets              []string                       `yaml:"deformableAssets,omitempty" json:"deformableAssets,omitempty" toml:"deformableAssets,omitempty"`
	DefaultCollisionApproximation physics.CollisionApproximation `yaml:"defaultCollisionApproximation,omitempty" json:"defaultCollisionApproximation,omitempty" toml:"defaultCollisionApproximation,omitempty"`
	CollisionOverrides            CollisionOverrides             `yaml:"collisionOverrides,omitempty" json:"collisionOverrides,omitempty" toml:"collisionOverrides,omitempty"`
	ExcludeMarkers                []string                       `yaml:"excludeMarkers,omitempty" json:"excludeMarkers,omitempty" toml:"excludeMarkers,omitempty"`

	Scale                        float64 `yaml:"scale,omitempty" json:"scale,omitempty" toml:"scale,omitempty"`
	Mass                         float32 `yaml:"mass,omitempty" json:"mass,omitempty" toml:"mass,omitempty"`
	SolverPositionIterationCount int     `yaml:"solverPositionIterationCount,omitempty" json:"solverPositionIterationCount,omitempty" toml:"solverPositionIterationCount,omitempty"`

	NumEnvs       int     `yaml:"numEnvs,omitempty" json:"numEnvs,omitempty" toml:"numEnvs,omitempty"`
	EnvSpacing    float64 `yaml:"envSpacing,omitempty" json:"envSpacing,omitempty" toml:"envSpacing,omitempty"`
	CheckTextures bool    `yaml:"checkTextures,omitempty" json:"checkTextures,omitempty" toml:"checkTextures,omitempty"`
}

// LoadConfig reads a YAML, TOML or JSON config file.
func LoadConfig(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &conf)
	case ".toml":
		err = toml.Unmarshal(data, &conf)
	case ".json":
		err = json.Unmarshal(data, &conf)
	default:
		return nil, fmt.Errorf("unknown config format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := conf.Normalize(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &conf, nil
}

// Normalize fills in defaults, canonicalizes enum values and resolves
// Source against baseDir.
func (c *Config) Normalize(baseDir string) error {
	if c.Source == "" {
		return fmt.Errorf("source is not set")
	}
	src, err := homedir.Expand(c.Source)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(src) && baseDir != "" {
		src = filepath.Join(baseDir, filepath.FromSlash(src))
	}
	c.Source = src

	if c.TextureDir != "" {
		dir, err := homedir.Expand(c.TextureDir)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(dir) && baseDir != "" {
			dir = filepath.Join(baseDir, filepath.FromSlash(dir))
		}
		c.TextureDir = dir
	}
	if c.SourceScale < 0 {
		return fmt.Errorf("invalid source scale: %v", c.SourceScale)
	}

	if c.AssetRoot == "" {
		c.AssetRoot = DefaultAssetRoot
	}
	if !c.AssetRoot.IsValid() || c.AssetRoot.IsRoot() {
		return fmt.Errorf("invalid asset root: %q", c.AssetRoot)
	}
	if c.MaterialsName == "" {
		c.MaterialsName = classify.DefaultMaterialsName
	}

	if c.DefaultRigidBodyBehavior == "" {
		c.DefaultRigidBodyBehavior = Static
	}
	c.DefaultRigidBodyBehavior = Behavior(strings.ToLower(string(c.DefaultRigidBodyBehavior)))
	if !c.DefaultRigidBodyBehavior.IsValid() {
		return fmt.Errorf("invalid rigid body behavior: %q", c.DefaultRigidBodyBehavior)
	}

	if c.DefaultCollisionApproximation == "" {
		c.DefaultCollisionApproximation = physics.ConvexHull
	}
	m, ok := physics.ParseCollisionApproximation(string(c.DefaultCollisionApproximation))
	if !ok {
		return fmt.Errorf("invalid collision approximation: %q", c.DefaultCollisionApproximation)
	}
	c.DefaultCollisionApproximation = m
	for i, o := range c.CollisionOverrides {
		m, ok := physics.ParseCollisionApproximation(string(o.Method))
		if !ok {
			return fmt.Errorf("collision override %q: invalid collision approximation: %q", o.Pattern, o.Method)
		}
		c.CollisionOverrides[i].Method = m
	}

	if c.Scale < 0 {
		return fmt.Errorf("invalid scale: %v", c.Scale)
	}
	if c.NumEnvs <= 0 {
		c.NumEnvs = 1
	}
	if c.EnvSpacing == 0 {
		c.EnvSpacing = DefaultEnvSpacing
	}
	return nil
}

func (c *Config) BuildOptions() *BuildOptions {
	return &BuildOptions{
		DefaultBehavior:    c.DefaultRigidBodyBehavior,
		StaticAssets:       c.StaticAssets,
		DynamicAssets:      c.DynamicAssets,
		DefaultCollision:   c.DefaultCollisionApproximation,
		CollisionOverrides: c.CollisionOverrides,
	}
}

func (c *Config) DefineOptions() *DefineOptions {
	return &DefineOptions{
		EnvsPath:                     c.AssetRoot.AppendChild("envs"),
		Scale:                        c.Scale,
		Mass:                         c.Mass,
		SolverPositionIterationCount: c.SolverPositionIterationCount,
		DeformableAssets:             c.DeformableAssets,
	}
}

// MaterialsPath is where source materials are transcribed to.
func (c *Config) MaterialsPath() scene.Path {
	return c.AssetRoot.AppendChild("materials")
}

func (c *Config) ClassifyOptions() *classify.Options {
	return &classify.Options{MaterialsName: c.MaterialsName, ExcludeMarkers: c.ExcludeMarkers}
}

func (c *Config) LoadOptions() *scene.LoadOptions {
	return &scene.LoadOptions{Encoding: c.Encoding}
}
