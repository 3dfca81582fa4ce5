package importer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/binzume/simimport/assetcfg"
	"github.com/binzume/simimport/classify"
	"github.com/binzume/simimport/converter"
	"github.com/binzume/simimport/gltfutil"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/binzume/simimport/transcribe"
)

var ErrUnknownSourceFormat = errors.New("unknown source format")

// Environment holds the asset definitions built from one source scene.
type Environment struct {
	Config  *assetcfg.Config
	Source  *scene.Stage
	Target  *scene.Stage
	Context *transcribe.Context

	Materials []*scene.Prim
	Records   map[string]*assetcfg.ConfigRecord
	Assets    map[string]*assetcfg.AssetDefinition
}

// LoadSource opens the source scene of cfg. Scene documents are read
// directly, glTF files are converted.
func LoadSource(cfg *assetcfg.Config, logger *log.Logger) (*scene.Stage, error) {
	switch strings.ToLower(filepath.Ext(cfg.Source)) {
	case ".yaml", ".yml":
		return scene.Open(cfg.Source, cfg.LoadOptions())
	case ".gltf", ".glb":
		doc, err := gltfutil.Load(cfg.Source)
		if err != nil {
			return nil, err
		}
		conv := converter.NewGLTFToSceneConverter(&converter.GLTFToSceneOption{
			Scale:         cfg.SourceScale,
			MaterialsName: cfg.MaterialsName,
			TextureDir:    cfg.TextureDir,
			Logger:        logger,
		})
		stage, err := conv.Convert(doc, filepath.Dir(cfg.Source))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Source, err)
		}
		if abs, err := filepath.Abs(cfg.Source); err == nil {
			stage.RootLayer = abs
		}
		return stage, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSourceFormat, cfg.Source)
}

// DefineAssetConfigs opens the source scene, transcribes its materials into
// target and builds a spawn definition for every asset. Nothing is written
// to target when an error is returned.
func DefineAssetConfigs(target *scene.Stage, cfg *assetcfg.Config, logger *log.Logger) (*Environment, error) {
	if logger == nil {
		logger = log.Default()
	}
	source, err := LoadSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	root, err := scenetree.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Source, err)
	}
	classified, err := classify.Classify(root, cfg.ClassifyOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Source, err)
	}
	records, err := assetcfg.Build(classified.Assets, cfg.BuildOptions(), logger)
	if err != nil {
		return nil, err
	}
	defs, err := assetcfg.Define(records, classified.Assets, cfg.DefineOptions())
	if err != nil {
		return nil, err
	}

	ctx := transcribe.NewContext(source, target)
	ctx.MaterialsPath = cfg.MaterialsPath()
	ctx.Logger = logger
	ctx.CheckTextures = cfg.CheckTextures

	created := target.OutermostMissing(ctx.MaterialsPath)
	materials, err := ctx.TranscribeMaterials(classified.Materials)
	if err != nil {
		if created != "" {
			target.RemovePrim(created)
		}
		return nil, err
	}

	return &Environment{
		Config:    cfg,
		Source:    source,
		Target:    target,
		Context:   ctx,
		Materials: materials,
		Records:   records,
		Assets:    defs,
	}, nil
}

// Names returns the defined asset names in spawn order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.Assets))
	for name := range e.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvPath returns the path of the wrapper of environment env.
func (e *Environment) EnvPath(env int) scene.Path {
	return e.Config.DefineOptions().EnvsPath.AppendChild(fmt.Sprintf("env_%d", env))
}

// envOffset places environments on a square grid.
func envOffset(env, numEnvs int, spacing float64) [3]float64 {
	cols := int(math.Ceil(math.Sqrt(float64(numEnvs))))
	if cols < 1 {
		cols = 1
	}
	return [3]float64{float64(env%cols) * spacing, float64(env/cols) * spacing, 0}
}

// Spawn instantiates every asset in numEnvs environments. An environment
// that fails is removed again.
func (e *Environment) Spawn(numEnvs int) error {
	if e.Source.DefaultPrim() == nil {
		return fmt.Errorf("%w: source stage %s is unloaded", transcribe.ErrUnresolvableSource, e.Config.Source)
	}
	for env := 0; env < numEnvs; env++ {
		created := e.Target.OutermostMissing(e.EnvPath(env))
		if err := e.spawnEnv(env, numEnvs); err != nil {
			if created != "" {
				e.Target.RemovePrim(created)
			}
			return err
		}
	}
	return nil
}

func (e *Environment) spawnEnv(env, numEnvs int) error {
	wrapper, err := e.Target.DefinePrim(e.EnvPath(env), "Xform")
	if err != nil {
		return err
	}
	wrapper.CreateAttribute("xformOp:translate", scene.TypeDouble3).Set(envOffset(env, numEnvs, e.Config.EnvSpacing))
	wrapper.CreateAttribute("xformOpOrder", scene.TypeTokenArr).Set([]string{"xformOp:translate"})

	for _, name := range e.Names() {
		def := e.Assets[name]
		spec, err := def.SpecFor(env)
		if err != nil {
			return err
		}
		if _, err := e.Context.Spawn(def.PrimPathFor(env), spec); err != nil {
			return fmt.Errorf("env %d: %s: %w", env, name, err)
		}
	}
	return nil
}

// Close unloads the source scene. Spawning afterwards fails with
// transcribe.ErrUnresolvableSource.
func (e *Environment) Close() {
	if p := e.Source.DefaultPrim(); p != nil {
		e.Source.Unload(p.Path())
	}
}
