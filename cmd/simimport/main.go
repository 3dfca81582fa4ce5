package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/simimport/assetcfg"
	"github.com/binzume/simimport/converter"
	"github.com/binzume/simimport/gltfutil"
	"github.com/binzume/simimport/importer"
	"github.com/binzume/simimport/scene"
	"github.com/binzume/simimport/scenetree"
	"github.com/fsnotify/fsnotify"
)

type options struct {
	numEnvs       int
	checkTextures bool
	dump          bool
	textureWebP   bool
	textureLimit  int
}

func defaultOutputFile(input string) string {
	ext := filepath.Ext(input)
	return input[0:len(input)-len(ext)] + ".scene.yaml"
}

func saveStage(stage *scene.Stage, root scene.Path, output string, opts *options) error {
	ext := strings.ToLower(filepath.Ext(output))
	if ext == ".yaml" || ext == ".yml" {
		return scene.SaveFile(stage, output)
	} else if ext == ".glb" || ext == ".gltf" {
		conv := converter.NewSceneToGLTFConverter(&converter.SceneToGLTFOption{
			TextureWebP:            opts.textureWebP,
			TextureResolutionLimit: opts.textureLimit,
		})
		doc, err := conv.Convert(stage, root)
		if err != nil {
			return err
		}
		if ext == ".glb" {
			if err := gltfutil.EmbedImages(doc, filepath.Dir(output)); err != nil {
				return err
			}
		}
		return gltfutil.Save(doc, output)
	}
	return fmt.Errorf("Unsupported output type: %v", ext)
}

func run(confFile, output string, opts *options) error {
	conf, err := assetcfg.LoadConfig(confFile)
	if err != nil {
		return err
	}
	if opts.numEnvs > 0 {
		conf.NumEnvs = opts.numEnvs
	}
	conf.CheckTextures = conf.CheckTextures || opts.checkTextures

	target := scene.NewStage()
	env, err := importer.DefineAssetConfigs(target, conf, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	if opts.dump {
		root, err := scenetree.Parse(env.Source)
		if err != nil {
			return err
		}
		scenetree.Dump(os.Stdout, root)
	}

	log.Printf("spawning %d assets in %d environments", len(env.Assets), conf.NumEnvs)
	if err := env.Spawn(conf.NumEnvs); err != nil {
		return err
	}
	if w, err := target.DefinePrim(conf.AssetRoot, "Xform"); err == nil {
		target.SetDefaultPrim(w)
	}
	return saveStage(target, conf.AssetRoot, output, opts)
}

// watch runs the import again whenever the config or its source changes.
func watch(confFile, output string, opts *options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	files := []string{confFile}
	if conf, err := assetcfg.LoadConfig(confFile); err == nil {
		files = append(files, conf.Source)
	}
	for _, f := range files {
		if err := watcher.Add(filepath.Dir(f)); err != nil {
			return err
		}
	}
	watched := func(name string) bool {
		for _, f := range files {
			if filepath.Clean(name) == filepath.Clean(f) {
				return true
			}
		}
		return false
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched(event.Name) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Println("changed:", event.Name)
				if err := run(confFile, output, opts); err != nil {
					log.Println(err)
				} else {
					log.Println("saved:", output)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println(err)
		}
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s env.yaml [output.yaml|output.glb]\n", os.Args[0])
		flag.PrintDefaults()
	}
	var opts options
	flag.IntVar(&opts.numEnvs, "envs", 0, "number of environments (0: from config)")
	flag.BoolVar(&opts.checkTextures, "check-textures", false, "warn about missing texture files")
	flag.BoolVar(&opts.dump, "dump", false, "print the source scene tree")
	flag.BoolVar(&opts.textureWebP, "webp", false, "encode textures as WebP (.glb/.gltf)")
	flag.IntVar(&opts.textureLimit, "texlimit", 0, "max texture resolution (.glb/.gltf)")
	watchMode := flag.Bool("watch", false, "convert again when the config or source changes")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}
	input := flag.Arg(0)
	output := defaultOutputFile(input)
	if flag.NArg() > 1 {
		output = flag.Arg(1)
	}

	if err := run(input, output, &opts); err != nil {
		log.Fatal(err)
	}
	log.Println("saved:", output)

	if *watchMode {
		if err := watch(input, output, &opts); err != nil {
			log.Fatal(err)
		}
	}
}
