package assetcfg

import (
	"fmt"
	"log"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/binzume/simimport/physics"
	"github.com/binzume/simimport/scenetree"
)

// Behavior is how the simulation moves an asset.
type Behavior string

const (
	Static  Behavior = "static"
	Dynamic Behavior = "dynamic"
)

func (b Behavior) IsValid() bool {
	return b == Static || b == Dynamic
}

// CollisionOverride sets the collision approximation of the assets matching Pattern.
type CollisionOverride struct {
	Pattern string                         `yaml:"pattern" json:"pattern" toml:"pattern"`
	Method  physics.CollisionApproximation `yaml:"method" json:"method" toml:"method"`
}

type BuildOptions struct {
	DefaultBehavior Behavior

	// nil means the list is not supplied. An empty list is supplied.
	StaticAssets  []string
	DynamicAssets []string

	DefaultCollision physics.CollisionApproximation
	// Evaluated in order; the last matching override wins.
	CollisionOverrides []CollisionOverride
}

func DefaultBuildOptions() *BuildOptions {
	return &BuildOptions{DefaultBehavior: Static, DefaultCollision: physics.ConvexHull}
}

type ConfigRecord struct {
	RigidBodyBehavior      Behavior
	CollisionApproximation physics.CollisionApproximation
}

// minSuggestSimilarity is the Levenshtein similarity above which an asset
// name is offered as a correction for a pattern that matched nothing.
const minSuggestSimilarity = 0.5

type namedPattern struct {
	*Pattern
	list    string
	matched bool
}

type builder struct {
	logger *log.Logger
	names  []string
}

func (b *builder) warnf(format string, v ...interface{}) {
	l := b.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING: "+format, v...)
}

func compileList(list string, patterns []string) ([]*namedPattern, error) {
	var r []*namedPattern
	for _, s := range patterns {
		p, err := CompilePattern(s)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %q: %w", list, s, err)
		}
		r = append(r, &namedPattern{Pattern: p, list: list})
	}
	return r, nil
}

func (b *builder) checkOptions(opts *BuildOptions) error {
	if !opts.DefaultBehavior.IsValid() {
		return fmt.Errorf("invalid rigid body behavior: %q", opts.DefaultBehavior)
	}
	if !opts.DefaultCollision.IsValid() {
		return fmt.Errorf("invalid collision approximation: %q", opts.DefaultCollision)
	}
	for _, o := range opts.CollisionOverrides {
		if !o.Method.IsValid() {
			return fmt.Errorf("collision override %q: invalid collision approximation: %q", o.Pattern, o.Method)
		}
	}

	if opts.StaticAssets != nil && opts.DynamicAssets != nil {
		b.warnf("both static and dynamic asset lists are set, dynamic matches override static ones")
	}
	if opts.DefaultBehavior == Static && opts.StaticAssets != nil {
		b.warnf("default rigid body behavior is static, the static asset list has no effect. Did you mean to list dynamic assets?")
	}
	if opts.DefaultBehavior == Dynamic && opts.DynamicAssets != nil {
		b.warnf("default rigid body behavior is dynamic, the dynamic asset list has no effect. Did you mean to list static assets?")
	}
	return nil
}

// suggest returns the asset name most similar to pattern, or "".
func (b *builder) suggest(pattern string) string {
	lev := metrics.NewLevenshtein()
	best, bestScore := "", minSuggestSimilarity
	for _, name := range b.names {
		if s := strutil.Similarity(pattern, name, lev); s >= bestScore {
			best, bestScore = name, s
		}
	}
	return best
}

func (b *builder) reportUnmatched(patterns []*namedPattern) {
	for _, p := range patterns {
		if p.matched {
			continue
		}
		if s := b.suggest(p.Source); s != "" {
			b.warnf("%s pattern %q matches no asset. Did you mean %q?", p.list, p.Source, s)
		} else {
			b.warnf("%s pattern %q matches no asset", p.list, p.Source)
		}
	}
}

// Build assigns a rigid body behavior and a collision approximation to each
// asset. Static patterns are evaluated before dynamic ones and later matches
// win, so an asset matched by both lists ends up dynamic.
func Build(assets []*scenetree.Node, opts *BuildOptions, logger *log.Logger) (map[string]*ConfigRecord, error) {
	if opts == nil {
		opts = DefaultBuildOptions()
	}
	b := &builder{logger: logger}
	for _, a := range assets {
		b.names = append(b.names, a.Name())
	}
	if err := b.checkOptions(opts); err != nil {
		return nil, err
	}

	static, err := compileList("static", opts.StaticAssets)
	if err != nil {
		return nil, err
	}
	dynamic, err := compileList("dynamic", opts.DynamicAssets)
	if err != nil {
		return nil, err
	}
	var overrides []*namedPattern
	for _, o := range opts.CollisionOverrides {
		l, err := compileList("collision", []string{o.Pattern})
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, l...)
	}

	records := map[string]*ConfigRecord{}
	for _, name := range b.names {
		r := &ConfigRecord{RigidBodyBehavior: opts.DefaultBehavior, CollisionApproximation: opts.DefaultCollision}
		for _, p := range static {
			if p.Match(name) {
				p.matched = true
				r.RigidBodyBehavior = Static
			}
		}
		for _, p := range dynamic {
			if p.Match(name) {
				p.matched = true
				r.RigidBodyBehavior = Dynamic
			}
		}
		for i, p := range overrides {
			if p.Match(name) {
				p.matched = true
				r.CollisionApproximation = opts.CollisionOverrides[i].Method
			}
		}
		records[name] = r
	}

	b.reportUnmatched(static)
	b.reportUnmatched(dynamic)
	b.reportUnmatched(overrides)
	return records, nil
}
