package scene

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	yaml "gopkg.in/yaml.v2"
)

// DocumentVersion is written to saved documents.
const DocumentVersion = "1.0.0"

const supportedVersions = ">= 1.0.0, < 2.0.0"

var ErrUnsupportedVersion = errors.New("unsupported scene document version")

type LoadOptions struct {
	// Encoding of the document: "" or "utf-8", "shift_jis", "euc-jp".
	Encoding string
}

type documentFile struct {
	Version     string     `yaml:"version,omitempty"`
	DefaultPrim string     `yaml:"defaultPrim,omitempty"`
	Prims       []*primDoc `yaml:"prims"`
}

type primDoc struct {
	Name          string                 `yaml:"name"`
	Type          string                 `yaml:"type,omitempty"`
	APISchemas    []string               `yaml:"apiSchemas,omitempty"`
	Metadata      map[string]interface{} `yaml:"metadata,omitempty"`
	Attributes    []*attrDoc             `yaml:"attributes,omitempty"`
	Relationships []*relDoc              `yaml:"relationships,omitempty"`
	Children      []*primDoc             `yaml:"children,omitempty"`
}

type attrDoc struct {
	Name          string      `yaml:"name"`
	Type          string      `yaml:"type"`
	Value         interface{} `yaml:"value,omitempty"`
	Connect       []string    `yaml:"connect,omitempty"`
	Interpolation string      `yaml:"interpolation,omitempty"`
	ElementSize   int         `yaml:"elementSize,omitempty"`
}

type relDoc struct {
	Name    string   `yaml:"name"`
	Targets []string `yaml:"targets"`
}

func Open(path string, opts *LoadOptions) (*Stage, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	s, err := Load(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.RootLayer = path
	return s, nil
}

func newDecoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "-", "_")) {
	case "", "utf_8", "utf8":
		return r, nil
	case "shift_jis", "sjis":
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder()), nil
	case "euc_jp":
		return transform.NewReader(r, japanese.EUCJP.NewDecoder()), nil
	}
	return nil, fmt.Errorf("unknown encoding: %q", encoding)
}

// Load reads a YAML scene document.
func Load(r io.Reader, opts *LoadOptions) (*Stage, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	r, err := newDecoder(r, opts.Encoding)
	if err != nil {
		return nil, err
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc documentFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}

	s := NewStage()
	for _, pd := range doc.Prims {
		if err := s.readPrim(AbsoluteRootPath, pd); err != nil {
			return nil, err
		}
	}
	if doc.DefaultPrim != "" {
		p := s.GetPrimAtPath(AbsoluteRootPath.AppendChild(doc.DefaultPrim))
		if p == nil {
			return nil, fmt.Errorf("default prim %q not found", doc.DefaultPrim)
		}
		s.SetDefaultPrim(p)
	} else if len(s.root.children) > 0 {
		s.SetDefaultPrim(s.root.children[0])
	}
	return s, nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	c, _ := semver.NewConstraint(supportedVersions)
	if !c.Check(ver) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, v, supportedVersions)
	}
	return nil
}

func (s *Stage) readPrim(parent Path, pd *primDoc) error {
	if !ValidName(pd.Name) {
		return fmt.Errorf("invalid prim name %q under %s", pd.Name, parent)
	}
	p, err := s.DefinePrim(parent.AppendChild(pd.Name), pd.Type)
	if err != nil {
		return err
	}
	for _, api := range pd.APISchemas {
		p.ApplyAPI(api)
	}
	for k, v := range pd.Metadata {
		p.SetMetadata(k, v)
	}
	for _, ad := range pd.Attributes {
		a := p.CreateAttribute(ad.Name, ValueType(ad.Type))
		if ad.Value != nil {
			v, err := decodeValue(a.typeName, ad.Value)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", p.path, ad.Name, err)
			}
			a.Set(v)
		}
		for _, c := range ad.Connect {
			conn, ok := ParseConnection(c)
			if !ok {
				return fmt.Errorf("%s.%s: invalid connection %q", p.path, ad.Name, c)
			}
			a.AddConnection(conn)
		}
		a.interpolation = ad.Interpolation
		a.elementSize = ad.ElementSize
	}
	for _, rd := range pd.Relationships {
		r := p.CreateRelationship(rd.Name)
		for _, t := range rd.Targets {
			if !Path(t).IsValid() {
				return fmt.Errorf("%s.%s: invalid target %q", p.path, rd.Name, t)
			}
			r.AddTarget(Path(t))
		}
	}
	for _, c := range pd.Children {
		if err := s.readPrim(p.path, c); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the stage as a YAML scene document. Unloaded prims are skipped.
func Save(s *Stage, w io.Writer) error {
	doc := &documentFile{Version: DocumentVersion, DefaultPrim: s.defaultPrim}
	for _, c := range s.root.children {
		if c.IsValid() {
			doc.Prims = append(doc.Prims, writePrim(c))
		}
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func SaveFile(s *Stage, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return Save(s, w)
}

func writePrim(p *Prim) *primDoc {
	pd := &primDoc{Name: p.Name(), Type: p.typeName, APISchemas: p.AppliedSchemas()}
	if len(p.metadata) > 0 {
		pd.Metadata = map[string]interface{}{}
		keys := p.MetadataKeys()
		sort.Strings(keys)
		for _, k := range keys {
			pd.Metadata[k] = p.metadata[k]
		}
	}
	for _, a := range p.attributes {
		ad := &attrDoc{Name: a.name, Type: string(a.typeName), Interpolation: a.interpolation, ElementSize: a.elementSize}
		if a.authored {
			ad.Value = encodeValue(a.value)
		}
		for _, c := range a.connections {
			ad.Connect = append(ad.Connect, c.String())
		}
		pd.Attributes = append(pd.Attributes, ad)
	}
	for _, r := range p.relationships {
		rd := &relDoc{Name: r.name}
		for _, t := range r.targets {
			rd.Targets = append(rd.Targets, t.String())
		}
		pd.Relationships = append(pd.Relationships, rd)
	}
	for _, c := range p.children {
		if c.IsValid() {
			pd.Children = append(pd.Children, writePrim(c))
		}
	}
	return pd
}
