package scene

import (
	"fmt"
	"strings"
)

// Metadata keys used by the importer.
const (
	MetadataInstanceable = "instanceable"
	MetadataKind         = "kind"
)

const KindComponent = "component"

type Prim struct {
	stage    *Stage
	path     Path
	typeName string
	parent   *Prim
	children []*Prim

	attributes    []*Attribute
	relationships []*Relationship
	metadata      map[string]interface{}
	apiSchemas    []string

	unloaded bool
}

func (p *Prim) Stage() *Stage {
	return p.stage
}

func (p *Prim) Path() Path {
	return p.path
}

func (p *Prim) Name() string {
	return p.path.Name()
}

func (p *Prim) TypeName() string {
	return p.typeName
}

func (p *Prim) SetTypeName(t string) {
	p.typeName = t
}

func (p *Prim) IsA(typeName string) bool {
	return p != nil && p.typeName == typeName
}

func (p *Prim) Parent() *Prim {
	return p.parent
}

// IsValid is false for nil prims and prims inside an unloaded subtree.
func (p *Prim) IsValid() bool {
	if p == nil {
		return false
	}
	for q := p; q != nil; q = q.parent {
		if q.unloaded {
			return false
		}
	}
	return true
}

func (p *Prim) Children() []*Prim {
	return append([]*Prim(nil), p.children...)
}

func (p *Prim) Child(name string) *Prim {
	for _, c := range p.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// CreateAttribute declares an attribute. An existing attribute with the same
// name is returned as is.
func (p *Prim) CreateAttribute(name string, typeName ValueType) *Attribute {
	if a := p.Attribute(name); a != nil {
		return a
	}
	a := &Attribute{prim: p, name: name, typeName: typeName}
	p.attributes = append(p.attributes, a)
	return a
}

func (p *Prim) Attribute(name string) *Attribute {
	if p == nil {
		return nil
	}
	for _, a := range p.attributes {
		if a.name == name {
			return a
		}
	}
	return nil
}

func (p *Prim) HasAttribute(name string) bool {
	return p.Attribute(name) != nil
}

func (p *Prim) Attributes() []*Attribute {
	return append([]*Attribute(nil), p.attributes...)
}

// AttributesInNamespace returns attributes named "<ns>:...", in declaration order.
func (p *Prim) AttributesInNamespace(ns string) []*Attribute {
	var attrs []*Attribute
	for _, a := range p.attributes {
		if strings.HasPrefix(a.name, ns+":") {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func (p *Prim) RemoveAttribute(name string) bool {
	for i, a := range p.attributes {
		if a.name == name {
			p.attributes = append(p.attributes[:i], p.attributes[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Prim) CreateRelationship(name string) *Relationship {
	if r := p.Relationship(name); r != nil {
		return r
	}
	r := &Relationship{prim: p, name: name}
	p.relationships = append(p.relationships, r)
	return r
}

func (p *Prim) Relationship(name string) *Relationship {
	if p == nil {
		return nil
	}
	for _, r := range p.relationships {
		if r.name == name {
			return r
		}
	}
	return nil
}

func (p *Prim) Relationships() []*Relationship {
	return append([]*Relationship(nil), p.relationships...)
}

func (p *Prim) SetMetadata(key string, v interface{}) {
	if p.metadata == nil {
		p.metadata = map[string]interface{}{}
	}
	p.metadata[key] = v
}

func (p *Prim) Metadata(key string) (interface{}, bool) {
	v, ok := p.metadata[key]
	return v, ok
}

func (p *Prim) MetadataKeys() []string {
	var keys []string
	for k := range p.metadata {
		keys = append(keys, k)
	}
	return keys
}

func (p *Prim) IsInstanceable() bool {
	v, _ := p.metadata[MetadataInstanceable].(bool)
	return v
}

func (p *Prim) SetInstanceable(b bool) {
	p.SetMetadata(MetadataInstanceable, b)
}

func (p *Prim) Kind() string {
	v, _ := p.metadata[MetadataKind].(string)
	return v
}

func (p *Prim) SetKind(kind string) {
	p.SetMetadata(MetadataKind, kind)
}

// ApplyAPI records an applied API schema. Applying twice is a no-op.
func (p *Prim) ApplyAPI(schema string) {
	if !p.HasAPI(schema) {
		p.apiSchemas = append(p.apiSchemas, schema)
	}
}

func (p *Prim) HasAPI(schema string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.apiSchemas {
		if s == schema {
			return true
		}
	}
	return false
}

func (p *Prim) AppliedSchemas() []string {
	return append([]string(nil), p.apiSchemas...)
}

func (p *Prim) String() string {
	return fmt.Sprintf("%s: %q (%d children)", p.typeName, p.Name(), len(p.children))
}
