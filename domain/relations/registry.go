// Package relations holds the relation type registry and the pure mutators
// that edit a node's relation list.
//
// The registry is built once at start-up and never mutated afterwards; callers
// receive it by injection rather than through package state.
package relations

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Class governs how removal treats a relation.
type Class string

const (
	// ClassComponent means the owner is responsible for the owned node's lifecycle.
	ClassComponent Class = "component"
	// ClassAssociation is a plain link such as power wiring.
	ClassAssociation Class = "association"
)

// Direction tells which endpoint of a relation holds it.
type Direction string

const (
	// DirectionOwning is held by the owner ("rack contains enclosure").
	DirectionOwning Direction = "owning"
	// DirectionInverse is held by the owned side ("enclosure containedBy rack").
	DirectionInverse Direction = "inverse"
)

// Descriptor describes one relation type.
type Descriptor struct {
	Name      string    `yaml:"name"`
	Mapping   string    `yaml:"mapping"`
	Class     Class     `yaml:"class"`
	Direction Direction `yaml:"direction"`
	// Singleton limits the entry to a single target.
	Singleton bool `yaml:"singleton"`
}

// Cascades reports whether removing the holder must also remove the targets.
func (d Descriptor) Cascades() bool {
	return d.Class == ClassComponent && d.Direction == DirectionOwning
}

// Registry is an immutable table of relation types keyed by name.
type Registry struct {
	types map[string]Descriptor
}

// DefaultDescriptors is the built-in relation type table.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "contains", Mapping: "containedBy", Class: ClassComponent, Direction: DirectionOwning},
		{Name: "containedBy", Mapping: "contains", Class: ClassComponent, Direction: DirectionInverse, Singleton: true},
		{Name: "encloses", Mapping: "enclosedBy", Class: ClassComponent, Direction: DirectionOwning},
		{Name: "enclosedBy", Mapping: "encloses", Class: ClassComponent, Direction: DirectionInverse},
		{Name: "powers", Mapping: "poweredBy", Class: ClassAssociation, Direction: DirectionOwning},
		{Name: "poweredBy", Mapping: "powers", Class: ClassAssociation, Direction: DirectionInverse},
		{Name: "manages", Mapping: "managedBy", Class: ClassAssociation, Direction: DirectionOwning},
		{Name: "managedBy", Mapping: "manages", Class: ClassAssociation, Direction: DirectionInverse},
		{Name: "connectsTo", Mapping: "connectsTo", Class: ClassAssociation, Direction: DirectionOwning},
	}
}

// DefaultRegistry builds the registry from DefaultDescriptors.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultDescriptors())
	if err != nil {
		panic(fmt.Sprintf("default relation types are inconsistent: %v", err))
	}
	return reg
}

// NewRegistry validates descriptors and builds a registry.
// Every mapping must name a registered type whose own mapping points back.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	types := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("relation type without a name")
		}
		if _, dup := types[d.Name]; dup {
			return nil, fmt.Errorf("relation type %q declared twice", d.Name)
		}
		if d.Class == "" {
			d.Class = ClassAssociation
		}
		if d.Class != ClassComponent && d.Class != ClassAssociation {
			return nil, fmt.Errorf("relation type %q: unknown class %q", d.Name, d.Class)
		}
		if d.Direction == "" {
			d.Direction = DirectionOwning
		}
		if d.Direction != DirectionOwning && d.Direction != DirectionInverse {
			return nil, fmt.Errorf("relation type %q: unknown direction %q", d.Name, d.Direction)
		}
		types[d.Name] = d
	}

	for name, d := range types {
		inverse, ok := types[d.Mapping]
		if !ok {
			return nil, fmt.Errorf("relation type %q maps to unregistered type %q", name, d.Mapping)
		}
		if inverse.Mapping != name {
			return nil, fmt.Errorf("relation type %q maps to %q, which maps back to %q", name, d.Mapping, inverse.Mapping)
		}
		if inverse.Class != d.Class {
			return nil, fmt.Errorf("relation types %q and %q disagree on class", name, d.Mapping)
		}
		if d.Mapping != name && d.Direction == inverse.Direction {
			return nil, fmt.Errorf("relation types %q and %q share direction %q", name, d.Mapping, d.Direction)
		}
	}

	return &Registry{types: types}, nil
}

type registryFile struct {
	RelationTypes []Descriptor `yaml:"relationTypes"`
}

// LoadRegistry parses a YAML document of the form
//
//	relationTypes:
//	  - name: contains
//	    mapping: containedBy
//	    class: component
//	    direction: owning
func LoadRegistry(r io.Reader) (*Registry, error) {
	var file registryFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse relation types: %w", err)
	}
	if len(file.RelationTypes) == 0 {
		return nil, fmt.Errorf("relation types file declares no types")
	}
	return NewRegistry(file.RelationTypes)
}

// LoadRegistryFile loads the registry from path, or returns the default
// registry when path is empty.
func LoadRegistryFile(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open relation types file: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.types[name]
	return d, ok
}

// Known reports whether name is a registered relation type.
func (r *Registry) Known(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Mapping returns the inverse type name for name.
func (r *Registry) Mapping(name string) (string, bool) {
	d, ok := r.types[name]
	if !ok {
		return "", false
	}
	return d.Mapping, true
}

// Names lists registered types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
