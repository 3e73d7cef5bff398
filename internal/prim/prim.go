// Package prim holds the composed scene tree handed to the realizer.
// Composition of source layers happens outside this module; a Prim tree
// arrives fully resolved and is treated as immutable for the duration of
// one realization pass.
package prim

import (
	"sort"
	"strings"
)

// Path addresses a prim inside the composed tree, e.g. "/Root/Geo/Body".
type Path string

// Root is the path of the tree root.
const Root Path = "/"

// Name returns the last path segment.
func (p Path) Name() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns the enclosing path, or "/" when p is the root or a
// top-level prim.
func (p Path) Parent() Path {
	s := string(p)
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return Root
	}
	return Path(s[:i])
}

// Child returns the path of a direct child named name.
func (p Path) Child(name string) Path {
	if p == Root || p == "" {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// HasPrefix reports whether p is root itself or lies under root.
func (p Path) HasPrefix(root Path) bool {
	if root == Root || root == "" {
		return true
	}
	if p == root {
		return true
	}
	return strings.HasPrefix(string(p), string(root)+"/")
}

// Property is a single authored property of a prim: a default value, an
// optional keyframe table, and the metadata the realizer cares about.
type Property struct {
	Value   any
	Samples map[float64]any

	// Interp is the primvar interpolation domain ("constant", "uniform",
	// "vertex", "faceVarying"). Empty means unauthored; the geometry
	// builder infers it from element counts.
	Interp string

	// Indices is the primvar index table, when the values are indexed.
	Indices []int

	// ElementSize is the authored element size for array properties that
	// group several scalars per element (joint indices and weights).
	ElementSize int

	// Connect lists connection targets for shading-network properties
	// ("inputs:file.connect" and friends). Targets address either a prim
	// or a prim property as "/Path/To/Prim.outputs:rgb".
	Connect []Path

	// ColorSpace is the authored source color space, when any.
	ColorSpace string
}

// Timed reports whether the property carries time samples.
func (p *Property) Timed() bool { return p != nil && len(p.Samples) > 0 }

// ConnectTargets returns the connection targets, tolerating a nil
// property.
func (p *Property) ConnectTargets() []Path {
	if p == nil {
		return nil
	}
	return p.Connect
}

// Val returns the default value, tolerating a nil property.
func (p *Property) Val() any {
	if p == nil {
		return nil
	}
	return p.Value
}

// SampleTimes returns the sample keys sorted ascending.
// The keyframe table is an unordered map; small tracks make sorting per
// call acceptable (see sample.Eval).
func (p *Property) SampleTimes() []float64 {
	if p == nil || len(p.Samples) == 0 {
		return nil
	}
	ts := make([]float64, 0, len(p.Samples))
	for t := range p.Samples {
		ts = append(ts, t)
	}
	sort.Float64s(ts)
	return ts
}

// Prim is one node of the composed tree: a schema type name, properties,
// relationships, metadata and named children.
type Prim struct {
	Path     Path
	TypeName string
	Props    map[string]*Property
	Children map[string]*Prim
	Order    []string // child traversal order
	Rels     map[string][]Path
	Meta     map[string]any
	Parent   *Prim
}

// New creates an empty prim with the given path and type.
func New(path Path, typeName string) *Prim {
	return &Prim{
		Path:     path,
		TypeName: typeName,
		Props:    make(map[string]*Property),
		Children: make(map[string]*Prim),
		Rels:     make(map[string][]Path),
		Meta:     make(map[string]any),
	}
}

// AddChild attaches c under p and returns c.
func (p *Prim) AddChild(c *Prim) *Prim {
	name := c.Path.Name()
	if _, ok := p.Children[name]; !ok {
		p.Order = append(p.Order, name)
	}
	p.Children[name] = c
	c.Parent = p
	return c
}

// NewChild creates a child prim named name with the given type.
func (p *Prim) NewChild(name, typeName string) *Prim {
	return p.AddChild(New(p.Path.Child(name), typeName))
}

// Prop returns the named property or nil.
func (p *Prim) Prop(name string) *Property {
	if p == nil {
		return nil
	}
	return p.Props[name]
}

// SetProp sets a property's default value and returns the property so
// callers can fill in samples or metadata.
func (p *Prim) SetProp(name string, value any) *Property {
	pr, ok := p.Props[name]
	if !ok {
		pr = &Property{}
		p.Props[name] = pr
	}
	pr.Value = value
	return pr
}

// Rel returns the named relationship targets, or nil.
func (p *Prim) Rel(name string) []Path {
	if p == nil {
		return nil
	}
	return p.Rels[name]
}

// Find resolves an absolute path against the tree containing p.
// Returns nil when no prim lives at the path.
func (p *Prim) Find(path Path) *Prim {
	root := p
	for root.Parent != nil {
		root = root.Parent
	}
	if path == Root || path == root.Path {
		return root
	}
	rel := strings.TrimPrefix(string(path), string(root.Path))
	rel = strings.TrimPrefix(rel, "/")
	cur := root
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		cur = cur.Children[seg]
		if cur == nil {
			return nil
		}
	}
	return cur
}

// VisitChildren calls fn for every direct child in traversal order.
// Children attached without an Order entry are visited last, sorted by
// name, so tree walks stay deterministic.
func (p *Prim) VisitChildren(fn func(*Prim)) {
	seen := make(map[string]bool, len(p.Order))
	for _, name := range p.Order {
		if c := p.Children[name]; c != nil && !seen[name] {
			seen[name] = true
			fn(c)
		}
	}
	if len(seen) == len(p.Children) {
		return
	}
	rest := make([]string, 0, len(p.Children)-len(seen))
	for name := range p.Children {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		fn(p.Children[name])
	}
}

// Walk visits p and every descendant depth-first in traversal order.
// Returning false from fn prunes the subtree below that prim.
func (p *Prim) Walk(fn func(*Prim) bool) {
	if !fn(p) {
		return
	}
	p.VisitChildren(func(c *Prim) { c.Walk(fn) })
}
