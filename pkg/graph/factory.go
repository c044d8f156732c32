package graph

import (
	"fmt"
	"sort"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
)

// Options carries everything a constructor may need. Fields that do not
// apply to the constructed kind are ignored.
type Options struct {
	ID            string
	Type          string
	Name          string
	Description   string
	Left, Top     float64
	Width, Height float64
	Angle         float64
	Descriptor    *Descriptor
	Configuration map[string]any
	Errors        []string
	Group         string
	Points        []geometry.Point
	Properties    map[string]any
}

// Constructor builds a graph object from options. Constructors do not create
// ports; callers do that once the node has its final id.
type Constructor func(Options) (Object, error)

type factoryEntry struct {
	kind Kind
	ctor Constructor
}

// Factory maps type names to constructors. It is the only way objects are
// created from type names.
type Factory struct {
	entries map[string]factoryEntry
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{entries: make(map[string]factoryEntry)}
}

// Register adds a constructor. Registering a name twice panics.
func (f *Factory) Register(name string, kind Kind, ctor Constructor) {
	if name == "" {
		panic("graph: empty type name")
	}
	if ctor == nil {
		panic("graph: nil constructor for " + name)
	}
	if _, exists := f.entries[name]; exists {
		panic(fmt.Sprintf("graph: type %q already registered", name))
	}
	f.entries[name] = factoryEntry{kind: kind, ctor: ctor}
}

// Kind returns the kind a type name constructs.
func (f *Factory) Kind(name string) (Kind, bool) {
	e, ok := f.entries[name]
	return e.kind, ok
}

// Types returns the registered type names, sorted.
func (f *Factory) Types() []string {
	names := make([]string, 0, len(f.entries))
	for n := range f.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New constructs an object of opts.Type. A missing id is generated.
func (f *Factory) New(opts Options) (Object, error) {
	e, ok := f.entries[opts.Type]
	if !ok {
		return nil, fmt.Errorf("%q: %w", opts.Type, ErrUnknownType)
	}
	if opts.ID == "" {
		opts.ID = NewID()
	}
	obj, err := e.ctor(opts)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", opts.Type, err)
	}
	if obj.Kind() != e.kind {
		return nil, fmt.Errorf("constructor for %q returned a %s, registered as %s", opts.Type, obj.Kind(), e.kind)
	}
	return obj, nil
}

// NodeConstructor builds a plain node. A nil descriptor means
// DefaultDescriptor.
func NodeConstructor(opts Options) (Object, error) {
	d := DefaultDescriptor()
	if opts.Descriptor != nil {
		d = opts.Descriptor.Clone()
	}
	if !d.OutPortType.Valid() {
		return nil, fmt.Errorf("outPortType %q: %w", d.OutPortType, ErrPolicy)
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 200
	}
	if h <= 0 {
		h = 40
	}
	return &Node{
		ID:            opts.ID,
		Type:          opts.Type,
		Name:          opts.Name,
		Description:   opts.Description,
		Left:          opts.Left,
		Top:           opts.Top,
		Width:         w,
		Height:        h,
		Angle:         opts.Angle,
		Descriptor:    d,
		Configuration: CloneConfiguration(opts.Configuration),
		Errors:        append([]string(nil), opts.Errors...),
		Group:         opts.Group,
	}, nil
}

// LinkConstructor returns a constructor for links drawn in the given style.
// Endpoints are filled in by the link manager.
func LinkConstructor(style geometry.Routing) Constructor {
	return func(opts Options) (Object, error) {
		return &Link{ID: opts.ID, Type: opts.Type, Routing: style}, nil
	}
}

// ElementConstructor builds a free element.
func ElementConstructor(opts Options) (Object, error) {
	pts := make([]geometry.Point, len(opts.Points))
	copy(pts, opts.Points)
	return &Element{
		ID:         opts.ID,
		Type:       opts.Type,
		Left:       opts.Left,
		Top:        opts.Top,
		Width:      opts.Width,
		Height:     opts.Height,
		Angle:      opts.Angle,
		Points:     pts,
		Properties: CloneConfiguration(opts.Properties),
	}, nil
}

// Built-in type names.
const (
	TypeNode           = "node"
	TypeLink           = "link"
	TypeCurvedLink     = "curvedLink"
	TypeOrthogonalLink = "orthogonalLink"
	TypePolygon        = "polygon"
	TypeLine           = "line"
	TypeArrow          = "arrow"
	TypeText           = "text"
	TypeImage          = "image"
	TypeWorkarea       = "workarea"
)

// LinkType returns the built-in link type name for a routing style.
func LinkType(style geometry.Routing) string {
	switch style {
	case geometry.Curved:
		return TypeCurvedLink
	case geometry.Orthogonal:
		return TypeOrthogonalLink
	}
	return TypeLink
}

// DefaultFactory registers the built-in node, link and element types.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register(TypeNode, KindNode, NodeConstructor)
	f.Register(TypeLink, KindLink, LinkConstructor(geometry.Straight))
	f.Register(TypeCurvedLink, KindLink, LinkConstructor(geometry.Curved))
	f.Register(TypeOrthogonalLink, KindLink, LinkConstructor(geometry.Orthogonal))
	for _, name := range []string{TypePolygon, TypeLine, TypeArrow, TypeText, TypeImage, TypeWorkarea} {
		f.Register(name, KindElement, ElementConstructor)
	}
	return f
}
