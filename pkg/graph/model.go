// Package graph provides the flow graph data model: nodes, ports, links and
// free elements held in an id-indexed registry.
//
// Objects never hold pointers to each other across ownership boundaries.
// A port knows its node by id and its links by id; a link knows its
// endpoints by node and port id. Everything is resolved through a Registry.
package graph

import (
	"errors"
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
)

var (
	// ErrNotFound is returned when an id does not resolve in the registry.
	ErrNotFound = errors.New("object not found")
	// ErrDuplicateID is returned when an object id is already registered.
	ErrDuplicateID = errors.New("duplicate object id")
	// ErrUnknownType is returned when no constructor is registered for a type name.
	ErrUnknownType = errors.New("unknown object type")
	// ErrPolicy is returned when an operation conflicts with a node's fan-out policy.
	ErrPolicy = errors.New("fan-out policy violation")
)

// Kind tags the variant of a graph object.
type Kind int

const (
	KindNode Kind = iota
	KindLink
	KindPort
	KindElement
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindLink:
		return "link"
	case KindPort:
		return "port"
	case KindElement:
		return "element"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Interactivity holds the per-object flags the interaction machine assigns
// on every mode change.
type Interactivity struct {
	Selectable  bool
	Evented     bool
	HoverCursor string
}

// Flags exposes the interactivity flags of any object embedding Interactivity.
func (i *Interactivity) Flags() *Interactivity { return i }

// Object is implemented by *Node, *Link, *Port and *Element.
type Object interface {
	ObjectID() string
	Kind() Kind
	Flags() *Interactivity
}

// OutPortType is a node's fan-out policy.
type OutPortType string

const (
	OutSingle    OutPortType = "SINGLE"
	OutStatic    OutPortType = "STATIC"
	OutDynamic   OutPortType = "DYNAMIC"
	OutBroadcast OutPortType = "BROADCAST"
	OutNone      OutPortType = "NONE"
)

// Valid reports whether t is a known policy.
func (t OutPortType) Valid() bool {
	switch t {
	case OutSingle, OutStatic, OutDynamic, OutBroadcast, OutNone:
		return true
	}
	return false
}

// Descriptor declares a node's fan-in and fan-out policy.
type Descriptor struct {
	InEnabled   bool        `json:"inEnabled"`
	InMultiple  bool        `json:"inMultiple,omitempty"`
	OutPortType OutPortType `json:"outPortType"`
	OutPorts    []string    `json:"outPorts,omitempty"`
}

// DefaultDescriptor is one inbound port and one outbound port.
func DefaultDescriptor() Descriptor {
	return Descriptor{InEnabled: true, OutPortType: OutSingle}
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.OutPorts = append([]string(nil), d.OutPorts...)
	return d
}

// Node is a positioned graph vertex.
type Node struct {
	ID            string
	Type          string
	Name          string
	Description   string
	Left, Top     float64
	Width, Height float64
	Angle         float64
	Descriptor    Descriptor
	Configuration map[string]any
	Errors        []string
	Group         string

	ToPort    *Port
	FromPorts []*Port

	Interactivity
}

func (n *Node) ObjectID() string { return n.ID }
func (n *Node) Kind() Kind       { return KindNode }

// Rect returns the node's unrotated bounding box.
func (n *Node) Rect() geometry.Rect {
	return geometry.Rect{Left: n.Left, Top: n.Top, Width: n.Width, Height: n.Height}
}

// FromPort returns the outbound port with the given id, or nil.
func (n *Node) FromPort(id string) *Port {
	for _, p := range n.FromPorts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Ports returns the inbound port (if any) followed by the outbound ports.
func (n *Node) Ports() []*Port {
	ports := make([]*Port, 0, len(n.FromPorts)+1)
	if n.ToPort != nil {
		ports = append(ports, n.ToPort)
	}
	return append(ports, n.FromPorts...)
}

// Direction tells inbound ports from outbound ports.
type Direction int

const (
	ToPort Direction = iota
	FromPort
)

func (d Direction) String() string {
	if d == ToPort {
		return "toPort"
	}
	return "fromPort"
}

// Default port fills.
const (
	PortFill         = "#9e9e9e"
	PortSelectedFill = "#2196f3"
)

// Port is a connection point owned by a node. Its id is only unique within
// that node.
type Port struct {
	ID        string
	Direction Direction
	NodeID    string
	Position  geometry.Point
	LeftDiff  float64
	TopDiff   float64

	// Enabled gates new connections. Connected and Selected are display state.
	Enabled   bool
	Connected bool
	Selected  bool

	Fill       string
	OriginFill string

	// Links holds the ids of attached links in connection order.
	Links []string

	Interactivity
}

func (p *Port) ObjectID() string { return p.ID }
func (p *Port) Kind() Kind       { return KindPort }

// Key returns the registry key of p.
func (p *Port) Key() PortKey { return PortKey{NodeID: p.NodeID, PortID: p.ID} }

// HasLink reports whether the link id is attached to p.
func (p *Port) HasLink(id string) bool {
	for _, l := range p.Links {
		if l == id {
			return true
		}
	}
	return false
}

// AttachLink appends a link id. Attaching twice is a no-op.
func (p *Port) AttachLink(id string) {
	if !p.HasLink(id) {
		p.Links = append(p.Links, id)
	}
	p.Connected = len(p.Links) > 0
}

// DetachLink removes a link id and reports whether it was present.
func (p *Port) DetachLink(id string) bool {
	for i, l := range p.Links {
		if l == id {
			p.Links = append(p.Links[:i:i], p.Links[i+1:]...)
			p.Connected = len(p.Links) > 0
			return true
		}
	}
	return false
}

// Link is a directed edge from an outbound port to an inbound port.
type Link struct {
	ID            string
	Type          string
	Routing       geometry.Routing
	FromNodeID    string
	FromPortID    string
	ToNodeID      string
	ToPortID      string
	FromPortIndex int

	// Path is derived from the endpoint port positions.
	Path []geometry.Point

	Interactivity
}

func (l *Link) ObjectID() string { return l.ID }
func (l *Link) Kind() Kind       { return KindLink }

// From returns the start of the cached path.
func (l *Link) From() geometry.Point {
	if len(l.Path) == 0 {
		return geometry.Point{}
	}
	return l.Path[0]
}

// To returns the end of the cached path.
func (l *Link) To() geometry.Point {
	if len(l.Path) == 0 {
		return geometry.Point{}
	}
	return l.Path[len(l.Path)-1]
}

// FromKey is the registry key of the source port.
func (l *Link) FromKey() PortKey { return PortKey{l.FromNodeID, l.FromPortID} }

// ToKey is the registry key of the destination port.
func (l *Link) ToKey() PortKey { return PortKey{l.ToNodeID, l.ToPortID} }

// Element is any non-graph scene object: drawings, text, media placeholders
// and the workarea.
type Element struct {
	ID            string
	Type          string
	Left, Top     float64
	Width, Height float64
	Angle         float64
	Points        []geometry.Point
	Properties    map[string]any

	Interactivity
}

func (e *Element) ObjectID() string { return e.ID }
func (e *Element) Kind() Kind       { return KindElement }

// Rect returns the element's bounding box.
func (e *Element) Rect() geometry.Rect {
	return geometry.Rect{Left: e.Left, Top: e.Top, Width: e.Width, Height: e.Height}
}

// Translate moves the element and its points by d.
func (e *Element) Translate(d geometry.Point) {
	e.Left += d.X
	e.Top += d.Y
	for i := range e.Points {
		e.Points[i] = e.Points[i].Add(d)
	}
}

// CloneConfiguration deep-copies a configuration map through its JSON-shaped
// values (maps, slices and scalars).
func CloneConfiguration(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneConfiguration(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
