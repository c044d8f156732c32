package interaction

import "github.com/ha1tch/flow-toolkit/pkg/graph"

// Cursor names.
const (
	CursorDefault   = "default"
	CursorMove      = "move"
	CursorPointer   = "pointer"
	CursorGrab      = "grab"
	CursorCrosshair = "crosshair"
)

// Policy holds the interactivity flags each object kind gets in a mode.
type Policy struct {
	Node, Port, Link, Element graph.Interactivity
}

// For returns the flags for a kind.
func (p Policy) For(k graph.Kind) graph.Interactivity {
	switch k {
	case graph.KindNode:
		return p.Node
	case graph.KindPort:
		return p.Port
	case graph.KindLink:
		return p.Link
	}
	return p.Element
}

var (
	inert = graph.Interactivity{HoverCursor: CursorDefault}
	drawn = graph.Interactivity{HoverCursor: CursorCrosshair}
)

var policies = map[Mode]Policy{
	ModeSelection: {
		Node:    graph.Interactivity{Selectable: true, Evented: true, HoverCursor: CursorMove},
		Port:    graph.Interactivity{Evented: true, HoverCursor: CursorPointer},
		Link:    graph.Interactivity{Evented: true, HoverCursor: CursorPointer},
		Element: graph.Interactivity{Selectable: true, Evented: true, HoverCursor: CursorMove},
	},
	ModeGrab: {
		Node:    graph.Interactivity{HoverCursor: CursorGrab},
		Port:    graph.Interactivity{HoverCursor: CursorGrab},
		Link:    graph.Interactivity{HoverCursor: CursorGrab},
		Element: graph.Interactivity{HoverCursor: CursorGrab},
	},
	// Nodes and ports stay evented so they can be clicked as link targets.
	ModeLink: {
		Node:    graph.Interactivity{Evented: true, HoverCursor: CursorPointer},
		Port:    graph.Interactivity{Evented: true, HoverCursor: CursorPointer},
		Link:    inert,
		Element: inert,
	},
	ModePolygon: {Node: drawn, Port: drawn, Link: drawn, Element: drawn},
	ModeLine:    {Node: drawn, Port: drawn, Link: drawn, Element: drawn},
	ModeArrow:   {Node: drawn, Port: drawn, Link: drawn, Element: drawn},
}

// PolicyFor returns the policy table entry of a mode.
func PolicyFor(m Mode) Policy { return policies[m] }
