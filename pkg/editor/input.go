package editor

import (
	"slices"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/interaction"
	"github.com/ha1tch/flow-toolkit/pkg/link"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Hit tolerances in canvas units.
const (
	portHitRadius = 8.0
	linkHitDist   = 4.0
)

// zoomStep is the ratio applied by one zoom key or wheel notch.
const zoomStep = 1.25

// PointerAction tells pointer presses, drags and releases apart.
type PointerAction int

const (
	PointerDown PointerAction = iota
	PointerMove
	PointerUp
)

// dragState tracks a selection drag between pointer down and up. applied
// is how far the selection actually moved, which lags the pointer while grid
// snapping holds it in place.
type dragState struct {
	start   geometry.Point
	applied geometry.Point
	moved   bool
}

// SetView records the size of the host's viewport in canvas units at zoom 1.
func (s *Session) SetView(width, height float64) {
	s.view = geometry.Size{W: width, H: height}
}

// StartLink begins drawing a link from an outbound port.
func (s *Session) StartLink(src graph.PortKey) error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.machine.Allows(interaction.ActStartLink) {
		s.machine.Cancel()
	}
	return s.links.Init(src)
}

// ConnectTo ends the drawing at dst. Drawing ends whether or not a link
// was created.
func (s *Session) ConnectTo(dst graph.PortKey) (*graph.Link, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	l, err := s.links.ConnectTo(dst)
	if err != nil {
		return nil, err
	}
	s.machine.Apply()
	s.added(l)
	return l, nil
}

// CancelLink abandons a link drawing. It is safe to call at any time.
func (s *Session) CancelLink() { s.links.Cancel() }

// Connect creates a link between two ports without a drawing gesture.
func (s *Session) Connect(spec link.Spec) (*graph.Link, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	l, err := s.links.Create(spec)
	if err != nil {
		return nil, err
	}
	s.machine.Apply()
	s.added(l)
	return l, nil
}

// startLinkFromSelection starts drawing from the first free outbound port of
// the first selected node.
func (s *Session) startLinkFromSelection() {
	nodes, _ := s.selectedObjects()
	for _, n := range nodes {
		for _, p := range n.FromPorts {
			if p.Enabled {
				s.logErr("link", s.StartLink(p.Key()))
				return
			}
		}
	}
	logging.WarnContext(s.ctx, "no free outbound port in selection")
}

// HandleKey applies an editor key and reports whether it was consumed.
// KeySave and KeyQuit are left to the host.
func (s *Session) HandleKey(k interaction.Key) bool {
	if s.closed {
		return false
	}
	mode := s.machine.Mode()
	switch k {
	case interaction.KeyEscape:
		if mode == interaction.ModeSelection {
			s.ClearSelection()
		}
		s.machine.KeyDown(k)
	case interaction.KeyGrab:
		// Terminals report no key release, so the grab key toggles.
		if mode == interaction.ModeGrab {
			s.machine.KeyUp(k)
		} else {
			s.machine.KeyDown(k)
		}
	case interaction.KeyDelete:
		if s.machine.Allows(interaction.ActDelete) {
			s.logErr("delete", s.Remove(s.Selection()...))
		}
	case interaction.KeyUndo:
		_, err := s.Undo()
		s.logErr("undo", err)
	case interaction.KeyRedo:
		_, err := s.Redo()
		s.logErr("redo", err)
	case interaction.KeyCopy:
		s.Copy()
	case interaction.KeyPaste:
		_, err := s.Paste()
		s.logErr("paste", err)
	case interaction.KeyLinkTool:
		if mode == interaction.ModeLink {
			s.machine.Cancel()
		} else {
			s.startLinkFromSelection()
		}
	case interaction.KeyPolygonTool:
		s.logErr("tool", s.machine.Drawing(interaction.ModePolygon))
	case interaction.KeyLineTool:
		s.logErr("tool", s.machine.Drawing(interaction.ModeLine))
	case interaction.KeyArrowTool:
		s.logErr("tool", s.machine.Drawing(interaction.ModeArrow))
	case interaction.KeyEnter:
		if shape, ok := s.machine.CompleteDraft(); ok {
			_, err := s.AddShape(shape)
			s.logErr("draw", err)
		}
	case interaction.KeyUp, interaction.KeyDown, interaction.KeyLeft, interaction.KeyRight:
		if s.machine.Allows(interaction.ActMove) {
			s.logErr("move", s.MoveSelection(s.nudge(k)))
		}
	case interaction.KeyTab:
		s.SelectNext()
	case interaction.KeyZoomIn:
		s.SetZoom(s.zoom * zoomStep)
	case interaction.KeyZoomOut:
		s.SetZoom(s.zoom / zoomStep)
	case interaction.KeyZoomFit:
		s.ZoomToFit(s.view.W, s.view.H)
	case interaction.KeyAddNode:
		c := s.Viewport(s.view.W, s.view.H).Center()
		_, err := s.AddNode(graph.Options{Left: c.X - 100, Top: c.Y - 20})
		s.logErr("add", err)
	default:
		return false
	}
	return true
}

func (s *Session) nudge(k interaction.Key) geometry.Point {
	step := 10.0
	if s.sync.Grid > 0 {
		step = s.sync.Grid
	}
	switch k {
	case interaction.KeyUp:
		return geometry.Point{Y: -step}
	case interaction.KeyDown:
		return geometry.Point{Y: step}
	case interaction.KeyLeft:
		return geometry.Point{X: -step}
	}
	return geometry.Point{X: step}
}

func (s *Session) logErr(op string, err error) {
	if err != nil {
		logging.DebugContext(s.ctx, "key action failed", "action", op, "error", err)
	}
}

// HandlePointer applies a pointer event in canvas coordinates.
func (s *Session) HandlePointer(act PointerAction, p interaction.Pointer) {
	if s.closed {
		return
	}
	if p.Wheel != 0 {
		if p.Wheel > 0 {
			s.SetZoom(s.zoom * zoomStep)
		} else {
			s.SetZoom(s.zoom / zoomStep)
		}
		return
	}

	switch mode := s.machine.Mode(); {
	case mode == interaction.ModeGrab:
		s.pointerPan(act, p)
	case mode.IsTool():
		s.pointerDraw(act, p)
	case mode == interaction.ModeLink:
		s.pointerLink(act, p)
	default:
		s.pointerSelect(act, p)
	}
}

func (s *Session) pointerPan(act PointerAction, p interaction.Pointer) {
	// Pan in view coordinates, which stay put while the offset moves.
	view := p.Pos.Sub(s.machine.Offset())
	switch act {
	case PointerDown:
		s.machine.PanStart(view)
	case PointerMove:
		s.machine.PanMove(view)
	case PointerUp:
		s.machine.PanEnd()
	}
}

func (s *Session) pointerDraw(act PointerAction, p interaction.Pointer) {
	switch act {
	case PointerDown:
		if shape, done := s.machine.AddPoint(p.Pos); done {
			_, err := s.AddShape(shape)
			s.logErr("draw", err)
		}
	case PointerMove:
		s.machine.MoveCursor(p.Pos)
	}
}

func (s *Session) pointerLink(act PointerAction, p interaction.Pointer) {
	switch act {
	case PointerMove:
		s.links.MovePointer(p.Pos)
	case PointerDown:
		var dst graph.PortKey
		if port := s.portAt(p.Pos, graph.ToPort); port != nil {
			dst = port.Key()
		} else if n, ok := s.HitTest(p.Pos).(*graph.Node); ok && n.ToPort != nil {
			// Dropping on a node body targets its inbound port.
			dst = n.ToPort.Key()
		}
		_, err := s.ConnectTo(dst)
		s.logErr("connect", err)
	}
}

func (s *Session) pointerSelect(act PointerAction, p interaction.Pointer) {
	switch act {
	case PointerDown:
		if port := s.portAt(p.Pos, graph.FromPort); port != nil && port.Enabled {
			s.logErr("link", s.StartLink(port.Key()))
			return
		}
		obj := s.HitTest(p.Pos)
		if obj == nil {
			if !p.Shift {
				s.ClearSelection()
			}
			return
		}
		id := obj.ObjectID()
		switch {
		case p.Shift:
			s.Toggle(id)
		case !slices.Contains(s.selection, id):
			s.Select(id)
		}
		if obj.Kind() != graph.KindLink {
			s.drag = &dragState{start: p.Pos}
		}
	case PointerMove:
		if s.drag == nil {
			s.tooltip.Hover(s.hoverID(p.Pos), s.now())
			return
		}
		d := p.Pos.Sub(s.drag.start).Sub(s.drag.applied)
		if d == (geometry.Point{}) {
			return
		}
		nodes, elements := s.selectedObjects()
		before := anchor(nodes, elements)
		s.translate(nodes, elements, d)
		if moved := anchor(nodes, elements).Sub(before); moved != (geometry.Point{}) {
			s.drag.applied = s.drag.applied.Add(moved)
			s.drag.moved = true
		}
	case PointerUp:
		if s.drag != nil && s.drag.moved {
			s.commitMove(s.Selection()...)
		}
		s.drag = nil
	}
}

// anchor is the top-left of the first dragged object.
func anchor(nodes []*graph.Node, elements []*graph.Element) geometry.Point {
	switch {
	case len(nodes) > 0:
		return geometry.Point{X: nodes[0].Left, Y: nodes[0].Top}
	case len(elements) > 0:
		return geometry.Point{X: elements[0].Left, Y: elements[0].Top}
	}
	return geometry.Point{}
}

func (s *Session) hoverID(pt geometry.Point) string {
	if obj := s.HitTest(pt); obj != nil {
		return obj.ObjectID()
	}
	return ""
}

// portAt returns the nearest evented port of the given direction within
// reach of pt.
func (s *Session) portAt(pt geometry.Point, dir graph.Direction) *graph.Port {
	var best *graph.Port
	bestDist := portHitRadius / s.zoom
	for _, p := range s.reg.Ports() {
		if p.Direction != dir || !p.Evented {
			continue
		}
		if d := p.Position.Dist(pt); d <= bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// HitTest returns the topmost evented node, element or link under pt.
func (s *Session) HitTest(pt geometry.Point) graph.Object {
	objs := s.reg.Objects()
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		if !o.Flags().Evented {
			continue
		}
		switch v := o.(type) {
		case *graph.Node:
			if nodeContains(v, pt) {
				return v
			}
		case *graph.Element:
			if v.Type != graph.TypeWorkarea && v.Rect().Contains(pt) {
				return v
			}
		case *graph.Link:
			if geometry.PolylineDist(pt, linkLine(v)) <= linkHitDist/s.zoom {
				return v
			}
		}
	}
	return nil
}

// nodeContains tests pt against the node rectangle, undoing its rotation.
func nodeContains(n *graph.Node, pt geometry.Point) bool {
	r := n.Rect()
	if n.Angle != 0 {
		pt = geometry.Rotate(pt, r.Center(), -n.Angle)
	}
	return r.Contains(pt)
}

func linkLine(l *graph.Link) []geometry.Point {
	if l.Routing == geometry.Curved && len(l.Path) == 4 {
		return geometry.FlattenSpline(l.Path, 24)
	}
	return l.Path
}
