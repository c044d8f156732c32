// Package interaction tracks the editor's interaction mode and decides which
// pointer and keyboard actions are legal in it.
package interaction

import (
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Mode represents the interaction mode.
type Mode int

const (
	ModeSelection Mode = iota
	ModeGrab           // pan the viewport
	ModeLink           // connect ports
	ModePolygon        // free drawing tools
	ModeLine
	ModeArrow
)

var modeNames = [...]string{"selection", "grab", "link", "polygon", "line", "arrow"}

func (m Mode) String() string {
	if int(m) >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// IsTool reports whether m is a free drawing tool.
func (m Mode) IsTool() bool {
	return m == ModePolygon || m == ModeLine || m == ModeArrow
}

// Action is a user action the host wants to perform.
type Action int

const (
	ActSelect Action = iota
	ActMove
	ActEdit
	ActDelete
	ActStartLink
	ActConnect
	ActPan
	ActDraw
)

var allowed = map[Mode][]Action{
	ModeSelection: {ActSelect, ActMove, ActEdit, ActDelete, ActStartLink},
	ModeGrab:      {ActPan},
	ModeLink:      {ActStartLink, ActConnect},
	ModePolygon:   {ActDraw},
	ModeLine:      {ActDraw},
	ModeArrow:     {ActDraw},
}

// Shape is a finished free drawing.
type Shape struct {
	Tool   Mode
	Points []geometry.Point
}

// Machine is the interaction state machine of one editor session.
type Machine struct {
	reg  *graph.Registry
	mode Mode

	panning bool
	panFrom geometry.Point
	offset  geometry.Point

	draft  []geometry.Point
	cursor *geometry.Point

	cancelLink func()

	// OnInteraction is called after every mode change.
	OnInteraction func(Mode)
}

// New creates a machine in selection mode and applies its policy to reg.
func New(reg *graph.Registry) *Machine {
	m := &Machine{reg: reg, mode: ModeSelection}
	m.Apply()
	return m
}

// SetLinkCanceller registers the teardown for an in-progress link drawing.
func (m *Machine) SetLinkCanceller(fn func()) { m.cancelLink = fn }

// Mode returns the current mode.
func (m *Machine) Mode() Mode { return m.mode }

// Allows reports whether the action is legal in the current mode.
func (m *Machine) Allows(a Action) bool {
	for _, x := range allowed[m.mode] {
		if x == a {
			return true
		}
	}
	return false
}

// Selection switches to selection mode.
func (m *Machine) Selection() { m.transition(ModeSelection) }

// Grab switches to pan mode.
func (m *Machine) Grab() { m.transition(ModeGrab) }

// Linking switches to link-drawing mode.
func (m *Machine) Linking() { m.transition(ModeLink) }

// Drawing switches to a free drawing tool.
func (m *Machine) Drawing(tool Mode) error {
	if !tool.IsTool() {
		return fmt.Errorf("%s is not a drawing tool", tool)
	}
	m.transition(tool)
	return nil
}

func (m *Machine) transition(to Mode) {
	if m.mode == to {
		return
	}
	from := m.mode
	m.mode = to
	m.teardown(from)
	m.Apply()
	logging.Debug("interaction mode changed", "from", from.String(), "to", to.String())
	if m.OnInteraction != nil {
		m.OnInteraction(to)
	}
}

// teardown drops whatever the mode being left had in flight. The new mode is
// already set, so callbacks that switch back to selection are no-ops.
func (m *Machine) teardown(from Mode) {
	switch {
	case from.IsTool():
		m.draft = nil
		m.cursor = nil
	case from == ModeLink:
		if m.cancelLink != nil {
			m.cancelLink()
		}
	case from == ModeGrab:
		m.panning = false
	}
}

// Cancel abandons any drawing in progress and returns to selection. It is
// safe to call at any time.
func (m *Machine) Cancel() {
	if m.mode == ModeSelection {
		m.draft = nil
		m.cursor = nil
		return
	}
	m.transition(ModeSelection)
}

// Apply assigns every object's interactivity flags from the current mode's
// policy. Hosts call it after adding objects.
func (m *Machine) Apply() {
	if m.reg == nil {
		return
	}
	p := policies[m.mode]
	m.reg.Each(func(o graph.Object) {
		*o.Flags() = p.For(o.Kind())
	})
}

// KeyDown handles a key press.
func (m *Machine) KeyDown(k Key) {
	switch k {
	case KeyEscape:
		m.Cancel()
	case KeyGrab:
		m.Grab()
	}
}

// KeyUp handles a key release. Releasing the grab modifier ends pan mode.
func (m *Machine) KeyUp(k Key) {
	if k == KeyGrab && m.mode == ModeGrab {
		m.Selection()
	}
}

// PanStart begins dragging the viewport. Only legal in grab mode.
func (m *Machine) PanStart(p geometry.Point) bool {
	if m.mode != ModeGrab {
		return false
	}
	m.panning = true
	m.panFrom = p
	return true
}

// PanMove drags the canvas with the pointer and returns the pointer delta.
// p is in view coordinates; the offset moves opposite to the drag so the
// content follows the pointer.
func (m *Machine) PanMove(p geometry.Point) (geometry.Point, bool) {
	if !m.panning {
		return geometry.Point{}, false
	}
	d := p.Sub(m.panFrom)
	m.panFrom = p
	m.offset = m.offset.Sub(d)
	return d, true
}

// PanEnd stops dragging. The mode does not change.
func (m *Machine) PanEnd() { m.panning = false }

// Panning reports whether a pan drag is in progress.
func (m *Machine) Panning() bool { return m.panning }

// Offset returns the canvas point shown at the top-left of the view.
func (m *Machine) Offset() geometry.Point { return m.offset }

// SetOffset sets the viewport offset.
func (m *Machine) SetOffset(p geometry.Point) { m.offset = p }

// AddPoint adds a vertex to the current drawing. Lines and arrows finish on
// their second point; the machine then returns to selection.
func (m *Machine) AddPoint(p geometry.Point) (*Shape, bool) {
	if !m.mode.IsTool() {
		return nil, false
	}
	m.draft = append(m.draft, p)
	if (m.mode == ModeLine || m.mode == ModeArrow) && len(m.draft) == 2 {
		return m.finish()
	}
	return nil, false
}

// MoveCursor updates the provisional vertex following the pointer.
func (m *Machine) MoveCursor(p geometry.Point) {
	if m.mode.IsTool() && len(m.draft) > 0 {
		m.cursor = &p
	}
}

// CompleteDraft finishes a polygon. At least three vertices are needed.
func (m *Machine) CompleteDraft() (*Shape, bool) {
	if m.mode != ModePolygon || len(m.draft) < 3 {
		return nil, false
	}
	return m.finish()
}

func (m *Machine) finish() (*Shape, bool) {
	s := &Shape{Tool: m.mode, Points: m.draft}
	m.draft = nil
	m.cursor = nil
	m.transition(ModeSelection)
	return s, true
}

// Draft returns the vertices placed so far plus the provisional cursor
// vertex, for rendering.
func (m *Machine) Draft() []geometry.Point {
	out := append([]geometry.Point(nil), m.draft...)
	if m.cursor != nil {
		out = append(out, *m.cursor)
	}
	return out
}
