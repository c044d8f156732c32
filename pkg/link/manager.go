package link

import (
	"errors"
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// ModeSwitcher is the part of the interaction machine the manager drives.
type ModeSwitcher interface {
	Linking()
	Selection()
}

// Recorder records structural changes.
type Recorder interface {
	Save(op graph.Op, nodeIDs ...string) error
	Active() bool
}

// Manager runs the drag-to-connect protocol: Init, MovePointer, Generate,
// Finish. It also removes links.
type Manager struct {
	reg     *graph.Registry
	sync    *graph.Synchronizer
	factory *graph.Factory
	modes   ModeSwitcher
	rec     Recorder

	// Style is the routing of links drawn from now on.
	Style geometry.Routing

	drawing bool
	source  graph.PortKey
	stub    *graph.Link
}

// NewManager creates a manager over the given registry.
func NewManager(reg *graph.Registry, sync *graph.Synchronizer, factory *graph.Factory) *Manager {
	return &Manager{reg: reg, sync: sync, factory: factory}
}

// SetModes attaches the interaction machine.
func (m *Manager) SetModes(ms ModeSwitcher) { m.modes = ms }

// SetRecorder attaches the transaction engine.
func (m *Manager) SetRecorder(r Recorder) { m.rec = r }

// Drawing reports whether a link is being drawn.
func (m *Manager) Drawing() bool { return m.drawing }

// Source returns the port the current drawing started from.
func (m *Manager) Source() (graph.PortKey, bool) { return m.source, m.drawing }

// Provisional returns the link stub following the pointer, or nil. It is not
// in the registry.
func (m *Manager) Provisional() *graph.Link { return m.stub }

func reject(op string, err error, args ...any) error {
	logging.Warn("link "+op+" rejected", append([]any{"reason", err.Error()}, args...)...)
	return err
}

// Init starts drawing from an outbound port.
func (m *Manager) Init(src graph.PortKey) error {
	if m.drawing {
		return reject("init", ErrAlreadyDrawing, "port", src.String())
	}
	p := m.reg.PortByKey(src)
	if p == nil {
		return reject("init", fmt.Errorf("port %s: %w", src, graph.ErrNotFound))
	}
	if p.Direction != graph.FromPort {
		return reject("init", fmt.Errorf("port %s: %w", src, ErrWrongDirection))
	}
	if !p.Enabled {
		return reject("init", fmt.Errorf("port %s: %w", src, ErrPortDisabled))
	}

	p.Selected = true
	p.Fill = graph.PortSelectedFill
	m.drawing = true
	m.source = src
	m.stub = &graph.Link{
		Type:       graph.LinkType(m.Style),
		Routing:    m.Style,
		FromNodeID: src.NodeID,
		FromPortID: src.PortID,
		Path:       geometry.Route(m.Style, p.Position, p.Position),
	}
	if m.modes != nil {
		m.modes.Linking()
	}
	logging.Debug("link drawing started", "port", src.String())
	return nil
}

// MovePointer bends the provisional link towards the pointer.
func (m *Manager) MovePointer(pt geometry.Point) {
	if !m.drawing {
		return
	}
	p := m.reg.PortByKey(m.source)
	if p == nil {
		return
	}
	m.stub.Path = geometry.Route(m.Style, p.Position, pt)
}

// Generate turns the provisional link into a real one ending at dst. On
// error nothing changes and drawing continues.
func (m *Manager) Generate(dst graph.PortKey) (*graph.Link, error) {
	if !m.drawing {
		return nil, reject("generate", ErrNotDrawing)
	}
	if dst == (graph.PortKey{}) || m.reg.PortByKey(dst) == nil {
		return nil, reject("generate", ErrNoTarget, "target", dst.String())
	}
	l, err := Connect(m.reg, m.sync, m.factory, Spec{
		Type:       graph.LinkType(m.Style),
		FromNodeID: m.source.NodeID,
		FromPortID: m.source.PortID,
		ToNodeID:   dst.NodeID,
		ToPortID:   dst.PortID,
	})
	if err != nil {
		return nil, reject("generate", err, "from", m.source.String(), "to", dst.String())
	}
	m.record(l)
	logging.Debug("link created", "link", l.ID, "from", m.source.String(), "to", dst.String())
	return l, nil
}

// Finish ends drawing. Passing nil means no link was produced and the source
// port gets its original fill back. Calling Finish while idle does nothing.
func (m *Manager) Finish(l *graph.Link) {
	if !m.drawing {
		return
	}
	if p := m.reg.PortByKey(m.source); p != nil {
		p.Selected = false
		if l == nil {
			p.Fill = p.OriginFill
			if !p.Enabled {
				p.Fill = PortConnectedFill
			}
		}
	}
	m.drawing = false
	m.source = graph.PortKey{}
	m.stub = nil
	if m.modes != nil {
		m.modes.Selection()
	}
}

// Cancel abandons the current drawing.
func (m *Manager) Cancel() { m.Finish(nil) }

// ConnectTo is Generate followed by Finish. A rejected target still ends
// drawing.
func (m *Manager) ConnectTo(dst graph.PortKey) (*graph.Link, error) {
	l, err := m.Generate(dst)
	m.Finish(l)
	return l, err
}

// Create builds a link from endpoint references without a drawing gesture.
func (m *Manager) Create(s Spec) (*graph.Link, error) {
	if s.Type == "" {
		s.Type = graph.LinkType(m.Style)
	}
	l, err := Connect(m.reg, m.sync, m.factory, s)
	if err != nil {
		return nil, reject("create", err, "from", s.FromNodeID, "to", s.ToNodeID)
	}
	m.record(l)
	return l, nil
}

// Remove detaches the link from the selected ends and takes it out of the
// scene.
func (m *Manager) Remove(id string, edge Edge) error {
	l := m.reg.Link(id)
	if l == nil {
		return reject("remove", fmt.Errorf("link %s: %w", id, graph.ErrNotFound))
	}
	Disconnect(m.reg, m.sync, l, edge)
	logging.Debug("link removed", "link", id, "edge", edge.String())
	return nil
}

// RemoveAttached removes every link touching the node.
func (m *Manager) RemoveAttached(n *graph.Node) []string {
	ids := Attached(n)
	for _, id := range ids {
		if l := m.reg.Link(id); l != nil {
			Disconnect(m.reg, m.sync, l, EdgeBoth)
		}
	}
	return ids
}

func (m *Manager) record(l *graph.Link) {
	if m.rec == nil || m.rec.Active() {
		return
	}
	if err := m.rec.Save(graph.OpAdd, l.FromNodeID, l.ToNodeID); err != nil {
		logging.Error("recording link failed", "link", l.ID, "error", err)
	}
}

// IsPrecondition reports whether err is one of the rejections that leave the
// graph untouched.
func IsPrecondition(err error) bool {
	for _, target := range []error{ErrAlreadyDrawing, ErrNotDrawing, ErrPortDisabled,
		ErrWrongDirection, ErrSelfLoop, ErrDuplicateLink, ErrNoTarget, graph.ErrNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
