package editor

import (
	"fmt"
	"slices"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/interaction"
	"github.com/ha1tch/flow-toolkit/pkg/link"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Add constructs an object through the factory and inserts it. Nodes get
// their ports from the descriptor. Links are created with Connect instead.
func (s *Session) Add(opts graph.Options) (graph.Object, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if opts.Type == "" {
		opts.Type = graph.TypeNode
	}
	kind, ok := s.factory.Kind(opts.Type)
	if !ok {
		return nil, fmt.Errorf("type %q: %w", opts.Type, graph.ErrUnknownType)
	}
	switch kind {
	case graph.KindNode:
		return s.AddNode(opts)
	case graph.KindElement:
		return s.AddElement(opts)
	}
	return nil, fmt.Errorf("type %q builds a %s; use Connect", opts.Type, kind)
}

// AddNode creates a node, its ports, and records the addition.
func (s *Session) AddNode(opts graph.Options) (*graph.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if opts.Type == "" {
		opts.Type = graph.TypeNode
	}
	obj, err := s.factory.New(opts)
	if err != nil {
		return nil, err
	}
	n, ok := obj.(*graph.Node)
	if !ok {
		return nil, fmt.Errorf("type %q builds a %s, not a node", opts.Type, obj.Kind())
	}
	if err := n.CreatePorts(s.cfg.Port.Spacing); err != nil {
		return nil, err
	}
	if err := s.reg.Add(n); err != nil {
		return nil, err
	}
	s.sync.MoveNode(n, n.Left, n.Top)
	s.machine.Apply()
	s.added(n)
	s.save(graph.OpAdd, n.ID)
	logging.DebugContext(s.ctx, "node added", "id", n.ID, "type", n.Type)
	return n, nil
}

// AddElement creates a free element and records the addition.
func (s *Session) AddElement(opts graph.Options) (*graph.Element, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	obj, err := s.factory.New(opts)
	if err != nil {
		return nil, err
	}
	e, ok := obj.(*graph.Element)
	if !ok {
		return nil, fmt.Errorf("type %q builds a %s, not an element", opts.Type, obj.Kind())
	}
	if len(e.Points) > 0 && e.Width == 0 && e.Height == 0 {
		b := geometry.Bounds(e.Points)
		e.Left, e.Top, e.Width, e.Height = b.Left, b.Top, b.Width, b.Height
	}
	if err := s.reg.Add(e); err != nil {
		return nil, err
	}
	s.machine.Apply()
	s.added(e)
	s.save(graph.OpAdd, e.ID)
	return e, nil
}

// AddShape inserts a finished free drawing as an element.
func (s *Session) AddShape(shape *interaction.Shape) (*graph.Element, error) {
	typ := map[interaction.Mode]string{
		interaction.ModePolygon: graph.TypePolygon,
		interaction.ModeLine:    graph.TypeLine,
		interaction.ModeArrow:   graph.TypeArrow,
	}[shape.Tool]
	if typ == "" {
		return nil, fmt.Errorf("%s does not draw shapes", shape.Tool)
	}
	return s.AddElement(graph.Options{Type: typ, Points: shape.Points})
}

// Remove deletes objects by id as one transaction. Removing a node removes
// every link attached to it. Unknown ids are skipped with a warning.
func (s *Session) Remove(ids ...string) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	s.machine.Cancel()
	err := s.history.Batch(graph.OpRemove, func() error {
		for _, id := range ids {
			s.removeOne(id)
		}
		return nil
	})
	s.pruneSelection()
	return err
}

func (s *Session) removeOne(id string) {
	obj, ok := s.reg.FindByID(id)
	if !ok {
		return
	}
	switch v := obj.(type) {
	case *graph.Node:
		for _, lid := range link.Attached(v) {
			if l := s.reg.Link(lid); l != nil {
				link.Disconnect(s.reg, s.sync, l, link.EdgeBoth)
				s.removed(l)
			}
		}
		s.reg.Remove(id)
	case *graph.Link:
		if err := s.links.Remove(id, link.EdgeBoth); err != nil {
			return
		}
	default:
		s.reg.Remove(id)
	}
	s.removed(obj)
	logging.DebugContext(s.ctx, "object removed", "id", id, "kind", obj.Kind().String())
}

// Clear removes every object; the workarea stays.
func (s *Session) Clear() error {
	if err := s.check(); err != nil {
		return err
	}
	s.machine.Cancel()
	err := s.history.Batch(graph.OpClear, func() error {
		for _, obj := range s.reg.Objects() {
			s.reg.Remove(obj.ObjectID())
			s.removed(obj)
		}
		return nil
	})
	s.selection = nil
	s.clipboard = nil
	return err
}

// Move places an object's top-left corner at (left, top). A grouped node
// drags its whole group along.
func (s *Session) Move(id string, left, top float64) error {
	if err := s.check(); err != nil {
		return err
	}
	obj, ok := s.reg.FindByID(id)
	if !ok {
		return fmt.Errorf("object %s: %w", id, graph.ErrNotFound)
	}
	switch v := obj.(type) {
	case *graph.Node:
		if v.Group != "" {
			members := s.GroupMembers(v.Group)
			s.sync.MoveGroup(members, geometry.Point{X: left - v.Left, Y: top - v.Top})
			s.commitMove(nodeIDs(members)...)
			return nil
		}
		s.sync.MoveNode(v, left, top)
	case *graph.Element:
		v.Translate(geometry.Point{X: left - v.Left, Y: top - v.Top})
	default:
		return fmt.Errorf("%s %s cannot be moved", obj.Kind(), id)
	}
	s.commitMove(id)
	return nil
}

func (s *Session) commitMove(ids ...string) {
	s.modified(graph.OpMoved, ids...)
	s.save(graph.OpMoved, ids...)
}

// MoveSelection translates every selected node and element by delta as one
// rigid group.
func (s *Session) MoveSelection(delta geometry.Point) error {
	if err := s.check(); err != nil {
		return err
	}
	nodes, elements := s.selectedObjects()
	if len(nodes) == 0 && len(elements) == 0 {
		return nil
	}
	s.translate(nodes, elements, delta)
	ids := append(nodeIDs(nodes), elementIDs(elements)...)
	s.commitMove(ids...)
	return nil
}

// translate moves nodes (expanded to their groups) and elements without
// recording anything.
func (s *Session) translate(nodes []*graph.Node, elements []*graph.Element, delta geometry.Point) {
	if len(nodes) > 0 {
		s.sync.MoveGroup(s.expandGroups(nodes), delta)
	}
	for _, e := range elements {
		e.Translate(delta)
	}
}

// Resize changes a node's size.
func (s *Session) Resize(id string, width, height float64) error {
	if err := s.check(); err != nil {
		return err
	}
	n, err := s.node(id)
	if err != nil {
		return err
	}
	s.sync.ResizeNode(n, width, height)
	s.modified(graph.OpScaled, id)
	s.save(graph.OpScaled, id)
	return nil
}

// Rotate sets a node's rotation in degrees.
func (s *Session) Rotate(id string, angle float64) error {
	if err := s.check(); err != nil {
		return err
	}
	n, err := s.node(id)
	if err != nil {
		return err
	}
	s.sync.RotateNode(n, angle)
	s.modified(graph.OpRotated, id)
	s.save(graph.OpRotated, id)
	return nil
}

// SetConfiguration replaces a node's configuration. It is a live edit: the
// undo history is untouched and the value survives undo and redo. A
// broadcast node keeps its output count.
func (s *Session) SetConfiguration(id string, cfg map[string]any) error {
	return s.configure(id, func(n *graph.Node) {
		count := n.OutputCount()
		n.Configuration = graph.CloneConfiguration(cfg)
		if n.IsBroadcast() {
			n.SetOutputCount(count)
		}
	})
}

// Rename sets a node's display name.
func (s *Session) Rename(id, name string) error {
	return s.configure(id, func(n *graph.Node) { n.Name = name })
}

// SetDescription sets a node's description.
func (s *Session) SetDescription(id, description string) error {
	return s.configure(id, func(n *graph.Node) { n.Description = description })
}

// SetErrors replaces a node's error list.
func (s *Session) SetErrors(id string, errs []string) error {
	return s.configure(id, func(n *graph.Node) { n.Errors = append([]string(nil), errs...) })
}

func (s *Session) configure(id string, fn func(*graph.Node)) error {
	if err := s.check(); err != nil {
		return err
	}
	n, err := s.node(id)
	if err != nil {
		return err
	}
	fn(n)
	s.modified(graph.OpConfiguration, id)
	s.save(graph.OpConfiguration, id)
	return nil
}

// SetOutPorts replaces the outbound ports of a DYNAMIC node. Links on ports
// that survive are kept and re-routed; links on dropped ports are removed.
func (s *Session) SetOutPorts(id string, portIDs []string) error {
	if err := s.check(); err != nil {
		return err
	}
	n, err := s.node(id)
	if err != nil {
		return err
	}
	if n.Descriptor.OutPortType != graph.OutDynamic {
		return fmt.Errorf("node %s is %s, not DYNAMIC: %w", id, n.Descriptor.OutPortType, graph.ErrPolicy)
	}
	probe := &graph.Node{ID: n.ID, Descriptor: n.Descriptor.Clone()}
	probe.Descriptor.OutPorts = portIDs
	if err := probe.CreatePorts(s.cfg.Port.Spacing); err != nil {
		return err
	}

	s.machine.Cancel()
	return s.history.Batch(graph.OpPorts, func() error {
		var keep []link.Spec
		for _, p := range n.FromPorts {
			for _, lid := range slices.Clone(p.Links) {
				l := s.reg.Link(lid)
				if l == nil {
					continue
				}
				if slices.Contains(portIDs, p.ID) {
					keep = append(keep, link.Spec{
						ID: l.ID, Type: l.Type,
						FromNodeID: l.FromNodeID, FromPortID: l.FromPortID,
						ToNodeID: l.ToNodeID, ToPortID: l.ToPortID,
					})
				} else {
					s.removed(l)
				}
				link.Disconnect(s.reg, s.sync, l, link.EdgeBoth)
			}
		}

		to := n.ToPort
		n.Descriptor.OutPorts = slices.Clone(portIDs)
		if err := n.CreatePorts(s.cfg.Port.Spacing); err != nil {
			return err
		}
		n.ToPort = to
		s.reg.ReindexPorts(n)
		graph.PlacePorts(n)

		for _, spec := range keep {
			if _, err := link.Connect(s.reg, s.sync, s.factory, spec); err != nil {
				logging.WarnContext(s.ctx, "link dropped while replacing ports", "link", spec.ID, "error", err)
			}
		}
		s.sync.SyncNode(n)
		s.machine.Apply()
		s.modified(graph.OpPorts, id)
		return nil
	})
}

func nodeIDs(nodes []*graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func elementIDs(elements []*graph.Element) []string {
	ids := make([]string, len(elements))
	for i, e := range elements {
		ids[i] = e.ID
	}
	return ids
}
