package graph

import (
	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Synchronizer keeps port positions consistent with their node and link
// paths consistent with their ports. It never changes port or link counts.
type Synchronizer struct {
	reg *Registry

	// Grid is the snapping step; 0 disables snapping.
	Grid float64

	// RequestRender is called after geometry changed.
	RequestRender func()
}

// NewSynchronizer creates a synchronizer over reg.
func NewSynchronizer(reg *Registry) *Synchronizer {
	return &Synchronizer{reg: reg}
}

// Registry returns the registry the synchronizer resolves ids in.
func (s *Synchronizer) Registry() *Registry { return s.reg }

// WithRegistry returns a copy bound to another registry, used to rebuild a
// scene off to the side.
func (s *Synchronizer) WithRegistry(reg *Registry) *Synchronizer {
	c := *s
	c.reg = reg
	c.RequestRender = nil
	return &c
}

func (s *Synchronizer) render() {
	if s.RequestRender != nil {
		s.RequestRender()
	}
}

// PlacePorts recomputes port positions of n without touching links.
func PlacePorts(n *Node) {
	r := n.Rect()
	c := r.Center()
	if n.ToPort != nil {
		p := r.TopCenter().Add(geometry.Point{X: n.ToPort.LeftDiff, Y: n.ToPort.TopDiff})
		n.ToPort.Position = geometry.Rotate(p, c, n.Angle)
	}
	base := r.BottomCenter()
	for _, fp := range n.FromPorts {
		p := base.Add(geometry.Point{X: fp.LeftDiff, Y: fp.TopDiff})
		fp.Position = geometry.Rotate(p, c, n.Angle)
	}
}

// SyncNode places the node's ports and re-routes every link touching them.
func (s *Synchronizer) SyncNode(n *Node) {
	PlacePorts(n)
	for _, p := range n.Ports() {
		for _, id := range p.Links {
			if l := s.reg.Link(id); l != nil {
				s.RouteLink(l)
			}
		}
	}
	s.render()
}

// RouteLink recomputes a link path from its endpoint ports.
func (s *Synchronizer) RouteLink(l *Link) {
	from := s.reg.PortByKey(l.FromKey())
	to := s.reg.PortByKey(l.ToKey())
	if from == nil || to == nil {
		logging.Warn("cannot route link, endpoint port missing",
			"link", l.ID, "from", l.FromKey().String(), "to", l.ToKey().String())
		return
	}
	l.Path = geometry.Route(l.Routing, from.Position, to.Position)
}

// SyncAll places every port and routes every link.
func (s *Synchronizer) SyncAll() {
	for _, n := range s.reg.Nodes() {
		PlacePorts(n)
	}
	for _, l := range s.reg.Links() {
		s.RouteLink(l)
	}
	s.render()
}

// MoveNode moves n to (left, top), snapping to the grid first.
func (s *Synchronizer) MoveNode(n *Node, left, top float64) {
	n.Left = geometry.Snap(left, s.Grid)
	n.Top = geometry.Snap(top, s.Grid)
	s.SyncNode(n)
}

// ResizeNode changes the size of n. Sizes are not snapped.
func (s *Synchronizer) ResizeNode(n *Node, width, height float64) {
	n.Width = max(width, 1)
	n.Height = max(height, 1)
	s.SyncNode(n)
}

// RotateNode sets the rotation of n in degrees.
func (s *Synchronizer) RotateNode(n *Node, angle float64) {
	n.Angle = angle
	s.SyncNode(n)
}

// MoveGroup moves members as one rigid selection translated by delta.
// Each member's absolute position is derived from the group's new center
// plus the member's offset from the old center, then snapped and synced.
func (s *Synchronizer) MoveGroup(members []*Node, delta geometry.Point) {
	if len(members) == 0 {
		return
	}
	bounds := members[0].Rect()
	for _, m := range members[1:] {
		bounds = bounds.Union(m.Rect())
	}
	oldCenter := bounds.Center()
	newCenter := oldCenter.Add(delta)

	for _, m := range members {
		offset := geometry.Point{X: m.Left, Y: m.Top}.Sub(oldCenter)
		pos := newCenter.Add(offset)
		m.Left = geometry.Snap(pos.X, s.Grid)
		m.Top = geometry.Snap(pos.Y, s.Grid)
		PlacePorts(m)
	}
	for _, m := range members {
		for _, p := range m.Ports() {
			for _, id := range p.Links {
				if l := s.reg.Link(id); l != nil {
					s.RouteLink(l)
				}
			}
		}
	}
	s.render()
}
