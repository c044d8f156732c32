package editor

import (
	"fmt"
	"math"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/layout"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// BringForward moves an object one step up the scene order.
func (s *Session) BringForward(id string) error {
	return s.reorder(id, func(i, _ int) int { return i + 1 })
}

// SendBackwards moves an object one step down the scene order.
func (s *Session) SendBackwards(id string) error {
	return s.reorder(id, func(i, _ int) int { return i - 1 })
}

// BringToFront draws an object above everything else.
func (s *Session) BringToFront(id string) error {
	return s.reorder(id, func(_, n int) int { return n - 1 })
}

// SendToBack draws an object below everything else.
func (s *Session) SendToBack(id string) error {
	return s.reorder(id, func(int, int) int { return 0 })
}

func (s *Session) reorder(id string, target func(idx, n int) int) error {
	if err := s.check(); err != nil {
		return err
	}
	from := s.reg.IndexOf(id)
	if from < 0 {
		logging.WarnContext(s.ctx, "object not found", "id", id)
		return fmt.Errorf("object %s: %w", id, graph.ErrNotFound)
	}
	to := min(max(target(from, s.reg.Len()), 0), s.reg.Len()-1)
	if to == from {
		return nil
	}
	// links always serialize after nodes and elements, so moving one across
	// them leaves the snapshot unchanged and records nothing
	err := s.history.Batch(graph.OpReorder, func() error {
		s.reg.MoveTo(id, to)
		return nil
	})
	if err != nil {
		logging.ErrorContext(s.ctx, "recording change failed", "op", graph.OpReorder, "error", err)
	}
	s.modified(graph.OpReorder, id)
	return nil
}

// Group tags the given nodes with a fresh group id so that they move
// together. At least two nodes are needed.
func (s *Session) Group(ids ...string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	var nodes []*graph.Node
	for _, id := range ids {
		if n := s.reg.Node(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) < 2 {
		return "", fmt.Errorf("grouping needs at least two nodes, got %d", len(nodes))
	}
	gid := graph.NewID()
	for _, n := range nodes {
		n.Group = gid
	}
	s.modified(graph.OpGroup, nodeIDs(nodes)...)
	s.save(graph.OpGroup, nodeIDs(nodes)...)
	return gid, nil
}

// Ungroup clears a group id from all its members.
func (s *Session) Ungroup(groupID string) error {
	if err := s.check(); err != nil {
		return err
	}
	members := s.GroupMembers(groupID)
	if groupID == "" || len(members) == 0 {
		return fmt.Errorf("group %q: %w", groupID, graph.ErrNotFound)
	}
	for _, n := range members {
		n.Group = ""
	}
	s.modified(graph.OpUngroup, nodeIDs(members)...)
	s.save(graph.OpUngroup, nodeIDs(members)...)
	return nil
}

// GroupMembers returns the nodes tagged with a group id, in scene order.
func (s *Session) GroupMembers(groupID string) []*graph.Node {
	if groupID == "" {
		return nil
	}
	var out []*graph.Node
	for _, n := range s.reg.Nodes() {
		if n.Group == groupID {
			out = append(out, n)
		}
	}
	return out
}

// expandGroups adds the other members of every group touched by nodes.
func (s *Session) expandGroups(nodes []*graph.Node) []*graph.Node {
	seen := make(map[string]bool)
	var out []*graph.Node
	add := func(n *graph.Node) {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n)
		}
	}
	for _, n := range nodes {
		add(n)
		for _, m := range s.GroupMembers(n.Group) {
			add(m)
		}
	}
	return out
}

// Arrange places every node with the given algorithm, starting inside the
// workarea, and records a single layout step. Group membership is kept but
// groups are not arranged as rigid units.
func (s *Session) Arrange(algo layout.Algorithm) error {
	if err := s.check(); err != nil {
		return err
	}
	opts := layout.DefaultOptions()
	opts.Origin = opts.Origin.Add(geometry.Point{X: s.workarea.Left, Y: s.workarea.Top})
	positions := layout.Arrange(s.reg, algo, opts)
	if len(positions) == 0 {
		return nil
	}

	s.machine.Cancel()
	var moved []string
	err := s.history.Batch(graph.OpLayout, func() error {
		for _, n := range s.reg.Nodes() {
			if p, ok := positions[n.ID]; ok {
				s.sync.MoveNode(n, p.X, p.Y)
				moved = append(moved, n.ID)
			}
		}
		return nil
	})
	s.modified(graph.OpLayout, moved...)
	logging.DebugContext(s.ctx, "arranged", "layout", algo, "nodes", len(moved))
	return err
}

// Zoom returns the current zoom ratio.
func (s *Session) Zoom() float64 { return s.zoom }

// SetZoom sets the zoom ratio, clamped to the configured bounds, and returns
// the applied value.
func (s *Session) SetZoom(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio <= 0 {
		ratio = 1
	}
	ratio = min(max(ratio, s.cfg.Zoom.Min), s.cfg.Zoom.Max)
	if ratio == s.zoom {
		return ratio
	}
	s.zoom = ratio
	if s.handlers.OnZoom != nil {
		s.handlers.OnZoom(ratio)
	}
	return ratio
}

// ZoomToFit zooms so the whole scene fills a viewport of the given size and
// scrolls its top-left corner into view. An empty scene resets to 1:1.
func (s *Session) ZoomToFit(viewW, viewH float64) float64 {
	b, ok := s.reg.Bounds()
	if !ok || viewW <= 0 || viewH <= 0 {
		s.machine.SetOffset(geometry.Point{X: s.workarea.Left, Y: s.workarea.Top})
		return s.SetZoom(1)
	}
	const margin = 20.0
	ratio := math.Min(viewW/(b.Width+2*margin), viewH/(b.Height+2*margin))
	ratio = s.SetZoom(ratio)
	s.machine.SetOffset(geometry.Point{X: b.Left - margin, Y: b.Top - margin})
	return ratio
}

// Viewport returns the visible canvas rectangle for a view of the given
// size at the current zoom and pan offset.
func (s *Session) Viewport(viewW, viewH float64) geometry.Rect {
	o := s.machine.Offset()
	return geometry.Rect{Left: o.X, Top: o.Y, Width: viewW / s.zoom, Height: viewH / s.zoom}
}
