package editor

import (
	"slices"

	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// Selection returns the selected ids in selection order.
func (s *Session) Selection() []string { return slices.Clone(s.selection) }

// Select replaces the selection. Unknown and unselectable ids are ignored.
func (s *Session) Select(ids ...string) {
	s.selection = s.selectable(ids)
	s.selected()
}

// Toggle adds id to the selection, or removes it if already selected.
func (s *Session) Toggle(id string) {
	if i := slices.Index(s.selection, id); i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
	} else if sel := s.selectable([]string{id}); len(sel) > 0 {
		s.selection = append(s.selection, sel...)
	}
	s.selected()
}

// SelectAll selects every node and element.
func (s *Session) SelectAll() {
	var ids []string
	for _, o := range s.reg.Objects() {
		if o.Kind() == graph.KindNode || o.Kind() == graph.KindElement {
			ids = append(ids, o.ObjectID())
		}
	}
	s.Select(ids...)
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = nil
	s.selected()
}

// SelectNext moves a single selection to the next node in scene order.
func (s *Session) SelectNext() {
	nodes := s.reg.Nodes()
	if len(nodes) == 0 {
		return
	}
	next := 0
	if len(s.selection) > 0 {
		for i, n := range nodes {
			if n.ID == s.selection[len(s.selection)-1] {
				next = (i + 1) % len(nodes)
				break
			}
		}
	}
	s.Select(nodes[next].ID)
}

func (s *Session) selectable(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) || !s.reg.Has(id) {
			continue
		}
		obj, _ := s.reg.FindByID(id)
		if obj.Kind() == graph.KindPort {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *Session) selected() {
	if s.handlers.OnSelect != nil {
		s.handlers.OnSelect(s.Selection())
	}
}

// pruneSelection drops ids that no longer exist, after removal or replay.
func (s *Session) pruneSelection() {
	kept := slices.DeleteFunc(slices.Clone(s.selection), func(id string) bool { return !s.reg.Has(id) })
	if len(kept) == len(s.selection) {
		return
	}
	s.selection = kept
	s.selected()
}

func (s *Session) selectedObjects() ([]*graph.Node, []*graph.Element) {
	var nodes []*graph.Node
	var elements []*graph.Element
	for _, id := range s.selection {
		if n := s.reg.Node(id); n != nil {
			nodes = append(nodes, n)
		} else if e := s.reg.Element(id); e != nil {
			elements = append(elements, e)
		}
	}
	return nodes, elements
}
