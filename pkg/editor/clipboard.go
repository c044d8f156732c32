package editor

import (
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// pasteStep offsets each successive paste so copies do not stack exactly.
const pasteStep = 20.0

// Copy puts the given objects (the selection when none are given) on the
// session clipboard. Links are copied when both of their nodes are. It
// returns the number of records copied.
func (s *Session) Copy(ids ...string) int {
	if len(ids) == 0 {
		ids = s.selection
	}
	copied := make(map[string]bool)
	var records []flowfile.Record
	for _, id := range ids {
		if copied[id] {
			continue
		}
		switch {
		case s.reg.Node(id) != nil:
			records = append(records, flowfile.NodeRecord(s.reg.Node(id)))
		case s.reg.Element(id) != nil:
			records = append(records, flowfile.ElementRecord(s.reg.Element(id)))
		default:
			continue
		}
		copied[id] = true
	}
	for _, l := range s.reg.Links() {
		if copied[l.FromNodeID] && copied[l.ToNodeID] {
			records = append(records, flowfile.LinkRecord(l))
		}
	}
	if len(records) == 0 {
		return 0
	}
	s.clipboard = records
	s.pastes = 0
	logging.DebugContext(s.ctx, "copied", "records", len(records))
	return len(records)
}

// Clipboard returns the number of records on the clipboard.
func (s *Session) Clipboard() int { return len(s.clipboard) }

// Paste inserts a copy of the clipboard with fresh ids, offset from the
// originals, as one transaction, and selects the copies.
func (s *Session) Paste() ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(s.clipboard) == 0 {
		return nil, nil
	}
	s.pastes++
	records := s.cloneClipboard(geometry.Point{X: pasteStep * float64(s.pastes), Y: pasteStep * float64(s.pastes)})

	// Build off to the side first so a bad clipboard cannot half-paste.
	staged := graph.NewRegistry()
	b := flowfile.Builder{Factory: s.factory, PortSpacing: s.cfg.Port.Spacing}
	if err := b.Build(s.ctx, staged, s.sync.WithRegistry(staged), records); err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}

	s.machine.Cancel()
	err := s.history.Batch(graph.OpPaste, func() error {
		return b.Build(s.ctx, s.reg, s.sync, records)
	})
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}

	var ids []string
	for _, r := range records {
		obj, ok := s.reg.FindByID(r.ID)
		if !ok {
			continue
		}
		s.added(obj)
		if r.Kind != flowfile.KindLink {
			ids = append(ids, r.ID)
		}
	}
	s.machine.Apply()
	s.Select(ids...)
	return ids, nil
}

// cloneClipboard renames every record and its references and moves it by
// offset. Group ids are renamed too, so a pasted group is a new group.
func (s *Session) cloneClipboard(offset geometry.Point) []flowfile.Record {
	ids := make(map[string]string)
	groups := make(map[string]string)
	rename := func(m map[string]string, old string) string {
		if old == "" {
			return ""
		}
		if id, ok := m[old]; ok {
			return id
		}
		m[old] = graph.NewID()
		return m[old]
	}

	out := make([]flowfile.Record, 0, len(s.clipboard))
	for _, r := range s.clipboard {
		c := r
		c.ID = rename(ids, r.ID)
		c.Points = append([]geometry.Point(nil), r.Points...)
		c.Configuration = graph.CloneConfiguration(r.Configuration)
		c.Properties = graph.CloneConfiguration(r.Properties)
		if r.Descriptor != nil {
			d := r.Descriptor.Clone()
			c.Descriptor = &d
		}
		switch r.Kind {
		case flowfile.KindLink:
			c.FromNodeID = rename(ids, r.FromNodeID)
			c.ToNodeID = rename(ids, r.ToNodeID)
		default:
			c.Group = rename(groups, r.Group)
			c.Translate(offset)
		}
		out = append(out, c)
	}
	return out
}
