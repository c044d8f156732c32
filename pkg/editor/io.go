package editor

import (
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Document captures the workarea and scene.
func (s *Session) Document() flowfile.Document {
	return flowfile.Export(s.workarea, s.reg)
}

// ExportJSON serializes the workarea and scene.
func (s *Session) ExportJSON(pretty bool) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return flowfile.ToJSON(s.Document(), pretty)
}

// ImportJSON replaces the scene with a serialized document. The document is
// placed against the current workarea (one is synthesized when missing).
// The import is one undoable transaction; on error nothing changes.
func (s *Session) ImportJSON(data []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	doc, err := flowfile.ParseJSON(data)
	if err != nil {
		logging.ErrorContext(s.ctx, "import failed", "error", err)
		return err
	}
	return s.Load(doc)
}

// Load replaces the scene with a parsed document.
func (s *Session) Load(doc flowfile.Document) error {
	if err := s.check(); err != nil {
		return err
	}
	placed := flowfile.Place(doc, s.workarea)

	staged := graph.NewRegistry()
	b := flowfile.Builder{Factory: s.factory, PortSpacing: s.cfg.Port.Spacing}
	if err := b.Build(s.ctx, staged, s.sync.WithRegistry(staged), placed.Records); err != nil {
		logging.ErrorContext(s.ctx, "import failed", "error", err)
		return fmt.Errorf("import: %w", err)
	}

	s.machine.Cancel()
	for _, obj := range s.reg.Objects() {
		s.removed(obj)
	}
	err := s.history.Batch(graph.OpImport, func() error {
		s.reg.Replace(staged)
		s.sync.SyncAll()
		return nil
	})
	s.workarea = placed.Workarea
	s.selection = nil
	s.machine.Apply()
	for _, obj := range s.reg.Objects() {
		s.added(obj)
	}
	logging.InfoContext(s.ctx, "document loaded",
		"objects", s.reg.Len(), "workarea_synthesized", placed.Synthesized)
	return err
}
