package flowfile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// FormatVersion is written into every document.
const FormatVersion = 1

// Document is an exported flow: the workarea record first, then the scene.
type Document struct {
	Version int      `json:"version"`
	Objects []Record `json:"objects"`
}

// DefaultWorkarea returns a workarea element of the given size at the origin.
func DefaultWorkarea(width, height float64) *graph.Element {
	return &graph.Element{
		ID:     "workarea",
		Type:   graph.TypeWorkarea,
		Width:  width,
		Height: height,
	}
}

// Export builds a document from the workarea and the scene.
func Export(workarea *graph.Element, reg *graph.Registry) Document {
	doc := Document{Version: FormatVersion}
	if workarea != nil {
		doc.Objects = append(doc.Objects, ElementRecord(workarea))
	}
	doc.Objects = append(doc.Objects, Serialize(reg)...)
	return doc
}

// Workarea returns the document's workarea record, if any.
func (d Document) Workarea() (Record, bool) {
	for _, r := range d.Objects {
		if r.Kind == KindElement && r.Type == graph.TypeWorkarea {
			return r, true
		}
	}
	return Record{}, false
}

// Scene returns every record except the workarea.
func (d Document) Scene() []Record {
	out := make([]Record, 0, len(d.Objects))
	for _, r := range d.Objects {
		if r.Kind == KindElement && r.Type == graph.TypeWorkarea {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Placement is the result of positioning an imported document.
type Placement struct {
	Workarea *graph.Element
	Records  []Record

	// Synthesized is set when the document had no workarea.
	Synthesized bool
}

// Place positions an imported document against the current workarea. A
// missing workarea record is synthesized at the current origin. Every other
// record is translated by the difference between the current workarea
// origin and the document's, so the scene keeps its place on the
// workarea. The document is not modified.
func Place(doc Document, current *graph.Element) Placement {
	origin := geometry.Point{}
	width, height := 600.0, 400.0
	if current != nil {
		origin = geometry.Point{X: current.Left, Y: current.Top}
		width, height = current.Width, current.Height
	}

	rec, found := doc.Workarea()
	var wa *graph.Element
	if found {
		wa = &graph.Element{
			ID:         rec.ID,
			Type:       graph.TypeWorkarea,
			Left:       origin.X,
			Top:        origin.Y,
			Width:      rec.Width,
			Height:     rec.Height,
			Properties: graph.CloneConfiguration(rec.Properties),
		}
		if wa.Width <= 0 || wa.Height <= 0 {
			wa.Width, wa.Height = width, height
		}
	} else {
		wa = DefaultWorkarea(width, height)
		wa.Left, wa.Top = origin.X, origin.Y
	}

	delta := origin.Sub(geometry.Point{X: rec.Left, Y: rec.Top})
	scene := doc.Scene()
	out := make([]Record, len(scene))
	for i, r := range scene {
		r.Points = append([]geometry.Point(nil), r.Points...)
		r.Translate(delta)
		out[i] = r
	}
	return Placement{Workarea: wa, Records: out, Synthesized: !found}
}

// ToJSON encodes a document.
func ToJSON(doc Document, pretty bool) ([]byte, error) {
	if doc.Objects == nil {
		doc.Objects = []Record{}
	}
	if pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// ParseJSON decodes a document. A bare array of records is accepted as a
// document without a version.
func ParseJSON(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if trimmed[0] == '[' {
		records, err := ParseRecords(trimmed)
		if err != nil {
			return Document{}, err
		}
		return Document{Objects: records}, nil
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Version > FormatVersion {
		return Document{}, fmt.Errorf("%w: version %d is newer than %d", ErrMalformed, doc.Version, FormatVersion)
	}
	for i, r := range doc.Objects {
		if err := r.check(); err != nil {
			return Document{}, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
	}
	return doc, nil
}
