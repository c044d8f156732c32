// Package flowfile converts between live flow scenes and their serialized
// form: plain records encoded as JSON, plus DOT, SVG and PNG renderings.
package flowfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// ErrMalformed is returned for input that does not decode into records.
var ErrMalformed = errors.New("malformed flow document")

// Record kinds.
const (
	KindNode    = "node"
	KindLink    = "link"
	KindElement = "element"
)

// Record is the serialized form of one scene object.
type Record struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Type string `json:"type"`

	// nodes
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	Descriptor    *graph.Descriptor `json:"descriptor,omitempty"`
	Configuration map[string]any    `json:"configuration,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
	Group         string            `json:"group,omitempty"`
	ToPort        string            `json:"toPort,omitempty"`
	FromPort      []string          `json:"fromPort,omitempty"`

	// nodes and elements
	Left   float64 `json:"left,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Angle  float64 `json:"angle,omitempty"`

	// links
	FromNodeID    string `json:"fromNodeId,omitempty"`
	FromPortID    string `json:"fromPortId,omitempty"`
	ToNodeID      string `json:"toNodeId,omitempty"`
	ToPortID      string `json:"toPortId,omitempty"`
	FromPortIndex int    `json:"fromPortIndex,omitempty"`

	// elements
	Points     []geometry.Point `json:"points,omitempty"`
	Properties map[string]any   `json:"properties,omitempty"`
}

// NodeRecord serializes a node.
func NodeRecord(n *graph.Node) Record {
	d := n.Descriptor.Clone()
	r := Record{
		ID:            n.ID,
		Kind:          KindNode,
		Type:          n.Type,
		Name:          n.Name,
		Description:   n.Description,
		Descriptor:    &d,
		Configuration: graph.CloneConfiguration(n.Configuration),
		Errors:        append([]string(nil), n.Errors...),
		Group:         n.Group,
		Left:          n.Left,
		Top:           n.Top,
		Width:         n.Width,
		Height:        n.Height,
		Angle:         n.Angle,
	}
	if r.Type == "" {
		r.Type = graph.TypeNode
	}
	if n.ToPort != nil {
		r.ToPort = n.ToPort.ID
	}
	for _, p := range n.FromPorts {
		r.FromPort = append(r.FromPort, p.ID)
	}
	return r
}

// LinkRecord serializes a link by its endpoint references.
func LinkRecord(l *graph.Link) Record {
	typ := l.Type
	if typ == "" {
		typ = graph.LinkType(l.Routing)
	}
	return Record{
		ID:            l.ID,
		Kind:          KindLink,
		Type:          typ,
		FromNodeID:    l.FromNodeID,
		FromPortID:    l.FromPortID,
		ToNodeID:      l.ToNodeID,
		ToPortID:      l.ToPortID,
		FromPortIndex: l.FromPortIndex,
	}
}

// ElementRecord serializes a free element.
func ElementRecord(e *graph.Element) Record {
	return Record{
		ID:         e.ID,
		Kind:       KindElement,
		Type:       e.Type,
		Left:       e.Left,
		Top:        e.Top,
		Width:      e.Width,
		Height:     e.Height,
		Angle:      e.Angle,
		Points:     append([]geometry.Point(nil), e.Points...),
		Properties: graph.CloneConfiguration(e.Properties),
	}
}

// Options converts a node or element record into factory options.
func (r Record) Options() graph.Options {
	opts := graph.Options{
		ID:            r.ID,
		Type:          r.Type,
		Name:          r.Name,
		Description:   r.Description,
		Left:          r.Left,
		Top:           r.Top,
		Width:         r.Width,
		Height:        r.Height,
		Angle:         r.Angle,
		Configuration: r.Configuration,
		Errors:        r.Errors,
		Group:         r.Group,
		Points:        r.Points,
		Properties:    r.Properties,
	}
	if r.Descriptor != nil {
		d := r.Descriptor.Clone()
		opts.Descriptor = &d
	}
	return opts
}

// Translate moves a node or element record by d. Links carry no
// coordinates.
func (r *Record) Translate(d geometry.Point) {
	if r.Kind == KindLink {
		return
	}
	r.Left += d.X
	r.Top += d.Y
	for i := range r.Points {
		r.Points[i] = r.Points[i].Add(d)
	}
}

// Serialize captures the scene: nodes and elements in scene order, then
// links, so that every link follows the nodes it references. Ports and
// scaffolding objects without an id are left out.
func Serialize(reg *graph.Registry) []Record {
	var objects, links []Record
	for _, o := range reg.Objects() {
		if o.ObjectID() == "" {
			continue
		}
		switch v := o.(type) {
		case *graph.Node:
			objects = append(objects, NodeRecord(v))
		case *graph.Element:
			if v.Type == graph.TypeWorkarea {
				continue
			}
			objects = append(objects, ElementRecord(v))
		case *graph.Link:
			links = append(links, LinkRecord(v))
		}
	}
	return append(objects, links...)
}

// MarshalRecords encodes records as a compact JSON array. Output is
// deterministic for equal input.
func MarshalRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseRecords decodes a JSON array of records.
func ParseRecords(data []byte) ([]Record, error) {
	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, r := range records {
		if err := r.check(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
	}
	return records, nil
}

func (r Record) check() error {
	switch r.Kind {
	case KindNode, KindElement:
	case KindLink:
		if r.FromNodeID == "" || r.FromPortID == "" || r.ToNodeID == "" || r.ToPortID == "" {
			return fmt.Errorf("link %q has incomplete endpoints", r.ID)
		}
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	if r.ID == "" {
		return fmt.Errorf("%s record without id", r.Kind)
	}
	if r.Type == "" {
		return fmt.Errorf("%s %q has no type", r.Kind, r.ID)
	}
	return nil
}
