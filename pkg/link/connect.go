// Package link implements the connect and disconnect protocol between node
// ports: drag-to-connect drawing, link validation, fan-out accounting and
// symmetric removal.
package link

import (
	"errors"
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

var (
	ErrAlreadyDrawing = errors.New("already drawing a link")
	ErrNotDrawing     = errors.New("not drawing a link")
	ErrPortDisabled   = errors.New("port already connected")
	ErrWrongDirection = errors.New("wrong port direction")
	ErrSelfLoop       = errors.New("self loop")
	ErrDuplicateLink  = errors.New("duplicate link")
	ErrNoTarget       = errors.New("no target port")
)

// PortConnectedFill marks a source port that has been used up.
const PortConnectedFill = "#4caf50"

// Spec describes a link by endpoint references.
type Spec struct {
	ID         string
	Type       string
	FromNodeID string
	FromPortID string
	ToNodeID   string
	ToPortID   string
}

// Edge selects which ends Remove detaches.
type Edge int

const (
	EdgeBoth Edge = iota
	EdgeFrom
	EdgeTo
)

func (e Edge) String() string {
	switch e {
	case EdgeFrom:
		return "from"
	case EdgeTo:
		return "to"
	}
	return "both"
}

// check validates a prospective link without changing anything.
func check(reg *graph.Registry, from, to *graph.Port) error {
	if from == nil {
		return fmt.Errorf("source port: %w", graph.ErrNotFound)
	}
	if to == nil {
		return ErrNoTarget
	}
	if from.Direction != graph.FromPort {
		return fmt.Errorf("source %s is an inbound port: %w", from.Key(), ErrWrongDirection)
	}
	if to.Direction != graph.ToPort {
		return fmt.Errorf("target %s is an outbound port: %w", to.Key(), ErrWrongDirection)
	}
	if from.NodeID == to.NodeID {
		return fmt.Errorf("node %s: %w", from.NodeID, ErrSelfLoop)
	}
	for _, id := range to.Links {
		if l := reg.Link(id); l != nil && l.FromNodeID == from.NodeID {
			return fmt.Errorf("%s already links %s -> %s: %w", id, from.NodeID, to.NodeID, ErrDuplicateLink)
		}
	}
	if !from.Enabled {
		return fmt.Errorf("source %s: %w", from.Key(), ErrPortDisabled)
	}
	if !to.Enabled {
		return fmt.Errorf("target %s: %w", to.Key(), ErrPortDisabled)
	}
	return nil
}

// Connect creates a link in reg between the ports named by s, applies the
// fan-in and fan-out policies of both nodes and routes it. On error reg is
// unchanged.
func Connect(reg *graph.Registry, sync *graph.Synchronizer, factory *graph.Factory, s Spec) (*graph.Link, error) {
	from := reg.Port(s.FromNodeID, s.FromPortID)
	to := reg.Port(s.ToNodeID, s.ToPortID)
	if err := check(reg, from, to); err != nil {
		return nil, err
	}
	fromNode := reg.Node(from.NodeID)
	toNode := reg.Node(to.NodeID)
	if fromNode == nil || toNode == nil {
		return nil, fmt.Errorf("endpoint node: %w", graph.ErrNotFound)
	}

	typ := s.Type
	if typ == "" {
		typ = graph.TypeLink
	}
	obj, err := factory.New(graph.Options{ID: s.ID, Type: typ})
	if err != nil {
		return nil, err
	}
	l, ok := obj.(*graph.Link)
	if !ok {
		return nil, fmt.Errorf("type %q does not construct a link: %w", typ, graph.ErrUnknownType)
	}
	l.FromNodeID, l.FromPortID = from.NodeID, from.ID
	l.ToNodeID, l.ToPortID = to.NodeID, to.ID

	if err := reg.Add(l); err != nil {
		return nil, err
	}
	from.AttachLink(l.ID)
	to.AttachLink(l.ID)

	if fromNode.IsBroadcast() {
		reindexBroadcast(reg, fromNode, from)
	} else {
		l.FromPortIndex = portIndex(fromNode, from.ID)
		from.Enabled = false
		from.Fill = PortConnectedFill
	}
	if !toNode.Descriptor.InMultiple {
		to.Enabled = false
	}

	sync.SyncNode(fromNode)
	sync.SyncNode(toNode)
	return l, nil
}

// Disconnect detaches l from the selected ends and always removes it from
// the scene.
func Disconnect(reg *graph.Registry, sync *graph.Synchronizer, l *graph.Link, edge Edge) {
	var touched []*graph.Node

	if edge != EdgeTo {
		if from := reg.PortByKey(l.FromKey()); from != nil && from.DetachLink(l.ID) {
			node := reg.Node(from.NodeID)
			if node != nil && node.IsBroadcast() {
				reindexBroadcast(reg, node, from)
			} else if len(from.Links) == 0 {
				from.Enabled = true
				from.Fill = from.OriginFill
			}
			if node != nil {
				touched = append(touched, node)
			}
		}
	}
	if edge != EdgeFrom {
		if to := reg.PortByKey(l.ToKey()); to != nil && to.DetachLink(l.ID) {
			to.Enabled = true
			if node := reg.Node(to.NodeID); node != nil {
				touched = append(touched, node)
			}
		}
	}

	reg.Remove(l.ID)
	for _, n := range touched {
		sync.SyncNode(n)
	}
}

// reindexBroadcast keeps a broadcast port's link indexes contiguous in
// connection order and the node's outputCount equal to the live link count.
func reindexBroadcast(reg *graph.Registry, node *graph.Node, port *graph.Port) {
	for i, id := range port.Links {
		if l := reg.Link(id); l != nil {
			l.FromPortIndex = i
		}
	}
	node.SetOutputCount(len(port.Links))
	port.Enabled = true
}

func portIndex(n *graph.Node, portID string) int {
	for i, p := range n.FromPorts {
		if p.ID == portID {
			return i
		}
	}
	return 0
}

// Attached returns the ids of every link touching a node, without
// duplicates, in port order.
func Attached(n *graph.Node) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range n.Ports() {
		for _, id := range p.Links {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
