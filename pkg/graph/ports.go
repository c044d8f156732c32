package graph

import (
	"fmt"
	"math"
)

// Fixed port ids.
const (
	InPortID        = "in"
	SingleOutPortID = "out"
	BroadcastPortID = "broadcast"
)

// OutputCountKey is the configuration key tracking broadcast fan-out.
const OutputCountKey = "outputCount"

// OutPortIDs returns the outbound port ids the descriptor prescribes.
// DYNAMIC nodes start from Descriptor.OutPorts and are changed later with
// SetOutPorts.
func (d Descriptor) OutPortIDs() []string {
	switch d.OutPortType {
	case OutSingle:
		return []string{SingleOutPortID}
	case OutStatic, OutDynamic:
		return append([]string(nil), d.OutPorts...)
	case OutBroadcast:
		return []string{BroadcastPortID}
	}
	return nil
}

// PortOffsets spreads n outbound ports symmetrically around the bottom-center
// anchor: offset_i = (i - (n-1)/2) * spacing.
func PortOffsets(n int, spacing float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i) - float64(n-1)/2) * spacing
	}
	return out
}

func newPort(id string, dir Direction, nodeID string) *Port {
	return &Port{
		ID:         id,
		Direction:  dir,
		NodeID:     nodeID,
		Enabled:    true,
		Fill:       PortFill,
		OriginFill: PortFill,
	}
}

// CreatePorts (re)creates the node's ports from its descriptor. Existing
// ports and their link lists are discarded.
func (n *Node) CreatePorts(spacing float64) error {
	if !n.Descriptor.OutPortType.Valid() {
		return fmt.Errorf("node %s: outPortType %q: %w", n.ID, n.Descriptor.OutPortType, ErrPolicy)
	}

	n.ToPort = nil
	if n.Descriptor.InEnabled {
		n.ToPort = newPort(InPortID, ToPort, n.ID)
	}

	ids := n.Descriptor.OutPortIDs()
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return fmt.Errorf("node %s: invalid outbound port id %q: %w", n.ID, id, ErrPolicy)
		}
		seen[id] = true
	}

	offsets := PortOffsets(len(ids), spacing)
	n.FromPorts = make([]*Port, len(ids))
	for i, id := range ids {
		p := newPort(id, FromPort, n.ID)
		p.LeftDiff = offsets[i]
		n.FromPorts[i] = p
	}

	// Fresh ports carry no links.
	if n.Descriptor.OutPortType == OutBroadcast {
		n.SetOutputCount(0)
	}
	return nil
}

// OutputCount reads the broadcast output count. Configuration values decoded
// from JSON arrive as float64.
func (n *Node) OutputCount() int {
	switch v := n.Configuration[OutputCountKey].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	}
	return 0
}

// SetOutputCount stores the broadcast output count.
func (n *Node) SetOutputCount(c int) {
	if n.Configuration == nil {
		n.Configuration = make(map[string]any)
	}
	n.Configuration[OutputCountKey] = c
}

// IsBroadcast reports whether the node fans out through one shared port.
func (n *Node) IsBroadcast() bool {
	return n.Descriptor.OutPortType == OutBroadcast
}
