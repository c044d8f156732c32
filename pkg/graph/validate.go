package graph

import "fmt"

// Validate checks the structural invariants of the registry and returns one
// message per violation:
//   - every link endpoint resolves to a port of the right direction
//   - every link appears in exactly its two endpoint port lists
//   - every port link id resolves to a link that names that port
//   - outbound port ids match the node's fan-out policy
//   - broadcast output counts equal the live link count with contiguous indexes
func Validate(reg *Registry) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	occurrences := make(map[string]int)
	for _, p := range reg.Ports() {
		for _, id := range p.Links {
			occurrences[id]++
			l := reg.Link(id)
			if l == nil {
				report("port %s lists unknown link %s", p.Key(), id)
				continue
			}
			if l.FromKey() != p.Key() && l.ToKey() != p.Key() {
				report("port %s lists link %s which does not attach to it", p.Key(), id)
			}
		}
	}

	for _, l := range reg.Links() {
		from := reg.PortByKey(l.FromKey())
		to := reg.PortByKey(l.ToKey())
		switch {
		case from == nil:
			report("link %s: source port %s not found", l.ID, l.FromKey())
		case from.Direction != FromPort:
			report("link %s: source port %s is not an outbound port", l.ID, l.FromKey())
		case !from.HasLink(l.ID):
			report("link %s: missing from source port %s", l.ID, l.FromKey())
		}
		switch {
		case to == nil:
			report("link %s: destination port %s not found", l.ID, l.ToKey())
		case to.Direction != ToPort:
			report("link %s: destination port %s is not an inbound port", l.ID, l.ToKey())
		case !to.HasLink(l.ID):
			report("link %s: missing from destination port %s", l.ID, l.ToKey())
		}
		if l.FromNodeID == l.ToNodeID {
			report("link %s: self loop on node %s", l.ID, l.FromNodeID)
		}
		if n := occurrences[l.ID]; n != 2 {
			report("link %s: present in %d port lists, want 2", l.ID, n)
		}
	}

	for _, n := range reg.Nodes() {
		want := n.Descriptor.OutPortIDs()
		if n.Descriptor.OutPortType != OutDynamic {
			if len(want) != len(n.FromPorts) {
				report("node %s: %d outbound ports, policy %s wants %d",
					n.ID, len(n.FromPorts), n.Descriptor.OutPortType, len(want))
			} else {
				for i, p := range n.FromPorts {
					if p.ID != want[i] {
						report("node %s: outbound port %d is %q, want %q", n.ID, i, p.ID, want[i])
					}
				}
			}
		}
		if (n.ToPort != nil) != n.Descriptor.InEnabled {
			report("node %s: inbound port presence does not match inEnabled=%v", n.ID, n.Descriptor.InEnabled)
		}
		if n.IsBroadcast() && len(n.FromPorts) == 1 {
			p := n.FromPorts[0]
			if n.OutputCount() != len(p.Links) {
				report("node %s: outputCount %d, live links %d", n.ID, n.OutputCount(), len(p.Links))
			}
			for i, id := range p.Links {
				if l := reg.Link(id); l != nil && l.FromPortIndex != i {
					report("node %s: link %s has fromPortIndex %d, want %d", n.ID, id, l.FromPortIndex, i)
				}
			}
		}
	}
	return problems
}
