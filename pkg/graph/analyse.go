package graph

import (
	"sort"

	gg "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Analysis summarises the shape of a flow.
type Analysis struct {
	Nodes int `json:"nodes"`
	Links int `json:"links"`

	// Order is a topological execution order; empty when the flow has cycles.
	Order []string `json:"order,omitempty"`

	// Cycles lists strongly connected groups of more than one node.
	Cycles [][]string `json:"cycles,omitempty"`

	// Isolated lists nodes with no links at all.
	Isolated []string `json:"isolated,omitempty"`

	// Entry lists nodes with an inbound port but no incoming links.
	Entry []string `json:"entry,omitempty"`

	// Dangling lists enabled outbound ports with no links.
	Dangling []PortKey `json:"dangling,omitempty"`
}

// Acyclic reports whether the flow has no cycles.
func (a *Analysis) Acyclic() bool { return len(a.Cycles) == 0 }

// flowGraph maps node ids onto a gonum directed graph.
type flowGraph struct {
	g   *simple.DirectedGraph
	ids map[string]int64
	rev map[int64]string
}

func buildFlowGraph(reg *Registry) *flowGraph {
	fg := &flowGraph{
		g:   simple.NewDirectedGraph(),
		ids: make(map[string]int64),
		rev: make(map[int64]string),
	}
	var next int64
	for _, n := range reg.Nodes() {
		fg.ids[n.ID] = next
		fg.rev[next] = n.ID
		fg.g.AddNode(simple.Node(next))
		next++
	}
	for _, l := range reg.Links() {
		from, okF := fg.ids[l.FromNodeID]
		to, okT := fg.ids[l.ToNodeID]
		if !okF || !okT || from == to {
			continue
		}
		if !fg.g.HasEdgeFromTo(from, to) {
			fg.g.SetEdge(fg.g.NewEdge(fg.g.Node(from), fg.g.Node(to)))
		}
	}
	return fg
}

func (fg *flowGraph) names(nodes []gg.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, fg.rev[n.ID()])
	}
	return out
}

// Analyse computes cycles, execution order, isolated nodes and dangling
// outbound ports.
func Analyse(reg *Registry) *Analysis {
	fg := buildFlowGraph(reg)
	a := &Analysis{
		Nodes: len(fg.ids),
		Links: len(reg.Links()),
	}

	for _, scc := range topo.TarjanSCC(fg.g) {
		if len(scc) > 1 {
			c := fg.names(scc)
			sort.Strings(c)
			a.Cycles = append(a.Cycles, c)
		}
	}
	sort.Slice(a.Cycles, func(i, j int) bool { return a.Cycles[i][0] < a.Cycles[j][0] })

	if len(a.Cycles) == 0 {
		sorted, err := topo.SortStabilized(fg.g, func(nodes []gg.Node) {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
		})
		if err == nil {
			a.Order = fg.names(sorted)
		}
	}

	for _, n := range reg.Nodes() {
		linked := false
		for _, p := range n.Ports() {
			if len(p.Links) > 0 {
				linked = true
				break
			}
		}
		if !linked {
			a.Isolated = append(a.Isolated, n.ID)
		}
		if n.ToPort != nil && len(n.ToPort.Links) == 0 && linked {
			a.Entry = append(a.Entry, n.ID)
		}
		for _, p := range n.FromPorts {
			if p.Enabled && len(p.Links) == 0 {
				a.Dangling = append(a.Dangling, p.Key())
			}
		}
	}
	return a
}
