// Package layout computes automatic node placements for a flow.
package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// Algorithm is a placement strategy.
type Algorithm int

const (
	Layered Algorithm = iota
	Grid
	Circular
)

var algorithmNames = map[Algorithm]string{
	Layered:  "layered",
	Grid:     "grid",
	Circular: "circular",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm maps a name to an Algorithm. The empty string is Layered.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return Layered, nil
	}
	for a, name := range algorithmNames {
		if name == s {
			return a, nil
		}
	}
	return Layered, fmt.Errorf("unknown layout %q (want layered, grid or circular)", s)
}

// Options tunes spacing. Gaps are in canvas units.
type Options struct {
	Origin   geometry.Point
	NodeGap  float64 // between nodes in a row
	LayerGap float64 // between rows
	Sweeps   int     // crossing-reduction passes for Layered
}

// DefaultOptions leaves room for link routing between rows.
func DefaultOptions() Options {
	return Options{
		Origin:   geometry.Point{X: 40, Y: 40},
		NodeGap:  40,
		LayerGap: 80,
		Sweeps:   4,
	}
}

// Arrange returns a new top-left corner for every node in reg. The
// registry is not modified.
func Arrange(reg *graph.Registry, algo Algorithm, opts Options) map[string]geometry.Point {
	nodes := reg.Nodes()
	if len(nodes) == 0 {
		return map[string]geometry.Point{}
	}
	switch algo {
	case Grid:
		return arrangeGrid(nodes, opts)
	case Circular:
		return arrangeCircular(reg, nodes, opts)
	default:
		return arrangeLayered(reg, nodes, opts)
	}
}

// adjacency is the node-level view of the links in a registry.
type adjacency struct {
	forward  map[string][]string
	backward map[string][]string
}

func buildAdjacency(reg *graph.Registry) *adjacency {
	adj := &adjacency{
		forward:  make(map[string][]string),
		backward: make(map[string][]string),
	}
	seen := make(map[[2]string]bool)
	for _, l := range reg.Links() {
		if l.FromNodeID == l.ToNodeID || reg.Node(l.FromNodeID) == nil || reg.Node(l.ToNodeID) == nil {
			continue
		}
		key := [2]string{l.FromNodeID, l.ToNodeID}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj.forward[l.FromNodeID] = append(adj.forward[l.FromNodeID], l.ToNodeID)
		adj.backward[l.ToNodeID] = append(adj.backward[l.ToNodeID], l.FromNodeID)
	}
	return adj
}

// Layers assigns every node to a row. Acyclic flows use longest-path
// ranking over the execution order; flows with cycles fall back to
// breadth-first distance from their entry nodes. Nodes with no links at
// all share a final row.
func Layers(reg *graph.Registry) [][]string {
	nodes := reg.Nodes()
	adj := buildAdjacency(reg)

	rank := make(map[string]int)
	var isolated []string
	for _, n := range nodes {
		if len(adj.forward[n.ID]) == 0 && len(adj.backward[n.ID]) == 0 {
			isolated = append(isolated, n.ID)
			rank[n.ID] = -1
		}
	}

	if a := graph.Analyse(reg); a.Acyclic() && len(a.Order) > 0 {
		for _, id := range a.Order {
			if rank[id] < 0 {
				continue
			}
			r := 0
			for _, pred := range adj.backward[id] {
				r = max(r, rank[pred]+1)
			}
			rank[id] = r
		}
	} else {
		rankBreadthFirst(nodes, adj, rank)
	}

	depth := 0
	for _, r := range rank {
		depth = max(depth, r+1)
	}
	layers := make([][]string, depth)
	for _, n := range nodes {
		if r := rank[n.ID]; r >= 0 {
			layers[r] = append(layers[r], n.ID)
		}
	}
	if len(isolated) > 0 {
		layers = append(layers, isolated)
	}
	return layers
}

// rankBreadthFirst ranks by distance from nodes without predecessors. A
// cycle nothing leads into is entered at its first node in scene order.
func rankBreadthFirst(nodes []*graph.Node, adj *adjacency, rank map[string]int) {
	visited := make(map[string]bool)
	for id, r := range rank {
		if r < 0 {
			visited[id] = true
		}
	}

	var queue []string
	visit := func(id string, r int) {
		visited[id] = true
		rank[id] = r
		queue = append(queue, id)
	}
	drain := func() {
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adj.forward[cur] {
				if !visited[next] {
					visit(next, rank[cur]+1)
				}
			}
		}
	}

	for _, n := range nodes {
		if !visited[n.ID] && len(adj.backward[n.ID]) == 0 {
			visit(n.ID, 0)
		}
	}
	drain()
	for _, n := range nodes {
		if !visited[n.ID] {
			visit(n.ID, 0)
			drain()
		}
	}
}

// reduceCrossings reorders rows by the barycenter heuristic: each node
// moves towards the average position of its neighbours in the adjacent
// row, sweeping down then up.
func reduceCrossings(layers [][]string, adj *adjacency, sweeps int) [][]string {
	if len(layers) <= 1 {
		return layers
	}
	pos := make(map[string]float64)
	for _, layer := range layers {
		for i, id := range layer {
			pos[id] = float64(i)
		}
	}
	order := func(layer []string, neighbours map[string][]string) {
		bary := make(map[string]float64, len(layer))
		for _, id := range layer {
			sum, count := 0.0, 0
			for _, nb := range neighbours[id] {
				if p, ok := pos[nb]; ok {
					sum += p
					count++
				}
			}
			if count > 0 {
				bary[id] = sum / float64(count)
			} else {
				bary[id] = pos[id]
			}
		}
		sort.SliceStable(layer, func(i, j int) bool { return bary[layer[i]] < bary[layer[j]] })
		for i, id := range layer {
			pos[id] = float64(i)
		}
	}
	for s := 0; s < sweeps; s++ {
		for l := 1; l < len(layers); l++ {
			order(layers[l], adj.backward)
		}
		for l := len(layers) - 2; l >= 0; l-- {
			order(layers[l], adj.forward)
		}
	}
	return layers
}

// Crossings counts link crossings between consecutive rows.
func Crossings(layers [][]string, reg *graph.Registry) int {
	adj := buildAdjacency(reg)
	total := 0
	for l := 0; l+1 < len(layers); l++ {
		pos := make(map[string]int)
		for i, id := range layers[l+1] {
			pos[id] = i
		}
		type edge struct{ a, b int }
		var edges []edge
		for i, id := range layers[l] {
			for _, succ := range adj.forward[id] {
				if p, ok := pos[succ]; ok {
					edges = append(edges, edge{i, p})
				}
			}
		}
		for i := 0; i < len(edges); i++ {
			for j := i + 1; j < len(edges); j++ {
				if (edges[i].a-edges[j].a)*(edges[i].b-edges[j].b) < 0 {
					total++
				}
			}
		}
	}
	return total
}

func arrangeLayered(reg *graph.Registry, nodes []*graph.Node, opts Options) map[string]geometry.Point {
	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	layers := reduceCrossings(Layers(reg), buildAdjacency(reg), opts.Sweeps)

	rowWidth := func(layer []string) float64 {
		w := 0.0
		for i, id := range layer {
			if i > 0 {
				w += opts.NodeGap
			}
			w += byID[id].Width
		}
		return w
	}
	widest := 0.0
	for _, layer := range layers {
		widest = max(widest, rowWidth(layer))
	}

	out := make(map[string]geometry.Point, len(nodes))
	y := opts.Origin.Y
	for _, layer := range layers {
		x := opts.Origin.X + (widest-rowWidth(layer))/2
		tallest := 0.0
		for _, id := range layer {
			n := byID[id]
			out[id] = geometry.Point{X: x, Y: y}
			x += n.Width + opts.NodeGap
			tallest = max(tallest, n.Height)
		}
		y += tallest + opts.LayerGap
	}
	return out
}

func cellSize(nodes []*graph.Node) (w, h float64) {
	for _, n := range nodes {
		w = max(w, n.Width)
		h = max(h, n.Height)
	}
	return w, h
}

func arrangeGrid(nodes []*graph.Node, opts Options) map[string]geometry.Point {
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	cw, ch := cellSize(nodes)
	out := make(map[string]geometry.Point, len(nodes))
	for i, n := range nodes {
		out[n.ID] = geometry.Point{
			X: opts.Origin.X + float64(i%cols)*(cw+opts.NodeGap),
			Y: opts.Origin.Y + float64(i/cols)*(ch+opts.LayerGap),
		}
	}
	return out
}

// arrangeCircular places node centres on a circle, clockwise from the top,
// in breadth-first order so that linked nodes sit next to each other.
func arrangeCircular(reg *graph.Registry, nodes []*graph.Node, opts Options) map[string]geometry.Point {
	cw, ch := cellSize(nodes)
	count := float64(len(nodes))
	radius := max(count*(cw+opts.NodeGap)/(2*math.Pi), (ch+opts.LayerGap)/2)
	if len(nodes) == 1 {
		radius = 0
	}
	centre := opts.Origin.Add(geometry.Point{X: radius + cw/2, Y: radius + ch/2})

	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	out := make(map[string]geometry.Point, len(nodes))
	for i, id := range connectivityOrder(reg, nodes) {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/count
		c := geometry.Point{X: centre.X + radius*math.Cos(angle), Y: centre.Y + radius*math.Sin(angle)}
		n := byID[id]
		out[id] = geometry.Point{X: c.X - n.Width/2, Y: c.Y - n.Height/2}
	}
	return out
}

// connectivityOrder walks the flow breadth-first from nodes without
// predecessors, then from whatever is left in scene order.
func connectivityOrder(reg *graph.Registry, nodes []*graph.Node) []string {
	adj := buildAdjacency(reg)
	visited := make(map[string]bool)
	var order []string
	walk := func(start string) {
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, next := range adj.forward[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	for _, n := range nodes {
		if !visited[n.ID] && len(adj.backward[n.ID]) == 0 {
			walk(n.ID)
		}
	}
	for _, n := range nodes {
		if !visited[n.ID] {
			walk(n.ID)
		}
	}
	return order
}
