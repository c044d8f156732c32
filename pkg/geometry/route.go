// Link routing between an outbound port (bottom of a node) and an inbound
// port (top of a node).

package geometry

import (
	"fmt"
	"math"
)

// Routing is the visual routing style of a link.
type Routing int

const (
	Straight Routing = iota
	Curved
	Orthogonal
)

var routingNames = map[Routing]string{
	Straight:   "straight",
	Curved:     "curved",
	Orthogonal: "orthogonal",
}

func (r Routing) String() string {
	if s, ok := routingNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Routing(%d)", int(r))
}

// ParseRouting maps a style name to a Routing. The empty string is Straight.
func ParseRouting(s string) (Routing, error) {
	if s == "" {
		return Straight, nil
	}
	for r, name := range routingNames {
		if name == s {
			return r, nil
		}
	}
	return Straight, fmt.Errorf("unknown routing style %q", s)
}

// minCurveHandle keeps curved links readable when ports are vertically close
// or the target sits above the source.
const minCurveHandle = 30.0

// Route computes the path of a link from `from` to `to`.
//
//	Straight:   [from, to]
//	Curved:     [from, c1, c2, to], one cubic Bézier segment leaving and
//	            entering vertically
//	Orthogonal: [from, bend1, bend2, to], a vertical-horizontal-vertical
//	            polyline bending at the vertical midpoint
func Route(style Routing, from, to Point) []Point {
	switch style {
	case Curved:
		h := math.Max(math.Abs(to.Y-from.Y)/2, minCurveHandle)
		return []Point{
			from,
			{from.X, from.Y + h},
			{to.X, to.Y - h},
			to,
		}
	case Orthogonal:
		midY := (from.Y + to.Y) / 2
		return []Point{
			from,
			{from.X, midY},
			{to.X, midY},
			to,
		}
	default:
		return []Point{from, to}
	}
}

// PathMidpoint returns the point halfway along a routed path, used to anchor
// link labels.
func PathMidpoint(style Routing, path []Point) Point {
	if style == Curved && len(path) == 4 {
		return SplineMidpoint(path)
	}
	return PolylineAt(path, 0.5)
}

// PolylineAt returns the point at fraction t of the polyline's arc length.
func PolylineAt(path []Point, t float64) Point {
	if len(path) == 0 {
		return Point{}
	}
	if len(path) == 1 || t <= 0 {
		return path[0]
	}
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].Dist(path[i-1])
	}
	if total == 0 || t >= 1 {
		return path[len(path)-1]
	}
	target := total * t
	for i := 1; i < len(path); i++ {
		seg := path[i].Dist(path[i-1])
		if target <= seg {
			f := target / seg
			return Point{
				X: path[i-1].X + (path[i].X-path[i-1].X)*f,
				Y: path[i-1].Y + (path[i].Y-path[i-1].Y)*f,
			}
		}
		target -= seg
	}
	return path[len(path)-1]
}

// PathDirection returns the direction of travel at the end of a path, used
// to orient arrowheads.
func PathDirection(path []Point) Point {
	n := len(path)
	if n < 2 {
		return Point{0, 1}
	}
	for i := n - 2; i >= 0; i-- {
		d := path[n-1].Sub(path[i])
		if d.X != 0 || d.Y != 0 {
			return d
		}
	}
	return Point{0, 1}
}
