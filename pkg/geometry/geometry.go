// Geometric primitives for the flow canvas.
// Coordinates are canvas units with the origin at the top-left and Y growing down.

package geometry

import "math"

// Point represents a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Size is a width/height pair.
type Size struct {
	W, H float64
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{r.Left + r.Width/2, r.Top + r.Height/2}
}

// TopCenter is the anchor of a node's inbound port.
func (r Rect) TopCenter() Point {
	return Point{r.Left + r.Width/2, r.Top}
}

// BottomCenter is the anchor of a node's outbound ports.
func (r Rect) BottomCenter() Point {
	return Point{r.Left + r.Width/2, r.Top + r.Height}
}

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Union returns the smallest rectangle containing both r and o.
// An empty rectangle is the identity.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	left := math.Min(r.Left, o.Left)
	top := math.Min(r.Top, o.Top)
	right := math.Max(r.Right(), o.Right())
	bottom := math.Max(r.Bottom(), o.Bottom())
	return Rect{left, top, right - left, bottom - top}
}

// Overlap returns the overlap area between two rectangles.
// Returns 0 if they don't overlap.
func Overlap(a, b Rect) float64 {
	w := math.Min(a.Right(), b.Right()) - math.Max(a.Left, b.Left)
	h := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Top, b.Top)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Bounds returns the bounding rectangle of a point set.
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

// Snap rounds v to the nearest multiple of grid. A non-positive grid
// leaves v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPoint snaps both coordinates of p.
func SnapPoint(p Point, grid float64) Point {
	return Point{Snap(p.X, grid), Snap(p.Y, grid)}
}

// Rotate rotates p around c by deg degrees (clockwise on screen).
func Rotate(p, c Point, deg float64) Point {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	d := p.Sub(c)
	return Point{c.X + d.X*cos - d.Y*sin, c.Y + d.X*sin + d.Y*cos}
}

// SegmentDist returns the distance from p to the segment a-b.
func SegmentDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	ap := p.Sub(a)
	t := math.Max(0, math.Min(1, (ap.X*ab.X+ap.Y*ab.Y)/l2))
	return p.Dist(a.Add(ab.Scale(t)))
}

// PolylineDist returns the distance from p to the nearest segment of a
// polyline, or +Inf for an empty one.
func PolylineDist(p Point, line []Point) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Dist(line[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		best = math.Min(best, SegmentDist(p, line[i-1], line[i]))
	}
	return best
}
