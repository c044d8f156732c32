package geometry

import "math"

// LabelPlacer manages label placement with collision avoidance.
// Obstacles are node rectangles plus every label placed so far.
type LabelPlacer struct {
	obstacles []Rect
}

// NewLabelPlacer creates a LabelPlacer with initial obstacles (nodes).
func NewLabelPlacer(nodes []Rect) *LabelPlacer {
	obstacles := make([]Rect, len(nodes))
	copy(obstacles, nodes)
	return &LabelPlacer{obstacles: obstacles}
}

func centered(c Point, w, h float64) Rect {
	return Rect{c.X - w/2, c.Y - h/2, w, h}
}

func (lp *LabelPlacer) overlap(r Rect) float64 {
	total := 0.0
	for _, obs := range lp.obstacles {
		total += Overlap(r, obs)
	}
	return total
}

// PlaceLabel finds the best position for a label near an anchor point.
// Returns the center position for the label.
func (lp *LabelPlacer) PlaceLabel(anchor Point, labelW, labelH, gap float64) Point {
	dx := labelW/2 + gap
	dy := labelH/2 + gap
	candidates := []Point{
		{anchor.X, anchor.Y - dy},
		{anchor.X, anchor.Y + dy},
		{anchor.X + dx, anchor.Y},
		{anchor.X - dx, anchor.Y},
		{anchor.X + dx, anchor.Y - dy},
		{anchor.X - dx, anchor.Y - dy},
		{anchor.X + dx, anchor.Y + dy},
		{anchor.X - dx, anchor.Y + dy},
	}

	best := candidates[0]
	bestOverlap := math.MaxFloat64
	for _, pos := range candidates {
		o := lp.overlap(centered(pos, labelW, labelH))
		if o == 0 {
			best = pos
			break
		}
		if o < bestOverlap {
			bestOverlap = o
			best = pos
		}
	}

	lp.obstacles = append(lp.obstacles, centered(best, labelW, labelH))
	return best
}

// PlaceLabelOnPath places a label at the path midpoint, offset perpendicular
// to the local direction of travel, falling back to PlaceLabel.
func (lp *LabelPlacer) PlaceLabelOnPath(style Routing, path []Point, labelW, labelH, gap float64) Point {
	mid := PathMidpoint(style, path)
	var tangent Point
	if style == Curved && len(path) == 4 {
		tangent = EvaluateSplineTangent(path, 0.5)
	} else if len(path) >= 2 {
		tangent = path[len(path)-1].Sub(path[0])
	}

	dist := math.Hypot(tangent.X, tangent.Y)
	if dist < 1 {
		return lp.PlaceLabel(mid, labelW, labelH, gap)
	}
	perp := Point{-tangent.Y / dist, tangent.X / dist}

	for _, off := range []float64{gap + labelW/2, -(gap + labelW/2)} {
		pos := mid.Add(perp.Scale(off))
		r := centered(pos, labelW, labelH)
		if lp.overlap(r) == 0 {
			lp.obstacles = append(lp.obstacles, r)
			return pos
		}
	}
	return lp.PlaceLabel(mid, labelW, labelH, gap)
}
