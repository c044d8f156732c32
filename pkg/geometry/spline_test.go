package geometry

import (
	"math"
	"testing"
)

func TestSmoothPathPassesThroughWaypoints(t *testing.T) {
	waypoints := []Point{{0, 0}, {50, 100}, {100, 0}}
	spline := SmoothPath(waypoints)

	// 2 segments: start + 3 per segment
	if len(spline) != 7 {
		t.Fatalf("Expected 7 points, got %d", len(spline))
	}
	for i, wp := range waypoints {
		if spline[i*3] != wp {
			t.Errorf("waypoint %d: got %v, want %v", i, spline[i*3], wp)
		}
	}
}

func TestSmoothPathShortInput(t *testing.T) {
	in := []Point{{0, 0}, {10, 10}}
	out := SmoothPath(in)
	if len(out) != 2 {
		t.Errorf("Expected unchanged 2-point path, got %d points", len(out))
	}
}

func TestEvaluateSplineEndpoints(t *testing.T) {
	spline := []Point{{0, 0}, {30, 0}, {70, 100}, {100, 100}}

	start := EvaluateSpline(spline, 0)
	if start != spline[0] {
		t.Errorf("t=0: got %v, want %v", start, spline[0])
	}
	end := EvaluateSpline(spline, 1)
	if !approx(end.X, 100) || !approx(end.Y, 100) {
		t.Errorf("t=1: got %v, want (100,100)", end)
	}
}

func TestEvaluateSplineLinear(t *testing.T) {
	got := EvaluateSpline([]Point{{0, 0}, {10, 20}}, 0.5)
	if got.X != 5 || got.Y != 10 {
		t.Errorf("Linear midpoint: got (%.1f, %.1f), want (5, 10)", got.X, got.Y)
	}
	if got := EvaluateSpline(nil, 0.5); got != (Point{}) {
		t.Errorf("Empty spline: got %v", got)
	}
}

func TestSplineLength(t *testing.T) {
	// A Bézier with collinear control points is a straight segment
	spline := []Point{{0, 0}, {0, 10}, {0, 20}, {0, 30}}
	if l := SplineLength(spline); math.Abs(l-30) > 0.01 {
		t.Errorf("Length: got %.3f, want 30", l)
	}
}

func TestEvaluateSplineTangent(t *testing.T) {
	spline := []Point{{0, 0}, {0, 10}, {0, 20}, {0, 30}}
	tan := EvaluateSplineTangent(spline, 0.5)
	if tan.X != 0 || tan.Y <= 0 {
		t.Errorf("Tangent: got %v, want pointing down", tan)
	}
}

func TestFlattenSpline(t *testing.T) {
	spline := []Point{{0, 0}, {0, 10}, {0, 20}, {0, 30}}
	flat := FlattenSpline(spline, 10)
	if len(flat) != 11 {
		t.Fatalf("Expected 11 points, got %d", len(flat))
	}
	if !approx(flat[10].Y, 30) {
		t.Errorf("Last point: got %v", flat[10])
	}
}

func TestLabelPlacerAvoidsNodes(t *testing.T) {
	node := Rect{Left: -20, Top: -40, Width: 40, Height: 30}
	lp := NewLabelPlacer([]Rect{node})

	// Above the anchor is blocked by the node; placer should pick another side
	pos := lp.PlaceLabel(Point{0, 0}, 20, 10, 2)
	if Overlap(centered(pos, 20, 10), node) != 0 {
		t.Errorf("Label at %v overlaps node", pos)
	}

	// Second label at the same anchor must not land on the first
	pos2 := lp.PlaceLabel(Point{0, 0}, 20, 10, 2)
	if pos2 == pos {
		t.Errorf("Second label placed on top of first at %v", pos)
	}
}

func TestPlaceLabelOnPath(t *testing.T) {
	lp := NewLabelPlacer(nil)
	path := []Point{{0, 0}, {0, 100}}
	pos := lp.PlaceLabelOnPath(Straight, path, 20, 10, 4)
	// Offset perpendicular to a vertical path moves only along X
	if pos.Y != 50 || pos.X == 0 {
		t.Errorf("Label position: got %v, want beside (0,50)", pos)
	}
}
