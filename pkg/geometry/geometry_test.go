package geometry

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRectAnchors(t *testing.T) {
	r := Rect{Left: 100, Top: 50, Width: 200, Height: 40}

	if got := r.TopCenter(); got != (Point{200, 50}) {
		t.Errorf("TopCenter: got %v, want (200,50)", got)
	}
	if got := r.BottomCenter(); got != (Point{200, 90}) {
		t.Errorf("BottomCenter: got %v, want (200,90)", got)
	}
	if got := r.Center(); got != (Point{200, 70}) {
		t.Errorf("Center: got %v, want (200,70)", got)
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{0, 0, 10, 10}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5, 5}, true},
		{Point{0, 0}, true},
		{Point{10, 10}, true},
		{Point{11, 5}, false},
		{Point{5, -1}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v): got %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestOverlap(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, 5, 10, 10}
	if got := Overlap(a, b); got != 25 {
		t.Errorf("Overlap: got %.1f, want 25", got)
	}

	c := Rect{20, 20, 5, 5}
	if got := Overlap(a, c); got != 0 {
		t.Errorf("Overlap of disjoint rects: got %.1f, want 0", got)
	}

	// Touching edges do not overlap
	d := Rect{10, 0, 5, 5}
	if got := Overlap(a, d); got != 0 {
		t.Errorf("Overlap of touching rects: got %.1f, want 0", got)
	}
}

func TestUnion(t *testing.T) {
	got := Rect{0, 0, 10, 10}.Union(Rect{20, 5, 10, 20})
	want := Rect{0, 0, 30, 25}
	if got != want {
		t.Errorf("Union: got %v, want %v", got, want)
	}

	if got := (Rect{}).Union(want); got != want {
		t.Errorf("Union with empty: got %v, want %v", got, want)
	}
}

func TestBounds(t *testing.T) {
	got := Bounds([]Point{{3, 4}, {-1, 10}, {7, 2}})
	want := Rect{-1, 2, 8, 8}
	if got != want {
		t.Errorf("Bounds: got %v, want %v", got, want)
	}
	if got := Bounds(nil); got != (Rect{}) {
		t.Errorf("Bounds(nil): got %v, want zero", got)
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		v, grid, want float64
	}{
		{14, 10, 10},
		{15, 10, 20},
		{-4, 10, 0},
		{-6, 10, -10},
		{33.3, 0, 33.3},
		{33.3, -5, 33.3},
	}
	for _, tt := range tests {
		if got := Snap(tt.v, tt.grid); got != tt.want {
			t.Errorf("Snap(%v, %v): got %v, want %v", tt.v, tt.grid, got, tt.want)
		}
	}
}

func TestRotate(t *testing.T) {
	got := Rotate(Point{10, 0}, Point{0, 0}, 90)
	if !approx(got.X, 0) || !approx(got.Y, 10) {
		t.Errorf("Rotate 90: got (%.3f, %.3f), want (0, 10)", got.X, got.Y)
	}
	if got := Rotate(Point{3, 4}, Point{1, 1}, 0); got != (Point{3, 4}) {
		t.Errorf("Rotate 0: got %v, want unchanged", got)
	}
}

func TestSegmentDist(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"above middle", Point{5, 3}, 3},
		{"beyond end", Point{13, 4}, 5},
		{"before start", Point{-3, 0}, 3},
		{"on segment", Point{7, 0}, 0},
	}
	for _, tt := range tests {
		if got := SegmentDist(tt.p, Point{0, 0}, Point{10, 0}); !approx(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := SegmentDist(Point{3, 4}, Point{0, 0}, Point{0, 0}); !approx(got, 5) {
		t.Errorf("degenerate segment: got %v, want 5", got)
	}
}

func TestPolylineDist(t *testing.T) {
	line := []Point{{0, 0}, {0, 10}, {10, 10}}
	if got := PolylineDist(Point{5, 12}, line); !approx(got, 2) {
		t.Errorf("got %v, want 2", got)
	}
	if got := PolylineDist(Point{1, 1}, nil); !math.IsInf(got, 1) {
		t.Errorf("empty polyline: got %v, want +Inf", got)
	}
}
