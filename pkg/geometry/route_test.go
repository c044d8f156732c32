package geometry

import "testing"

func TestRouteStraight(t *testing.T) {
	path := Route(Straight, Point{0, 0}, Point{50, 100})
	if len(path) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(path))
	}
	if path[1] != (Point{50, 100}) {
		t.Errorf("End point wrong: %v", path[1])
	}
}

func TestRouteCurved(t *testing.T) {
	from, to := Point{0, 0}, Point{0, 100}
	path := Route(Curved, from, to)
	if len(path) != 4 {
		t.Fatalf("Expected 4 points, got %d", len(path))
	}
	if path[0] != from || path[3] != to {
		t.Errorf("Endpoints wrong: %v", path)
	}
	// Handles leave and enter vertically
	if path[1].X != from.X || path[2].X != to.X {
		t.Errorf("Control points not vertical: %v, %v", path[1], path[2])
	}

	mid := PathMidpoint(Curved, path)
	if !approx(mid.X, 0) || !approx(mid.Y, 50) {
		t.Errorf("Midpoint wrong: expected (0,50), got (%.1f, %.1f)", mid.X, mid.Y)
	}
}

func TestRouteCurvedMinimumHandle(t *testing.T) {
	// Target above source still bends out of the port vertically
	path := Route(Curved, Point{0, 100}, Point{40, 90})
	if path[1].Y != 100+minCurveHandle {
		t.Errorf("First handle: got %.1f, want %.1f", path[1].Y, 100+minCurveHandle)
	}
	if path[2].Y != 90-minCurveHandle {
		t.Errorf("Second handle: got %.1f, want %.1f", path[2].Y, 90-minCurveHandle)
	}
}

func TestRouteOrthogonal(t *testing.T) {
	path := Route(Orthogonal, Point{10, 0}, Point{90, 100})
	want := []Point{{10, 0}, {10, 50}, {90, 50}, {90, 100}}
	if len(path) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(path))
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("point %d: got %v, want %v", i, path[i], want[i])
		}
	}
}

func TestParseRouting(t *testing.T) {
	tests := []struct {
		in      string
		want    Routing
		wantErr bool
	}{
		{"", Straight, false},
		{"straight", Straight, false},
		{"curved", Curved, false},
		{"orthogonal", Orthogonal, false},
		{"zigzag", Straight, true},
	}
	for _, tt := range tests {
		got, err := ParseRouting(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRouting(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRouting(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
	if Curved.String() != "curved" {
		t.Errorf("String: got %q", Curved.String())
	}
}

func TestPolylineAt(t *testing.T) {
	path := []Point{{0, 0}, {0, 10}, {10, 10}}
	tests := []struct {
		t    float64
		want Point
	}{
		{0, Point{0, 0}},
		{0.25, Point{0, 5}},
		{0.5, Point{0, 10}},
		{0.75, Point{5, 10}},
		{1, Point{10, 10}},
	}
	for _, tt := range tests {
		got := PolylineAt(path, tt.t)
		if !approx(got.X, tt.want.X) || !approx(got.Y, tt.want.Y) {
			t.Errorf("PolylineAt(%.2f): got %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestPathDirection(t *testing.T) {
	d := PathDirection([]Point{{0, 0}, {0, 50}, {20, 50}})
	if d.X <= 0 || d.Y != 0 {
		t.Errorf("Direction: got %v, want pointing right", d)
	}
	if d := PathDirection(nil); d != (Point{0, 1}) {
		t.Errorf("Direction of empty path: got %v, want down", d)
	}
}
