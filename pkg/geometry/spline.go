// Cubic Bézier helpers for curved links and smoothed free-drawn lines.

package geometry

import "math"

// SmoothPath turns a polyline into a chain of cubic Bézier segments passing
// through every waypoint, using Catmull-Rom to Bézier conversion.
// The result has the form [P0, C1, C2, P1, C3, C4, P2, ...].
func SmoothPath(waypoints []Point) []Point {
	if len(waypoints) <= 2 {
		return waypoints
	}

	result := []Point{waypoints[0]}
	last := len(waypoints) - 1

	for i := 0; i < last; i++ {
		p0 := waypoints[max(0, i-1)]
		p1 := waypoints[i]
		p2 := waypoints[min(last, i+1)]
		p3 := waypoints[min(last, i+2)]

		ctrl1 := Point{
			X: p1.X + (p2.X-p0.X)/6,
			Y: p1.Y + (p2.Y-p0.Y)/6,
		}
		ctrl2 := Point{
			X: p2.X - (p3.X-p1.X)/6,
			Y: p2.Y - (p3.Y-p1.Y)/6,
		}
		result = append(result, ctrl1, ctrl2, p2)
	}
	return result
}

// EvaluateSpline computes the point on a spline at parameter t ∈ [0,1].
// Paths shorter than four points are treated as polylines.
func EvaluateSpline(spline []Point, t float64) Point {
	if len(spline) == 0 {
		return Point{}
	}
	if len(spline) == 1 {
		return spline[0]
	}
	if len(spline) < 4 {
		idx := int(t * float64(len(spline)-1))
		if idx >= len(spline)-1 {
			return spline[len(spline)-1]
		}
		localT := t*float64(len(spline)-1) - float64(idx)
		return Point{
			X: spline[idx].X*(1-localT) + spline[idx+1].X*localT,
			Y: spline[idx].Y*(1-localT) + spline[idx+1].Y*localT,
		}
	}

	segments := max((len(spline)-1)/3, 1)
	segment := min(int(t*float64(segments)), segments-1)
	localT := math.Max(0, math.Min(1, t*float64(segments)-float64(segment)))

	i := segment * 3
	if i+3 >= len(spline) {
		return spline[len(spline)-1]
	}
	return bezier(spline[i], spline[i+1], spline[i+2], spline[i+3], localT)
}

func bezier(p0, p1, p2, p3 Point, t float64) Point {
	mt := 1 - t
	mt2 := mt * mt
	mt3 := mt2 * mt
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: mt3*p0.X + 3*mt2*t*p1.X + 3*mt*t2*p2.X + t3*p3.X,
		Y: mt3*p0.Y + 3*mt2*t*p1.Y + 3*mt*t2*p2.Y + t3*p3.Y,
	}
}

// EvaluateSplineTangent computes the tangent vector at parameter t.
func EvaluateSplineTangent(spline []Point, t float64) Point {
	if len(spline) < 4 {
		if len(spline) >= 2 {
			return spline[len(spline)-1].Sub(spline[0])
		}
		return Point{1, 0}
	}

	segments := (len(spline) - 1) / 3
	segment := min(int(t*float64(segments)), segments-1)
	localT := t*float64(segments) - float64(segment)

	i := segment * 3
	if i+3 >= len(spline) {
		return Point{1, 0}
	}
	p0, p1, p2, p3 := spline[i], spline[i+1], spline[i+2], spline[i+3]

	mt := 1 - localT
	return Point{
		X: 3*mt*mt*(p1.X-p0.X) + 6*mt*localT*(p2.X-p1.X) + 3*localT*localT*(p3.X-p2.X),
		Y: 3*mt*mt*(p1.Y-p0.Y) + 6*mt*localT*(p2.Y-p1.Y) + 3*localT*localT*(p3.Y-p2.Y),
	}
}

// SplineLength approximates the length of a spline by sampling.
func SplineLength(spline []Point) float64 {
	if len(spline) < 2 {
		return 0
	}
	const samples = 100
	length := 0.0
	prev := EvaluateSpline(spline, 0)
	for i := 1; i <= samples; i++ {
		curr := EvaluateSpline(spline, float64(i)/samples)
		length += curr.Dist(prev)
		prev = curr
	}
	return length
}

// SplineMidpoint returns the point at the middle of the spline (t=0.5).
func SplineMidpoint(spline []Point) Point {
	return EvaluateSpline(spline, 0.5)
}

// FlattenSpline samples a spline into a polyline of n+1 points, for
// renderers that only draw straight segments.
func FlattenSpline(spline []Point, n int) []Point {
	if len(spline) < 4 || n < 1 {
		return spline
	}
	out := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, EvaluateSpline(spline, float64(i)/float64(n)))
	}
	return out
}
