// Shared layout for the image exporters.

package flowfile

import (
	"fmt"
	"math"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// RenderOptions controls SVG and PNG export.
type RenderOptions struct {
	Width    int    // canvas width in pixels
	Height   int    // canvas height in pixels
	Padding  int    // padding around the scene
	FontSize int    // node label size
	Title    string // drawn above the scene when set
}

// DefaultRenderOptions returns sensible defaults.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:    800,
		Height:   600,
		Padding:  40,
		FontSize: 14,
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	d := DefaultRenderOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	return o
}

// frame maps scene coordinates onto the canvas, preserving aspect ratio.
type frame struct {
	scale  float64
	origin geometry.Point // scene point drawn at offset
	offset geometry.Point
}

func (f frame) point(p geometry.Point) geometry.Point {
	return p.Sub(f.origin).Scale(f.scale).Add(f.offset)
}

func (f frame) rect(r geometry.Rect) geometry.Rect {
	tl := f.point(geometry.Point{X: r.Left, Y: r.Top})
	return geometry.Rect{Left: tl.X, Top: tl.Y, Width: r.Width * f.scale, Height: r.Height * f.scale}
}

// sceneBounds is the union of every node, element and link path.
func sceneBounds(reg *graph.Registry) (geometry.Rect, bool) {
	b, ok := reg.Bounds()
	for _, l := range reg.Links() {
		if len(l.Path) == 0 {
			continue
		}
		pb := geometry.Bounds(l.Path)
		if !ok {
			b, ok = pb, true
			continue
		}
		b = b.Union(pb)
	}
	return b, ok
}

// fit scales the scene into the padded canvas and centres it. Scenes are
// never enlarged beyond 1:1.
func fit(reg *graph.Registry, opts RenderOptions) frame {
	top := float64(opts.Padding)
	if opts.Title != "" {
		top += float64(opts.FontSize) * 2
	}
	availW := float64(opts.Width - 2*opts.Padding)
	availH := float64(opts.Height) - top - float64(opts.Padding)

	b, ok := sceneBounds(reg)
	if !ok || availW <= 0 || availH <= 0 {
		return frame{scale: 1, offset: geometry.Point{X: float64(opts.Padding), Y: top}}
	}
	scale := 1.0
	if b.Width > 0 {
		scale = math.Min(scale, availW/b.Width)
	}
	if b.Height > 0 {
		scale = math.Min(scale, availH/b.Height)
	}
	return frame{
		scale:  scale,
		origin: geometry.Point{X: b.Left, Y: b.Top},
		offset: geometry.Point{
			X: float64(opts.Padding) + (availW-b.Width*scale)/2,
			Y: top + (availH-b.Height*scale)/2,
		},
	}
}

// nodeLabel is the text drawn inside a node.
func nodeLabel(n *graph.Node) string {
	switch {
	case n.Name != "":
		return n.Name
	case n.Type != "" && n.Type != graph.TypeNode:
		return n.Type
	}
	return n.ID
}

// linkLabel names the source port of multi-output nodes, with the output
// index for broadcast links. Single-output links carry no label.
func linkLabel(reg *graph.Registry, l *graph.Link) string {
	n := reg.Node(l.FromNodeID)
	if n == nil || (len(n.FromPorts) <= 1 && !n.IsBroadcast()) {
		return ""
	}
	if n.IsBroadcast() {
		return fmt.Sprintf("%s[%d]", l.FromPortID, l.FromPortIndex)
	}
	return l.FromPortID
}

// linkPolyline returns the drawable polyline of a link, flattening curves.
func linkPolyline(l *graph.Link) []geometry.Point {
	if l.Routing == geometry.Curved && len(l.Path) == 4 {
		return geometry.FlattenSpline(l.Path, 48)
	}
	return l.Path
}
