package flowfile

import (
	"fmt"
	"html"
	"strings"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// GenerateSVG renders the scene as SVG, fitted into the canvas.
func GenerateSVG(reg *graph.Registry, opts RenderOptions) string {
	opts = opts.withDefaults()
	fr := fit(reg, opts)
	labelSize := max(opts.FontSize-2, 9)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#333"/>
  </marker>
</defs>
<style>
  .node { fill: white; stroke: #333; stroke-width: 2; }
  .node-error { fill: #ffebee; stroke: #c62828; stroke-width: 2; }
  .node-label { font-family: sans-serif; font-size: %dpx; text-anchor: middle; dominant-baseline: middle; }
  .port { fill: %s; stroke: #333; stroke-width: 1; }
  .link { fill: none; stroke: #333; stroke-width: 1.5; marker-end: url(#arrowhead); }
  .link-label { font-family: sans-serif; font-size: %dpx; fill: #333; text-anchor: middle; dominant-baseline: middle; }
  .element { fill: none; stroke: #666; stroke-width: 1.5; }
  .element-text { font-family: sans-serif; font-size: %dpx; fill: #333; }
  .title { font-family: sans-serif; font-size: %dpx; font-weight: bold; text-anchor: middle; }
</style>
`, opts.Width, opts.Height, opts.Width, opts.Height,
		opts.FontSize, graph.PortFill, labelSize, opts.FontSize, opts.FontSize+4)

	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="white"/>
`, opts.Width, opts.Height)

	if opts.Title != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="%d" class="title">%s</text>
`, opts.Width/2, opts.Padding/2+opts.FontSize, html.EscapeString(opts.Title))
	}

	for _, e := range reg.Elements() {
		if e.Type == graph.TypeWorkarea {
			continue
		}
		writeSVGElement(&sb, fr, e)
	}

	var obstacles []geometry.Rect
	for _, n := range reg.Nodes() {
		obstacles = append(obstacles, fr.rect(n.Rect()))
	}
	placer := geometry.NewLabelPlacer(obstacles)

	for _, l := range reg.Links() {
		if len(l.Path) < 2 {
			continue
		}
		path := make([]geometry.Point, len(l.Path))
		for i, p := range l.Path {
			path[i] = fr.point(p)
		}
		fmt.Fprintf(&sb, `<path d="%s" class="link"/>
`, svgPathData(l.Routing, path))

		if label := linkLabel(reg, l); label != "" {
			w := float64(len(label)*labelSize) * 0.6
			pos := placer.PlaceLabelOnPath(l.Routing, path, w, float64(labelSize)+4, 4)
			fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" class="link-label">%s</text>
`, pos.X, pos.Y, html.EscapeString(label))
		}
	}

	for _, n := range reg.Nodes() {
		r := fr.rect(n.Rect())
		c := r.Center()
		class := "node"
		if len(n.Errors) > 0 {
			class = "node-error"
		}
		transform := ""
		if n.Angle != 0 {
			transform = fmt.Sprintf(` transform="rotate(%.1f %.1f %.1f)"`, n.Angle, c.X, c.Y)
		}
		fmt.Fprintf(&sb, `<g%s>
<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6" class="%s"/>
<text x="%.1f" y="%.1f" class="node-label">%s</text>
</g>
`, transform, r.Left, r.Top, r.Width, r.Height, class, c.X, c.Y, html.EscapeString(nodeLabel(n)))

		for _, p := range n.Ports() {
			if !p.Enabled && !p.Connected {
				continue
			}
			pos := fr.point(p.Position)
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" class="port"/>
`, pos.X, pos.Y, max(4*fr.scale, 2))
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// svgPathData draws curved links as one cubic segment and everything else as
// a polyline.
func svgPathData(style geometry.Routing, path []geometry.Point) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "M %.1f %.1f", path[0].X, path[0].Y)
	if style == geometry.Curved && len(path) == 4 {
		fmt.Fprintf(&sb, " C %.1f %.1f, %.1f %.1f, %.1f %.1f",
			path[1].X, path[1].Y, path[2].X, path[2].Y, path[3].X, path[3].Y)
		return sb.String()
	}
	for _, p := range path[1:] {
		fmt.Fprintf(&sb, " L %.1f %.1f", p.X, p.Y)
	}
	return sb.String()
}

func writeSVGElement(sb *strings.Builder, fr frame, e *graph.Element) {
	points := make([]string, len(e.Points))
	for i, p := range e.Points {
		q := fr.point(p)
		points[i] = fmt.Sprintf("%.1f,%.1f", q.X, q.Y)
	}
	r := fr.rect(e.Rect())

	switch e.Type {
	case graph.TypePolygon:
		fmt.Fprintf(sb, `<polygon points="%s" class="element"/>
`, strings.Join(points, " "))
	case graph.TypeLine:
		fmt.Fprintf(sb, `<polyline points="%s" class="element"/>
`, strings.Join(points, " "))
	case graph.TypeArrow:
		fmt.Fprintf(sb, `<polyline points="%s" class="element" marker-end="url(#arrowhead)"/>
`, strings.Join(points, " "))
	case graph.TypeText:
		text, _ := e.Properties["text"].(string)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" class="element-text" dominant-baseline="hanging">%s</text>
`, r.Left, r.Top, html.EscapeString(text))
	default:
		fmt.Fprintf(sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" class="element" stroke-dasharray="4 2"/>
`, r.Left, r.Top, r.Width, r.Height)
	}
}
