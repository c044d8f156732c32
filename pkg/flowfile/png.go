// Native PNG rendering, mirroring the SVG exporter with Go's image packages.

package flowfile

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// supersample is the render multiplier before downsampling.
const supersample = 4

var (
	colorWhite    = color.RGBA{255, 255, 255, 255}
	colorInk      = color.RGBA{51, 51, 51, 255}   // #333
	colorMuted    = color.RGBA{102, 102, 102, 255} // #666
	colorPort     = color.RGBA{158, 158, 158, 255} // #9e9e9e
	colorErrFill  = color.RGBA{255, 235, 238, 255} // #ffebee
	colorErrInk   = color.RGBA{198, 40, 40, 255}   // #c62828
	colorConnFill = color.RGBA{76, 175, 80, 255}   // #4caf50
)

// renderContext holds the canvas and the scale-dependent drawing parameters.
type renderContext struct {
	img       *image.RGBA
	scale     float64
	lineWidth float64
	face      font.Face
	frame     frame
}

func newRenderContext(img *image.RGBA, fontSize, scale int, fr frame) (*renderContext, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(fontSize * scale),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	return &renderContext{
		img:       img,
		scale:     float64(scale),
		lineWidth: float64(scale) * 1.5,
		face:      face,
		frame:     fr,
	}, nil
}

// px maps a scene point onto the supersampled canvas.
func (ctx *renderContext) px(p geometry.Point) geometry.Point {
	return ctx.frame.point(p).Scale(ctx.scale)
}

// RenderPNG renders the scene to PNG using 4x supersampling.
func RenderPNG(reg *graph.Registry, w io.Writer, opts RenderOptions) error {
	opts = opts.withDefaults()
	fr := fit(reg, opts)

	large := image.NewRGBA(image.Rect(0, 0, opts.Width*supersample, opts.Height*supersample))
	draw.Draw(large, large.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)

	ctx, err := newRenderContext(large, opts.FontSize, supersample, fr)
	if err != nil {
		return err
	}
	renderScene(ctx, reg, opts)

	final := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Over, nil)
	return png.Encode(w, final)
}

func renderScene(ctx *renderContext, reg *graph.Registry, opts RenderOptions) {
	if opts.Title != "" {
		y := float64(opts.Padding/2+opts.FontSize) * ctx.scale
		drawTextCentered(ctx, float64(opts.Width)*ctx.scale/2, y, opts.Title, colorInk)
	}

	for _, e := range reg.Elements() {
		if e.Type == graph.TypeWorkarea {
			continue
		}
		drawElement(ctx, e)
	}

	for _, l := range reg.Links() {
		line := linkPolyline(l)
		if len(line) < 2 {
			continue
		}
		pts := make([]geometry.Point, len(line))
		for i, p := range line {
			pts[i] = ctx.px(p)
		}
		drawPolyline(ctx, pts, colorInk)
		drawArrowHead(ctx, pts[len(pts)-2], pts[len(pts)-1], colorInk)
	}

	for _, n := range reg.Nodes() {
		fill, ink := colorWhite, colorInk
		if len(n.Errors) > 0 {
			fill, ink = colorErrFill, colorErrInk
		}
		corners := nodeCorners(n)
		for i := range corners {
			corners[i] = ctx.px(corners[i])
		}
		fillPolygon(ctx, corners, fill)
		drawPolyline(ctx, append(corners, corners[0]), ink)

		c := ctx.px(n.Rect().Center())
		drawTextCentered(ctx, c.X, c.Y, nodeLabel(n), colorInk)

		for _, p := range n.Ports() {
			if !p.Enabled && !p.Connected {
				continue
			}
			pc := ctx.px(p.Position)
			r := math.Max(4*ctx.frame.scale, 2) * ctx.scale
			portFill := colorPort
			if p.Connected {
				portFill = colorConnFill
			}
			drawEllipse(ctx, pc.X, pc.Y, r, r, portFill, colorInk)
		}
	}
}

// nodeCorners returns the node outline in scene coordinates, rotated about
// its centre.
func nodeCorners(n *graph.Node) []geometry.Point {
	r := n.Rect()
	c := r.Center()
	corners := []geometry.Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right(), Y: r.Top},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.Left, Y: r.Bottom()},
	}
	if n.Angle != 0 {
		for i := range corners {
			corners[i] = geometry.Rotate(corners[i], c, n.Angle)
		}
	}
	return corners
}

func drawElement(ctx *renderContext, e *graph.Element) {
	pts := make([]geometry.Point, len(e.Points))
	for i, p := range e.Points {
		pts[i] = ctx.px(p)
	}
	switch e.Type {
	case graph.TypePolygon:
		if len(pts) > 1 {
			drawPolyline(ctx, append(pts, pts[0]), colorMuted)
		}
	case graph.TypeLine:
		drawPolyline(ctx, pts, colorMuted)
	case graph.TypeArrow:
		drawPolyline(ctx, pts, colorMuted)
		if len(pts) >= 2 {
			drawArrowHead(ctx, pts[len(pts)-2], pts[len(pts)-1], colorMuted)
		}
	case graph.TypeText:
		text, _ := e.Properties["text"].(string)
		c := ctx.px(e.Rect().Center())
		drawTextCentered(ctx, c.X, c.Y, text, colorInk)
	default:
		r := ctx.frame.rect(e.Rect())
		tl := geometry.Point{X: r.Left, Y: r.Top}.Scale(ctx.scale)
		br := geometry.Point{X: r.Right(), Y: r.Bottom()}.Scale(ctx.scale)
		drawPolyline(ctx, []geometry.Point{tl, {X: br.X, Y: tl.Y}, br, {X: tl.X, Y: br.Y}, tl}, colorMuted)
	}
}

// drawEllipse draws an ellipse outline and optional fill.
func drawEllipse(ctx *renderContext, cx, cy, rx, ry float64, fill, stroke color.Color) {
	img := ctx.img
	thickness := ctx.lineWidth

	if fill != color.Transparent {
		for dy := -ry; dy <= ry; dy++ {
			yNorm := dy / ry
			if yNorm*yNorm <= 1 {
				xExtent := rx * math.Sqrt(1-yNorm*yNorm)
				for dx := -xExtent; dx <= xExtent; dx++ {
					img.Set(int(cx+dx), int(cy+dy), fill)
				}
			}
		}
	}

	for angle := 0.0; angle < 2*math.Pi; angle += 0.01 {
		nx, ny := math.Cos(angle), math.Sin(angle)
		x := cx + rx*nx
		y := cy + ry*ny
		for t := -thickness / 2; t <= thickness/2; t += 0.5 {
			img.Set(int(x+nx*t), int(y+ny*t), stroke)
		}
	}
}

// fillPolygon fills a convex or concave polygon with even-odd scanlines.
func fillPolygon(ctx *renderContext, pts []geometry.Point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	b := geometry.Bounds(pts)
	for y := math.Floor(b.Top); y <= b.Bottom(); y++ {
		sy := y + 0.5
		var xs []float64
		for i := range pts {
			a, z := pts[i], pts[(i+1)%len(pts)]
			if (a.Y <= sy) == (z.Y <= sy) {
				continue
			}
			xs = append(xs, a.X+(sy-a.Y)*(z.X-a.X)/(z.Y-a.Y))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := math.Floor(xs[i]); x <= xs[i+1]; x++ {
				ctx.img.Set(int(x), int(y), c)
			}
		}
	}
}

func drawPolyline(ctx *renderContext, pts []geometry.Point, c color.Color) {
	for i := 1; i < len(pts); i++ {
		drawLine(ctx, pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, c)
	}
}

// drawLine draws a line between two points with thickness from context.
func drawLine(ctx *renderContext, x1, y1, x2, y2 float64, c color.Color) {
	img := ctx.img
	halfThick := ctx.lineWidth / 2

	dx := x2 - x1
	dy := y2 - y1
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		for ty := -halfThick; ty <= halfThick; ty++ {
			for tx := -halfThick; tx <= halfThick; tx++ {
				img.Set(int(x1+tx), int(y1+ty), c)
			}
		}
		return
	}

	steps := math.Max(math.Abs(dx), math.Abs(dy))
	perpX := -dy / dist
	perpY := dx / dist
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx := x1 + dx*t
		cy := y1 + dy*t
		for offset := -halfThick; offset <= halfThick; offset += 0.5 {
			img.Set(int(cx+perpX*offset), int(cy+perpY*offset), c)
		}
	}
}

// drawArrowHead draws a filled arrowhead at `to`, pointing away from `from`.
func drawArrowHead(ctx *renderContext, from, to geometry.Point, c color.Color) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		return
	}
	nx, ny := dx/dist, dy/dist

	arrowLen := 8.0 * ctx.scale
	arrowWidth := 4.0 * ctx.scale
	wing1 := geometry.Point{X: to.X - nx*arrowLen + ny*arrowWidth, Y: to.Y - ny*arrowLen - nx*arrowWidth}
	wing2 := geometry.Point{X: to.X - nx*arrowLen - ny*arrowWidth, Y: to.Y - ny*arrowLen + nx*arrowWidth}
	fillPolygon(ctx, []geometry.Point{to, wing1, wing2}, c)
}

// drawTextCentered draws text centred on (x, y) in Go Regular.
func drawTextCentered(ctx *renderContext, x, y float64, text string, c color.Color) {
	if text == "" {
		return
	}
	width := font.MeasureString(ctx.face, text).Ceil()
	ascent := ctx.face.Metrics().Ascent.Ceil()

	d := &font.Drawer{
		Dst:  ctx.img,
		Src:  image.NewUniform(c),
		Face: ctx.face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(x) - width/2),
			Y: fixed.I(int(y) + int(float64(ascent)*0.35)),
		},
	}
	d.DrawString(text)
}
