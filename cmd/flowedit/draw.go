package main

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/interaction"
	"github.com/ha1tch/flow-toolkit/pkg/link"
)

// Canvas units covered by one terminal cell at zoom 1. Cells are about
// twice as tall as they are wide.
const (
	cellW = 8.0
	cellH = 16.0
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleNode       = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleNodeSel    = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleNodeError  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleNodeGroup  = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleLink       = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleLinkSel    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleLinkDraft  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	stylePort       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePortUsed   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	stylePortActive = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleElement    = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleWorkarea   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray) // Help bar on default background
	styleTooltip    = tcell.StyleDefault.Background(tcell.ColorDarkGray).Foreground(tcell.ColorWhite)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// cell is a terminal position.
type cell struct{ X, Y int }

func (ed *Editor) cellSize() (float64, float64) {
	z := ed.session.Zoom()
	return cellW / z, cellH / z
}

// toCell maps a canvas point to the terminal cell showing it.
func (ed *Editor) toCell(p geometry.Point) cell {
	cw, ch := ed.cellSize()
	return canvasCell(p, ed.session.Machine().Offset(), cw, ch)
}

func canvasCell(p, offset geometry.Point, cw, ch float64) cell {
	return cell{
		X: int(math.Floor((p.X - offset.X) / cw)),
		Y: int(math.Floor((p.Y - offset.Y) / ch)),
	}
}

// cellLine rasterises the segment a-b (Bresenham).
func cellLine(a, b cell) []cell {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	err := dx + dy
	var out []cell
	for {
		out = append(out, a)
		if a == b {
			return out
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	ed.drawCanvas()
	ed.drawSidebar(w, h)

	switch ed.mode {
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeHelp:
		ed.drawHelp(w, h)
	}

	ed.drawStatusBar(w, h)
}

// setCell draws r if c lies on the canvas.
func (ed *Editor) setCell(c cell, r rune, style tcell.Style) {
	if c.X < 0 || c.Y < 0 || c.X >= ed.canvasWidth || c.Y >= ed.canvasHeight {
		return
	}
	ed.screen.SetContent(c.X, c.Y, r, nil, style)
}

func (ed *Editor) drawCanvasString(c cell, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		ed.setCell(cell{c.X + i, c.Y}, r, style)
	}
}

func (ed *Editor) drawPolyline(pts []geometry.Point, r rune, style tcell.Style) {
	for i := 1; i < len(pts); i++ {
		for _, c := range cellLine(ed.toCell(pts[i-1]), ed.toCell(pts[i])) {
			ed.setCell(c, r, style)
		}
	}
}

func (ed *Editor) drawCanvas() {
	s := ed.session
	reg := s.Registry()
	selected := make(map[string]bool)
	for _, id := range s.Selection() {
		selected[id] = true
	}

	ed.drawFrame(s.Workarea().Rect(), '·', styleWorkarea)

	for _, obj := range reg.Objects() {
		switch v := obj.(type) {
		case *graph.Element:
			ed.drawElement(v, selected[v.ID])
		case *graph.Link:
			style := styleLink
			if selected[v.ID] {
				style = styleLinkSel
			}
			ed.drawLink(v, style)
		}
	}
	if stub := s.Links().Provisional(); stub != nil {
		ed.drawLink(stub, styleLinkDraft)
	}
	if draft := s.Machine().Draft(); len(draft) > 0 {
		ed.drawPolyline(draft, '∙', styleLinkDraft)
	}

	for _, n := range reg.Nodes() {
		ed.drawNode(n, selected[n.ID])
	}

	if id := s.Tooltip(); id != "" {
		ed.drawTooltip(id)
	}
}

func (ed *Editor) drawFrame(r geometry.Rect, ch rune, style tcell.Style) {
	tl := ed.toCell(geometry.Point{X: r.Left, Y: r.Top})
	br := ed.toCell(geometry.Point{X: r.Left + r.Width, Y: r.Top + r.Height})
	for x := tl.X; x <= br.X; x++ {
		ed.setCell(cell{x, tl.Y}, ch, style)
		ed.setCell(cell{x, br.Y}, ch, style)
	}
	for y := tl.Y; y <= br.Y; y++ {
		ed.setCell(cell{tl.X, y}, ch, style)
		ed.setCell(cell{br.X, y}, ch, style)
	}
}

func (ed *Editor) drawElement(e *graph.Element, selected bool) {
	style := styleElement
	if selected {
		style = styleLinkSel
	}
	switch e.Type {
	case graph.TypeLine, graph.TypeArrow:
		ed.drawPolyline(e.Points, '·', style)
		if e.Type == graph.TypeArrow && len(e.Points) > 1 {
			ed.setCell(ed.toCell(e.Points[len(e.Points)-1]), '►', style)
		}
	case graph.TypePolygon:
		if len(e.Points) == 0 {
			return
		}
		pts := append(append([]geometry.Point(nil), e.Points...), e.Points[0])
		ed.drawPolyline(pts, '·', style)
	case graph.TypeText:
		text, _ := e.Properties["text"].(string)
		if text == "" {
			text = "text"
		}
		ed.drawCanvasString(ed.toCell(geometry.Point{X: e.Left, Y: e.Top}), text, style)
	default:
		ed.drawFrame(e.Rect(), '░', style)
		ed.drawCanvasString(ed.toCell(geometry.Point{X: e.Left, Y: e.Top}).add(1, 1), e.Type, style)
	}
}

func (c cell) add(dx, dy int) cell { return cell{c.X + dx, c.Y + dy} }

func (ed *Editor) drawLink(l *graph.Link, style tcell.Style) {
	pts := l.Path
	if l.Routing == geometry.Curved && len(pts) == 4 {
		pts = geometry.FlattenSpline(pts, 24)
	}
	ed.drawPolyline(pts, '·', style)
	if len(pts) > 1 && l.ToNodeID != "" {
		ed.setCell(ed.toCell(pts[len(pts)-1]).add(0, -1), '▼', style)
	}
}

func (ed *Editor) drawNode(n *graph.Node, selected bool) {
	style := styleNode
	switch {
	case selected:
		style = styleNodeSel
	case len(n.Errors) > 0:
		style = styleNodeError
	case n.Group != "":
		style = styleNodeGroup
	}

	// Rotated nodes are drawn by their bounding box.
	r := n.Rect()
	if n.Angle != 0 {
		c := r.Center()
		corners := []geometry.Point{
			geometry.Rotate(geometry.Point{X: r.Left, Y: r.Top}, c, n.Angle),
			geometry.Rotate(geometry.Point{X: r.Left + r.Width, Y: r.Top}, c, n.Angle),
			geometry.Rotate(geometry.Point{X: r.Left, Y: r.Top + r.Height}, c, n.Angle),
			geometry.Rotate(geometry.Point{X: r.Left + r.Width, Y: r.Top + r.Height}, c, n.Angle),
		}
		r = geometry.Bounds(corners)
	}
	tl := ed.toCell(geometry.Point{X: r.Left, Y: r.Top})
	br := ed.toCell(geometry.Point{X: r.Left + r.Width, Y: r.Top + r.Height})
	w, h := max(br.X-tl.X+1, 3), max(br.Y-tl.Y+1, 3)
	ed.drawNodeBox(tl, w, h, style)

	label := truncate(nodeTitle(n), w-2)
	ed.drawCanvasString(cell{tl.X + (w-len([]rune(label)))/2, tl.Y + h/2}, label, style)

	for _, p := range n.Ports() {
		ed.drawPort(p)
	}
}

func (ed *Editor) drawNodeBox(tl cell, w, h int, style tcell.Style) {
	for x := 1; x < w-1; x++ {
		ed.setCell(tl.add(x, 0), '─', style)
		ed.setCell(tl.add(x, h-1), '─', style)
		for y := 1; y < h-1; y++ {
			ed.setCell(tl.add(x, y), ' ', style)
		}
	}
	for y := 1; y < h-1; y++ {
		ed.setCell(tl.add(0, y), '│', style)
		ed.setCell(tl.add(w-1, y), '│', style)
	}
	ed.setCell(tl, '╭', style)
	ed.setCell(tl.add(w-1, 0), '╮', style)
	ed.setCell(tl.add(0, h-1), '╰', style)
	ed.setCell(tl.add(w-1, h-1), '╯', style)
}

func (ed *Editor) drawPort(p *graph.Port) {
	style := stylePort
	switch {
	case p.Selected:
		style = stylePortActive
	case p.Fill == link.PortConnectedFill || len(p.Links) > 0:
		style = stylePortUsed
	}
	r := '○'
	if p.Direction == graph.FromPort {
		r = '●'
	}
	ed.setCell(ed.toCell(p.Position), r, style)
}

func nodeTitle(n *graph.Node) string {
	switch {
	case n.Name != "":
		return n.Name
	case n.Type != "" && n.Type != graph.TypeNode:
		return n.Type
	}
	return n.ID
}

func (ed *Editor) drawTooltip(id string) {
	reg := ed.session.Registry()
	var text string
	var at geometry.Point
	switch {
	case reg.Node(id) != nil:
		n := reg.Node(id)
		text = fmt.Sprintf(" %s (%s) ", nodeTitle(n), n.Descriptor.OutPortType)
		if n.Description != "" {
			text = " " + n.Description + " "
		}
		at = geometry.Point{X: n.Left, Y: n.Top + n.Height}
	case reg.Link(id) != nil:
		l := reg.Link(id)
		text = fmt.Sprintf(" %s/%s -> %s ", l.FromNodeID, l.FromPortID, l.ToNodeID)
		at = l.To()
	default:
		return
	}
	ed.drawCanvasString(ed.toCell(at).add(1, 1), text, styleTooltip)
}

func (ed *Editor) drawSidebar(w, h int) {
	x0 := ed.canvasWidth
	for y := 0; y < h-2; y++ {
		ed.screen.SetContent(x0, y, '│', nil, styleBorder)
	}
	x := x0 + 2
	y := 1
	line := func(s string, style tcell.Style) {
		if y < h-3 {
			ed.drawString(x, y, truncate(s, ed.sidebarWidth-3), style)
		}
		y++
	}

	s := ed.session
	reg := s.Registry()
	line("Flow", styleSidebarH)
	line(fmt.Sprintf("Nodes %d  Links %d", len(reg.Nodes()), len(reg.Links())), styleSidebar)
	line(fmt.Sprintf("Zoom  %.0f%%", s.Zoom()*100), styleSidebar)
	line(fmt.Sprintf("Undo  %d  Redo %d", s.History().UndoDepth(), s.History().RedoDepth()), styleSidebar)
	line(fmt.Sprintf("Links %s", s.Links().Style), styleSidebar)
	y++

	n := ed.firstSelectedNode()
	if n == nil {
		if sel := s.Selection(); len(sel) > 0 {
			line(fmt.Sprintf("%d selected", len(sel)), styleSidebarH)
		}
		return
	}
	line(nodeTitle(n), styleSidebarH)
	line("id    "+n.ID, styleSidebar)
	line("type  "+n.Type, styleSidebar)
	line("out   "+string(n.Descriptor.OutPortType), styleSidebar)
	for _, p := range n.FromPorts {
		line(fmt.Sprintf("  %s  %d link(s)", p.ID, len(p.Links)), styleSidebar)
	}
	if n.Group != "" {
		line("group "+truncate(n.Group, 8), styleSidebar)
	}
	keys := make([]string, 0, len(n.Configuration))
	for k := range n.Configuration {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		line(fmt.Sprintf("%s = %v", k, n.Configuration[k]), styleSidebar)
	}
	for _, e := range n.Errors {
		line("! "+e, styleNodeError)
	}
}

func (ed *Editor) firstSelectedNode() *graph.Node {
	for _, id := range ed.session.Selection() {
		if n := ed.session.Registry().Node(id); n != nil {
			return n
		}
	}
	return nil
}

// flashInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it appeared: two short blinks in the first
// 500ms.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= 500 {
		return false
	}
	phase := elapsed / 125
	return phase == 1 || phase == 3
}

// flashes reports whether a message type blinks when shown. Info
// messages stay steady.
func flashes(t MessageType) bool {
	return t != MsgInfo
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	// File info
	fileInfo := "[New]"
	if ed.filename != "" {
		if len(ed.filename) > 30 {
			fileInfo = filepath.Base(ed.filename)
		} else {
			fileInfo = ed.filename
		}
	}
	if ed.modified {
		fileInfo += " *"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	// Mode
	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	// Message
	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgWarning:
			style = styleMsgWarning
		case MsgSuccess:
			style = styleMsgSuccess
		}
		if flashes(ed.messageType) && flashInverted(time.Now().UnixMilli()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		msg := truncate(ed.message, max(w/2-2, 4))
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 50
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len(ed.inputPrompt), boxY+1, ed.inputBuffer+"_", styleInput)
}

var helpLines = []string{
	"n  add node          b  add broadcast node",
	"y  add yes/no node   o  edit out ports",
	"r  rename            d  describe",
	"l  link from node    Ctrl+D  pan",
	"p  polygon  i line   a  arrow",
	"g  group             u  ungroup",
	"[ ]  back/forward    { }  bottom/top",
	"+ -  zoom            0  zoom to fit",
	"s  link style        w  grid snapping",
	"e  export PNG        E  export SVG",
	"v  validate          x  arrange (cycles)",
	"Tab  next node",
	"Ctrl+Z/Y  undo/redo  Ctrl+C/V  copy/paste",
	"Ctrl+S  save         q  quit",
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := 48
	boxH := len(helpLines) + 4
	x := max((w-boxW)/2, 0)
	y := max((h-boxH)/2, 0)
	ed.drawBox(x, y, boxW, boxH, styleDefault)
	ed.drawString(x+(boxW-6)/2, y, " Keys ", styleSidebarH)
	for i, l := range helpLines {
		ed.drawString(x+2, y+2+i, l, styleSidebar)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	// Horizontal borders
	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}

	// Vertical borders
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		ed.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeInput:
		return "INPUT"
	case ModeHelp:
		return "HELP"
	}
	switch ed.session.Mode() {
	case interaction.ModeGrab:
		return "PAN"
	case interaction.ModeLink:
		return "LINK"
	case interaction.ModePolygon:
		return "POLYGON"
	case interaction.ModeLine:
		return "LINE"
	case interaction.ModeArrow:
		return "ARROW"
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	case ModeHelp:
		return "Any key:Close"
	}
	switch ed.session.Mode() {
	case interaction.ModeGrab:
		return "Drag:Pan  Ctrl+D:Done"
	case interaction.ModeLink:
		return "Click a node or input port to connect  Esc:Cancel"
	case interaction.ModePolygon:
		return "Click:Add point  Enter:Finish  Esc:Cancel"
	case interaction.ModeLine, interaction.ModeArrow:
		return "Click start and end  Esc:Cancel"
	}
	return "n:Node  l:Link  Del:Delete  r:Rename  Ctrl+Z:Undo  Ctrl+S:Save  ?:Help  q:Quit"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
