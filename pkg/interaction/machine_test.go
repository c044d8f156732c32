package interaction

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

func scene(t *testing.T) (*graph.Registry, *graph.Node, *graph.Element) {
	t.Helper()
	reg := graph.NewRegistry()
	n := &graph.Node{ID: "n", Width: 100, Height: 40, Descriptor: graph.DefaultDescriptor()}
	require.NoError(t, n.CreatePorts(40))
	require.NoError(t, reg.Add(n))
	e := &graph.Element{ID: "e", Type: graph.TypeText}
	require.NoError(t, reg.Add(e))
	return reg, n, e
}

func TestPolicyAppliedOnTransition(t *testing.T) {
	reg, n, e := scene(t)
	m := New(reg)

	assert.True(t, n.Selectable)
	assert.True(t, n.Evented)
	assert.False(t, n.ToPort.Selectable)
	assert.True(t, n.ToPort.Evented)
	assert.True(t, e.Selectable)

	m.Linking()
	assert.False(t, n.Selectable)
	assert.True(t, n.Evented, "nodes stay clickable as link targets")
	assert.True(t, n.FromPorts[0].Evented)
	assert.False(t, e.Evented)

	m.Grab()
	assert.False(t, n.Evented)
	assert.Equal(t, CursorGrab, n.HoverCursor)
}

func TestTransitionsAreIdempotent(t *testing.T) {
	reg, _, _ := scene(t)
	m := New(reg)
	var seen []Mode
	m.OnInteraction = func(mode Mode) { seen = append(seen, mode) }

	m.Selection()
	m.Linking()
	m.Linking()
	m.Selection()
	m.Selection()

	assert.Equal(t, []Mode{ModeLink, ModeSelection}, seen)
}

func TestAllows(t *testing.T) {
	m := New(nil)
	assert.True(t, m.Allows(ActMove))
	assert.False(t, m.Allows(ActPan))

	m.Grab()
	assert.True(t, m.Allows(ActPan))
	assert.False(t, m.Allows(ActSelect))

	m.Linking()
	assert.True(t, m.Allows(ActConnect))
	assert.False(t, m.Allows(ActDelete))

	require.NoError(t, m.Drawing(ModeArrow))
	assert.True(t, m.Allows(ActDraw))
}

func TestDrawingRejectsNonTool(t *testing.T) {
	m := New(nil)
	assert.Error(t, m.Drawing(ModeGrab))
	assert.Equal(t, ModeSelection, m.Mode())
}

func TestCancelTearsDownDraft(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Drawing(ModePolygon))
	m.AddPoint(geometry.Point{X: 0, Y: 0})
	m.AddPoint(geometry.Point{X: 10, Y: 0})
	m.MoveCursor(geometry.Point{X: 5, Y: 5})
	assert.Len(t, m.Draft(), 3)

	m.KeyDown(KeyEscape)
	assert.Equal(t, ModeSelection, m.Mode())
	assert.Empty(t, m.Draft())

	// Safe with nothing in progress
	m.Cancel()
	m.Cancel()
	assert.Equal(t, ModeSelection, m.Mode())
}

func TestCancelLinkCallsCanceller(t *testing.T) {
	m := New(nil)
	cancelled := 0
	m.SetLinkCanceller(func() {
		cancelled++
		// The link manager switches back to selection from inside its teardown.
		m.Selection()
	})

	m.Linking()
	m.Cancel()
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, ModeSelection, m.Mode())

	m.Cancel()
	assert.Equal(t, 1, cancelled)
}

func TestLineFinishesOnSecondPoint(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Drawing(ModeLine))

	_, done := m.AddPoint(geometry.Point{X: 1, Y: 1})
	assert.False(t, done)
	shape, done := m.AddPoint(geometry.Point{X: 9, Y: 9})
	require.True(t, done)
	assert.Equal(t, ModeLine, shape.Tool)
	assert.Equal(t, []geometry.Point{{X: 1, Y: 1}, {X: 9, Y: 9}}, shape.Points)
	assert.Equal(t, ModeSelection, m.Mode())
}

func TestPolygonNeedsThreePoints(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Drawing(ModePolygon))
	m.AddPoint(geometry.Point{X: 0, Y: 0})
	m.AddPoint(geometry.Point{X: 10, Y: 0})

	_, ok := m.CompleteDraft()
	assert.False(t, ok)

	m.AddPoint(geometry.Point{X: 5, Y: 8})
	shape, ok := m.CompleteDraft()
	require.True(t, ok)
	assert.Len(t, shape.Points, 3)
}

func TestPanProtocol(t *testing.T) {
	m := New(nil)
	assert.False(t, m.PanStart(geometry.Point{}), "pan needs grab mode")

	m.KeyDown(KeyGrab)
	require.Equal(t, ModeGrab, m.Mode())
	require.True(t, m.PanStart(geometry.Point{X: 10, Y: 10}))

	d, ok := m.PanMove(geometry.Point{X: 15, Y: 30})
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 5, Y: 20}, d)
	m.PanMove(geometry.Point{X: 20, Y: 30})
	assert.Equal(t, geometry.Point{X: -10, Y: -20}, m.Offset())

	m.PanEnd()
	assert.False(t, m.Panning())
	assert.Equal(t, ModeGrab, m.Mode(), "pointer up keeps grab mode")

	m.KeyUp(KeyGrab)
	assert.Equal(t, ModeSelection, m.Mode())
}

func TestKeyFromEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want Key
	}{
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), KeyEscape},
		{"ctrl-z", tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl), KeyUndo},
		{"cmd-y", tcell.NewEventKey(tcell.KeyRune, 'y', tcell.ModMeta), KeyRedo},
		{"alt-v", tcell.NewEventKey(tcell.KeyRune, 'v', tcell.ModAlt), KeyPaste},
		{"ctrl-d", tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl), KeyGrab},
		{"link", tcell.NewEventKey(tcell.KeyRune, 'l', tcell.ModNone), KeyLinkTool},
		{"delete", tcell.NewEventKey(tcell.KeyDelete, 0, tcell.ModNone), KeyDelete},
		{"other", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), KeyNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyFromEvent(tt.ev))
		})
	}
}

func TestPointerFromEvent(t *testing.T) {
	ev := tcell.NewEventMouse(3, 2, tcell.Button1, tcell.ModShift)
	p := PointerFromEvent(ev, 10, 20, geometry.Point{X: 100, Y: 0})

	assert.Equal(t, geometry.Point{X: 130, Y: 40}, p.Pos)
	assert.Equal(t, ButtonPrimary, p.Button)
	assert.True(t, p.Shift)

	wheel := PointerFromEvent(tcell.NewEventMouse(0, 0, tcell.WheelDown, tcell.ModNone), 1, 1, geometry.Point{})
	assert.Equal(t, -1, wheel.Wheel)
}

func TestTooltipLastHoverWins(t *testing.T) {
	start := time.Unix(0, 0)
	tip := NewTooltip(100 * time.Millisecond)

	tip.Hover("a", start)
	tip.Hover("b", start.Add(50*time.Millisecond))
	_, changed := tip.Tick(start.Add(120 * time.Millisecond))
	assert.False(t, changed)

	id, changed := tip.Tick(start.Add(150 * time.Millisecond))
	assert.True(t, changed)
	assert.Equal(t, "b", id)

	tip.Hover("", start.Add(200*time.Millisecond))
	id, changed = tip.Tick(start.Add(400 * time.Millisecond))
	assert.True(t, changed)
	assert.Equal(t, "", id)
}
