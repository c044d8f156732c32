package interaction

import (
	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
)

// Key is an editor command key, independent of the terminal library.
type Key int

const (
	KeyNone Key = iota
	KeyEscape
	KeyGrab
	KeyDelete
	KeyEnter
	KeyUndo
	KeyRedo
	KeyCopy
	KeyPaste
	KeySave
	KeyLinkTool
	KeyPolygonTool
	KeyLineTool
	KeyArrowTool
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
	KeyZoomIn
	KeyZoomOut
	KeyZoomFit
	KeyAddNode
	KeyQuit
)

// KeyFromEvent maps a terminal key event to an editor key. Ctrl shortcuts are
// also accepted as Meta or Alt plus the letter, as some terminals report Cmd
// that way.
func KeyFromEvent(ev *tcell.EventKey) Key {
	mod := ev.Modifiers()
	meta := mod&(tcell.ModMeta|tcell.ModAlt) != 0
	if meta && ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'z':
			return KeyUndo
		case 'y':
			return KeyRedo
		case 'c':
			return KeyCopy
		case 'v':
			return KeyPaste
		case 's':
			return KeySave
		}
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		return KeyEscape
	case tcell.KeyCtrlD:
		return KeyGrab
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyDelete
	case tcell.KeyEnter:
		return KeyEnter
	case tcell.KeyCtrlZ:
		return KeyUndo
	case tcell.KeyCtrlY:
		return KeyRedo
	case tcell.KeyCtrlC:
		return KeyCopy
	case tcell.KeyCtrlV:
		return KeyPaste
	case tcell.KeyCtrlS:
		return KeySave
	case tcell.KeyCtrlQ:
		return KeyQuit
	case tcell.KeyUp:
		return KeyUp
	case tcell.KeyDown:
		return KeyDown
	case tcell.KeyLeft:
		return KeyLeft
	case tcell.KeyRight:
		return KeyRight
	case tcell.KeyTab:
		return KeyTab
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'l', 'L':
			return KeyLinkTool
		case 'p', 'P':
			return KeyPolygonTool
		case 'i', 'I':
			return KeyLineTool
		case 'a', 'A':
			return KeyArrowTool
		case '+', '=':
			return KeyZoomIn
		case '-':
			return KeyZoomOut
		case '0':
			return KeyZoomFit
		case 'n', 'N':
			return KeyAddNode
		case 'q', 'Q':
			return KeyQuit
		}
	}
	return KeyNone
}

// Button is a pointer button state.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

// Pointer is a pointer event in canvas coordinates.
type Pointer struct {
	Pos    geometry.Point
	Button Button
	Wheel  int // +1 up, -1 down
	Shift  bool
}

// PointerFromEvent converts a terminal mouse event into canvas coordinates.
// Each cell covers cellW x cellH canvas units; offset is the canvas position
// of the top-left visible cell.
func PointerFromEvent(ev *tcell.EventMouse, cellW, cellH float64, offset geometry.Point) Pointer {
	x, y := ev.Position()
	p := Pointer{
		Pos:   geometry.Point{X: float64(x)*cellW + offset.X, Y: float64(y)*cellH + offset.Y},
		Shift: ev.Modifiers()&tcell.ModShift != 0,
	}
	b := ev.Buttons()
	switch {
	case b&tcell.Button1 != 0:
		p.Button = ButtonPrimary
	case b&tcell.Button2 != 0:
		p.Button = ButtonSecondary
	case b&tcell.Button3 != 0:
		p.Button = ButtonMiddle
	}
	switch {
	case b&tcell.WheelUp != 0:
		p.Wheel = 1
	case b&tcell.WheelDown != 0:
		p.Wheel = -1
	}
	return p
}
