// Command flowedit is a terminal editor for flow graphs.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"

	"github.com/ha1tch/flow-toolkit/pkg/config"
	"github.com/ha1tch/flow-toolkit/pkg/editor"
	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/interaction"
	"github.com/ha1tch/flow-toolkit/pkg/layout"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Mode is the host's own input mode, layered over the session's
// interaction mode.
type Mode int

const (
	ModeCanvas Mode = iota
	ModeInput
	ModeHelp
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

// Editor holds the terminal state around one editing session.
type Editor struct {
	screen   tcell.Screen
	session  *editor.Session
	cfg      config.Config
	filename string
	modified bool
	mode     Mode

	message           string
	messageType       MessageType
	messageFlashStart int64 // Unix milliseconds when message was shown

	// Input state
	inputBuffer string
	inputPrompt string
	inputAction func(string)

	leftDown  bool
	quitArmed bool

	// Next algorithm for the arrange key; repeated presses cycle.
	arrangeNext layout.Algorithm

	canvasWidth  int
	canvasHeight int
	sidebarWidth int
}

func main() {
	fs := pflag.NewFlagSet("flowedit", pflag.ContinueOnError)
	config.Flags(fs)
	logFile := fs.String("log-file", filepath.Join(os.TempDir(), "flowedit.log"), "where log lines go while the screen is in use")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	lf, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer lf.Close()
	logging.SetOutput(lf)
	logging.SetJSONOutput(cfg.Log.JSON)
	if lvl, err := logging.ParseLevel(cfg.Log.Level); err == nil {
		logging.SetLevel(lvl)
	}

	ed, err := newEditor(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Check command line
	if fs.NArg() > 0 {
		ed.filename = fs.Arg(0)
		if _, statErr := os.Stat(ed.filename); statErr == nil {
			if err := ed.loadFile(ed.filename); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", ed.filename, err)
				os.Exit(1)
			}
		}
	}

	// Initialize screen
	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()
	ed.screen = screen

	ed.run()

	screen.Fini()
	ed.session.Close()
}

func newEditor(cfg config.Config) (*Editor, error) {
	ed := &Editor{cfg: cfg, sidebarWidth: 30}
	s, err := editor.New(cfg, editor.Options{Handlers: editor.Handlers{
		OnAdd:      func(graph.Object) { ed.touch() },
		OnRemove:   func(graph.Object) { ed.touch() },
		OnModified: func(graph.Op, []string) { ed.touch() },
		OnTransaction: func(op graph.Op, undo bool) {
			ed.touch()
			verb := "Redo"
			if undo {
				verb = "Undo"
			}
			ed.showMessage(fmt.Sprintf("%s %s", verb, op), MsgInfo)
		},
		OnZoom: func(ratio float64) {
			ed.showMessage(fmt.Sprintf("Zoom %.0f%%", ratio*100), MsgInfo)
		},
	}})
	if err != nil {
		return nil, err
	}
	ed.session = s
	return ed, nil
}

func (ed *Editor) touch() {
	ed.modified = true
	ed.quitArmed = false
}

func (ed *Editor) run() {
	// Tooltips and message flashes are time driven; wake the loop so they
	// advance without input.
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if err := ed.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
				return
			}
		}
	}()

	ed.resize()
	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			ed.screen.Sync()
			ed.resize()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			ed.session.Tick()
		}
	}
}

func (ed *Editor) resize() {
	w, h := ed.screen.Size()
	ed.canvasWidth = max(w-ed.sidebarWidth, 1)
	ed.canvasHeight = max(h-2, 1)
	ed.session.SetView(float64(ed.canvasWidth)*cellW, float64(ed.canvasHeight)*cellH)
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	switch ed.mode {
	case ModeInput:
		ed.handleInputKey(ev)
		return false
	case ModeHelp:
		ed.mode = ModeCanvas
		return false
	}

	k := interaction.KeyFromEvent(ev)
	switch k {
	case interaction.KeyQuit:
		return ed.quit()
	case interaction.KeySave:
		ed.save()
		return false
	case interaction.KeyNone:
		ed.handleRune(ev)
		return false
	}
	ed.session.HandleKey(k)
	return false
}

// handleRune covers the host-only commands.
func (ed *Editor) handleRune(ev *tcell.EventKey) {
	if ev.Key() != tcell.KeyRune {
		return
	}
	s := ed.session
	sel := s.Selection()
	switch ev.Rune() {
	case '?':
		ed.mode = ModeHelp
	case 'r':
		if n := ed.selectedNode(); n != nil {
			ed.prompt("Name: ", n.Name, func(v string) { ed.report(s.Rename(n.ID, v)) })
		}
	case 'd':
		if n := ed.selectedNode(); n != nil {
			ed.prompt("Description: ", n.Description, func(v string) { ed.report(s.SetDescription(n.ID, v)) })
		}
	case 'o':
		if n := ed.selectedNode(); n != nil && n.Descriptor.OutPortType == graph.OutDynamic {
			ed.prompt("Out ports: ", strings.Join(n.Descriptor.OutPorts, ","), func(v string) {
				ed.report(s.SetOutPorts(n.ID, splitList(v)))
			})
		}
	case 'b':
		ed.addNode(graph.Descriptor{InEnabled: true, OutPortType: graph.OutBroadcast})
	case 'y':
		ed.addNode(graph.Descriptor{InEnabled: true, OutPortType: graph.OutDynamic, OutPorts: []string{"yes", "no"}})
	case 'g':
		if _, err := s.Group(sel...); err != nil {
			ed.showMessage(err.Error(), MsgWarning)
		} else {
			ed.showMessage("Grouped", MsgSuccess)
		}
	case 'u':
		if n := ed.selectedNode(); n != nil && n.Group != "" {
			ed.report(s.Ungroup(n.Group))
		}
	case ']':
		ed.eachSelected(s.BringForward)
	case '[':
		ed.eachSelected(s.SendBackwards)
	case '}':
		ed.eachSelected(s.BringToFront)
	case '{':
		ed.eachSelected(s.SendToBack)
	case 's':
		ed.cycleLinkStyle()
	case 'w':
		ed.toggleGrid()
	case 'e':
		ed.export("png")
	case 'E':
		ed.export("svg")
	case 'v':
		ed.validate()
	case 'x':
		ed.arrange()
	}
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.inputAction = nil
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		if action := ed.inputAction; action != nil {
			ed.inputAction = nil
			action(ed.inputBuffer)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	if x >= ed.canvasWidth || y >= ed.canvasHeight || ed.mode != ModeCanvas {
		return
	}
	cw, ch := ed.cellSize()
	p := interaction.PointerFromEvent(ev, cw, ch, ed.session.Machine().Offset())
	if p.Wheel != 0 {
		ed.session.HandlePointer(editor.PointerMove, p)
		return
	}
	down := p.Button == interaction.ButtonPrimary
	act := pointerAction(ed.leftDown, down)
	ed.leftDown = down
	ed.session.HandlePointer(act, p)
}

// pointerAction turns tcell's button state into press, drag and release.
// tcell reports state, not transitions, so the previous state is needed.
func pointerAction(wasDown, down bool) editor.PointerAction {
	switch {
	case down && !wasDown:
		return editor.PointerDown
	case !down && wasDown:
		return editor.PointerUp
	}
	return editor.PointerMove
}

func (ed *Editor) quit() bool {
	if ed.modified && !ed.quitArmed {
		ed.quitArmed = true
		ed.showMessage("Unsaved changes - press q again to quit", MsgWarning)
		return false
	}
	return true
}

func (ed *Editor) prompt(label, initial string, action func(string)) {
	ed.mode = ModeInput
	ed.inputPrompt = label
	ed.inputBuffer = initial
	ed.inputAction = action
}

func (ed *Editor) report(err error) {
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
	}
}

func (ed *Editor) selectedNode() *graph.Node {
	if n := ed.firstSelectedNode(); n != nil {
		return n
	}
	ed.showMessage("Select a node first", MsgWarning)
	return nil
}

func (ed *Editor) eachSelected(fn func(string) error) {
	for _, id := range ed.session.Selection() {
		ed.report(fn(id))
	}
}

func (ed *Editor) addNode(d graph.Descriptor) {
	c := ed.session.Viewport(float64(ed.canvasWidth)*cellW, float64(ed.canvasHeight)*cellH).Center()
	n, err := ed.session.AddNode(graph.Options{Left: c.X - 100, Top: c.Y - 20, Descriptor: &d})
	if err != nil {
		ed.report(err)
		return
	}
	ed.session.Select(n.ID)
}

func (ed *Editor) arrange() {
	algo := ed.arrangeNext
	if err := ed.session.Arrange(algo); err != nil {
		ed.report(err)
		return
	}
	ed.arrangeNext = (algo + 1) % 3
	ed.showMessage(fmt.Sprintf("Arranged: %s", algo), MsgSuccess)
}

func (ed *Editor) cycleLinkStyle() {
	next := map[geometry.Routing]geometry.Routing{
		geometry.Straight:   geometry.Curved,
		geometry.Curved:     geometry.Orthogonal,
		geometry.Orthogonal: geometry.Straight,
	}[ed.session.Links().Style]
	ed.session.Links().Style = next
	ed.cfg.Link.Style = next.String()
	ed.saveSettings(fmt.Sprintf("Link style: %s", next))
}

func (ed *Editor) toggleGrid() {
	ed.cfg.Grid.Enabled = !ed.cfg.Grid.Enabled
	ed.session.Synchronizer().Grid = 0
	if ed.cfg.Grid.Enabled {
		ed.session.Synchronizer().Grid = ed.cfg.Grid.Size
	}
	ed.saveSettings(fmt.Sprintf("Grid snapping: %v", ed.cfg.Grid.Enabled))
}

// saveSettings persists the host's settings changes to the settings file.
func (ed *Editor) saveSettings(msg string) {
	if err := config.Save(config.FileName, ed.cfg); err != nil {
		ed.showMessage("Cannot save settings: "+err.Error(), MsgError)
		return
	}
	ed.showMessage(msg, MsgSuccess)
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = time.Now().UnixMilli()
}

// File operations

func (ed *Editor) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ed.session.ImportJSON(data); err != nil {
		return err
	}
	// A freshly opened file starts with an empty history.
	ed.session.History().Reset()
	ed.modified = false
	logging.Info("opened", "path", path, "objects", ed.session.Registry().Len())
	return nil
}

func (ed *Editor) saveFile(path string) error {
	data, err := ed.session.ExportJSON(true)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	ed.modified = false
	ed.quitArmed = false
	logging.Info("saved", "path", path)
	return nil
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.prompt("Save as: ", "flow.json", func(v string) {
			if v = strings.TrimSpace(v); v != "" {
				ed.filename = v
				ed.save()
			}
		})
		return
	}
	if err := ed.saveFile(ed.filename); err != nil {
		ed.showMessage("Save failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Saved "+filepath.Base(ed.filename), MsgSuccess)
}

// export renders the scene next to the document.
func (ed *Editor) export(format string) {
	base := "flow"
	if ed.filename != "" {
		base = strings.TrimSuffix(ed.filename, filepath.Ext(ed.filename))
	}
	path := base + "." + format

	opts := flowfile.DefaultRenderOptions()
	opts.Width, opts.Height = ed.cfg.Render.Width, ed.cfg.Render.Height
	opts.Title = strings.TrimSuffix(filepath.Base(ed.filename), filepath.Ext(ed.filename))

	var err error
	switch format {
	case "svg":
		err = os.WriteFile(path, []byte(flowfile.GenerateSVG(ed.session.Registry(), opts)), 0o644)
	default:
		var f *os.File
		if f, err = os.Create(path); err == nil {
			err = flowfile.RenderPNG(ed.session.Registry(), f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		ed.showMessage("Export failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Exported "+path, MsgSuccess)
}

func (ed *Editor) validate() {
	issues := graph.Validate(ed.session.Registry())
	if len(issues) > 0 {
		ed.showMessage(fmt.Sprintf("%d issue(s): %s", len(issues), issues[0]), MsgError)
		return
	}
	a := graph.Analyse(ed.session.Registry())
	if !a.Acyclic() {
		ed.showMessage(fmt.Sprintf("Valid, %d cycle(s)", len(a.Cycles)), MsgWarning)
		return
	}
	ed.showMessage(fmt.Sprintf("Valid: %d nodes, %d links", a.Nodes, a.Links), MsgSuccess)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
