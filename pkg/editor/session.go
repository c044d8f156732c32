// Package editor ties the flow components into one editing session: the
// scene registry, geometry sync, link manager, interaction machine and
// transaction engine, plus the clipboard, selection, zoom and workarea.
// All session state lives on Session; nothing is package-global.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ha1tch/flow-toolkit/pkg/config"
	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/interaction"
	"github.com/ha1tch/flow-toolkit/pkg/link"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
	"github.com/ha1tch/flow-toolkit/pkg/transaction"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Handlers is the callback surface a host UI listens on. Every field is
// optional. Callbacks run synchronously on the caller's goroutine.
type Handlers struct {
	OnAdd         func(graph.Object)
	OnRemove      func(graph.Object)
	OnModified    func(op graph.Op, ids []string)
	OnSelect      func(ids []string)
	OnTransaction func(op graph.Op, undo bool)
	OnInteraction func(interaction.Mode)
	OnZoom        func(ratio float64)
}

// Options configures a session beyond its settings.
type Options struct {
	// Factory builds every object; nil means graph.DefaultFactory.
	Factory *graph.Factory

	Handlers Handlers

	// Clock replaces time.Now for throttling and tooltips.
	Clock func() time.Time
}

// Session is one open editor.
type Session struct {
	id  string
	ctx context.Context
	cfg config.Config
	now func() time.Time

	reg     *graph.Registry
	factory *graph.Factory
	sync    *graph.Synchronizer
	links   *link.Manager
	machine *interaction.Machine
	history *transaction.Engine
	tooltip *interaction.Tooltip

	workarea  *graph.Element
	selection []string
	clipboard []flowfile.Record
	pastes    int
	zoom      float64
	view      geometry.Size

	drag *dragState

	handlers Handlers
	closed   bool
}

// New opens a session with an empty scene.
func New(cfg config.Config, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	style, err := geometry.ParseRouting(cfg.Link.Style)
	if err != nil {
		return nil, err
	}
	factory := opts.Factory
	if factory == nil {
		factory = graph.DefaultFactory()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:       graph.NewID(),
		cfg:      cfg,
		now:      now,
		reg:      graph.NewRegistry(),
		factory:  factory,
		workarea: flowfile.DefaultWorkarea(cfg.Workarea.Width, cfg.Workarea.Height),
		zoom:     1,
		view:     geometry.Size{W: cfg.Workarea.Width, H: cfg.Workarea.Height},
		handlers: opts.Handlers,
	}
	s.ctx = logging.WithSession(context.Background(), s.id)

	s.sync = graph.NewSynchronizer(s.reg)
	if cfg.Grid.Enabled {
		s.sync.Grid = cfg.Grid.Size
	}

	s.machine = interaction.New(s.reg)
	s.machine.OnInteraction = func(m interaction.Mode) {
		if s.handlers.OnInteraction != nil {
			s.handlers.OnInteraction(m)
		}
	}

	s.links = link.NewManager(s.reg, s.sync, factory)
	s.links.Style = style
	s.links.SetModes(s.machine)
	s.machine.SetLinkCanceller(s.links.Cancel)

	s.history = transaction.New(s.sync, factory, transaction.Options{
		Limit:       cfg.UndoLimit,
		Throttle:    cfg.Throttle(),
		PortSpacing: cfg.Port.Spacing,
		Clock:       now,
	})
	s.history.OnReplayed = s.replayed
	s.links.SetRecorder(s.history)

	s.tooltip = interaction.NewTooltip(cfg.Throttle())

	logging.InfoContext(s.ctx, "session opened", "link_style", style.String(), "undo_limit", cfg.UndoLimit)
	return s, nil
}

// ID returns the session id, also attached to its log records.
func (s *Session) ID() string { return s.id }

// Context returns the session's logging context.
func (s *Session) Context() context.Context { return s.ctx }

// Config returns the settings the session was opened with.
func (s *Session) Config() config.Config { return s.cfg }

// Registry returns the live scene.
func (s *Session) Registry() *graph.Registry { return s.reg }

// Factory returns the object factory.
func (s *Session) Factory() *graph.Factory { return s.factory }

// Synchronizer returns the geometry synchronizer.
func (s *Session) Synchronizer() *graph.Synchronizer { return s.sync }

// Links returns the link manager.
func (s *Session) Links() *link.Manager { return s.links }

// Machine returns the interaction state machine.
func (s *Session) Machine() *interaction.Machine { return s.machine }

// History returns the transaction engine.
func (s *Session) History() *transaction.Engine { return s.history }

// Workarea returns the background workarea.
func (s *Session) Workarea() *graph.Element { return s.workarea }

// Mode returns the current interaction mode.
func (s *Session) Mode() interaction.Mode { return s.machine.Mode() }

// Close cancels any gesture in progress and drops the scene. Later calls
// fail with ErrClosed.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.machine.Cancel()
	s.tooltip.Hide()
	s.reg.Clear()
	s.selection = nil
	s.clipboard = nil
	s.closed = true
	logging.InfoContext(s.ctx, "session closed")
}

func (s *Session) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Session) save(op graph.Op, ids ...string) {
	if err := s.history.Save(op, ids...); err != nil {
		logging.ErrorContext(s.ctx, "recording change failed", "op", op, "error", err)
	}
}

func (s *Session) added(obj graph.Object) {
	if s.handlers.OnAdd != nil {
		s.handlers.OnAdd(obj)
	}
}

func (s *Session) removed(obj graph.Object) {
	if s.handlers.OnRemove != nil {
		s.handlers.OnRemove(obj)
	}
}

func (s *Session) modified(op graph.Op, ids ...string) {
	if s.handlers.OnModified != nil {
		s.handlers.OnModified(op, ids)
	}
}

// replayed runs after the engine rebuilt the scene.
func (s *Session) replayed(op graph.Op, undo bool) {
	s.pruneSelection()
	s.machine.Apply()
	if s.handlers.OnTransaction != nil {
		s.handlers.OnTransaction(op, undo)
	}
}

// Undo reverts the last structural change. Any gesture in progress is
// cancelled first.
func (s *Session) Undo() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	s.machine.Cancel()
	return s.history.Undo(s.ctx)
}

// Redo reapplies the last undone change.
func (s *Session) Redo() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	s.machine.Cancel()
	return s.history.Redo(s.ctx)
}

// node looks up a node, failing with graph.ErrNotFound.
func (s *Session) node(id string) (*graph.Node, error) {
	if n := s.reg.Node(id); n != nil {
		return n, nil
	}
	logging.WarnContext(s.ctx, "node not found", "id", id)
	return nil, fmt.Errorf("node %s: %w", id, graph.ErrNotFound)
}

// Tick advances time-driven state and reports a tooltip change.
func (s *Session) Tick() (string, bool) {
	return s.tooltip.Tick(s.now())
}

// Tooltip returns the id the tooltip currently shows.
func (s *Session) Tooltip() string { return s.tooltip.Visible() }
