// Package transaction keeps the undo and redo history of a scene as
// serialized snapshots.
//
// Structural edits push the previous snapshot onto a bounded undo stack.
// Configuration edits only refresh a per-node cache of sticky fields (name,
// description, configuration, errors) which is laid over every snapshot on
// replay, so live values are never rolled back by undo or redo.
package transaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
	"github.com/ha1tch/flow-toolkit/pkg/throttle"
)

// ErrReplay wraps every failure to restore a snapshot.
var ErrReplay = errors.New("replay failed")

// DefaultLimit is the undo stack capacity when none is configured.
const DefaultLimit = 30

// Entry is one step of history: the scene as it was before op.
type Entry struct {
	Op       graph.Op
	Snapshot []byte
}

// Sticky holds the live values of a node's sticky fields.
type Sticky struct {
	Name          string
	Description   string
	Configuration map[string]any
	Errors        []string
}

// Options configures an Engine.
type Options struct {
	// Limit caps the undo stack; 0 means DefaultLimit.
	Limit int

	// Throttle is the minimum spacing of undo (and of redo) calls.
	Throttle time.Duration

	// PortSpacing is used to recreate ports on replay.
	PortSpacing float64

	// Clock replaces time.Now, for tests.
	Clock func() time.Time
}

// Engine records and replays scene history. It is not safe for concurrent
// use; the editor drives it from a single event loop.
type Engine struct {
	reg     *graph.Registry
	sync    *graph.Synchronizer
	factory *graph.Factory
	spacing float64
	limit   int

	undos   []Entry
	redos   []Entry
	current []byte
	sticky  map[string]Sticky

	// active is set while a replay rebuilds the scene.
	active bool
	batch  int

	undoGate *throttle.Throttle
	redoGate *throttle.Throttle

	// OnReplayed is called after a successful undo or redo.
	OnReplayed func(op graph.Op, undo bool)
}

// New creates an engine over the scene held by sync's registry and takes
// the initial snapshot.
func New(sync *graph.Synchronizer, factory *graph.Factory, opts Options) *Engine {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	e := &Engine{
		reg:      sync.Registry(),
		sync:     sync,
		factory:  factory,
		spacing:  opts.PortSpacing,
		limit:    limit,
		sticky:   make(map[string]Sticky),
		undoGate: throttle.New(opts.Throttle),
		redoGate: throttle.New(opts.Throttle),
	}
	if opts.Clock != nil {
		e.undoGate.WithClock(opts.Clock)
		e.redoGate.WithClock(opts.Clock)
	}
	if err := e.Reset(); err != nil {
		logging.Error("initial snapshot failed", "error", err)
	}
	return e
}

// Reset drops all history and takes a fresh snapshot of the scene. Sticky
// values are kept.
func (e *Engine) Reset() error {
	e.undos = nil
	e.redos = nil
	e.undoGate.Reset()
	e.redoGate.Reset()
	snap, err := e.snapshot()
	if err != nil {
		e.current = nil
		return err
	}
	e.current = snap
	return nil
}

// Active reports whether saves are currently suppressed: during a replay or
// inside a batch.
func (e *Engine) Active() bool { return e.active || e.batch > 0 }

// Replaying reports whether a replay is rebuilding the scene.
func (e *Engine) Replaying() bool { return e.active }

// UndoDepth returns the number of undoable steps.
func (e *Engine) UndoDepth() int { return len(e.undos) }

// RedoDepth returns the number of redoable steps.
func (e *Engine) RedoDepth() int { return len(e.redos) }

// Limit returns the undo stack capacity.
func (e *Engine) Limit() int { return e.limit }

// Current returns a copy of the latest snapshot.
func (e *Engine) Current() []byte { return bytes.Clone(e.current) }

// Undos returns the undo stack, oldest first.
func (e *Engine) Undos() []Entry { return append([]Entry(nil), e.undos...) }

// Sticky returns the cached sticky values of a node.
func (e *Engine) Sticky(nodeID string) (Sticky, bool) {
	s, ok := e.sticky[nodeID]
	return s, ok
}

func (e *Engine) snapshot() ([]byte, error) {
	data, err := flowfile.MarshalRecords(flowfile.Serialize(e.reg))
	if err != nil {
		return nil, fmt.Errorf("serializing scene: %w", err)
	}
	return data, nil
}

// Save records a change made to the live scene. A configuration save only
// refreshes the sticky cache of nodeIDs (every node when none are given) and
// the current snapshot; both stacks are left alone. Any other op pushes the
// previous snapshot onto the undo stack and clears the redo stack. Saves
// are ignored while Active.
func (e *Engine) Save(op graph.Op, nodeIDs ...string) error {
	if e.Active() {
		logging.Trace("save suppressed", "op", op, "replaying", e.active, "batch", e.batch)
		return nil
	}
	snap, err := e.snapshot()
	if err != nil {
		logging.Error("save failed", "op", op, "error", err)
		return err
	}

	if op == graph.OpConfiguration {
		e.captureSticky(nodeIDs)
		e.current = snap
		logging.Debug("configuration saved", "nodes", len(nodeIDs))
		return nil
	}

	e.push(Entry{Op: op, Snapshot: e.current})
	e.redos = nil
	e.current = snap
	logging.Debug("transaction saved", "op", op, "undos", len(e.undos))
	return nil
}

func (e *Engine) push(entry Entry) {
	e.undos = append(e.undos, entry)
	if over := len(e.undos) - e.limit; over > 0 {
		e.undos = append([]Entry(nil), e.undos[over:]...)
	}
}

func (e *Engine) captureSticky(nodeIDs []string) {
	var nodes []*graph.Node
	if len(nodeIDs) == 0 {
		nodes = e.reg.Nodes()
	} else {
		for _, id := range nodeIDs {
			if n := e.reg.Node(id); n != nil {
				nodes = append(nodes, n)
			}
		}
	}
	for _, n := range nodes {
		e.sticky[n.ID] = Sticky{
			Name:          n.Name,
			Description:   n.Description,
			Configuration: graph.CloneConfiguration(n.Configuration),
			Errors:        append([]string(nil), n.Errors...),
		}
	}
}

// Batch runs fn with saves suppressed and then records a single op if the
// scene changed. fn's error is returned; changes it made are still
// recorded.
func (e *Engine) Batch(op graph.Op, fn func() error) error {
	e.batch++
	err := fn()
	e.batch--
	if e.Active() {
		return err
	}

	snap, serr := e.snapshot()
	if serr != nil {
		logging.Error("batch save failed", "op", op, "error", serr)
		return errors.Join(err, serr)
	}
	if !bytes.Equal(snap, e.current) {
		e.push(Entry{Op: op, Snapshot: e.current})
		e.redos = nil
		e.current = snap
		logging.Debug("batch saved", "op", op, "undos", len(e.undos))
	}
	return err
}

// Undo restores the snapshot taken before the most recent structural
// change. It reports whether a step was replayed. An empty stack or a call
// inside the throttle window is a silent no-op; a failed replay leaves the
// scene and both stacks as they were.
func (e *Engine) Undo(ctx context.Context) (bool, error) {
	if len(e.undos) == 0 || e.active {
		return false, nil
	}
	if !e.undoGate.Allow() {
		logging.Trace("undo throttled")
		return false, nil
	}
	entry := e.undos[len(e.undos)-1]
	if err := e.replay(ctx, entry.Snapshot); err != nil {
		logging.ErrorContext(ctx, "undo failed", "op", entry.Op, "error", err)
		return false, err
	}
	e.undos = e.undos[:len(e.undos)-1]
	e.redos = append(e.redos, Entry{Op: entry.Op, Snapshot: e.current})
	e.settle()
	logging.DebugContext(ctx, "undo", "op", entry.Op, "undos", len(e.undos), "redos", len(e.redos))
	if e.OnReplayed != nil {
		e.OnReplayed(entry.Op, true)
	}
	return true, nil
}

// Redo reapplies the most recently undone change.
func (e *Engine) Redo(ctx context.Context) (bool, error) {
	if len(e.redos) == 0 || e.active {
		return false, nil
	}
	if !e.redoGate.Allow() {
		logging.Trace("redo throttled")
		return false, nil
	}
	entry := e.redos[len(e.redos)-1]
	if err := e.replay(ctx, entry.Snapshot); err != nil {
		logging.ErrorContext(ctx, "redo failed", "op", entry.Op, "error", err)
		return false, err
	}
	e.redos = e.redos[:len(e.redos)-1]
	e.push(Entry{Op: entry.Op, Snapshot: e.current})
	e.settle()
	logging.DebugContext(ctx, "redo", "op", entry.Op, "undos", len(e.undos), "redos", len(e.redos))
	if e.OnReplayed != nil {
		e.OnReplayed(entry.Op, false)
	}
	return true, nil
}

// settle makes the rebuilt scene the current snapshot.
func (e *Engine) settle() {
	snap, err := e.snapshot()
	if err != nil {
		logging.Error("snapshot after replay failed", "error", err)
		return
	}
	e.current = snap
}

// Replay rebuilds the scene from a snapshot with the sticky cache applied.
// The history is not touched.
func (e *Engine) Replay(ctx context.Context, snapshot []byte) error {
	if e.active {
		return fmt.Errorf("%w: replay already running", ErrReplay)
	}
	return e.replay(ctx, snapshot)
}

func (e *Engine) replay(ctx context.Context, snapshot []byte) error {
	records, err := flowfile.ParseRecords(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReplay, err)
	}
	e.applySticky(records)

	e.active = true
	defer func() { e.active = false }()

	staged := graph.NewRegistry()
	b := flowfile.Builder{Factory: e.factory, PortSpacing: e.spacing}
	if err := b.Build(ctx, staged, e.sync.WithRegistry(staged), records); err != nil {
		return fmt.Errorf("%w: %w", ErrReplay, err)
	}
	e.reg.Replace(staged)
	e.sync.SyncAll()
	return nil
}

func (e *Engine) applySticky(records []flowfile.Record) {
	for i := range records {
		r := &records[i]
		if r.Kind != flowfile.KindNode {
			continue
		}
		s, ok := e.sticky[r.ID]
		if !ok {
			continue
		}
		r.Name = s.Name
		r.Description = s.Description
		r.Configuration = graph.CloneConfiguration(s.Configuration)
		r.Errors = append([]string(nil), s.Errors...)
	}
}
