package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/link"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	reg     *graph.Registry
	sync    *graph.Synchronizer
	factory *graph.Factory
	eng     *Engine
	clock   *fakeClock
}

func newFixture(opts Options) *fixture {
	reg := graph.NewRegistry()
	f := &fixture{
		reg:     reg,
		sync:    graph.NewSynchronizer(reg),
		factory: graph.DefaultFactory(),
		clock:   &fakeClock{t: time.Unix(1000, 0)},
	}
	if opts.PortSpacing == 0 {
		opts.PortSpacing = 40
	}
	opts.Clock = f.clock.Now
	f.eng = New(f.sync, f.factory, opts)
	return f
}

func (f *fixture) add(t *testing.T, id string, left, top float64) *graph.Node {
	t.Helper()
	obj, err := f.factory.New(graph.Options{ID: id, Type: graph.TypeNode})
	require.NoError(t, err)
	n := obj.(*graph.Node)
	require.NoError(t, n.CreatePorts(40))
	require.NoError(t, f.reg.Add(n))
	f.sync.MoveNode(n, left, top)
	require.NoError(t, f.eng.Save(graph.OpAdd, id))
	return n
}

func (f *fixture) undo(t *testing.T) bool {
	t.Helper()
	ran, err := f.eng.Undo(context.Background())
	require.NoError(t, err)
	return ran
}

func (f *fixture) redo(t *testing.T) bool {
	t.Helper()
	ran, err := f.eng.Redo(context.Background())
	require.NoError(t, err)
	return ran
}

func assertSnapshot(t *testing.T, want, got []byte) {
	t.Helper()
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialSnapshot(t *testing.T) {
	f := newFixture(Options{})
	assert.Equal(t, "[]", string(f.eng.Current()))
	assert.Equal(t, DefaultLimit, f.eng.Limit())
	assert.False(t, f.eng.Active())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	f := newFixture(Options{})
	states := [][]byte{f.eng.Current()}
	record := func() { states = append(states, f.eng.Current()) }

	a := f.add(t, "a", 0, 0)
	record()
	f.add(t, "b", 0, 200)
	record()
	_, err := link.Connect(f.reg, f.sync, f.factory, link.Spec{
		ID: "l1", Type: graph.TypeCurvedLink,
		FromNodeID: "a", FromPortID: graph.SingleOutPortID,
		ToNodeID: "b", ToPortID: graph.InPortID,
	})
	require.NoError(t, err)
	require.NoError(t, f.eng.Save(graph.OpAdd, "a", "b"))
	record()
	f.sync.MoveNode(a, 100, 50)
	require.NoError(t, f.eng.Save(graph.OpMoved, "a"))
	record()
	f.add(t, "c", 300, 0)
	record()

	n := len(states) - 1
	require.Equal(t, n, f.eng.UndoDepth())

	for i := n - 1; i >= 0; i-- {
		require.True(t, f.undo(t))
		assertSnapshot(t, states[i], f.eng.Current())
	}
	assert.Zero(t, f.eng.UndoDepth())
	assert.Equal(t, n, f.eng.RedoDepth())
	assert.Empty(t, f.reg.Nodes())

	for i := 1; i <= n; i++ {
		require.True(t, f.redo(t))
		assertSnapshot(t, states[i], f.eng.Current())
	}
	assert.Zero(t, f.eng.RedoDepth())

	// the rebuilt scene is live, not just the bytes
	l := f.reg.Link("l1")
	require.NotNil(t, l)
	moved := f.reg.Node("a")
	assert.Equal(t, moved.FromPorts[0].Position, l.From())
	assert.False(t, moved.FromPorts[0].Enabled)
	assert.Empty(t, graph.Validate(f.reg))
}

func TestBroadcastOrderSurvivesReplay(t *testing.T) {
	f := newFixture(Options{})
	b := &graph.Node{ID: "b", Type: graph.TypeNode, Width: 200, Height: 40,
		Descriptor: graph.Descriptor{InEnabled: true, OutPortType: graph.OutBroadcast}}
	require.NoError(t, b.CreatePorts(40))
	require.NoError(t, f.reg.Add(b))
	require.NoError(t, f.eng.Save(graph.OpAdd, "b"))
	for i, id := range []string{"x", "y", "z"} {
		f.add(t, id, float64(i*250), 200)
	}
	for _, to := range []string{"x", "y", "z"} {
		_, err := link.Connect(f.reg, f.sync, f.factory, link.Spec{
			ID: "l" + to, Type: graph.TypeLink,
			FromNodeID: "b", FromPortID: graph.BroadcastPortID,
			ToNodeID: to, ToPortID: graph.InPortID,
		})
		require.NoError(t, err)
	}
	require.NoError(t, f.eng.Save(graph.OpAdd, "b"))
	connected := f.eng.Current()

	// last fan-out link sent behind its siblings
	require.True(t, f.reg.MoveTo("lz", f.reg.IndexOf("lx")))
	require.NoError(t, f.eng.Save(graph.OpReorder, "lz"))
	reordered := f.eng.Current()
	assert.Equal(t, 2, f.reg.Link("lz").FromPortIndex)

	require.True(t, f.undo(t))
	assertSnapshot(t, connected, f.eng.Current())
	require.True(t, f.redo(t))
	assertSnapshot(t, reordered, f.eng.Current())

	assert.Empty(t, graph.Validate(f.reg))
	assert.Equal(t, 0, f.reg.Link("lx").FromPortIndex)
	assert.Equal(t, 1, f.reg.Link("ly").FromPortIndex)
	assert.Equal(t, 2, f.reg.Link("lz").FromPortIndex)
	assert.Less(t, f.reg.IndexOf("lz"), f.reg.IndexOf("lx"))
	assert.Equal(t, 3, f.reg.Node("b").OutputCount())
}

func TestStickyFieldsSurviveUndo(t *testing.T) {
	f := newFixture(Options{})
	a := f.add(t, "a", 0, 0)
	f.add(t, "b", 0, 200)
	f.sync.MoveNode(a, 40, 40)
	require.NoError(t, f.eng.Save(graph.OpMoved, "a"))

	a.Name = "Fetch"
	a.Description = "calls the API"
	a.Configuration = map[string]any{"url": "https://example.com", "retries": 3}
	a.Errors = []string{"missing token"}
	require.NoError(t, f.eng.Save(graph.OpConfiguration, "a"))
	assert.Equal(t, 3, f.eng.UndoDepth())
	assert.Zero(t, f.eng.RedoDepth())

	require.True(t, f.undo(t))
	require.True(t, f.undo(t))

	restored := f.reg.Node("a")
	require.NotNil(t, restored)
	assert.Nil(t, f.reg.Node("b"))
	assert.Equal(t, 0.0, restored.Left)
	assert.Equal(t, "Fetch", restored.Name)
	assert.Equal(t, "calls the API", restored.Description)
	assert.Equal(t, "https://example.com", restored.Configuration["url"])
	assert.EqualValues(t, 3, restored.Configuration["retries"])
	assert.Equal(t, []string{"missing token"}, restored.Errors)

	s, ok := f.eng.Sticky("a")
	require.True(t, ok)
	assert.Equal(t, "Fetch", s.Name)
}

func TestConfigurationSaveKeepsRedo(t *testing.T) {
	f := newFixture(Options{})
	a := f.add(t, "a", 0, 0)
	f.add(t, "b", 0, 200)
	require.True(t, f.undo(t))
	require.Equal(t, 1, f.eng.RedoDepth())

	a = f.reg.Node("a")
	a.Name = "renamed"
	require.NoError(t, f.eng.Save(graph.OpConfiguration))
	assert.Equal(t, 1, f.eng.RedoDepth())
	assert.Equal(t, 1, f.eng.UndoDepth())
	assert.Contains(t, string(f.eng.Current()), `"name":"renamed"`)

	require.True(t, f.redo(t))
	assert.Equal(t, "renamed", f.reg.Node("a").Name)
	assert.NotNil(t, f.reg.Node("b"))
}

func TestStructuralSaveClearsRedo(t *testing.T) {
	f := newFixture(Options{})
	f.add(t, "a", 0, 0)
	f.add(t, "b", 0, 200)
	require.True(t, f.undo(t))
	require.Equal(t, 1, f.eng.RedoDepth())

	f.add(t, "c", 200, 0)
	assert.Zero(t, f.eng.RedoDepth())
	assert.False(t, f.redo(t))
}

func TestHistoryBound(t *testing.T) {
	f := newFixture(Options{Limit: 30})
	n := f.add(t, "a", 0, 0)
	require.NoError(t, f.eng.Reset())

	states := [][]byte{f.eng.Current()}
	for i := 1; i <= 35; i++ {
		f.sync.MoveNode(n, float64(i*10), 0)
		require.NoError(t, f.eng.Save(graph.OpMoved, "a"))
		states = append(states, f.eng.Current())
	}
	require.Equal(t, 30, f.eng.UndoDepth())
	assertSnapshot(t, states[5], f.eng.Undos()[0].Snapshot)

	for i := 0; i < 30; i++ {
		require.True(t, f.undo(t))
		n = f.reg.Node("a")
	}
	assertSnapshot(t, states[5], f.eng.Current())
	assert.Equal(t, 50.0, n.Left)
	assert.False(t, f.undo(t))
}

func TestUndoThrottle(t *testing.T) {
	f := newFixture(Options{Throttle: 300 * time.Millisecond})
	f.add(t, "a", 0, 0)
	f.add(t, "b", 0, 200)
	f.add(t, "c", 0, 400)

	assert.True(t, f.undo(t))
	assert.False(t, f.undo(t), "second undo inside the window is dropped")
	assert.Equal(t, 2, f.eng.UndoDepth())

	f.clock.Advance(299 * time.Millisecond)
	assert.False(t, f.undo(t))

	f.clock.Advance(time.Millisecond)
	assert.True(t, f.undo(t))
	assert.Equal(t, 1, f.eng.UndoDepth())

	// redo has its own window
	assert.True(t, f.redo(t))
	assert.False(t, f.redo(t))
	assert.Equal(t, 1, f.eng.RedoDepth())
}

func TestEmptyUndoDoesNotStartWindow(t *testing.T) {
	f := newFixture(Options{Throttle: time.Second})
	assert.False(t, f.undo(t))
	assert.False(t, f.redo(t))

	f.add(t, "a", 0, 0)
	assert.True(t, f.undo(t))
	assert.True(t, f.redo(t))
}

func TestFailedReplayLeavesStacks(t *testing.T) {
	f := newFixture(Options{})

	// a node type the factory cannot build
	odd := &graph.Node{ID: "odd", Type: "custom", Width: 100, Height: 40, Descriptor: graph.DefaultDescriptor()}
	require.NoError(t, odd.CreatePorts(40))
	require.NoError(t, f.reg.Add(odd))
	require.NoError(t, f.eng.Save(graph.OpAdd, "odd"))
	f.add(t, "b", 0, 200)

	before := f.eng.Current()
	ran, err := f.eng.Undo(context.Background())
	assert.False(t, ran)
	assert.ErrorIs(t, err, ErrReplay)
	assert.ErrorIs(t, err, graph.ErrUnknownType)

	assert.Equal(t, 2, f.eng.UndoDepth())
	assert.Zero(t, f.eng.RedoDepth())
	assertSnapshot(t, before, f.eng.Current())
	assert.NotNil(t, f.reg.Node("odd"))
	assert.NotNil(t, f.reg.Node("b"))
	assert.False(t, f.eng.Active())
}

func TestReplayMalformed(t *testing.T) {
	f := newFixture(Options{})
	f.add(t, "a", 0, 0)

	err := f.eng.Replay(context.Background(), []byte("{"))
	assert.ErrorIs(t, err, ErrReplay)
	assert.NotNil(t, f.reg.Node("a"))
}

func TestBatchRecordsOnce(t *testing.T) {
	f := newFixture(Options{})
	err := f.eng.Batch(graph.OpPaste, func() error {
		assert.True(t, f.eng.Active())
		f.add(t, "a", 0, 0)
		f.add(t, "b", 0, 200)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.eng.UndoDepth())
	assert.Equal(t, graph.OpPaste, f.eng.Undos()[0].Op)
	assert.False(t, f.eng.Active())

	require.NoError(t, f.eng.Batch(graph.OpClear, func() error { return nil }))
	assert.Equal(t, 1, f.eng.UndoDepth(), "unchanged scene records nothing")

	require.True(t, f.undo(t))
	assert.Empty(t, f.reg.Nodes())
}

func TestNestedBatch(t *testing.T) {
	f := newFixture(Options{})
	require.NoError(t, f.eng.Batch(graph.OpImport, func() error {
		return f.eng.Batch(graph.OpAdd, func() error {
			f.add(t, "a", 0, 0)
			return nil
		})
	}))
	require.Equal(t, 1, f.eng.UndoDepth())
	assert.Equal(t, graph.OpImport, f.eng.Undos()[0].Op)
}

func TestOnReplayed(t *testing.T) {
	f := newFixture(Options{})
	type call struct {
		op   graph.Op
		undo bool
	}
	var calls []call
	f.eng.OnReplayed = func(op graph.Op, undo bool) {
		assert.False(t, f.eng.Active())
		calls = append(calls, call{op, undo})
	}
	f.add(t, "a", 0, 0)
	require.True(t, f.undo(t))
	require.True(t, f.redo(t))
	assert.Equal(t, []call{{graph.OpAdd, true}, {graph.OpAdd, false}}, calls)
}

func TestLinkManagerRecordsThroughEngine(t *testing.T) {
	f := newFixture(Options{})
	f.add(t, "a", 0, 0)
	f.add(t, "b", 0, 200)

	mgr := link.NewManager(f.reg, f.sync, f.factory)
	mgr.SetRecorder(f.eng)
	_, err := mgr.Create(link.Spec{
		FromNodeID: "a", FromPortID: graph.SingleOutPortID,
		ToNodeID: "b", ToPortID: graph.InPortID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.eng.UndoDepth())

	require.True(t, f.undo(t))
	assert.Empty(t, f.reg.Links())
	assert.True(t, f.reg.Node("a").FromPorts[0].Enabled)
	assert.True(t, f.reg.Node("b").ToPort.Enabled)
	assert.Equal(t, 3-1, f.eng.UndoDepth())
}
