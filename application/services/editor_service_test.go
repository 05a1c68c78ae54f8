package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas2/application/ports"
	"canvas2/application/selection"
	domaincfg "canvas2/domain/config"
	"canvas2/domain/core/aggregates"
	"canvas2/domain/core/valueobjects"
	"canvas2/domain/history"
	pkgerrors "canvas2/pkg/errors"
)

// recordingScheduler captures scheduled refs without any debouncing
type recordingScheduler struct {
	refs    []ports.EntityRef
	flushes int
	drains  int
}

func (s *recordingScheduler) ScheduleWrite(ref ports.EntityRef) {
	s.refs = append(s.refs, ref)
}

func (s *recordingScheduler) Flush(ctx context.Context) error {
	s.flushes++
	return nil
}

func (s *recordingScheduler) FlushAndWait(ctx context.Context) error {
	s.drains++
	return nil
}

// tickingClock hands out strictly increasing millisecond timestamps
type tickingClock struct {
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type editorFixture struct {
	editor    *EditorService
	scheduler *recordingScheduler
	selection *selection.State
	clock     *tickingClock
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	sched := &recordingScheduler{}
	sel := selection.NewState()
	clock := newTickingClock()
	cfg := domaincfg.DefaultDomainConfig()
	editor := NewEditorService(
		aggregates.NewGraph(),
		history.NewLog(cfg.HistoryCapacity, cfg.CoalesceWindow),
		sched,
		sel,
		cfg,
		nil,
		WithClock(clock.Now),
	)
	return &editorFixture{editor: editor, scheduler: sched, selection: sel, clock: clock}
}

func position(t *testing.T, x, y float64) valueobjects.Position {
	t.Helper()
	p, err := valueobjects.NewPosition(x, y)
	require.NoError(t, err)
	return p
}

func TestEditorService_CreateNode(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)

	// Act
	id, err := f.editor.CreateNode(position(t, 10, 20), valueobjects.ContentKind("note"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.editor.Version())

	snap := f.editor.Snapshot()
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, id, snap.Nodes[0].ID)
	assert.Equal(t, 10.0, snap.Nodes[0].Position.X())
	assert.Equal(t, snap.Nodes[0].CreatedAt, snap.Nodes[0].UpdatedAt)

	// The new node is scheduled for persistence
	require.Len(t, f.scheduler.refs, 1)
	assert.Equal(t, ports.NodeRef(id), f.scheduler.refs[0])
}

func TestEditorService_DeleteNode_UndoRedoRoundTrip(t *testing.T) {
	// Arrange: A at (0,0), B at (100,100), one edge A -> B
	f := newEditorFixture(t)
	a, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	b, err := f.editor.CreateNode(position(t, 100, 100), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	_, err = f.editor.CreateEdge(a, b, valueobjects.ColorToken("blue"))
	require.NoError(t, err)

	beforeDelete := f.editor.Snapshot()

	// Act: delete A (cascades to the edge), undo, redo
	require.NoError(t, f.editor.DeleteNode(a))
	afterDelete := f.editor.Snapshot()
	require.Len(t, afterDelete.Nodes, 1)
	require.Len(t, afterDelete.Edges, 0)

	require.True(t, f.editor.Undo())
	afterUndo := f.editor.Snapshot()

	require.True(t, f.editor.Redo())
	afterRedo := f.editor.Snapshot()

	// Assert: undo restored node and edge with identical state, timestamps
	// included; redo removed them again
	assert.Equal(t, beforeDelete.Nodes, afterUndo.Nodes)
	assert.Equal(t, beforeDelete.Edges, afterUndo.Edges)
	assert.Equal(t, afterDelete.Nodes, afterRedo.Nodes)
	assert.Equal(t, afterDelete.Edges, afterRedo.Edges)

	// The version counter only ever moves forward
	assert.Greater(t, afterUndo.Version, afterDelete.Version)
	assert.Greater(t, afterRedo.Version, afterUndo.Version)
}

func TestEditorService_DeleteNode_CascadeCoversAllIncidentEdges(t *testing.T) {
	// Arrange: hub with three incident edges in both directions
	f := newEditorFixture(t)
	hub, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)

	var others []valueobjects.NodeID
	for i := 0; i < 3; i++ {
		id, err := f.editor.CreateNode(position(t, float64(i+1)*50, 0), valueobjects.ContentKind("note"))
		require.NoError(t, err)
		others = append(others, id)
	}
	_, err = f.editor.CreateEdge(hub, others[0], valueobjects.NoColor)
	require.NoError(t, err)
	_, err = f.editor.CreateEdge(others[1], hub, valueobjects.NoColor)
	require.NoError(t, err)
	_, err = f.editor.CreateEdge(hub, others[2], valueobjects.NoColor)
	require.NoError(t, err)

	before := f.editor.Snapshot()
	require.Len(t, before.Edges, 3)

	// Act: one delete, one undo
	require.NoError(t, f.editor.DeleteNode(hub))
	assert.Len(t, f.editor.Snapshot().Edges, 0)
	require.True(t, f.editor.Undo())

	// Assert: a single undo restored the node and every edge
	after := f.editor.Snapshot()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Edges, after.Edges)
}

func TestEditorService_MoveNode_CoalescesIntoOneUndoStep(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	origin := f.editor.Snapshot().Nodes[0]

	// Act: a fifty-step drag, each step one clock tick apart
	for i := 1; i <= 50; i++ {
		require.NoError(t, f.editor.MoveNode(id, position(t, float64(i*10), 0)))
	}
	require.Len(t, f.editor.Snapshot().Nodes, 1)
	assert.Equal(t, 500.0, f.editor.Snapshot().Nodes[0].Position.X())

	// Assert: one undo reverts the whole drag, second undo removes the node
	require.True(t, f.editor.Undo())
	got := f.editor.Snapshot().Nodes[0]
	assert.Equal(t, origin, got)

	require.True(t, f.editor.Undo())
	assert.Len(t, f.editor.Snapshot().Nodes, 0)
}

func TestEditorService_MoveNode_NoopMoveDoesNothing(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 5, 5), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	version := f.editor.Version()

	// Act
	require.NoError(t, f.editor.MoveNode(id, position(t, 5, 5)))

	// Assert
	assert.Equal(t, version, f.editor.Version())
}

func TestEditorService_UpdateNode_NoopPatchDoesNothing(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	version := f.editor.Version()
	schedules := len(f.scheduler.refs)

	kind := valueobjects.ContentKind("note")

	// Act: the patch re-states the current kind
	require.NoError(t, f.editor.UpdateNode(id, NodePatch{Kind: &kind}))

	// Assert: no version bump, no history entry, nothing scheduled
	assert.Equal(t, version, f.editor.Version())
	assert.Len(t, f.scheduler.refs, schedules)
	require.True(t, f.editor.Undo())
	assert.Len(t, f.editor.Snapshot().Nodes, 0)
}

func TestEditorService_UpdateNode_RejectsOutOfBoundsSize(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)

	huge := valueobjects.RawSize(100000, 100000)

	// Act
	err = f.editor.UpdateNode(id, NodePatch{Size: &huge})

	// Assert
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestEditorService_Redo_ClearedByNewMutation(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	require.NoError(t, f.editor.MoveNode(id, position(t, 100, 0)))
	require.True(t, f.editor.Undo())

	// Act: a fresh mutation invalidates the redo branch
	color := valueobjects.ColorToken("red")
	require.NoError(t, f.editor.UpdateNode(id, NodePatch{Color: &color}))

	// Assert
	assert.False(t, f.editor.Redo())
}

func TestEditorService_UndoRedo_EmptyStacksReportFalse(t *testing.T) {
	f := newEditorFixture(t)
	assert.False(t, f.editor.Undo())
	assert.False(t, f.editor.Redo())
}

func TestEditorService_CreateEdge_DefaultsToSourceColor(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	a, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	b, err := f.editor.CreateNode(position(t, 100, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	color := valueobjects.ColorToken("amber")
	require.NoError(t, f.editor.UpdateNode(a, NodePatch{Color: &color}))

	// Act
	edgeID, err := f.editor.CreateEdge(a, b, valueobjects.NoColor)

	// Assert
	require.NoError(t, err)
	snap := f.editor.Snapshot()
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, edgeID, snap.Edges[0].ID)
	assert.Equal(t, color, snap.Edges[0].Color)
}

func TestEditorService_CreateEdge_RejectsDuplicateAndSelfEdge(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	a, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	b, err := f.editor.CreateNode(position(t, 100, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	_, err = f.editor.CreateEdge(a, b, valueobjects.NoColor)
	require.NoError(t, err)

	// Act + Assert
	_, err = f.editor.CreateEdge(a, b, valueobjects.NoColor)
	assert.True(t, pkgerrors.IsConflict(err))

	_, err = f.editor.CreateEdge(a, a, valueobjects.NoColor)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.editor.CreateEdge(a, valueobjects.NewNodeID(), valueobjects.NoColor)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEditorService_DeleteEdge_UndoRestoresIt(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	a, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	b, err := f.editor.CreateNode(position(t, 100, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	edgeID, err := f.editor.CreateEdge(a, b, valueobjects.ColorToken("blue"))
	require.NoError(t, err)
	before := f.editor.Snapshot().Edges

	// Act
	require.NoError(t, f.editor.DeleteEdge(edgeID))
	require.Len(t, f.editor.Snapshot().Edges, 0)
	require.True(t, f.editor.Undo())

	// Assert
	assert.Equal(t, before, f.editor.Snapshot().Edges)
}

func TestEditorService_DeleteNode_ClearsSelection(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	f.selection.Select(id)

	// Act
	require.NoError(t, f.editor.DeleteNode(id))

	// Assert
	_, ok := f.selection.Selection()
	assert.False(t, ok)
}

func TestEditorService_MutationsOnMissingEntities(t *testing.T) {
	f := newEditorFixture(t)

	assert.True(t, pkgerrors.IsNotFound(f.editor.MoveNode(valueobjects.NewNodeID(), position(t, 0, 0))))
	assert.True(t, pkgerrors.IsNotFound(f.editor.DeleteNode(valueobjects.NewNodeID())))
	assert.True(t, pkgerrors.IsNotFound(f.editor.UpdateNode(valueobjects.NewNodeID(), NodePatch{})))
	assert.True(t, pkgerrors.IsNotFound(f.editor.DeleteEdge(valueobjects.NewEdgeID())))
	assert.True(t, pkgerrors.IsNotFound(f.editor.UpdateEdge(valueobjects.NewEdgeID(), EdgePatch{})))
}

func TestEditorService_UndoSchedulesWrites(t *testing.T) {
	// Arrange: delete with cascade, then undo; the restored entities must
	// re-enter the pending set or the undo would never become durable
	f := newEditorFixture(t)
	a, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	b, err := f.editor.CreateNode(position(t, 100, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	edgeID, err := f.editor.CreateEdge(a, b, valueobjects.NoColor)
	require.NoError(t, err)
	require.NoError(t, f.editor.DeleteNode(a))

	f.scheduler.refs = nil

	// Act
	require.True(t, f.editor.Undo())

	// Assert
	assert.Contains(t, f.scheduler.refs, ports.NodeRef(a))
	assert.Contains(t, f.scheduler.refs, ports.EdgeRef(edgeID))
}

func TestEditorService_SaveAndShutdownDelegateToScheduler(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	ctx := context.Background()

	// Act
	require.NoError(t, f.editor.Save(ctx))
	require.NoError(t, f.editor.Shutdown(ctx))

	// Assert
	assert.Equal(t, 1, f.scheduler.flushes)
	assert.Equal(t, 1, f.scheduler.drains)
}

func TestEditorService_ModalTogglesSelectionVisibility(t *testing.T) {
	// Arrange
	f := newEditorFixture(t)
	id, err := f.editor.CreateNode(position(t, 0, 0), valueobjects.ContentKind("note"))
	require.NoError(t, err)
	f.selection.Select(id)

	// Act + Assert
	f.editor.BeginModal()
	_, ok := f.editor.Selection().Selection()
	assert.False(t, ok)

	f.editor.EndModal()
	got, ok := f.editor.Selection().Selection()
	require.True(t, ok)
	assert.True(t, got.Equals(id))
}
