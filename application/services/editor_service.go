// Package services hosts the EditorService, the public mutation and read
// API consumed by rendering, AI, and import collaborators.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"canvas2/application/ports"
	"canvas2/application/selection"
	domaincfg "canvas2/domain/config"
	"canvas2/domain/core/aggregates"
	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
	"canvas2/domain/history"
	pkgerrors "canvas2/pkg/errors"
	"canvas2/pkg/observability"
)

// NodePatch describes a partial node update. Nil fields are unchanged.
type NodePatch struct {
	Size  *valueobjects.Size
	Color *valueobjects.ColorToken
	Kind  *valueobjects.ContentKind
}

// EdgePatch describes a partial edge update. Nil fields are unchanged.
type EdgePatch struct {
	Color *valueobjects.ColorToken
}

// EditorService drives every user-visible graph change through one
// pipeline: build a mutation record, apply it to the graph, record it in
// the history log, and schedule the touched entities for persistence.
// All methods run on the single interaction context.
type EditorService struct {
	graph     *aggregates.Graph
	log       *history.Log
	scheduler ports.WriteScheduler
	selection *selection.State
	cfg       *domaincfg.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	// now is injectable for deterministic tests. Timestamps are created
	// at millisecond precision so storage round-trips are exact.
	now func() time.Time
}

// EditorOption customizes an EditorService
type EditorOption func(*EditorService)

// WithClock overrides the editor's time source
func WithClock(now func() time.Time) EditorOption {
	return func(e *EditorService) {
		e.now = now
	}
}

// WithMetrics attaches metric collectors
func WithMetrics(m *observability.Metrics) EditorOption {
	return func(e *EditorService) {
		e.metrics = m
	}
}

// NewEditorService creates the editor over its collaborators
func NewEditorService(
	graph *aggregates.Graph,
	log *history.Log,
	scheduler ports.WriteScheduler,
	sel *selection.State,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
	opts ...EditorOption,
) *EditorService {
	if cfg == nil {
		cfg = domaincfg.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &EditorService{
		graph:     graph,
		log:       log,
		scheduler: scheduler,
		selection: sel,
		cfg:       cfg,
		logger:    logger,
		metrics:   observability.NewNopMetrics(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Selection exposes the selection state for the shell and the router
func (e *EditorService) Selection() *selection.State {
	return e.selection
}

// Snapshot returns a consistent view of the graph. Callers re-render
// only when Version changes.
func (e *EditorService) Snapshot() aggregates.Snapshot {
	return e.graph.Snapshot()
}

// Version returns the current graph version
func (e *EditorService) Version() uint64 {
	return e.graph.Version()
}

// CreateNode creates a node at the given position with the default size
func (e *EditorService) CreateNode(position valueobjects.Position, kind valueobjects.ContentKind) (valueobjects.NodeID, error) {
	node, err := entities.NewNode(position, kind, e.now(), e.cfg)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	state := node.State()
	if err := e.apply(&history.Mutation{
		Kind:       history.KindCreateNode,
		NodeAfter:  &state,
		RecordedAt: e.now(),
	}); err != nil {
		return valueobjects.NodeID{}, err
	}

	e.logger.Debug("node created",
		zap.String("nodeID", state.ID.String()),
		zap.String("kind", state.Kind.String()),
	)
	return state.ID, nil
}

// UpdateNode applies a partial update to a node
func (e *EditorService) UpdateNode(id valueobjects.NodeID, patch NodePatch) error {
	before, ok := e.graph.NodeState(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}

	node, err := entities.ReconstructNode(before)
	if err != nil {
		return err
	}

	at := e.now()
	if patch.Size != nil {
		// Re-validate against current bounds
		size, err := valueobjects.NewSizeWithConfig(patch.Size.Width(), patch.Size.Height(), e.cfg)
		if err != nil {
			return err
		}
		node.Resize(size, at)
	}
	if patch.Color != nil {
		node.SetColor(*patch.Color, at)
	}
	if patch.Kind != nil {
		if err := node.SetKind(*patch.Kind, at); err != nil {
			return err
		}
	}

	after := node.State()
	if after == before {
		return nil
	}

	return e.apply(&history.Mutation{
		Kind:       history.KindUpdateNode,
		NodeBefore: &before,
		NodeAfter:  &after,
		RecordedAt: at,
	})
}

// MoveNode moves a node. Rapid moves of the same node coalesce into one
// history entry and one persisted write.
func (e *EditorService) MoveNode(id valueobjects.NodeID, position valueobjects.Position) error {
	before, ok := e.graph.NodeState(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	if position.Equals(before.Position) {
		return nil
	}

	node, err := entities.ReconstructNode(before)
	if err != nil {
		return err
	}

	at := e.now()
	node.MoveTo(position, at)
	after := node.State()

	return e.apply(&history.Mutation{
		Kind:       history.KindMoveNode,
		NodeBefore: &before,
		NodeAfter:  &after,
		RecordedAt: at,
	})
}

// DeleteNode deletes a node and cascades to its incident edges. The
// cascaded edges travel in the same history entry so one undo restores
// node and edges atomically.
func (e *EditorService) DeleteNode(id valueobjects.NodeID) error {
	before, ok := e.graph.NodeState(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}

	cascade := e.graph.IncidentEdges(id)
	if err := e.apply(&history.Mutation{
		Kind:          history.KindDeleteNode,
		NodeBefore:    &before,
		CascadedEdges: cascade,
		RecordedAt:    e.now(),
	}); err != nil {
		return err
	}

	if sel, ok := e.selection.Selection(); ok && sel.Equals(id) {
		e.selection.ClearSelection()
	}

	e.logger.Debug("node deleted",
		zap.String("nodeID", id.String()),
		zap.Int("cascadedEdges", len(cascade)),
	)
	return nil
}

// CreateEdge connects two nodes. An unset color defaults to the source
// node's color token.
func (e *EditorService) CreateEdge(sourceID, targetID valueobjects.NodeID, color valueobjects.ColorToken) (valueobjects.EdgeID, error) {
	source, ok := e.graph.NodeState(sourceID)
	if !ok {
		return valueobjects.EdgeID{}, pkgerrors.NewNotFoundError(fmt.Sprintf("source node %s", sourceID))
	}
	if _, ok := e.graph.NodeState(targetID); !ok {
		return valueobjects.EdgeID{}, pkgerrors.NewNotFoundError(fmt.Sprintf("target node %s", targetID))
	}
	if !e.cfg.AllowDuplicateEdges && e.graph.HasDuplicateEdge(sourceID, targetID) {
		return valueobjects.EdgeID{}, pkgerrors.NewConflictError("connection already exists")
	}

	if !color.IsSet() {
		color = source.Color
	}

	edge, err := entities.NewEdge(sourceID, targetID, color, e.now(), e.cfg)
	if err != nil {
		return valueobjects.EdgeID{}, err
	}

	state := edge.State()
	if err := e.apply(&history.Mutation{
		Kind:       history.KindCreateEdge,
		EdgeAfter:  &state,
		RecordedAt: e.now(),
	}); err != nil {
		return valueobjects.EdgeID{}, err
	}
	return state.ID, nil
}

// UpdateEdge applies a partial update to an edge
func (e *EditorService) UpdateEdge(id valueobjects.EdgeID, patch EdgePatch) error {
	before, ok := e.graph.EdgeState(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", id))
	}

	edge, err := entities.ReconstructEdge(before)
	if err != nil {
		return err
	}
	if patch.Color != nil {
		edge.SetColor(*patch.Color)
	}

	after := edge.State()
	if after == before {
		return nil
	}

	return e.apply(&history.Mutation{
		Kind:       history.KindUpdateEdge,
		EdgeBefore: &before,
		EdgeAfter:  &after,
		RecordedAt: e.now(),
	})
}

// DeleteEdge removes an edge
func (e *EditorService) DeleteEdge(id valueobjects.EdgeID) error {
	before, ok := e.graph.EdgeState(id)
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", id))
	}

	return e.apply(&history.Mutation{
		Kind:       history.KindDeleteEdge,
		EdgeBefore: &before,
		RecordedAt: e.now(),
	})
}

// Undo reverts the most recent history entry. Returns false when there
// is nothing to undo.
func (e *EditorService) Undo() bool {
	ok, err := e.log.Undo(e.replay)
	if err != nil {
		e.logger.Error("undo failed, history unchanged", zap.Error(err))
		return false
	}
	if ok {
		e.metrics.UndoTotal.Inc()
		e.metrics.HistoryDepth.Set(float64(e.log.UndoDepth()))
	}
	return ok
}

// Redo re-applies the most recently undone entry. Returns false when
// there is nothing to redo.
func (e *EditorService) Redo() bool {
	ok, err := e.log.Redo(e.replay)
	if err != nil {
		e.logger.Error("redo failed, history unchanged", zap.Error(err))
		return false
	}
	if ok {
		e.metrics.RedoTotal.Inc()
		e.metrics.HistoryDepth.Set(float64(e.log.UndoDepth()))
	}
	return ok
}

// BeginModal opens a modal surface; input routes exclusively to it
func (e *EditorService) BeginModal() {
	e.selection.BeginModal()
}

// EndModal closes the innermost modal surface
func (e *EditorService) EndModal() {
	e.selection.EndModal()
}

// Save flushes all pending writes eagerly, in addition to the debounce
// timer
func (e *EditorService) Save(ctx context.Context) error {
	return e.scheduler.Flush(ctx)
}

// Shutdown drains every pending write synchronously. This is the single
// defined shutdown boundary; no other path blocks on persistence.
func (e *EditorService) Shutdown(ctx context.Context) error {
	return e.scheduler.FlushAndWait(ctx)
}

// apply runs the full mutation pipeline: graph apply, history record,
// persistence scheduling
func (e *EditorService) apply(m *history.Mutation) error {
	if err := e.graph.Apply(m); err != nil {
		e.metrics.MutationRejected.WithLabelValues(string(m.Kind)).Inc()
		return err
	}

	evictedBefore := e.log.Evicted()
	e.log.Record(m)
	e.scheduleTouched(m)

	if d := e.log.Evicted() - evictedBefore; d > 0 {
		e.metrics.HistoryEvictions.Add(float64(d))
	}
	e.metrics.MutationsApplied.WithLabelValues(string(m.Kind)).Inc()
	e.metrics.HistoryDepth.Set(float64(e.log.UndoDepth()))
	return nil
}

// replay applies an undo/redo mutation without recording it, scheduling
// the touched entities exactly like a live mutation. A replay that
// skipped the pending set would be a write nothing retries on failure.
func (e *EditorService) replay(m *history.Mutation) error {
	if err := e.graph.Apply(m); err != nil {
		return err
	}
	e.scheduleTouched(m)
	return nil
}

// scheduleTouched schedules a write for every entity the mutation
// affected, immediately after the mutation so the captured state is the
// one the mutation produced
func (e *EditorService) scheduleTouched(m *history.Mutation) {
	for _, id := range m.TouchedNodes() {
		e.scheduler.ScheduleWrite(ports.NodeRef(id))
	}
	for _, id := range m.TouchedEdges() {
		e.scheduler.ScheduleWrite(ports.EdgeRef(id))
	}
}
