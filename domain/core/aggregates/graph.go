package aggregates

import (
	"fmt"
	"sort"

	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
	"canvas2/domain/history"
	pkgerrors "canvas2/pkg/errors"
)

// Graph is the aggregate root for the canvas graph and the single
// authority over node and edge state. All mutation flows through Apply;
// nothing mutates entities behind the aggregate's back, which keeps the
// version counter sound.
type Graph struct {
	nodes   map[valueobjects.NodeID]*entities.Node
	edges   map[valueobjects.EdgeID]*entities.Edge
	version uint64
}

// Snapshot is a consistent, deep-copied view of the graph. Renderers
// re-read only when Version changes.
type Snapshot struct {
	Nodes   []entities.NodeState
	Edges   []entities.EdgeState
	Version uint64
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[valueobjects.NodeID]*entities.Node),
		edges: make(map[valueobjects.EdgeID]*entities.Edge),
	}
}

// NewGraphFromStates reconstructs a graph from stored state. Edges whose
// endpoints are missing are invalid and returned as pruned rather than
// loaded. Timestamps pass through verbatim.
func NewGraphFromStates(nodes []entities.NodeState, edges []entities.EdgeState) (*Graph, []entities.EdgeState, error) {
	g := NewGraph()

	for _, state := range nodes {
		if _, exists := g.nodes[state.ID]; exists {
			return nil, nil, pkgerrors.NewConflictError(fmt.Sprintf("duplicate node id %s", state.ID))
		}
		node, err := entities.ReconstructNode(state)
		if err != nil {
			return nil, nil, err
		}
		g.nodes[state.ID] = node
	}

	var pruned []entities.EdgeState
	for _, state := range edges {
		if _, exists := g.edges[state.ID]; exists {
			return nil, nil, pkgerrors.NewConflictError(fmt.Sprintf("duplicate edge id %s", state.ID))
		}
		if !g.hasNode(state.SourceID) || !g.hasNode(state.TargetID) {
			pruned = append(pruned, state)
			continue
		}
		edge, err := entities.ReconstructEdge(state)
		if err != nil {
			return nil, nil, err
		}
		g.edges[state.ID] = edge
	}

	return g, pruned, nil
}

// Version returns the monotonic version counter. It increases on every
// structural or positional mutation and drives render-cache invalidation.
func (g *Graph) Version() uint64 {
	return g.version
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodeState returns a value snapshot of the node with the given id
func (g *Graph) NodeState(id valueobjects.NodeID) (entities.NodeState, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return entities.NodeState{}, false
	}
	return node.State(), true
}

// EdgeState returns a value snapshot of the edge with the given id
func (g *Graph) EdgeState(id valueobjects.EdgeID) (entities.EdgeState, bool) {
	edge, ok := g.edges[id]
	if !ok {
		return entities.EdgeState{}, false
	}
	return edge.State(), true
}

// IncidentEdges returns snapshots of every edge touching the given node
func (g *Graph) IncidentEdges(nodeID valueobjects.NodeID) []entities.EdgeState {
	var states []entities.EdgeState
	for _, edge := range g.edges {
		if edge.IsIncidentTo(nodeID) {
			states = append(states, edge.State())
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].ID.String() < states[j].ID.String()
	})
	return states
}

// HasDuplicateEdge reports whether an edge with the same direction
// already connects the two nodes
func (g *Graph) HasDuplicateEdge(sourceID, targetID valueobjects.NodeID) bool {
	for _, edge := range g.edges {
		if edge.SourceID().Equals(sourceID) && edge.TargetID().Equals(targetID) {
			return true
		}
	}
	return false
}

// Snapshot returns a deep-copied, deterministically ordered view of the
// graph so callers never observe a half-applied mutation
func (g *Graph) Snapshot() Snapshot {
	snap := Snapshot{
		Nodes:   make([]entities.NodeState, 0, len(g.nodes)),
		Edges:   make([]entities.EdgeState, 0, len(g.edges)),
		Version: g.version,
	}
	for _, node := range g.nodes {
		snap.Nodes = append(snap.Nodes, node.State())
	}
	for _, edge := range g.edges {
		snap.Edges = append(snap.Edges, edge.State())
	}
	sort.Slice(snap.Nodes, func(i, j int) bool {
		return snap.Nodes[i].ID.String() < snap.Nodes[j].ID.String()
	})
	sort.Slice(snap.Edges, func(i, j int) bool {
		return snap.Edges[i].ID.String() < snap.Edges[j].ID.String()
	})
	return snap
}

// Apply executes one mutation against the graph. Every invariant is
// checked before any state changes, so a rejected mutation is never
// partially applied. Each successful apply increments the version counter
// exactly once, including multi-entity cascades.
func (g *Graph) Apply(m *history.Mutation) error {
	if m == nil {
		return pkgerrors.NewValidationError("mutation cannot be nil")
	}

	var commit func()

	switch m.Kind {
	case history.KindCreateNode:
		c, err := g.validateCreateNode(m)
		if err != nil {
			return err
		}
		commit = c
	case history.KindDeleteNode:
		c, err := g.validateDeleteNode(m)
		if err != nil {
			return err
		}
		commit = c
	case history.KindUpdateNode, history.KindMoveNode:
		c, err := g.validateReplaceNode(m)
		if err != nil {
			return err
		}
		commit = c
	case history.KindCreateEdge:
		c, err := g.validateCreateEdge(m)
		if err != nil {
			return err
		}
		commit = c
	case history.KindDeleteEdge:
		c, err := g.validateDeleteEdge(m)
		if err != nil {
			return err
		}
		commit = c
	case history.KindUpdateEdge:
		c, err := g.validateReplaceEdge(m)
		if err != nil {
			return err
		}
		commit = c
	default:
		return pkgerrors.NewValidationError(fmt.Sprintf("unknown mutation kind %q", m.Kind))
	}

	commit()
	g.version++
	return nil
}

func (g *Graph) validateCreateNode(m *history.Mutation) (func(), error) {
	if m.NodeAfter == nil {
		return nil, pkgerrors.NewValidationError("create_node requires a node state")
	}
	if _, exists := g.nodes[m.NodeAfter.ID]; exists {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("node %s already exists", m.NodeAfter.ID))
	}

	node, err := entities.ReconstructNode(*m.NodeAfter)
	if err != nil {
		return nil, err
	}

	// Restoring a deleted node re-creates its cascaded edges in the same
	// apply. Endpoints must all resolve first.
	restored := make([]*entities.Edge, 0, len(m.CascadedEdges))
	for _, state := range m.CascadedEdges {
		if _, exists := g.edges[state.ID]; exists {
			return nil, pkgerrors.NewConflictError(fmt.Sprintf("edge %s already exists", state.ID))
		}
		if !state.SourceID.Equals(m.NodeAfter.ID) && !state.TargetID.Equals(m.NodeAfter.ID) {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("edge %s is not incident to restored node", state.ID))
		}
		for _, endpoint := range []valueobjects.NodeID{state.SourceID, state.TargetID} {
			if !endpoint.Equals(m.NodeAfter.ID) && !g.hasNode(endpoint) {
				return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("edge endpoint %s", endpoint))
			}
		}
		edge, err := entities.ReconstructEdge(state)
		if err != nil {
			return nil, err
		}
		restored = append(restored, edge)
	}

	return func() {
		g.nodes[node.ID()] = node
		for _, edge := range restored {
			g.edges[edge.ID()] = edge
		}
	}, nil
}

func (g *Graph) validateDeleteNode(m *history.Mutation) (func(), error) {
	if m.NodeBefore == nil {
		return nil, pkgerrors.NewValidationError("delete_node requires a node state")
	}
	id := m.NodeBefore.ID
	if _, exists := g.nodes[id]; !exists {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}

	// The record must account for every incident edge: the cascade is
	// atomic, and an edge missing from the record would be unrecoverable
	// after undo.
	recorded := make(map[valueobjects.EdgeID]struct{}, len(m.CascadedEdges))
	for _, state := range m.CascadedEdges {
		if _, exists := g.edges[state.ID]; !exists {
			return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("cascaded edge %s", state.ID))
		}
		recorded[state.ID] = struct{}{}
	}
	for edgeID, edge := range g.edges {
		if edge.IsIncidentTo(id) {
			if _, ok := recorded[edgeID]; !ok {
				return nil, pkgerrors.NewValidationError(fmt.Sprintf("incident edge %s missing from delete cascade", edgeID))
			}
		}
	}

	return func() {
		delete(g.nodes, id)
		for edgeID := range recorded {
			delete(g.edges, edgeID)
		}
	}, nil
}

func (g *Graph) validateReplaceNode(m *history.Mutation) (func(), error) {
	if m.NodeBefore == nil || m.NodeAfter == nil {
		return nil, pkgerrors.NewValidationError("node update requires before and after states")
	}
	if !m.NodeBefore.ID.Equals(m.NodeAfter.ID) {
		return nil, pkgerrors.NewValidationError("node update cannot change the node id")
	}
	if _, exists := g.nodes[m.NodeBefore.ID]; !exists {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", m.NodeBefore.ID))
	}

	node, err := entities.ReconstructNode(*m.NodeAfter)
	if err != nil {
		return nil, err
	}

	return func() {
		g.nodes[node.ID()] = node
	}, nil
}

func (g *Graph) validateCreateEdge(m *history.Mutation) (func(), error) {
	if m.EdgeAfter == nil {
		return nil, pkgerrors.NewValidationError("create_edge requires an edge state")
	}
	if _, exists := g.edges[m.EdgeAfter.ID]; exists {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("edge %s already exists", m.EdgeAfter.ID))
	}
	if !g.hasNode(m.EdgeAfter.SourceID) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("source node %s", m.EdgeAfter.SourceID))
	}
	if !g.hasNode(m.EdgeAfter.TargetID) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("target node %s", m.EdgeAfter.TargetID))
	}

	edge, err := entities.ReconstructEdge(*m.EdgeAfter)
	if err != nil {
		return nil, err
	}

	return func() {
		g.edges[edge.ID()] = edge
	}, nil
}

func (g *Graph) validateDeleteEdge(m *history.Mutation) (func(), error) {
	if m.EdgeBefore == nil {
		return nil, pkgerrors.NewValidationError("delete_edge requires an edge state")
	}
	id := m.EdgeBefore.ID
	if _, exists := g.edges[id]; !exists {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", id))
	}

	return func() {
		delete(g.edges, id)
	}, nil
}

func (g *Graph) validateReplaceEdge(m *history.Mutation) (func(), error) {
	if m.EdgeBefore == nil || m.EdgeAfter == nil {
		return nil, pkgerrors.NewValidationError("edge update requires before and after states")
	}
	if !m.EdgeBefore.ID.Equals(m.EdgeAfter.ID) {
		return nil, pkgerrors.NewValidationError("edge update cannot change the edge id")
	}
	if _, exists := g.edges[m.EdgeBefore.ID]; !exists {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", m.EdgeBefore.ID))
	}
	if !g.hasNode(m.EdgeAfter.SourceID) || !g.hasNode(m.EdgeAfter.TargetID) {
		return nil, pkgerrors.NewNotFoundError("edge endpoint")
	}

	edge, err := entities.ReconstructEdge(*m.EdgeAfter)
	if err != nil {
		return nil, err
	}

	return func() {
		g.edges[edge.ID()] = edge
	}, nil
}

func (g *Graph) hasNode(id valueobjects.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}
