package history

import (
	"time"

	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
)

// Kind identifies the variant of a mutation record
type Kind string

const (
	KindCreateNode Kind = "create_node"
	KindDeleteNode Kind = "delete_node"
	KindUpdateNode Kind = "update_node"
	KindMoveNode   Kind = "move_node"
	KindCreateEdge Kind = "create_edge"
	KindDeleteEdge Kind = "delete_edge"
	KindUpdateEdge Kind = "update_edge"
)

// Mutation is a tagged union describing one user-visible graph change.
// It carries full before/after value snapshots so that applying the
// inverse restores prior state exactly, timestamps included.
//
// Populated fields by kind:
//
//	create_node: NodeAfter
//	delete_node: NodeBefore, CascadedEdges (every incident edge removed with the node)
//	update_node: NodeBefore, NodeAfter
//	move_node:   NodeBefore, NodeAfter (coalesced by the log)
//	create_edge: EdgeAfter
//	delete_edge: EdgeBefore
//	update_edge: EdgeBefore, EdgeAfter
type Mutation struct {
	Kind Kind

	NodeBefore *entities.NodeState
	NodeAfter  *entities.NodeState

	EdgeBefore *entities.EdgeState
	EdgeAfter  *entities.EdgeState

	// CascadedEdges captures the incident edges removed by a node delete.
	// They belong to the same record so undo restores node and edges
	// atomically.
	CascadedEdges []entities.EdgeState

	// RecordedAt orders records and drives move coalescing
	RecordedAt time.Time
}

// Inverse returns the mutation that exactly reverts this one
func (m *Mutation) Inverse() *Mutation {
	inv := &Mutation{
		NodeBefore: m.NodeAfter,
		NodeAfter:  m.NodeBefore,
		EdgeBefore: m.EdgeAfter,
		EdgeAfter:  m.EdgeBefore,
		RecordedAt: m.RecordedAt,
	}

	switch m.Kind {
	case KindCreateNode:
		inv.Kind = KindDeleteNode
	case KindDeleteNode:
		inv.Kind = KindCreateNode
		inv.CascadedEdges = m.CascadedEdges
	case KindUpdateNode:
		inv.Kind = KindUpdateNode
	case KindMoveNode:
		inv.Kind = KindMoveNode
	case KindCreateEdge:
		inv.Kind = KindDeleteEdge
	case KindDeleteEdge:
		inv.Kind = KindCreateEdge
	case KindUpdateEdge:
		inv.Kind = KindUpdateEdge
	}

	return inv
}

// NodeID returns the node this mutation targets, if any
func (m *Mutation) NodeID() (valueobjects.NodeID, bool) {
	switch {
	case m.NodeAfter != nil:
		return m.NodeAfter.ID, true
	case m.NodeBefore != nil:
		return m.NodeBefore.ID, true
	}
	return valueobjects.NodeID{}, false
}

// EdgeID returns the edge this mutation targets, if any
func (m *Mutation) EdgeID() (valueobjects.EdgeID, bool) {
	switch {
	case m.EdgeAfter != nil:
		return m.EdgeAfter.ID, true
	case m.EdgeBefore != nil:
		return m.EdgeBefore.ID, true
	}
	return valueobjects.EdgeID{}, false
}

// TouchedNodes returns every node id whose stored record this mutation affects
func (m *Mutation) TouchedNodes() []valueobjects.NodeID {
	if id, ok := m.NodeID(); ok {
		return []valueobjects.NodeID{id}
	}
	return nil
}

// TouchedEdges returns every edge id whose stored record this mutation affects
func (m *Mutation) TouchedEdges() []valueobjects.EdgeID {
	seen := make(map[valueobjects.EdgeID]struct{})
	var ids []valueobjects.EdgeID

	if id, ok := m.EdgeID(); ok {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for _, e := range m.CascadedEdges {
		if _, dup := seen[e.ID]; !dup {
			ids = append(ids, e.ID)
			seen[e.ID] = struct{}{}
		}
	}
	return ids
}
