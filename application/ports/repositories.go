// Package ports defines the interfaces between the application layer and
// infrastructure. Concrete implementations live under infrastructure/.
package ports

import (
	"context"

	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
)

// EntityRef identifies one persisted record, either a node or an edge.
// Exactly one of the two ids is set. Refs are comparable and usable as
// pending-set keys.
type EntityRef struct {
	Node valueobjects.NodeID
	Edge valueobjects.EdgeID
}

// NodeRef creates a ref for a node record
func NodeRef(id valueobjects.NodeID) EntityRef {
	return EntityRef{Node: id}
}

// EdgeRef creates a ref for an edge record
func EdgeRef(id valueobjects.EdgeID) EntityRef {
	return EntityRef{Edge: id}
}

// IsNode reports whether the ref points at a node record
func (r EntityRef) IsNode() bool {
	return !r.Node.IsZero()
}

// String returns the referenced id for logging
func (r EntityRef) String() string {
	if r.IsNode() {
		return "node:" + r.Node.String()
	}
	return "edge:" + r.Edge.String()
}

// WriteBatch is one transactional unit of durable writes. Upserts carry
// the latest entity state; deletes remove records by id.
type WriteBatch struct {
	UpsertNodes []entities.NodeState
	DeleteNodes []valueobjects.NodeID
	UpsertEdges []entities.EdgeState
	DeleteEdges []valueobjects.EdgeID
}

// IsEmpty reports whether the batch carries no work
func (b WriteBatch) IsEmpty() bool {
	return len(b.UpsertNodes) == 0 && len(b.DeleteNodes) == 0 &&
		len(b.UpsertEdges) == 0 && len(b.DeleteEdges) == 0
}

// Size returns the number of records the batch touches
func (b WriteBatch) Size() int {
	return len(b.UpsertNodes) + len(b.DeleteNodes) + len(b.UpsertEdges) + len(b.DeleteEdges)
}

// RecordStore is the durable storage contract: a transactional record
// store keyed by entity id with two collections, nodes and edges. Every
// record carries both timestamps verbatim; the store never regenerates
// them.
type RecordStore interface {
	// LoadGraph reads all nodes, then all edges. Callers prune edges
	// referencing missing nodes.
	LoadGraph(ctx context.Context) (nodes []entities.NodeState, edges []entities.EdgeState, err error)

	// WriteBatch applies every upsert and delete inside one transaction
	WriteBatch(ctx context.Context, batch WriteBatch) error

	// DeleteEdges removes edge records outside the normal flush path,
	// used to drop edges pruned at load.
	DeleteEdges(ctx context.Context, ids []valueobjects.EdgeID) error

	// Close releases the underlying storage handle
	Close() error
}

// WriteScheduler is the debounced write path every mutation routes
// through, including undo/redo replays. No component writes storage
// directly.
type WriteScheduler interface {
	// ScheduleWrite adds an entity to the pending set and arms the
	// debounce timer
	ScheduleWrite(ref EntityRef)

	// Flush writes all pending entities eagerly in one batch
	Flush(ctx context.Context) error

	// FlushAndWait synchronously drains the pending set. Shutdown only.
	FlushAndWait(ctx context.Context) error
}
