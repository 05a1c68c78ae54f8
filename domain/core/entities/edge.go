package entities

import (
	"time"

	"canvas2/domain/config"
	"canvas2/domain/core/valueobjects"
	pkgerrors "canvas2/pkg/errors"
)

// Edge is a directed connection between two nodes. Edges hold node ids
// only; endpoints are resolved via lookup into the current snapshot.
type Edge struct {
	id        valueobjects.EdgeID
	sourceID  valueobjects.NodeID
	targetID  valueobjects.NodeID
	color     valueobjects.ColorToken
	createdAt time.Time
}

// EdgeState is an immutable value snapshot of an edge
type EdgeState struct {
	ID        valueobjects.EdgeID
	SourceID  valueobjects.NodeID
	TargetID  valueobjects.NodeID
	Color     valueobjects.ColorToken
	CreatedAt time.Time
}

// NewEdge creates a new edge with validation
func NewEdge(sourceID, targetID valueobjects.NodeID, color valueobjects.ColorToken, at time.Time, cfg *config.DomainConfig) (*Edge, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if !cfg.AllowSelfEdges && sourceID.Equals(targetID) {
		return nil, pkgerrors.NewValidationError("cannot connect node to itself")
	}

	return &Edge{
		id:        valueobjects.NewEdgeID(),
		sourceID:  sourceID,
		targetID:  targetID,
		color:     color,
		createdAt: at,
	}, nil
}

// ReconstructEdge reconstructs an edge from stored data with its
// original timestamp preserved verbatim.
func ReconstructEdge(state EdgeState) (*Edge, error) {
	if state.ID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge ID cannot be empty")
	}
	if state.SourceID.IsZero() || state.TargetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}

	return &Edge{
		id:        state.ID,
		sourceID:  state.SourceID,
		targetID:  state.TargetID,
		color:     state.Color,
		createdAt: state.CreatedAt,
	}, nil
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// SourceID returns the source node id
func (e *Edge) SourceID() valueobjects.NodeID {
	return e.sourceID
}

// TargetID returns the target node id
func (e *Edge) TargetID() valueobjects.NodeID {
	return e.targetID
}

// Color returns the edge's color token
func (e *Edge) Color() valueobjects.ColorToken {
	return e.color
}

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// SetColor changes the edge's color token
func (e *Edge) SetColor(color valueobjects.ColorToken) {
	e.color = color
}

// IsIncidentTo reports whether the edge touches the given node
func (e *Edge) IsIncidentTo(nodeID valueobjects.NodeID) bool {
	return e.sourceID.Equals(nodeID) || e.targetID.Equals(nodeID)
}

// State returns a value snapshot of the edge
func (e *Edge) State() EdgeState {
	return EdgeState{
		ID:        e.id,
		SourceID:  e.sourceID,
		TargetID:  e.targetID,
		Color:     e.color,
		CreatedAt: e.createdAt,
	}
}
