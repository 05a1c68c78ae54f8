package entities

import (
	"time"

	"canvas2/domain/config"
	"canvas2/domain/core/valueobjects"
	pkgerrors "canvas2/pkg/errors"
)

// Node is the main entity representing a positioned vertex on the canvas.
// This is a rich domain model with encapsulated business logic; fields are
// private and mutated only through methods that take an explicit timestamp,
// so history replays reproduce state exactly.
type Node struct {
	id        valueobjects.NodeID
	kind      valueobjects.ContentKind
	position  valueobjects.Position
	size      valueobjects.Size
	color     valueobjects.ColorToken
	createdAt time.Time
	updatedAt time.Time
}

// NodeState is an immutable value snapshot of a node, used by mutation
// records and the persistence layer.
type NodeState struct {
	ID        valueobjects.NodeID
	Kind      valueobjects.ContentKind
	Position  valueobjects.Position
	Size      valueobjects.Size
	Color     valueobjects.ColorToken
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNode creates a new node with full business rule validation
func NewNode(position valueobjects.Position, kind valueobjects.ContentKind, at time.Time, cfg *config.DomainConfig) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if kind == "" {
		return nil, pkgerrors.NewValidationError("content kind cannot be empty")
	}

	return &Node{
		id:        valueobjects.NewNodeID(),
		kind:      kind,
		position:  position,
		size:      valueobjects.DefaultSize(cfg),
		color:     valueobjects.NoColor,
		createdAt: at,
		updatedAt: at,
	}, nil
}

// ReconstructNode reconstructs a node from stored data with preserved
// timestamps. Timestamps are never regenerated on load or replay.
func ReconstructNode(state NodeState) (*Node, error) {
	if state.ID.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if state.Kind == "" {
		return nil, pkgerrors.NewValidationError("content kind cannot be empty")
	}

	return &Node{
		id:        state.ID,
		kind:      state.Kind,
		position:  state.Position,
		size:      state.Size,
		color:     state.Color,
		createdAt: state.CreatedAt,
		updatedAt: state.UpdatedAt,
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Kind returns the opaque content kind tag
func (n *Node) Kind() valueobjects.ContentKind {
	return n.kind
}

// Position returns the node's position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Size returns the node's size
func (n *Node) Size() valueobjects.Size {
	return n.size
}

// Color returns the node's color token
func (n *Node) Color() valueobjects.ColorToken {
	return n.color
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// MoveTo moves the node to a new position
func (n *Node) MoveTo(position valueobjects.Position, at time.Time) {
	if position.Equals(n.position) {
		return
	}
	n.position = position
	n.updatedAt = at
}

// Resize changes the node's size
func (n *Node) Resize(size valueobjects.Size, at time.Time) {
	if size.Equals(n.size) {
		return
	}
	n.size = size
	n.updatedAt = at
}

// SetColor changes the node's color token
func (n *Node) SetColor(color valueobjects.ColorToken, at time.Time) {
	if color == n.color {
		return
	}
	n.color = color
	n.updatedAt = at
}

// SetKind changes the opaque content kind tag
func (n *Node) SetKind(kind valueobjects.ContentKind, at time.Time) error {
	if kind == "" {
		return pkgerrors.NewValidationError("content kind cannot be empty")
	}
	if kind == n.kind {
		return nil
	}
	n.kind = kind
	n.updatedAt = at
	return nil
}

// State returns a value snapshot of the node
func (n *Node) State() NodeState {
	return NodeState{
		ID:        n.id,
		Kind:      n.kind,
		Position:  n.position,
		Size:      n.size,
		Color:     n.color,
		CreatedAt: n.createdAt,
		UpdatedAt: n.updatedAt,
	}
}
