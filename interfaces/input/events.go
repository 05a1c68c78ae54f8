// Package input routes pointer and scroll events between the canvas,
// embedded node scroll regions, and modal surfaces.
package input

import (
	"time"

	"canvas2/domain/core/valueobjects"
)

// PointerEvent is one raw input event in canvas coordinates. The
// embedding shell converts from screen space before routing.
type PointerEvent struct {
	Position valueobjects.Position

	// Scroll deltas; positive Y scrolls content down, positive X right
	DeltaX float64
	DeltaY float64

	// Time orders events and drives the gesture-hold window
	Time time.Time
}

// Target identifies the consumer an event is dispatched to
type Target int

const (
	// TargetCanvas pans or zooms the infinite canvas
	TargetCanvas Target = iota

	// TargetNode scrolls a node's embedded content region
	TargetNode

	// TargetModal is the exclusive recipient while a modal is open
	TargetModal
)

// String returns the target name for logging and metrics
func (t Target) String() string {
	switch t {
	case TargetCanvas:
		return "canvas"
	case TargetNode:
		return "node"
	case TargetModal:
		return "modal"
	}
	return "unknown"
}

// Decision is the routing outcome for one event
type Decision struct {
	Target Target

	// NodeID is set when Target is TargetNode
	NodeID valueobjects.NodeID
}
