// Package selection holds the single source of truth for the current
// node selection and modal exclusivity. The event router consults this
// state and nothing else; selection is never inferred from platform
// focus propagation, which races against synchronous event delivery.
package selection

import (
	"canvas2/domain/core/valueobjects"
)

// State tracks the selected node and open modal surfaces. It is owned by
// the single interaction context and changes only through explicit user
// actions and modal open/close.
type State struct {
	selected   valueobjects.NodeID
	hasSelect  bool
	modalDepth int
}

// NewState creates an empty selection state
func NewState() *State {
	return &State{}
}

// Select marks the given node as the current selection
func (s *State) Select(id valueobjects.NodeID) {
	s.selected = id
	s.hasSelect = true
}

// ClearSelection empties the selection
func (s *State) ClearSelection() {
	s.selected = valueobjects.NodeID{}
	s.hasSelect = false
}

// Selection returns the currently selected node, if any. While a modal
// is active the selection behaves as empty for routing purposes, which
// is what keeps background nodes from reacting under an open dialog.
func (s *State) Selection() (valueobjects.NodeID, bool) {
	if s.modalDepth > 0 {
		return valueobjects.NodeID{}, false
	}
	return s.selected, s.hasSelect
}

// BeginModal marks a modal surface as open. Modals nest.
func (s *State) BeginModal() {
	s.modalDepth++
}

// EndModal marks the innermost modal surface as closed
func (s *State) EndModal() {
	if s.modalDepth > 0 {
		s.modalDepth--
	}
}

// IsModalActive reports whether any modal surface is open
func (s *State) IsModalActive() bool {
	return s.modalDepth > 0
}
