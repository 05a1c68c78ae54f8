package history

import (
	"time"
)

// Log is the bounded undo/redo stack over graph mutations.
//
// It never applies mutations itself: callers pass an apply callback so a
// failed inverse apply leaves both stacks untouched (fail closed, a failed
// undo must not corrupt the stack).
type Log struct {
	capacity int
	window   time.Duration

	undo []*Mutation
	redo []*Mutation

	evicted uint64
}

// NewLog creates a mutation log with the given capacity and move
// coalescing window
func NewLog(capacity int, coalesceWindow time.Duration) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		capacity: capacity,
		window:   coalesceWindow,
		undo:     make([]*Mutation, 0, capacity),
		redo:     make([]*Mutation, 0),
	}
}

// Record pushes a new mutation onto the undo stack and clears the redo
// stack. Continuous drags coalesce: a move of the same node within the
// coalescing window merges into the top entry, keeping the position at
// drag start and replacing the position at drag end, so a single undo
// reverts the whole drag.
func (l *Log) Record(m *Mutation) {
	l.redo = l.redo[:0]

	if l.tryCoalesce(m) {
		return
	}

	l.undo = append(l.undo, m)

	// FIFO eviction from the undo side. A record is one atomic entry, so
	// eviction never splits a delete from its cascaded edges.
	if len(l.undo) > l.capacity {
		overflow := len(l.undo) - l.capacity
		l.undo = append(l.undo[:0], l.undo[overflow:]...)
		l.evicted += uint64(overflow)
	}
}

// tryCoalesce merges a move into the top undo entry when it continues the
// same drag
func (l *Log) tryCoalesce(m *Mutation) bool {
	if m.Kind != KindMoveNode || len(l.undo) == 0 {
		return false
	}

	top := l.undo[len(l.undo)-1]
	if top.Kind != KindMoveNode {
		return false
	}

	mID, ok := m.NodeID()
	if !ok {
		return false
	}
	topID, ok := top.NodeID()
	if !ok || !topID.Equals(mID) {
		return false
	}

	if m.RecordedAt.Sub(top.RecordedAt) > l.window {
		return false
	}

	top.NodeAfter = m.NodeAfter
	top.RecordedAt = m.RecordedAt
	return true
}

// Undo applies the inverse of the most recent mutation through the given
// callback. On success the entry moves to the redo stack. Returns false
// when there is nothing to undo.
func (l *Log) Undo(apply func(*Mutation) error) (bool, error) {
	if len(l.undo) == 0 {
		return false, nil
	}

	top := l.undo[len(l.undo)-1]
	if err := apply(top.Inverse()); err != nil {
		return false, err
	}

	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, top)
	return true, nil
}

// Redo re-applies the most recently undone mutation through the given
// callback. On success the entry moves back to the undo stack. Returns
// false when there is nothing to redo.
func (l *Log) Redo(apply func(*Mutation) error) (bool, error) {
	if len(l.redo) == 0 {
		return false, nil
	}

	top := l.redo[len(l.redo)-1]
	if err := apply(top); err != nil {
		return false, err
	}

	l.redo = l.redo[:len(l.redo)-1]
	l.undo = append(l.undo, top)
	return true, nil
}

// CanUndo reports whether the undo stack is non-empty
func (l *Log) CanUndo() bool {
	return len(l.undo) > 0
}

// CanRedo reports whether the redo stack is non-empty
func (l *Log) CanRedo() bool {
	return len(l.redo) > 0
}

// UndoDepth returns the number of undoable entries
func (l *Log) UndoDepth() int {
	return len(l.undo)
}

// RedoDepth returns the number of redoable entries
func (l *Log) RedoDepth() int {
	return len(l.redo)
}

// Evicted returns how many entries have aged out of the undo stack
func (l *Log) Evicted() uint64 {
	return l.evicted
}
