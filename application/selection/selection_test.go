package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas2/domain/core/valueobjects"
)

func TestState_SelectAndClear(t *testing.T) {
	// Arrange
	state := NewState()
	id := valueobjects.NewNodeID()

	_, ok := state.Selection()
	require.False(t, ok)

	// Act + Assert
	state.Select(id)
	got, ok := state.Selection()
	require.True(t, ok)
	assert.True(t, got.Equals(id))

	state.ClearSelection()
	_, ok = state.Selection()
	assert.False(t, ok)
}

func TestState_ModalHidesSelection(t *testing.T) {
	// Arrange
	state := NewState()
	id := valueobjects.NewNodeID()
	state.Select(id)

	// Act
	state.BeginModal()

	// Assert: selection reads as empty while the modal is open, but the
	// underlying selection survives
	assert.True(t, state.IsModalActive())
	_, ok := state.Selection()
	assert.False(t, ok)

	state.EndModal()
	assert.False(t, state.IsModalActive())
	got, ok := state.Selection()
	require.True(t, ok)
	assert.True(t, got.Equals(id))
}

func TestState_ModalsNest(t *testing.T) {
	// Arrange
	state := NewState()
	state.BeginModal()
	state.BeginModal()

	// Act: closing the inner modal keeps exclusivity
	state.EndModal()

	// Assert
	assert.True(t, state.IsModalActive())
	state.EndModal()
	assert.False(t, state.IsModalActive())
}

func TestState_EndModalWithoutBeginIsSafe(t *testing.T) {
	state := NewState()
	state.EndModal()
	assert.False(t, state.IsModalActive())

	// Depth never goes negative; one begin still activates
	state.BeginModal()
	assert.True(t, state.IsModalActive())
}
