package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas2/application/ports"
	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storedNodeState(t *testing.T, x, y float64) entities.NodeState {
	t.Helper()
	pos, err := valueobjects.NewPosition(x, y)
	require.NoError(t, err)
	created := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	return entities.NodeState{
		ID:        valueobjects.NewNodeID(),
		Kind:      valueobjects.ContentKind("note"),
		Position:  pos,
		Size:      valueobjects.RawSize(280, 160),
		Color:     valueobjects.ColorToken("blue"),
		CreatedAt: created,
		UpdatedAt: created.Add(90 * time.Minute).Add(123 * time.Millisecond),
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ctx := context.Background()

	a := storedNodeState(t, 0, 0)
	b := storedNodeState(t, 100.5, -42.25)
	edge := entities.EdgeState{
		ID:        valueobjects.NewEdgeID(),
		SourceID:  a.ID,
		TargetID:  b.ID,
		Color:     valueobjects.ColorToken("amber"),
		CreatedAt: a.CreatedAt,
	}

	// Act
	err := store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{a, b},
		UpsertEdges: []entities.EdgeState{edge},
	})
	require.NoError(t, err)

	nodes, edges, err := store.LoadGraph(ctx)

	// Assert: everything round-trips exactly, timestamps included
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Len(t, edges, 1)

	byID := make(map[valueobjects.NodeID]entities.NodeState, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, a, byID[a.ID])
	assert.Equal(t, b, byID[b.ID])
	assert.Equal(t, edge, edges[0])
}

func TestStore_UpsertOverwritesExistingRecord(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ctx := context.Background()

	node := storedNodeState(t, 0, 0)
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{node},
	}))

	moved := node
	pos, err := valueobjects.NewPosition(500, 500)
	require.NoError(t, err)
	moved.Position = pos
	moved.UpdatedAt = node.UpdatedAt.Add(time.Minute)

	// Act
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{moved},
	}))

	// Assert: one record, latest state, CreatedAt untouched
	nodes, _, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, moved, nodes[0])
	assert.Equal(t, node.CreatedAt, nodes[0].CreatedAt)
}

func TestStore_WriteBatchMixesUpsertsAndDeletes(t *testing.T) {
	// Arrange: a node with an edge, then one batch that deletes both and
	// inserts a replacement, mirroring a delete-and-continue session
	store := openTestStore(t)
	ctx := context.Background()

	a := storedNodeState(t, 0, 0)
	b := storedNodeState(t, 1, 1)
	edge := entities.EdgeState{
		ID:        valueobjects.NewEdgeID(),
		SourceID:  a.ID,
		TargetID:  b.ID,
		CreatedAt: a.CreatedAt,
	}
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{a, b},
		UpsertEdges: []entities.EdgeState{edge},
	}))

	replacement := storedNodeState(t, 7, 7)

	// Act
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{replacement},
		DeleteNodes: []valueobjects.NodeID{a.ID},
		DeleteEdges: []valueobjects.EdgeID{edge.ID},
	}))

	// Assert
	nodes, edges, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Len(t, edges, 0)
	for _, n := range nodes {
		assert.False(t, n.ID.Equals(a.ID))
	}
}

func TestStore_EmptyBatchIsNoop(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.WriteBatch(context.Background(), ports.WriteBatch{}))
}

func TestStore_DeleteEdges(t *testing.T) {
	// Arrange
	store := openTestStore(t)
	ctx := context.Background()

	a := storedNodeState(t, 0, 0)
	b := storedNodeState(t, 1, 1)
	var edgeIDs []valueobjects.EdgeID
	var edges []entities.EdgeState
	for i := 0; i < 3; i++ {
		e := entities.EdgeState{
			ID:        valueobjects.NewEdgeID(),
			SourceID:  a.ID,
			TargetID:  b.ID,
			CreatedAt: a.CreatedAt,
		}
		edges = append(edges, e)
		edgeIDs = append(edgeIDs, e.ID)
	}
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{a, b},
		UpsertEdges: edges,
	}))

	// Act
	require.NoError(t, store.DeleteEdges(ctx, edgeIDs[:2]))

	// Assert
	_, remaining, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, edgeIDs[2], remaining[0].ID)

	// Empty id list is a no-op
	assert.NoError(t, store.DeleteEdges(ctx, nil))
}

func TestStore_LoadGraphOnEmptyWorkspace(t *testing.T) {
	store := openTestStore(t)
	nodes, edges, err := store.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "workspace.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	require.NoError(t, err)
	node := storedNodeState(t, 12, 34)
	require.NoError(t, store.WriteBatch(ctx, ports.WriteBatch{
		UpsertNodes: []entities.NodeState{node},
	}))
	require.NoError(t, store.Close())

	// Act: reopen runs migrations again, which must be idempotent
	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	// Assert
	nodes, _, err := reopened.LoadGraph(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, node, nodes[0])
}

func TestMigrate_SetsSchemaVersion(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "workspace.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	// Assert
	var version int
	require.NoError(t, store.db.QueryRow(`PRAGMA user_version`).Scan(&version))
	assert.Equal(t, migrations[len(migrations)-1].version, version)
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
