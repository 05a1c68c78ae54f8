// Package sqlite implements the durable record store on a local SQLite
// workspace file via database/sql and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"canvas2/application/ports"
	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
	pkgerrors "canvas2/pkg/errors"
)

// Store is the SQLite-backed record store. Safe for use from the flush
// goroutine and the interaction context concurrently.
//
// Referential integrity is managed at the application level: edges
// referencing missing nodes are pruned at load, not rejected by the
// database.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

// Verify interface compliance at compile time
var _ ports.RecordStore = (*Store)(nil)

// Open opens (or creates) a workspace file and migrates it to the
// current schema version. Use ":memory:" for an ephemeral store in
// tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path
	if path != ":memory:" {
		// WAL keeps flush commits from blocking concurrent reads
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, pkgerrors.NewIOError("open", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return pkgerrors.NewIOError("close", err)
	}
	return nil
}

// LoadGraph reads all node records, then all edge records. Timestamps
// come back exactly as stored.
func (s *Store) LoadGraph(ctx context.Context) ([]entities.NodeState, []entities.EdgeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.loadNodes(ctx)
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.loadEdges(ctx)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("loaded graph from workspace",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nodes, edges, nil
}

func (s *Store) loadNodes(ctx context.Context) ([]entities.NodeState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, x, y, width, height, color, created_at, updated_at FROM nodes`)
	if err != nil {
		return nil, pkgerrors.NewIOError("query nodes", err)
	}
	defer rows.Close()

	var states []entities.NodeState
	for rows.Next() {
		var (
			id, kind, color      string
			x, y, width, height  float64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&id, &kind, &x, &y, &width, &height, &color, &createdAt, &updatedAt); err != nil {
			return nil, pkgerrors.NewIOError("scan node", err)
		}

		nodeID, err := valueobjects.NewNodeIDFromString(id)
		if err != nil {
			return nil, pkgerrors.NewIOError("decode node id", err)
		}
		position, err := valueobjects.NewPosition(x, y)
		if err != nil {
			return nil, pkgerrors.NewIOError("decode node position", err)
		}

		states = append(states, entities.NodeState{
			ID:        nodeID,
			Kind:      valueobjects.ContentKind(kind),
			Position:  position,
			Size:      valueobjects.RawSize(width, height),
			Color:     valueobjects.ColorToken(color),
			CreatedAt: fromEpochMillis(createdAt),
			UpdatedAt: fromEpochMillis(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewIOError("iterate nodes", err)
	}
	return states, nil
}

func (s *Store) loadEdges(ctx context.Context) ([]entities.EdgeState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, color, created_at FROM edges`)
	if err != nil {
		return nil, pkgerrors.NewIOError("query edges", err)
	}
	defer rows.Close()

	var states []entities.EdgeState
	for rows.Next() {
		var (
			id, sourceID, targetID, color string
			createdAt                     int64
		)
		if err := rows.Scan(&id, &sourceID, &targetID, &color, &createdAt); err != nil {
			return nil, pkgerrors.NewIOError("scan edge", err)
		}

		edgeID, err := valueobjects.NewEdgeIDFromString(id)
		if err != nil {
			return nil, pkgerrors.NewIOError("decode edge id", err)
		}
		source, err := valueobjects.NewNodeIDFromString(sourceID)
		if err != nil {
			return nil, pkgerrors.NewIOError("decode edge source", err)
		}
		target, err := valueobjects.NewNodeIDFromString(targetID)
		if err != nil {
			return nil, pkgerrors.NewIOError("decode edge target", err)
		}

		states = append(states, entities.EdgeState{
			ID:        edgeID,
			SourceID:  source,
			TargetID:  target,
			Color:     valueobjects.ColorToken(color),
			CreatedAt: fromEpochMillis(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewIOError("iterate edges", err)
	}
	return states, nil
}

// WriteBatch applies every upsert and delete inside one transaction.
// Either the whole batch becomes durable or none of it does.
func (s *Store) WriteBatch(ctx context.Context, batch ports.WriteBatch) error {
	if batch.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewIOError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, node := range batch.UpsertNodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (id, kind, x, y, width, height, color, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				x = excluded.x,
				y = excluded.y,
				width = excluded.width,
				height = excluded.height,
				color = excluded.color,
				updated_at = excluded.updated_at`,
			node.ID.String(), node.Kind.String(),
			node.Position.X(), node.Position.Y(),
			node.Size.Width(), node.Size.Height(),
			node.Color.String(),
			toEpochMillis(node.CreatedAt), toEpochMillis(node.UpdatedAt),
		); err != nil {
			return pkgerrors.NewIOError("upsert node", err)
		}
	}

	for _, id := range batch.DeleteNodes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id.String()); err != nil {
			return pkgerrors.NewIOError("delete node", err)
		}
	}

	for _, edge := range batch.UpsertEdges {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edges (id, source_id, target_id, color, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				source_id = excluded.source_id,
				target_id = excluded.target_id,
				color = excluded.color`,
			edge.ID.String(), edge.SourceID.String(), edge.TargetID.String(),
			edge.Color.String(), toEpochMillis(edge.CreatedAt),
		); err != nil {
			return pkgerrors.NewIOError("upsert edge", err)
		}
	}

	for _, id := range batch.DeleteEdges {
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id.String()); err != nil {
			return pkgerrors.NewIOError("delete edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewIOError("commit", err)
	}

	s.logger.Debug("flushed write batch", zap.Int("records", batch.Size()))
	return nil
}

// DeleteEdges removes edge records by id in one transaction, used to
// drop edges pruned at load
func (s *Store) DeleteEdges(ctx context.Context, ids []valueobjects.EdgeID) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM edges WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return pkgerrors.NewIOError("delete pruned edges", err)
	}
	return nil
}

// toEpochMillis stores timestamps as millisecond epoch integers
func toEpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromEpochMillis restores a stored timestamp verbatim, in UTC
func fromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
