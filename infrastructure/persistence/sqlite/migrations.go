package sqlite

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	pkgerrors "canvas2/pkg/errors"
)

// migration upgrades a workspace file from schemaVersion-1 to
// schemaVersion. Statements run inside one transaction together with the
// version bump, so a workspace is never half-migrated.
type migration struct {
	version     int
	description string
	statements  []string
}

// migrations lists every schema version in order. Append only; released
// versions never change.
var migrations = []migration{
	{
		version:     1,
		description: "nodes and edges collections",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS nodes (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				x REAL NOT NULL,
				y REAL NOT NULL,
				width REAL NOT NULL,
				height REAL NOT NULL,
				color TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS edges (
				id TEXT PRIMARY KEY,
				source_id TEXT NOT NULL,
				target_id TEXT NOT NULL,
				color TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
		},
	},
}

// migrate brings a workspace up to the current schema version, tracked
// in SQLite's user_version pragma
func migrate(db *sql.DB, logger *zap.Logger) error {
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return pkgerrors.NewIOError("read schema version", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return pkgerrors.NewIOError("begin migration", err)
		}

		for _, stmt := range m.statements {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return pkgerrors.NewIOError(fmt.Sprintf("migrate to v%d", m.version), err)
			}
		}
		// PRAGMA does not accept bind parameters
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, m.version)); err != nil {
			tx.Rollback()
			return pkgerrors.NewIOError(fmt.Sprintf("set schema version %d", m.version), err)
		}
		if err := tx.Commit(); err != nil {
			return pkgerrors.NewIOError(fmt.Sprintf("commit migration v%d", m.version), err)
		}

		logger.Info("workspace schema migrated",
			zap.Int("version", m.version),
			zap.String("description", m.description),
		)
	}

	return nil
}
