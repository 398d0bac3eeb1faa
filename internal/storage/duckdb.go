package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"
)

// DuckDB checks unique constraints eagerly, so a delete followed by a
// re-insert of the same id in one transaction fails. The table has no
// primary key; uniqueness comes from the layout service.
var duckdbDialect = dialect{
	driver: DriverDuckDB,
	createTable: `CREATE TABLE IF NOT EXISTS layouts (
		id       VARCHAR NOT NULL,
		position INTEGER NOT NULL,
		payload  VARCHAR NOT NULL
	)`,
	insert: `INSERT INTO layouts (id, position, payload) VALUES (?, ?, ?)`,
}

// NewDuckDBStore opens (creating if needed) a DuckDB database file at path.
func NewDuckDBStore(ctx context.Context, path string, threads int, logger zerolog.Logger) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	if threads <= 0 {
		threads = 1
	}

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	return newSQLStore(ctx, sql.OpenDB(connector), duckdbDialect, logger)
}
