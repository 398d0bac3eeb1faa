package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/warehouse-twin/backend/internal/models"
)

// dialect holds the SQL that differs between backends. Each row of the
// layouts table is one layout keyed by id; position keeps insertion order.
type dialect struct {
	driver      string
	createTable string
	insert      string
}

var sqliteDialect = dialect{
	driver: DriverSQLite,
	createTable: `CREATE TABLE IF NOT EXISTS layouts (
		id       TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		payload  TEXT NOT NULL
	)`,
	insert: `INSERT INTO layouts (id, position, payload) VALUES (?, ?, ?)`,
}

// JSON rather than JSONB: JSONB reorders object keys.
var postgresDialect = dialect{
	driver: DriverPostgres,
	createTable: `CREATE TABLE IF NOT EXISTS layouts (
		id       TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		payload  JSON NOT NULL
	)`,
	insert: `INSERT INTO layouts (id, position, payload) VALUES ($1, $2, $3)`,
}

// SQLStore stores one row per layout and replaces every row in a single
// transaction on Save.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	log     zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string, logger zerolog.Logger) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect, logger)
}

// NewPostgresStore connects to Postgres using dsn.
func NewPostgresStore(ctx context.Context, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger zerolog.Logger) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create layouts table: %w", err)
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		log:     logger.With().Str("component", "storage").Str("driver", d.driver).Logger(),
	}, nil
}

// Load returns every row in position order. Rows with unexpected field types
// are coerced; rows that are not JSON objects are skipped.
func (s *SQLStore) Load(ctx context.Context) ([]models.Layout, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM layouts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select layouts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	layouts := emptyCollection()
	for rows.Next() {
		var (
			id      string
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		if layout, ok := decodeRecord([]byte(payload), s.log.With().Str("row_id", id).Logger()); ok {
			layouts = append(layouts, layout)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate layouts: %w", err)
	}
	return layouts, nil
}

// Save replaces all rows with layouts inside one transaction.
func (s *SQLStore) Save(ctx context.Context, layouts []models.Layout) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM layouts`); err != nil {
		return fmt.Errorf("clear layouts: %w", err)
	}
	for i, layout := range layouts {
		payload, err := encodeLayout(layout)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.insert, layout.ID, i, string(payload)); err != nil {
			return fmt.Errorf("insert layout %s: %w", layout.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for tests.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }
