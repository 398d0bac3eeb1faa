package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
	DriverS3       = "s3"
)

// DefaultDocumentName is the file or object name of the layout document.
const DefaultDocumentName = "layouts.json"

// Options selects and configures a backend.
type Options struct {
	Driver        string
	DataDir       string
	FileName      string // defaults to DefaultDocumentName
	SQLitePath    string // defaults to <DataDir>/layouts.db
	PostgresDSN   string
	DuckDBPath    string // defaults to <DataDir>/layouts.duckdb
	DuckDBThreads int
	S3            S3Config
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverFile, DriverSQLite, DriverPostgres, DriverDuckDB, DriverS3}
}

// Open constructs the backend selected by opts.Driver.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		name := opts.FileName
		if name == "" {
			name = DefaultDocumentName
		}
		return NewFileStore(filepath.Join(opts.DataDir, name), logger)
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "layouts.db")
		}
		return NewSQLiteStore(ctx, path, logger)
	case DriverPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		return NewPostgresStore(ctx, opts.PostgresDSN, logger)
	case DriverDuckDB:
		path := opts.DuckDBPath
		if path == "" {
			path = filepath.Join(opts.DataDir, "layouts.duckdb")
		}
		return NewDuckDBStore(ctx, path, opts.DuckDBThreads, logger)
	case DriverS3:
		return NewS3Store(ctx, opts.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
