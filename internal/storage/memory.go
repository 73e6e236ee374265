package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage backs local development and tests. Generated statements run
// with PRAGMA query_only set.
type SQLiteStorage struct {
	*sqlStore
}

// NewMemoryStorage returns an empty in-memory SQLite database with the
// roster schema already created.
func NewMemoryStorage(ctx context.Context, logger *zap.Logger) (*SQLiteStorage, error) {
	return NewSQLiteStorage(ctx, ":memory:", logger)
}

// NewSQLiteStorage opens (or creates) the SQLite database at path and
// ensures the schema exists.
func NewSQLiteStorage(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite database: %w", err)
	}

	storage := &SQLiteStorage{sqlStore: &sqlStore{
		db:         db,
		dialect:    DialectSQLite,
		schemaFile: "sqlite.sql",
		queryOnly:  true,
		logger:     logger,
	}}

	if err := storage.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened SQLite storage", zap.String("path", path))
	return storage, nil
}
