// Package storage persists build state in SQLite: the fingerprint table used
// for change detection and the post index used for listings and feeds.
package storage

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Queryer is satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx. Stores take a
// Queryer so each build can run on its own pooled connection.
type Queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Open opens (creating if needed) the database file at path and applies
// migrations. The returned *sqlx.DB is a connection pool.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := path
	if path != ":memory:" {
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		dsn = "file:" + path + "?" + q.Encode()
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

// RunMigrations executes the schema and column migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	// Migration: series grouping column on posts.
	var colExists int
	err := db.GetContext(ctx, &colExists, `SELECT COUNT(*) FROM pragma_table_info('posts') WHERE name = 'series'`)
	if err != nil {
		return err
	}
	if colExists == 0 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE posts ADD COLUMN series TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	return nil
}
