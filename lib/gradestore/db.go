package gradestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var remoteSchemes = []string{"libsql://", "http://", "https://", "ws://", "wss://"}

func isRemote(dsn string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// Open opens a sqlite file (or `:memory:`) or a libsql url and migrates it to the latest
// schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if isRemote(dsn) {
		database, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
		return database, Migrate(ctx, database)
	}

	if dsn != ":memory:" {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite only supports a single writer, and every connection to `:memory:` would be a
	// different database.
	database.SetMaxOpenConns(1)

	pragmas := []string{"pragma foreign_keys = on"}
	if dsn != ":memory:" {
		pragmas = append(pragmas, "pragma journal_mode = wal")
	}
	for _, pragma := range pragmas {
		_, err = database.ExecContext(ctx, pragma)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	err = Migrate(ctx, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, database *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, database, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MakeTx is a function that creates a db transaction.
type MakeTx = func(ctx context.Context) (tx *sql.Tx, discard func() error, commit func() error, err error)

func NewMakeTx(database *sql.DB) MakeTx {
	return func(ctx context.Context) (*sql.Tx, func() error, func() error, error) {
		tx, err := database.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return tx, tx.Rollback, tx.Commit, nil
	}
}
