// Package sqlkv implements kv.Store on a single two-column SQL table.
//
// SQLite (modernc.org/sqlite, no cgo) is the default; MySQL is supported
// for setups that already run one.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Makepad-fr/tarefas/internal/kv"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect captures the statements that differ between drivers.
type Dialect struct {
	Driver string
	Schema string
	Upsert string
}

var (
	SQLite = Dialect{
		Driver: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL
		)`,
		Upsert: `INSERT INTO kv (k, v) VALUES (?, ?)
			ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
	}
	MySQL = Dialect{
		Driver: "mysql",
		Schema: `CREATE TABLE IF NOT EXISTS kv (
			k VARCHAR(191) PRIMARY KEY,
			v LONGBLOB NOT NULL
		)`,
		Upsert: `INSERT INTO kv (k, v) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE v = VALUES(v)`,
	}
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store implements kv.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with dsn and makes sure the kv table exists.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := openDB(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}
	if d.Driver == SQLite.Driver {
		// one writer; avoids SQLITE_BUSY between the persist worker and CLI reads
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("select %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
