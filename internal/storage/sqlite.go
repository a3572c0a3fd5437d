package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists both namespaces in one SQLite file. Chunk payloads are
// zstd-compressed at rest; the player record is stored as-is.
type SQLiteStore struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore returns a store for path. Nothing is opened until Init.
func NewSQLiteStore(path string, log *slog.Logger) *SQLiteStore {
	if log == nil {
		log = slog.Default()
	}
	return &SQLiteStore{path: path, log: log}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return unavailable("init", errors.New("empty db path"))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return unavailable("init", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return unavailable("init", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return unavailable("init", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return unavailable("init", err)
	}
	s.db = db
	s.log.Info("opened chunk store", "path", s.path)
	return nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS player (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var blob []byte
	q := fmt.Sprintf(`SELECT data FROM %s WHERE key = ?`, ns)
	if err := db.QueryRowContext(ctx, q, key).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get "+key, err)
	}
	if ns != NamespaceChunks {
		return blob, nil
	}
	raw, err := decompressBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return raw, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	blob := value
	if ns == NamespaceChunks {
		blob = compressBlob(value)
	}
	q := fmt.Sprintf(`INSERT OR REPLACE INTO %s(key, data) VALUES(?, ?)`, ns)
	if _, err := db.ExecContext(ctx, q, key, blob); err != nil {
		return unavailable("set "+key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, ns))
	if err != nil {
		return nil, unavailable("keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, unavailable("keys", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("keys", err)
	}
	return keys, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("clear", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ns := range []Namespace{NamespaceChunks, NamespacePlayer} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, ns)); err != nil {
			return unavailable("clear", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("clear", err)
	}
	s.log.Info("cleared chunk store", "path", s.path)
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
