// Package sqlite implements database.DB as a single table in an SQLite
// file, using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/LeJamon/goLoRaRouter/internal/storage/database"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	k BLOB PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID`

const upsert = `INSERT INTO kv (k, v) VALUES (?, ?)
	ON CONFLICT(k) DO UPDATE SET v = excluded.v`

type DB struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens or creates the SQLite file at path and initialises the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{db: sqlDB}, nil
}

func (s *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, database.ErrDBClosed
	}

	var val []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *DB) Write(ctx context.Context, key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return database.ErrDBClosed
	}
	_, err := s.db.ExecContext(ctx, upsert, key, nonNil(value))
	return err
}

func (s *DB) Delete(ctx context.Context, key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return database.ErrDBClosed
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	return err
}

func (s *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return database.ErrDBClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, op := range ops {
		switch op.Type {
		case database.BatchPut:
			_, err = tx.ExecContext(ctx, upsert, op.Key, nonNil(op.Value))
		case database.BatchDelete:
			_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, op.Key)
		default:
			err = fmt.Errorf("%w: unknown batch operation type: %d", database.ErrBatchOperationFailed, op.Type)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Iterator materialises the range before returning so that no connection
// is held while the caller iterates.
func (s *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, database.ErrDBClosed
	}

	var (
		where []string
		args  []any
	)
	if start != nil {
		where = append(where, "k >= ?")
		args = append(args, start)
	}
	if end != nil {
		where = append(where, "k < ?")
		args = append(args, end)
	}
	query := "SELECT k, v FROM kv"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY k"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		keys   []string
		values [][]byte
	)
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		keys = append(keys, string(k))
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return database.NewSliceIterator(keys, values), nil
}

func (s *DB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
