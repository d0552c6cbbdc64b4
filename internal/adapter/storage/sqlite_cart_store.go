package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
)

const cartSchema = `
CREATE TABLE IF NOT EXISTS carts (
    storage_key TEXT PRIMARY KEY,
    data        BLOB NOT NULL,
    updated_at  DATETIME NOT NULL
)`

// SQLiteCartStore is device-local durable cart storage.
type SQLiteCartStore struct {
	db *sqlx.DB
}

func OpenSQLiteCartStore(path string) (*SQLiteCartStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one writer; sqlite serialises anyway and this keeps :memory: to a single database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(cartSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create carts table")
	}
	return &SQLiteCartStore{db: db}, nil
}

func (s *SQLiteCartStore) LoadCart(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM carts WHERE storage_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query cart")
	}
	return data, nil
}

func (s *SQLiteCartStore) SaveCart(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (storage_key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC())
	return errors.Wrap(err, "upsert cart")
}

func (s *SQLiteCartStore) RemoveCart(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE storage_key = ?`, key)
	return errors.Wrap(err, "delete cart")
}

func (s *SQLiteCartStore) Close() error {
	return s.db.Close()
}
