package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresKV mirrors SQLiteKV for deployments that already run Postgres.
type PostgresKV struct {
	db *sql.DB
}

func NewPostgresKV(dsn string) (*PostgresKV, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a non-empty DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collections table: %w", err)
	}

	return &PostgresKV{db: db}, nil
}

func (p *PostgresKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRow("SELECT value FROM collections WHERE key = $1", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (p *PostgresKV) Put(key string, value []byte) error {
	_, err := p.db.Exec(`
		INSERT INTO collections (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	return err
}

func (p *PostgresKV) Close() error { return p.db.Close() }
