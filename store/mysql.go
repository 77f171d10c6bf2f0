package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a production persistence backend for graph definitions,
// state, and checkpoints: bounded connection pool with lifetime caps to
// avoid stale connections behind a load balancer.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// runtime's key/value table exists. dsn follows the driver's documented
// format, e.g. "user:pass@tcp(127.0.0.1:3306)/flowgraph?parseTime=true".
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (m *MySQLStore) createTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS flowgraph_kv (
			` + "`key`" + ` VARCHAR(512) NOT NULL PRIMARY KEY,
			value LONGBLOB NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: create flowgraph_kv: %w", err)
	}
	return nil
}

func (m *MySQLStore) Save(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO flowgraph_kv (` + "`key`" + `, value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`
	if _, err := m.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("store: save %q: %w", key, err)
	}
	return nil
}

func (m *MySQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, "SELECT value FROM flowgraph_kv WHERE `key` = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", key, err)
	}
	return value, nil
}

func (m *MySQLStore) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM flowgraph_kv WHERE `key` = ?", key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

func (m *MySQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	like := strings.ReplaceAll(prefix, "%", "\\%") + "%"
	rows, err := m.db.QueryContext(ctx, "SELECT `key` FROM flowgraph_kv WHERE `key` LIKE ? ORDER BY `key`", like)
	if err != nil {
		return nil, fmt.Errorf("store: list %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("store: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the connection pool. Safe to call more than once.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
