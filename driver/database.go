package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLBatchSinkDriver is the database sink kind's reference driver: each
// flushed batch becomes one parameterized INSERT per message inside a
// transaction. It works unmodified against either of the runtime's two
// wired SQL drivers (modernc.org/sqlite, github.com/go-sql-driver/mysql),
// since both speak plain database/sql.
type SQLBatchSinkDriver struct {
	DB         *sql.DB
	InsertStmt string // e.g. "INSERT INTO events (payload, metadata) VALUES (?, ?)"
}

func NewSQLBatchSinkDriver(db *sql.DB, insertStmt string) *SQLBatchSinkDriver {
	return &SQLBatchSinkDriver{DB: db, InsertStmt: insertStmt}
}

func (d *SQLBatchSinkDriver) Open(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *SQLBatchSinkDriver) Write(ctx context.Context, msg Message) error {
	return d.WriteBatch(ctx, []Message{msg})
}

func (d *SQLBatchSinkDriver) WriteBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, d.InsertStmt)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range msgs {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return fmt.Errorf("marshal batch payload: %w", err)
		}
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshal batch metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(payload), string(meta)); err != nil {
			return fmt.Errorf("exec batch insert: %w", err)
		}
	}
	return tx.Commit()
}

func (d *SQLBatchSinkDriver) Close(_ context.Context) error { return nil }
