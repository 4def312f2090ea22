// Package cognitionlog is the durable append-only record of every
// evaluated cognition (spec.md §4.8, §6): one row per root execute
// call, recording the whole tree's canonical serialization alongside
// success/failure and timing. Append failure is the kernel's concern,
// not this package's — Append just returns an error like any other
// database call.
package cognitionlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	aerrors "github.com/ailrun/ail/pkg/errors"
)

// Entry is the logical schema of spec.md §6's persisted cognition log
// record.
type Entry struct {
	CognitionID      string
	AgentID          string
	Operation        string
	InputSerialized  string
	ResultSerialized string
	Success          bool
	StartedAt        time.Time
	FinishedAt       time.Time
	ParentID         string // empty for the root cognition of an execute call
	CausalityJSON    string
}

// Log is the kernel's entire view of the durable cognition log.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS cognition_log (
    cognition_id VARCHAR(255) PRIMARY KEY,
    agent_id VARCHAR(255) NOT NULL,
    operation VARCHAR(64) NOT NULL,
    input_serialized TEXT,
    result_serialized TEXT,
    success BOOLEAN NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    parent_id VARCHAR(255),
    causality_json TEXT
);
`

// SQLLog implements Log over database/sql, supporting sqlite (default),
// postgres, and mysql via driver selection at Open time.
type SQLLog struct {
	db      *sql.DB
	dialect string
}

// Open opens (or creates) a database/sql connection for driver/dsn and
// ensures the cognition_log table exists. driver is one of "sqlite3"
// (or its alias "sqlite"), "postgres", "mysql".
func Open(driver, dsn string) (*SQLLog, error) {
	driverName := driver
	switch driver {
	case "sqlite", "sqlite3":
		driverName = "sqlite3"
	case "postgres", "mysql":
		// driver name matches the registered sql driver
	default:
		return nil, aerrors.New(aerrors.KindValidation, fmt.Sprintf("cognitionlog: unsupported driver %q", driver))
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, aerrors.Wrap(aerrors.KindInternal, "cognitionlog: open database", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, aerrors.Wrap(aerrors.KindInternal, "cognitionlog: ping database", err)
	}

	l := &SQLLog{db: db, dialect: driver}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewWithDB wraps an already-open *sql.DB, for callers managing their
// own connection pool.
func NewWithDB(db *sql.DB, dialect string) (*SQLLog, error) {
	l := &SQLLog{db: db, dialect: dialect}
	if err := l.initSchema(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SQLLog) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := l.db.ExecContext(ctx, createTableSQL); err != nil {
		return aerrors.Wrap(aerrors.KindInternal, "cognitionlog: create schema", err)
	}
	return nil
}

// Append inserts e as a new row.
func (l *SQLLog) Append(ctx context.Context, e Entry) error {
	var parentID interface{}
	if e.ParentID != "" {
		parentID = e.ParentID
	}

	query := `
INSERT INTO cognition_log
    (cognition_id, agent_id, operation, input_serialized, result_serialized,
     success, started_at, finished_at, parent_id, causality_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	if l.dialect == "postgres" {
		query = `
INSERT INTO cognition_log
    (cognition_id, agent_id, operation, input_serialized, result_serialized,
     success, started_at, finished_at, parent_id, causality_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	}

	_, err := l.db.ExecContext(ctx, query,
		e.CognitionID, e.AgentID, e.Operation, e.InputSerialized, e.ResultSerialized,
		e.Success, e.StartedAt, e.FinishedAt, parentID, e.CausalityJSON)
	if err != nil {
		return aerrors.Wrap(aerrors.KindInternal, "cognitionlog: append", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (l *SQLLog) Close() error {
	return l.db.Close()
}

var _ Log = (*SQLLog)(nil)
