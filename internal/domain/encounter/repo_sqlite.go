package encounter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS encounter (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_name TEXT NOT NULL,
	tax_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	current_status TEXT NOT NULL,
	exam_type TEXT,
	notes TEXT
);
CREATE TABLE IF NOT EXISTS encounter_history (
	encounter_id INTEGER NOT NULL REFERENCES encounter(id),
	seq INTEGER NOT NULL,
	at TEXT NOT NULL,
	status TEXT NOT NULL,
	actor TEXT NOT NULL,
	note TEXT,
	PRIMARY KEY (encounter_id, seq)
);`

// sqliteRepo stores encounters in a single SQLite file. Every operation runs
// in a transaction under mu, so a reader never sees a row and a history from
// different commits.
type sqliteRepo struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepo opens (creating if needed) the database at path and applies
// the schema. Close releases the file.
func NewSQLiteRepo(path string) (ClosableRepository, error) {
	if path == "" {
		path = "encounters.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

// Close releases the underlying database handle.
func (r *sqliteRepo) Close() error {
	return r.db.Close()
}

func (r *sqliteRepo) Create(ctx context.Context, enc *Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO encounter (patient_name, tax_id, created_at, current_status, exam_type, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		enc.PatientName, enc.TaxID, formatTime(enc.CreatedAt), string(enc.CurrentStatus),
		nullString(enc.ExamType), nullString(enc.Notes))
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	enc.ID = id
	if err := insertHistorySQLite(ctx, tx, id, 0, enc.History); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sqliteRepo) GetByID(ctx context.Context, id int64) (*Encounter, error) {
	var enc *Encounter
	err := r.read(ctx, func(tx *sql.Tx) error {
		var err error
		enc, err = r.get(ctx, tx, id)
		return err
	})
	return enc, err
}

func (r *sqliteRepo) List(ctx context.Context) ([]*Encounter, error) {
	var items []*Encounter
	err := r.read(ctx, func(tx *sql.Tx) error {
		var err error
		items, err = listSQLite(ctx, tx)
		return err
	})
	return items, err
}

// read runs fn in a transaction under the store mutex.
func (r *sqliteRepo) read(ctx context.Context, fn func(tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func listSQLite(ctx context.Context, q sqlQuerier) ([]*Encounter, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+encCols+` FROM encounter ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select encounters: %w", err)
	}
	var items []*Encounter
	for rows.Next() {
		enc, err := scanEncSQLite(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		items = append(items, enc)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, enc := range items {
		if enc.History, err = historySQLite(ctx, q, enc.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *sqliteRepo) UpdateStatus(ctx context.Context, id int64, fn MutateFunc) (*Encounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	enc, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	persisted := len(enc.History)
	if err := fn(enc); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE encounter SET current_status = ?, exam_type = ? WHERE id = ?`,
		string(enc.CurrentStatus), nullString(enc.ExamType), id)
	if err != nil {
		return nil, fmt.Errorf("update encounter: %w", err)
	}
	if err := insertHistorySQLite(ctx, tx, id, persisted, enc.History[persisted:]); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return enc, nil
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *sqliteRepo) get(ctx context.Context, q sqlQuerier, id int64) (*Encounter, error) {
	enc, err := scanEncSQLite(q.QueryRowContext(ctx, `SELECT `+encCols+` FROM encounter WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	if enc.History, err = historySQLite(ctx, q, id); err != nil {
		return nil, err
	}
	return enc, nil
}

func insertHistorySQLite(ctx context.Context, q sqlQuerier, encID int64, offset int, entries []HistoryEntry) error {
	for i, h := range entries {
		_, err := q.ExecContext(ctx, `
			INSERT INTO encounter_history (encounter_id, seq, at, status, actor, note)
			VALUES (?, ?, ?, ?, ?, ?)`,
			encID, offset+i, formatTime(h.Timestamp), string(h.Status), h.Actor, nullString(h.Note))
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return nil
}

func historySQLite(ctx context.Context, q sqlQuerier, encID int64) ([]HistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT at, status, actor, note FROM encounter_history
		WHERE encounter_id = ? ORDER BY seq`, encID)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	history := []HistoryEntry{}
	for rows.Next() {
		var at, status, actor string
		var note sql.NullString
		if err := rows.Scan(&at, &status, &actor, &note); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		ts, err := parseTime(at)
		if err != nil {
			return nil, err
		}
		history = append(history, HistoryEntry{
			Timestamp: ts,
			Status:    Status(status),
			Actor:     actor,
			Note:      fromNullString(note),
		})
	}
	return history, rows.Err()
}

func scanEncSQLite(row scannable) (*Encounter, error) {
	var e Encounter
	var createdAt, status string
	var exam, notes sql.NullString
	if err := row.Scan(&e.ID, &e.PatientName, &e.TaxID, &createdAt, &status, &exam, &notes); err != nil {
		return nil, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = ts
	e.CurrentStatus = Status(status)
	e.ExamType = fromNullString(exam)
	e.Notes = fromNullString(notes)
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullString(s *string) sql.NullString {
	return sql.NullString{String: strPtrVal(s), Valid: s != nil}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
