package encounter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewPGRepo returns a Repository backed by the encounter and
// encounter_history tables.
func NewPGRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const encCols = `id, patient_name, tax_id, created_at, current_status, exam_type, notes`

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
		INSERT INTO encounter (patient_name, tax_id, created_at, current_status, exam_type, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		enc.PatientName, enc.TaxID, enc.CreatedAt, string(enc.CurrentStatus), enc.ExamType, enc.Notes,
	).Scan(&enc.ID)
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	if err := insertHistoryPG(ctx, tx, enc.ID, 0, enc.History); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// snapshotTx opens a read-only repeatable-read transaction so the encounter
// row and its history come from the same snapshot.
func (r *repoPG) snapshotTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return tx, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Encounter, error) {
	tx, err := r.snapshotTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	enc, err := scanEnc(tx.QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	if enc.History, err = historyPG(ctx, tx, id); err != nil {
		return nil, err
	}
	return enc, tx.Commit(ctx)
}

func (r *repoPG) List(ctx context.Context) ([]*Encounter, error) {
	tx, err := r.snapshotTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	items, err := listPG(ctx, tx)
	if err != nil {
		return nil, err
	}
	return items, tx.Commit(ctx)
}

func listPG(ctx context.Context, q querier) ([]*Encounter, error) {
	rows, err := q.Query(ctx, `SELECT `+encCols+` FROM encounter ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var items []*Encounter
	byID := make(map[int64]*Encounter)
	for rows.Next() {
		enc, err := scanEnc(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		enc.History = []HistoryEntry{}
		items = append(items, enc)
		byID[enc.ID] = enc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := q.Query(ctx, `
		SELECT encounter_id, at, status, actor, note
		FROM encounter_history ORDER BY encounter_id, seq`)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var encID int64
		var status string
		var h HistoryEntry
		if err := hrows.Scan(&encID, &h.Timestamp, &status, &h.Actor, &h.Note); err != nil {
			return nil, err
		}
		h.Status = Status(status)
		h.Timestamp = h.Timestamp.UTC()
		if enc, ok := byID[encID]; ok {
			enc.History = append(enc.History, h)
		}
	}
	return items, hrows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, fn MutateFunc) (*Encounter, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	enc, err := scanEnc(tx.QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	if enc.History, err = historyPG(ctx, tx, id); err != nil {
		return nil, err
	}
	persisted := len(enc.History)

	if err := fn(enc); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE encounter SET current_status = $2, exam_type = $3 WHERE id = $1`,
		id, string(enc.CurrentStatus), enc.ExamType)
	if err != nil {
		return nil, fmt.Errorf("update encounter: %w", err)
	}
	if err := insertHistoryPG(ctx, tx, id, persisted, enc.History[persisted:]); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return enc, nil
}

func insertHistoryPG(ctx context.Context, q querier, encID int64, offset int, entries []HistoryEntry) error {
	for i, h := range entries {
		_, err := q.Exec(ctx, `
			INSERT INTO encounter_history (encounter_id, seq, at, status, actor, note)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			encID, offset+i, h.Timestamp, string(h.Status), h.Actor, h.Note)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return nil
}

func historyPG(ctx context.Context, q querier, encID int64) ([]HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT at, status, actor, note FROM encounter_history
		WHERE encounter_id = $1 ORDER BY seq`, encID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	history := []HistoryEntry{}
	for rows.Next() {
		var status string
		var h HistoryEntry
		if err := rows.Scan(&h.Timestamp, &status, &h.Actor, &h.Note); err != nil {
			return nil, err
		}
		h.Status = Status(status)
		h.Timestamp = h.Timestamp.UTC()
		history = append(history, h)
	}
	return history, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEnc(row scannable) (*Encounter, error) {
	var e Encounter
	var status string
	err := row.Scan(&e.ID, &e.PatientName, &e.TaxID, &e.CreatedAt, &status, &e.ExamType, &e.Notes)
	if err != nil {
		return nil, err
	}
	e.CurrentStatus = Status(status)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
