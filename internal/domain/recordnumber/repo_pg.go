package recordnumber

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/records/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, patient_id, record_number, previous_record_number,
	is_current, effective_date, change_reason, changed_by, created_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO record_number_entry (
			id, patient_id, record_number, previous_record_number,
			is_current, effective_date, change_reason, changed_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		e.ID, e.PatientID, e.RecordNumber, e.PreviousRecordNumber,
		e.IsCurrent, e.EffectiveDate, e.ChangeReason, e.ChangedBy,
	).Scan(&e.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM record_number_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *repoPG) CurrentForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM record_number_entry WHERE patient_id = $1 AND is_current`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *repoPG) MarkSuperseded(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE record_number_entry SET is_current = false WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM record_number_entry
		 WHERE patient_id = $1 ORDER BY effective_date, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM record_number_entry WHERE id = $1`, id)
	return err
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.PatientID, &e.RecordNumber, &e.PreviousRecordNumber,
		&e.IsCurrent, &e.EffectiveDate, &e.ChangeReason, &e.ChangedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
