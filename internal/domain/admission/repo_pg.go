package admission

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

const entryCols = `id, patient_id, admitted_at, admission_type, initial_bed,
	admission_diagnosis, admitted_by, discharged_at, discharge_type, final_bed,
	discharge_diagnosis, discharged_by, stay_days, stay_hours, is_active,
	created_at, updated_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admission_entry (
			id, patient_id, admitted_at, admission_type, initial_bed,
			admission_diagnosis, admitted_by, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.AdmittedAt, e.Type, e.InitialBed,
		e.AdmissionDiagnosis, e.AdmittedBy, e.IsActive,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM admission_entry WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM admission_entry WHERE patient_id = $1 AND is_active`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *repoPG) Update(ctx context.Context, e *Entry) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE admission_entry SET
			discharged_at=$2, discharge_type=$3, final_bed=$4,
			discharge_diagnosis=$5, discharged_by=$6, stay_days=$7,
			stay_hours=$8, is_active=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.DischargedAt, e.DischargeType, e.FinalBed,
		e.DischargeDiagnosis, e.DischargedBy, e.StayDays,
		e.StayHours, e.IsActive,
	).Scan(&e.UpdatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM admission_entry
		 WHERE patient_id = $1 ORDER BY admitted_at, created_at`, patientID)
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

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.PatientID, &e.AdmittedAt, &e.Type, &e.InitialBed,
		&e.AdmissionDiagnosis, &e.AdmittedBy, &e.DischargedAt, &e.DischargeType,
		&e.FinalBed, &e.DischargeDiagnosis, &e.DischargedBy, &e.StayDays,
		&e.StayHours, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
