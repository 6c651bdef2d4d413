package timeline

import (
	"context"

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

const eventCols = `id, patient_id, source_entry_id, kind, event_at, title, payload, created_at`

func (r *repoPG) Upsert(ctx context.Context, ev *Event) error {
	ev.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO timeline_event (id, patient_id, source_entry_id, kind, event_at, title, payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (source_entry_id, kind) DO UPDATE SET
			event_at = EXCLUDED.event_at,
			title    = EXCLUDED.title,
			payload  = EXCLUDED.payload
		RETURNING id, created_at`,
		ev.ID, ev.PatientID, ev.SourceEntryID, ev.Kind, ev.EventAt, ev.Title, ev.Payload,
	).Scan(&ev.ID, &ev.CreatedAt)
}

func (r *repoPG) DeleteBySource(ctx context.Context, sourceEntryID uuid.UUID, kind string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM timeline_event WHERE source_entry_id = $1 AND kind = $2`, sourceEntryID, kind)
	return err
}

func (r *repoPG) DeleteAllBySource(ctx context.Context, sourceEntryID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM timeline_event WHERE source_entry_id = $1`, sourceEntryID)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM timeline_event WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM timeline_event
		 WHERE patient_id = $1 ORDER BY event_at DESC, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.PatientID, &ev.SourceEntryID, &ev.Kind,
			&ev.EventAt, &ev.Title, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &ev)
	}
	return events, total, rows.Err()
}
