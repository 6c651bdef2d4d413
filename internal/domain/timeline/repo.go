package timeline

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts the event or, when one already exists for the same
	// (source_entry_id, kind), overwrites it in place.
	Upsert(ctx context.Context, ev *Event) error
	// DeleteBySource removes the event of the given kind for a source entry.
	// Missing events are not an error.
	DeleteBySource(ctx context.Context, sourceEntryID uuid.UUID, kind string) error
	// DeleteAllBySource removes every event derived from a source entry.
	DeleteAllBySource(ctx context.Context, sourceEntryID uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error)
}
