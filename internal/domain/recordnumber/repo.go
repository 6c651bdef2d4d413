package recordnumber

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// CurrentForPatient returns the entry with is_current=true for the
	// patient, or nil when the patient has no record number yet.
	CurrentForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error)
	// MarkSuperseded flips is_current to false. The one mutation an entry
	// ever sees.
	MarkSuperseded(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
