package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ActiveForPatient returns the entry with is_active=true for the patient,
	// or nil when the patient is not admitted.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error)
}
