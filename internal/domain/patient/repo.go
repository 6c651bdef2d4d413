package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetForUpdate loads the patient row under an exclusive lock. It must be
	// called inside a transaction; the lock is the sole serialization point
	// for all ledger writes touching this patient.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	// ApplyProjection persists the denormalized fields for the patient.
	ApplyProjection(ctx context.Context, id uuid.UUID, proj Projection) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// ListIDs returns every patient id, for the disaster-recovery backfill.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}
