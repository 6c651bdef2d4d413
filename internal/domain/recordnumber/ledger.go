package recordnumber

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/domain/errs"
)

// Ledger is the append-only history of a patient's hospital record number.
// Exactly one entry per patient carries is_current=true. The ledger never
// touches the patient projection or the timeline; the caller runs it inside
// a transaction that already holds the patient row lock and wires the rest.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// SetNow overrides the ledger clock. Tests only.
func (l *Ledger) SetNow(now func() time.Time) { l.now = now }

// SetCurrent appends a new record number for the patient and supersedes the
// previous current entry, copying its number into the new entry's
// previous_record_number.
func (l *Ledger) SetCurrent(ctx context.Context, patientID uuid.UUID, number string, reason *string, effectiveDate *time.Time, actor string) (*Entry, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, errs.Validation("record_number", "must not be empty")
	}
	if len(number) < MinLength {
		return nil, errs.Validation("record_number", "must be at least %d characters, got %d", MinLength, len(number))
	}

	now := l.now().UTC()
	effective := now
	if effectiveDate != nil {
		effective = effectiveDate.UTC()
	}
	if effective.After(now) {
		return nil, errs.Validation("effective_date", "must not be in the future")
	}

	current, err := l.repo.CurrentForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		PatientID:     patientID,
		RecordNumber:  number,
		IsCurrent:     true,
		EffectiveDate: effective,
		ChangeReason:  reason,
		ChangedBy:     actor,
	}

	if current != nil {
		prev := current.RecordNumber
		entry.PreviousRecordNumber = &prev
		if err := l.repo.MarkSuperseded(ctx, current.ID); err != nil {
			return nil, err
		}
	}

	if err := l.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteHistorical removes a superseded entry. The current entry is never
// deleted this way: callers must first set a new current number, which
// supersedes the old one. Direct deletion of the current entry is rejected
// rather than silently promoting another entry.
func (l *Ledger) DeleteHistorical(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	entry, err := l.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errs.NotFound("record number entry", entryID.String())
	}
	if entry.IsCurrent {
		return nil, errs.Conflict("entry %s is the current record number; set a new current number before removing it", entryID)
	}
	if err := l.repo.Delete(ctx, entryID); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns all entries for a patient, oldest first.
func (l *Ledger) History(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	return l.repo.ListByPatient(ctx, patientID)
}

// Get returns an entry by id, or a NotFoundError.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errs.NotFound("record number entry", id.String())
	}
	return entry, nil
}
