package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/domain/errs"
)

// Ledger is the append-only history of a patient's admission/discharge
// cycles. At most one entry per patient carries is_active=true. Like the
// record-number ledger, it runs inside a caller-owned transaction that holds
// the patient row lock; the conflict checks here re-validate against
// post-lock state.
type Ledger struct {
	repo Repository

	// clockSkew is how far in the future an admission timestamp may sit
	// before it is rejected; pastHorizon is how far back a late-entered
	// admission may be dated.
	clockSkew   time.Duration
	pastHorizon time.Duration

	now func() time.Time
}

func NewLedger(repo Repository, clockSkew, pastHorizon time.Duration) *Ledger {
	return &Ledger{
		repo:        repo,
		clockSkew:   clockSkew,
		pastHorizon: pastHorizon,
		now:         time.Now,
	}
}

// SetNow overrides the ledger clock. Tests only.
func (l *Ledger) SetNow(now func() time.Time) { l.now = now }

// Admit opens a new active admission for the patient.
func (l *Ledger) Admit(ctx context.Context, patientID uuid.UUID, admissionType string, at time.Time, bed, diagnosis *string, actor string) (*Entry, error) {
	if !validTypes[admissionType] {
		return nil, errs.Validation("admission_type", "invalid type %q", admissionType)
	}
	if at.IsZero() {
		return nil, errs.Validation("admitted_at", "is required")
	}
	at = at.UTC()
	now := l.now().UTC()
	if at.After(now.Add(l.clockSkew)) {
		return nil, errs.Validation("admitted_at", "must not be in the future")
	}
	if at.Before(now.Add(-l.pastHorizon)) {
		return nil, errs.Validation("admitted_at", "is more than %s in the past", l.pastHorizon)
	}

	active, err := l.repo.ActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, errs.Conflict("patient %s already has an active admission (%s)", patientID, active.ID)
	}

	entry := &Entry{
		PatientID:          patientID,
		AdmittedAt:         at,
		Type:               admissionType,
		InitialBed:         bed,
		AdmissionDiagnosis: diagnosis,
		AdmittedBy:         actor,
		IsActive:           true,
	}
	if err := l.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Discharge closes an active admission, filling the discharge fields and
// computing the stay duration.
func (l *Ledger) Discharge(ctx context.Context, admissionID uuid.UUID, dischargeType string, at time.Time, bed, diagnosis *string, actor string) (*Entry, error) {
	entry, err := l.Get(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if !entry.IsActive {
		return nil, errs.Conflict("admission %s is not active", admissionID)
	}
	if dischargeType == "" {
		return nil, errs.Validation("discharge_type", "is required")
	}
	if !validDischargeTypes[dischargeType] {
		return nil, errs.Validation("discharge_type", "invalid type %q", dischargeType)
	}
	if at.IsZero() {
		return nil, errs.Validation("discharged_at", "is required")
	}
	at = at.UTC()
	if !at.After(entry.AdmittedAt) {
		return nil, errs.Validation("discharged_at", "must be after admission time %s", entry.AdmittedAt.Format(time.RFC3339))
	}

	days, hours := StayDuration(entry.AdmittedAt, at)

	entry.DischargedAt = &at
	entry.DischargeType = &dischargeType
	entry.FinalBed = bed
	entry.DischargeDiagnosis = diagnosis
	entry.DischargedBy = &actor
	entry.StayDays = &days
	entry.StayHours = &hours
	entry.IsActive = false

	if err := l.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CancelDischarge reopens a discharged admission, clearing the discharge
// fields. It refuses when the admission is still active or when the patient
// acquired a different active admission in the meantime.
func (l *Ledger) CancelDischarge(ctx context.Context, admissionID uuid.UUID) (*Entry, error) {
	entry, err := l.Get(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if entry.IsActive {
		return nil, errs.Conflict("admission %s is already active", admissionID)
	}

	active, err := l.repo.ActiveForPatient(ctx, entry.PatientID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, errs.Conflict("patient %s already has an active admission (%s)", entry.PatientID, active.ID)
	}

	entry.DischargedAt = nil
	entry.DischargeType = nil
	entry.FinalBed = nil
	entry.DischargeDiagnosis = nil
	entry.DischargedBy = nil
	entry.StayDays = nil
	entry.StayHours = nil
	entry.IsActive = true

	if err := l.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns all admissions for a patient, oldest first.
func (l *Ledger) History(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	return l.repo.ListByPatient(ctx, patientID)
}

// Get returns an admission by id, or a NotFoundError.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errs.NotFound("admission", id.String())
	}
	return entry, nil
}
