// Package chart orchestrates the patient clinical-state core: every public
// operation runs inside one database transaction that locks the patient row,
// re-validates against post-lock state, writes the ledger entry, recomputes
// the projection, and emits the matching timeline event. All four effects
// commit together or not at all.
package chart

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/admission"
	"github.com/ehr/records/internal/domain/errs"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/domain/recordnumber"
	"github.com/ehr/records/internal/domain/timeline"
	"github.com/ehr/records/internal/platform/db"
)

type Service struct {
	patients      patient.Repository
	recordNumbers *recordnumber.Ledger
	admissions    *admission.Ledger
	emitter       *timeline.Emitter
	events        timeline.Repository
	projector     patient.Projector
	log           zerolog.Logger

	runTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(
	pool *pgxpool.Pool,
	patients patient.Repository,
	recordNumbers *recordnumber.Ledger,
	admissions *admission.Ledger,
	emitter *timeline.Emitter,
	events timeline.Repository,
	log zerolog.Logger,
) *Service {
	s := &Service{
		patients:      patients,
		recordNumbers: recordNumbers,
		admissions:    admissions,
		emitter:       emitter,
		events:        events,
		log:           log,
	}
	if pool != nil {
		s.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.InTransaction(ctx, pool, fn)
		}
	} else {
		// No pool means in-memory repositories; run without a transaction.
		s.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return s
}

// SetTxRunner replaces the transaction boundary. Tests use it to observe
// where the patient lock is released.
func (s *Service) SetTxRunner(runTx func(ctx context.Context, fn func(ctx context.Context) error) error) {
	s.runTx = runTx
}

// withPatientLock runs fn inside one transaction holding the exclusive lock
// on the patient row. Everything fn writes through the repositories joins the
// same transaction via the context.
func (s *Service) withPatientLock(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context, p *patient.Patient) error) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.NotFound("patient", patientID.String())
		}
		return fn(ctx, p)
	})
}

// recompute projects the full ledger state onto the patient row. Runs inside
// the caller's transaction.
func (s *Service) recompute(ctx context.Context, patientID uuid.UUID) (patient.Projection, error) {
	numbers, err := s.recordNumbers.History(ctx, patientID)
	if err != nil {
		return patient.Projection{}, err
	}
	admissions, err := s.admissions.History(ctx, patientID)
	if err != nil {
		return patient.Projection{}, err
	}
	proj := s.projector.Project(numbers, admissions)
	if err := s.patients.ApplyProjection(ctx, patientID, proj); err != nil {
		return patient.Projection{}, err
	}
	return proj, nil
}

// RegisterPatient creates the aggregate row for a patient owned by the
// external identity registry. Only the id and display name are stored.
func (s *Service) RegisterPatient(ctx context.Context, id uuid.UUID, name string) (*patient.Patient, error) {
	if name == "" {
		return nil, errs.Validation("name", "is required")
	}
	p := &patient.Patient{ID: id, Name: name, Status: patient.StatusOutpatient}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return p, nil
}

// SetRecordNumber appends a new current record number for the patient.
func (s *Service) SetRecordNumber(ctx context.Context, patientID uuid.UUID, number string, reason *string, effectiveDate *time.Time, actor string) (*recordnumber.Entry, error) {
	var entry *recordnumber.Entry
	err := s.withPatientLock(ctx, patientID, func(ctx context.Context, _ *patient.Patient) error {
		var err error
		entry, err = s.recordNumbers.SetCurrent(ctx, patientID, number, reason, effectiveDate, actor)
		if err != nil {
			return err
		}
		if _, err = s.recompute(ctx, patientID); err != nil {
			return err
		}
		_, err = s.emitter.EmitRecordNumberChange(ctx, timeline.RecordNumberChange{
			EntryID:   entry.ID,
			PatientID: patientID,
			Number:    entry.RecordNumber,
			Previous:  entry.PreviousRecordNumber,
			Reason:    entry.ChangeReason,
			At:        entry.EffectiveDate,
			Actor:     actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", patientID.String()).
		Str("record_number", entry.RecordNumber).
		Msg("record number set")
	return entry, nil
}

// DeleteRecordNumberEntry hard-deletes a superseded history entry together
// with its timeline event. The current entry is rejected with a conflict.
func (s *Service) DeleteRecordNumberEntry(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.recordNumbers.Get(ctx, entryID)
	if err != nil {
		return err
	}
	return s.withPatientLock(ctx, entry.PatientID, func(ctx context.Context, _ *patient.Patient) error {
		deleted, err := s.recordNumbers.DeleteHistorical(ctx, entryID)
		if err != nil {
			return err
		}
		if _, err := s.recompute(ctx, deleted.PatientID); err != nil {
			return err
		}
		return s.emitter.RetractAll(ctx, deleted.ID)
	})
}

// AdmitPatient opens a new admission and projects the patient to
// inpatient/emergency status.
func (s *Service) AdmitPatient(ctx context.Context, patientID uuid.UUID, admissionType string, at time.Time, bed, diagnosis *string, actor string) (*admission.Entry, error) {
	var entry *admission.Entry
	err := s.withPatientLock(ctx, patientID, func(ctx context.Context, _ *patient.Patient) error {
		var err error
		entry, err = s.admissions.Admit(ctx, patientID, admissionType, at, bed, diagnosis, actor)
		if err != nil {
			return err
		}
		if _, err = s.recompute(ctx, patientID); err != nil {
			return err
		}
		_, err = s.emitter.EmitAdmission(ctx, timeline.AdmissionDetails{
			EntryID:   entry.ID,
			PatientID: patientID,
			Type:      entry.Type,
			Bed:       entry.InitialBed,
			Diagnosis: entry.AdmissionDiagnosis,
			At:        entry.AdmittedAt,
			Actor:     actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", patientID.String()).
		Str("admission_id", entry.ID.String()).
		Str("type", entry.Type).
		Msg("patient admitted")
	return entry, nil
}

// DischargePatient closes an active admission and projects the patient to
// discharged/transferred status.
func (s *Service) DischargePatient(ctx context.Context, admissionID uuid.UUID, dischargeType string, at time.Time, bed, diagnosis *string, actor string) (*admission.Entry, error) {
	adm, err := s.admissions.Get(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var entry *admission.Entry
	err = s.withPatientLock(ctx, adm.PatientID, func(ctx context.Context, _ *patient.Patient) error {
		var err error
		entry, err = s.admissions.Discharge(ctx, admissionID, dischargeType, at, bed, diagnosis, actor)
		if err != nil {
			return err
		}
		if _, err = s.recompute(ctx, entry.PatientID); err != nil {
			return err
		}
		_, err = s.emitter.EmitDischarge(ctx, timeline.DischargeDetails{
			EntryID:   entry.ID,
			PatientID: entry.PatientID,
			Type:      dischargeType,
			Bed:       entry.FinalBed,
			Diagnosis: entry.DischargeDiagnosis,
			At:        *entry.DischargedAt,
			StayDays:  *entry.StayDays,
			Actor:     actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", entry.PatientID.String()).
		Str("admission_id", entry.ID.String()).
		Int("stay_days", *entry.StayDays).
		Msg("patient discharged")
	return entry, nil
}

// CancelDischarge reopens a discharged admission and retracts its discharged
// timeline event, restoring inpatient status.
func (s *Service) CancelDischarge(ctx context.Context, admissionID uuid.UUID, actor string) (*admission.Entry, error) {
	adm, err := s.admissions.Get(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var entry *admission.Entry
	err = s.withPatientLock(ctx, adm.PatientID, func(ctx context.Context, _ *patient.Patient) error {
		var err error
		entry, err = s.admissions.CancelDischarge(ctx, admissionID)
		if err != nil {
			return err
		}
		if _, err = s.recompute(ctx, entry.PatientID); err != nil {
			return err
		}
		return s.emitter.RetractDischarge(ctx, entry.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("patient_id", entry.PatientID.String()).
		Str("admission_id", entry.ID.String()).
		Str("actor", actor).
		Msg("discharge cancelled")
	return entry, nil
}

// GetProjection returns the patient's denormalized state.
func (s *Service) GetProjection(ctx context.Context, patientID uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.NotFound("patient", patientID.String())
	}
	return p, nil
}

// ListPatients returns the patient roster.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// HistoryItem is one element of the merged, time-ordered display history.
type HistoryItem struct {
	At           time.Time           `json:"at"`
	Kind         string              `json:"kind"` // "record_number" or "admission"
	RecordNumber *recordnumber.Entry `json:"record_number_entry,omitempty"`
	Admission    *admission.Entry    `json:"admission_entry,omitempty"`
}

// GetHistory returns the merged record-number and admission history for a
// patient, oldest first, windowed by limit/offset.
func (s *Service) GetHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]HistoryItem, int, error) {
	if p, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, 0, err
	} else if p == nil {
		return nil, 0, errs.NotFound("patient", patientID.String())
	}

	numbers, err := s.recordNumbers.History(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	admissions, err := s.admissions.History(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}

	items := make([]HistoryItem, 0, len(numbers)+len(admissions))
	for _, n := range numbers {
		items = append(items, HistoryItem{At: n.EffectiveDate, Kind: "record_number", RecordNumber: n})
	}
	for _, a := range admissions {
		items = append(items, HistoryItem{At: a.AdmittedAt, Kind: "admission", Admission: a})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].At.Before(items[j].At) })

	total := len(items)
	if offset >= total {
		return []HistoryItem{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return items[offset:end], total, nil
}

// GetTimeline returns the display event feed for a patient, newest first.
func (s *Service) GetTimeline(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*timeline.Event, int, error) {
	return s.events.ListByPatient(ctx, patientID, limit, offset)
}

// RefreshProjection recomputes one patient's projection from the ledgers,
// under the same lock as the write path. The repair half of the projector.
func (s *Service) RefreshProjection(ctx context.Context, patientID uuid.UUID) (patient.Projection, error) {
	var proj patient.Projection
	err := s.withPatientLock(ctx, patientID, func(ctx context.Context, _ *patient.Patient) error {
		var err error
		proj, err = s.recompute(ctx, patientID)
		return err
	})
	return proj, err
}

// RefreshAllProjections rebuilds every patient projection, one transaction
// per patient. Disaster recovery only; not on any request path.
func (s *Service) RefreshAllProjections(ctx context.Context) (int, error) {
	ids, err := s.patients.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		if _, err := s.RefreshProjection(ctx, id); err != nil {
			return count, err
		}
		count++
	}
	s.log.Info().Int("patients", count).Msg("projections refreshed")
	return count, nil
}
