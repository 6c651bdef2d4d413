package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Emitter converts ledger writes into display events. Each Emit* call is an
// idempotent upsert keyed by the causing entry, so a retried outer
// transaction never duplicates audit events. The emitter takes plain field
// structs instead of ledger types to stay a leaf package.
type Emitter struct {
	repo Repository
}

func NewEmitter(repo Repository) *Emitter {
	return &Emitter{repo: repo}
}

// RecordNumberChange carries the display fields of a record-number write.
type RecordNumberChange struct {
	EntryID   uuid.UUID
	PatientID uuid.UUID
	Number    string
	Previous  *string
	Reason    *string
	At        time.Time
	Actor     string
}

// AdmissionDetails carries the display fields of an admit write.
type AdmissionDetails struct {
	EntryID   uuid.UUID
	PatientID uuid.UUID
	Type      string
	Bed       *string
	Diagnosis *string
	At        time.Time
	Actor     string
}

// DischargeDetails carries the display fields of a discharge write.
type DischargeDetails struct {
	EntryID   uuid.UUID
	PatientID uuid.UUID
	Type      string
	Bed       *string
	Diagnosis *string
	At        time.Time
	StayDays  int
	Actor     string
}

func (e *Emitter) EmitRecordNumberChange(ctx context.Context, ch RecordNumberChange) (*Event, error) {
	title := fmt.Sprintf("Record number set to %s", ch.Number)
	if ch.Previous != nil {
		title = fmt.Sprintf("Record number changed from %s to %s", *ch.Previous, ch.Number)
	}
	ev := &Event{
		PatientID:     ch.PatientID,
		SourceEntryID: ch.EntryID,
		Kind:          KindRecordNumberChanged,
		EventAt:       ch.At,
		Title:         title,
		Payload: map[string]interface{}{
			"record_number":          ch.Number,
			"previous_record_number": strVal(ch.Previous),
			"reason":                 strVal(ch.Reason),
			"actor":                  ch.Actor,
		},
	}
	if err := e.repo.Upsert(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Emitter) EmitAdmission(ctx context.Context, ad AdmissionDetails) (*Event, error) {
	title := fmt.Sprintf("Admitted (%s)", ad.Type)
	if ad.Bed != nil && *ad.Bed != "" {
		title = fmt.Sprintf("Admitted (%s) to bed %s", ad.Type, *ad.Bed)
	}
	ev := &Event{
		PatientID:     ad.PatientID,
		SourceEntryID: ad.EntryID,
		Kind:          KindAdmitted,
		EventAt:       ad.At,
		Title:         title,
		Payload: map[string]interface{}{
			"admission_type": ad.Type,
			"bed":            strVal(ad.Bed),
			"diagnosis":      strVal(ad.Diagnosis),
			"actor":          ad.Actor,
		},
	}
	if err := e.repo.Upsert(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Emitter) EmitDischarge(ctx context.Context, d DischargeDetails) (*Event, error) {
	ev := &Event{
		PatientID:     d.PatientID,
		SourceEntryID: d.EntryID,
		Kind:          KindDischarged,
		EventAt:       d.At,
		Title:         fmt.Sprintf("Discharged (%s) after %d day(s)", d.Type, d.StayDays),
		Payload: map[string]interface{}{
			"discharge_type": d.Type,
			"final_bed":      strVal(d.Bed),
			"diagnosis":      strVal(d.Diagnosis),
			"stay_days":      d.StayDays,
			"actor":          d.Actor,
		},
	}
	if err := e.repo.Upsert(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// RetractDischarge removes the discharged event for an admission whose
// discharge was cancelled, keeping the timeline a faithful derivation of the
// entry's current state.
func (e *Emitter) RetractDischarge(ctx context.Context, admissionEntryID uuid.UUID) error {
	return e.repo.DeleteBySource(ctx, admissionEntryID, KindDischarged)
}

// RetractAll removes every event derived from a hard-deleted ledger entry.
func (e *Emitter) RetractAll(ctx context.Context, sourceEntryID uuid.UUID) error {
	return e.repo.DeleteAllBySource(ctx, sourceEntryID)
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
