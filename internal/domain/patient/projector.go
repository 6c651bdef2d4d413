package patient

import (
	"github.com/ehr/records/internal/domain/admission"
	"github.com/ehr/records/internal/domain/recordnumber"
)

// Projector recomputes the denormalized patient read model from committed
// ledger rows. Project is pure and deterministic: the same inputs always
// yield the same projection, so it serves both as the write-through step of
// every ledger transaction and as a standalone repair/backfill operation.
type Projector struct{}

// Project derives the projection from the full ledger state of one patient.
// The slices are expected in ledger order (oldest first), as the repositories
// return them.
func (Projector) Project(numbers []*recordnumber.Entry, admissions []*admission.Entry) Projection {
	proj := Projection{Status: StatusOutpatient}

	for _, n := range numbers {
		if n.IsCurrent {
			proj.CurrentRecordNumber = n.RecordNumber
			break
		}
	}

	var latest *admission.Entry
	for _, a := range admissions {
		proj.TotalAdmissions++
		if a.StayDays != nil {
			proj.TotalInpatientDays += *a.StayDays
		}
		if a.IsActive {
			id := a.ID
			proj.CurrentAdmissionID = &id
			proj.Status = statusForAdmission(a)
			if a.InitialBed != nil {
				proj.Bed = *a.InitialBed
			}
		}
		if latest == nil || a.AdmittedAt.After(latest.AdmittedAt) {
			latest = a
		}
	}

	// No active admission: the most recent discharged stay decides between
	// discharged and transferred; a patient never admitted stays outpatient.
	if proj.CurrentAdmissionID == nil && latest != nil && latest.DischargedAt != nil {
		if latest.DischargeType != nil && *latest.DischargeType == admission.DischargeTransferOut {
			proj.Status = StatusTransferred
		} else {
			proj.Status = StatusDischarged
		}
	}

	return proj
}

func statusForAdmission(a *admission.Entry) string {
	if a.Type == admission.TypeEmergency {
		return StatusEmergency
	}
	return StatusInpatient
}
