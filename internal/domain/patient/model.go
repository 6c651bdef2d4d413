package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient statuses.
const (
	StatusOutpatient  = "outpatient"
	StatusInpatient   = "inpatient"
	StatusEmergency   = "emergency"
	StatusDischarged  = "discharged"
	StatusTransferred = "transferred"
)

// Patient maps to the patient table. It is the read-model aggregate: every
// field below Name is denormalized from the two ledgers and mutated only by
// the projector. Demographics live in the external identity registry; only
// the id and a display name are kept here.
type Patient struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	Status              string     `db:"status" json:"status"`
	Bed                 string     `db:"bed" json:"bed"`
	CurrentRecordNumber string     `db:"current_record_number" json:"current_record_number"`
	CurrentAdmissionID  *uuid.UUID `db:"current_admission_id" json:"current_admission_id,omitempty"`
	TotalAdmissions     int        `db:"total_admissions" json:"total_admissions"`
	TotalInpatientDays  int        `db:"total_inpatient_days" json:"total_inpatient_days"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Projection is the denormalized state derived from the ledgers.
type Projection struct {
	Status              string     `json:"status"`
	Bed                 string     `json:"bed"`
	CurrentRecordNumber string     `json:"current_record_number"`
	CurrentAdmissionID  *uuid.UUID `json:"current_admission_id,omitempty"`
	TotalAdmissions     int        `json:"total_admissions"`
	TotalInpatientDays  int        `json:"total_inpatient_days"`
}

// Apply copies the projection onto the aggregate.
func (p *Patient) Apply(proj Projection) {
	p.Status = proj.Status
	p.Bed = proj.Bed
	p.CurrentRecordNumber = proj.CurrentRecordNumber
	p.CurrentAdmissionID = proj.CurrentAdmissionID
	p.TotalAdmissions = proj.TotalAdmissions
	p.TotalInpatientDays = proj.TotalInpatientDays
}
