package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission types.
const (
	TypeEmergency = "emergency"
	TypeScheduled = "scheduled"
	TypeTransfer  = "transfer"
)

// Discharge types.
const (
	DischargeMedical        = "medical"
	DischargeAdministrative = "administrative"
	DischargeTransferOut    = "transfer_out"
	DischargeRequest        = "request"
)

var validTypes = map[string]bool{
	TypeEmergency: true,
	TypeScheduled: true,
	TypeTransfer:  true,
}

var validDischargeTypes = map[string]bool{
	DischargeMedical:        true,
	DischargeAdministrative: true,
	DischargeTransferOut:    true,
	DischargeRequest:        true,
}

// Entry maps to the admission_entry table. Created on admit, mutated exactly
// once on discharge, and reactivated at most once by cancel-discharge.
type Entry struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	AdmittedAt         time.Time  `db:"admitted_at" json:"admitted_at"`
	Type               string     `db:"admission_type" json:"admission_type"`
	InitialBed         *string    `db:"initial_bed" json:"initial_bed,omitempty"`
	AdmissionDiagnosis *string    `db:"admission_diagnosis" json:"admission_diagnosis,omitempty"`
	AdmittedBy         string     `db:"admitted_by" json:"admitted_by"`
	DischargedAt       *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	DischargeType      *string    `db:"discharge_type" json:"discharge_type,omitempty"`
	FinalBed           *string    `db:"final_bed" json:"final_bed,omitempty"`
	DischargeDiagnosis *string    `db:"discharge_diagnosis" json:"discharge_diagnosis,omitempty"`
	DischargedBy       *string    `db:"discharged_by" json:"discharged_by,omitempty"`
	StayDays           *int       `db:"stay_days" json:"stay_days,omitempty"`
	StayHours          *float64   `db:"stay_hours" json:"stay_hours,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// StayDuration computes the length of the stay between admission and the
// given discharge time: whole days floored, hours at full precision.
func StayDuration(admittedAt, dischargedAt time.Time) (days int, hours float64) {
	d := dischargedAt.Sub(admittedAt)
	return int(d.Hours() / 24), d.Hours()
}
