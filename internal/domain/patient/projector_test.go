package patient

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/domain/admission"
	"github.com/ehr/records/internal/domain/recordnumber"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func closedStay(patientID uuid.UUID, admittedAt time.Time, stayDays int, dischargeType string) *admission.Entry {
	dischargedAt := admittedAt.Add(time.Duration(stayDays) * 24 * time.Hour)
	return &admission.Entry{
		ID:            uuid.New(),
		PatientID:     patientID,
		AdmittedAt:    admittedAt,
		Type:          admission.TypeScheduled,
		DischargedAt:  &dischargedAt,
		DischargeType: strPtr(dischargeType),
		StayDays:      intPtr(stayDays),
	}
}

func TestProject_Empty(t *testing.T) {
	proj := Projector{}.Project(nil, nil)

	if proj.Status != StatusOutpatient {
		t.Errorf("expected outpatient, got %q", proj.Status)
	}
	if proj.CurrentRecordNumber != "" || proj.TotalAdmissions != 0 || proj.TotalInpatientDays != 0 {
		t.Errorf("expected zero projection, got %+v", proj)
	}
}

func TestProject_CurrentRecordNumber(t *testing.T) {
	patientID := uuid.New()
	numbers := []*recordnumber.Entry{
		{PatientID: patientID, RecordNumber: "MRN-A", IsCurrent: false},
		{PatientID: patientID, RecordNumber: "MRN-B", IsCurrent: true},
	}

	proj := Projector{}.Project(numbers, nil)
	if proj.CurrentRecordNumber != "MRN-B" {
		t.Errorf("expected MRN-B, got %q", proj.CurrentRecordNumber)
	}
}

func TestProject_ActiveAdmission(t *testing.T) {
	patientID := uuid.New()
	active := &admission.Entry{
		ID:         uuid.New(),
		PatientID:  patientID,
		AdmittedAt: time.Now(),
		Type:       admission.TypeScheduled,
		InitialBed: strPtr("4A"),
		IsActive:   true,
	}

	proj := Projector{}.Project(nil, []*admission.Entry{active})

	if proj.Status != StatusInpatient {
		t.Errorf("expected inpatient, got %q", proj.Status)
	}
	if proj.Bed != "4A" {
		t.Errorf("expected bed 4A, got %q", proj.Bed)
	}
	if proj.CurrentAdmissionID == nil || *proj.CurrentAdmissionID != active.ID {
		t.Errorf("expected current admission %s, got %v", active.ID, proj.CurrentAdmissionID)
	}
}

func TestProject_EmergencyAdmission(t *testing.T) {
	active := &admission.Entry{
		ID:         uuid.New(),
		AdmittedAt: time.Now(),
		Type:       admission.TypeEmergency,
		IsActive:   true,
	}

	proj := Projector{}.Project(nil, []*admission.Entry{active})
	if proj.Status != StatusEmergency {
		t.Errorf("expected emergency, got %q", proj.Status)
	}
}

func TestProject_DischargedStatus(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		dischargeType string
		want          string
	}{
		{"medical discharge", admission.DischargeMedical, StatusDischarged},
		{"administrative discharge", admission.DischargeAdministrative, StatusDischarged},
		{"transfer out", admission.DischargeTransferOut, StatusTransferred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := Projector{}.Project(nil, []*admission.Entry{
				closedStay(patientID, base, 2, tt.dischargeType),
			})
			if proj.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, proj.Status)
			}
		})
	}
}

func TestProject_LatestStayDecidesStatus(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	admissions := []*admission.Entry{
		closedStay(patientID, base, 2, admission.DischargeTransferOut),
		closedStay(patientID, base.AddDate(0, 1, 0), 3, admission.DischargeMedical),
	}

	proj := Projector{}.Project(nil, admissions)
	if proj.Status != StatusDischarged {
		t.Errorf("expected latest stay to decide discharged, got %q", proj.Status)
	}
}

func TestProject_Totals(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	admissions := []*admission.Entry{
		closedStay(patientID, base, 2, admission.DischargeMedical),
		closedStay(patientID, base.AddDate(0, 1, 0), 5, admission.DischargeMedical),
		{
			ID:         uuid.New(),
			PatientID:  patientID,
			AdmittedAt: base.AddDate(0, 2, 0),
			Type:       admission.TypeScheduled,
			IsActive:   true,
		},
	}

	proj := Projector{}.Project(nil, admissions)

	if proj.TotalAdmissions != 3 {
		t.Errorf("expected 3 admissions, got %d", proj.TotalAdmissions)
	}
	// The open stay contributes no days until it is discharged.
	if proj.TotalInpatientDays != 7 {
		t.Errorf("expected 7 inpatient days, got %d", proj.TotalInpatientDays)
	}
	if proj.Status != StatusInpatient {
		t.Errorf("expected inpatient, got %q", proj.Status)
	}
}

func TestProject_Deterministic(t *testing.T) {
	patientID := uuid.New()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	numbers := []*recordnumber.Entry{
		{PatientID: patientID, RecordNumber: "MRN-X", IsCurrent: true},
	}
	admissions := []*admission.Entry{
		closedStay(patientID, base, 2, admission.DischargeMedical),
	}

	first := Projector{}.Project(numbers, admissions)
	second := Projector{}.Project(numbers, admissions)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical projections, got %+v and %+v", first, second)
	}
}

func TestApply(t *testing.T) {
	admissionID := uuid.New()
	p := &Patient{ID: uuid.New(), Name: "Jordan Reyes", Status: StatusOutpatient}
	p.Apply(Projection{
		Status:              StatusInpatient,
		Bed:                 "2C",
		CurrentRecordNumber: "MRN-9",
		CurrentAdmissionID:  &admissionID,
		TotalAdmissions:     4,
		TotalInpatientDays:  11,
	})

	if p.Status != StatusInpatient || p.Bed != "2C" || p.CurrentRecordNumber != "MRN-9" {
		t.Errorf("projection not applied: %+v", p)
	}
	if p.CurrentAdmissionID == nil || *p.CurrentAdmissionID != admissionID {
		t.Errorf("expected admission id %s, got %v", admissionID, p.CurrentAdmissionID)
	}
	if p.TotalAdmissions != 4 || p.TotalInpatientDays != 11 {
		t.Errorf("totals not applied: %+v", p)
	}
	if p.Name != "Jordan Reyes" {
		t.Errorf("apply must not touch the name, got %q", p.Name)
	}
}
