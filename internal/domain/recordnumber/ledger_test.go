package recordnumber

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/records/internal/domain/errs"
)

type mockRepo struct {
	entries map[uuid.UUID]*Entry
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (m *mockRepo) Insert(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) CurrentForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.PatientID == patientID && e.IsCurrent {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) MarkSuperseded(ctx context.Context, id uuid.UUID) error {
	if e, ok := m.entries[id]; ok {
		e.IsCurrent = false
	}
	return nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.entries, id)
	return nil
}

func TestSetCurrent_FirstEntry(t *testing.T) {
	ledger := NewLedger(newMockRepo())
	patientID := uuid.New()

	entry, err := ledger.SetCurrent(context.Background(), patientID, "MRN-001234", nil, nil, "dr-adams")
	if err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	if !entry.IsCurrent {
		t.Error("expected first entry to be current")
	}
	if entry.PreviousRecordNumber != nil {
		t.Errorf("expected no previous number, got %q", *entry.PreviousRecordNumber)
	}
	if entry.ChangedBy != "dr-adams" {
		t.Errorf("expected changed_by dr-adams, got %q", entry.ChangedBy)
	}
}

func TestSetCurrent_SupersedesPrevious(t *testing.T) {
	repo := newMockRepo()
	ledger := NewLedger(repo)
	patientID := uuid.New()
	ctx := context.Background()

	first, err := ledger.SetCurrent(ctx, patientID, "MRN-A", nil, nil, "registrar")
	if err != nil {
		t.Fatalf("first SetCurrent failed: %v", err)
	}
	second, err := ledger.SetCurrent(ctx, patientID, "MRN-B", nil, nil, "registrar")
	if err != nil {
		t.Fatalf("second SetCurrent failed: %v", err)
	}

	if second.PreviousRecordNumber == nil || *second.PreviousRecordNumber != "MRN-A" {
		t.Errorf("expected previous number MRN-A, got %v", second.PreviousRecordNumber)
	}

	stored, _ := repo.GetByID(ctx, first.ID)
	if stored.IsCurrent {
		t.Error("expected first entry to be superseded")
	}

	current, _ := repo.CurrentForPatient(ctx, patientID)
	if current == nil || current.RecordNumber != "MRN-B" {
		t.Errorf("expected current MRN-B, got %v", current)
	}

	history, _ := ledger.History(ctx, patientID)
	if len(history) != 2 {
		t.Errorf("expected 2 entries in history, got %d", len(history))
	}
}

func TestSetCurrent_Validation(t *testing.T) {
	ledger := NewLedger(newMockRepo())
	patientID := uuid.New()
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		number    string
		effective *time.Time
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"too short", "AB", nil},
		{"future effective date", "MRN-001", &future},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.SetCurrent(ctx, patientID, tt.number, nil, tt.effective, "registrar")
			if !errs.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSetCurrent_TrimsWhitespace(t *testing.T) {
	ledger := NewLedger(newMockRepo())

	entry, err := ledger.SetCurrent(context.Background(), uuid.New(), "  MRN-777  ", nil, nil, "registrar")
	if err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	if entry.RecordNumber != "MRN-777" {
		t.Errorf("expected trimmed MRN-777, got %q", entry.RecordNumber)
	}
}

func TestDeleteHistorical_RejectsCurrent(t *testing.T) {
	ledger := NewLedger(newMockRepo())
	ctx := context.Background()

	entry, err := ledger.SetCurrent(ctx, uuid.New(), "MRN-100", nil, nil, "registrar")
	if err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}

	_, err = ledger.DeleteHistorical(ctx, entry.ID)
	if !errs.IsConflict(err) {
		t.Errorf("expected conflict deleting current entry, got %v", err)
	}
}

func TestDeleteHistorical_RemovesSuperseded(t *testing.T) {
	repo := newMockRepo()
	ledger := NewLedger(repo)
	patientID := uuid.New()
	ctx := context.Background()

	first, _ := ledger.SetCurrent(ctx, patientID, "MRN-A", nil, nil, "registrar")
	if _, err := ledger.SetCurrent(ctx, patientID, "MRN-B", nil, nil, "registrar"); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}

	deleted, err := ledger.DeleteHistorical(ctx, first.ID)
	if err != nil {
		t.Fatalf("DeleteHistorical failed: %v", err)
	}
	if deleted.RecordNumber != "MRN-A" {
		t.Errorf("expected deleted entry MRN-A, got %q", deleted.RecordNumber)
	}
	if got, _ := repo.GetByID(ctx, first.ID); got != nil {
		t.Error("expected entry to be removed from the repository")
	}
}

func TestDeleteHistorical_NotFound(t *testing.T) {
	ledger := NewLedger(newMockRepo())

	_, err := ledger.DeleteHistorical(context.Background(), uuid.New())
	if !errs.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	ledger := NewLedger(newMockRepo())

	_, err := ledger.Get(context.Background(), uuid.New())
	if !errs.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}
