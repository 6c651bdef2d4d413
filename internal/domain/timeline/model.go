package timeline

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindRecordNumberChanged = "record_number_changed"
	KindAdmitted            = "admitted"
	KindDischarged          = "discharged"
)

// Event maps to the timeline_event table: one immutable, display-ready audit
// record per ledger write, keyed by (source_entry_id, kind) so re-emission
// after a retried transaction overwrites rather than duplicates.
type Event struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	PatientID     uuid.UUID              `db:"patient_id" json:"patient_id"`
	SourceEntryID uuid.UUID              `db:"source_entry_id" json:"source_entry_id"`
	Kind          string                 `db:"kind" json:"kind"`
	EventAt       time.Time              `db:"event_at" json:"event_at"`
	Title         string                 `db:"title" json:"title"`
	Payload       map[string]interface{} `db:"payload" json:"payload"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
}
