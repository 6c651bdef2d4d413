package recordnumber

import (
	"time"

	"github.com/google/uuid"
)

// MinLength is the shortest hospital record number the ledger accepts.
const MinLength = 3

// Entry maps to the record_number_entry table. Entries are immutable once
// written except for the is_current flag, which flips to false exactly once
// when a newer entry supersedes this one.
type Entry struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"patient_id"`
	RecordNumber         string    `db:"record_number" json:"record_number"`
	PreviousRecordNumber *string   `db:"previous_record_number" json:"previous_record_number,omitempty"`
	IsCurrent            bool      `db:"is_current" json:"is_current"`
	EffectiveDate        time.Time `db:"effective_date" json:"effective_date"`
	ChangeReason         *string   `db:"change_reason" json:"change_reason,omitempty"`
	ChangedBy            string    `db:"changed_by" json:"changed_by"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}
