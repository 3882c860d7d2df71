package admission

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the admission_history table. Records are append-only: a
// stay is closed by setting the discharge fields, never by deleting or
// reusing a row, so every stay remains independently auditable. At most one
// record per patient is open (nil DischargeDate) at any time.
type Record struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	WardID           uuid.UUID  `db:"ward_id" json:"ward_id"`
	WardName         string     `db:"ward_name" json:"ward_name"`
	BedNumber        int        `db:"bed_number" json:"bed_number"`
	AdmissionDate    time.Time  `db:"admission_date" json:"admission_date"`
	AdmittedByID     string     `db:"admitted_by_id" json:"admitted_by_id"`
	AdmittedByName   string     `db:"admitted_by_name" json:"admitted_by_name"`
	LastBilledDate   *time.Time `db:"last_billed_date" json:"last_billed_date,omitempty"`
	DischargeDate    *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	DischargedByID   *string    `db:"discharged_by_id" json:"discharged_by_id,omitempty"`
	DischargedByName *string    `db:"discharged_by_name" json:"discharged_by_name,omitempty"`
}

// Open reports whether the record is the patient's current active stay.
func (r *Record) Open() bool {
	return r.DischargeDate == nil
}
