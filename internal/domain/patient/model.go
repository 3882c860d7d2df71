package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is a patient's admission state.
type Status string

const (
	// StatusDischarged is the initial and terminal state; the patient
	// occupies no hospital resources.
	StatusDischarged Status = "Discharged"
	// StatusAdmitted means the patient holds a place in a ward.
	StatusAdmitted Status = "Admitted"
	// StatusPendingDischarge means discharge has been initiated but not yet
	// finalized; the patient still occupies their bed.
	StatusPendingDischarge Status = "PendingDischarge"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDischarged, StatusAdmitted, StatusPendingDischarge:
		return true
	}
	return false
}

// Active reports whether the patient currently occupies hospital resources.
func (s Status) Active() bool {
	return s == StatusAdmitted || s == StatusPendingDischarge
}

// Patient maps to the patient table. Ward name and bed number are
// denormalized alongside the ward reference so lists render without joins;
// the admission service keeps them consistent.
type Patient struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	FirstName            string     `db:"first_name" json:"first_name"`
	Surname              string     `db:"surname" json:"surname"`
	Age                  int        `db:"age" json:"age"`
	Gender               string     `db:"gender" json:"gender"`
	Phone                *string    `db:"phone" json:"phone,omitempty"`
	Address              *string    `db:"address" json:"address,omitempty"`
	Status               Status     `db:"status" json:"status"`
	CurrentWardID        *uuid.UUID `db:"current_ward_id" json:"current_ward_id,omitempty"`
	CurrentWardName      *string    `db:"current_ward_name" json:"current_ward_name,omitempty"`
	CurrentBedNumber     *int       `db:"current_bed_number" json:"current_bed_number,omitempty"`
	DischargeRequesterID *string    `db:"discharge_requester_id" json:"discharge_requester_id,omitempty"`
	LastAdmissionDate    *time.Time `db:"last_admission_date" json:"last_admission_date,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.Surname
}

// HasBed reports whether the patient has a concrete bed assignment. An
// active patient without one is a "ghost" occupant that staff must resolve.
func (p *Patient) HasBed() bool {
	return p.CurrentBedNumber != nil && *p.CurrentBedNumber > 0
}
