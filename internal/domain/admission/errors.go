package admission

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/morgenster/hims/internal/domain/patient"
)

// ValidationError means the candidate admission violates a ward rule
// (gender, age, capacity, bed range). Choosing a different ward or bed can
// resolve it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "admission not allowed: " + e.Reason
}

// ConflictError means the requested bed was taken between selection and
// commit. The caller must re-fetch occupancy and pick again; the losing
// commit never overwrites the winner.
type ConflictError struct {
	WardID    uuid.UUID
	BedNumber int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("bed %d in ward %s is already occupied", e.BedNumber, e.WardID)
}

// InvalidStateError means the requested transition is not permitted from the
// patient's current status. Retrying with the same input cannot succeed.
type InvalidStateError struct {
	Action  string
	Current patient.Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s patient with status %s", e.Action, e.Current)
}
