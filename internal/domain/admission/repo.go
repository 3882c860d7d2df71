package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/morgenster/hims/internal/platform/auth"
)

// Repository defines persistence operations for admission history records.
type Repository interface {
	Append(ctx context.Context, r *Record) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Record, error)
	GetOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Record, error)
	// CloseOpen stamps the discharge fields onto the patient's open record.
	CloseOpen(ctx context.Context, patientID uuid.UUID, staff auth.Staff, at time.Time) error
}
