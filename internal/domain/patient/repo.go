package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for patients. The ForUpdate
// variants row-lock their results and are only meaningful inside a
// transaction; the admission service relies on them for its commit-time
// re-validation.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SearchByName(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	ListActive(ctx context.Context) ([]*Patient, error)
	ListActiveByWardForUpdate(ctx context.Context, wardID uuid.UUID) ([]*Patient, error)
}
