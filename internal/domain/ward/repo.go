package ward

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for wards.
type Repository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Ward, error)
}
