package ward

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validGenders = map[string]bool{
	GenderMale:   true,
	GenderFemale: true,
	GenderMixed:  true,
}

func validate(w *Ward) error {
	if w.Name == "" {
		return fmt.Errorf("name is required")
	}
	if w.TotalBeds <= 0 {
		return fmt.Errorf("total_beds must be positive")
	}
	if w.PricePerDay.IsNegative() {
		return fmt.Errorf("price_per_day must not be negative")
	}
	if w.Gender != nil && *w.Gender != "" && !validGenders[*w.Gender] {
		return fmt.Errorf("invalid gender restriction: %s", *w.Gender)
	}
	if w.MaxAge != nil && *w.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	return nil
}

func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if err := validate(w); err != nil {
		return err
	}
	return s.repo.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if err := validate(w); err != nil {
		return err
	}
	return s.repo.Update(ctx, w)
}

func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListWards(ctx context.Context) ([]*Ward, error) {
	return s.repo.List(ctx)
}
