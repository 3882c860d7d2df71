package patient

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
	"Male":   true,
	"Female": true,
}

// RegisterPatient creates a new patient record. Newly registered patients
// start Discharged; the admission workflow is the only path into a ward.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.Surname == "" {
		return fmt.Errorf("first_name and surname are required")
	}
	if p.Age < 0 {
		return fmt.Errorf("age must not be negative")
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	p.Status = StatusDischarged
	p.CurrentWardID = nil
	p.CurrentWardName = nil
	p.CurrentBedNumber = nil
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateDemographics updates a patient's demographic fields. Status and
// ward assignment are owned by the admission service and never touched here.
func (s *Service) UpdateDemographics(ctx context.Context, id uuid.UUID, upd *Patient) (*Patient, error) {
	if upd.Age < 0 {
		return nil, fmt.Errorf("age must not be negative")
	}
	if upd.Gender != "" && !validGenders[upd.Gender] {
		return nil, fmt.Errorf("invalid gender: %s", upd.Gender)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", err)
	}

	if upd.FirstName != "" {
		p.FirstName = upd.FirstName
	}
	if upd.Surname != "" {
		p.Surname = upd.Surname
	}
	if upd.Age > 0 {
		p.Age = upd.Age
	}
	if upd.Gender != "" {
		p.Gender = upd.Gender
	}
	if upd.Phone != nil {
		p.Phone = upd.Phone
	}
	if upd.Address != nil {
		p.Address = upd.Address
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}
	if p.Status.Active() {
		return fmt.Errorf("cannot delete patient while %s", p.Status)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.SearchByName(ctx, query, limit, offset)
}
