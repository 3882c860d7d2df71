package admission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morgenster/hims/internal/domain/patient"
	"github.com/morgenster/hims/internal/domain/ward"
	"github.com/morgenster/hims/internal/platform/auth"
	"github.com/morgenster/hims/internal/platform/db"
)

// Service implements ward occupancy queries, admission eligibility checks
// and the admission/discharge state transitions. Writes happen inside
// transactions supplied by the TxRunner; snapshots used for UI previews are
// read lock-free and re-validated against locked rows before any commit.
type Service struct {
	wards    ward.Repository
	patients patient.Repository
	records  Repository
	tx       db.TxRunner
}

func NewService(wards ward.Repository, patients patient.Repository, records Repository, tx db.TxRunner) *Service {
	return &Service{wards: wards, patients: patients, records: records, tx: tx}
}

// Occupancy recomputes the occupancy index from the active patient set.
func (s *Service) Occupancy(ctx context.Context) (Index, error) {
	active, err := s.patients.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active patients: %w", err)
	}
	return BuildIndex(active), nil
}

// WardView is the occupancy detail for a single ward. Orphaned marks a view
// for a ward id that left the directory while still referenced by active
// patients; Ward is nil in that case.
type WardView struct {
	Ward          *ward.Ward       `json:"ward"`
	OccupiedCount int              `json:"occupied_count"`
	FreeBeds      int              `json:"free_beds"`
	OccupiedBeds  []int            `json:"occupied_beds"`
	Occupants     map[int]Occupant `json:"occupants"`
	Unassigned    []Occupant       `json:"unassigned"`
	Orphaned      bool             `json:"orphaned,omitempty"`
}

// Occupant is the patient summary shown on a bed map.
type Occupant struct {
	PatientID uuid.UUID `json:"patient_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
}

// WardOccupancyView returns the bed map for one ward, including any ghost
// occupants without a bed assignment. FreeBeds never goes below zero even
// when ghost occupants push the count past capacity. A ward id that is gone
// from the directory but still holds active patients is served as an
// orphaned view rather than a not-found, so its occupants stay reachable.
func (s *Service) WardOccupancyView(ctx context.Context, wardID uuid.UUID) (*WardView, error) {
	idx, err := s.Occupancy(ctx)
	if err != nil {
		return nil, err
	}

	w, err := s.wards.GetByID(ctx, wardID)
	if err != nil {
		if occ, ok := idx[wardID]; ok && errors.Is(err, pgx.ErrNoRows) {
			return viewOf(nil, occ), nil
		}
		return nil, fmt.Errorf("get ward %s: %w", wardID, err)
	}
	return viewOf(w, idx.Ward(wardID)), nil
}

func viewOf(w *ward.Ward, occ *WardOccupancy) *WardView {
	view := &WardView{
		Ward:          w,
		OccupiedCount: occ.OccupiedCount,
		OccupiedBeds:  occ.OccupiedBeds(),
		Occupants:     make(map[int]Occupant, len(occ.Occupants)),
		Orphaned:      w == nil,
	}
	if w != nil {
		view.FreeBeds = max(0, w.TotalBeds-occ.OccupiedCount)
	}
	for bed, p := range occ.Occupants {
		view.Occupants[bed] = occupantOf(p)
	}
	for _, p := range occ.Unassigned {
		view.Unassigned = append(view.Unassigned, occupantOf(p))
	}
	return view
}

// Summary is the per-ward occupancy row for the dashboard feed.
type Summary struct {
	WardID        uuid.UUID `json:"ward_id"`
	WardName      string    `json:"ward_name"`
	TotalBeds     int       `json:"total_beds"`
	OccupiedCount int       `json:"occupied_count"`
	FreeBeds      int       `json:"free_beds"`
	Unassigned    int       `json:"unassigned"`
	Orphaned      bool      `json:"orphaned,omitempty"`
}

// OccupancySummary returns occupancy rows for every ward in the directory,
// ordered as the directory lists them (by name). Ward ids that active
// patients still reference but the directory no longer knows are appended
// after the directory rows, flagged Orphaned, so a deleted ward's occupants
// never drop out of the feed.
func (s *Service) OccupancySummary(ctx context.Context) ([]*Summary, error) {
	wards, err := s.wards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wards: %w", err)
	}
	idx, err := s.Occupancy(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[uuid.UUID]bool, len(wards))
	summaries := make([]*Summary, 0, len(wards))
	for _, w := range wards {
		known[w.ID] = true
		occ := idx.Ward(w.ID)
		summaries = append(summaries, &Summary{
			WardID:        w.ID,
			WardName:      w.Name,
			TotalBeds:     w.TotalBeds,
			OccupiedCount: occ.OccupiedCount,
			FreeBeds:      max(0, w.TotalBeds-occ.OccupiedCount),
			Unassigned:    len(occ.Unassigned),
		})
	}

	var orphans []*Summary
	for id, occ := range idx {
		if known[id] {
			continue
		}
		orphans = append(orphans, &Summary{
			WardID:        id,
			WardName:      "(deleted ward)",
			OccupiedCount: occ.OccupiedCount,
			Unassigned:    len(occ.Unassigned),
			Orphaned:      true,
		})
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].WardID.String() < orphans[j].WardID.String()
	})
	return append(summaries, orphans...), nil
}

// CheckAdmission runs the eligibility rules for a candidate (patient, ward)
// pair against a fresh occupancy snapshot. This is the UI preview; the same
// rules run again inside Admit against locked rows.
func (s *Service) CheckAdmission(ctx context.Context, patientID, wardID uuid.UUID) (*Result, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", err)
	}
	w, err := s.wards.GetByID(ctx, wardID)
	if err != nil {
		return nil, fmt.Errorf("ward not found: %w", err)
	}
	allWards, err := s.wards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wards: %w", err)
	}
	idx, err := s.Occupancy(ctx)
	if err != nil {
		return nil, err
	}

	res := CheckEligibility(w, p, idx, allWards)
	return &res, nil
}

// Admit transitions a patient into the given ward and bed. The whole
// operation runs in one transaction: the patient row is locked, the ward's
// active occupants are locked and re-aggregated, eligibility and the
// specific bed are re-validated, and only then are the patient update and
// the new history record committed together. Concurrent attempts on the
// same bed serialize on the row locks; the loser sees the bed occupied and
// gets a ConflictError.
func (s *Service) Admit(ctx context.Context, patientID, wardID uuid.UUID, bedNumber int, staff auth.Staff) (*Record, error) {
	if staff.ID == "" {
		return nil, fmt.Errorf("acting staff identity is required")
	}

	var rec *Record
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByIDForUpdate(ctx, patientID)
		if err != nil {
			return fmt.Errorf("patient not found: %w", err)
		}
		if p.Status.Active() {
			return &InvalidStateError{Action: "admit", Current: p.Status}
		}

		w, err := s.wards.GetByID(ctx, wardID)
		if err != nil {
			return fmt.Errorf("ward not found: %w", err)
		}
		if bedNumber < 1 || bedNumber > w.TotalBeds {
			return &ValidationError{Reason: fmt.Sprintf("bed %d out of range 1..%d", bedNumber, w.TotalBeds)}
		}

		occupants, err := s.patients.ListActiveByWardForUpdate(ctx, wardID)
		if err != nil {
			return fmt.Errorf("list ward occupants: %w", err)
		}
		idx := BuildIndex(occupants)

		if res := CheckEligibility(w, p, idx, nil); !res.Eligible {
			return &ValidationError{Reason: res.Reason}
		}
		if idx.Ward(wardID).BedOccupied(bedNumber) {
			return &ConflictError{WardID: wardID, BedNumber: bedNumber}
		}

		now := time.Now().UTC()
		p.Status = patient.StatusAdmitted
		p.CurrentWardID = &w.ID
		p.CurrentWardName = &w.Name
		p.CurrentBedNumber = &bedNumber
		p.DischargeRequesterID = nil
		p.LastAdmissionDate = &now
		if err := s.patients.Update(ctx, p); err != nil {
			if isUniqueViolation(err) {
				return &ConflictError{WardID: wardID, BedNumber: bedNumber}
			}
			return fmt.Errorf("update patient: %w", err)
		}

		rec = &Record{
			PatientID:      p.ID,
			WardID:         w.ID,
			WardName:       w.Name,
			BedNumber:      bedNumber,
			AdmissionDate:  now,
			AdmittedByID:   staff.ID,
			AdmittedByName: staff.Name,
			LastBilledDate: &now,
		}
		if err := s.records.Append(ctx, rec); err != nil {
			if isUniqueViolation(err) {
				return &ConflictError{WardID: wardID, BedNumber: bedNumber}
			}
			return fmt.Errorf("append admission record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// InitiateDischarge moves an Admitted patient to PendingDischarge,
// recording who requested it. Any other starting status is rejected and the
// patient is left unchanged.
func (s *Service) InitiateDischarge(ctx context.Context, patientID uuid.UUID, staff auth.Staff) error {
	if staff.ID == "" {
		return fmt.Errorf("acting staff identity is required")
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByIDForUpdate(ctx, patientID)
		if err != nil {
			return fmt.Errorf("patient not found: %w", err)
		}
		if p.Status != patient.StatusAdmitted {
			return &InvalidStateError{Action: "initiate discharge for", Current: p.Status}
		}

		p.Status = patient.StatusPendingDischarge
		requester := staff.ID
		p.DischargeRequesterID = &requester
		if err := s.patients.Update(ctx, p); err != nil {
			return fmt.Errorf("update patient: %w", err)
		}
		return nil
	})
}

// FinalizeDischarge completes a pending discharge: the open admission
// record is closed with the discharge timestamp and staff identity, the
// patient returns to Discharged and the ward assignment is cleared.
// Both writes commit atomically.
func (s *Service) FinalizeDischarge(ctx context.Context, patientID uuid.UUID, staff auth.Staff) error {
	if staff.ID == "" {
		return fmt.Errorf("acting staff identity is required")
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByIDForUpdate(ctx, patientID)
		if err != nil {
			return fmt.Errorf("patient not found: %w", err)
		}
		if p.Status != patient.StatusPendingDischarge {
			return &InvalidStateError{Action: "finalize discharge for", Current: p.Status}
		}

		now := time.Now().UTC()
		if err := s.records.CloseOpen(ctx, patientID, staff, now); err != nil {
			return fmt.Errorf("close admission record: %w", err)
		}

		p.Status = patient.StatusDischarged
		p.CurrentWardID = nil
		p.CurrentWardName = nil
		p.CurrentBedNumber = nil
		p.DischargeRequesterID = nil
		if err := s.patients.Update(ctx, p); err != nil {
			return fmt.Errorf("update patient: %w", err)
		}
		return nil
	})
}

// History returns the patient's admission records, newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*Record, error) {
	return s.records.ListByPatient(ctx, patientID)
}

func occupantOf(p *patient.Patient) Occupant {
	return Occupant{PatientID: p.ID, Name: p.FullName(), Status: string(p.Status)}
}

// isUniqueViolation recognizes the partial unique indexes that backstop the
// one-patient-per-bed and one-open-stay invariants.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
