package admission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/morgenster/hims/internal/domain/patient"
	"github.com/morgenster/hims/internal/domain/ward"
	"github.com/morgenster/hims/internal/platform/auth"
)

// -- Mock repositories --

type mockWardRepo struct {
	wards map[uuid.UUID]*ward.Ward
}

func newMockWardRepo() *mockWardRepo {
	return &mockWardRepo{wards: make(map[uuid.UUID]*ward.Ward)}
}

func (m *mockWardRepo) Create(_ context.Context, w *ward.Ward) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) GetByID(_ context.Context, id uuid.UUID) (*ward.Ward, error) {
	w, ok := m.wards[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (m *mockWardRepo) Update(_ context.Context, w *ward.Ward) error {
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.wards, id)
	return nil
}

func (m *mockWardRepo) List(_ context.Context) ([]*ward.Ward, error) {
	var out []*ward.Ward
	for _, w := range m.wards {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) SearchByName(_ context.Context, query string, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func (m *mockPatientRepo) ListActive(_ context.Context) ([]*patient.Patient, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		if p.Status.Active() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPatientRepo) ListActiveByWardForUpdate(_ context.Context, wardID uuid.UUID) ([]*patient.Patient, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		if p.Status.Active() && p.CurrentWardID != nil && *p.CurrentWardID == wardID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockRecordRepo struct {
	records []*Record
}

func (m *mockRecordRepo) Append(_ context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	for _, existing := range m.records {
		if existing.PatientID == r.PatientID && existing.Open() {
			return fmt.Errorf("open record already exists for patient %s", r.PatientID)
		}
	}
	m.records = append(m.records, r)
	return nil
}

func (m *mockRecordRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmissionDate.After(out[j].AdmissionDate) })
	return out, nil
}

func (m *mockRecordRepo) GetOpenByPatient(_ context.Context, patientID uuid.UUID) (*Record, error) {
	for _, r := range m.records {
		if r.PatientID == patientID && r.Open() {
			return r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRecordRepo) CloseOpen(_ context.Context, patientID uuid.UUID, staff auth.Staff, at time.Time) error {
	for _, r := range m.records {
		if r.PatientID == patientID && r.Open() {
			r.DischargeDate = &at
			r.DischargedByID = &staff.ID
			r.DischargedByName = &staff.Name
			return nil
		}
	}
	return fmt.Errorf("no open admission record for patient %s", patientID)
}

// passTxRunner runs the function directly; the mock repos have no
// transaction semantics to attach.
type passTxRunner struct{}

func (passTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Fixtures --

type fixture struct {
	svc      *Service
	wards    *mockWardRepo
	patients *mockPatientRepo
	records  *mockRecordRepo
	staff    auth.Staff
}

func newFixture() *fixture {
	wards := newMockWardRepo()
	patients := newMockPatientRepo()
	records := &mockRecordRepo{}
	return &fixture{
		svc:      NewService(wards, patients, records, passTxRunner{}),
		wards:    wards,
		patients: patients,
		records:  records,
		staff:    auth.Staff{ID: "staff-1", Name: "Dr. Okoro", Roles: []string{"physician"}},
	}
}

func (f *fixture) addWard(name string, beds int, gender *string, maxAge *int) *ward.Ward {
	w := testWard(name, beds, gender, maxAge)
	f.wards.wards[w.ID] = w
	return w
}

func (f *fixture) addPatient(gender string, age int) *patient.Patient {
	p := testPatient(gender, age)
	f.patients.patients[p.ID] = p
	return p
}

// -- Admit --

func TestAdmit(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	rec, err := f.svc.Admit(context.Background(), p.ID, w.ID, 2, f.staff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.patients.GetByID(context.Background(), p.ID)
	if got.Status != patient.StatusAdmitted {
		t.Errorf("expected Admitted, got %s", got.Status)
	}
	if got.CurrentWardID == nil || *got.CurrentWardID != w.ID {
		t.Error("expected ward reference set")
	}
	if got.CurrentWardName == nil || *got.CurrentWardName != "General" {
		t.Error("expected ward name denormalized")
	}
	if got.CurrentBedNumber == nil || *got.CurrentBedNumber != 2 {
		t.Error("expected bed 2 assigned")
	}
	if got.LastAdmissionDate == nil {
		t.Error("expected last admission date set")
	}

	if rec.WardID != w.ID || rec.BedNumber != 2 {
		t.Error("record does not match the admission")
	}
	if rec.AdmittedByID != "staff-1" || rec.AdmittedByName != "Dr. Okoro" {
		t.Error("expected admitting staff on the record")
	}
	if rec.LastBilledDate == nil || !rec.LastBilledDate.Equal(rec.AdmissionDate) {
		t.Error("expected billing anchor to start at admission")
	}
	if !rec.Open() {
		t.Error("new record must be open")
	}
}

func TestAdmit_AlreadyAdmitted(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	if _, err := f.svc.Admit(context.Background(), p.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.Admit(context.Background(), p.ID, w.ID, 2, f.staff)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if se.Current != patient.StatusAdmitted {
		t.Errorf("expected current status Admitted, got %s", se.Current)
	}
}

func TestAdmit_BedOutOfRange(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	for _, bed := range []int{0, -1, 5} {
		_, err := f.svc.Admit(context.Background(), p.ID, w.ID, bed, f.staff)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("bed %d: expected ValidationError, got %v", bed, err)
		}
	}
}

func TestAdmit_BedOccupied(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p1 := f.addPatient("Male", 45)
	p2 := f.addPatient("Male", 50)

	if _, err := f.svc.Admit(context.Background(), p1.ID, w.ID, 2, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.Admit(context.Background(), p2.ID, w.ID, 2, f.staff)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.WardID != w.ID || ce.BedNumber != 2 {
		t.Error("conflict must identify the contested bed")
	}

	// Loser must not have overwritten the winner.
	got, _ := f.patients.GetByID(context.Background(), p2.ID)
	if got.Status != patient.StatusDischarged {
		t.Errorf("losing patient must stay Discharged, got %s", got.Status)
	}
}

func TestAdmit_GenderRestriction(t *testing.T) {
	f := newFixture()
	w := f.addWard("Male Ward", 4, strPtr(ward.GenderMale), nil)
	p := f.addPatient("Female", 30)

	_, err := f.svc.Admit(context.Background(), p.ID, w.ID, 1, f.staff)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Reason != ReasonGenderRestriction {
		t.Errorf("expected %q, got %q", ReasonGenderRestriction, ve.Reason)
	}
}

func TestAdmit_WardFull(t *testing.T) {
	f := newFixture()
	w := f.addWard("Small", 1, nil, nil)
	p1 := f.addPatient("Male", 40)
	p2 := f.addPatient("Male", 41)

	if _, err := f.svc.Admit(context.Background(), p1.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.Admit(context.Background(), p2.ID, w.ID, 1, f.staff)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Reason != ReasonWardFull {
		t.Errorf("expected %q, got %q", ReasonWardFull, ve.Reason)
	}
}

func TestAdmit_MissingStaff(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	if _, err := f.svc.Admit(context.Background(), p.ID, w.ID, 1, auth.Staff{}); err == nil {
		t.Error("expected error for missing staff identity")
	}
}

// -- Discharge --

func TestInitiateDischarge(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	if _, err := f.svc.Admit(context.Background(), p.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.InitiateDischarge(context.Background(), p.ID, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.patients.GetByID(context.Background(), p.ID)
	if got.Status != patient.StatusPendingDischarge {
		t.Errorf("expected PendingDischarge, got %s", got.Status)
	}
	if got.DischargeRequesterID == nil || *got.DischargeRequesterID != "staff-1" {
		t.Error("expected discharge requester recorded")
	}
	if got.CurrentBedNumber == nil {
		t.Error("patient must keep their bed until finalization")
	}
}

func TestInitiateDischarge_NotAdmitted(t *testing.T) {
	f := newFixture()
	p := f.addPatient("Male", 45)

	err := f.svc.InitiateDischarge(context.Background(), p.ID, f.staff)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestInitiateDischarge_AlreadyPending(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	if _, err := f.svc.Admit(context.Background(), p.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.InitiateDischarge(context.Background(), p.ID, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := f.svc.InitiateDischarge(context.Background(), p.ID, f.staff)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("second initiation must fail, got %v", err)
	}
}

func TestFinalizeDischarge(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.InitiateDischarge(ctx, p.ID, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	finalizer := auth.Staff{ID: "staff-2", Name: "Nurse Adeyemi", Roles: []string{"nurse"}}
	if err := f.svc.FinalizeDischarge(ctx, p.ID, finalizer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := f.patients.GetByID(ctx, p.ID)
	if got.Status != patient.StatusDischarged {
		t.Errorf("expected Discharged, got %s", got.Status)
	}
	if got.CurrentWardID != nil || got.CurrentBedNumber != nil || got.CurrentWardName != nil {
		t.Error("ward assignment must be cleared")
	}
	if got.DischargeRequesterID != nil {
		t.Error("discharge requester must be cleared")
	}

	history, _ := f.svc.History(ctx, p.ID)
	if len(history) != 1 {
		t.Fatalf("expected one record, got %d", len(history))
	}
	rec := history[0]
	if rec.Open() {
		t.Error("record must be closed")
	}
	if rec.DischargedByID == nil || *rec.DischargedByID != "staff-2" {
		t.Error("expected finalizing staff on the record")
	}

	// Bed is free again.
	idx, _ := f.svc.Occupancy(ctx)
	if idx.Ward(w.ID).BedOccupied(1) {
		t.Error("bed must be released after finalization")
	}
}

func TestFinalizeDischarge_RequiresPending(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, w.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := f.svc.FinalizeDischarge(ctx, p.ID, f.staff)
	var se *InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("finalize from Admitted must fail, got %v", err)
	}
}

func TestReadmissionAfterDischarge(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 4, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Admit(ctx, p.ID, w.ID, 1, f.staff); err != nil {
			t.Fatalf("cycle %d admit: %v", i, err)
		}
		if err := f.svc.InitiateDischarge(ctx, p.ID, f.staff); err != nil {
			t.Fatalf("cycle %d initiate: %v", i, err)
		}
		if err := f.svc.FinalizeDischarge(ctx, p.ID, f.staff); err != nil {
			t.Fatalf("cycle %d finalize: %v", i, err)
		}
	}

	history, _ := f.svc.History(ctx, p.ID)
	if len(history) != 2 {
		t.Fatalf("expected two closed records, got %d", len(history))
	}
	for _, rec := range history {
		if rec.Open() {
			t.Error("all records must be closed")
		}
	}
}

// -- Queries --

func TestCheckAdmission_SuggestsAlternatives(t *testing.T) {
	f := newFixture()
	maleWard := f.addWard("Male Ward", 2, strPtr(ward.GenderMale), nil)
	f.addWard("Open Ward", 2, nil, nil)
	p := f.addPatient("Female", 30)

	res, err := f.svc.CheckAdmission(context.Background(), p.ID, maleWard.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Eligible {
		t.Fatal("expected ineligible")
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].Name != "Open Ward" {
		t.Errorf("expected Open Ward suggested, got %v", res.Alternatives)
	}
}

func TestWardOccupancyView(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 3, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, w.ID, 2, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A ghost occupant: active, assigned to the ward, no bed.
	ghost := f.addPatient("Male", 50)
	ghost.Status = patient.StatusAdmitted
	ghost.CurrentWardID = &w.ID

	view, err := f.svc.WardOccupancyView(ctx, w.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.OccupiedCount != 2 {
		t.Errorf("expected 2 occupied, got %d", view.OccupiedCount)
	}
	if view.FreeBeds != 1 {
		t.Errorf("expected 1 free bed, got %d", view.FreeBeds)
	}
	if len(view.Unassigned) != 1 {
		t.Errorf("expected ghost listed as unassigned, got %d", len(view.Unassigned))
	}
	if _, ok := view.Occupants[2]; !ok {
		t.Error("expected bed 2 in the bed map")
	}
}

func TestWardOccupancyView_FreeBedsFloorsAtZero(t *testing.T) {
	f := newFixture()
	w := f.addWard("Tiny", 1, nil, nil)

	// Two ghosts push the count past capacity.
	for i := 0; i < 2; i++ {
		g := f.addPatient("Male", 30)
		g.Status = patient.StatusAdmitted
		g.CurrentWardID = &w.ID
	}

	view, err := f.svc.WardOccupancyView(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.FreeBeds != 0 {
		t.Errorf("free beds must not go negative, got %d", view.FreeBeds)
	}
}

func TestOccupancySummary(t *testing.T) {
	f := newFixture()
	wA := f.addWard("Alpha", 2, nil, nil)
	f.addWard("Beta", 3, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, wA.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries, err := f.svc.OccupancySummary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].WardName != "Alpha" || summaries[1].WardName != "Beta" {
		t.Error("summaries must follow directory order")
	}
	if summaries[0].OccupiedCount != 1 || summaries[0].FreeBeds != 1 {
		t.Errorf("Alpha: got occupied=%d free=%d", summaries[0].OccupiedCount, summaries[0].FreeBeds)
	}
	if summaries[1].OccupiedCount != 0 || summaries[1].FreeBeds != 3 {
		t.Errorf("Beta: got occupied=%d free=%d", summaries[1].OccupiedCount, summaries[1].FreeBeds)
	}
}

func TestOccupancySummary_DeletedWardStaysVisible(t *testing.T) {
	f := newFixture()
	kept := f.addWard("Alpha", 2, nil, nil)
	doomed := f.addWard("Beta", 3, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, doomed.ID, 1, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.wards.Delete(ctx, doomed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries, err := f.svc.OccupancySummary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected the deleted ward to keep a row, got %d rows", len(summaries))
	}
	if summaries[0].WardID != kept.ID || summaries[0].Orphaned {
		t.Error("directory ward must come first, unflagged")
	}

	orphan := summaries[1]
	if orphan.WardID != doomed.ID {
		t.Fatalf("expected orphan row for %s, got %s", doomed.ID, orphan.WardID)
	}
	if !orphan.Orphaned {
		t.Error("orphan row must be flagged")
	}
	if orphan.OccupiedCount != 1 {
		t.Errorf("orphan row must count its occupant, got %d", orphan.OccupiedCount)
	}
	if orphan.TotalBeds != 0 || orphan.FreeBeds != 0 {
		t.Error("a ward outside the directory has no known capacity")
	}
}

func TestWardOccupancyView_DeletedWardStillServed(t *testing.T) {
	f := newFixture()
	w := f.addWard("General", 3, nil, nil)
	p := f.addPatient("Male", 45)

	ctx := context.Background()
	if _, err := f.svc.Admit(ctx, p.ID, w.ID, 2, f.staff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.wards.Delete(ctx, w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := f.svc.WardOccupancyView(ctx, w.ID)
	if err != nil {
		t.Fatalf("occupied ward must stay viewable after deletion: %v", err)
	}
	if !view.Orphaned || view.Ward != nil {
		t.Error("view must be flagged orphaned with no directory ward")
	}
	if view.OccupiedCount != 1 {
		t.Errorf("expected the stranded occupant counted, got %d", view.OccupiedCount)
	}
	if occ, ok := view.Occupants[2]; !ok || occ.PatientID != p.ID {
		t.Error("expected the stranded occupant on bed 2")
	}

	// An id with no occupants and no directory entry is still a miss.
	if _, err := f.svc.WardOccupancyView(ctx, uuid.New()); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected no-rows error for an unknown ward, got %v", err)
	}
}
