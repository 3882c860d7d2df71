package admission

import (
	"sort"

	"github.com/google/uuid"

	"github.com/morgenster/hims/internal/domain/patient"
)

// WardOccupancy is the derived occupancy of one ward. Every active patient
// assigned to the ward counts toward OccupiedCount; only patients with a
// concrete bed appear in the bed map. The remainder are surfaced as
// Unassigned so staff can fix them, never silently dropped.
type WardOccupancy struct {
	WardID        uuid.UUID
	OccupiedCount int
	Occupants     map[int]*patient.Patient
	Unassigned    []*patient.Patient
}

// OccupiedBeds returns the bed numbers in use, sorted ascending.
func (o *WardOccupancy) OccupiedBeds() []int {
	beds := make([]int, 0, len(o.Occupants))
	for bed := range o.Occupants {
		beds = append(beds, bed)
	}
	sort.Ints(beds)
	return beds
}

// BedOccupied reports whether the given bed number is in use.
func (o *WardOccupancy) BedOccupied(bed int) bool {
	_, ok := o.Occupants[bed]
	return ok
}

// Index maps ward ids to their derived occupancy. It is recomputed from the
// active patient set on demand and must not be cached across an admission
// commit.
type Index map[uuid.UUID]*WardOccupancy

// Ward returns the occupancy for a ward, or an empty occupancy when no
// active patient references it.
func (idx Index) Ward(wardID uuid.UUID) *WardOccupancy {
	if o, ok := idx[wardID]; ok {
		return o
	}
	return &WardOccupancy{WardID: wardID, Occupants: map[int]*patient.Patient{}}
}

// BuildIndex aggregates active patients into per-ward occupancy. Patients
// referencing a ward id that no longer exists in the ward directory are
// still counted under that id (orphan reference) so the inconsistency stays
// visible. Input order does not affect the result.
func BuildIndex(active []*patient.Patient) Index {
	idx := make(Index)
	for _, p := range active {
		if !p.Status.Active() || p.CurrentWardID == nil {
			continue
		}
		wardID := *p.CurrentWardID
		o, ok := idx[wardID]
		if !ok {
			o = &WardOccupancy{WardID: wardID, Occupants: map[int]*patient.Patient{}}
			idx[wardID] = o
		}

		o.OccupiedCount++
		if p.HasBed() {
			o.Occupants[*p.CurrentBedNumber] = p
		} else {
			o.Unassigned = append(o.Unassigned, p)
		}
	}

	for _, o := range idx {
		sort.Slice(o.Unassigned, func(i, j int) bool {
			return o.Unassigned[i].ID.String() < o.Unassigned[j].ID.String()
		})
	}
	return idx
}
