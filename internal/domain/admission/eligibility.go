package admission

import (
	"sort"

	"github.com/morgenster/hims/internal/domain/patient"
	"github.com/morgenster/hims/internal/domain/ward"
)

// Ineligibility reasons, matched by tests and surfaced to callers verbatim.
const (
	ReasonGenderRestriction = "gender restriction"
	ReasonAgeLimitExceeded  = "age limit exceeded"
	ReasonWardFull          = "ward full"
)

// Result is the outcome of an eligibility check. When the candidate fails a
// gender or age rule, Alternatives lists wards that would accept the patient
// and still have free capacity, sorted by name for stable output.
type Result struct {
	Eligible     bool         `json:"eligible"`
	Reason       string       `json:"reason,omitempty"`
	Alternatives []*ward.Ward `json:"alternatives,omitempty"`
}

// CheckEligibility validates a candidate (ward, patient) pair against the
// ward's restrictions and an occupancy snapshot. Rules run in order and the
// first failure wins: gender restriction, age limit, capacity. It is a pure
// query with no side effects; the admission service re-runs it against
// locked rows at commit time.
func CheckEligibility(w *ward.Ward, p *patient.Patient, idx Index, allWards []*ward.Ward) Result {
	if !w.AcceptsGender(p.Gender) {
		return Result{Reason: ReasonGenderRestriction, Alternatives: alternatives(p, idx, allWards)}
	}
	if !w.AcceptsAge(p.Age) {
		return Result{Reason: ReasonAgeLimitExceeded, Alternatives: alternatives(p, idx, allWards)}
	}
	if idx.Ward(w.ID).OccupiedCount >= w.TotalBeds {
		return Result{Reason: ReasonWardFull}
	}
	return Result{Eligible: true}
}

// alternatives returns the wards that satisfy gender and age rules for the
// patient and have at least one free place.
func alternatives(p *patient.Patient, idx Index, allWards []*ward.Ward) []*ward.Ward {
	var out []*ward.Ward
	for _, w := range allWards {
		if w.AcceptsGender(p.Gender) && w.AcceptsAge(p.Age) && idx.Ward(w.ID).OccupiedCount < w.TotalBeds {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
