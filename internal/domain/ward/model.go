package ward

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gender restriction values a ward may carry. An empty restriction or
// "Mixed" accepts any patient.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderMixed  = "Mixed"
)

// Ward maps to the ward table.
type Ward struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	TotalBeds   int             `db:"total_beds" json:"total_beds"`
	PricePerDay decimal.Decimal `db:"price_per_day" json:"price_per_day"`
	Gender      *string         `db:"gender" json:"gender,omitempty"`
	MaxAge      *int            `db:"max_age" json:"max_age,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// AcceptsGender reports whether the ward's gender restriction allows a
// patient of the given gender.
func (w *Ward) AcceptsGender(gender string) bool {
	if w.Gender == nil || *w.Gender == "" || *w.Gender == GenderMixed {
		return true
	}
	return *w.Gender == gender
}

// AcceptsAge reports whether a patient of the given age fits the ward's age
// limit. A missing or zero MaxAge means unrestricted.
func (w *Ward) AcceptsAge(age int) bool {
	if w.MaxAge == nil || *w.MaxAge <= 0 {
		return true
	}
	return age <= *w.MaxAge
}
