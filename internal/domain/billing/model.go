package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a billing record does not exist.
var ErrNotFound = errors.New("billing record not found")

// Coverage is a patient's enrollment with one payer.
type Coverage struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         string     `db:"patient_id" json:"patient_id"`
	PayerID           string     `db:"payer_id" json:"payer_id"`
	Status            string     `db:"status" json:"status"`
	PlanType          string     `db:"plan_type" json:"plan_type,omitempty"`
	PolicyNumber      string     `db:"policy_number" json:"policy_number,omitempty"`
	PeriodStart       *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd         *time.Time `db:"period_end" json:"period_end,omitempty"`
	PriorAuthRequired bool       `db:"prior_auth_required" json:"prior_auth_required"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Payer is an insurance company or government program.
type Payer struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	PayerType          string    `db:"payer_type" json:"payer_type"`
	MedicareMultiplier *float64  `db:"medicare_multiplier" json:"medicare_multiplier,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// FeeScheduleEntry is a contracted rate effective over a date range.
type FeeScheduleEntry struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PayerID       string     `db:"payer_id" json:"payer_id"`
	ProcedureCode string     `db:"procedure_code" json:"procedure_code"`
	Amount        float64    `db:"amount" json:"amount"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
}

// ActiveOn reports whether the entry covers the given day.
func (f *FeeScheduleEntry) ActiveOn(day time.Time) bool {
	if day.Before(f.EffectiveFrom) {
		return false
	}
	return f.EffectiveTo == nil || !day.After(*f.EffectiveTo)
}

// RelativeValue holds the Medicare RBRVS components for one code.
type RelativeValue struct {
	ProcedureCode      string  `db:"procedure_code" json:"procedure_code" parquet:"procedure_code"`
	WorkRVU            float64 `db:"work_rvu" json:"work_rvu" parquet:"work_rvu"`
	PracticeExpenseRVU float64 `db:"practice_expense_rvu" json:"practice_expense_rvu" parquet:"practice_expense_rvu"`
	MalpracticeRVU     float64 `db:"malpractice_rvu" json:"malpractice_rvu" parquet:"malpractice_rvu"`
	Year               int32   `db:"year" json:"year" parquet:"year"`
}

// CopyValues returns the row in reference_rvu COPY column order.
func (r *RelativeValue) CopyValues() []any {
	return []any{r.ProcedureCode, r.WorkRVU, r.PracticeExpenseRVU, r.MalpracticeRVU, r.Year}
}

// RVUCopyColumns is the column order of RelativeValue.CopyValues.
var RVUCopyColumns = []string{"procedure_code", "work_rvu", "practice_expense_rvu", "malpractice_rvu", "year"}

// CodingRule ties a procedure code to the diagnosis patterns that establish
// medical necessity under an NCD or LCD.
type CodingRule struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ProcedureCode    string    `db:"procedure_code" json:"procedure_code"`
	RequiredPatterns []string  `db:"required_patterns" json:"required_patterns"`
	ExcludedPatterns []string  `db:"excluded_patterns" json:"excluded_patterns"`
	PrimaryOnly      bool      `db:"primary_only" json:"primary_only"`
	NCDReference     string    `db:"ncd_reference" json:"ncd_reference,omitempty"`
	LCDReference     string    `db:"lcd_reference" json:"lcd_reference,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
