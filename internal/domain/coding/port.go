package coding

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by ReferenceData lookups when no record exists.
var ErrNotFound = errors.New("reference record not found")

// CoverageRecord is the insurance record used for eligibility.
type CoverageRecord struct {
	PatientID         string
	PayerID           string
	Status            string
	PlanType          string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	PriorAuthRequired bool
}

// ProcedureCode is a CPT/HCPCS reference entry.
type ProcedureCode struct {
	Code        string
	Description string
	Category    string
	Active      bool
}

// DiagnosisCode is an ICD-10-CM reference entry.
type DiagnosisCode struct {
	Code        string
	Description string
	Billable    bool
	Active      bool
}

// CodingRule is a coverage rule pairing a procedure with the diagnosis
// patterns that support (or exclude) its medical necessity.
type CodingRule struct {
	ID               string
	ProcedureCode    string
	RequiredPatterns []string
	ExcludedPatterns []string
	PrimaryOnly      bool
	NCDReference     string
	LCDReference     string
	Active           bool
}

// FeeScheduleEntry is a contracted rate for one payer and code.
type FeeScheduleEntry struct {
	PayerID       string
	ProcedureCode string
	Amount        float64
}

// RelativeValueUnits are the RBRVS components for one procedure code.
type RelativeValueUnits struct {
	ProcedureCode  string
	WorkRVU        float64
	PracticeRVU    float64
	MalpracticeRVU float64
}

// Total returns the summed RVUs.
func (r RelativeValueUnits) Total() float64 {
	return r.WorkRVU + r.PracticeRVU + r.MalpracticeRVU
}

// PayerRecord describes a payer. MedicareMultiplier is nil when no explicit
// multiplier is on file.
type PayerRecord struct {
	ID                 string
	Name               string
	PayerType          string
	MedicareMultiplier *float64
}

// ReferenceData is the read-only port the engine uses for every lookup.
// Implementations return ErrNotFound (possibly wrapped) for absent records.
type ReferenceData interface {
	Coverage(ctx context.Context, patientID, payerID string) (*CoverageRecord, error)
	ProcedureCode(ctx context.Context, code string) (*ProcedureCode, error)
	SearchProcedures(ctx context.Context, query string, limit int) ([]*ProcedureCode, error)
	DiagnosisCode(ctx context.Context, code string) (*DiagnosisCode, error)
	SearchDiagnoses(ctx context.Context, query string, limit int) ([]*DiagnosisCode, error)
	CodingRules(ctx context.Context, procedureCode string) ([]*CodingRule, error)
	FeeScheduleEntry(ctx context.Context, payerID, procedureCode string, on time.Time) (*FeeScheduleEntry, error)
	RelativeValues(ctx context.Context, procedureCode string) (*RelativeValueUnits, error)
	Payer(ctx context.Context, payerID string) (*PayerRecord, error)
	HasPriorEncounter(ctx context.Context, patientID, providerID string, from, to time.Time) (bool, error)
}

// SocialRiskAssessment is the result of an external social-determinants
// screen for a patient.
type SocialRiskAssessment struct {
	DiagnosisCodes []string
	CCMEligible    bool
	Source         string
}

// SocialRiskAssessor looks up social-risk findings for a patient.
type SocialRiskAssessor interface {
	Assess(ctx context.Context, patientID string) (*SocialRiskAssessment, error)
}
