package coding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehr/claimcoder/internal/domain/billing"
	"github.com/ehr/claimcoder/internal/domain/encounter"
	"github.com/ehr/claimcoder/internal/domain/terminology"
)

// ServiceReferenceData serves the engine's lookups from the terminology,
// billing and encounter services.
type ServiceReferenceData struct {
	terms      *terminology.Service
	billing    *billing.Service
	encounters *encounter.Service
}

func NewServiceReferenceData(terms *terminology.Service, bill *billing.Service, enc *encounter.Service) *ServiceReferenceData {
	return &ServiceReferenceData{terms: terms, billing: bill, encounters: enc}
}

var _ ReferenceData = (*ServiceReferenceData)(nil)

// notFound rewraps the source package's sentinel as ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, terminology.ErrNotFound) || errors.Is(err, billing.ErrNotFound) || errors.Is(err, encounter.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *ServiceReferenceData) Coverage(ctx context.Context, patientID, payerID string) (*CoverageRecord, error) {
	c, err := s.billing.GetCoverage(ctx, patientID, payerID)
	if err != nil {
		return nil, notFound(err, "coverage")
	}
	return &CoverageRecord{
		PatientID:         c.PatientID,
		PayerID:           c.PayerID,
		Status:            c.Status,
		PlanType:          c.PlanType,
		PeriodStart:       c.PeriodStart,
		PeriodEnd:         c.PeriodEnd,
		PriorAuthRequired: c.PriorAuthRequired,
	}, nil
}

func toProcedure(c *terminology.CPTCode) *ProcedureCode {
	return &ProcedureCode{Code: c.Code, Description: c.Display, Category: c.Category, Active: c.Active}
}

func toDiagnosis(c *terminology.ICD10Code) *DiagnosisCode {
	return &DiagnosisCode{Code: c.Code, Description: c.Display, Billable: c.Billable, Active: c.Active}
}

func (s *ServiceReferenceData) ProcedureCode(ctx context.Context, code string) (*ProcedureCode, error) {
	c, err := s.terms.LookupCPT(ctx, code)
	if err != nil {
		return nil, notFound(err, "procedure code")
	}
	return toProcedure(c), nil
}

func (s *ServiceReferenceData) SearchProcedures(ctx context.Context, query string, limit int) ([]*ProcedureCode, error) {
	codes, err := s.terms.SearchCPT(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search procedures: %w", err)
	}
	out := make([]*ProcedureCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, toProcedure(c))
	}
	return out, nil
}

func (s *ServiceReferenceData) DiagnosisCode(ctx context.Context, code string) (*DiagnosisCode, error) {
	c, err := s.terms.LookupICD10(ctx, code)
	if err != nil {
		return nil, notFound(err, "diagnosis code")
	}
	return toDiagnosis(c), nil
}

func (s *ServiceReferenceData) SearchDiagnoses(ctx context.Context, query string, limit int) ([]*DiagnosisCode, error) {
	codes, err := s.terms.SearchICD10(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search diagnoses: %w", err)
	}
	out := make([]*DiagnosisCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, toDiagnosis(c))
	}
	return out, nil
}

func (s *ServiceReferenceData) CodingRules(ctx context.Context, procedureCode string) ([]*CodingRule, error) {
	rules, err := s.billing.CodingRules(ctx, procedureCode)
	if err != nil {
		return nil, notFound(err, "coding rules")
	}
	out := make([]*CodingRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, &CodingRule{
			ID:               r.ID.String(),
			ProcedureCode:    r.ProcedureCode,
			RequiredPatterns: r.RequiredPatterns,
			ExcludedPatterns: r.ExcludedPatterns,
			PrimaryOnly:      r.PrimaryOnly,
			NCDReference:     r.NCDReference,
			LCDReference:     r.LCDReference,
			Active:           r.Active,
		})
	}
	return out, nil
}

func (s *ServiceReferenceData) FeeScheduleEntry(ctx context.Context, payerID, procedureCode string, on time.Time) (*FeeScheduleEntry, error) {
	f, err := s.billing.ActiveFee(ctx, payerID, procedureCode, on)
	if err != nil {
		return nil, notFound(err, "fee schedule")
	}
	return &FeeScheduleEntry{PayerID: f.PayerID, ProcedureCode: f.ProcedureCode, Amount: f.Amount}, nil
}

func (s *ServiceReferenceData) RelativeValues(ctx context.Context, procedureCode string) (*RelativeValueUnits, error) {
	rv, err := s.billing.RelativeValue(ctx, procedureCode)
	if err != nil {
		return nil, notFound(err, "relative values")
	}
	return &RelativeValueUnits{
		ProcedureCode:  rv.ProcedureCode,
		WorkRVU:        rv.WorkRVU,
		PracticeRVU:    rv.PracticeExpenseRVU,
		MalpracticeRVU: rv.MalpracticeRVU,
	}, nil
}

func (s *ServiceReferenceData) Payer(ctx context.Context, payerID string) (*PayerRecord, error) {
	p, err := s.billing.GetPayer(ctx, payerID)
	if err != nil {
		return nil, notFound(err, "payer")
	}
	return &PayerRecord{ID: p.ID, Name: p.Name, PayerType: p.PayerType, MedicareMultiplier: p.MedicareMultiplier}, nil
}

func (s *ServiceReferenceData) HasPriorEncounter(ctx context.Context, patientID, providerID string, from, to time.Time) (bool, error) {
	ok, err := s.encounters.HasPriorEncounter(ctx, patientID, providerID, from, to)
	if err != nil {
		return false, fmt.Errorf("prior encounters: %w", err)
	}
	return ok, nil
}
