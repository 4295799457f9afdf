package billing

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

type Service struct {
	coverages CoverageRepository
	payers    PayerRepository
	fees      FeeScheduleRepository
	rvus      RVURepository
	rules     CodingRuleRepository
}

func NewService(cov CoverageRepository, payers PayerRepository, fees FeeScheduleRepository, rvus RVURepository, rules CodingRuleRepository) *Service {
	return &Service{coverages: cov, payers: payers, fees: fees, rvus: rvus, rules: rules}
}

// -- Coverage --

var validCoverageStatuses = map[string]bool{
	"active": true, "cancelled": true, "draft": true, "entered-in-error": true,
}

func (s *Service) CreateCoverage(ctx context.Context, c *Coverage) error {
	if c.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if c.PayerID == "" {
		return fmt.Errorf("payer_id is required")
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if !validCoverageStatuses[c.Status] {
		return fmt.Errorf("invalid coverage status: %s", c.Status)
	}
	if c.PeriodStart != nil && c.PeriodEnd != nil && c.PeriodEnd.Before(*c.PeriodStart) {
		return fmt.Errorf("period_end precedes period_start")
	}
	return s.coverages.Create(ctx, c)
}

func (s *Service) GetCoverage(ctx context.Context, patientID, payerID string) (*Coverage, error) {
	return s.coverages.GetByPatientPayer(ctx, patientID, payerID)
}

func (s *Service) ListCoveragesByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Coverage, int, error) {
	return s.coverages.ListByPatient(ctx, patientID, limit, offset)
}

// -- Payer --

func (s *Service) SavePayer(ctx context.Context, p *Payer) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.MedicareMultiplier != nil && *p.MedicareMultiplier <= 0 {
		return fmt.Errorf("medicare_multiplier must be positive")
	}
	return s.payers.Upsert(ctx, p)
}

func (s *Service) GetPayer(ctx context.Context, id string) (*Payer, error) {
	return s.payers.GetByID(ctx, id)
}

func (s *Service) ListPayers(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	return s.payers.List(ctx, limit, offset)
}

// -- Fee schedule --

func (s *Service) CreateFeeScheduleEntry(ctx context.Context, f *FeeScheduleEntry) error {
	if f.PayerID == "" || f.ProcedureCode == "" {
		return fmt.Errorf("payer_id and procedure_code are required")
	}
	if f.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if f.EffectiveFrom.IsZero() {
		return fmt.Errorf("effective_from is required")
	}
	if f.EffectiveTo != nil && f.EffectiveTo.Before(f.EffectiveFrom) {
		return fmt.Errorf("effective_to precedes effective_from")
	}
	return s.fees.Create(ctx, f)
}

func (s *Service) ActiveFee(ctx context.Context, payerID, procedureCode string, on time.Time) (*FeeScheduleEntry, error) {
	return s.fees.GetActive(ctx, payerID, procedureCode, on)
}

// -- RVU --

func (s *Service) SaveRelativeValue(ctx context.Context, rv *RelativeValue) error {
	if rv.ProcedureCode == "" {
		return fmt.Errorf("procedure_code is required")
	}
	if rv.WorkRVU < 0 || rv.PracticeExpenseRVU < 0 || rv.MalpracticeRVU < 0 {
		return fmt.Errorf("rvu components cannot be negative")
	}
	if rv.Year == 0 {
		rv.Year = int32(time.Now().Year())
	}
	return s.rvus.Upsert(ctx, rv)
}

func (s *Service) RelativeValue(ctx context.Context, procedureCode string) (*RelativeValue, error) {
	return s.rvus.GetLatest(ctx, procedureCode)
}

// -- Coding rules --

// CreateCodingRule stores a rule after checking its glob patterns parse.
func (s *Service) CreateCodingRule(ctx context.Context, r *CodingRule) error {
	if r.ProcedureCode == "" {
		return fmt.Errorf("procedure_code is required")
	}
	for _, p := range append(append([]string{}, r.RequiredPatterns...), r.ExcludedPatterns...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	if r.RequiredPatterns == nil {
		r.RequiredPatterns = []string{}
	}
	if r.ExcludedPatterns == nil {
		r.ExcludedPatterns = []string{}
	}
	return s.rules.Create(ctx, r)
}

func (s *Service) CodingRules(ctx context.Context, procedureCode string) ([]*CodingRule, error) {
	return s.rules.ListByProcedure(ctx, procedureCode)
}
