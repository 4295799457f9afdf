package billing

import (
	"context"
	"time"
)

type CoverageRepository interface {
	Create(ctx context.Context, c *Coverage) error
	GetByPatientPayer(ctx context.Context, patientID, payerID string) (*Coverage, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Coverage, int, error)
}

type PayerRepository interface {
	Upsert(ctx context.Context, p *Payer) error
	GetByID(ctx context.Context, id string) (*Payer, error)
	List(ctx context.Context, limit, offset int) ([]*Payer, int, error)
}

type FeeScheduleRepository interface {
	Create(ctx context.Context, f *FeeScheduleEntry) error
	GetActive(ctx context.Context, payerID, procedureCode string, on time.Time) (*FeeScheduleEntry, error)
}

type RVURepository interface {
	Upsert(ctx context.Context, rv *RelativeValue) error
	GetLatest(ctx context.Context, procedureCode string) (*RelativeValue, error)
}

type CodingRuleRepository interface {
	Create(ctx context.Context, r *CodingRule) error
	ListByProcedure(ctx context.Context, procedureCode string) ([]*CodingRule, error)
}
