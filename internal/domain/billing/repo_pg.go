package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/claimcoder/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// =========== Coverage Repository ===========

type coverageRepoPG struct{ pool *pgxpool.Pool }

func NewCoverageRepoPG(pool *pgxpool.Pool) CoverageRepository { return &coverageRepoPG{pool: pool} }

const covCols = `id, patient_id, payer_id, status, COALESCE(plan_type,''), COALESCE(policy_number,''),
	period_start, period_end, prior_auth_required, created_at, updated_at`

func scanCoverage(row pgx.Row) (*Coverage, error) {
	var c Coverage
	err := row.Scan(&c.ID, &c.PatientID, &c.PayerID, &c.Status, &c.PlanType, &c.PolicyNumber,
		&c.PeriodStart, &c.PeriodEnd, &c.PriorAuthRequired, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *coverageRepoPG) Create(ctx context.Context, c *Coverage) error {
	c.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO coverage (id, patient_id, payer_id, status, plan_type, policy_number,
			period_start, period_end, prior_auth_required)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.PayerID, c.Status, c.PlanType, c.PolicyNumber,
		c.PeriodStart, c.PeriodEnd, c.PriorAuthRequired).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert coverage: %w", err)
	}
	return nil
}

// GetByPatientPayer returns the most recently started coverage for the pair.
func (r *coverageRepoPG) GetByPatientPayer(ctx context.Context, patientID, payerID string) (*Coverage, error) {
	c, err := scanCoverage(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+covCols+` FROM coverage
		 WHERE patient_id = $1 AND payer_id = $2
		 ORDER BY (status = 'active') DESC, period_start DESC NULLS LAST, created_at DESC
		 LIMIT 1`, patientID, payerID))
	if err != nil {
		return nil, notFound(err, "get coverage")
	}
	return c, nil
}

func (r *coverageRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Coverage, int, error) {
	q := connFor(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM coverage WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coverage: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT `+covCols+` FROM coverage WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coverage: %w", err)
	}
	defer rows.Close()
	var items []*Coverage
	for rows.Next() {
		c, err := scanCoverage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Payer Repository ===========

type payerRepoPG struct{ pool *pgxpool.Pool }

func NewPayerRepoPG(pool *pgxpool.Pool) PayerRepository { return &payerRepoPG{pool: pool} }

const payerCols = `id, name, payer_type, medicare_multiplier, created_at`

func scanPayer(row pgx.Row) (*Payer, error) {
	var p Payer
	err := row.Scan(&p.ID, &p.Name, &p.PayerType, &p.MedicareMultiplier, &p.CreatedAt)
	return &p, err
}

func (r *payerRepoPG) Upsert(ctx context.Context, p *Payer) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payer (id, name, payer_type, medicare_multiplier)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			payer_type = EXCLUDED.payer_type, medicare_multiplier = EXCLUDED.medicare_multiplier
		RETURNING created_at`,
		p.ID, p.Name, p.PayerType, p.MedicareMultiplier).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert payer: %w", err)
	}
	return nil
}

func (r *payerRepoPG) GetByID(ctx context.Context, id string) (*Payer, error) {
	p, err := scanPayer(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+payerCols+` FROM payer WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get payer")
	}
	return p, nil
}

func (r *payerRepoPG) List(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	q := connFor(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM payer`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payers: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT `+payerCols+` FROM payer ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payers: %w", err)
	}
	defer rows.Close()
	var items []*Payer
	for rows.Next() {
		p, err := scanPayer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Fee Schedule Repository ===========

type feeScheduleRepoPG struct{ pool *pgxpool.Pool }

func NewFeeScheduleRepoPG(pool *pgxpool.Pool) FeeScheduleRepository {
	return &feeScheduleRepoPG{pool: pool}
}

func (r *feeScheduleRepoPG) Create(ctx context.Context, f *FeeScheduleEntry) error {
	f.ID = uuid.New()
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO fee_schedule (id, payer_id, procedure_code, amount, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.PayerID, f.ProcedureCode, f.Amount, f.EffectiveFrom, f.EffectiveTo)
	if err != nil {
		return fmt.Errorf("insert fee schedule entry: %w", err)
	}
	return nil
}

// GetActive returns the entry in effect on the given day, preferring the
// latest effective_from when ranges overlap.
func (r *feeScheduleRepoPG) GetActive(ctx context.Context, payerID, procedureCode string, on time.Time) (*FeeScheduleEntry, error) {
	var f FeeScheduleEntry
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT id, payer_id, procedure_code, amount, effective_from, effective_to
		FROM fee_schedule
		WHERE payer_id = $1 AND procedure_code = $2
		  AND effective_from <= $3 AND (effective_to IS NULL OR effective_to >= $3)
		ORDER BY effective_from DESC
		LIMIT 1`, payerID, procedureCode, on).
		Scan(&f.ID, &f.PayerID, &f.ProcedureCode, &f.Amount, &f.EffectiveFrom, &f.EffectiveTo)
	if err != nil {
		return nil, notFound(err, "get fee schedule entry")
	}
	return &f, nil
}

// =========== RVU Repository ===========

type rvuRepoPG struct{ pool *pgxpool.Pool }

func NewRVURepoPG(pool *pgxpool.Pool) RVURepository { return &rvuRepoPG{pool: pool} }

func (r *rvuRepoPG) Upsert(ctx context.Context, rv *RelativeValue) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO reference_rvu (procedure_code, work_rvu, practice_expense_rvu, malpractice_rvu, year)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (procedure_code, year) DO UPDATE SET work_rvu = EXCLUDED.work_rvu,
			practice_expense_rvu = EXCLUDED.practice_expense_rvu, malpractice_rvu = EXCLUDED.malpractice_rvu`,
		rv.CopyValues()...)
	if err != nil {
		return fmt.Errorf("upsert rvu: %w", err)
	}
	return nil
}

func (r *rvuRepoPG) GetLatest(ctx context.Context, procedureCode string) (*RelativeValue, error) {
	var rv RelativeValue
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT procedure_code, work_rvu, practice_expense_rvu, malpractice_rvu, year
		FROM reference_rvu WHERE procedure_code = $1
		ORDER BY year DESC LIMIT 1`, procedureCode).
		Scan(&rv.ProcedureCode, &rv.WorkRVU, &rv.PracticeExpenseRVU, &rv.MalpracticeRVU, &rv.Year)
	if err != nil {
		return nil, notFound(err, "get rvu")
	}
	return &rv, nil
}

// =========== Coding Rule Repository ===========

type codingRuleRepoPG struct{ pool *pgxpool.Pool }

func NewCodingRuleRepoPG(pool *pgxpool.Pool) CodingRuleRepository {
	return &codingRuleRepoPG{pool: pool}
}

func (r *codingRuleRepoPG) Create(ctx context.Context, cr *CodingRule) error {
	cr.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO coding_rule (id, procedure_code, required_patterns, excluded_patterns,
			primary_only, ncd_reference, lcd_reference, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		cr.ID, cr.ProcedureCode, cr.RequiredPatterns, cr.ExcludedPatterns,
		cr.PrimaryOnly, cr.NCDReference, cr.LCDReference, cr.Active).Scan(&cr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coding rule: %w", err)
	}
	return nil
}

func (r *codingRuleRepoPG) ListByProcedure(ctx context.Context, procedureCode string) ([]*CodingRule, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT id, procedure_code, required_patterns, excluded_patterns, primary_only,
			COALESCE(ncd_reference,''), COALESCE(lcd_reference,''), active, created_at
		FROM coding_rule WHERE procedure_code = $1
		ORDER BY created_at`, procedureCode)
	if err != nil {
		return nil, fmt.Errorf("list coding rules: %w", err)
	}
	defer rows.Close()
	var rules []*CodingRule
	for rows.Next() {
		var cr CodingRule
		if err := rows.Scan(&cr.ID, &cr.ProcedureCode, &cr.RequiredPatterns, &cr.ExcludedPatterns,
			&cr.PrimaryOnly, &cr.NCDReference, &cr.LCDReference, &cr.Active, &cr.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, &cr)
	}
	return rules, rows.Err()
}
