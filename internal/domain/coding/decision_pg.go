package coding

import (
	"context"
	"errors"
	"fmt"

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

type decisionRepoPG struct {
	pool *pgxpool.Pool
}

func NewDecisionRepoPG(pool *pgxpool.Pool) DecisionRepository {
	return &decisionRepoPG{pool: pool}
}

func (r *decisionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const decisionCols = `id, patient_id, payer_id, provider_id, service_date, procedure_code,
	success, requires_manual_review, input, result, created_at`

// input and result are jsonb; pgx encodes and decodes them through
// encoding/json.
func (r *decisionRepoPG) scanDecision(row pgx.Row) (*Decision, error) {
	var d Decision
	err := row.Scan(&d.ID, &d.PatientID, &d.PayerID, &d.ProviderID, &d.ServiceDate, &d.ProcedureCode,
		&d.Success, &d.RequiresManualReview, &d.Input, &d.Result, &d.CreatedAt)
	return &d, err
}

func (r *decisionRepoPG) Save(ctx context.Context, d *Decision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO coding_decision (id, patient_id, payer_id, provider_id, service_date, procedure_code,
			success, requires_manual_review, input, result)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		d.ID, d.PatientID, d.PayerID, d.ProviderID, d.ServiceDate, d.ProcedureCode,
		d.Success, d.RequiresManualReview, d.Input, d.Result).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coding decision: %w", err)
	}
	return nil
}

func (r *decisionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Decision, error) {
	d, err := r.scanDecision(r.conn(ctx).QueryRow(ctx,
		`SELECT `+decisionCols+` FROM coding_decision WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("coding decision %s: %w", id, ErrDecisionNotFound)
		}
		return nil, fmt.Errorf("get coding decision: %w", err)
	}
	return d, nil
}

func (r *decisionRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Decision, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM coding_decision WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coding decisions: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+decisionCols+` FROM coding_decision
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list coding decisions: %w", err)
	}
	defer rows.Close()
	var items []*Decision
	for rows.Next() {
		d, err := r.scanDecision(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
