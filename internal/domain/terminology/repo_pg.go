package terminology

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/claimcoder/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
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

// =========== ICD-10 Repository ===========

type icd10RepoPG struct{ pool *pgxpool.Pool }

func NewICD10RepoPG(pool *pgxpool.Pool) ICD10Repository { return &icd10RepoPG{pool: pool} }

const icd10Cols = `code, display, COALESCE(category,''), COALESCE(chapter,''), billable, active`

func scanICD10(row pgx.Row) (*ICD10Code, error) {
	var c ICD10Code
	if err := row.Scan(&c.Code, &c.Display, &c.Category, &c.Chapter, &c.Billable, &c.Active); err != nil {
		return nil, err
	}
	return &c, nil
}

// Search ranks exact code-prefix matches ahead of description matches.
func (r *icd10RepoPG) Search(ctx context.Context, query string, limit int) ([]*ICD10Code, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+icd10Cols+`
		 FROM reference_icd10
		 WHERE code ILIKE $1 || '%' OR display ILIKE '%' || $1 || '%'
		 ORDER BY (code ILIKE $1 || '%') DESC, active DESC, billable DESC, code
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("icd10 search: %w", err)
	}
	defer rows.Close()
	var results []*ICD10Code
	for rows.Next() {
		c, err := scanICD10(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *icd10RepoPG) GetByCode(ctx context.Context, code string) (*ICD10Code, error) {
	c, err := scanICD10(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+icd10Cols+` FROM reference_icd10 WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("icd10 %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("icd10 get: %w", err)
	}
	return c, nil
}

// =========== CPT Repository ===========

type cptRepoPG struct{ pool *pgxpool.Pool }

func NewCPTRepoPG(pool *pgxpool.Pool) CPTRepository { return &cptRepoPG{pool: pool} }

const cptCols = `code, display, COALESCE(category,''), active`

func scanCPT(row pgx.Row) (*CPTCode, error) {
	var c CPTCode
	if err := row.Scan(&c.Code, &c.Display, &c.Category, &c.Active); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cptRepoPG) Search(ctx context.Context, query string, limit int) ([]*CPTCode, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+cptCols+`
		 FROM reference_cpt
		 WHERE code ILIKE $1 || '%' OR display ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%'
		 ORDER BY (code ILIKE $1 || '%') DESC, active DESC, code
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("cpt search: %w", err)
	}
	defer rows.Close()
	var results []*CPTCode
	for rows.Next() {
		c, err := scanCPT(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *cptRepoPG) GetByCode(ctx context.Context, code string) (*CPTCode, error) {
	c, err := scanCPT(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+cptCols+` FROM reference_cpt WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cpt %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cpt get: %w", err)
	}
	return c, nil
}
