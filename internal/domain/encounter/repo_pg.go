package encounter

import (
	"context"
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

type encounterRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &encounterRepoPG{pool: pool}
}

func (r *encounterRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const encCols = `id, patient_id, provider_id, encounter_type, service_date, decision_id, created_at`

func (r *encounterRepoPG) scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.PatientID, &e.ProviderID, &e.EncounterType, &e.ServiceDate, &e.DecisionID, &e.CreatedAt)
	return &e, err
}

func (r *encounterRepoPG) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter_history (id, patient_id, provider_id, encounter_type, service_date, decision_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		enc.ID, enc.PatientID, enc.ProviderID, enc.EncounterType, enc.ServiceDate, enc.DecisionID).
		Scan(&enc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	return nil
}

func (r *encounterRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter_history WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count encounters: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+encCols+` FROM encounter_history
		WHERE patient_id = $1 ORDER BY service_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()
	var items []*Encounter
	for rows.Next() {
		e, err := r.scanEnc(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *encounterRepoPG) ExistsBetween(ctx context.Context, patientID, providerID string, from, to time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM encounter_history
			WHERE patient_id = $1 AND provider_id = $2
			  AND service_date >= $3 AND service_date < $4
		)`, patientID, providerID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check prior encounters: %w", err)
	}
	return exists, nil
}
