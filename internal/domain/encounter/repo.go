package encounter

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error)
	// ExistsBetween reports whether the patient saw the provider on a day in
	// [from, to).
	ExistsBetween(ctx context.Context, patientID, providerID string, from, to time.Time) (bool, error)
}
