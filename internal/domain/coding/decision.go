package coding

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDecisionNotFound is returned when a persisted decision does not exist.
var ErrDecisionNotFound = errors.New("coding decision not found")

// Decision is a persisted engine run together with the input it coded.
type Decision struct {
	ID                   uuid.UUID           `json:"id"`
	PatientID            string              `json:"patient_id"`
	PayerID              string              `json:"payer_id"`
	ProviderID           string              `json:"provider_id"`
	ServiceDate          time.Time           `json:"service_date"`
	ProcedureCode        *string             `json:"procedure_code,omitempty"`
	Success              bool                `json:"success"`
	RequiresManualReview bool                `json:"requires_manual_review"`
	Input                EncounterInput      `json:"input"`
	Result               *DecisionTreeResult `json:"result"`
	CreatedAt            time.Time           `json:"created_at"`
}

// NewDecision pairs an engine result with its input.
func NewDecision(in EncounterInput, res *DecisionTreeResult) *Decision {
	d := &Decision{
		ID:                   res.RunID,
		PatientID:            in.PatientID,
		PayerID:              in.PayerID,
		ProviderID:           in.ProviderID,
		ServiceDate:          in.ServiceDate,
		Success:              res.Success,
		RequiresManualReview: res.RequiresManualReview,
		Input:                in,
		Result:               res,
	}
	if res.ClaimLine != nil {
		code := res.ClaimLine.ProcedureCode
		d.ProcedureCode = &code
	}
	return d
}

// DecisionRepository stores decisions.
type DecisionRepository interface {
	Save(ctx context.Context, d *Decision) error
	GetByID(ctx context.Context, id uuid.UUID) (*Decision, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Decision, int, error)
}
