package encounter

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an encounter does not exist.
var ErrNotFound = errors.New("encounter not found")

// Encounter is one billed patient visit with a provider. The history is what
// distinguishes new from established patients.
type Encounter struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     string     `db:"patient_id" json:"patient_id"`
	ProviderID    string     `db:"provider_id" json:"provider_id"`
	EncounterType string     `db:"encounter_type" json:"encounter_type"`
	ServiceDate   time.Time  `db:"service_date" json:"service_date"`
	DecisionID    *uuid.UUID `db:"decision_id" json:"decision_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
