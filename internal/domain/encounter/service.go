package encounter

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, enc *Encounter) error {
	if enc.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if enc.ProviderID == "" {
		return fmt.Errorf("provider_id is required")
	}
	if enc.ServiceDate.IsZero() {
		return fmt.Errorf("service_date is required")
	}
	if enc.EncounterType == "" {
		enc.EncounterType = "office_visit"
	}
	enc.ServiceDate = truncateDay(enc.ServiceDate)
	return s.repo.Create(ctx, enc)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// HasPriorEncounter reports whether the patient was seen by the provider on
// any day from `from` up to but not including the day of `to`.
func (s *Service) HasPriorEncounter(ctx context.Context, patientID, providerID string, from, to time.Time) (bool, error) {
	if patientID == "" || providerID == "" {
		return false, nil
	}
	return s.repo.ExistsBetween(ctx, patientID, providerID, truncateDay(from), truncateDay(to))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
