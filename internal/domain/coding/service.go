package coding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/claimcoder/internal/domain/encounter"
)

// EncounterRecorder stores the encounter behind a successful decision so
// later visits code as established.
type EncounterRecorder interface {
	Record(ctx context.Context, enc *encounter.Encounter) error
}

// Archiver ships a copy of a decision to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, runID uuid.UUID, completedAt time.Time, doc any) error
}

// Service runs the engine and persists its decisions.
type Service struct {
	engine   *Engine
	repo     DecisionRepository
	recorder EncounterRecorder
	archiver Archiver
	workers  int
	logger   zerolog.Logger
}

func NewService(engine *Engine, repo DecisionRepository, recorder EncounterRecorder, logger zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		repo:     repo,
		recorder: recorder,
		workers:  DefaultBatchWorkers,
		logger:   logger.With().Str("component", "coding.service").Logger(),
	}
}

// SetArchiver enables archiving of persisted decisions.
func (s *Service) SetArchiver(a Archiver) { s.archiver = a }

// SetBatchWorkers bounds concurrent runs in EvaluateBatch.
func (s *Service) SetBatchWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Evaluate codes one encounter and stores the decision.
func (s *Service) Evaluate(ctx context.Context, in EncounterInput) (*Decision, error) {
	res := s.engine.Run(ctx, in)
	return s.persist(ctx, in, res)
}

// EvaluateBatch codes encounters concurrently and stores every decision in
// input order. It stops at the first persistence failure.
func (s *Service) EvaluateBatch(ctx context.Context, inputs []EncounterInput) ([]*Decision, error) {
	results := s.engine.RunBatch(ctx, inputs, s.workers)
	out := make([]*Decision, 0, len(results))
	for i, res := range results {
		d, err := s.persist(ctx, inputs[i], res)
		if err != nil {
			return out, fmt.Errorf("batch item %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, in EncounterInput, res *DecisionTreeResult) (*Decision, error) {
	d := NewDecision(in, res)
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	log := s.logger.With().Str("run_id", d.ID.String()).Logger()

	if res.Success && s.recorder != nil {
		id := d.ID
		enc := &encounter.Encounter{
			PatientID:     in.PatientID,
			ProviderID:    in.ProviderID,
			EncounterType: string(in.EncounterType),
			ServiceDate:   in.ServiceDate,
			DecisionID:    &id,
		}
		if err := s.recorder.Record(ctx, enc); err != nil {
			log.Warn().Err(err).Msg("failed to record encounter history")
		}
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, d.ID, res.CompletedAt, d); err != nil {
			log.Warn().Err(err).Msg("failed to archive coding decision")
		}
	}
	return d, nil
}

func (s *Service) GetDecision(ctx context.Context, id uuid.UUID) (*Decision, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListDecisions(ctx context.Context, patientID string, limit, offset int) ([]*Decision, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// QuoteFee prices a code for a payer without running the full tree.
func (s *Service) QuoteFee(ctx context.Context, payerID, code string, on time.Time) (FeeQuote, error) {
	if payerID == "" || code == "" {
		return FeeQuote{}, fmt.Errorf("payer_id and code are required")
	}
	return s.engine.QuoteFee(ctx, payerID, code, on)
}
