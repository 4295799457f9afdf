package coding

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ehr/claimcoder/internal/domain/coding"

// Config holds the fee-computation constants the engine needs.
type Config struct {
	ConversionFactor     float64
	GeographicModifier   float64
	ChargemasterBaseRate float64
}

// DefaultConfig returns the calendar-year Medicare conversion factor with a
// neutral geographic modifier.
func DefaultConfig() Config {
	return Config{
		ConversionFactor:     32.3465,
		GeographicModifier:   1.0,
		ChargemasterBaseRate: 100.00,
	}
}

// Engine runs the coding decision tree. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	ref      ReferenceData
	cfg      Config
	logger   zerolog.Logger
	tracer   trace.Tracer
	enricher *Enricher
	now      func() time.Time
}

// NewEngine creates an engine reading reference data through ref.
func NewEngine(ref ReferenceData, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		ref:    ref,
		cfg:    cfg,
		logger: logger.With().Str("component", "coding").Logger(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// SetEnricher attaches an optional post-processing step that runs on
// successful results.
func (e *Engine) SetEnricher(en *Enricher) {
	e.enricher = en
}

// SetClock overrides the time source used for audit timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

type outcomeKind int

const (
	outcomeProceed outcomeKind = iota
	outcomeDeny
	outcomeReview
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeDeny:
		return "deny"
	case outcomeReview:
		return "manual_review"
	default:
		return "proceed"
	}
}

// stageOutcome is what every stage hands back to the orchestrator. A deny or
// review outcome ends the run.
type stageOutcome struct {
	kind   outcomeKind
	reason string
}

var proceed = stageOutcome{kind: outcomeProceed}

func deny(reason string) stageOutcome   { return stageOutcome{kind: outcomeDeny, reason: reason} }
func review(reason string) stageOutcome { return stageOutcome{kind: outcomeReview, reason: reason} }

// auditTrail is append-only; stages never see the backing slice.
type auditTrail struct {
	nodes []DecisionNode
}

func (a *auditTrail) append(n DecisionNode) {
	a.nodes = append(a.nodes, n)
}

func (a *auditTrail) snapshot() []DecisionNode {
	out := make([]DecisionNode, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// run is the per-encounter state of one pass through the tree.
type run struct {
	id       uuid.UUID
	in       EncounterInput
	trail    auditTrail
	errs     []ValidationIssue
	warnings []ValidationIssue
	fees     *FeeResolver

	classification Classification
	procedure      ProcedureResolution
	em             EMEvaluation
	prolonged      ProlongedService
	modifiers      []AppliedModifier
	diagnoses      DiagnosisAssignment
	necessity      NecessityResult
	primaryFee     FeeQuote
	prolongedFee   FeeQuote
}

func (r *run) warn(sev Severity, code, field, msg, suggestion string) {
	r.warnings = append(r.warnings, ValidationIssue{
		Severity: sev, Code: code, Field: field, Message: msg, Suggestion: suggestion,
	})
}

func (r *run) fail(code, field, msg, suggestion string) {
	r.errs = append(r.errs, ValidationIssue{
		Severity: SeverityError, Code: code, Field: field, Message: msg, Suggestion: suggestion,
	})
}

func (e *Engine) node(id, name, question, answer string, result NodeResult, rationale string) DecisionNode {
	return DecisionNode{
		NodeID:    id,
		NodeName:  name,
		Question:  question,
		Answer:    answer,
		Result:    result,
		Rationale: rationale,
		Timestamp: e.now().UTC(),
	}
}

// Run codes one encounter. It always returns a result; failures are
// reported as validation issues and manual-review flags, never as errors.
func (e *Engine) Run(ctx context.Context, in EncounterInput) (result *DecisionTreeResult) {
	r := &run{id: uuid.New(), in: in}
	r.fees = NewFeeResolver(e.ref, e.cfg)

	ctx, span := e.tracer.Start(ctx, "coding.Run", trace.WithAttributes(
		attribute.String("coding.run_id", r.id.String()),
		attribute.String("coding.encounter_type", string(in.EncounterType)),
		attribute.String("coding.payer_id", in.PayerID),
	))
	defer span.End()

	// Patient identifiers stay out of the log stream.
	log := e.logger.With().Str("run_id", r.id.String()).Logger()
	log.Info().
		Str("encounter_type", string(in.EncounterType)).
		Str("payer_id", in.PayerID).
		Int("diagnoses", len(in.Diagnoses)).
		Int("procedures", len(in.Procedures)).
		Msg("coding pipeline started")

	defer func() {
		if p := recover(); p != nil {
			var stack [4096]byte
			n := runtime.Stack(stack[:], false)
			log.Error().
				Str("panic", fmt.Sprintf("%v", p)).
				Str("stack", string(stack[:n])).
				Msg("coding pipeline panicked")
			err := fmt.Errorf("unexpected failure: %v", p)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result = e.processingError(r, err)
		}
	}()

	res, err := e.execute(ctx, r)
	if err != nil {
		log.Error().Err(err).Msg("coding pipeline error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e.processingError(r, err)
	}

	if res.Success && e.enricher != nil {
		res = e.enricher.Enrich(ctx, in, res)
	}

	span.SetAttributes(
		attribute.Bool("coding.success", res.Success),
		attribute.Bool("coding.manual_review", res.RequiresManualReview),
	)
	log.Info().
		Bool("success", res.Success).
		Bool("manual_review", res.RequiresManualReview).
		Int("nodes", len(res.DecisionPath)).
		Msg("coding pipeline finished")
	return res
}

// execute walks the state machine. A returned error is a system failure; all
// expected outcomes are encoded in the result.
func (e *Engine) execute(ctx context.Context, r *run) (*DecisionTreeResult, error) {
	if issues := ValidateInput(r.in); len(issues) > 0 {
		r.errs = append(r.errs, issues...)
		return e.finish(r, review("encounter input is incomplete or invalid")), nil
	}

	out, err := e.stage(ctx, "eligibility", func(ctx context.Context) (stageOutcome, error) {
		return e.checkEligibility(ctx, r)
	})
	if err != nil || out.kind != outcomeProceed {
		return e.finish(r, out), err
	}

	out, _ = e.stage(ctx, "classification", func(ctx context.Context) (stageOutcome, error) {
		return e.classify(r), nil
	})
	if out.kind != outcomeProceed {
		return e.finish(r, out), nil
	}

	var code string
	if r.classification.Type == ServiceProcedural {
		out, err = e.stage(ctx, "procedure_lookup", func(ctx context.Context) (stageOutcome, error) {
			return e.resolveProcedure(ctx, r)
		})
		code = r.procedure.Code
	} else {
		out, err = e.stage(ctx, "em_leveling", func(ctx context.Context) (stageOutcome, error) {
			return e.evaluateEM(ctx, r)
		})
		code = r.em.Code
	}
	if err != nil || out.kind != outcomeProceed {
		return e.finish(r, out), err
	}

	r.prolonged = CalculateProlongedService(code, r.in.TimeSpentMinutes)

	out, _ = e.stage(ctx, "modifier_resolution", func(ctx context.Context) (stageOutcome, error) {
		return e.resolveModifiers(r, code), nil
	})
	if out.kind != outcomeProceed {
		return e.finish(r, out), nil
	}

	out, err = e.stage(ctx, "diagnosis_assignment", func(ctx context.Context) (stageOutcome, error) {
		return e.assignDiagnoses(ctx, r)
	})
	if err != nil || out.kind != outcomeProceed {
		return e.finish(r, out), err
	}

	out, err = e.stage(ctx, "medical_necessity", func(ctx context.Context) (stageOutcome, error) {
		return e.validateNecessity(ctx, r, code)
	})
	if err != nil || out.kind != outcomeProceed {
		return e.finish(r, out), err
	}

	out, err = e.stage(ctx, "fee_resolution", func(ctx context.Context) (stageOutcome, error) {
		return e.resolveFees(ctx, r, code)
	})
	if err != nil || out.kind != outcomeProceed {
		return e.finish(r, out), err
	}

	return e.complete(r, code), nil
}

// stage runs one pipeline step inside its own span.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) (stageOutcome, error)) (stageOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "coding."+name)
	defer span.End()

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, fmt.Errorf("%s: %w", name, err)
	}
	span.SetAttributes(attribute.String("coding.outcome", out.kind.String()))
	return out, nil
}

// finish builds the result for a run that stopped before completion.
func (e *Engine) finish(r *run, out stageOutcome) *DecisionTreeResult {
	res := e.baseResult(r)
	if out.kind == outcomeReview {
		res.RequiresManualReview = true
		res.ManualReviewReason = out.reason
	}
	return res
}

func (e *Engine) processingError(r *run, err error) *DecisionTreeResult {
	r.fail(IssueProcessingError, "", err.Error(), "Route the encounter to a coder for manual review")
	res := e.baseResult(r)
	res.RequiresManualReview = true
	res.ManualReviewReason = "system error during claim coding"
	return res
}

func (e *Engine) baseResult(r *run) *DecisionTreeResult {
	return &DecisionTreeResult{
		RunID:                r.id,
		AdditionalClaimLines: []BillableClaimLine{},
		DecisionPath:         r.trail.snapshot(),
		ValidationErrors:     append([]ValidationIssue{}, r.errs...),
		Warnings:             append([]ValidationIssue{}, r.warnings...),
		CompletedAt:          e.now().UTC(),
	}
}

// complete assembles the claim lines for a run that passed every stage.
func (e *Engine) complete(r *run, code string) *DecisionTreeResult {
	pos := r.classification.POS.Code
	units := 1
	if r.classification.Type == ServiceProcedural && r.procedure.Units > 0 {
		units = r.procedure.Units
	}

	modifiers := make([]string, 0, len(r.modifiers))
	for _, m := range r.modifiers {
		modifiers = append(modifiers, m.Code)
	}

	primary := e.claimLine(r, code, units, pos, modifiers, r.primaryFee)
	res := e.baseResult(r)
	res.Success = true
	res.ClaimLine = &primary

	if r.prolonged.Applies {
		addOn := e.claimLine(r, r.prolonged.Code, r.prolonged.Units, pos, []string{}, r.prolongedFee)
		res.AdditionalClaimLines = append(res.AdditionalClaimLines, addOn)
	}
	return res
}

func (e *Engine) claimLine(r *run, code string, units int, pos string, modifiers []string, fee FeeQuote) BillableClaimLine {
	line := BillableClaimLine{
		ProcedureCode:             code,
		Modifiers:                 modifiers,
		DiagnosisCodes:            append([]string{}, r.diagnoses.Codes...),
		BilledAmount:              roundCents(fee.AppliedRate * float64(units)),
		FeeSource:                 fee.Source,
		PatientID:                 r.in.PatientID,
		PayerID:                   r.in.PayerID,
		ProviderID:                r.in.ProviderID,
		ServiceDate:               r.in.ServiceDate,
		Units:                     units,
		PlaceOfService:            pos,
		MedicalNecessityValidated: r.necessity.IsValid,
	}
	if fee.Source == FeeSourceContracted || fee.Source == FeeSourceRVU {
		allowed := roundCents(fee.AppliedRate * float64(units))
		line.AllowedAmount = &allowed
	}
	return line
}

// ValidateInput checks the fields every run depends on.
func ValidateInput(in EncounterInput) []ValidationIssue {
	var issues []ValidationIssue
	missing := func(field string) {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Code:     IssueInvalidInput,
			Field:    field,
			Message:  fmt.Sprintf("%s is required", field),
		})
	}
	if in.PatientID == "" {
		missing("patient_id")
	}
	if in.PayerID == "" {
		missing("payer_id")
	}
	if in.ProviderID == "" {
		missing("provider_id")
	}
	if in.ServiceDate.IsZero() {
		missing("service_date")
	}
	if !in.EncounterType.Valid() {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Code:     IssueInvalidInput,
			Field:    "encounter_type",
			Message:  fmt.Sprintf("unsupported encounter type %q", in.EncounterType),
		})
	}
	if in.TimeSpentMinutes != nil && *in.TimeSpentMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Code:     IssueInvalidInput,
			Field:    "time_spent_minutes",
			Message:  "time spent cannot be negative",
		})
	}
	return issues
}
