package coding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

const chargemasterKnownCodeMarkup = 1.5

// payerMultipliers is checked in order; the first substring found in the
// payer type or name wins.
var payerMultipliers = []struct {
	match      string
	multiplier float64
}{
	{"medicare advantage", 1.05},
	{"medicare", 1.0},
	{"medicaid", 0.7},
	{"tricare", 1.0},
	{"blue cross", 1.35},
	{"bcbs", 1.35},
	{"aetna", 1.4},
	{"cigna", 1.4},
	{"united", 1.35},
	{"humana", 1.15},
	{"commercial", 1.3},
}

// PayerMultiplierFor returns the payer's rate relative to Medicare. An
// explicit multiplier on file wins over the name table.
func PayerMultiplierFor(p *PayerRecord) float64 {
	if p == nil {
		return 1.0
	}
	if p.MedicareMultiplier != nil && *p.MedicareMultiplier > 0 {
		return *p.MedicareMultiplier
	}
	haystack := strings.ToLower(p.PayerType + " " + p.Name)
	for _, pm := range payerMultipliers {
		if strings.Contains(haystack, pm.match) {
			return pm.multiplier
		}
	}
	return 1.0
}

// FeeQuote is a resolved rate for one procedure code.
type FeeQuote struct {
	ProcedureCode  string    `json:"procedure_code"`
	AppliedRate    float64   `json:"applied_rate"`
	Source         FeeSource `json:"source"`
	ContractedRate *float64  `json:"contracted_rate,omitempty"`
	ComputedRate   *float64  `json:"computed_rate,omitempty"`
	Multiplier     float64   `json:"multiplier,omitempty"`
	Degraded       []string  `json:"degraded,omitempty"`
}

// FeeResolver resolves rates through the contracted, RVU and chargemaster
// tiers. Results are cached per payer and code for the resolver's lifetime.
type FeeResolver struct {
	ref ReferenceData
	cfg Config

	mu     sync.Mutex
	quotes map[string]FeeQuote
	payers map[string]*PayerRecord
}

// NewFeeResolver returns a resolver with an empty cache.
func NewFeeResolver(ref ReferenceData, cfg Config) *FeeResolver {
	return &FeeResolver{
		ref:    ref,
		cfg:    cfg,
		quotes: map[string]FeeQuote{},
		payers: map[string]*PayerRecord{},
	}
}

// Resolve returns the rate for code under payerID on the service date.
// Lookup failures fall through to the next tier and are noted on the quote.
func (f *FeeResolver) Resolve(ctx context.Context, payerID, code string, on time.Time) (FeeQuote, error) {
	key := payerID + "|" + code
	f.mu.Lock()
	if q, ok := f.quotes[key]; ok {
		f.mu.Unlock()
		return q, nil
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return FeeQuote{}, err
	}
	q := f.resolve(ctx, payerID, code, on)

	f.mu.Lock()
	f.quotes[key] = q
	f.mu.Unlock()
	return q, nil
}

func (f *FeeResolver) resolve(ctx context.Context, payerID, code string, on time.Time) FeeQuote {
	q := FeeQuote{ProcedureCode: code}

	entry, err := f.ref.FeeScheduleEntry(ctx, payerID, code, on)
	switch {
	case err == nil && entry.Amount > 0:
		rate := roundCents(entry.Amount)
		q.ContractedRate = &rate
		q.AppliedRate, q.Source = rate, FeeSourceContracted
		return q
	case err != nil && !errors.Is(err, ErrNotFound):
		q.Degraded = append(q.Degraded, fmt.Sprintf("contracted rate lookup failed: %v", err))
	}

	if rate, mult, ok := f.computeRVU(ctx, &q, payerID, code); ok {
		q.ComputedRate = &rate
		q.Multiplier = mult
		q.AppliedRate, q.Source = rate, FeeSourceRVU
		return q
	}

	base := f.cfg.ChargemasterBaseRate
	if base <= 0 {
		base = DefaultConfig().ChargemasterBaseRate
	}
	_, err = f.ref.ProcedureCode(ctx, code)
	switch {
	case err == nil:
		q.AppliedRate, q.Source = roundCents(base*chargemasterKnownCodeMarkup), FeeSourceChargemaster
	case errors.Is(err, ErrNotFound):
		q.AppliedRate, q.Source = roundCents(base), FeeSourceChargemaster
	default:
		q.Degraded = append(q.Degraded, fmt.Sprintf("chargemaster lookup failed: %v", err))
		q.AppliedRate, q.Source = roundCents(base), FeeSourceDefault
	}
	return q
}

func (f *FeeResolver) computeRVU(ctx context.Context, q *FeeQuote, payerID, code string) (float64, float64, bool) {
	rvu, err := f.ref.RelativeValues(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			q.Degraded = append(q.Degraded, fmt.Sprintf("RVU lookup failed: %v", err))
		}
		return 0, 0, false
	}
	if rvu.Total() <= 0 {
		return 0, 0, false
	}

	payer, err := f.payer(ctx, payerID)
	if err != nil {
		q.Degraded = append(q.Degraded, fmt.Sprintf("payer lookup failed: %v", err))
	}
	mult := PayerMultiplierFor(payer)

	cf := f.cfg.ConversionFactor
	if cf <= 0 {
		cf = DefaultConfig().ConversionFactor
	}
	gpci := f.cfg.GeographicModifier
	if gpci <= 0 {
		gpci = 1.0
	}
	rate := roundCents(rvu.Total() * cf * gpci * mult)
	if rate <= 0 {
		return 0, 0, false
	}
	return rate, mult, true
}

// payer returns nil without error when the payer is not on file.
func (f *FeeResolver) payer(ctx context.Context, payerID string) (*PayerRecord, error) {
	f.mu.Lock()
	p, ok := f.payers[payerID]
	f.mu.Unlock()
	if ok {
		return p, nil
	}
	p, err := f.ref.Payer(ctx, payerID)
	if errors.Is(err, ErrNotFound) {
		p, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.payers[payerID] = p
	f.mu.Unlock()
	return p, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// QuoteFee resolves the rate for one code outside a coding run.
func (e *Engine) QuoteFee(ctx context.Context, payerID, code string, on time.Time) (FeeQuote, error) {
	return NewFeeResolver(e.ref, e.cfg).Resolve(ctx, payerID, code, on)
}

func (e *Engine) resolveFees(ctx context.Context, r *run, code string) (stageOutcome, error) {
	q, err := r.fees.Resolve(ctx, r.in.PayerID, code, r.in.ServiceDate)
	if err != nil {
		return proceed, fmt.Errorf("resolve fee for %s: %w", code, err)
	}
	r.primaryFee = q
	r.noteDegraded(q)

	rationale := fmt.Sprintf("%s rate %.2f", q.Source, q.AppliedRate)
	if r.prolonged.Applies {
		pq, err := r.fees.Resolve(ctx, r.in.PayerID, r.prolonged.Code, r.in.ServiceDate)
		if err != nil {
			return proceed, fmt.Errorf("resolve fee for %s: %w", r.prolonged.Code, err)
		}
		r.prolongedFee = pq
		r.noteDegraded(pq)
		rationale += fmt.Sprintf("; %s %s rate %.2f x%d", r.prolonged.Code, pq.Source, pq.AppliedRate, r.prolonged.Units)
	}

	r.trail.append(e.node("F", "Fee Resolution", "What is the charge for the service?",
		fmt.Sprintf("%.2f", q.AppliedRate), ResultComplete, rationale))
	return proceed, nil
}

func (r *run) noteDegraded(q FeeQuote) {
	for _, d := range q.Degraded {
		r.warn(SeverityInfo, IssueFeeTierDegraded, "fee", fmt.Sprintf("%s: %s", q.ProcedureCode, d), "")
	}
}
