package coding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const coverageActive = "active"

// Eligibility is the outcome of the coverage check.
type Eligibility struct {
	Eligible          bool
	Reason            string
	PriorAuthRequired bool
}

// CheckCoverage evaluates a coverage record against the encounter. A nil
// record means no coverage on file.
func CheckCoverage(cov *CoverageRecord, in EncounterInput) Eligibility {
	if cov == nil {
		return Eligibility{Reason: "no coverage on file for patient and payer"}
	}
	if !strings.EqualFold(cov.Status, coverageActive) {
		return Eligibility{Reason: fmt.Sprintf("coverage status is %q", cov.Status)}
	}
	if in.PolicyStatus != "" && !strings.EqualFold(in.PolicyStatus, coverageActive) {
		return Eligibility{Reason: fmt.Sprintf("policy status is %q", in.PolicyStatus)}
	}
	if cov.PayerID != in.PayerID {
		return Eligibility{Reason: fmt.Sprintf("coverage payer %s does not match claim payer %s", cov.PayerID, in.PayerID)}
	}
	day := calendarDay(in.ServiceDate)
	if cov.PeriodStart != nil && day.Before(calendarDay(*cov.PeriodStart)) {
		return Eligibility{Reason: "service date is before the coverage period"}
	}
	if cov.PeriodEnd != nil && day.After(calendarDay(*cov.PeriodEnd)) {
		return Eligibility{Reason: "service date is after the coverage period"}
	}
	return Eligibility{
		Eligible:          true,
		Reason:            "active coverage verified",
		PriorAuthRequired: cov.PriorAuthRequired,
	}
}

// calendarDay returns midnight UTC of the date t shows in its own location.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) checkEligibility(ctx context.Context, r *run) (stageOutcome, error) {
	cov, err := e.ref.Coverage(ctx, r.in.PatientID, r.in.PayerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return proceed, fmt.Errorf("load coverage: %w", err)
	}
	if errors.Is(err, ErrNotFound) {
		cov = nil
	}

	el := CheckCoverage(cov, r.in)
	question := "Is the patient eligible and is the service authorized?"
	if !el.Eligible {
		r.fail(IssueIneligible, "payer_id", el.Reason, "Verify the patient's insurance coverage")
		r.trail.append(e.node("A", "Eligibility & Authorization", question, "not eligible", ResultDeny, el.Reason))
		return deny(el.Reason), nil
	}

	rationale := el.Reason
	if el.PriorAuthRequired {
		r.warn(SeverityWarning, IssuePriorAuthUnverified, "payer_id",
			"payer requires prior authorization; authorization was not verified",
			"Confirm an authorization number is on file before submission")
		rationale += "; prior authorization required but not verified"
	}
	r.trail.append(e.node("A", "Eligibility & Authorization", question, "eligible", ResultProceed, rationale))
	return proceed, nil
}
