package coding

import (
	"context"
	"testing"
	"time"
)

func TestCheckCoverage(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	in := EncounterInput{PayerID: "aetna-ppo", ServiceDate: time.Date(2026, 12, 31, 14, 0, 0, 0, time.UTC)}

	tests := []struct {
		name     string
		cov      *CoverageRecord
		policy   string
		eligible bool
	}{
		{"no coverage", nil, "", false},
		{"active", &CoverageRecord{PayerID: "aetna-ppo", Status: "Active"}, "", true},
		{"cancelled", &CoverageRecord{PayerID: "aetna-ppo", Status: "cancelled"}, "", false},
		{"policy inactive", &CoverageRecord{PayerID: "aetna-ppo", Status: "active"}, "inactive", false},
		{"payer mismatch", &CoverageRecord{PayerID: "cigna", Status: "active"}, "", false},
		{"last day of period", &CoverageRecord{PayerID: "aetna-ppo", Status: "active", PeriodStart: &start, PeriodEnd: &end}, "", true},
		{"period ended", &CoverageRecord{PayerID: "aetna-ppo", Status: "active", PeriodEnd: &start}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := in
			i.PolicyStatus = tt.policy
			got := CheckCoverage(tt.cov, i)
			if got.Eligible != tt.eligible {
				t.Errorf("expected eligible=%v, got %+v", tt.eligible, got)
			}
			if got.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestCheckCoverage_OffsetServiceDate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cov := &CoverageRecord{PayerID: "aetna-ppo", Status: "active", PeriodStart: &start, PeriodEnd: &end}
	central := time.FixedZone("CDT", -5*60*60)
	east := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name     string
		date     time.Time
		eligible bool
	}{
		{"last covered day late evening", time.Date(2026, 3, 10, 21, 0, 0, 0, central), true},
		{"first covered day early morning", time.Date(2026, 3, 1, 2, 0, 0, 0, east), true},
		{"day after period", time.Date(2026, 3, 11, 1, 0, 0, 0, central), false},
		{"day before period", time.Date(2026, 2, 28, 23, 0, 0, 0, central), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckCoverage(cov, EncounterInput{PayerID: "aetna-ppo", ServiceDate: tt.date})
			if got.Eligible != tt.eligible {
				t.Errorf("expected eligible=%v, got %+v", tt.eligible, got)
			}
		})
	}
}

func TestEngine_IneligiblePatient(t *testing.T) {
	ref := seededRef()
	ref.coverages["pat-100|aetna-ppo"].Status = "cancelled"

	res := newTestEngine(ref).Run(context.Background(), officeVisit())
	if res.Success || res.RequiresManualReview {
		t.Errorf("expected clean denial, got success=%v review=%v", res.Success, res.RequiresManualReview)
	}
	if len(res.ValidationErrors) != 1 || res.ValidationErrors[0].Code != IssueIneligible {
		t.Errorf("expected a single INELIGIBLE error, got %+v", res.ValidationErrors)
	}
	if ids := nodeIDs(res); len(ids) != 1 || ids[0] != "A" {
		t.Errorf("expected only node A, got %v", ids)
	}
	if res.DecisionPath[0].Result != ResultDeny {
		t.Errorf("expected deny, got %s", res.DecisionPath[0].Result)
	}
	if res.ClaimLine != nil {
		t.Error("expected no claim line")
	}
}

func TestEngine_PriorAuthWarning(t *testing.T) {
	ref := seededRef()
	ref.coverages["pat-100|aetna-ppo"].PriorAuthRequired = true

	res := newTestEngine(ref).Run(context.Background(), officeVisit())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res.ValidationErrors)
	}
	if !res.HasWarning(IssuePriorAuthUnverified) {
		t.Errorf("expected %s warning", IssuePriorAuthUnverified)
	}
}
