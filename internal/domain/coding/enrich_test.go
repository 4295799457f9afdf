package coding

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

type stubAssessor struct {
	result *SocialRiskAssessment
	err    error
}

func (s stubAssessor) Assess(context.Context, string) (*SocialRiskAssessment, error) {
	return s.result, s.err
}

func TestEnricher_MergesZCodes(t *testing.T) {
	ref := seededRef()
	ref.rvus["99215"] = &RelativeValueUnits{ProcedureCode: "99215", WorkRVU: 2.8, PracticeRVU: 1.9, MalpracticeRVU: 0.2}
	e := newTestEngine(ref)
	e.SetEnricher(NewEnricher(stubAssessor{result: &SocialRiskAssessment{
		DiagnosisCodes: []string{"z59.0", "I10"},
		CCMEligible:    true,
		Source:         "sdoh-screen",
	}}, zerolog.Nop()))

	in := officeVisit()
	in.TimeSpentMinutes = intPtr(72)
	res := e.Run(context.Background(), in)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res.ValidationErrors)
	}
	want := []string{"E11.9", "I10", "Z59.0"}
	if !reflect.DeepEqual(res.ClaimLine.DiagnosisCodes, want) {
		t.Errorf("expected %v, got %v", want, res.ClaimLine.DiagnosisCodes)
	}
	if !reflect.DeepEqual(res.AdditionalClaimLines[0].DiagnosisCodes, want) {
		t.Errorf("expected add-on line enriched, got %v", res.AdditionalClaimLines[0].DiagnosisCodes)
	}
	last := res.DecisionPath[len(res.DecisionPath)-1]
	if last.NodeID != "SDOH" || last.Answer != "eligible for CCM "+ChronicCareManagementCode {
		t.Errorf("unexpected enrichment node %+v", last)
	}
	if len(res.DecisionPath) != 8 {
		t.Errorf("expected prior nodes preserved plus one, got %d", len(res.DecisionPath))
	}
}

func TestEnricher_FailureIsWarning(t *testing.T) {
	e := newTestEngine(seededRef())
	e.SetEnricher(NewEnricher(stubAssessor{err: errors.New("screening service unavailable")}, zerolog.Nop()))

	res := e.Run(context.Background(), officeVisit())
	if !res.Success {
		t.Fatal("enrichment failure must not fail the claim")
	}
	if !res.HasWarning(IssueEnrichmentFailed) {
		t.Errorf("expected %s warning", IssueEnrichmentFailed)
	}
	if !reflect.DeepEqual(res.ClaimLine.DiagnosisCodes, []string{"E11.9", "I10"}) {
		t.Errorf("expected unchanged diagnoses, got %v", res.ClaimLine.DiagnosisCodes)
	}
}

func TestEnricher_SkipsUnsuccessfulResults(t *testing.T) {
	en := NewEnricher(stubAssessor{result: &SocialRiskAssessment{DiagnosisCodes: []string{"Z59.0"}}}, zerolog.Nop())
	res := &DecisionTreeResult{Success: false}
	if got := en.Enrich(context.Background(), officeVisit(), res); got != res {
		t.Error("expected unsuccessful result returned untouched")
	}
}

func TestEnricher_DoesNotMutateInput(t *testing.T) {
	en := NewEnricher(stubAssessor{result: &SocialRiskAssessment{DiagnosisCodes: []string{"Z59.0"}}}, zerolog.Nop())
	line := &BillableClaimLine{ProcedureCode: "99213", DiagnosisCodes: []string{"I10"}}
	res := &DecisionTreeResult{Success: true, ClaimLine: line, DecisionPath: []DecisionNode{{NodeID: "A"}}}

	out := en.Enrich(context.Background(), officeVisit(), res)
	if len(line.DiagnosisCodes) != 1 || len(res.DecisionPath) != 1 {
		t.Error("expected original result unchanged")
	}
	if len(out.ClaimLine.DiagnosisCodes) != 2 {
		t.Errorf("expected enriched copy, got %v", out.ClaimLine.DiagnosisCodes)
	}
}

func TestMergeDiagnosisCodes_Caps(t *testing.T) {
	var existing []string
	for i := 0; i < 11; i++ {
		existing = append(existing, "R"+string(rune('A'+i)))
	}
	got := mergeDiagnosisCodes(existing, []string{"Z59.0", "Z60.2", " "})
	if len(got) != MaxDiagnosisCodes || got[11] != "Z59.0" {
		t.Errorf("expected cap at %d with Z59.0 last, got %v", MaxDiagnosisCodes, got)
	}
}

func TestEnricher_CCMEligibleWithoutZCodes(t *testing.T) {
	e := newTestEngine(seededRef())
	e.SetEnricher(NewEnricher(stubAssessor{result: &SocialRiskAssessment{
		CCMEligible: true,
		Source:      "sdoh-screen",
	}}, zerolog.Nop()))

	res := e.Run(context.Background(), officeVisit())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res.ValidationErrors)
	}
	want := []string{"E11.9", "I10"}
	if !reflect.DeepEqual(res.ClaimLine.DiagnosisCodes, want) {
		t.Errorf("expected diagnoses unchanged %v, got %v", want, res.ClaimLine.DiagnosisCodes)
	}
	last := res.DecisionPath[len(res.DecisionPath)-1]
	if last.NodeID != "SDOH" || last.Answer != "eligible for CCM "+ChronicCareManagementCode {
		t.Errorf("expected CCM node, got %+v", last)
	}
}
