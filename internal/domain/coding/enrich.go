package coding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ChronicCareManagementCode is the CCM code suggested when social risk is
// found alongside chronic conditions.
const ChronicCareManagementCode = "99490"

// Enricher adds social-determinants Z-codes to completed claims.
type Enricher struct {
	assessor SocialRiskAssessor
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEnricher wraps a social-risk assessor.
func NewEnricher(a SocialRiskAssessor, logger zerolog.Logger) *Enricher {
	return &Enricher{assessor: a, logger: logger, now: time.Now}
}

// Enrich returns res with social-risk codes appended to every claim line.
// Assessment failures add a warning and leave the claim unchanged.
func (en *Enricher) Enrich(ctx context.Context, in EncounterInput, res *DecisionTreeResult) *DecisionTreeResult {
	if res == nil || !res.Success || res.ClaimLine == nil {
		return res
	}
	out := *res
	out.Warnings = append([]ValidationIssue{}, res.Warnings...)
	out.DecisionPath = append([]DecisionNode{}, res.DecisionPath...)

	a, err := en.assessor.Assess(ctx, in.PatientID)
	if err != nil {
		en.logger.Warn().Err(err).Str("run_id", res.RunID.String()).Msg("social risk assessment failed")
		out.Warnings = append(out.Warnings, ValidationIssue{
			Severity:   SeverityWarning,
			Code:       IssueEnrichmentFailed,
			Message:    fmt.Sprintf("social risk assessment unavailable: %v", err),
			Suggestion: "Review social determinants manually",
		})
		return &out
	}
	if a == nil || (len(a.DiagnosisCodes) == 0 && !a.CCMEligible) {
		return &out
	}

	if len(a.DiagnosisCodes) > 0 {
		line := *res.ClaimLine
		line.DiagnosisCodes = mergeDiagnosisCodes(line.DiagnosisCodes, a.DiagnosisCodes)
		out.ClaimLine = &line

		out.AdditionalClaimLines = make([]BillableClaimLine, len(res.AdditionalClaimLines))
		for i, l := range res.AdditionalClaimLines {
			l.DiagnosisCodes = mergeDiagnosisCodes(l.DiagnosisCodes, a.DiagnosisCodes)
			out.AdditionalClaimLines[i] = l
		}
	}

	answer := "not eligible for CCM"
	if a.CCMEligible {
		answer = "eligible for CCM " + ChronicCareManagementCode
	}
	out.DecisionPath = append(out.DecisionPath, DecisionNode{
		NodeID:    "SDOH",
		NodeName:  "Social Determinants of Health",
		Question:  "Do social risk factors apply to this patient?",
		Answer:    answer,
		Result:    ResultComplete,
		Rationale: socialRiskRationale(a),
		Timestamp: en.now().UTC(),
	})
	return &out
}

func socialRiskRationale(a *SocialRiskAssessment) string {
	if len(a.DiagnosisCodes) == 0 {
		return fmt.Sprintf("%s reported no social risk codes", a.Source)
	}
	return fmt.Sprintf("%s reported %s", a.Source, strings.Join(a.DiagnosisCodes, ","))
}

func mergeDiagnosisCodes(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, group := range [][]string{existing, extra} {
		for _, c := range group {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" || seen[c] || len(out) >= MaxDiagnosisCodes {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
