package coding

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// NecessityResult is the outcome of medical-necessity validation.
type NecessityResult struct {
	IsValid       bool   `json:"is_valid"`
	NoRules       bool   `json:"no_rules"`
	NeedsReview   bool   `json:"needs_review"`
	MatchedRuleID string `json:"matched_rule_id,omitempty"`
	MatchedCode   string `json:"matched_code,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Reason        string `json:"reason"`
}

// matchPattern reports whether a diagnosis code matches a glob such as
// "E11.*" or "Z0?.*", ignoring case. Malformed patterns never match.
func matchPattern(pattern, code string) bool {
	ok, err := path.Match(strings.ToUpper(strings.TrimSpace(pattern)), strings.ToUpper(code))
	return err == nil && ok
}

func matchesAny(patterns []string, code string) bool {
	for _, p := range patterns {
		if matchPattern(p, code) {
			return true
		}
	}
	return false
}

// ruleCovers reports whether the diagnosis at position idx satisfies rule.
func ruleCovers(rule *CodingRule, code string, idx int) bool {
	if len(rule.RequiredPatterns) > 0 && !matchesAny(rule.RequiredPatterns, code) {
		return false
	}
	if rule.PrimaryOnly && idx != 0 {
		return false
	}
	return !matchesAny(rule.ExcludedPatterns, code)
}

// ValidateMedicalNecessity checks diagnosis codes, primary first, against
// the coverage rules for a procedure. Inactive rules are ignored. With no
// active rules the procedure passes but is flagged for review.
func ValidateMedicalNecessity(rules []*CodingRule, diagnoses []string) NecessityResult {
	var active []*CodingRule
	for _, r := range rules {
		if r != nil && r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return NecessityResult{IsValid: true, NoRules: true, NeedsReview: true, Reason: "no coverage rules on file"}
	}

	for _, rule := range active {
		for i, code := range diagnoses {
			if ruleCovers(rule, code, i) {
				ref := rule.NCDReference
				if ref == "" {
					ref = rule.LCDReference
				}
				return NecessityResult{
					IsValid:       true,
					MatchedRuleID: rule.ID,
					MatchedCode:   code,
					Reference:     ref,
					Reason:        fmt.Sprintf("%s supports medical necessity under rule %s", code, rule.ID),
				}
			}
		}
	}
	return NecessityResult{
		Reason: fmt.Sprintf("none of %d diagnosis code(s) satisfy %d coverage rule(s)", len(diagnoses), len(active)),
	}
}

func (e *Engine) validateNecessity(ctx context.Context, r *run, code string) (stageOutcome, error) {
	rules, err := e.ref.CodingRules(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return proceed, fmt.Errorf("load coding rules for %s: %w", code, err)
	}
	res := ValidateMedicalNecessity(rules, r.diagnoses.Codes)
	r.necessity = res
	question := "Do the diagnoses support medical necessity?"

	if !res.IsValid {
		r.fail(IssueMedicalNecessityFailed, "diagnoses", res.Reason,
			"Review payer NCD/LCD policy for covered diagnoses")
		r.trail.append(e.node("H", "Medical Necessity", question, "no", ResultDeny, res.Reason))
		return deny(res.Reason), nil
	}
	if res.NoRules {
		r.warn(SeverityInfo, IssueNoCoverageRules, "procedure_code",
			fmt.Sprintf("no coverage rules on file for %s", code), "")
	}
	answer, rationale := "yes", res.Reason
	if res.Reference != "" {
		rationale += " (" + res.Reference + ")"
	}
	if res.NeedsReview {
		answer = "yes, flagged for review"
		rationale += "; flagged for review"
	}
	r.trail.append(e.node("H", "Medical Necessity", question, answer, ResultProceed, rationale))
	return proceed, nil
}
