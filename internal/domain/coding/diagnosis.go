package coding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// FallbackDiagnosisCode is used when no documented diagnosis resolves.
	FallbackDiagnosisCode = "Z00.00"
	// MaxDiagnosisCodes is the number of diagnosis pointers a CMS-1500 carries.
	MaxDiagnosisCodes    = 12
	diagnosisSearchLimit = 10
)

// DiagnosisAssignment is the ordered set of ICD-10 codes for the claim.
type DiagnosisAssignment struct {
	Codes      []string `json:"codes"`
	Unresolved []string `json:"unresolved,omitempty"`
	Fallback   bool     `json:"fallback"`
	Truncated  bool     `json:"truncated"`
}

func (e *Engine) assignDiagnoses(ctx context.Context, r *run) (stageOutcome, error) {
	var a DiagnosisAssignment
	seen := map[string]bool{}

	for i, d := range r.in.Diagnoses {
		code, err := e.resolveDiagnosis(ctx, d)
		if err != nil {
			return proceed, err
		}
		if code == "" {
			label := d.Term
			if d.Code != "" {
				label = d.Code
			}
			a.Unresolved = append(a.Unresolved, label)
			r.warn(SeverityWarning, IssueUnresolvedDiagnosis, fmt.Sprintf("diagnoses[%d]", i),
				fmt.Sprintf("diagnosis %q did not resolve to a billable code", label),
				"Assign the ICD-10-CM code manually")
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		a.Codes = append(a.Codes, code)
	}

	if len(a.Codes) == 0 {
		a.Codes = []string{FallbackDiagnosisCode}
		a.Fallback = true
		r.warn(SeverityWarning, IssueDiagnosisFallback, "diagnoses",
			fmt.Sprintf("no diagnosis resolved; using %s", FallbackDiagnosisCode),
			"Document the diagnosis supporting this service")
	}
	if len(a.Codes) > MaxDiagnosisCodes {
		a.Codes = a.Codes[:MaxDiagnosisCodes]
		a.Truncated = true
		r.warn(SeverityWarning, IssueDiagnosisLimit, "diagnoses",
			fmt.Sprintf("only the first %d diagnosis codes fit on the claim", MaxDiagnosisCodes),
			"Order diagnoses by relevance")
	}
	r.diagnoses = a

	rationale := fmt.Sprintf("%d code(s) assigned", len(a.Codes))
	if len(a.Unresolved) > 0 {
		rationale += fmt.Sprintf(", %d unresolved", len(a.Unresolved))
	}
	if a.Fallback {
		rationale += ", fallback applied"
	}
	r.trail.append(e.node("G", "Diagnosis Assignment", "Which diagnosis codes support the claim?",
		strings.Join(a.Codes, ","), ResultProceed, rationale))
	return proceed, nil
}

// resolveDiagnosis returns an empty code when nothing billable matched.
func (e *Engine) resolveDiagnosis(ctx context.Context, d PresentingDiagnosis) (string, error) {
	if code := strings.ToUpper(strings.TrimSpace(d.Code)); code != "" {
		dc, err := e.ref.DiagnosisCode(ctx, code)
		switch {
		case err == nil && dc.Billable && dc.Active:
			return dc.Code, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return "", fmt.Errorf("load diagnosis code %s: %w", code, err)
		}
	}
	term := strings.TrimSpace(d.Term)
	if term == "" {
		return "", nil
	}
	matches, err := e.ref.SearchDiagnoses(ctx, term, diagnosisSearchLimit)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("search diagnoses: %w", err)
	}
	for _, m := range matches {
		if m.Billable && m.Active {
			return m.Code, nil
		}
	}
	return "", nil
}
