package coding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const procedureSearchLimit = 10

// ProcedureResolution is the outcome of procedure-code lookup.
type ProcedureResolution struct {
	Code                string `json:"code,omitempty"`
	Description         string `json:"description,omitempty"`
	Units               int    `json:"units"`
	IsUnlistedProcedure bool   `json:"is_unlisted_procedure"`
	Method              string `json:"method,omitempty"` // explicit or search
}

func (e *Engine) resolveProcedure(ctx context.Context, r *run) (stageOutcome, error) {
	question := "Which procedure code describes the primary service?"
	if len(r.in.Procedures) == 0 {
		r.procedure = ProcedureResolution{IsUnlistedProcedure: true, Units: 1}
		r.warn(SeverityWarning, IssueUnlistedProcedure, "procedures",
			"no procedure documented for a procedural encounter", "Document the procedure performed")
		r.trail.append(e.node("C", "Procedure Code Resolution", question, "unlisted", ResultManualReview,
			"no procedure documented"))
		return review("no procedure code could be resolved"), nil
	}

	primary := r.in.Procedures[0]
	res, err := e.lookupProcedure(ctx, r, primary)
	if err != nil {
		return proceed, err
	}
	r.procedure = res

	if extra := len(r.in.Procedures) - 1; extra > 0 {
		r.warn(SeverityInfo, IssueAdditionalProcedures, "procedures",
			fmt.Sprintf("%d additional procedure(s) documented but only the primary was coded", extra),
			"Review additional procedures for separate claim lines")
	}

	if res.IsUnlistedProcedure {
		r.warn(SeverityWarning, IssueUnlistedProcedure, "procedures[0]",
			fmt.Sprintf("no active procedure code matches %q", primary.Description),
			"Assign an unlisted procedure code and attach documentation")
		r.trail.append(e.node("C", "Procedure Code Resolution", question, "unlisted", ResultManualReview,
			"no active procedure code matched the documented procedure"))
		return review("procedure could not be matched to an active code"), nil
	}

	r.trail.append(e.node("C", "Procedure Code Resolution", question, res.Code, ResultProceed,
		fmt.Sprintf("%s via %s lookup, %d unit(s)", res.Description, res.Method, res.Units)))
	return proceed, nil
}

func (e *Engine) lookupProcedure(ctx context.Context, r *run, p PerformedProcedure) (ProcedureResolution, error) {
	units := p.Units
	if units < 1 {
		units = 1
	}

	if code := strings.TrimSpace(p.Code); code != "" {
		pc, err := e.ref.ProcedureCode(ctx, code)
		switch {
		case err == nil && pc.Active:
			return ProcedureResolution{Code: pc.Code, Description: pc.Description, Units: units, Method: "explicit"}, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return ProcedureResolution{}, fmt.Errorf("load procedure code %s: %w", code, err)
		}
		r.warn(SeverityWarning, IssueInvalidProcedureCode, "procedures[0].code",
			fmt.Sprintf("procedure code %s is unknown or inactive", code),
			"Correct the code or rely on the procedure description")
	}

	if desc := strings.TrimSpace(p.Description); desc != "" {
		matches, err := e.ref.SearchProcedures(ctx, desc, procedureSearchLimit)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return ProcedureResolution{}, fmt.Errorf("search procedures: %w", err)
		}
		for _, m := range matches {
			if m.Active {
				return ProcedureResolution{Code: m.Code, Description: m.Description, Units: units, Method: "search"}, nil
			}
		}
	}
	return ProcedureResolution{Units: units, IsUnlistedProcedure: true}, nil
}
