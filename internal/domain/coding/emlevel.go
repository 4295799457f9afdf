package coding

import (
	"context"
	"fmt"
)

// minTimeBasedMinutes is the least documented time that selects time-based
// leveling over MDM.
const minTimeBasedMinutes = 10

// lookbackYears bounds the prior-encounter search used for new vs
// established status.
const lookbackYears = 3

// EMEvaluation is the outcome of E/M leveling.
type EMEvaluation struct {
	Code          string        `json:"code,omitempty"`
	Level         int           `json:"level"`
	PatientStatus PatientStatus `json:"patient_status"`
	Method        string        `json:"method,omitempty"` // time or mdm
	Determined    bool          `json:"determined"`
}

// TimeBasedLevel maps total documented minutes to an E/M level. The second
// return is true when a new-patient visit falls below the shortest
// new-patient time and was leveled at the minimum.
func TimeBasedLevel(status PatientStatus, minutes int) (level int, insufficient bool) {
	if status == PatientNew {
		switch {
		case minutes < 15:
			return 2, true
		case minutes < 30:
			return 2, false
		case minutes < 45:
			return 3, false
		case minutes < 60:
			return 4, false
		default:
			return 5, false
		}
	}
	switch {
	case minutes < 10:
		return 1, false
	case minutes < 20:
		return 2, false
	case minutes < 30:
		return 3, false
	case minutes < 40:
		return 4, false
	default:
		return 5, false
	}
}

// MDMBasedLevel maps the MDM calculator output to an E/M level. New patient
// codes start at level 2.
func MDMBasedLevel(status PatientStatus, mdm int) int {
	if status == PatientNew && mdm < 2 {
		return 2
	}
	return mdm
}

func (e *Engine) evaluateEM(ctx context.Context, r *run) (stageOutcome, error) {
	from := r.in.ServiceDate.AddDate(-lookbackYears, 0, 0)
	seen, err := e.ref.HasPriorEncounter(ctx, r.in.PatientID, r.in.ProviderID, from, r.in.ServiceDate)
	if err != nil {
		return proceed, fmt.Errorf("check prior encounters: %w", err)
	}
	status := PatientNew
	if seen {
		status = PatientEstablished
	}

	ev := EMEvaluation{PatientStatus: status}
	// Emergency codes have no new/established split, so level on the
	// established scale with no floor.
	levelStatus := status
	if r.classification.POS.Facility == FacilityEmergency {
		levelStatus = PatientEstablished
	}
	question := "What E/M level does the documentation support?"
	var rationale string

	switch {
	case r.in.TimeSpentMinutes != nil && *r.in.TimeSpentMinutes >= minTimeBasedMinutes:
		minutes := *r.in.TimeSpentMinutes
		level, short := TimeBasedLevel(levelStatus, minutes)
		if short {
			r.warn(SeverityWarning, IssueInsufficientTime, "time_spent_minutes",
				fmt.Sprintf("%d minutes is below the minimum for a new patient visit", minutes),
				"Confirm total time or level by medical decision making")
		}
		ev.Level, ev.Method = level, "time"
		rationale = fmt.Sprintf("%s patient, %d minutes total time", status, minutes)

	case r.in.MDM != nil:
		mdm := MDMLevelFor(len(r.in.Diagnoses), *r.in.MDM)
		ev.Level, ev.Method = MDMBasedLevel(levelStatus, mdm), "mdm"
		rationale = fmt.Sprintf("%s patient, MDM level %d (data %s, risk %s)",
			status, mdm, r.in.MDM.DataAmount, r.in.MDM.Risk)

	default:
		r.em = ev
		r.warn(SeverityWarning, IssueUndeterminedEMLevel, "mdm",
			"neither qualifying time nor medical decision making was documented",
			"Document total time or MDM elements")
		r.trail.append(e.node("D", "E/M Level Evaluation", question, "undetermined", ResultManualReview,
			fmt.Sprintf("%s patient, no time or MDM documentation", status)))
		return review("E/M level could not be determined"), nil
	}

	code, err := GenerateEMCode(r.classification.POS.Facility, status, ev.Level)
	if err != nil {
		r.em = ev
		r.warn(SeverityWarning, IssueUndeterminedEMLevel, "place_of_service", err.Error(),
			"Select the E/M code manually")
		r.trail.append(e.node("D", "E/M Level Evaluation", question, "undetermined", ResultManualReview, err.Error()))
		return review("no E/M code exists for the evaluated level"), nil
	}
	ev.Code, ev.Determined = code, true
	r.em = ev

	if r.in.ChiefComplaint == "" {
		r.warn(SeverityInfo, "MISSING_CHIEF_COMPLAINT", "chief_complaint",
			"no chief complaint documented", "Document the reason for the visit")
	}

	r.trail.append(e.node("D", "E/M Level Evaluation", question, code, ResultProceed,
		fmt.Sprintf("level %d by %s: %s", ev.Level, ev.Method, rationale)))
	return proceed, nil
}
