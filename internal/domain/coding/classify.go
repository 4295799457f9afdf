package coding

import "fmt"

// ServiceType is the coding path an encounter takes.
type ServiceType string

const (
	ServiceProcedural ServiceType = "procedural"
	ServiceEM         ServiceType = "evaluation_management"
	ServiceUnknown    ServiceType = "unknown"
)

// Classification is the outcome of the service classifier.
type Classification struct {
	Type       ServiceType   `json:"type"`
	Confidence int           `json:"confidence"`
	Reason     string        `json:"reason"`
	POS        POSValidation `json:"pos"`
}

// ClassifyService decides whether an encounter is coded as a procedure or as
// an evaluation and management visit.
func ClassifyService(in EncounterInput) Classification {
	pos := ValidatePlaceOfService(in.PlaceOfService, in.EncounterType)
	if !pos.Valid {
		return Classification{
			Type:       ServiceUnknown,
			Confidence: 30,
			Reason:     fmt.Sprintf("place of service %s: %s", pos.Code, pos.Description),
			POS:        pos,
		}
	}

	if len(in.Procedures) > 0 && in.Procedures[0].Code != "" {
		return Classification{
			Type:       ServiceProcedural,
			Confidence: 95,
			Reason:     fmt.Sprintf("explicit procedure code %s documented", in.Procedures[0].Code),
			POS:        pos,
		}
	}

	switch in.EncounterType {
	case EncounterSurgery, EncounterProcedure, EncounterLab, EncounterRadiology:
		return Classification{
			Type:       ServiceProcedural,
			Confidence: 85,
			Reason:     fmt.Sprintf("%s encounters are coded by procedure", in.EncounterType),
			POS:        pos,
		}
	case EncounterOfficeVisit, EncounterTelehealth, EncounterConsultation, EncounterEmergency, EncounterInpatient:
		return Classification{
			Type:       ServiceEM,
			Confidence: 85,
			Reason:     fmt.Sprintf("%s encounters are coded as evaluation and management", in.EncounterType),
			POS:        pos,
		}
	}
	return Classification{
		Type:   ServiceUnknown,
		Reason: fmt.Sprintf("no coding path for encounter type %q", in.EncounterType),
		POS:    pos,
	}
}

func (e *Engine) classify(r *run) stageOutcome {
	c := ClassifyService(r.in)
	r.classification = c

	question := "Is this a procedural or evaluation and management service?"
	if c.Type == ServiceUnknown {
		if !c.POS.Valid {
			r.warn(SeverityWarning, IssueInvalidPlaceOfService, "place_of_service", c.Reason,
				"Verify the place of service documented for this encounter type")
		}
		r.warn(SeverityWarning, IssueUnresolvedClassification, "encounter_type",
			"service type could not be determined", "Assign the coding path manually")
		r.trail.append(e.node("B", "Service Classification", question, string(c.Type),
			ResultManualReview, fmt.Sprintf("%s (confidence %d)", c.Reason, c.Confidence)))
		return review("service classification could not be determined")
	}

	r.trail.append(e.node("B", "Service Classification", question, string(c.Type),
		ResultProceed, fmt.Sprintf("%s (confidence %d)", c.Reason, c.Confidence)))
	return proceed
}
