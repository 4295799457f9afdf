package coding

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EncounterType is the kind of clinical encounter being coded.
type EncounterType string

const (
	EncounterOfficeVisit  EncounterType = "office_visit"
	EncounterTelehealth   EncounterType = "telehealth"
	EncounterSurgery      EncounterType = "surgery"
	EncounterProcedure    EncounterType = "procedure"
	EncounterLab          EncounterType = "lab"
	EncounterRadiology    EncounterType = "radiology"
	EncounterEmergency    EncounterType = "emergency"
	EncounterInpatient    EncounterType = "inpatient"
	EncounterConsultation EncounterType = "consultation"
)

var validEncounterTypes = map[EncounterType]bool{
	EncounterOfficeVisit: true, EncounterTelehealth: true, EncounterSurgery: true,
	EncounterProcedure: true, EncounterLab: true, EncounterRadiology: true,
	EncounterEmergency: true, EncounterInpatient: true, EncounterConsultation: true,
}

// Valid reports whether t is one of the known encounter types.
func (t EncounterType) Valid() bool { return validEncounterTypes[t] }

// DataAmount grades the amount and complexity of data reviewed for MDM.
type DataAmount string

const (
	DataMinimal   DataAmount = "minimal"
	DataLimited   DataAmount = "limited"
	DataModerate  DataAmount = "moderate"
	DataExtensive DataAmount = "extensive"
)

// RiskLevel grades the risk of complications for MDM.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// MDMHint carries the documented medical-decision-making elements. The
// problem element is derived from the presenting diagnoses.
type MDMHint struct {
	DataAmount DataAmount `json:"data_amount" yaml:"data_amount"`
	Risk       RiskLevel  `json:"risk" yaml:"risk"`
}

// PresentingDiagnosis is a diagnosis as documented: a free-text term, an
// explicit ICD-10 code, or both.
type PresentingDiagnosis struct {
	Term string `json:"term,omitempty" yaml:"term"`
	Code string `json:"code,omitempty" yaml:"code"`
}

// PerformedProcedure is a procedure as documented.
type PerformedProcedure struct {
	Description string `json:"description,omitempty" yaml:"description"`
	Code        string `json:"code,omitempty" yaml:"code"`
	Units       int    `json:"units,omitempty" yaml:"units"`
}

// Circumstances are coder-supplied flags that map onto billing modifiers.
type Circumstances struct {
	AsynchronousTelehealth bool   `json:"asynchronous_telehealth,omitempty" yaml:"asynchronous_telehealth"`
	LegacyTelehealthGT     bool   `json:"legacy_telehealth_gt,omitempty" yaml:"legacy_telehealth_gt"`
	Laterality             string `json:"laterality,omitempty" yaml:"laterality"` // left, right, bilateral
	RepeatSameProvider     bool   `json:"repeat_same_provider,omitempty" yaml:"repeat_same_provider"`
	RepeatOtherProvider    bool   `json:"repeat_other_provider,omitempty" yaml:"repeat_other_provider"`
	ReducedService         bool   `json:"reduced_service,omitempty" yaml:"reduced_service"`
	DiscontinuedService    bool   `json:"discontinued_service,omitempty" yaml:"discontinued_service"`
	AssistantSurgeon       bool   `json:"assistant_surgeon,omitempty" yaml:"assistant_surgeon"`
	ProfessionalComponent  bool   `json:"professional_component,omitempty" yaml:"professional_component"`
	TechnicalComponent     bool   `json:"technical_component,omitempty" yaml:"technical_component"`
}

// EncounterInput is everything the engine needs to code one encounter.
type EncounterInput struct {
	PatientID        string                `json:"patient_id" yaml:"patient_id"`
	PayerID          string                `json:"payer_id" yaml:"payer_id"`
	ProviderID       string                `json:"provider_id" yaml:"provider_id"`
	PolicyStatus     string                `json:"policy_status,omitempty" yaml:"policy_status"`
	EncounterType    EncounterType         `json:"encounter_type" yaml:"encounter_type"`
	ServiceDate      time.Time             `json:"service_date" yaml:"service_date"`
	ChiefComplaint   string                `json:"chief_complaint,omitempty" yaml:"chief_complaint"`
	Diagnoses        []PresentingDiagnosis `json:"diagnoses" yaml:"diagnoses"`
	Procedures       []PerformedProcedure  `json:"procedures" yaml:"procedures"`
	TimeSpentMinutes *int                  `json:"time_spent_minutes,omitempty" yaml:"time_spent_minutes"`
	PlaceOfService   string                `json:"place_of_service,omitempty" yaml:"place_of_service"`
	MDM              *MDMHint              `json:"mdm,omitempty" yaml:"mdm"`
	Circumstances    Circumstances         `json:"circumstances" yaml:"circumstances"`
}

// UnmarshalJSON accepts service_date as a plain YYYY-MM-DD date or as an
// RFC 3339 timestamp.
func (in *EncounterInput) UnmarshalJSON(data []byte) error {
	type plain EncounterInput
	aux := struct {
		*plain
		ServiceDate string `json:"service_date"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	in.ServiceDate = time.Time{}
	if aux.ServiceDate == "" {
		return nil
	}
	t, err := ParseServiceDate(aux.ServiceDate)
	if err != nil {
		return err
	}
	in.ServiceDate = t
	return nil
}

// ParseServiceDate reads a date-only or RFC 3339 value.
func ParseServiceDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("service_date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// NodeResult tags the outcome of one pipeline stage.
type NodeResult string

const (
	ResultProceed      NodeResult = "proceed"
	ResultDeny         NodeResult = "deny"
	ResultManualReview NodeResult = "manual_review"
	ResultComplete     NodeResult = "complete"
)

// DecisionNode is one entry of the audit trail.
type DecisionNode struct {
	NodeID    string            `json:"node_id"`
	NodeName  string            `json:"node_name"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Result    NodeResult        `json:"result"`
	Rationale string            `json:"rationale"`
	Modifiers []AppliedModifier `json:"modifiers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// FeeSource names the fee tier that produced an applied rate.
type FeeSource string

const (
	FeeSourceContracted   FeeSource = "contracted"
	FeeSourceRVU          FeeSource = "rvu_computed"
	FeeSourceChargemaster FeeSource = "chargemaster"
	FeeSourceDefault      FeeSource = "default"
)

// BillableClaimLine is one service line ready for claim submission.
type BillableClaimLine struct {
	ProcedureCode             string    `json:"procedure_code"`
	Modifiers                 []string  `json:"modifiers"`
	DiagnosisCodes            []string  `json:"diagnosis_codes"`
	BilledAmount              float64   `json:"billed_amount"`
	AllowedAmount             *float64  `json:"allowed_amount,omitempty"`
	FeeSource                 FeeSource `json:"fee_source"`
	PatientID                 string    `json:"patient_id"`
	PayerID                   string    `json:"payer_id"`
	ProviderID                string    `json:"provider_id"`
	ServiceDate               time.Time `json:"service_date"`
	Units                     int       `json:"units"`
	PlaceOfService            string    `json:"place_of_service"`
	MedicalNecessityValidated bool      `json:"medical_necessity_validated"`
}

// Severity grades a ValidationIssue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes reported by the engine.
const (
	IssueInvalidInput             = "INVALID_INPUT"
	IssueIneligible               = "INELIGIBLE"
	IssuePriorAuthUnverified      = "PRIOR_AUTH_UNVERIFIED"
	IssueInvalidPlaceOfService    = "INVALID_PLACE_OF_SERVICE"
	IssueUnresolvedClassification = "UNRESOLVED_CLASSIFICATION"
	IssueInvalidProcedureCode     = "INVALID_PROCEDURE_CODE"
	IssueUnlistedProcedure        = "UNLISTED_PROCEDURE"
	IssueAdditionalProcedures     = "ADDITIONAL_PROCEDURES_NOT_CODED"
	IssueUndeterminedEMLevel      = "UNDETERMINED_EM_LEVEL"
	IssueInsufficientTime         = "INSUFFICIENT_TIME_NEW_PATIENT"
	IssueUnresolvedDiagnosis      = "UNRESOLVED_DIAGNOSIS"
	IssueDiagnosisFallback        = "DIAGNOSIS_FALLBACK"
	IssueDiagnosisLimit           = "DIAGNOSIS_LIMIT"
	IssueNoCoverageRules          = "NO_COVERAGE_RULES"
	IssueMedicalNecessityFailed   = "MEDICAL_NECESSITY_FAILED"
	IssueFeeTierDegraded          = "FEE_TIER_DEGRADED"
	IssueEnrichmentFailed         = "SDOH_ENRICHMENT_FAILED"
	IssueProcessingError          = "PROCESSING_ERROR"
)

// ValidationIssue is a blocking error or a non-blocking warning.
type ValidationIssue struct {
	Severity   Severity `json:"severity"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Field      string   `json:"field,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// DecisionTreeResult is the complete outcome of one engine run.
type DecisionTreeResult struct {
	RunID                uuid.UUID           `json:"run_id"`
	Success              bool                `json:"success"`
	ClaimLine            *BillableClaimLine  `json:"claim_line"`
	AdditionalClaimLines []BillableClaimLine `json:"additional_claim_lines"`
	DecisionPath         []DecisionNode      `json:"decision_path"`
	ValidationErrors     []ValidationIssue   `json:"validation_errors"`
	Warnings             []ValidationIssue   `json:"warnings"`
	RequiresManualReview bool                `json:"requires_manual_review"`
	ManualReviewReason   string              `json:"manual_review_reason,omitempty"`
	CompletedAt          time.Time           `json:"completed_at"`
}

// HasError reports whether the result carries an error with the given code.
func (r *DecisionTreeResult) HasError(code string) bool {
	for _, e := range r.ValidationErrors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// HasWarning reports whether the result carries a warning or info issue with
// the given code.
func (r *DecisionTreeResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
