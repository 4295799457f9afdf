package coding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fakeRef is an in-memory ReferenceData. Set failOn to make one method
// return a system error.
type fakeRef struct {
	mu         sync.Mutex
	coverages  map[string]*CoverageRecord
	procedures map[string]*ProcedureCode
	diagnoses  map[string]*DiagnosisCode
	rules      map[string][]*CodingRule
	fees       map[string]*FeeScheduleEntry
	rvus       map[string]*RelativeValueUnits
	payers     map[string]*PayerRecord
	seen       map[string]bool
	failOn     string
	calls      map[string]int
}

var errBackend = errors.New("connection reset by peer")

func newFakeRef() *fakeRef {
	return &fakeRef{
		coverages:  map[string]*CoverageRecord{},
		procedures: map[string]*ProcedureCode{},
		diagnoses:  map[string]*DiagnosisCode{},
		rules:      map[string][]*CodingRule{},
		fees:       map[string]*FeeScheduleEntry{},
		rvus:       map[string]*RelativeValueUnits{},
		payers:     map[string]*PayerRecord{},
		seen:       map[string]bool{},
		calls:      map[string]int{},
	}
}

func (f *fakeRef) hit(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.failOn == method {
		return fmt.Errorf("%s: %w", method, errBackend)
	}
	return nil
}

func (f *fakeRef) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRef) Coverage(_ context.Context, patientID, payerID string) (*CoverageRecord, error) {
	if err := f.hit("Coverage"); err != nil {
		return nil, err
	}
	c, ok := f.coverages[patientID+"|"+payerID]
	if !ok {
		return nil, fmt.Errorf("coverage: %w", ErrNotFound)
	}
	return c, nil
}

func (f *fakeRef) ProcedureCode(_ context.Context, code string) (*ProcedureCode, error) {
	if err := f.hit("ProcedureCode"); err != nil {
		return nil, err
	}
	p, ok := f.procedures[code]
	if !ok {
		return nil, fmt.Errorf("procedure %s: %w", code, ErrNotFound)
	}
	return p, nil
}

func (f *fakeRef) SearchProcedures(_ context.Context, query string, limit int) ([]*ProcedureCode, error) {
	if err := f.hit("SearchProcedures"); err != nil {
		return nil, err
	}
	var out []*ProcedureCode
	for _, p := range f.procedures {
		if strings.Contains(strings.ToLower(p.Description), strings.ToLower(query)) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRef) DiagnosisCode(_ context.Context, code string) (*DiagnosisCode, error) {
	if err := f.hit("DiagnosisCode"); err != nil {
		return nil, err
	}
	d, ok := f.diagnoses[code]
	if !ok {
		return nil, fmt.Errorf("diagnosis %s: %w", code, ErrNotFound)
	}
	return d, nil
}

func (f *fakeRef) SearchDiagnoses(_ context.Context, query string, limit int) ([]*DiagnosisCode, error) {
	if err := f.hit("SearchDiagnoses"); err != nil {
		return nil, err
	}
	var out []*DiagnosisCode
	for _, d := range f.diagnoses {
		if strings.Contains(strings.ToLower(d.Description), strings.ToLower(query)) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRef) CodingRules(_ context.Context, procedureCode string) ([]*CodingRule, error) {
	if err := f.hit("CodingRules"); err != nil {
		return nil, err
	}
	return f.rules[procedureCode], nil
}

func (f *fakeRef) FeeScheduleEntry(_ context.Context, payerID, procedureCode string, _ time.Time) (*FeeScheduleEntry, error) {
	if err := f.hit("FeeScheduleEntry"); err != nil {
		return nil, err
	}
	e, ok := f.fees[payerID+"|"+procedureCode]
	if !ok {
		return nil, fmt.Errorf("fee: %w", ErrNotFound)
	}
	return e, nil
}

func (f *fakeRef) RelativeValues(_ context.Context, procedureCode string) (*RelativeValueUnits, error) {
	if err := f.hit("RelativeValues"); err != nil {
		return nil, err
	}
	r, ok := f.rvus[procedureCode]
	if !ok {
		return nil, fmt.Errorf("rvu: %w", ErrNotFound)
	}
	return r, nil
}

func (f *fakeRef) Payer(_ context.Context, payerID string) (*PayerRecord, error) {
	if err := f.hit("Payer"); err != nil {
		return nil, err
	}
	p, ok := f.payers[payerID]
	if !ok {
		return nil, fmt.Errorf("payer: %w", ErrNotFound)
	}
	return p, nil
}

func (f *fakeRef) HasPriorEncounter(_ context.Context, patientID, providerID string, _, _ time.Time) (bool, error) {
	if err := f.hit("HasPriorEncounter"); err != nil {
		return false, err
	}
	return f.seen[patientID+"|"+providerID], nil
}

// seededRef returns reference data for a covered patient with a handful of
// common codes.
func seededRef() *fakeRef {
	f := newFakeRef()
	f.coverages["pat-100|aetna-ppo"] = &CoverageRecord{PatientID: "pat-100", PayerID: "aetna-ppo", Status: "active", PlanType: "PPO"}
	f.payers["aetna-ppo"] = &PayerRecord{ID: "aetna-ppo", Name: "Aetna", PayerType: "commercial"}

	for _, p := range []*ProcedureCode{
		{Code: "99213", Description: "Office visit established patient low MDM", Category: "E/M", Active: true},
		{Code: "99214", Description: "Office visit established patient moderate MDM", Category: "E/M", Active: true},
		{Code: "93000", Description: "Electrocardiogram routine with interpretation", Category: "Cardiology", Active: true},
		{Code: "73630", Description: "X-ray exam of foot", Category: "Radiology", Active: true},
		{Code: "11100", Description: "Biopsy of skin lesion", Category: "Surgery", Active: false},
	} {
		f.procedures[p.Code] = p
	}
	for _, d := range []*DiagnosisCode{
		{Code: "E11.9", Description: "Type 2 diabetes mellitus without complications", Billable: true, Active: true},
		{Code: "I10", Description: "Essential primary hypertension", Billable: true, Active: true},
		{Code: "I48.91", Description: "Unspecified atrial fibrillation", Billable: true, Active: true},
		{Code: "E11", Description: "Type 2 diabetes mellitus category", Billable: false, Active: true},
		{Code: "Z59.0", Description: "Homelessness", Billable: true, Active: true},
	} {
		f.diagnoses[d.Code] = d
	}
	f.seen["pat-100|dr-7"] = true
	return f
}

func intPtr(v int) *int { return &v }

func serviceDay() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

func officeVisit() EncounterInput {
	return EncounterInput{
		PatientID:        "pat-100",
		PayerID:          "aetna-ppo",
		ProviderID:       "dr-7",
		EncounterType:    EncounterOfficeVisit,
		ServiceDate:      serviceDay(),
		ChiefComplaint:   "follow-up",
		Diagnoses:        []PresentingDiagnosis{{Code: "E11.9"}, {Code: "I10"}},
		TimeSpentMinutes: intPtr(25),
		PlaceOfService:   "11",
	}
}

func newTestEngine(ref ReferenceData) *Engine {
	e := NewEngine(ref, DefaultConfig(), zerolog.Nop())
	fixed := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return fixed })
	return e
}

func nodeIDs(res *DecisionTreeResult) []string {
	ids := make([]string, 0, len(res.DecisionPath))
	for _, n := range res.DecisionPath {
		ids = append(ids, n.NodeID)
	}
	return ids
}
