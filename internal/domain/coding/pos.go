package coding

import (
	"fmt"
	"strings"
)

// DefaultPlaceOfService is used when an encounter does not document one.
const DefaultPlaceOfService = "11"

// FacilityClass groups places of service that share an E/M code family.
type FacilityClass string

const (
	FacilityOffice    FacilityClass = "office"
	FacilityHome      FacilityClass = "home"
	FacilityInpatient FacilityClass = "inpatient"
	FacilityEmergency FacilityClass = "emergency"
	FacilityNursing   FacilityClass = "nursing"
)

type placeOfService struct {
	name     string
	facility FacilityClass
	valid    map[EncounterType]bool
}

func validFor(types ...EncounterType) map[EncounterType]bool {
	m := make(map[EncounterType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var placesOfService = map[string]placeOfService{
	"02": {"Telehealth provided other than in patient's home", FacilityOffice,
		validFor(EncounterTelehealth)},
	"10": {"Telehealth provided in patient's home", FacilityOffice,
		validFor(EncounterTelehealth)},
	"11": {"Office", FacilityOffice,
		validFor(EncounterOfficeVisit, EncounterTelehealth, EncounterConsultation, EncounterProcedure, EncounterLab, EncounterRadiology)},
	"12": {"Home", FacilityHome,
		validFor(EncounterOfficeVisit, EncounterTelehealth, EncounterProcedure, EncounterLab)},
	"19": {"Off campus-outpatient hospital", FacilityOffice,
		validFor(EncounterOfficeVisit, EncounterConsultation, EncounterProcedure, EncounterSurgery, EncounterLab, EncounterRadiology)},
	"21": {"Inpatient hospital", FacilityInpatient,
		validFor(EncounterInpatient, EncounterConsultation, EncounterSurgery, EncounterProcedure, EncounterLab, EncounterRadiology)},
	"22": {"On campus-outpatient hospital", FacilityOffice,
		validFor(EncounterOfficeVisit, EncounterConsultation, EncounterProcedure, EncounterSurgery, EncounterLab, EncounterRadiology)},
	"23": {"Emergency room - hospital", FacilityEmergency,
		validFor(EncounterEmergency)},
	"24": {"Ambulatory surgical center", FacilityOffice,
		validFor(EncounterSurgery, EncounterProcedure)},
	"31": {"Skilled nursing facility", FacilityNursing,
		validFor(EncounterInpatient, EncounterOfficeVisit, EncounterConsultation)},
	"32": {"Nursing facility", FacilityNursing,
		validFor(EncounterInpatient, EncounterOfficeVisit, EncounterConsultation)},
	"81": {"Independent laboratory", FacilityOffice,
		validFor(EncounterLab)},
}

// POSValidation is the outcome of checking a place of service against an
// encounter type.
type POSValidation struct {
	Valid       bool          `json:"valid"`
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Facility    FacilityClass `json:"facility,omitempty"`
}

// ValidatePlaceOfService checks that pos is a known place-of-service code and
// that encounterType may be billed there. An empty pos means office.
func ValidatePlaceOfService(pos string, encounterType EncounterType) POSValidation {
	code := strings.TrimSpace(pos)
	if code == "" {
		code = DefaultPlaceOfService
	}
	entry, ok := placesOfService[code]
	if !ok {
		return POSValidation{
			Code:        code,
			Description: fmt.Sprintf("unknown place of service %q", code),
		}
	}
	v := POSValidation{Code: code, Description: entry.name, Facility: entry.facility}
	if !entry.valid[encounterType] {
		v.Description = fmt.Sprintf("%s (not valid for %s encounters)", entry.name, encounterType)
		return v
	}
	v.Valid = true
	return v
}
