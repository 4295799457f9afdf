package coding

import "fmt"

// PatientStatus distinguishes new from established patients for E/M coding.
type PatientStatus string

const (
	PatientNew         PatientStatus = "new"
	PatientEstablished PatientStatus = "established"
)

type emKey struct {
	facility FacilityClass
	status   PatientStatus
	level    int
}

// emCodes is the complete E/M code table. A combination that is not listed
// has no billable code; callers must not synthesize one.
var emCodes = map[emKey]string{
	// Office / outpatient / telehealth
	{FacilityOffice, PatientNew, 2}:         "99202",
	{FacilityOffice, PatientNew, 3}:         "99203",
	{FacilityOffice, PatientNew, 4}:         "99204",
	{FacilityOffice, PatientNew, 5}:         "99205",
	{FacilityOffice, PatientEstablished, 1}: "99211",
	{FacilityOffice, PatientEstablished, 2}: "99212",
	{FacilityOffice, PatientEstablished, 3}: "99213",
	{FacilityOffice, PatientEstablished, 4}: "99214",
	{FacilityOffice, PatientEstablished, 5}: "99215",

	// Home visits bill on the office family
	{FacilityHome, PatientNew, 2}:         "99202",
	{FacilityHome, PatientNew, 3}:         "99203",
	{FacilityHome, PatientNew, 4}:         "99204",
	{FacilityHome, PatientNew, 5}:         "99205",
	{FacilityHome, PatientEstablished, 1}: "99211",
	{FacilityHome, PatientEstablished, 2}: "99212",
	{FacilityHome, PatientEstablished, 3}: "99213",
	{FacilityHome, PatientEstablished, 4}: "99214",
	{FacilityHome, PatientEstablished, 5}: "99215",

	// Inpatient: initial and subsequent hospital care
	{FacilityInpatient, PatientNew, 1}:         "99221",
	{FacilityInpatient, PatientNew, 2}:         "99222",
	{FacilityInpatient, PatientNew, 3}:         "99223",
	{FacilityInpatient, PatientEstablished, 1}: "99231",
	{FacilityInpatient, PatientEstablished, 2}: "99232",
	{FacilityInpatient, PatientEstablished, 3}: "99233",

	// Emergency department: no new/established distinction
	{FacilityEmergency, PatientNew, 1}:         "99281",
	{FacilityEmergency, PatientNew, 2}:         "99282",
	{FacilityEmergency, PatientNew, 3}:         "99283",
	{FacilityEmergency, PatientNew, 4}:         "99284",
	{FacilityEmergency, PatientNew, 5}:         "99285",
	{FacilityEmergency, PatientEstablished, 1}: "99281",
	{FacilityEmergency, PatientEstablished, 2}: "99282",
	{FacilityEmergency, PatientEstablished, 3}: "99283",
	{FacilityEmergency, PatientEstablished, 4}: "99284",
	{FacilityEmergency, PatientEstablished, 5}: "99285",

	// Nursing facility: initial and subsequent care
	{FacilityNursing, PatientNew, 1}:         "99304",
	{FacilityNursing, PatientNew, 2}:         "99304",
	{FacilityNursing, PatientNew, 3}:         "99305",
	{FacilityNursing, PatientNew, 4}:         "99306",
	{FacilityNursing, PatientNew, 5}:         "99306",
	{FacilityNursing, PatientEstablished, 1}: "99307",
	{FacilityNursing, PatientEstablished, 2}: "99308",
	{FacilityNursing, PatientEstablished, 3}: "99309",
	{FacilityNursing, PatientEstablished, 4}: "99310",
	{FacilityNursing, PatientEstablished, 5}: "99310",
}

// maxEMLevel caps the level for facility families with fewer than five codes.
var maxEMLevel = map[FacilityClass]int{
	FacilityInpatient: 3,
	FacilityEmergency: 5,
}

// GenerateEMCode looks up the E/M code for a facility class, patient status
// and level. Levels above a family's highest code are capped.
func GenerateEMCode(facility FacilityClass, status PatientStatus, level int) (string, error) {
	if ceiling, ok := maxEMLevel[facility]; ok && level > ceiling {
		level = ceiling
	}
	code, ok := emCodes[emKey{facility, status, level}]
	if !ok {
		return "", fmt.Errorf("no E/M code for %s %s patient at level %d", facility, status, level)
	}
	return code, nil
}

// IsEMCode reports whether code belongs to the E/M code table.
func IsEMCode(code string) bool {
	for _, c := range emCodes {
		if c == code {
			return true
		}
	}
	return false
}
