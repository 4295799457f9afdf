package coding

import "testing"

func TestGenerateEMCode_Exhaustive(t *testing.T) {
	type key struct {
		facility FacilityClass
		status   PatientStatus
		level    int
	}
	want := map[key]string{
		{FacilityOffice, PatientNew, 2}: "99202", {FacilityOffice, PatientNew, 3}: "99203",
		{FacilityOffice, PatientNew, 4}: "99204", {FacilityOffice, PatientNew, 5}: "99205",
		{FacilityOffice, PatientEstablished, 1}: "99211", {FacilityOffice, PatientEstablished, 2}: "99212",
		{FacilityOffice, PatientEstablished, 3}: "99213", {FacilityOffice, PatientEstablished, 4}: "99214",
		{FacilityOffice, PatientEstablished, 5}: "99215",

		{FacilityHome, PatientNew, 2}: "99202", {FacilityHome, PatientNew, 3}: "99203",
		{FacilityHome, PatientNew, 4}: "99204", {FacilityHome, PatientNew, 5}: "99205",
		{FacilityHome, PatientEstablished, 1}: "99211", {FacilityHome, PatientEstablished, 2}: "99212",
		{FacilityHome, PatientEstablished, 3}: "99213", {FacilityHome, PatientEstablished, 4}: "99214",
		{FacilityHome, PatientEstablished, 5}: "99215",

		// levels above 3 cap at the highest inpatient code
		{FacilityInpatient, PatientNew, 1}: "99221", {FacilityInpatient, PatientNew, 2}: "99222",
		{FacilityInpatient, PatientNew, 3}: "99223", {FacilityInpatient, PatientNew, 4}: "99223",
		{FacilityInpatient, PatientNew, 5}: "99223", {FacilityInpatient, PatientNew, 6}: "99223",
		{FacilityInpatient, PatientEstablished, 1}: "99231", {FacilityInpatient, PatientEstablished, 2}: "99232",
		{FacilityInpatient, PatientEstablished, 3}: "99233", {FacilityInpatient, PatientEstablished, 4}: "99233",
		{FacilityInpatient, PatientEstablished, 5}: "99233", {FacilityInpatient, PatientEstablished, 6}: "99233",

		{FacilityEmergency, PatientNew, 1}: "99281", {FacilityEmergency, PatientNew, 2}: "99282",
		{FacilityEmergency, PatientNew, 3}: "99283", {FacilityEmergency, PatientNew, 4}: "99284",
		{FacilityEmergency, PatientNew, 5}: "99285", {FacilityEmergency, PatientNew, 6}: "99285",
		{FacilityEmergency, PatientEstablished, 1}: "99281", {FacilityEmergency, PatientEstablished, 2}: "99282",
		{FacilityEmergency, PatientEstablished, 3}: "99283", {FacilityEmergency, PatientEstablished, 4}: "99284",
		{FacilityEmergency, PatientEstablished, 5}: "99285", {FacilityEmergency, PatientEstablished, 6}: "99285",

		{FacilityNursing, PatientNew, 1}: "99304", {FacilityNursing, PatientNew, 2}: "99304",
		{FacilityNursing, PatientNew, 3}: "99305", {FacilityNursing, PatientNew, 4}: "99306",
		{FacilityNursing, PatientNew, 5}:         "99306",
		{FacilityNursing, PatientEstablished, 1}: "99307", {FacilityNursing, PatientEstablished, 2}: "99308",
		{FacilityNursing, PatientEstablished, 3}: "99309", {FacilityNursing, PatientEstablished, 4}: "99310",
		{FacilityNursing, PatientEstablished, 5}: "99310",
	}

	facilities := []FacilityClass{FacilityOffice, FacilityHome, FacilityInpatient, FacilityEmergency, FacilityNursing}
	statuses := []PatientStatus{PatientNew, PatientEstablished}
	for _, f := range facilities {
		for _, s := range statuses {
			for level := 0; level <= 6; level++ {
				code, err := GenerateEMCode(f, s, level)
				expected, ok := want[key{f, s, level}]
				if !ok {
					if err == nil {
						t.Errorf("%s/%s/%d: expected no code, got %s", f, s, level, code)
					}
					continue
				}
				if err != nil {
					t.Errorf("%s/%s/%d: unexpected error: %v", f, s, level, err)
					continue
				}
				if code != expected {
					t.Errorf("%s/%s/%d: expected %s, got %s", f, s, level, expected, code)
				}
			}
		}
	}
}

func TestGenerateEMCode_NoNewPatientLevelOne(t *testing.T) {
	if code, err := GenerateEMCode(FacilityOffice, PatientNew, 1); err == nil {
		t.Errorf("expected no level-1 new patient office code, got %s", code)
	}
}

func TestIsEMCode(t *testing.T) {
	for _, code := range []string{"99202", "99215", "99233", "99285", "99310"} {
		if !IsEMCode(code) {
			t.Errorf("expected %s to be an E/M code", code)
		}
	}
	for _, code := range []string{"93000", "99417", "99201", ""} {
		if IsEMCode(code) {
			t.Errorf("expected %s not to be an E/M code", code)
		}
	}
}
