package terminology

import "errors"

// ErrNotFound is returned when a code is not in the reference tables.
var ErrNotFound = errors.New("code not found")

// CPTCode is a CPT/HCPCS procedure code.
type CPTCode struct {
	Code     string `db:"code" json:"code"`
	Display  string `db:"display" json:"display"`
	Category string `db:"category" json:"category,omitempty"`
	Active   bool   `db:"active" json:"active"`
}

// ICD10Code is an ICD-10-CM diagnosis code. Only leaf codes are billable.
type ICD10Code struct {
	Code     string `db:"code" json:"code"`
	Display  string `db:"display" json:"display"`
	Category string `db:"category" json:"category,omitempty"`
	Chapter  string `db:"chapter" json:"chapter,omitempty"`
	Billable bool   `db:"billable" json:"billable"`
	Active   bool   `db:"active" json:"active"`
}
