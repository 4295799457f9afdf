package coding

// ProlongedServiceCode is the add-on code for each additional 15 minutes
// beyond the highest-level office visit time.
const ProlongedServiceCode = "99417"

const (
	prolongedIncrement = 15
	maxProlongedUnits  = 16
)

var prolongedBaseMinutes = map[string]int{
	"99204": 45,
	"99205": 60,
	"99214": 30,
	"99215": 40,
}

// ProlongedService describes an add-on line for time beyond a code's base.
type ProlongedService struct {
	Applies      bool   `json:"applies"`
	Code         string `json:"code,omitempty"`
	BaseCode     string `json:"base_code,omitempty"`
	BaseMinutes  int    `json:"base_minutes,omitempty"`
	ExtraMinutes int    `json:"extra_minutes,omitempty"`
	Units        int    `json:"units,omitempty"`
}

// CalculateProlongedService reports whether code plus the documented time
// earns prolonged-service units.
func CalculateProlongedService(code string, minutes *int) ProlongedService {
	base, ok := prolongedBaseMinutes[code]
	if !ok || minutes == nil {
		return ProlongedService{}
	}
	extra := *minutes - base
	if extra < prolongedIncrement {
		return ProlongedService{BaseCode: code, BaseMinutes: base, ExtraMinutes: max(extra, 0)}
	}
	units := extra / prolongedIncrement
	if units > maxProlongedUnits {
		units = maxProlongedUnits
	}
	return ProlongedService{
		Applies:      true,
		Code:         ProlongedServiceCode,
		BaseCode:     code,
		BaseMinutes:  base,
		ExtraMinutes: extra,
		Units:        units,
	}
}
