package coding

import "testing"

func TestCalculateProlongedService(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		minutes *int
		applies bool
		units   int
	}{
		{"99215 exactly 15 over", "99215", intPtr(55), true, 1},
		{"99215 14 over", "99215", intPtr(54), false, 0},
		{"99205 44 over", "99205", intPtr(104), true, 2},
		{"99204 30 over", "99204", intPtr(75), true, 2},
		{"99214 45 over", "99214", intPtr(75), true, 3},
		{"capped at 16 units", "99215", intPtr(40 + 15*30), true, 16},
		{"ineligible code", "99213", intPtr(120), false, 0},
		{"no time documented", "99215", nil, false, 0},
		{"time under base", "99205", intPtr(20), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateProlongedService(tt.code, tt.minutes)
			if got.Applies != tt.applies || got.Units != tt.units {
				t.Errorf("expected applies=%v units=%d, got %+v", tt.applies, tt.units, got)
			}
			if got.Applies && got.Code != ProlongedServiceCode {
				t.Errorf("expected add-on code %s, got %s", ProlongedServiceCode, got.Code)
			}
			if got.ExtraMinutes < 0 {
				t.Errorf("extra minutes must not be negative, got %d", got.ExtraMinutes)
			}
		})
	}
}
