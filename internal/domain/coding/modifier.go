package coding

import (
	"fmt"
	"strings"
)

// AppliedModifier is a billing modifier with the reason it was attached.
type AppliedModifier struct {
	Code      string `json:"code"`
	Rationale string `json:"rationale"`
}

// ModifierContext is what the modifier resolver looks at besides the code.
type ModifierContext struct {
	EncounterType EncounterType
	Procedures    []PerformedProcedure
	Circumstances Circumstances
}

type modifierSet struct {
	out  []AppliedModifier
	seen map[string]bool
}

func (s *modifierSet) add(code, rationale string) {
	if s.seen[code] {
		return
	}
	s.seen[code] = true
	s.out = append(s.out, AppliedModifier{Code: code, Rationale: rationale})
}

// ResolveModifiers returns the modifiers for code in a fixed order without
// duplicates.
func ResolveModifiers(code string, mc ModifierContext) []AppliedModifier {
	s := &modifierSet{seen: map[string]bool{}}
	c := mc.Circumstances
	em := IsEMCode(code)

	if mc.EncounterType == EncounterTelehealth {
		switch {
		case c.AsynchronousTelehealth:
			s.add("GQ", "asynchronous telecommunications system")
		case c.LegacyTelehealthGT:
			s.add("GT", "interactive audio and video (legacy payer requirement)")
		default:
			s.add("95", "synchronous telemedicine service")
		}
	}

	if em && len(mc.Procedures) > 0 {
		s.add("25", "significant, separately identifiable E/M service on the day of a procedure")
	}

	switch laterality(c.Laterality, mc.Procedures, em) {
	case "bilateral":
		s.add("50", "bilateral procedure")
	case "left":
		s.add("LT", "left side")
	case "right":
		s.add("RT", "right side")
	}

	if c.RepeatSameProvider {
		s.add("76", "repeat procedure by the same physician")
	}
	if c.RepeatOtherProvider {
		s.add("77", "repeat procedure by another physician")
	}
	if c.ReducedService {
		s.add("52", "reduced services")
	}
	if c.DiscontinuedService {
		s.add("53", "discontinued procedure")
	}
	if c.AssistantSurgeon {
		s.add("80", "assistant surgeon")
	}
	if c.ProfessionalComponent {
		s.add("26", "professional component")
	}
	if c.TechnicalComponent {
		s.add("TC", "technical component")
	}
	return s.out
}

// laterality prefers the explicit flag. Description keywords only count for
// procedure codes.
func laterality(flag string, procs []PerformedProcedure, em bool) string {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "bilateral", "both":
		return "bilateral"
	case "left", "l":
		return "left"
	case "right", "r":
		return "right"
	}
	if em || len(procs) == 0 {
		return ""
	}
	desc := " " + strings.ToLower(procs[0].Description) + " "
	switch {
	case strings.Contains(desc, "bilateral"):
		return "bilateral"
	case strings.Contains(desc, " left "):
		return "left"
	case strings.Contains(desc, " right "):
		return "right"
	}
	return ""
}

func (e *Engine) resolveModifiers(r *run, code string) stageOutcome {
	r.modifiers = ResolveModifiers(code, ModifierContext{
		EncounterType: r.in.EncounterType,
		Procedures:    r.in.Procedures,
		Circumstances: r.in.Circumstances,
	})

	codes := make([]string, 0, len(r.modifiers))
	for _, m := range r.modifiers {
		codes = append(codes, m.Code)
	}
	answer := "none"
	if len(codes) > 0 {
		answer = strings.Join(codes, ",")
	}
	rationale := fmt.Sprintf("%d modifier(s) for %s", len(codes), code)
	if p := r.prolonged; p.Applies {
		rationale += fmt.Sprintf("; prolonged service %s x%d for %d minutes beyond %s base of %d",
			p.Code, p.Units, p.ExtraMinutes, p.BaseCode, p.BaseMinutes)
	}

	n := e.node("E", "Modifier Resolution", "Which modifiers apply?", answer, ResultProceed, rationale)
	n.Modifiers = append([]AppliedModifier{}, r.modifiers...)
	r.trail.append(n)
	return proceed
}
