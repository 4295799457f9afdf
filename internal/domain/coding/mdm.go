package coding

import "sort"

// MDM complexity levels, lowest to highest.
const (
	MDMStraightforward = 1
	MDMLow             = 2
	MDMModerate        = 3
	MDMHigh            = 4
)

var dataAmountLevels = map[DataAmount]int{
	DataMinimal:   MDMStraightforward,
	DataLimited:   MDMLow,
	DataModerate:  MDMModerate,
	DataExtensive: MDMHigh,
}

var riskLevels = map[RiskLevel]int{
	RiskMinimal:  MDMStraightforward,
	RiskLow:      MDMLow,
	RiskModerate: MDMModerate,
	RiskHigh:     MDMHigh,
}

// ScoreProblemComplexity grades the number of problems addressed. Two or more
// problems with high risk escalate to the highest level.
func ScoreProblemComplexity(diagnosisCount int, risk RiskLevel) int {
	switch {
	case diagnosisCount <= 0:
		return MDMStraightforward
	case diagnosisCount == 1:
		return MDMLow
	case risk == RiskHigh:
		return MDMHigh
	default:
		return MDMModerate
	}
}

// ScoreDataComplexity grades the data reviewed. Unknown values score as
// minimal.
func ScoreDataComplexity(d DataAmount) int {
	if lvl, ok := dataAmountLevels[d]; ok {
		return lvl
	}
	return MDMStraightforward
}

// ScoreRiskComplexity grades the risk of complications. Unknown values score
// as minimal.
func ScoreRiskComplexity(r RiskLevel) int {
	if lvl, ok := riskLevels[r]; ok {
		return lvl
	}
	return MDMStraightforward
}

// CalculateMDMLevel applies the two-of-three rule by returning the median of
// the three category levels: when two categories agree the median is their
// level, and when all three differ it is the middle one.
func CalculateMDMLevel(problem, data, risk int) int {
	levels := []int{problem, data, risk}
	sort.Ints(levels)
	return levels[1]
}

// MDMLevelFor scores an encounter's documented MDM elements.
func MDMLevelFor(diagnosisCount int, hint MDMHint) int {
	return CalculateMDMLevel(
		ScoreProblemComplexity(diagnosisCount, hint.Risk),
		ScoreDataComplexity(hint.DataAmount),
		ScoreRiskComplexity(hint.Risk),
	)
}
