package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	EscalatedCount     int
	LocalCount         int
	EscalationFraction float64
	PolicyDistribution map[string]int // policy name → number of decisions
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		PolicyDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Routings)
	for _, r := range st.Routings {
		summary.PolicyDistribution[r.Policy]++
		if r.Escalated {
			summary.EscalatedCount++
		} else {
			summary.LocalCount++
		}
	}
	if summary.TotalDecisions > 0 {
		summary.EscalationFraction = float64(summary.EscalatedCount) / float64(summary.TotalDecisions)
	}
	return summary
}
