package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSwitches      int
	SuppressedSwitches int
	AnnualSwitchRate   float64 // switches per (site, category) pair-year
	MeanTenureAtSwitch float64
	SwitchesByCategory map[string]int
}

// Summarize computes aggregate statistics from a SimulationTrace over
// pairs (site, category) observed for horizonMonths months.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace, pairs, horizonMonths int) *TraceSummary {
	summary := &TraceSummary{
		SwitchesByCategory: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalSwitches = st.switchCount
	summary.SuppressedSwitches = len(st.Suppressed)
	for c, n := range st.byCategory {
		summary.SwitchesByCategory[c] = n
	}
	if st.switchCount > 0 {
		summary.MeanTenureAtSwitch = float64(st.tenureSum) / float64(st.switchCount)
	}
	if pairs > 0 && horizonMonths > 0 {
		pairYears := float64(pairs) * float64(horizonMonths) / 12.0
		summary.AnnualSwitchRate = float64(st.switchCount) / pairYears
	}
	return summary
}
