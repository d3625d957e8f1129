package sim

import (
	"fmt"
	"io"
	"math"
	"sort"
)

// Distribution captures statistical summary of a metric.
type Distribution struct {
	Mean  float64
	P50   float64
	P95   float64
	Min   float64
	Max   float64
	Count int
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Distribution{
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// percentile computes the p-th percentile using linear interpolation.
// Input must be sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Metrics aggregates a Result for final reporting: table sizes, the annual
// switch rate and the KPI distributions.
type Metrics struct {
	Sites            int
	Pairs            int
	Contracts        int
	Switches         int
	Suppressed       int
	AnnualSwitchRate float64
	DaysAR           Distribution
	DenialRate       Distribution
}

// CollectMetrics builds Metrics from a Result.
func CollectMetrics(r *Result) *Metrics {
	days := make([]float64, len(r.KPIs))
	denial := make([]float64, len(r.KPIs))
	sites := make(map[string]bool)
	for i, k := range r.KPIs {
		days[i] = k.DaysAR
		denial[i] = k.DenialRate
		sites[k.SiteID] = true
	}
	summary := r.Summary()
	return &Metrics{
		Sites:            len(sites),
		Pairs:            len(r.InitialContracts),
		Contracts:        len(r.Contracts),
		Switches:         summary.TotalSwitches,
		Suppressed:       summary.SuppressedSwitches,
		AnnualSwitchRate: summary.AnnualSwitchRate,
		DaysAR:           NewDistribution(days),
		DenialRate:       NewDistribution(denial),
	}
}

// Print writes the aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Sites                : %d\n", m.Sites)
	fmt.Fprintf(w, "Site-category pairs  : %d\n", m.Pairs)
	fmt.Fprintf(w, "Contracts            : %d\n", m.Contracts)
	fmt.Fprintf(w, "Switches             : %d\n", m.Switches)
	fmt.Fprintf(w, "Suppressed switches  : %d\n", m.Suppressed)
	fmt.Fprintf(w, "Annual switch rate   : %.2f%%\n", m.AnnualSwitchRate*100)
	if m.DaysAR.Count > 0 {
		fmt.Fprintf(w, "Days in A/R          : mean %.2f, p50 %.2f, p95 %.2f, range [%.2f, %.2f]\n",
			m.DaysAR.Mean, m.DaysAR.P50, m.DaysAR.P95, m.DaysAR.Min, m.DaysAR.Max)
		fmt.Fprintf(w, "Denial rate          : mean %.4f, p50 %.4f, p95 %.4f, range [%.4f, %.4f]\n",
			m.DenialRate.Mean, m.DenialRate.P50, m.DenialRate.P95, m.DenialRate.Min, m.DenialRate.Max)
	}
}
