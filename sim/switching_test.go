package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
	"github.com/ges257/pe-rollup-intelligence-system/sim/internal/testutil"
	"github.com/ges257/pe-rollup-intelligence-system/sim/trace"
)

// alwaysSwitchConfig returns a config under which every evaluated tick fires.
func alwaysSwitchConfig(horizon int) *Config {
	cfg := DefaultConfig()
	cfg.Horizon = horizon
	cfg.Switching.BaseMonthlyRate = 1
	cfg.Switching.FatigueBoundaries = nil
	cfg.Switching.FatigueMultipliers = []float64{1}
	cfg.Switching.IntegrationMultipliers = []float64{3, 2, 1}
	return cfg
}

func runSwitches(t *testing.T, cat *catalog.Catalog, rules *catalog.RuleTable, cfg *Config, tc trace.TraceConfig) ([]Contract, *trace.SimulationTrace) {
	t.Helper()
	require.NoError(t, cfg.Validate())
	in := Inputs{Catalog: cat, Rules: rules}
	require.NoError(t, in.validate())
	integrations, err := AssignIntegrations(cat, rules, NewSimulationKey(cfg.Seed))
	require.NoError(t, err)
	switcher, err := NewSwitchSimulator(in, cfg, integrations, tc)
	require.NoError(t, err)
	history, st, err := switcher.Run(testContext(t))
	require.NoError(t, err)
	return history, st
}

func TestSwitchProbability_DecreasesWithIntegration(t *testing.T) {
	s := DefaultConfig().Switching
	for _, tenure := range []int{0, 12, 30} {
		p0 := s.SwitchProbability(IntegrationNone, tenure)
		p1 := s.SwitchProbability(IntegrationPartial, tenure)
		p2 := s.SwitchProbability(IntegrationFull, tenure)
		assert.Greater(t, p0, p1, "tenure %d", tenure)
		assert.Greater(t, p1, p2, "tenure %d", tenure)
	}
}

func TestFatigueMultiplier_NonDecreasingAndBounded(t *testing.T) {
	s := DefaultConfig().Switching
	prev := 0.0
	for tenure := 0; tenure <= 120; tenure++ {
		m := s.FatigueMultiplier(tenure)
		assert.GreaterOrEqual(t, m, prev, "tenure %d", tenure)
		assert.LessOrEqual(t, m, 1.0)
		prev = m
	}
	assert.Equal(t, 0.15, s.FatigueMultiplier(11))
	assert.Equal(t, 0.5, s.FatigueMultiplier(12))
	assert.Equal(t, 1.0, s.FatigueMultiplier(24))
}

func TestSwitchProbability_ClampedToOne(t *testing.T) {
	s := alwaysSwitchConfig(12).Switching
	assert.Equal(t, 1.0, s.SwitchProbability(IntegrationNone, 0))
}

func TestSwitchSimulator_PartitionHolds(t *testing.T) {
	// GIVEN an elevated switch rate so most pairs switch several times
	cat, rules := testutil.DemoCatalog(20)
	cfg := DefaultConfig()
	cfg.Switching.BaseMonthlyRate = 0.2

	// WHEN the switch simulation runs
	history, st := runSwitches(t, cat, rules, cfg, trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// THEN the history is a valid partition of the horizon for every pair
	siteIDs := make([]string, len(cat.Sites))
	for i, s := range cat.Sites {
		siteIDs[i] = s.ID
	}
	require.NoError(t, ValidateHistory(history, siteIDs, rules.SortedCategories(), cfg.Horizon))
	assert.Equal(t, len(history)-20*7, st.SwitchCount())
	assert.Len(t, st.Switches, st.SwitchCount())
}

func TestSwitchSimulator_NeverSwitchesToSameVendor(t *testing.T) {
	cat, rules := testutil.DemoCatalog(10)
	cfg := alwaysSwitchConfig(24)

	_, st := runSwitches(t, cat, rules, cfg, trace.TraceConfig{Level: trace.TraceLevelDecisions})

	require.NotEmpty(t, st.Switches)
	for _, r := range st.Switches {
		assert.NotEqual(t, r.FromVendor, r.ToVendor, "%s/%s tick %d", r.SiteID, r.Category, r.Tick)
	}
}

func TestSwitchSimulator_NoSwitchAtFinalTick(t *testing.T) {
	// GIVEN every evaluated tick fires over a 6-month horizon
	cat, rules := testutil.DemoCatalog(4)
	cfg := alwaysSwitchConfig(6)

	// WHEN simulated
	history, st := runSwitches(t, cat, rules, cfg, trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// THEN each pair switches at ticks 0..4 only: 6 one-month contracts, the last open
	assert.Len(t, history, 4*7*6)
	for _, c := range history {
		if c.Active() {
			assert.Equal(t, 5, c.StartMonth)
		} else {
			assert.Equal(t, c.StartMonth, *c.EndMonth)
		}
	}
	for _, r := range st.Switches {
		assert.Less(t, r.Tick, 5)
		assert.Zero(t, r.TenureMonths)
	}
}

func TestSwitchSimulator_SingleVendorSuppressed(t *testing.T) {
	// GIVEN categories with exactly one vendor and a certain switch
	cat, rules := testutil.SingleVendorCatalog(3, catalog.CategoryRCM, catalog.CategoryClearinghouse)
	cfg := alwaysSwitchConfig(10)

	// WHEN simulated
	history, st := runSwitches(t, cat, rules, cfg, trace.TraceConfig{})

	// THEN nothing switches, every fired tick is recorded as suppressed
	assert.Len(t, history, 3*2)
	for _, c := range history {
		assert.True(t, c.Active())
	}
	assert.Zero(t, st.SwitchCount())
	assert.Len(t, st.Suppressed, 3*2*9)
	assert.Equal(t, "single-vendor category", st.Suppressed[0].Reason)
}

func TestSwitchSimulator_DeterministicAcrossWorkerCounts(t *testing.T) {
	cat, rules := testutil.DemoCatalog(30)
	cfg1 := DefaultConfig()
	cfg1.Workers = 1
	cfg8 := DefaultConfig()
	cfg8.Workers = 8

	h1, st1 := runSwitches(t, cat, rules, cfg1, trace.TraceConfig{Level: trace.TraceLevelDecisions})
	h8, st8 := runSwitches(t, cat, rules, cfg8, trace.TraceConfig{Level: trace.TraceLevelDecisions})

	assert.Equal(t, h1, h8)
	assert.Equal(t, st1.Switches, st8.Switches)
}

func TestSwitchSimulator_HigherIntegrationSwitchesLess(t *testing.T) {
	// GIVEN one category whose vendors are all fully integrated, and one with none
	cat, rules := testutil.DemoCatalog(200)
	rules.Categories[catalog.CategoryLab] = catalog.CategoryRule{Type: catalog.IntegrationFixed, Level: 2}
	rules.Categories[catalog.CategoryClearinghouse] = catalog.CategoryRule{Type: catalog.IntegrationFixed, Level: 0}
	cfg := DefaultConfig()
	cfg.Switching.BaseMonthlyRate = 0.05

	// WHEN simulated
	_, st := runSwitches(t, cat, rules, cfg, trace.TraceConfig{})

	// THEN the unintegrated category switches more often
	byCat := trace.Summarize(st, 200*7, cfg.Horizon).SwitchesByCategory
	assert.Greater(t, byCat[string(catalog.CategoryClearinghouse)], byCat[string(catalog.CategoryLab)])
}
