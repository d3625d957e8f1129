package sim

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
	"github.com/ges257/pe-rollup-intelligence-system/sim/internal/testutil"
	"github.com/ges257/pe-rollup-intelligence-system/sim/trace"
)

func runDemo(t *testing.T, seed int64, workers int) *Result {
	t.Helper()
	cat, rules, err := catalog.Generate(seed, 100)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Seed = seed
	cfg.Workers = workers
	res, err := Run(testContext(t), Inputs{Catalog: cat, Rules: rules}, cfg, trace.TraceConfig{Level: trace.TraceLevelDecisions})
	require.NoError(t, err)
	return res
}

func TestRun_DemoScenario_TableSizes(t *testing.T) {
	// GIVEN 100 sites, 20 vendors over 7 categories and a 72-month horizon
	// WHEN the full pipeline runs with seed 42
	res := runDemo(t, 42, 4)

	// THEN the output tables have the expected cardinalities
	assert.Len(t, res.Integrations, 100*20)
	assert.Len(t, res.InitialContracts, 700)
	assert.Len(t, res.KPIs, 7200)
	assert.Len(t, res.Categories, 7)
	assert.Equal(t, len(res.Contracts)-700, res.Trace.SwitchCount())
}

func TestRun_DemoScenario_PartitionAndActiveCount(t *testing.T) {
	res := runDemo(t, 42, 4)

	// THEN every pair has exactly one active contract and a gap-free history
	active := map[pairKey]int{}
	for _, c := range res.Contracts {
		if c.Active() {
			active[pairKey{c.SiteID, c.Category}]++
		}
	}
	assert.Len(t, active, 700)
	for k, n := range active {
		assert.Equal(t, 1, n, "%v", k)
	}
	siteIDs := make([]string, 0, 100)
	for _, r := range res.KPIs {
		if r.Month == 0 {
			siteIDs = append(siteIDs, r.SiteID)
		}
	}
	require.NoError(t, ValidateHistory(res.Contracts, siteIDs, res.Categories, res.Horizon))
}

func TestRun_DemoScenario_BenchmarksInRange(t *testing.T) {
	res := runDemo(t, 42, 4)
	m := CollectMetrics(res)

	// THEN the aggregate benchmarks land in plausible bands
	assert.Greater(t, m.AnnualSwitchRate, 0.03)
	assert.Less(t, m.AnnualSwitchRate, 0.25)
	assert.Greater(t, m.DaysAR.Mean, 20.0)
	assert.Less(t, m.DaysAR.Mean, 45.0)
	assert.Greater(t, m.DenialRate.Mean, 0.02)
	assert.Less(t, m.DenialRate.Mean, 0.12)
}

func TestRun_Deterministic_WorkerCountIndependent(t *testing.T) {
	// GIVEN the same inputs run with 1 and 8 workers
	a := runDemo(t, 42, 1)
	b := runDemo(t, 42, 8)

	// THEN every output table is identical
	assert.Equal(t, a.Integrations, b.Integrations)
	assert.Equal(t, a.InitialContracts, b.InitialContracts)
	assert.Equal(t, a.Contracts, b.Contracts)
	assert.Equal(t, a.KPIs, b.KPIs)
	assert.Equal(t, a.Trace.Switches, b.Trace.Switches)
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	a := runDemo(t, 42, 4)
	b := runDemo(t, 7, 4)
	assert.NotEqual(t, a.KPIs, b.KPIs)
	assert.NotEqual(t, a.Contracts, b.Contracts)
}

func TestRun_InvalidConfig_ConfigurationErrorBeforeSimulation(t *testing.T) {
	cat, rules := testutil.DemoCatalog(5)
	cfg := DefaultConfig()
	cfg.Switching.IntegrationMultipliers = []float64{0.5, 1.0, 1.6}

	res, err := Run(testContext(t), Inputs{Catalog: cat, Rules: rules}, cfg, trace.TraceConfig{})

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
	assert.Nil(t, res)
}

func TestRun_InvalidCatalog_ConfigurationError(t *testing.T) {
	cat, rules := testutil.DemoCatalog(5)
	cat.Vendors[0].Tier = 9

	_, err := Run(testContext(t), Inputs{Catalog: cat, Rules: rules}, DefaultConfig(), trace.TraceConfig{})

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "catalog", cfgErr.Field)
}

func TestRun_LinkedCategoryNotSimulated_ConfigurationError(t *testing.T) {
	cat, rules := testutil.SingleVendorCatalog(3, catalog.CategoryLab)

	_, err := Run(testContext(t), Inputs{Catalog: cat, Rules: rules}, DefaultConfig(), trace.TraceConfig{})

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "kpi.linked_categories", cfgErr.Field)
}

func TestRun_CanceledContext(t *testing.T) {
	cat, rules := testutil.DemoCatalog(5)
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := Run(ctx, Inputs{Catalog: cat, Rules: rules}, DefaultConfig(), trace.TraceConfig{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_Print(t *testing.T) {
	res := runDemo(t, 42, 4)
	var buf bytes.Buffer
	CollectMetrics(res).Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Site-category pairs  : 700")
	assert.Contains(t, out, "Days in A/R")
}
