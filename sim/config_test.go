package sim

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 72, cfg.Horizon)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestLoadConfig_OverridesOnTopOfDefaults(t *testing.T) {
	// GIVEN a file that overrides only the seed and the base rate
	path := writeConfig(t, "seed: 7\nswitching:\n  base_monthly_rate: 0.02\n")

	// WHEN it is loaded
	cfg, err := LoadConfig(path)

	// THEN the overridden keys change and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 0.02, cfg.Switching.BaseMonthlyRate)
	assert.Equal(t, 72, cfg.Horizon)
	assert.Equal(t, []float64{1.6, 1.0, 0.5}, cfg.Switching.IntegrationMultipliers)
}

func TestLoadConfig_UnknownField_Rejected(t *testing.T) {
	path := writeConfig(t, "seed: 7\nhorizon: 12\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero horizon", func(c *Config) { c.Horizon = 0 }, "horizon_months"},
		{"bad start date", func(c *Config) { c.StartDate = "01/2019" }, "start_date"},
		{"mid-month start date", func(c *Config) { c.StartDate = "2019-01-31" }, "start_date"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"all-zero selection weights", func(c *Config) { c.Selection = SelectionWeights{} }, "selection"},
		{"base rate above one", func(c *Config) { c.Switching.BaseMonthlyRate = 1.5 }, "switching.base_monthly_rate"},
		{"integration multipliers not decreasing", func(c *Config) { c.Switching.IntegrationMultipliers = []float64{1, 1, 0.5} }, "switching.integration_multipliers"},
		{"integration multipliers wrong length", func(c *Config) { c.Switching.IntegrationMultipliers = []float64{1, 0.5} }, "switching.integration_multipliers"},
		{"fatigue length mismatch", func(c *Config) { c.Switching.FatigueMultipliers = []float64{0.5, 1} }, "switching.fatigue_multipliers"},
		{"fatigue decreasing", func(c *Config) { c.Switching.FatigueMultipliers = []float64{1, 0.5, 0.2} }, "switching.fatigue_multipliers"},
		{"longest tenure still suppressed", func(c *Config) { c.Switching.FatigueMultipliers = []float64{0.15, 0.5, 0.9} }, "switching.fatigue_multipliers"},
		{"fatigue boundaries unordered", func(c *Config) { c.Switching.FatigueBoundaries = []int{24, 12} }, "switching.fatigue_boundaries"},
		{"negative site std dev", func(c *Config) { c.KPI.DaysAR.SiteStdDev = -1 }, "kpi.days_ar"},
		{"inverted clamp", func(c *Config) { c.KPI.DenialRate.Min = 0.5 }, "kpi.denial_rate"},
		{"tier effects not favorable", func(c *Config) { c.KPI.DaysAR.TierEffects = []float64{0, 1, 2} }, "kpi.days_ar.tier_effects"},
		{"full bonus not above partial", func(c *Config) { c.KPI.DaysAR.IntegrationBonus = []float64{0, -2, -1} }, "kpi.days_ar.integration_bonus"},
		{"no linked categories", func(c *Config) { c.KPI.LinkedCategories = nil }, "kpi.linked_categories"},
		{"unknown linked category", func(c *Config) {
			c.KPI.LinkedCategories = []LinkedCategory{{Category: "Payroll", EffectMultiplier: 1}}
		}, "kpi.linked_categories[0]"},
		{"duplicate linked category", func(c *Config) {
			c.KPI.LinkedCategories = []LinkedCategory{{Category: catalog.CategoryRCM, EffectMultiplier: 1}, {Category: catalog.CategoryRCM, EffectMultiplier: 2}}
		}, "kpi.linked_categories[1]"},
		{"fiscal start month out of range", func(c *Config) { c.KPI.FiscalYearStartMonth = 13 }, "kpi.fiscal_year_start_month"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a default config with one invalid coefficient
			cfg := DefaultConfig()
			tt.mutate(cfg)

			// WHEN it is validated
			err := cfg.Validate()

			// THEN a ConfigurationError names the offending field
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	assert.Equal(t, 1, cfg.EffectiveWorkers())
	cfg.Workers = 8
	assert.Equal(t, 8, cfg.EffectiveWorkers())
}

func TestConfig_MonthDate(t *testing.T) {
	cfg := DefaultConfig()
	start, err := cfg.Start()
	require.NoError(t, err)
	d := cfg.MonthDate(start, 13)
	assert.Equal(t, 2020, d.Year())
	assert.Equal(t, 2, int(d.Month()))
	assert.Equal(t, 1, d.Day())
}

func TestMonthDate_MonthEndStart_EveryMonthPresent(t *testing.T) {
	// GIVEN a start on the last day of a 31-day month
	start := time.Date(2019, time.January, 31, 0, 0, 0, 0, time.UTC)

	// WHEN month dates are built for the first four indices
	// THEN each is the first of consecutive calendar months, February included
	want := []time.Month{time.January, time.February, time.March, time.April}
	for m, month := range want {
		d := monthDate(start, m)
		assert.Equal(t, month, d.Month(), "month index %d", m)
		assert.Equal(t, 1, d.Day(), "month index %d", m)
		assert.Equal(t, 2019, d.Year(), "month index %d", m)
	}
}

func TestMetricConfigValidate_SeveralInvalid_ReportsSameField(t *testing.T) {
	// GIVEN a metric config with every scalar field non-finite
	m := DefaultConfig().KPI.DaysAR
	m.Baseline = math.NaN()
	m.SiteStdDev = math.Inf(1)
	m.NoiseStdDev = math.NaN()
	m.Min = math.Inf(-1)
	m.Max = math.NaN()

	// WHEN it is validated repeatedly
	// THEN the first field in declaration order is reported every time
	for i := 0; i < 20; i++ {
		var cfgErr *ConfigurationError
		require.True(t, errors.As(m.validate("kpi.days_ar"), &cfgErr))
		assert.Equal(t, "kpi.days_ar.baseline", cfgErr.Field)
	}
}
