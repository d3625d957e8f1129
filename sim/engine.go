package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
	"github.com/ges257/pe-rollup-intelligence-system/sim/trace"
)

// Inputs are the read-only tables loaded before a run.
type Inputs struct {
	Catalog *catalog.Catalog
	Rules   *catalog.RuleTable
}

// validate checks the catalog, the rule table and their cross references.
func (in Inputs) validate() error {
	if err := in.Catalog.Validate(); err != nil {
		return &ConfigurationError{Field: "catalog", Err: err}
	}
	if err := in.Rules.Validate(); err != nil {
		return &ConfigurationError{Field: "rules", Err: err}
	}
	_, _, err := in.vendorPools()
	return err
}

// vendorPools groups vendors by the rule table's categories (sorted). Every rule
// category must have at least one vendor and every vendor category must have a rule.
func (in Inputs) vendorPools() (map[catalog.Category][]catalog.Vendor, []catalog.Category, error) {
	byCat := in.Catalog.VendorsByCategory()
	categories := in.Rules.SortedCategories()
	for _, cat := range categories {
		if len(byCat[cat]) == 0 {
			return nil, nil, configErrorf("catalog.vendors", "category %q has no eligible vendors", cat)
		}
	}
	for cat := range byCat {
		if _, ok := in.Rules.Categories[cat]; !ok {
			return nil, nil, configErrorf("rules.categories", "no integration rule for category %q", cat)
		}
	}
	return byCat, categories, nil
}

// Result holds the four output tables of a run plus its trace.
type Result struct {
	StartDate        time.Time
	Horizon          int
	Categories       []catalog.Category
	Integrations     []IntegrationRecord
	InitialContracts []Contract // snapshot at month 0; every end is nil
	Contracts        []Contract // full history, site then category then start
	KPIs             []KpiRecord
	Trace            *trace.SimulationTrace
}

// Summary returns switch statistics over the run.
func (r *Result) Summary() *trace.TraceSummary {
	pairs := len(r.InitialContracts)
	return trace.Summarize(r.Trace, pairs, r.Horizon)
}

// Run executes the full pipeline: validation, integration assignment, initial
// state, switch simulation, history validation and KPI synthesis. Every output
// is a deterministic function of (cfg, in); cfg.Workers never changes it.
// Configuration problems abort before simulation with a *ConfigurationError;
// partition violations abort with a *DataIntegrityError.
func Run(ctx context.Context, in Inputs, cfg *Config, tc trace.TraceConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	_, categories, _ := in.vendorPools()
	simulated := make(map[catalog.Category]bool, len(categories))
	for _, c := range categories {
		simulated[c] = true
	}
	for _, lc := range cfg.KPI.LinkedCategories {
		if !simulated[lc.Category] {
			return nil, configErrorf("kpi.linked_categories", "category %q is not in the rule table", lc.Category)
		}
	}
	start, _ := cfg.Start()
	key := NewSimulationKey(cfg.Seed)

	logrus.Infof("Starting simulation: seed=%d sites=%d vendors=%d categories=%d horizon=%d months workers=%d",
		cfg.Seed, len(in.Catalog.Sites), len(in.Catalog.Vendors), len(categories), cfg.Horizon, cfg.EffectiveWorkers())

	integrations, err := AssignIntegrations(in.Catalog, in.Rules, key)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Assigned %d integration records", integrations.Len())

	initial, err := BuildInitialContracts(in, cfg, integrations)
	if err != nil {
		return nil, err
	}

	switcher, err := NewSwitchSimulator(in, cfg, integrations, tc)
	if err != nil {
		return nil, err
	}
	history, st, err := switcher.Run(ctx)
	if err != nil {
		return nil, err
	}

	siteIDs := make([]string, len(in.Catalog.Sites))
	for i, s := range in.Catalog.Sites {
		siteIDs[i] = s.ID
	}
	if err := ValidateHistory(history, siteIDs, categories, cfg.Horizon); err != nil {
		return nil, err
	}

	kpis, err := SynthesizeKPIs(ctx, in, cfg, integrations, history)
	if err != nil {
		return nil, err
	}

	if n := len(st.Suppressed); n > 0 {
		logrus.Warnf("%d switch events suppressed in single-vendor categories", n)
	}
	logrus.Infof("Simulation complete: %d contracts, %d switches, %d KPI records",
		len(history), st.SwitchCount(), len(kpis))

	return &Result{
		StartDate:        start,
		Horizon:          cfg.Horizon,
		Categories:       categories,
		Integrations:     integrations.Records(),
		InitialContracts: initial,
		Contracts:        history,
		KPIs:             kpis,
		Trace:            st,
	}, nil
}
