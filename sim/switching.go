package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
	"github.com/ges257/pe-rollup-intelligence-system/sim/trace"
)

// IntegrationMultiplier returns the switch-rate multiplier for a level.
// Lower integration yields a strictly larger multiplier.
func (s SwitchConfig) IntegrationMultiplier(level IntegrationLevel) float64 {
	i := int(level)
	if i < 0 {
		i = 0
	}
	if i >= len(s.IntegrationMultipliers) {
		i = len(s.IntegrationMultipliers) - 1
	}
	return s.IntegrationMultipliers[i]
}

// FatigueMultiplier returns the tenure bucket multiplier. Non-decreasing in
// tenure and bounded by the last bucket.
func (s SwitchConfig) FatigueMultiplier(tenureMonths int) float64 {
	for i, b := range s.FatigueBoundaries {
		if tenureMonths < b {
			return s.FatigueMultipliers[i]
		}
	}
	return s.FatigueMultipliers[len(s.FatigueMultipliers)-1]
}

// SwitchProbability is base_monthly_rate * integration * fatigue, clamped to [0, 1].
func (s SwitchConfig) SwitchProbability(level IntegrationLevel, tenureMonths int) float64 {
	return clamp(s.BaseMonthlyRate*s.IntegrationMultiplier(level)*s.FatigueMultiplier(tenureMonths), 0, 1)
}

// activeContract is the per-(site, category) state of the switch state machine.
type activeContract struct {
	vendor       catalog.Vendor
	startMonth   int
	tenureMonths int
}

// siteOutcome is everything one site's state machines produce.
type siteOutcome struct {
	contracts []Contract // category order, then start month
	trace     *trace.SimulationTrace
}

// SwitchSimulator evolves contract state month by month. Its state is created
// fresh by NewSwitchSimulator and owned by one Run call.
type SwitchSimulator struct {
	cfg          *Config
	in           Inputs
	integrations *IntegrationTable
	traceConfig  trace.TraceConfig

	start      time.Time
	rng        *PartitionedRNG
	selector   vendorSelector
	pools      map[catalog.Category][]catalog.Vendor
	categories []catalog.Category

	// active holds one state map per site (indexed like in.Catalog.Sites).
	// Each site's map is touched only by the goroutine simulating that site.
	active []map[catalog.Category]*activeContract
}

// NewSwitchSimulator prepares a simulator. Inputs and config must already be validated.
func NewSwitchSimulator(in Inputs, cfg *Config, integrations *IntegrationTable, tc trace.TraceConfig) (*SwitchSimulator, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, &ConfigurationError{Field: "start_date", Err: err}
	}
	pools, categories, err := in.vendorPools()
	if err != nil {
		return nil, err
	}
	active := make([]map[catalog.Category]*activeContract, len(in.Catalog.Sites))
	for i := range active {
		active[i] = make(map[catalog.Category]*activeContract, len(categories))
	}
	return &SwitchSimulator{
		cfg:          cfg,
		in:           in,
		integrations: integrations,
		traceConfig:  tc,
		start:        start,
		rng:          NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		selector:     vendorSelector{weights: cfg.Selection, integrations: integrations},
		pools:        pools,
		categories:   categories,
		active:       active,
	}, nil
}

// Run simulates every site over the full horizon and returns the complete
// contract history (site order, then category, then start month) and the merged trace.
// Sites run on up to cfg.Workers goroutines; output does not depend on the worker count.
func (s *SwitchSimulator) Run(ctx context.Context) ([]Contract, *trace.SimulationTrace, error) {
	sites := s.in.Catalog.Sites
	outcomes := make([]siteOutcome, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EffectiveWorkers())
	for i := range sites {
		i := i // per-iteration copy for the goroutine (go.mod targets Go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.simulateSite(i)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := trace.NewSimulationTrace(s.traceConfig)
	var history []Contract
	for i := range outcomes {
		history = append(history, outcomes[i].contracts...)
		merged.Merge(outcomes[i].trace)
	}
	return history, merged, nil
}

// simulateSite runs every category state machine of site i.
func (s *SwitchSimulator) simulateSite(i int) (siteOutcome, error) {
	site := s.in.Catalog.Sites[i]
	state := s.active[i]
	out := siteOutcome{trace: trace.NewSimulationTrace(s.traceConfig)}

	for _, cat := range s.categories {
		stream := s.rng.ForSubsystem(SubsystemPair(site.ID, cat))
		ledger := newContractLedger(site.ID, cat, s.start)
		vendors := s.pools[cat]

		if _, exists := state[cat]; exists {
			return siteOutcome{}, ledger.integrityError(0, "duplicate active contract before initial state")
		}
		first, err := openInitial(ledger, s.selector, site, vendors, stream)
		if err != nil {
			return siteOutcome{}, err
		}
		state[cat] = &activeContract{vendor: first}

		for tick := 0; tick < s.cfg.Horizon; tick++ {
			if n := ledger.activeCount(); n != 1 {
				return siteOutcome{}, ledger.integrityError(tick, "%d active contracts, want exactly 1", n)
			}
			ac := state[cat]
			if open := ledger.contracts[ledger.openIdx]; open.VendorID != ac.vendor.ID || open.StartMonth != ac.startMonth {
				return siteOutcome{}, ledger.integrityError(tick, "active state %s@%d disagrees with open contract %s@%d",
					ac.vendor.ID, ac.startMonth, open.VendorID, open.StartMonth)
			}
			// A switch at the final tick would open a contract outside the horizon.
			if tick == s.cfg.Horizon-1 {
				ac.tenureMonths++
				continue
			}
			level, _ := s.integrations.Level(site.ID, ac.vendor.ID)
			p := s.cfg.Switching.SwitchProbability(level, ac.tenureMonths)
			if stream.Float64() >= p {
				ac.tenureMonths++
				continue
			}

			next, ok, err := s.selector.choose(site.ID, vendors, ac.vendor.ID, stream.Float64)
			if err != nil {
				return siteOutcome{}, err
			}
			if !ok {
				logrus.WithFields(logrus.Fields{
					"site": site.ID, "category": cat, "tick": tick, "vendor": ac.vendor.ID,
				}).Warn("switch suppressed: category has no alternative vendor")
				out.trace.RecordSuppressed(trace.SuppressedRecord{
					SiteID: site.ID, Category: string(cat), Tick: tick, VendorID: ac.vendor.ID,
					Reason: "single-vendor category",
				})
				ac.tenureMonths++
				continue
			}

			if err := ledger.close(tick); err != nil {
				return siteOutcome{}, err
			}
			if err := ledger.open(next.ID, tick+1); err != nil {
				return siteOutcome{}, err
			}
			logrus.WithFields(logrus.Fields{
				"site": site.ID, "category": cat, "tick": tick, "from": ac.vendor.ID, "to": next.ID,
			}).Debug("contract switch")
			out.trace.RecordSwitch(trace.SwitchRecord{
				SiteID: site.ID, Category: string(cat), Tick: tick,
				FromVendor: ac.vendor.ID, ToVendor: next.ID,
				Probability: p, TenureMonths: ac.tenureMonths,
			})
			state[cat] = &activeContract{vendor: next, startMonth: tick + 1}
		}
		out.contracts = append(out.contracts, ledger.contracts...)
	}
	return out, nil
}
