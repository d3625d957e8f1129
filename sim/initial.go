package sim

import (
	"math/rand"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// BuildInitialContracts selects one active vendor per (site, category) as of the
// horizon start and returns the first contract of every pair, ordered by site
// (catalog order) then category. Each pair consumes exactly one draw: the first
// value of its contract stream. The switch simulator reproduces these contracts
// as the head of every pair's history.
func BuildInitialContracts(in Inputs, cfg *Config, integrations *IntegrationTable) ([]Contract, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, &ConfigurationError{Field: "start_date", Err: err}
	}
	byCat, categories, err := in.vendorPools()
	if err != nil {
		return nil, err
	}
	sel := vendorSelector{weights: cfg.Selection, integrations: integrations}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))

	contracts := make([]Contract, 0, len(in.Catalog.Sites)*len(categories))
	for _, site := range in.Catalog.Sites {
		for _, cat := range categories {
			stream := rng.ForSubsystem(SubsystemPair(site.ID, cat))
			ledger := newContractLedger(site.ID, cat, start)
			if _, err := openInitial(ledger, sel, site, byCat[cat], stream); err != nil {
				return nil, err
			}
			contracts = append(contracts, ledger.contracts[0])
		}
	}
	return contracts, nil
}

// openInitial draws the initial vendor for one pair and opens its first contract.
func openInitial(ledger *contractLedger, sel vendorSelector, site catalog.Site, vendors []catalog.Vendor, stream *rand.Rand) (catalog.Vendor, error) {
	v, ok, err := sel.choose(site.ID, vendors, "", stream.Float64)
	if err != nil {
		return catalog.Vendor{}, err
	}
	if !ok {
		return catalog.Vendor{}, configErrorf("catalog.vendors", "category %q has no eligible vendors", ledger.category)
	}
	if err := ledger.open(v.ID, 0); err != nil {
		return catalog.Vendor{}, err
	}
	return v, nil
}
