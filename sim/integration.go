package sim

import (
	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// IntegrationLevel scores how tightly a vendor's system syncs with a site's EHR.
type IntegrationLevel int

const (
	IntegrationNone    IntegrationLevel = 0 // manual
	IntegrationPartial IntegrationLevel = 1 // file-based
	IntegrationFull    IntegrationLevel = 2 // real-time API
)

// IntegrationRecord is one (site, vendor) assignment.
type IntegrationRecord struct {
	SiteID   string
	VendorID string
	Category catalog.Category
	Level    IntegrationLevel
}

type sitePair struct {
	siteID   string
	vendorID string
}

// IntegrationTable is the immutable lookup produced by AssignIntegrations.
// It is shared read-only by every later component.
type IntegrationTable struct {
	records []IntegrationRecord
	index   map[sitePair]int
}

// Level returns the level for (site, vendor). ok is false for unknown pairs.
func (t *IntegrationTable) Level(siteID, vendorID string) (IntegrationLevel, bool) {
	i, ok := t.index[sitePair{siteID, vendorID}]
	if !ok {
		return IntegrationNone, false
	}
	return t.records[i].Level, true
}

// Records returns a copy of all records ordered by site (catalog order) then vendor ID.
func (t *IntegrationTable) Records() []IntegrationRecord {
	out := make([]IntegrationRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of records.
func (t *IntegrationTable) Len() int { return len(t.records) }

// AssignIntegrations produces exactly one IntegrationRecord per site×vendor pair.
//
// Fixed categories get the rule's constant. Variable categories draw one uniform
// per vendor (ascending vendor ID) from the site's integration stream; the draw is
// consumed even for vendors without a documented claim, which then get level 0.
func AssignIntegrations(cat *catalog.Catalog, rules *catalog.RuleTable, key SimulationKey) (*IntegrationTable, error) {
	vendors := cat.SortedVendors()
	for _, v := range vendors {
		if _, ok := rules.Categories[v.Category]; !ok {
			return nil, configErrorf("rules.categories", "no integration rule for category %q (vendor %s)", v.Category, v.ID)
		}
	}
	facts := rules.FactIndex()
	rng := NewPartitionedRNG(key)

	t := &IntegrationTable{
		records: make([]IntegrationRecord, 0, len(cat.Sites)*len(vendors)),
		index:   make(map[sitePair]int, len(cat.Sites)*len(vendors)),
	}
	for _, site := range cat.Sites {
		stream := rng.ForSubsystem(SubsystemSite(SubsystemIntegration, site.ID))
		for _, v := range vendors {
			rule := rules.Categories[v.Category]
			var level IntegrationLevel
			switch rule.Type {
			case catalog.IntegrationFixed:
				level = IntegrationLevel(rule.Level)
			default:
				level = drawVariableLevel(rule, facts[v.ID], v, site, stream.Float64())
			}
			t.index[sitePair{site.ID, v.ID}] = len(t.records)
			t.records = append(t.records, IntegrationRecord{
				SiteID:   site.ID,
				VendorID: v.ID,
				Category: v.Category,
				Level:    level,
			})
		}
	}
	return t, nil
}

// FullProbability is the chance a claiming vendor integrates fully with the site.
func FullProbability(rule catalog.CategoryRule, fact catalog.VendorFact, v catalog.Vendor, site catalog.Site) float64 {
	p := rule.BaseFull
	if v.Tier == catalog.MaxTier {
		p += rule.TopTierBonus
	}
	if fact.AffiliatedEHR != "" && fact.AffiliatedEHR == site.EHR && rule.AffiliatedFull > p {
		p = rule.AffiliatedFull
	}
	return clamp(p, 0, 1)
}

func drawVariableLevel(rule catalog.CategoryRule, fact catalog.VendorFact, v catalog.Vendor, site catalog.Site, u float64) IntegrationLevel {
	if !fact.SupportsEHR(site.EHR) {
		return IntegrationNone
	}
	pFull := FullProbability(rule, fact, v, site)
	switch {
	case u < pFull:
		return IntegrationFull
	case u < pFull+rule.PartialShare*(1-pFull):
		return IntegrationPartial
	default:
		return IntegrationNone
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
