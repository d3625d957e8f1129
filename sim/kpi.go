package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// KpiRecord holds the synthesized metrics of one site for one month.
type KpiRecord struct {
	SiteID     string
	Month      int
	Date       time.Time
	DaysAR     float64
	DenialRate float64
}

// Seasonality returns the days-in-A/R seasonal term for a calendar date. It is a
// 12-month cosine peaking equally in the last month of the fiscal year and the
// first month of the next.
func (k KPIConfig) Seasonality(date time.Time) float64 {
	pos := (int(date.Month())-k.FiscalYearStartMonth+12)%12 + 1 // 1..12 within the fiscal year
	return k.SeasonalityAmplitude * math.Cos(2*math.Pi*(float64(pos)-0.5)/12)
}

// VendorEffect is the tier effect of a vendor in a linked category, scaled by
// that category's multiplier.
func (m MetricConfig) VendorEffect(tier int, multiplier float64) float64 {
	i := tier - 1
	if i < 0 {
		i = 0
	}
	if i >= len(m.TierEffects) {
		i = len(m.TierEffects) - 1
	}
	return m.TierEffects[i] * multiplier
}

// Bonus returns the integration bonus for a level.
func (m MetricConfig) Bonus(level IntegrationLevel) float64 {
	i := int(level)
	if i < 0 || i >= len(m.IntegrationBonus) {
		return 0
	}
	return m.IntegrationBonus[i]
}

// Clamp bounds v to the metric's configured range.
func (m MetricConfig) Clamp(v float64) float64 {
	return clamp(v, m.Min, m.Max)
}

// primaryLinked returns the linked category with the largest multiplier: the one
// whose integration quality drives the integration bonus. Ties keep the first.
func (k KPIConfig) primaryLinked() LinkedCategory {
	best := k.LinkedCategories[0]
	for _, lc := range k.LinkedCategories[1:] {
		if lc.EffectMultiplier > best.EffectMultiplier {
			best = lc
		}
	}
	return best
}

// SynthesizeKPIs emits one KpiRecord per (site, month), ordered by site then month.
//
// Each site draws from its own KPI stream: a days-in-A/R offset and a denial-rate
// offset first, then per month one days noise and one denial noise.
func SynthesizeKPIs(ctx context.Context, in Inputs, cfg *Config, integrations *IntegrationTable, history []Contract) ([]KpiRecord, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, &ConfigurationError{Field: "start_date", Err: err}
	}
	vendors := in.Catalog.VendorIndex()
	monthly, err := monthlyVendors(history, cfg.KPI.LinkedCategories, cfg.Horizon)
	if err != nil {
		return nil, err
	}

	sites := in.Catalog.Sites
	perSite := make([][]KpiRecord, len(sites))
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.EffectiveWorkers())
	for i := range sites {
		i := i // per-iteration copy for the goroutine (go.mod targets Go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := synthesizeSite(cfg, start, sites[i], monthly[sites[i].ID], vendors, integrations, rng)
			if err != nil {
				return err
			}
			perSite[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]KpiRecord, 0, len(sites)*cfg.Horizon)
	for _, recs := range perSite {
		out = append(out, recs...)
	}
	return out, nil
}

func synthesizeSite(cfg *Config, start time.Time, site catalog.Site, byCat map[catalog.Category][]string,
	vendors map[string]catalog.Vendor, integrations *IntegrationTable, rng *PartitionedRNG) ([]KpiRecord, error) {
	k := cfg.KPI
	stream := rng.ForSubsystem(SubsystemSite(SubsystemKPI, site.ID))
	daysBase := k.DaysAR.Baseline + k.DaysAR.RegionOffsets[site.Region] + stream.NormFloat64()*k.DaysAR.SiteStdDev
	denialBase := k.DenialRate.Baseline + k.DenialRate.RegionOffsets[site.Region] + stream.NormFloat64()*k.DenialRate.SiteStdDev
	primary := k.primaryLinked()

	recs := make([]KpiRecord, 0, cfg.Horizon)
	for m := 0; m < cfg.Horizon; m++ {
		date := cfg.MonthDate(start, m)
		days, denial := daysBase, denialBase

		for _, lc := range k.LinkedCategories {
			ids := byCat[lc.Category]
			if len(ids) != cfg.Horizon || ids[m] == "" {
				return nil, &DataIntegrityError{SiteID: site.ID, Category: lc.Category, Tick: m, Reason: "no active contract for KPI month"}
			}
			v, ok := vendors[ids[m]]
			if !ok {
				return nil, fmt.Errorf("kpi: contract references unknown vendor %q", ids[m])
			}
			days += k.DaysAR.VendorEffect(v.Tier, lc.EffectMultiplier)
			denial += k.DenialRate.VendorEffect(v.Tier, lc.EffectMultiplier)
			if lc.Category == primary.Category {
				level, _ := integrations.Level(site.ID, v.ID)
				days += k.DaysAR.Bonus(level)
				denial += k.DenialRate.Bonus(level)
			}
		}
		days += k.Seasonality(date)
		days += stream.NormFloat64() * k.DaysAR.NoiseStdDev
		denial += stream.NormFloat64() * k.DenialRate.NoiseStdDev

		recs = append(recs, KpiRecord{
			SiteID:     site.ID,
			Month:      m,
			Date:       date,
			DaysAR:     k.DaysAR.Clamp(days),
			DenialRate: k.DenialRate.Clamp(denial),
		})
	}
	return recs, nil
}

// monthlyVendors expands the history of the linked categories into
// site -> category -> vendor ID per month.
func monthlyVendors(history []Contract, linked []LinkedCategory, horizon int) (map[string]map[catalog.Category][]string, error) {
	want := make(map[catalog.Category]bool, len(linked))
	for _, lc := range linked {
		want[lc.Category] = true
	}
	out := make(map[string]map[catalog.Category][]string)
	for _, c := range history {
		if !want[c.Category] {
			continue
		}
		byCat, ok := out[c.SiteID]
		if !ok {
			byCat = make(map[catalog.Category][]string)
			out[c.SiteID] = byCat
		}
		months, ok := byCat[c.Category]
		if !ok {
			months = make([]string, horizon)
			byCat[c.Category] = months
		}
		end := horizon - 1
		if c.EndMonth != nil {
			end = *c.EndMonth
		}
		for m := c.StartMonth; m <= end && m < horizon; m++ {
			if months[m] != "" {
				return nil, &DataIntegrityError{SiteID: c.SiteID, Category: c.Category, Tick: m, Reason: "overlapping contracts"}
			}
			months[m] = c.VendorID
		}
	}
	return out, nil
}
