// Package testutil provides shared test fixtures and assertion helpers used
// across sim/ and sim/export/ test packages.
package testutil

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// Sites returns n sites with IDs S001..Snnn, cycling through regions and EHR systems.
func Sites(n int) []catalog.Site {
	sites := make([]catalog.Site, n)
	for i := range sites {
		sites[i] = catalog.Site{
			ID:            fmt.Sprintf("S%03d", i+1),
			Region:        catalog.Regions[i%len(catalog.Regions)],
			EHR:           catalog.EHRSystems[i%len(catalog.EHRSystems)],
			JoinDate:      time.Date(2018, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC),
			AnnualRevenue: 1_500_000 + float64(i)*10_000,
		}
	}
	return sites
}

// DemoCatalog returns n deterministic sites with the 20-vendor demo table and
// the default rule table.
func DemoCatalog(n int) (*catalog.Catalog, *catalog.RuleTable) {
	return &catalog.Catalog{Sites: Sites(n), Vendors: catalog.DemoVendors()}, catalog.DefaultRules()
}

// SingleVendorCatalog returns n sites and one vendor per category in cats, with
// a fixed level-0 rule for every category.
func SingleVendorCatalog(n int, cats ...catalog.Category) (*catalog.Catalog, *catalog.RuleTable) {
	rules := &catalog.RuleTable{Version: "test", Categories: make(map[catalog.Category]catalog.CategoryRule)}
	vendors := make([]catalog.Vendor, 0, len(cats))
	for i, c := range cats {
		vendors = append(vendors, catalog.Vendor{
			ID: fmt.Sprintf("SV%02d", i+1), Name: string(c) + " Only", Category: c, Tier: 2, MonthlyPrice: 500,
		})
		rules.Categories[c] = catalog.CategoryRule{Type: catalog.IntegrationFixed, Level: 0}
	}
	return &catalog.Catalog{Sites: Sites(n), Vendors: vendors}, rules
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
