package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Regions and EHR systems used by the demo catalog builder.
var (
	Regions    = []string{"Midwest", "Northeast", "Southeast", "Southwest", "West"}
	EHRSystems = []string{"Dentrix", "Eaglesoft", "OpenDental"}

	// ehrShares is the market share of each entry in EHRSystems.
	ehrShares = []float64{0.5, 0.3, 0.2}
)

// demoVendors is the fixed 20-vendor demo table.
var demoVendors = []Vendor{
	{ID: "V01", Name: "ClaimPilot RCM", Category: CategoryRCM, Tier: 3, MonthlyPrice: 2400},
	{ID: "V02", Name: "Revenue Harbor", Category: CategoryRCM, Tier: 2, MonthlyPrice: 1800},
	{ID: "V03", Name: "BillRight Dental", Category: CategoryRCM, Tier: 2, MonthlyPrice: 1650},
	{ID: "V04", Name: "Northline Collections", Category: CategoryRCM, Tier: 1, MonthlyPrice: 1100},
	{ID: "V05", Name: "EDI Bridge", Category: CategoryClearinghouse, Tier: 3, MonthlyPrice: 450},
	{ID: "V06", Name: "ClaimStream", Category: CategoryClearinghouse, Tier: 2, MonthlyPrice: 320},
	{ID: "V07", Name: "PayerLink", Category: CategoryClearinghouse, Tier: 1, MonthlyPrice: 210},
	{ID: "V08", Name: "Crown Works Lab", Category: CategoryLab, Tier: 3, MonthlyPrice: 5200},
	{ID: "V09", Name: "Precision Dental Lab", Category: CategoryLab, Tier: 2, MonthlyPrice: 4300},
	{ID: "V10", Name: "Smile Ceramics", Category: CategoryLab, Tier: 1, MonthlyPrice: 3600},
	{ID: "V11", Name: "BookSmart", Category: CategoryScheduling, Tier: 3, MonthlyPrice: 390},
	{ID: "V12", Name: "ChairTime", Category: CategoryScheduling, Tier: 2, MonthlyPrice: 280},
	{ID: "V13", Name: "RecallPro", Category: CategoryScheduling, Tier: 1, MonthlyPrice: 190},
	{ID: "V14", Name: "DentalVoice", Category: CategoryTelephony, Tier: 3, MonthlyPrice: 520},
	{ID: "V15", Name: "RingPoint", Category: CategoryTelephony, Tier: 2, MonthlyPrice: 360},
	{ID: "V16", Name: "CallDesk", Category: CategoryTelephony, Tier: 1, MonthlyPrice: 240},
	{ID: "V17", Name: "Molar IT", Category: CategoryITMSP, Tier: 2, MonthlyPrice: 1500},
	{ID: "V18", Name: "Cusp Networks", Category: CategoryITMSP, Tier: 1, MonthlyPrice: 1150},
	{ID: "V19", Name: "Bracket Supply Co", Category: CategorySupplies, Tier: 3, MonthlyPrice: 6100},
	{ID: "V20", Name: "Enamel Goods", Category: CategorySupplies, Tier: 2, MonthlyPrice: 5400},
}

// DemoVendors returns a copy of the fixed demo vendor table.
func DemoVendors() []Vendor {
	out := make([]Vendor, len(demoVendors))
	copy(out, demoVendors)
	return out
}

// DefaultRules returns the rule table matching DemoVendors.
// Clearinghouse and Lab exchange files with every practice; IT and supplies
// never touch the EHR; RCM, scheduling and telephony vary per vendor.
func DefaultRules() *RuleTable {
	return &RuleTable{
		Version: "1",
		Categories: map[Category]CategoryRule{
			CategoryClearinghouse: {Type: IntegrationFixed, Level: 1},
			CategoryLab:           {Type: IntegrationFixed, Level: 1},
			CategoryITMSP:         {Type: IntegrationFixed, Level: 0},
			CategorySupplies:      {Type: IntegrationFixed, Level: 0},
			CategoryRCM:           {Type: IntegrationVariable, BaseFull: 0.35, PartialShare: 0.6, TopTierBonus: 0.25, AffiliatedFull: 0.9},
			CategoryScheduling:    {Type: IntegrationVariable, BaseFull: 0.45, PartialShare: 0.5, TopTierBonus: 0.2, AffiliatedFull: 0.9},
			CategoryTelephony:     {Type: IntegrationVariable, BaseFull: 0.2, PartialShare: 0.5, TopTierBonus: 0.15, AffiliatedFull: 0.8},
		},
		Vendors: []VendorFact{
			{VendorID: "V01", ClaimsIntegration: true, AffiliatedEHR: "Dentrix"},
			{VendorID: "V02", ClaimsIntegration: true},
			{VendorID: "V03", ClaimsIntegration: true, SupportedEHRs: []string{"Dentrix", "Eaglesoft"}},
			{VendorID: "V04", ClaimsIntegration: false},
			{VendorID: "V11", ClaimsIntegration: true, AffiliatedEHR: "Eaglesoft"},
			{VendorID: "V12", ClaimsIntegration: true},
			{VendorID: "V13", ClaimsIntegration: true, SupportedEHRs: []string{"OpenDental"}},
			{VendorID: "V14", ClaimsIntegration: true, AffiliatedEHR: "OpenDental"},
			{VendorID: "V15", ClaimsIntegration: true, SupportedEHRs: []string{"Dentrix"}},
		},
	}
}

// Generate builds a deterministic demo catalog of numSites sites and the
// 20 demo vendors, together with DefaultRules. The same seed and size always
// produce the same tables.
func Generate(seed int64, numSites int) (*Catalog, *RuleTable, error) {
	if numSites <= 0 {
		return nil, nil, fmt.Errorf("site count must be positive, got %d", numSites)
	}
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC)

	sites := make([]Site, 0, numSites)
	for i := 0; i < numSites; i++ {
		region := Regions[rng.Intn(len(Regions))]
		ehr := EHRSystems[pickShare(rng.Float64(), ehrShares)]
		joined := base.AddDate(0, rng.Intn(60), 0)
		// Log-normal revenue centred near $1.4M.
		revenue := math.Round(math.Exp(14.15+0.35*rng.NormFloat64())*100) / 100
		sites = append(sites, Site{
			ID:            fmt.Sprintf("S%03d", i+1),
			Region:        region,
			EHR:           ehr,
			JoinDate:      joined,
			AnnualRevenue: revenue,
		})
	}
	return &Catalog{Sites: sites, Vendors: DemoVendors()}, DefaultRules(), nil
}

func pickShare(u float64, shares []float64) int {
	cum := 0.0
	for i, s := range shares {
		cum += s
		if u < cum {
			return i
		}
	}
	return len(shares) - 1
}
