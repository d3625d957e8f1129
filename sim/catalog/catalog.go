// Package catalog holds the immutable site and vendor attribute tables and the
// category integration rule table consumed by the simulation engine.
// This package has no dependencies on sim/ and stores pure input data.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Category is one of the fixed vendor categories a site contracts for.
type Category string

const (
	CategoryClearinghouse Category = "Clearinghouse"
	CategoryITMSP         Category = "IT_MSP"
	CategoryLab           Category = "Lab"
	CategoryRCM           Category = "RCM"
	CategoryScheduling    Category = "Scheduling"
	CategorySupplies      Category = "Supplies"
	CategoryTelephony     Category = "Telephony"
)

// validCategories is the enumerated category set.
var validCategories = map[Category]bool{
	CategoryClearinghouse: true,
	CategoryITMSP:         true,
	CategoryLab:           true,
	CategoryRCM:           true,
	CategoryScheduling:    true,
	CategorySupplies:      true,
	CategoryTelephony:     true,
}

// AllCategories returns the enumerated categories in sorted order.
func AllCategories() []Category {
	out := make([]Category, 0, len(validCategories))
	for c := range validCategories {
		out = append(out, c)
	}
	SortCategories(out)
	return out
}

// IsValidCategory reports whether name is one of the enumerated categories.
func IsValidCategory(name string) bool {
	return validCategories[Category(name)]
}

// SortCategories sorts categories lexically in place.
func SortCategories(cs []Category) {
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
}

// Site is a client practice. Immutable after creation.
type Site struct {
	ID            string
	Region        string
	EHR           string
	JoinDate      time.Time
	AnnualRevenue float64
}

// Vendor is a supplier in exactly one category. Tier 3 is the top tier.
type Vendor struct {
	ID           string
	Name         string
	Category     Category
	Tier         int
	MonthlyPrice float64
}

const (
	MinTier = 1
	MaxTier = 3
)

// Catalog bundles the site and vendor tables.
type Catalog struct {
	Sites   []Site
	Vendors []Vendor
}

// Validate checks that the catalog is non-empty and that every record is well formed.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	if len(c.Sites) == 0 {
		return fmt.Errorf("site catalog is empty")
	}
	if len(c.Vendors) == 0 {
		return fmt.Errorf("vendor catalog is empty")
	}
	seenSites := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		prefix := fmt.Sprintf("sites[%d]", i)
		if s.ID == "" {
			return fmt.Errorf("%s: site_id must not be empty", prefix)
		}
		if seenSites[s.ID] {
			return fmt.Errorf("%s: duplicate site_id %q", prefix, s.ID)
		}
		seenSites[s.ID] = true
		if s.EHR == "" {
			return fmt.Errorf("%s (%s): ehr_system must not be empty", prefix, s.ID)
		}
		if math.IsNaN(s.AnnualRevenue) || math.IsInf(s.AnnualRevenue, 0) || s.AnnualRevenue < 0 {
			return fmt.Errorf("%s (%s): annual_revenue must be a finite non-negative number, got %f", prefix, s.ID, s.AnnualRevenue)
		}
	}
	seenVendors := make(map[string]bool, len(c.Vendors))
	for i, v := range c.Vendors {
		prefix := fmt.Sprintf("vendors[%d]", i)
		if v.ID == "" {
			return fmt.Errorf("%s: vendor_id must not be empty", prefix)
		}
		if seenVendors[v.ID] {
			return fmt.Errorf("%s: duplicate vendor_id %q", prefix, v.ID)
		}
		seenVendors[v.ID] = true
		if !validCategories[v.Category] {
			return fmt.Errorf("%s (%s): unknown category %q", prefix, v.ID, v.Category)
		}
		if v.Tier < MinTier || v.Tier > MaxTier {
			return fmt.Errorf("%s (%s): tier must be in [%d, %d], got %d", prefix, v.ID, MinTier, MaxTier, v.Tier)
		}
		if math.IsNaN(v.MonthlyPrice) || math.IsInf(v.MonthlyPrice, 0) || v.MonthlyPrice < 0 {
			return fmt.Errorf("%s (%s): monthly_price must be a finite non-negative number, got %f", prefix, v.ID, v.MonthlyPrice)
		}
	}
	return nil
}

// VendorsByCategory groups vendors by category, each group sorted by vendor ID.
func (c *Catalog) VendorsByCategory() map[Category][]Vendor {
	out := make(map[Category][]Vendor)
	for _, v := range c.Vendors {
		out[v.Category] = append(out[v.Category], v)
	}
	for cat := range out {
		vs := out[cat]
		sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
	}
	return out
}

// VendorIndex maps vendor ID to vendor.
func (c *Catalog) VendorIndex() map[string]Vendor {
	out := make(map[string]Vendor, len(c.Vendors))
	for _, v := range c.Vendors {
		out[v.ID] = v
	}
	return out
}

// SortedVendors returns a copy of the vendor table sorted by vendor ID.
func (c *Catalog) SortedVendors() []Vendor {
	out := make([]Vendor, len(c.Vendors))
	copy(out, c.Vendors)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
