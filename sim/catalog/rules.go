package catalog

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// IntegrationType says whether a category's integration level is a structural
// constant or drawn per (site, vendor).
type IntegrationType string

const (
	IntegrationFixed    IntegrationType = "fixed"
	IntegrationVariable IntegrationType = "variable"
)

// CategoryRule parameterizes integration assignment for one category.
//
// For fixed categories only Level is read. For variable categories the
// probability of the full level starts at BaseFull, gains TopTierBonus for
// tier-3 vendors and is raised to at least AffiliatedFull when the vendor's
// platform is affiliated with the site's EHR. PartialShare is the share of the
// remaining mass that lands on the partial level.
type CategoryRule struct {
	Type           IntegrationType `yaml:"type"`
	Level          int             `yaml:"level,omitempty"`
	BaseFull       float64         `yaml:"base_full,omitempty"`
	PartialShare   float64         `yaml:"partial_share,omitempty"`
	TopTierBonus   float64         `yaml:"top_tier_bonus,omitempty"`
	AffiliatedFull float64         `yaml:"affiliated_full,omitempty"`
}

// VendorFact is one row of externally researched vendor metadata.
type VendorFact struct {
	VendorID          string   `yaml:"vendor_id"`
	ClaimsIntegration bool     `yaml:"claims_integration"`
	SupportedEHRs     []string `yaml:"supported_ehrs,omitempty"` // empty = all EHR systems
	AffiliatedEHR     string   `yaml:"affiliated_ehr,omitempty"`
}

// SupportsEHR reports whether the vendor documents integration with ehr.
func (f VendorFact) SupportsEHR(ehr string) bool {
	if !f.ClaimsIntegration {
		return false
	}
	if len(f.SupportedEHRs) == 0 {
		return true
	}
	for _, e := range f.SupportedEHRs {
		if e == ehr {
			return true
		}
	}
	return false
}

// RuleTable is the static fact table produced by vendor research.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RuleTable struct {
	Version    string                    `yaml:"version"`
	Categories map[Category]CategoryRule `yaml:"categories"`
	Vendors    []VendorFact              `yaml:"vendors"`
}

// LoadRules reads a YAML rule table. Unrecognized keys (typos) are rejected.
func LoadRules(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule table: %w", err)
	}
	var rt RuleTable
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rt); err != nil {
		return nil, fmt.Errorf("parsing rule table: %w", err)
	}
	return &rt, nil
}

// WriteRules marshals the rule table to a YAML file.
func WriteRules(path string, rt *RuleTable) error {
	data, err := yaml.Marshal(rt)
	if err != nil {
		return fmt.Errorf("marshal rule table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write rule table: %w", err)
	}
	return nil
}

// Validate checks rule parameters and fact rows.
func (rt *RuleTable) Validate() error {
	if rt == nil {
		return fmt.Errorf("rule table is nil")
	}
	if len(rt.Categories) == 0 {
		return fmt.Errorf("rule table has no categories")
	}
	for _, cat := range rt.SortedCategories() {
		r := rt.Categories[cat]
		prefix := fmt.Sprintf("categories.%s", cat)
		if !validCategories[cat] {
			return fmt.Errorf("%s: unknown category", prefix)
		}
		switch r.Type {
		case IntegrationFixed:
			if r.Level < 0 || r.Level > 2 {
				return fmt.Errorf("%s: fixed level must be 0, 1 or 2, got %d", prefix, r.Level)
			}
		case IntegrationVariable:
			for _, f := range []struct {
				name string
				p    float64
			}{
				{"base_full", r.BaseFull},
				{"partial_share", r.PartialShare},
				{"top_tier_bonus", r.TopTierBonus},
				{"affiliated_full", r.AffiliatedFull},
			} {
				if math.IsNaN(f.p) || math.IsInf(f.p, 0) || f.p < 0 || f.p > 1 {
					return fmt.Errorf("%s.%s must be a probability in [0, 1], got %f", prefix, f.name, f.p)
				}
			}
		default:
			return fmt.Errorf("%s: unknown type %q; valid: fixed, variable", prefix, r.Type)
		}
	}
	seen := make(map[string]bool, len(rt.Vendors))
	for i, f := range rt.Vendors {
		if f.VendorID == "" {
			return fmt.Errorf("vendors[%d]: vendor_id must not be empty", i)
		}
		if seen[f.VendorID] {
			return fmt.Errorf("vendors[%d]: duplicate vendor_id %q", i, f.VendorID)
		}
		seen[f.VendorID] = true
	}
	return nil
}

// SortedCategories returns the categories covered by the rule table in sorted order.
func (rt *RuleTable) SortedCategories() []Category {
	out := make([]Category, 0, len(rt.Categories))
	for c := range rt.Categories {
		out = append(out, c)
	}
	SortCategories(out)
	return out
}

// FactIndex maps vendor ID to its fact row.
func (rt *RuleTable) FactIndex() map[string]VendorFact {
	out := make(map[string]VendorFact, len(rt.Vendors))
	for _, f := range rt.Vendors {
		out[f.VendorID] = f
	}
	return out
}
