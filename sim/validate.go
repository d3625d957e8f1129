package sim

import (
	"sort"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

type pairKey struct {
	siteID   string
	category catalog.Category
}

// ValidateHistory checks the partition invariant: for every (site, category)
// the contracts ordered by start cover months [0, horizon) with no gap and no
// overlap, and exactly one (the last) has no end. Every expected pair must be
// present. The first violation is returned as a *DataIntegrityError.
func ValidateHistory(history []Contract, siteIDs []string, categories []catalog.Category, horizon int) error {
	byPair := make(map[pairKey][]Contract)
	for _, c := range history {
		k := pairKey{c.SiteID, c.Category}
		byPair[k] = append(byPair[k], c)
	}
	expected := make(map[pairKey]bool, len(siteIDs)*len(categories))
	for _, s := range siteIDs {
		for _, cat := range categories {
			k := pairKey{s, cat}
			expected[k] = true
			if err := validatePair(s, cat, byPair[k], horizon); err != nil {
				return err
			}
		}
	}
	for _, c := range history {
		if !expected[pairKey{c.SiteID, c.Category}] {
			return &DataIntegrityError{SiteID: c.SiteID, Category: c.Category, Tick: -1, Reason: "contract for unexpected (site, category)"}
		}
	}
	return nil
}

func validatePair(siteID string, cat catalog.Category, contracts []Contract, horizon int) error {
	fail := func(tick int, reason string) error {
		return &DataIntegrityError{SiteID: siteID, Category: cat, Tick: tick, Reason: reason}
	}
	if len(contracts) == 0 {
		return fail(-1, "no contracts")
	}
	sorted := make([]Contract, len(contracts))
	copy(sorted, contracts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMonth < sorted[j].StartMonth })

	if sorted[0].StartMonth != 0 {
		return fail(sorted[0].StartMonth, "first contract does not start at month 0")
	}
	for i, c := range sorted {
		last := i == len(sorted)-1
		if c.EndMonth == nil {
			if !last {
				return fail(c.StartMonth, "active contract is not the last contract")
			}
			if c.StartMonth >= horizon {
				return fail(c.StartMonth, "active contract starts after the horizon")
			}
			continue
		}
		if last {
			return fail(*c.EndMonth, "last contract is closed; expected exactly one active contract")
		}
		if *c.EndMonth < c.StartMonth {
			return fail(*c.EndMonth, "contract ends before it starts")
		}
		next := sorted[i+1]
		switch {
		case next.StartMonth <= *c.EndMonth:
			return fail(next.StartMonth, "overlapping contracts")
		case next.StartMonth > *c.EndMonth+1:
			return fail(*c.EndMonth+1, "gap between contracts")
		}
	}
	return nil
}
