package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

func endedContract(site, vendor string, start, end int) Contract {
	e := end
	return Contract{SiteID: site, Category: catalog.CategoryRCM, VendorID: vendor, StartMonth: start, EndMonth: &e}
}

func openContract(site, vendor string, start int) Contract {
	return Contract{SiteID: site, Category: catalog.CategoryRCM, VendorID: vendor, StartMonth: start}
}

func TestValidateHistory(t *testing.T) {
	cats := []catalog.Category{catalog.CategoryRCM}
	tests := []struct {
		name    string
		history []Contract
		reason  string
	}{
		{"valid partition", []Contract{endedContract("S1", "V01", 0, 4), openContract("S1", "V02", 5)}, ""},
		{"single open contract", []Contract{openContract("S1", "V01", 0)}, ""},
		{"overlap", []Contract{endedContract("S1", "V01", 0, 4), openContract("S1", "V02", 4)}, "overlapping contracts"},
		{"gap", []Contract{endedContract("S1", "V01", 0, 4), openContract("S1", "V02", 6)}, "gap between contracts"},
		{"two active", []Contract{openContract("S1", "V01", 0), openContract("S1", "V02", 3)}, "active contract is not the last contract"},
		{"no active", []Contract{endedContract("S1", "V01", 0, 11)}, "last contract is closed; expected exactly one active contract"},
		{"late first", []Contract{openContract("S1", "V01", 1)}, "first contract does not start at month 0"},
		{"missing pair", nil, "no contracts"},
		{"ends before start", []Contract{endedContract("S1", "V01", 0, 0), endedContract("S1", "V02", 1, 0), openContract("S1", "V03", 1)}, "contract ends before it starts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN a history for one pair over 12 months is validated
			err := ValidateHistory(tt.history, []string{"S1"}, cats, 12)

			// THEN only broken partitions fail, with the matching reason
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var diErr *DataIntegrityError
			require.True(t, errors.As(err, &diErr), "want DataIntegrityError, got %v", err)
			assert.Equal(t, tt.reason, diErr.Reason)
			assert.Equal(t, "S1", diErr.SiteID)
		})
	}
}

func TestValidateHistory_UnexpectedPair(t *testing.T) {
	history := []Contract{openContract("S1", "V01", 0), openContract("S9", "V01", 0)}
	err := ValidateHistory(history, []string{"S1"}, []catalog.Category{catalog.CategoryRCM}, 12)

	var diErr *DataIntegrityError
	require.True(t, errors.As(err, &diErr))
	assert.Equal(t, "S9", diErr.SiteID)
	assert.Equal(t, -1, diErr.Tick)
}
