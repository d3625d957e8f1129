package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

var ledgerStart = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestContractLedger_CloseThenOpenSuccessor(t *testing.T) {
	// GIVEN a ledger with an initial contract
	l := newContractLedger("S001", catalog.CategoryRCM, ledgerStart)
	require.NoError(t, l.open("V01", 0))

	// WHEN it is closed at month 5 and a successor opened at month 6
	require.NoError(t, l.close(5))
	require.NoError(t, l.open("V02", 6))

	// THEN the first contract ends at 5 and the successor is the only active one
	require.Len(t, l.contracts, 2)
	assert.Equal(t, 5, *l.contracts[0].EndMonth)
	assert.Equal(t, time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC), *l.contracts[0].EndDate)
	assert.Equal(t, time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC), l.contracts[1].StartDate)
	assert.Equal(t, 1, l.activeCount())
	assert.True(t, l.contracts[1].Active())
}

func TestContractLedger_DuplicateActive_DataIntegrityError(t *testing.T) {
	l := newContractLedger("S001", catalog.CategoryLab, ledgerStart)
	require.NoError(t, l.open("V08", 0))

	err := l.open("V09", 0)

	var diErr *DataIntegrityError
	require.True(t, errors.As(err, &diErr), "want DataIntegrityError, got %v", err)
	assert.Equal(t, "S001", diErr.SiteID)
	assert.Equal(t, catalog.CategoryLab, diErr.Category)
}

func TestContractLedger_Gap_DataIntegrityError(t *testing.T) {
	l := newContractLedger("S001", catalog.CategoryLab, ledgerStart)
	require.NoError(t, l.open("V08", 0))
	require.NoError(t, l.close(3))

	err := l.open("V09", 5)

	var diErr *DataIntegrityError
	assert.True(t, errors.As(err, &diErr))
}

func TestContractLedger_FirstContractMustStartAtZero(t *testing.T) {
	l := newContractLedger("S001", catalog.CategoryLab, ledgerStart)
	var diErr *DataIntegrityError
	assert.True(t, errors.As(l.open("V08", 2), &diErr))
}

func TestContractLedger_CloseWithoutOpen(t *testing.T) {
	l := newContractLedger("S001", catalog.CategoryLab, ledgerStart)
	assert.Error(t, l.close(0))
}

func TestContract_Covers(t *testing.T) {
	end := 4
	c := Contract{StartMonth: 2, EndMonth: &end}
	assert.False(t, c.Covers(1))
	assert.True(t, c.Covers(2))
	assert.True(t, c.Covers(4))
	assert.False(t, c.Covers(5))
	open := Contract{StartMonth: 5}
	assert.True(t, open.Covers(100))
}

func TestContractID_DeterministicAndDistinct(t *testing.T) {
	a := ContractID("S001", catalog.CategoryRCM, 0)
	assert.Equal(t, a, ContractID("S001", catalog.CategoryRCM, 0))
	assert.NotEqual(t, a, ContractID("S001", catalog.CategoryRCM, 1))
	assert.NotEqual(t, a, ContractID("S002", catalog.CategoryRCM, 0))
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestContractLedger_MonthEndStart_DatesContiguous(t *testing.T) {
	// GIVEN a ledger anchored on January 31
	l := newContractLedger("S001", catalog.CategoryRCM, time.Date(2019, time.January, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, l.open("V01", 0))

	// WHEN contracts switch every month
	for m := 0; m < 3; m++ {
		require.NoError(t, l.close(m))
		require.NoError(t, l.open("V02", m+1))
	}

	// THEN every successor starts exactly one calendar month after its predecessor's end
	for i := 0; i+1 < len(l.contracts); i++ {
		end := *l.contracts[i].EndDate
		assert.Equal(t, end.AddDate(0, 1, 0), l.contracts[i+1].StartDate, "contract %d", i)
		assert.Equal(t, 1, end.Day())
	}
	assert.Equal(t, time.February, l.contracts[1].StartDate.Month())
}
