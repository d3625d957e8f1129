package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// contractNamespace scopes the name-based contract UUIDs.
var contractNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:rollup-sim:contract"))

// Contract is one vendor engagement for a (site, category). EndMonth and EndDate
// are nil while the contract is active.
type Contract struct {
	ID         string
	SiteID     string
	Category   catalog.Category
	VendorID   string
	StartMonth int
	EndMonth   *int
	StartDate  time.Time
	EndDate    *time.Time
}

// Active reports whether the contract has no end.
func (c Contract) Active() bool { return c.EndMonth == nil }

// Covers reports whether the contract is in force during month m.
func (c Contract) Covers(m int) bool {
	return m >= c.StartMonth && (c.EndMonth == nil || m <= *c.EndMonth)
}

// ContractID returns the deterministic identifier of the seq-th contract of a pair.
func ContractID(siteID string, category catalog.Category, seq int) string {
	name := fmt.Sprintf("%s/%s/%d", siteID, category, seq)
	return uuid.NewSHA1(contractNamespace, []byte(name)).String()
}

// contractLedger is the ordered contract list of one (site, category). It
// enforces at most one open contract and close-before-open.
type contractLedger struct {
	siteID    string
	category  catalog.Category
	start     time.Time
	contracts []Contract
	openIdx   int // -1 when no contract is open
}

func newContractLedger(siteID string, category catalog.Category, start time.Time) *contractLedger {
	return &contractLedger{siteID: siteID, category: category, start: start, openIdx: -1}
}

func (l *contractLedger) integrityError(tick int, format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{SiteID: l.siteID, Category: l.category, Tick: tick, Reason: fmt.Sprintf(format, args...)}
}

// open starts a contract with vendorID at month.
func (l *contractLedger) open(vendorID string, month int) error {
	if l.openIdx >= 0 {
		return l.integrityError(month, "opening contract for %s while %s is still active",
			vendorID, l.contracts[l.openIdx].VendorID)
	}
	if n := len(l.contracts); n > 0 {
		prev := l.contracts[n-1]
		if prev.EndMonth == nil || *prev.EndMonth+1 != month {
			return l.integrityError(month, "successor must start one month after predecessor ends")
		}
	} else if month != 0 {
		return l.integrityError(month, "first contract must start at month 0")
	}
	l.contracts = append(l.contracts, Contract{
		ID:         ContractID(l.siteID, l.category, len(l.contracts)),
		SiteID:     l.siteID,
		Category:   l.category,
		VendorID:   vendorID,
		StartMonth: month,
		StartDate:  monthDate(l.start, month),
	})
	l.openIdx = len(l.contracts) - 1
	return nil
}

// close ends the open contract at month.
func (l *contractLedger) close(month int) error {
	if l.openIdx < 0 {
		return l.integrityError(month, "closing with no active contract")
	}
	c := &l.contracts[l.openIdx]
	if month < c.StartMonth {
		return l.integrityError(month, "contract %s would end before it starts (month %d)", c.ID, c.StartMonth)
	}
	end := month
	endDate := monthDate(l.start, month)
	c.EndMonth = &end
	c.EndDate = &endDate
	l.openIdx = -1
	return nil
}

// activeCount returns the number of open contracts.
func (l *contractLedger) activeCount() int {
	n := 0
	for _, c := range l.contracts {
		if c.Active() {
			n++
		}
	}
	return n
}
