// Package export writes the four output tables of a run (integrations,
// initial_contracts, contracts, kpis) to Parquet, CSV, SQLite or PostgreSQL.
package export

import (
	"github.com/ges257/pe-rollup-intelligence-system/sim"
)

// Table names, shared by every sink.
const (
	TableIntegrations     = "integrations"
	TableInitialContracts = "initial_contracts"
	TableContracts        = "contracts"
	TableKPIs             = "kpis"
)

// dateLayout formats every date column.
const dateLayout = "2006-01-02"

// IntegrationRow is one (site, vendor) integration level.
type IntegrationRow struct {
	SiteID             string `parquet:"site_id"`
	VendorID           string `parquet:"vendor_id"`
	Category           string `parquet:"category"`
	IntegrationQuality int32  `parquet:"integration_quality"`
}

// ContractRow is one contract. EndDate and EndMonth are null while active.
type ContractRow struct {
	ContractID string  `parquet:"contract_id"`
	SiteID     string  `parquet:"site_id"`
	Category   string  `parquet:"category"`
	VendorID   string  `parquet:"vendor_id"`
	StartDate  string  `parquet:"start_date"`
	EndDate    *string `parquet:"end_date,optional"`
	StartMonth int32   `parquet:"start_month"`
	EndMonth   *int32  `parquet:"end_month,optional"`
}

// KPIRow is one (site, month) KPI record.
type KPIRow struct {
	SiteID     string  `parquet:"site_id"`
	Month      string  `parquet:"month"`
	MonthIndex int32   `parquet:"month_index"`
	DaysAR     float64 `parquet:"days_ar"`
	DenialRate float64 `parquet:"denial_rate"`
}

// Tables holds the rows of every output table in output order.
type Tables struct {
	Integrations     []IntegrationRow
	InitialContracts []ContractRow
	Contracts        []ContractRow
	KPIs             []KPIRow
}

// NewTables converts a run result into output rows, preserving the result's order.
func NewTables(res *sim.Result) *Tables {
	t := &Tables{
		Integrations:     make([]IntegrationRow, len(res.Integrations)),
		InitialContracts: contractRows(res.InitialContracts),
		Contracts:        contractRows(res.Contracts),
		KPIs:             make([]KPIRow, len(res.KPIs)),
	}
	for i, r := range res.Integrations {
		t.Integrations[i] = IntegrationRow{
			SiteID:             r.SiteID,
			VendorID:           r.VendorID,
			Category:           string(r.Category),
			IntegrationQuality: int32(r.Level),
		}
	}
	for i, k := range res.KPIs {
		t.KPIs[i] = KPIRow{
			SiteID:     k.SiteID,
			Month:      k.Date.Format(dateLayout),
			MonthIndex: int32(k.Month),
			DaysAR:     k.DaysAR,
			DenialRate: k.DenialRate,
		}
	}
	return t
}

func contractRows(contracts []sim.Contract) []ContractRow {
	rows := make([]ContractRow, len(contracts))
	for i, c := range contracts {
		row := ContractRow{
			ContractID: c.ID,
			SiteID:     c.SiteID,
			Category:   string(c.Category),
			VendorID:   c.VendorID,
			StartDate:  c.StartDate.Format(dateLayout),
			StartMonth: int32(c.StartMonth),
		}
		if c.EndMonth != nil {
			end := int32(*c.EndMonth)
			row.EndMonth = &end
		}
		if c.EndDate != nil {
			d := c.EndDate.Format(dateLayout)
			row.EndDate = &d
		}
		rows[i] = row
	}
	return rows
}
