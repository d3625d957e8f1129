package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// csvSink writes one CSV file per table with a header row. Nulls are empty cells.
type csvSink struct {
	dir string
}

var (
	integrationHeader = []string{"site_id", "vendor_id", "category", "integration_quality"}
	contractHeader    = []string{"contract_id", "site_id", "category", "vendor_id", "start_date", "end_date", "start_month", "end_month"}
	kpiHeader         = []string{"site_id", "month", "month_index", "days_ar", "denial_rate"}
)

func (s *csvSink) Write(ctx context.Context, t *Tables) error {
	integrations := make([][]string, len(t.Integrations))
	for i, r := range t.Integrations {
		integrations[i] = []string{r.SiteID, r.VendorID, r.Category, strconv.Itoa(int(r.IntegrationQuality))}
	}
	kpis := make([][]string, len(t.KPIs))
	for i, k := range t.KPIs {
		kpis[i] = []string{k.SiteID, k.Month, strconv.Itoa(int(k.MonthIndex)), formatFloat(k.DaysAR), formatFloat(k.DenialRate)}
	}

	files := []struct {
		table  string
		header []string
		rows   [][]string
	}{
		{TableIntegrations, integrationHeader, integrations},
		{TableInitialContracts, contractHeader, contractRecords(t.InitialContracts)},
		{TableContracts, contractHeader, contractRecords(t.Contracts)},
		{TableKPIs, kpiHeader, kpis},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(s.dir, f.table+".csv"), f.header, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *csvSink) Close() error { return nil }

func contractRecords(rows []ContractRow) [][]string {
	out := make([][]string, len(rows))
	for i, c := range rows {
		endDate, endMonth := "", ""
		if c.EndDate != nil {
			endDate = *c.EndDate
		}
		if c.EndMonth != nil {
			endMonth = strconv.Itoa(int(*c.EndMonth))
		}
		out[i] = []string{c.ContractID, c.SiteID, c.Category, c.VendorID, c.StartDate, endDate,
			strconv.Itoa(int(c.StartMonth)), endMonth}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
