package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk format of join dates.
const DateLayout = "2006-01-02"

var (
	siteHeader   = []string{"site_id", "region", "ehr_system", "join_date", "annual_revenue"}
	vendorHeader = []string{"vendor_id", "name", "category", "tier", "monthly_price"}
)

// LoadSites reads a site catalog CSV with a header row.
func LoadSites(path string) ([]Site, error) {
	rows, err := readCSV(path, siteHeader)
	if err != nil {
		return nil, fmt.Errorf("reading site catalog: %w", err)
	}
	sites := make([]Site, 0, len(rows))
	for i, row := range rows {
		joined, err := time.Parse(DateLayout, row[3])
		if err != nil {
			return nil, fmt.Errorf("site catalog line %d: join_date: %w", i+2, err)
		}
		revenue, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("site catalog line %d: annual_revenue: %w", i+2, err)
		}
		sites = append(sites, Site{
			ID:            row[0],
			Region:        row[1],
			EHR:           row[2],
			JoinDate:      joined,
			AnnualRevenue: revenue,
		})
	}
	return sites, nil
}

// LoadVendors reads a vendor catalog CSV with a header row.
func LoadVendors(path string) ([]Vendor, error) {
	rows, err := readCSV(path, vendorHeader)
	if err != nil {
		return nil, fmt.Errorf("reading vendor catalog: %w", err)
	}
	vendors := make([]Vendor, 0, len(rows))
	for i, row := range rows {
		tier, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("vendor catalog line %d: tier: %w", i+2, err)
		}
		price, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("vendor catalog line %d: monthly_price: %w", i+2, err)
		}
		vendors = append(vendors, Vendor{
			ID:           row[0],
			Name:         row[1],
			Category:     Category(row[2]),
			Tier:         tier,
			MonthlyPrice: price,
		})
	}
	return vendors, nil
}

// Load reads both catalog tables.
func Load(sitesPath, vendorsPath string) (*Catalog, error) {
	sites, err := LoadSites(sitesPath)
	if err != nil {
		return nil, err
	}
	vendors, err := LoadVendors(vendorsPath)
	if err != nil {
		return nil, err
	}
	return &Catalog{Sites: sites, Vendors: vendors}, nil
}

// WriteSites writes the site table as CSV.
func WriteSites(w io.Writer, sites []Site) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(siteHeader); err != nil {
		return err
	}
	for _, s := range sites {
		if err := cw.Write([]string{
			s.ID, s.Region, s.EHR,
			s.JoinDate.Format(DateLayout),
			strconv.FormatFloat(s.AnnualRevenue, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVendors writes the vendor table as CSV.
func WriteVendors(w io.Writer, vendors []Vendor) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(vendorHeader); err != nil {
		return err
	}
	for _, v := range vendors {
		if err := cw.Write([]string{
			v.ID, v.Name, string(v.Category),
			strconv.Itoa(v.Tier),
			strconv.FormatFloat(v.MonthlyPrice, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readCSV returns data rows after checking the header matches want exactly.
func readCSV(path string, want []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(want)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		if strings.TrimSpace(h) != want[i] {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i+1, h, want[i])
		}
	}
	return r.ReadAll()
}
