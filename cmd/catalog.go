package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

var (
	catalogSeed  int64  // Seed for the generated catalog
	catalogSites int    // Number of generated sites
	catalogOut   string // Output directory
)

// catalogCmd writes a demo catalog (sites.csv, vendors.csv, rules.yaml) that
// `run --sites-csv --vendors-csv --rules` accepts as input.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Generate a demo site/vendor catalog and rule table",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeCatalog(catalogOut, catalogSeed, catalogSites); err != nil {
			logrus.Fatalf("Failed to write catalog: %v", err)
		}
		fmt.Printf("Wrote %d sites, %d vendors and rule table to %s\n", catalogSites, len(catalog.DemoVendors()), catalogOut)
	},
}

func writeCatalog(dir string, seed int64, sites int) error {
	cat, rules, err := catalog.Generate(seed, sites)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, "sites.csv"), func(f *os.File) error { return catalog.WriteSites(f, cat.Sites) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "vendors.csv"), func(f *os.File) error { return catalog.WriteVendors(f, cat.Vendors) }); err != nil {
		return err
	}
	return catalog.WriteRules(filepath.Join(dir, "rules.yaml"), rules)
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	catalogCmd.Flags().Int64Var(&catalogSeed, "seed", 42, "Seed for catalog generation")
	catalogCmd.Flags().IntVar(&catalogSites, "sites", 100, "Number of sites")
	catalogCmd.Flags().StringVar(&catalogOut, "out", "catalog", "Output directory")
}
