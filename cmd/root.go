package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ges257/pe-rollup-intelligence-system/sim"
	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
	"github.com/ges257/pe-rollup-intelligence-system/sim/export"
	"github.com/ges257/pe-rollup-intelligence-system/sim/trace"
)

// envPrefix namespaces the environment variables bound to run flags,
// e.g. ROLLUPSIM_SEED or ROLLUPSIM_SITES_CSV.
const envPrefix = "ROLLUPSIM"

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "rollup-sim",
	Short: "Causal synthetic-data simulator for vendor contracts and practice KPIs",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the contract and KPI simulation",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := bindEnv(cmd)
		if err != nil {
			logrus.Fatalf("Failed to bind flags: %v", err)
		}

		// Set up logging
		logLevel := v.GetString("log")
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		traceLevel := v.GetString("trace")
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s; valid: none, decisions", traceLevel)
		}
		format := v.GetString("format")
		if !export.IsValidFormat(format) {
			logrus.Fatalf("Invalid output format: %s; valid: %v", format, export.ValidFormatNames())
		}

		cfg, err := resolveConfig(v)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		in, err := loadInputs(v, cfg.Seed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		startTime := time.Now()
		res, err := sim.Run(ctx, in, cfg, trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		out := v.GetString("out")
		sink, err := export.Open(ctx, export.Format(format), out)
		if err != nil {
			logrus.Fatalf("Failed to open %s output %s: %v", format, out, err)
		}
		if err := sink.Write(ctx, export.NewTables(res)); err != nil {
			sink.Close()
			logrus.Fatalf("Failed to write output: %v", err)
		}
		if err := sink.Close(); err != nil {
			logrus.Fatalf("Failed to close output: %v", err)
		}
		logrus.Infof("Wrote %s tables to %s in %s", format, out, time.Since(startTime).Round(time.Millisecond))

		sim.CollectMetrics(res).Print(os.Stdout)
	},
}

// bindEnv binds every flag of cmd to a ROLLUPSIM_* environment variable.
// A value counts as set when the flag was passed or its variable is present.
func bindEnv(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// resolveConfig loads DefaultConfig or the --config file, then applies
// explicitly set flags on top. Unset flags never override YAML values.
func resolveConfig(v *viper.Viper) (*sim.Config, error) {
	cfg := sim.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		loaded, err := sim.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		logrus.Infof("Loaded config from %s", path)
	}
	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
	}
	if v.IsSet("horizon") {
		cfg.Horizon = v.GetInt("horizon")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("start-date") {
		cfg.StartDate = v.GetString("start-date")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadInputs reads the site and vendor CSVs when given, or generates the demo
// catalog from the run seed. The rule table defaults to catalog.DefaultRules.
func loadInputs(v *viper.Viper, seed int64) (sim.Inputs, error) {
	sitesPath, vendorsPath := v.GetString("sites-csv"), v.GetString("vendors-csv")
	var in sim.Inputs
	switch {
	case sitesPath != "" && vendorsPath != "":
		cat, err := catalog.Load(sitesPath, vendorsPath)
		if err != nil {
			return sim.Inputs{}, err
		}
		in = sim.Inputs{Catalog: cat, Rules: catalog.DefaultRules()}
		logrus.Infof("Loaded %d sites and %d vendors", len(cat.Sites), len(cat.Vendors))
	case sitesPath != "" || vendorsPath != "":
		return sim.Inputs{}, fmt.Errorf("--sites-csv and --vendors-csv must be given together")
	default:
		cat, rules, err := catalog.Generate(seed, v.GetInt("sites"))
		if err != nil {
			return sim.Inputs{}, err
		}
		in = sim.Inputs{Catalog: cat, Rules: rules}
		logrus.Infof("Generated demo catalog: %d sites, %d vendors", len(cat.Sites), len(cat.Vendors))
	}
	if path := v.GetString("rules"); path != "" {
		rules, err := catalog.LoadRules(path)
		if err != nil {
			return sim.Inputs{}, err
		}
		in.Rules = rules
	}
	return in, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(defaultsCmd)
}

// registerRunFlags declares the run flags; defaults mirror sim.DefaultConfig.
func registerRunFlags(cmd *cobra.Command) {
	defaults := sim.DefaultConfig()

	cmd.Flags().Int64("seed", defaults.Seed, "Seed for catalog generation and every simulation stream")
	cmd.Flags().Int("horizon", defaults.Horizon, "Simulation horizon (in months)")
	cmd.Flags().String("start-date", defaults.StartDate, "First month of the horizon (YYYY-MM-DD)")
	cmd.Flags().Int("workers", defaults.Workers, "Number of sites simulated concurrently")
	cmd.Flags().String("config", "", "Path to YAML config overriding the default coefficients")
	cmd.Flags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().String("trace", string(trace.TraceLevelNone), "Trace level (none, decisions)")

	// Inputs
	cmd.Flags().Int("sites", 100, "Number of sites in the generated demo catalog")
	cmd.Flags().String("sites-csv", "", "Site catalog CSV (requires --vendors-csv)")
	cmd.Flags().String("vendors-csv", "", "Vendor catalog CSV (requires --sites-csv)")
	cmd.Flags().String("rules", "", "Category integration rule YAML (default: built-in rules)")

	// Outputs
	cmd.Flags().String("format", string(export.FormatParquet), "Output format (parquet, csv, sqlite, postgres)")
	cmd.Flags().String("out", "output", "Output directory, SQLite file or PostgreSQL connection string")
}
