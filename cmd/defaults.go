package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ges257/pe-rollup-intelligence-system/sim"
)

// defaultsCmd prints the default coefficients as a YAML config, a starting
// point for --config files.
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default simulation config as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaults(os.Stdout); err != nil {
			logrus.Fatalf("Failed to print defaults: %v", err)
		}
	},
}

func writeDefaults(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sim.DefaultConfig()); err != nil {
		return err
	}
	return enc.Close()
}
