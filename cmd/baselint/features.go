package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhollis/baselint"
)

var featuresCmd = &cobra.Command{
	Use:   "features <id>",
	Short: "Show a feature's Baseline record",
	Long:  "Looks up a feature id (e.g. css.properties.float) in the bundled Baseline dataset and prints its support level, tier dates and reference links.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeatures,
}

func runFeatures(cmd *cobra.Command, args []string) error {
	analyzer, err := baselint.New()
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer analyzer.Close()

	rec, ok := analyzer.Record(args[0])
	if !ok {
		return fmt.Errorf("unknown feature id %q (dataset %s)", args[0], analyzer.DatasetVersion())
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "features", Results: rec})
	}
	formatFeatureText(os.Stdout, rec)
	return nil
}
