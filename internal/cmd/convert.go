package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/terralab/surveypipe/convert"
)

// NewConvertCmd creates and returns the convert subcommand for the
// surveypipe CLI. It packages every raw geometry file under the input root
// via an external converter, preserving relative path structure.
func NewConvertCmd() *cobra.Command {
	var (
		inputPath   string
		outputPath  string
		toolBinary  string
		toolArgs    []string
		toolTimeout time.Duration
		sourceExts  []string
		reportPath  string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Package raw geometry files via an external converter",
		Long: `Walk an extracted survey hierarchy and produce one packaged output per raw
geometry file.

Outputs that already exist are skipped, so an interrupted run can be
re-invoked with the same arguments and only performs the remaining work. The
converter binary is invoked once per file as "BIN [args...] SRC DST"; a
missing binary aborts the run before any work begins, while per-file
conversion failures are counted and reported in the final summary.`,
		Run: func(cmd *cobra.Command, args []string) {
			runConvert(inputPath, outputPath, toolBinary, toolArgs, toolTimeout,
				sourceExts, reportPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Extracted survey hierarchy to convert (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output root for packaged files (default: alongside the source)")
	cmd.Flags().StringVar(&toolBinary, "tool", "geoconv", "External converter binary")
	cmd.Flags().StringArrayVar(&toolArgs, "tool-arg", nil, "Extra argument passed to the converter before the paths (repeatable)")
	cmd.Flags().DurationVar(&toolTimeout, "tool-timeout", 0, "Per-file converter timeout (0 = none)")
	cmd.Flags().StringArrayVar(&sourceExts, "source-ext", nil, "Raw geometry extension to convert (repeatable; default .shp, .geojson, .json)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Where to write the run report (default: <output>/conversion_report.json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runConvert(inputPath, outputPath, toolBinary string, toolArgs []string,
	toolTimeout time.Duration, sourceExts []string, reportPath string, verbose bool,
) {
	configureLogging(verbose)

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input directory does not exist: %s", inputPath)
	}
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, "_packaged")
	}

	if verbose {
		fmt.Printf("Converting %s into %s using %s\n", inputPath, outputPath, toolBinary)
	}

	tool := convert.ExecTool{
		Binary:    toolBinary,
		ExtraArgs: toolArgs,
		Timeout:   toolTimeout,
	}
	opts := convert.Options{
		SourceExts: sourceExts,
		Progress: func(done, total int) {
			if verbose || done%100 == 0 || done == total {
				fmt.Printf("Progress: %d/%d units\n", done, total)
			}
		},
	}

	report, err := convert.Run(context.Background(), inputPath, outputPath, tool, opts)
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	if reportPath == "" {
		reportPath = filepath.Join(outputPath, "conversion_report.json")
	}
	if err := report.Save(reportPath); err != nil {
		log.Warnf("Failed to write report: %v", err)
	}

	fmt.Printf("\nConversion complete:\n")
	fmt.Printf("  Units:     %d\n", report.Units)
	fmt.Printf("  Converted: %d\n", report.Converted)
	fmt.Printf("  Skipped:   %d\n", report.Skipped)
	fmt.Printf("  Failed:    %d\n", report.Failed)
	if verbose {
		fmt.Printf("  Run ID:    %s\n", report.RunID)
		fmt.Printf("  Report:    %s\n", reportPath)
	}
}
