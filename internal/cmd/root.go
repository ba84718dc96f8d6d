package cmd

import (
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/terralab/surveypipe/version"
)

// NewRootCmd creates and returns the root cobra command for the surveypipe
// CLI. It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "surveypipe",
		Short: "surveypipe - batch pipeline for nested geospatial survey archives",
		Long: `surveypipe turns deeply nested archives of geospatial survey data into a
deduplicated, analysis-ready dataset.

The pipeline has three stages, each usable standalone or chained through the
filesystem:
  - expand:  recursively unpack nested archives into a mirrored directory tree
  - convert: package every raw geometry file via an external converter,
             skipping outputs that already exist
  - dedupe:  compare two packaged trees by decoded content and remove
             redundant copies`,
		Version: version.GetFullVersion(),
	}

	groupPipeline := "pipeline"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupPipeline,
		Title: "Pipeline Stages",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	expandCmd := NewExpandCmd()
	convertCmd := NewConvertCmd()
	dedupeCmd := NewDedupeCmd()
	seedCmd := NewSeedCmd()
	countCmd := NewCountCmd()

	expandCmd.GroupID = groupPipeline
	convertCmd.GroupID = groupPipeline
	dedupeCmd.GroupID = groupPipeline
	seedCmd.GroupID = groupUtilities
	countCmd.GroupID = groupUtilities

	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(countCmd)

	return rootCmd
}

func configureLogging(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// defaultOutputPath places a stage's output alongside its source when no
// explicit output path was given.
func defaultOutputPath(src, suffix string) string {
	src = filepath.Clean(src)
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), base+suffix)
}
