package cmd

import (
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/terralab/surveypipe/expand"
)

// NewExpandCmd creates and returns the expand subcommand for the surveypipe
// CLI. It handles recursive extraction of nested survey archives.
func NewExpandCmd() *cobra.Command {
	var (
		inputPath      string
		outputPath     string
		maxDepth       int
		deleteArchives bool
		workers        int
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Recursively extract nested survey archives",
		Long: `Recursively unpack a tree of nested archives into a directory hierarchy
that mirrors the archive nesting.

Supported containers are .zip and lz4-compressed tarballs (.tar.lz4, .tlz4).
Archives nested inside other archives are extracted one depth level down,
bounded by --max-depth. Sibling archives at the outermost level are extracted
across a worker pool. Per-archive failures are counted and reported in the
final summary without aborting the run.`,
		Run: func(cmd *cobra.Command, args []string) {
			runExpand(inputPath, outputPath, maxDepth, deleteArchives, workers, verbose)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Archive file or directory of archives (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Extraction root (default: alongside the source)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 8, "Maximum archive nesting depth")
	cmd.Flags().BoolVar(&deleteArchives, "delete", false, "Delete archives after successful extraction")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Worker count for top-level fan-out")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runExpand(inputPath, outputPath string, maxDepth int, deleteArchives bool, workers int, verbose bool) {
	configureLogging(verbose)

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input path does not exist: %s", inputPath)
	}
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, "_extracted")
	}

	if verbose {
		fmt.Printf("Expanding %s into %s\n", inputPath, outputPath)
	}

	stats, err := expand.Expand(inputPath, outputPath, expand.Options{
		MaxDepth:       maxDepth,
		DeleteArchives: deleteArchives,
		Workers:        workers,
	})
	if err != nil {
		log.Fatalf("Expansion failed: %v", err)
	}

	fmt.Printf("\nExpansion complete:\n")
	fmt.Printf("  Archives found:     %d\n", stats.ArchivesFound.Load())
	fmt.Printf("  Archives extracted: %d\n", stats.ArchivesExtracted.Load())
	fmt.Printf("  Files extracted:    %d\n", stats.FilesExtracted.Load())
	fmt.Printf("  Errors:             %d\n", stats.Errors.Load())
}
