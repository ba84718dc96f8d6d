package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/terralab/surveypipe/dedupe"
)

// NewDedupeCmd creates and returns the dedupe subcommand for the surveypipe
// CLI. It compares two packaged output trees by decoded content and removes
// candidates whose content already exists in the keep tree.
func NewDedupeCmd() *cobra.Command {
	var (
		keepPath      string
		candidatePath string
		dryRun        bool
		pruneEmpty    bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove packaged outputs whose content already exists",
		Long: `Compare every packaged output under the candidate tree with its counterpart
at the same relative path under the keep tree, and remove candidates whose
decoded content is identical.

Packaged containers from separate conversion runs differ in bytes even when
logically identical, so comparison works on decoded content: row count,
column set, coordinate reference system, bounding extent, canonical geometry
text, and attribute values. Every mismatch is reported with a reason; only
proven duplicates are removed, and --dry-run reports what would be removed
without touching anything.`,
		Run: func(cmd *cobra.Command, args []string) {
			runDedupe(keepPath, candidatePath, dryRun, pruneEmpty, verbose)
		},
	}

	cmd.Flags().StringVar(&keepPath, "keep", "", "Tree whose files are kept (required)")
	cmd.Flags().StringVar(&candidatePath, "candidates", "", "Tree whose duplicates are removed (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report removals without making changes")
	cmd.Flags().BoolVar(&pruneEmpty, "prune-empty", false, "Remove directories left empty by the removal pass")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.MarkFlagRequired("keep")
	cmd.MarkFlagRequired("candidates")

	return cmd
}

func runDedupe(keepPath, candidatePath string, dryRun, pruneEmpty, verbose bool) {
	configureLogging(verbose)

	for _, p := range []string{keepPath, candidatePath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			log.Fatalf("Tree does not exist: %s", p)
		}
	}

	if verbose {
		fmt.Printf("Comparing candidates in %s against %s\n", candidatePath, keepPath)
		if dryRun {
			fmt.Println("DRY RUN - no files will be removed")
		}
	}

	verdicts, err := dedupe.FindDuplicates(keepPath, candidatePath)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}
	counts := dedupe.Summarize(verdicts)

	if verbose {
		for _, v := range verdicts {
			if v.Status == dedupe.StatusDifferent || v.Status == dedupe.StatusError {
				fmt.Printf("  %s: %s (%s)\n", v.Status, v.Candidate, v.Reason)
			}
		}
	}

	result := dedupe.Remove(dedupe.Duplicates(verdicts), dryRun)

	pruned := 0
	if pruneEmpty && !dryRun {
		pruned, err = dedupe.PruneEmptyDirs(candidatePath)
		if err != nil {
			log.Warnf("Failed to prune empty directories: %v", err)
		}
	}

	fmt.Printf("\nDeduplication complete:\n")
	fmt.Printf("  Duplicate: %d\n", counts.Duplicate)
	fmt.Printf("  Different: %d\n", counts.Different)
	fmt.Printf("  Not found: %d\n", counts.NotFound)
	fmt.Printf("  Errors:    %d\n", counts.Errors)
	if dryRun {
		fmt.Printf("  Would remove %d files, freeing %d bytes\n", result.Removed, result.BytesFreed)
	} else {
		fmt.Printf("  Removed %d files (%d failed), freed %d bytes\n",
			result.Removed, result.Failed, result.BytesFreed)
		if pruneEmpty {
			fmt.Printf("  Pruned %d empty directories\n", pruned)
		}
	}
}
