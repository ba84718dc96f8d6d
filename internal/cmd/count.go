package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// NewCountCmd creates and returns the count subcommand for the surveypipe
// CLI. It provides file counting functionality for directory trees.
func NewCountCmd() *cobra.Command {
	var (
		path         string
		exts         []string
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "count [PATH]",
		Short: "Count files in a directory tree",
		Long: `Count the total number of files in a directory tree.

This is a utility command that recursively walks through a directory and
counts files, optionally restricted to the given extensions. Useful for
sizing a conversion run before starting it.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				path = args[0]
			}
			runCount(path, exts, showProgress)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "./", "Path to count files in")
	cmd.Flags().StringArrayVar(&exts, "ext", nil, "Count only files with this extension (repeatable)")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Show progress every 10,000 files")

	return cmd
}

func runCount(path string, exts []string, showProgress bool) {
	count := 0
	err := filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matchesExt(path, exts) {
			return nil
		}
		count++
		if showProgress && count%10000 == 0 {
			fmt.Printf("Progress: %d files counted\n", count)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Error counting files: %v\n", err)
		return
	}

	fmt.Printf("Total files: %d\n", count)
}

func matchesExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
