package cmd

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSeedCmd creates and returns the seed subcommand for the surveypipe CLI.
// It generates nested archive fixtures for testing the pipeline end to end.
func NewSeedCmd() *cobra.Command {
	var (
		outputPath   string
		archiveCount int
		nestingDepth int
		fileCount    int
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic nested survey archives",
		Long: `Generate a directory of synthetic nested archives for testing the pipeline.

Each top-level archive holds a set of GeoJSON point features with randomized
identifiers plus, when --depth is positive, one nested archive per level.
The output directory can be fed straight into the expand stage.`,
		Run: func(cmd *cobra.Command, args []string) {
			runSeed(outputPath, archiveCount, nestingDepth, fileCount, verbose)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path to output directory (required)")
	cmd.Flags().IntVar(&archiveCount, "archives", 3, "Number of top-level archives")
	cmd.Flags().IntVar(&nestingDepth, "depth", 2, "Nesting depth inside each archive")
	cmd.Flags().IntVar(&fileCount, "files", 5, "Geometry files per archive level")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	cmd.MarkFlagRequired("output")

	return cmd
}

func runSeed(outputPath string, archiveCount, nestingDepth, fileCount int, verbose bool) {
	configureLogging(verbose)

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for i := 0; i < archiveCount; i++ {
		name := fmt.Sprintf("survey_%03d", i+1)
		path := filepath.Join(outputPath, name+".zip")

		buf, err := surveyArchive(name, nestingDepth, fileCount)
		if err != nil {
			log.Fatalf("Failed to build archive %s: %v", path, err)
		}
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			log.Fatalf("Failed to write archive %s: %v", path, err)
		}
		if verbose {
			fmt.Printf("Created %s (%d bytes, depth %d)\n", path, len(buf), nestingDepth)
		}
	}

	fmt.Printf("Seeded %d archives in %s\n", archiveCount, outputPath)
}

// surveyArchive builds one zip in memory: fileCount GeoJSON members plus,
// when depth is positive, one nested archive a level deeper.
func surveyArchive(name string, depth, fileCount int) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for i := 0; i < fileCount; i++ {
		fw, err := w.Create(fmt.Sprintf("plot_%02d.geojson", i+1))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(seedFeature(i)); err != nil {
			return nil, err
		}
	}

	if depth > 0 {
		nested, err := surveyArchive(name+"_sub", depth-1, fileCount)
		if err != nil {
			return nil, err
		}
		fw, err := w.Create(name + "_sub.zip")
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(nested); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// seedFeature renders one synthetic GeoJSON feature with a random identifier
// and jittered coordinates.
func seedFeature(n int) []byte {
	lonJitter, _ := rand.Int(rand.Reader, big.NewInt(1000))
	latJitter, _ := rand.Int(rand.Reader, big.NewInt(1000))
	lon := -122.0 + float64(lonJitter.Int64())/10000.0
	lat := 38.0 + float64(latJitter.Int64())/10000.0

	return fmt.Appendf(nil,
		`{"type":"Feature","id":%q,"geometry":{"type":"Point","coordinates":[%.4f,%.4f]},"properties":{"plot":%d}}`,
		uuid.New().String(), lon, lat, n+1)
}
