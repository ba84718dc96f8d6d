package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultSourceExts are the raw geometry extensions picked up by the walk.
var DefaultSourceExts = []string{".shp", ".geojson", ".json"}

// DefaultTargetExt is the extension of packaged outputs.
const DefaultTargetExt = ".gpz"

// partialSuffix marks in-flight tool outputs that have not been renamed
// into place yet. Stale partials from interrupted runs are overwritten.
const partialSuffix = ".partial"

// Unit pairs one raw geometry source with its packaged output target. The
// source path relative to the input root is preserved exactly under the
// output root; directory structure is never flattened.
type Unit struct {
	Source string
	Target string
}

// Options configure one conversion run.
type Options struct {
	// SourceExts overrides DefaultSourceExts. Matching is case-insensitive.
	SourceExts []string
	// TargetExt overrides DefaultTargetExt.
	TargetExt string
	// Progress, when set, is called once per unit processed, success or
	// failure. The total is exhaustive before the first call.
	Progress func(done, total int)
}

func (o Options) sourceExts() []string {
	if len(o.SourceExts) > 0 {
		return o.SourceExts
	}
	return DefaultSourceExts
}

func (o Options) targetExt() string {
	if o.TargetExt != "" {
		return o.TargetExt
	}
	return DefaultTargetExt
}

// Units enumerates every conversion unit under inputRoot. The walk is
// exhaustive so callers know the total unit count up front.
func Units(inputRoot, outputRoot string, opts Options) ([]Unit, error) {
	exts := opts.sourceExts()
	targetExt := opts.targetExt()

	var units []Unit
	err := filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExt(path, exts) {
			return nil
		}
		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			return err
		}
		target := strings.TrimSuffix(rel, filepath.Ext(rel)) + targetExt
		units = append(units, Unit{
			Source: path,
			Target: filepath.Join(outputRoot, target),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", inputRoot, err)
	}
	return units, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Run converts every raw geometry file under inputRoot into a packaged
// output under outputRoot. Units whose target already exists are skipped.
// Per-unit failures are logged with the tool's diagnostic output and
// counted; only invocation-level failures (missing input root, missing
// tool, cancelled context) return an error.
func Run(ctx context.Context, inputRoot, outputRoot string, tool Tool, opts Options) (*Report, error) {
	if _, err := os.Stat(inputRoot); err != nil {
		return nil, fmt.Errorf("input root: %w", err)
	}
	if err := tool.Check(); err != nil {
		return nil, err
	}

	units, err := Units(inputRoot, outputRoot, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.New().String(),
		Started: time.Now().UTC(),
		Units:   len(units),
	}
	for i, u := range units {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now().UTC()
			return report, err
		}
		if _, err := os.Stat(u.Target); err == nil {
			log.WithField("target", u.Target).Debug("output exists, skipping")
			report.Skipped++
		} else if err := convertUnit(ctx, tool, u); err != nil {
			log.WithFields(log.Fields{"source": u.Source, "target": u.Target}).
				WithError(err).Error("conversion failed")
			report.Failed++
		} else {
			report.Converted++
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(units))
		}
	}
	report.Finished = time.Now().UTC()
	return report, nil
}

// convertUnit points the tool at a partial path and renames the result into
// place only after the tool reports success, so the target never exists in
// a half-written state.
func convertUnit(ctx context.Context, tool Tool, u Unit) error {
	if err := os.MkdirAll(filepath.Dir(u.Target), 0o755); err != nil {
		return err
	}
	partial := u.Target + partialSuffix
	os.Remove(partial) // stale leftover from an interrupted run

	if err := tool.Convert(ctx, u.Source, partial); err != nil {
		os.Remove(partial)
		return err
	}
	return os.Rename(partial, u.Target)
}
