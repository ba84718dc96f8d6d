package dedupe

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RemovalResult accounts for one removal pass.
type RemovalResult struct {
	Removed    int
	Failed     int
	BytesFreed int64
}

// Remove deletes the given files, or only reports them when dryRun is set.
// A dry run accumulates the same counts and byte total a real pass would
// remove. Per-file failures are counted and never abort the batch.
func Remove(paths []string, dryRun bool) RemovalResult {
	var res RemovalResult
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			log.WithField("path", p).WithError(err).Warn("cannot stat duplicate")
			res.Failed++
			continue
		}
		if dryRun {
			log.WithField("path", p).Infof("would remove %d bytes", info.Size())
			res.Removed++
			res.BytesFreed += info.Size()
			continue
		}
		if err := os.Remove(p); err != nil {
			log.WithField("path", p).WithError(err).Warn("failed to remove duplicate")
			res.Failed++
			continue
		}
		log.WithField("path", p).Debugf("removed %d bytes", info.Size())
		res.Removed++
		res.BytesFreed += info.Size()
	}
	return res
}

// PruneEmptyDirs removes directories under root left empty by a removal
// pass. Directories are handled deepest first, so removal never races a
// still-populated child. Returns the number of directories removed.
func PruneEmptyDirs(root string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	sep := string(os.PathSeparator)
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], sep) > strings.Count(dirs[j], sep)
	})

	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err == nil {
			removed++
		}
	}
	return removed, nil
}
