package dedupe

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/terralab/surveypipe/geopack"
)

// Status classifies the outcome of comparing a candidate against its
// counterpart in the keep tree.
type Status string

const (
	StatusDuplicate Status = "duplicate"
	StatusDifferent Status = "different"
	StatusNotFound  Status = "not_found"
	StatusError     Status = "error"
)

// Verdict is the immutable outcome for one candidate file.
type Verdict struct {
	Candidate string `json:"candidate"`
	Keep      string `json:"keep,omitempty"`
	Status    Status `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// Counts tallies verdicts per status.
type Counts struct {
	Duplicate int
	Different int
	NotFound  int
	Errors    int
}

// FindDuplicates walks every packaged output under candidateRoot and
// compares it with the file at the same relative path under keepRoot,
// producing one verdict per candidate.
func FindDuplicates(keepRoot, candidateRoot string) ([]Verdict, error) {
	var verdicts []Verdict
	err := filepath.WalkDir(candidateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), geopack.Ext) {
			return nil
		}
		rel, err := filepath.Rel(candidateRoot, path)
		if err != nil {
			return err
		}
		v := compareFiles(filepath.Join(keepRoot, rel), path)
		log.WithFields(log.Fields{"candidate": v.Candidate, "status": v.Status, "reason": v.Reason}).
			Debug("compared")
		verdicts = append(verdicts, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", candidateRoot, err)
	}
	return verdicts, nil
}

func compareFiles(keep, candidate string) Verdict {
	v := Verdict{Candidate: candidate, Keep: keep}

	if _, err := os.Stat(keep); err != nil {
		if os.IsNotExist(err) {
			v.Status = StatusNotFound
			v.Keep = ""
			return v
		}
		v.Status = StatusError
		v.Reason = err.Error()
		return v
	}

	// Byte-identical files need no decoding.
	if same, err := sameBytes(keep, candidate); err == nil && same {
		v.Status = StatusDuplicate
		v.Reason = "byte-identical"
		return v
	}

	kd, err := geopack.Open(keep)
	if err != nil {
		v.Status = StatusError
		v.Reason = err.Error()
		return v
	}
	cd, err := geopack.Open(candidate)
	if err != nil {
		v.Status = StatusError
		v.Reason = err.Error()
		return v
	}

	if equal, reason := Compare(kd, cd); equal {
		v.Status = StatusDuplicate
	} else {
		v.Status = StatusDifferent
		v.Reason = reason
	}
	return v
}

// Compare reports whether two datasets encode the same content. Checks run
// cheapest first and short-circuit with a human-readable reason on the
// first mismatch.
func Compare(keep, cand *geopack.Dataset) (bool, string) {
	if keep.RowCount() != cand.RowCount() {
		return false, fmt.Sprintf("row count differs: %d vs %d", keep.RowCount(), cand.RowCount())
	}
	// Empty datasets never mismatch on content, whatever their metadata
	// says, so this fires before the column and CRS checks.
	if keep.RowCount() == 0 {
		return true, ""
	}
	if reason := compareColumns(keep.Columns(), cand.Columns()); reason != "" {
		return false, reason
	}
	if keep.CRS() != cand.CRS() {
		return false, fmt.Sprintf("crs differs: %s vs %s", keep.CRS(), cand.CRS())
	}
	if keep.Bounds() != cand.Bounds() {
		return false, fmt.Sprintf("bounds differ: %v vs %v", keep.Bounds(), cand.Bounds())
	}

	// Re-conversion does not preserve row order; compare rows sorted by a
	// stable identifier.
	ki := sortedRows(keep)
	ci := sortedRows(cand)
	for i := range ki {
		kg := keep.Feature(ki[i]).CanonicalGeometry()
		cg := cand.Feature(ci[i]).CanonicalGeometry()
		if kg != cg {
			return false, fmt.Sprintf("geometry differs at row %d", i)
		}
	}

	for _, col := range keep.Columns() {
		// A column that carries no value in every row on both sides
		// matches regardless of how "no value" was encoded.
		if allNoValue(keep, col) && allNoValue(cand, col) {
			continue
		}
		for i := range ki {
			kv, kok := keep.Feature(ki[i]).Value(col)
			cv, cok := cand.Feature(ci[i]).Value(col)
			if kok != cok ||
				(kok && geopack.CanonicalValue(kv) != geopack.CanonicalValue(cv)) {
				return false, fmt.Sprintf("column %q differs at row %d", col, i)
			}
		}
	}
	return true, ""
}

// compareColumns returns a reason string when the symmetric difference of
// the two sorted column sets is non-empty.
func compareColumns(keep, cand []string) string {
	keepSet := make(map[string]bool, len(keep))
	for _, c := range keep {
		keepSet[c] = true
	}
	candSet := make(map[string]bool, len(cand))
	for _, c := range cand {
		candSet[c] = true
	}

	var onlyKeep, onlyCand []string
	for _, c := range keep {
		if !candSet[c] {
			onlyKeep = append(onlyKeep, c)
		}
	}
	for _, c := range cand {
		if !keepSet[c] {
			onlyCand = append(onlyCand, c)
		}
	}
	if len(onlyKeep) == 0 && len(onlyCand) == 0 {
		return ""
	}
	return fmt.Sprintf("columns differ: only in keep %v, only in candidate %v", onlyKeep, onlyCand)
}

// sortedRows returns row indices ordered by the dataset's stable identifier
// column, falling back to canonical geometry text when it has none.
func sortedRows(d *geopack.Dataset) []int {
	n := d.RowCount()
	key := d.SortKey()
	keys := make([]string, n)
	for i := range keys {
		if key != "" {
			if v, ok := d.Feature(i).Value(key); ok {
				keys[i] = geopack.CanonicalValue(v)
				continue
			}
		}
		keys[i] = d.Feature(i).CanonicalGeometry()
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
	return idx
}

func allNoValue(d *geopack.Dataset, col string) bool {
	for i := 0; i < d.RowCount(); i++ {
		if _, ok := d.Feature(i).Value(col); ok {
			return false
		}
	}
	return true
}

// Summarize tallies a verdict list for reporting.
func Summarize(verdicts []Verdict) Counts {
	var c Counts
	for _, v := range verdicts {
		switch v.Status {
		case StatusDuplicate:
			c.Duplicate++
		case StatusDifferent:
			c.Different++
		case StatusNotFound:
			c.NotFound++
		case StatusError:
			c.Errors++
		}
	}
	return c
}

// Duplicates returns the candidate paths whose verdict is duplicate, the
// input to a removal pass.
func Duplicates(verdicts []Verdict) []string {
	var paths []string
	for _, v := range verdicts {
		if v.Status == StatusDuplicate {
			paths = append(paths, v.Candidate)
		}
	}
	return paths
}

func sameBytes(a, b string) (bool, error) {
	ha, err := fileHash(a)
	if err != nil {
		return false, err
	}
	hb, err := fileHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
