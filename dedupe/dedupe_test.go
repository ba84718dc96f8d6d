package dedupe

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/require"

	"github.com/terralab/surveypipe/geopack"
)

// row is one feature: a geometry value plus attribute values.
type row struct {
	geom any
	props    map[string]any
}

// container describes a .gpz fixture.
type container struct {
	crs     string
	bbox    []float64
	runID   string
	columns []string
	rows    []row
}

func (c container) write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)

	meta := map[string]any{
		"crs":        c.crs,
		"bbox":       c.bbox,
		"run_id":     c.runID,
		"created_at": fmt.Sprintf("2026-03-%02dT09:00:00Z", 1+len(c.runID)%27),
		"tool":       "geoconv 3.2",
	}
	mw, err := w.Create("meta.json")
	require.NoError(t, err)
	_, err = mw.Write([]byte(oj.JSON(meta)))
	require.NoError(t, err)

	feats := make([]any, 0, len(c.rows))
	for _, r := range c.rows {
		feats = append(feats, map[string]any{
			"geometry":   r.geom,
			"properties": r.props,
		})
	}
	cols := make([]any, 0, len(c.columns))
	for _, col := range c.columns {
		cols = append(cols, col)
	}
	fw, err := w.Create("features.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(oj.JSON(map[string]any{
		"columns":  cols,
		"features": feats,
	})))
	require.NoError(t, err)

	require.NoError(t, w.Close())
}

func point(x, y float64) map[string]any {
	return map[string]any{"type": "Point", "coordinates": []any{x, y}}
}

func plotRows() []row {
	return []row{
		{geom: point(-122.40, 37.80), props: map[string]any{"fid": int64(1), "name": "plot-a", "height": 12.5}},
		{geom: point(-122.35, 37.75), props: map[string]any{"fid": int64(2), "name": "plot-b", "height": 9.25}},
		{geom: point(-122.45, 37.85), props: map[string]any{"fid": int64(3), "name": "plot-c", "height": 17.0}},
	}
}

func baseContainer(runID string) container {
	return container{
		crs:     "EPSG:4326",
		bbox:    []float64{-122.5, 37.7, -122.3, 37.9},
		runID:   runID,
		columns: []string{"fid", "name", "height"},
		rows:    plotRows(),
	}
}

func TestCompareDuplicateDespiteOrderAndMetadata(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep", "site.gpz")
	cand := filepath.Join(dir, "cand", "site.gpz")

	kc := baseContainer("run-one")
	kc.write(t, keep)

	// same content, reversed row order, different run metadata
	cc := baseContainer("run-two")
	for i, j := 0, len(cc.rows)-1; i < j; i, j = i+1, j-1 {
		cc.rows[i], cc.rows[j] = cc.rows[j], cc.rows[i]
	}
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.True(t, equal, "reason: %s", reason)
}

func TestCompareReportsDifferingAttribute(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.gpz")
	cand := filepath.Join(dir, "cand.gpz")

	baseContainer("run-one").write(t, keep)
	cc := baseContainer("run-two")
	cc.rows[1].props["height"] = 9.75
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.False(t, equal)
	require.Contains(t, reason, `"height"`)
}

func TestCompareReportsRowCount(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.gpz")
	cand := filepath.Join(dir, "cand.gpz")

	baseContainer("run-one").write(t, keep)
	cc := baseContainer("run-two")
	cc.rows = cc.rows[:2]
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.False(t, equal)
	require.Equal(t, "row count differs: 3 vs 2", reason)
}

func TestCompareReportsGeometryDifference(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.gpz")
	cand := filepath.Join(dir, "cand.gpz")

	baseContainer("run-one").write(t, keep)
	cc := baseContainer("run-two")
	cc.rows[0].geom = point(-122.41, 37.80)
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.False(t, equal)
	require.Contains(t, reason, "geometry differs")
}

func TestCompareZeroRowsShortCircuits(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.gpz")
	cand := filepath.Join(dir, "cand.gpz")

	// empty datasets with different column sets and CRS are still equal;
	// the zero-row check runs before the column and CRS checks
	kc := baseContainer("run-one")
	kc.rows = nil
	kc.write(t, keep)

	cc := baseContainer("run-two")
	cc.rows = nil
	cc.columns = []string{"totally", "different"}
	cc.crs = "EPSG:3857"
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.True(t, equal, "reason: %s", reason)
}

func TestCompareAllNoValueColumnMatches(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.gpz")
	cand := filepath.Join(dir, "cand.gpz")

	// keep encodes "no value" as null, candidate omits the key entirely
	kc := baseContainer("run-one")
	for i := range kc.rows {
		kc.rows[i].props["surveyor"] = nil
	}
	kc.columns = append(kc.columns, "surveyor")
	kc.write(t, keep)

	cc := baseContainer("run-two")
	cc.columns = append(cc.columns, "surveyor")
	cc.write(t, cand)

	kd, err := geopack.Open(keep)
	require.NoError(t, err)
	cd, err := geopack.Open(cand)
	require.NoError(t, err)

	equal, reason := Compare(kd, cd)
	require.True(t, equal, "reason: %s", reason)
}

func TestFindDuplicatesVerdicts(t *testing.T) {
	dir := t.TempDir()
	keepRoot := filepath.Join(dir, "keep")
	candRoot := filepath.Join(dir, "cand")

	// duplicate pair with differing bytes
	baseContainer("run-one").write(t, filepath.Join(keepRoot, "q1", "same.gpz"))
	baseContainer("run-two").write(t, filepath.Join(candRoot, "q1", "same.gpz"))

	// differing pair
	baseContainer("run-one").write(t, filepath.Join(keepRoot, "diff.gpz"))
	changed := baseContainer("run-two")
	changed.rows[0].props["name"] = "renamed"
	changed.write(t, filepath.Join(candRoot, "diff.gpz"))

	// candidate with no counterpart
	baseContainer("run-two").write(t, filepath.Join(candRoot, "orphan.gpz"))

	// unreadable candidate
	require.NoError(t, os.WriteFile(filepath.Join(candRoot, "broken.gpz"), []byte("junk"), 0o644))
	baseContainer("run-one").write(t, filepath.Join(keepRoot, "broken.gpz"))

	verdicts, err := FindDuplicates(keepRoot, candRoot)
	require.NoError(t, err)
	require.Len(t, verdicts, 4)

	counts := Summarize(verdicts)
	require.Equal(t, Counts{Duplicate: 1, Different: 1, NotFound: 1, Errors: 1}, counts)

	dups := Duplicates(verdicts)
	require.Equal(t, []string{filepath.Join(candRoot, "q1", "same.gpz")}, dups)
}

func TestFindDuplicatesByteIdenticalFastPath(t *testing.T) {
	dir := t.TempDir()
	keepRoot := filepath.Join(dir, "keep")
	candRoot := filepath.Join(dir, "cand")

	src := filepath.Join(keepRoot, "site.gpz")
	baseContainer("run-one").write(t, src)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(candRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(candRoot, "site.gpz"), data, 0o644))

	verdicts, err := FindDuplicates(keepRoot, candRoot)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	require.Equal(t, StatusDuplicate, verdicts[0].Status)
	require.Equal(t, "byte-identical", verdicts[0].Reason)
}
