package convert

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// fakeTool converts by copying the source, failing for configured basenames.
type fakeTool struct {
	failNames map[string]bool
	calls     int
}

func (f *fakeTool) Check() error { return nil }

func (f *fakeTool) Convert(_ context.Context, src, dst string) error {
	f.calls++
	if f.failNames[filepath.Base(src)] {
		return errors.New("synthetic tool failure")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// leakyTool writes its output and then reports failure, simulating a tool
// that dies after producing a partial file.
type leakyTool struct{}

func (leakyTool) Check() error { return nil }

func (leakyTool) Convert(_ context.Context, src, dst string) error {
	if err := os.WriteFile(dst, []byte("half-written"), 0o644); err != nil {
		return err
	}
	return errors.New("tool crashed after writing")
}

func writeSource(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUnitsPreserveRelativePaths(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
	}{
		{name: "top level", source: "site.geojson", target: "site.gpz"},
		{name: "nested", source: "2024/q1/site.geojson", target: "2024/q1/site.gpz"},
		{name: "shapefile", source: "plots/site.shp", target: "plots/site.gpz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := t.TempDir()
			out := filepath.Join(t.TempDir(), "out")
			writeSource(t, in, tt.source)

			units, err := Units(in, out, Options{})
			if err != nil {
				t.Fatalf("Units: %v", err)
			}
			if len(units) != 1 {
				t.Fatalf("got %d units, want 1", len(units))
			}
			want := filepath.Join(out, filepath.FromSlash(tt.target))
			if units[0].Target != want {
				t.Errorf("target = %s, want %s", units[0].Target, want)
			}
		})
	}
}

func TestUnitsIgnoreOtherExtensions(t *testing.T) {
	in := t.TempDir()
	writeSource(t, in, "site.geojson")
	writeSource(t, in, "readme.txt")
	writeSource(t, in, "photo.jpg")

	units, err := Units(in, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(units) != 1 {
		t.Errorf("got %d units, want 1", len(units))
	}
}

func TestRunConvertsAll(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeSource(t, in, "a.geojson")
	writeSource(t, in, "sub/b.geojson")
	writeSource(t, in, "sub/deeper/c.geojson")

	report, err := Run(context.Background(), in, out, &fakeTool{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Units != 3 || report.Converted != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("report = %s", report)
	}
	for _, rel := range []string{"a.gpz", "sub/b.gpz", "sub/deeper/c.gpz"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel))); err != nil {
			t.Errorf("output %s missing: %v", rel, err)
		}
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}
}

func TestRunResumable(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeSource(t, in, "done.geojson")
	writeSource(t, in, "todo.geojson")

	// simulate a previous run that completed one unit
	existing := filepath.Join(out, "done.gpz")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("from the first run"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-time.Hour)
	if err := os.Chtimes(existing, stale, stale); err != nil {
		t.Fatal(err)
	}

	tool := &fakeTool{}
	report, err := Run(context.Background(), in, out, tool, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Skipped != 1 || report.Converted != 1 {
		t.Errorf("report = %s", report)
	}
	if tool.calls != 1 {
		t.Errorf("tool called %d times, want 1", tool.calls)
	}
	content, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "from the first run" {
		t.Error("existing output was rewritten")
	}
	info, err := os.Stat(existing)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stale) {
		t.Error("existing output was touched")
	}
}

func TestRunFailureIsolation(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeSource(t, in, "good1.geojson")
	writeSource(t, in, "bad.geojson")
	writeSource(t, in, "good2.geojson")

	tool := &fakeTool{failNames: map[string]bool{"bad.geojson": true}}
	report, err := Run(context.Background(), in, out, tool, Options{})
	if err != nil {
		t.Fatalf("Run returned an error for a per-unit failure: %v", err)
	}

	if report.Converted != 2 || report.Failed != 1 {
		t.Errorf("report = %s", report)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.gpz")); !os.IsNotExist(err) {
		t.Error("failed unit left an output behind")
	}
}

func TestRunFailsFastWithoutTool(t *testing.T) {
	in := t.TempDir()
	writeSource(t, in, "a.geojson")
	out := filepath.Join(t.TempDir(), "out")

	tool := ExecTool{Binary: "surveypipe-no-such-converter"}
	_, err := Run(context.Background(), in, out, tool, Options{})
	if !errors.Is(err, ErrNoTool) {
		t.Fatalf("Run error = %v, want ErrNoTool", err)
	}
	if _, statErr := os.Stat(filepath.Join(out, "a.gpz")); !os.IsNotExist(statErr) {
		t.Error("output created despite missing tool")
	}
}

func TestRunNeverLeavesPartialTarget(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeSource(t, in, "a.geojson")

	report, err := Run(context.Background(), in, out, leakyTool{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("report = %s", report)
	}
	if _, err := os.Stat(filepath.Join(out, "a.gpz")); !os.IsNotExist(err) {
		t.Error("crashed conversion left a completed-looking target")
	}
	if _, err := os.Stat(filepath.Join(out, "a.gpz"+partialSuffix)); !os.IsNotExist(err) {
		t.Error("partial file not cleaned up")
	}
}

func TestRunProgress(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeSource(t, in, "a.geojson")
	writeSource(t, in, "b.geojson")

	var calls []int
	var total int
	opts := Options{Progress: func(done, tot int) {
		calls = append(calls, done)
		total = tot
	}}
	if _, err := Run(context.Background(), in, out, &fakeTool{}, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v", calls)
	}
}

func TestRunCancelled(t *testing.T) {
	in := t.TempDir()
	writeSource(t, in, "a.geojson")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, in, filepath.Join(t.TempDir(), "out"), &fakeTool{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if report == nil || report.Converted != 0 {
		t.Errorf("report = %v", report)
	}
}

func TestReportSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	want := &Report{RunID: "run-1", Units: 5, Converted: 3, Skipped: 1, Failed: 1}
	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if got.RunID != want.RunID || got.Units != want.Units ||
		got.Converted != want.Converted || got.Skipped != want.Skipped || got.Failed != want.Failed {
		t.Errorf("round trip mismatch: got %s, want %s", got, want)
	}
}

func TestExecToolRuns(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "in.geojson")
	dst := filepath.Join(dir, "out.gpz")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := ExecTool{Binary: "cp"}
	if err := tool.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := tool.Convert(context.Background(), src, dst); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("converted content = %q", got)
	}
}
