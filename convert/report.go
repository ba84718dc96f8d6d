package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio"
)

// Report summarizes one conversion run. It is written next to the outputs as
// a sidecar for audit, not consulted as a checkpoint: the presence of output
// files is the only completion marker.
type Report struct {
	RunID     string    `json:"run_id"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Units     int       `json:"units"`
	Converted int       `json:"converted"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// Save writes the report as JSON, atomically replacing any previous report.
func (r *Report) Save(path string) error {
	buf, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(buf, '\n'), 0o644)
}

// LoadReport reads a report written by Save.
func LoadReport(path string) (*Report, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(buf, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

func (r *Report) String() string {
	return fmt.Sprintf("units: %d, converted: %d, skipped: %d, failed: %d",
		r.Units, r.Converted, r.Skipped, r.Failed)
}
