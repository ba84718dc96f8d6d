package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tool converts one raw geometry file into one packaged output. On success
// an implementation leaves a usable file at dst; on failure it leaves
// nothing usable there.
type Tool interface {
	// Check reports whether the tool is usable at all. Run calls it once
	// before processing any unit, since a missing tool would fail every
	// unit identically.
	Check() error
	Convert(ctx context.Context, src, dst string) error
}

// ExecTool invokes an external converter binary as
//
//	binary [extraArgs...] src dst
//
// capturing stderr as the diagnostic text for failures.
type ExecTool struct {
	Binary    string
	ExtraArgs []string
	// Timeout bounds a single invocation. Zero means none: natural survey
	// inputs can be arbitrarily large, so the timeout is an operational
	// knob rather than a silent default.
	Timeout time.Duration
}

func (t ExecTool) Check() error {
	if t.Binary == "" {
		return ErrNoTool
	}
	if _, err := exec.LookPath(t.Binary); err != nil {
		return fmt.Errorf("%w: %s", ErrNoTool, t.Binary)
	}
	return nil
}

func (t ExecTool) Convert(ctx context.Context, src, dst string) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, t.ExtraArgs...), src, dst)
	cmd := exec.CommandContext(ctx, t.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if diag := strings.TrimSpace(stderr.String()); diag != "" {
			return fmt.Errorf("%s %s: %w: %s", t.Binary, src, err, diag)
		}
		return fmt.Errorf("%s %s: %w", t.Binary, src, err)
	}
	return nil
}
