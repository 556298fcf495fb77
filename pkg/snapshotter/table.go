// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snapshotter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/NVIDIA/sysdiff/pkg/device"
	"github.com/NVIDIA/sysdiff/pkg/diff"
)

// DefaultTablePath is the counter table captured by default.
const DefaultTablePath = "/proc/interrupts"

// TableCapture captures one counter table file before and after the
// workload and diffs the two captures row by row.
type TableCapture struct {
	dev          device.Device
	devicePath   string
	numericDelta bool

	beforeFile string
	afterFile  string
	diffFile   string
}

// NewTableCapture returns a capture of devicePath, DefaultTablePath when empty.
func NewTableCapture(dev device.Device, devicePath string, numericDelta bool) *TableCapture {
	if devicePath == "" {
		devicePath = DefaultTablePath
	}
	return &TableCapture{dev: dev, devicePath: devicePath, numericDelta: numericDelta}
}

// Setup resolves the host files under outputDir and creates their parents.
// Captures left over from a previous run in the same directory are removed.
func (t *TableCapture) Setup(outputDir string) error {
	rel := filepath.FromSlash(relative(t.devicePath))
	t.beforeFile = filepath.Join(outputDir, string(PhaseBefore), rel)
	t.afterFile = filepath.Join(outputDir, string(PhaseAfter), rel)
	t.diffFile = filepath.Join(outputDir, string(phaseDiff), rel)

	for _, f := range []string{t.beforeFile, t.afterFile, t.diffFile} {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", f, err)
		}
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear %q: %w", f, err)
		}
	}
	return nil
}

// Capture reads the table on the device and stores it for phase.
func (t *TableCapture) Capture(ctx context.Context, phase Phase) (err error) {
	start := time.Now()
	defer func() { observePhase("table_"+string(phase), ModeDirectPull, time.Since(start).Seconds(), err) }()

	out, err := t.dev.Execute(ctx, "cat "+device.Quote(t.devicePath))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", t.devicePath, err)
	}

	dest := t.beforeFile
	if phase == PhaseAfter {
		dest = t.afterFile
	}
	if err := os.WriteFile(dest, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", dest, err)
	}
	return nil
}

// Diff renders the table diff. It reports false without error when the
// after capture is missing, which happens when the workload failed.
func (t *TableCapture) Diff() (bool, error) {
	if _, err := os.Stat(t.afterFile); err != nil {
		slog.Warn("after capture missing, skipping table diff", "path", t.devicePath)
		return false, nil
	}

	var opts []diff.Option
	if t.numericDelta {
		opts = append(opts, diff.WithTokenDiff(diff.DeltaTokens))
	}
	if err := diff.WriteTableFile(t.beforeFile, t.afterFile, t.diffFile, opts...); err != nil {
		return false, err
	}
	return true, nil
}

// DevicePath returns the captured device file.
func (t *TableCapture) DevicePath() string { return t.devicePath }

// DiffFile returns the host path of the rendered diff.
func (t *TableCapture) DiffFile() string { return t.diffFile }
