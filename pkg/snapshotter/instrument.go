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
	"errors"
	"path/filepath"

	"github.com/NVIDIA/sysdiff/pkg/result"
	"github.com/NVIDIA/sysdiff/pkg/runner"
)

// SysfsInstrument drives a Capturer from a runner.Runner.
type SysfsInstrument struct {
	capturer *Capturer
	run      *Run
	after    bool
}

// NewSysfsInstrument returns an instrument for capturer.
func NewSysfsInstrument(capturer *Capturer) *SysfsInstrument {
	return &SysfsInstrument{capturer: capturer}
}

// Name implements runner.Instrument.
func (i *SysfsInstrument) Name() string { return "sysfs" }

// Setup implements runner.Instrument.
func (i *SysfsInstrument) Setup(ctx context.Context, rc *runner.Context) error {
	run, err := i.capturer.Setup(ctx, rc.OutputDir)
	if err != nil {
		return err
	}
	i.run = run
	i.after = false
	return nil
}

// Before implements runner.Instrument.
func (i *SysfsInstrument) Before(ctx context.Context, _ *runner.Context) error {
	_, err := i.run.CaptureBefore(ctx)
	return err
}

// After implements runner.Instrument.
func (i *SysfsInstrument) After(ctx context.Context, _ *runner.Context) error {
	if _, err := i.run.CaptureAfter(ctx); err != nil {
		return err
	}
	i.after = true
	return nil
}

// Finalize implements runner.Instrument. Nothing is diffed when the after
// capture did not run.
func (i *SysfsInstrument) Finalize(ctx context.Context, rc *runner.Context) error {
	if i.run == nil {
		return errors.New("sysfs instrument was not set up")
	}
	if !i.after {
		return nil
	}

	targets, err := i.run.Collect(ctx)
	if err != nil {
		return err
	}
	if err := i.run.Diff(targets); err != nil {
		return err
	}

	rc.Result.AddMetric("sysfs_paths_diffed", float64(len(targets)), "paths")
	for _, t := range targets {
		rel, err := filepath.Rel(rc.OutputDir, t.DiffDir)
		if err != nil {
			rel = t.DiffDir
		}
		rc.Result.AddArtifact(t.DevicePath, rel, result.ArtifactTreeDiff)
	}
	return nil
}

// Teardown implements runner.Instrument.
func (i *SysfsInstrument) Teardown(ctx context.Context, _ *runner.Context) error {
	if i.run == nil {
		return nil
	}
	err := i.run.Teardown(ctx)
	i.run = nil
	return err
}

// InterruptsInstrument drives a TableCapture from a runner.Runner.
type InterruptsInstrument struct {
	table *TableCapture
}

// NewInterruptsInstrument returns an instrument for table.
func NewInterruptsInstrument(table *TableCapture) *InterruptsInstrument {
	return &InterruptsInstrument{table: table}
}

// Name implements runner.Instrument.
func (i *InterruptsInstrument) Name() string { return "interrupts" }

// Setup implements runner.Instrument.
func (i *InterruptsInstrument) Setup(_ context.Context, rc *runner.Context) error {
	return i.table.Setup(rc.OutputDir)
}

// Before implements runner.Instrument.
func (i *InterruptsInstrument) Before(ctx context.Context, _ *runner.Context) error {
	return i.table.Capture(ctx, PhaseBefore)
}

// After implements runner.Instrument.
func (i *InterruptsInstrument) After(ctx context.Context, _ *runner.Context) error {
	return i.table.Capture(ctx, PhaseAfter)
}

// Finalize implements runner.Instrument.
func (i *InterruptsInstrument) Finalize(_ context.Context, rc *runner.Context) error {
	ok, err := i.table.Diff()
	if err != nil || !ok {
		return err
	}
	rel, relErr := filepath.Rel(rc.OutputDir, i.table.DiffFile())
	if relErr != nil {
		rel = i.table.DiffFile()
	}
	rc.Result.AddArtifact(i.table.DevicePath(), rel, result.ArtifactTableDiff)
	return nil
}

// Teardown implements runner.Instrument.
func (i *InterruptsInstrument) Teardown(context.Context, *runner.Context) error { return nil }
