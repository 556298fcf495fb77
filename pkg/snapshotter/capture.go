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
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/NVIDIA/sysdiff/pkg/archive"
	"github.com/NVIDIA/sysdiff/pkg/defaults"
	"github.com/NVIDIA/sysdiff/pkg/device"
	"github.com/NVIDIA/sysdiff/pkg/diff"
	cerrors "github.com/NVIDIA/sysdiff/pkg/errors"
)

// tmpfsSizePattern matches the size= values accepted by mount -t tmpfs.
var tmpfsSizePattern = regexp.MustCompile(`^[0-9]+[kmgKMG%]?$`)

// Capturer captures a fixed set of device paths.
type Capturer struct {
	dev  device.Device
	cfg  Config
	mode Mode
}

// NewCapturer validates cfg against the capabilities of dev and resolves
// the capture mode. It does not run any device command.
func NewCapturer(dev device.Device, cfg Config) (*Capturer, error) {
	if len(cfg.Paths) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeConfiguration, "at least one device path is required")
	}
	for _, p := range cfg.Paths {
		if relative(p) == "" || relative(p) == "*" {
			return nil, cerrors.NewWithContext(cerrors.ErrCodeConfiguration,
				"device path must name a directory or file below the root",
				map[string]any{"path": p})
		}
	}

	mode := ModeDirectPull
	switch {
	case cfg.UseTmpfs == nil:
		if dev.IsRooted() {
			mode = ModeBundled
		}
	case *cfg.UseTmpfs:
		if !dev.IsRooted() {
			return nil, cerrors.New(cerrors.ErrCodeConfiguration,
				"use_tmpfs requires a rooted device")
		}
		mode = ModeBundled
	}

	if cfg.TmpfsMountPoint == "" {
		cfg.TmpfsMountPoint = path.Join(dev.WorkingDirectory(), defaults.TmpfsDirName)
	}
	if cfg.TmpfsSize == "" {
		cfg.TmpfsSize = defaults.TmpfsSize
	}
	if !tmpfsSizePattern.MatchString(cfg.TmpfsSize) {
		return nil, cerrors.NewWithContext(cerrors.ErrCodeConfiguration,
			"tmpfs size must be a number with an optional k, m, g or % suffix",
			map[string]any{"tmpfs_size": cfg.TmpfsSize})
	}
	cfg.Paths = slices.Clone(cfg.Paths)

	slog.Debug("capture mode resolved",
		"mode", mode,
		"rooted", dev.IsRooted(),
		"paths", len(cfg.Paths))

	return &Capturer{dev: dev, cfg: cfg, mode: mode}, nil
}

// Mode returns the resolved capture mode.
func (c *Capturer) Mode() Mode { return c.mode }

// Config returns the effective configuration, defaults applied.
func (c *Capturer) Config() Config { return c.cfg }

// Run is the state of one capture run. It is created by Setup and must be
// released with Teardown.
type Run struct {
	dev       device.Device
	cfg       Config
	mode      Mode
	outputDir string
	targets   []DiffTarget
}

// Setup prepares a run writing into outputDir. In bundled mode it mounts
// the device tmpfs (unless the mount point already exists) and recreates
// the before and after staging directories of every path.
func (c *Capturer) Setup(ctx context.Context, outputDir string) (run *Run, err error) {
	start := time.Now()
	defer func() { observePhase("setup", c.mode, time.Since(start).Seconds(), err) }()

	r := &Run{
		dev:       c.dev,
		cfg:       c.cfg,
		mode:      c.mode,
		outputDir: outputDir,
	}

	for _, p := range c.cfg.Paths {
		rel := filepath.FromSlash(hostRelDir(p))
		t := DiffTarget{
			DevicePath: p,
			BeforeDir:  filepath.Join(outputDir, string(PhaseBefore), rel),
			AfterDir:   filepath.Join(outputDir, string(PhaseAfter), rel),
			DiffDir:    filepath.Join(outputDir, string(phaseDiff), rel),
		}
		for _, dir := range []string{t.BeforeDir, t.AfterDir, t.DiffDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create %q: %w", dir, err)
			}
		}
		r.targets = append(r.targets, t)
	}

	if c.mode == ModeBundled {
		if err := r.prepareTmpfs(ctx); err != nil {
			// The tmpfs may already be mounted; release it before failing.
			_ = r.Teardown(ctx)
			return nil, err
		}
	}
	return r, nil
}

func (r *Run) prepareTmpfs(ctx context.Context) error {
	mp := r.cfg.TmpfsMountPoint
	exists, err := r.dev.FileExists(ctx, mp)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := r.dev.Execute(ctx, "mkdir -p "+device.Quote(mp), device.AsRoot()); err != nil {
			return err
		}
		mount := fmt.Sprintf("mount -t tmpfs -o size=%s tmpfs %s", r.cfg.TmpfsSize, device.Quote(mp))
		if _, err := r.dev.Execute(ctx, mount, device.AsRoot()); err != nil {
			return err
		}
		slog.Debug("mounted capture tmpfs", "mount_point", mp, "size", r.cfg.TmpfsSize)
	}

	for _, p := range r.cfg.Paths {
		for _, phase := range []Phase{PhaseBefore, PhaseAfter} {
			dir := path.Join(mp, string(phase), hostRelDir(p))
			exists, err := r.dev.FileExists(ctx, dir)
			if err != nil {
				return err
			}
			if exists {
				if _, err := r.dev.Execute(ctx, "rm -rf "+device.Quote(dir), device.AsRoot()); err != nil {
					return err
				}
			}
			if _, err := r.dev.Execute(ctx, "mkdir -p "+device.Quote(dir), device.AsRoot()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Mode returns the capture mode of the run.
func (r *Run) Mode() Mode { return r.mode }

// Targets returns the diff targets of every configured path.
func (r *Run) Targets() []DiffTarget { return slices.Clone(r.targets) }

// CaptureBefore captures every configured path ahead of the workload.
func (r *Run) CaptureBefore(ctx context.Context) (*Snapshot, error) {
	return r.capture(ctx, PhaseBefore)
}

// CaptureAfter captures every configured path once the workload has ended.
func (r *Run) CaptureAfter(ctx context.Context) (*Snapshot, error) {
	return r.capture(ctx, PhaseAfter)
}

func (r *Run) capture(ctx context.Context, phase Phase) (snap *Snapshot, err error) {
	start := time.Now()
	defer func() { observePhase(string(phase), r.mode, time.Since(start).Seconds(), err) }()

	snap = &Snapshot{Phase: phase}
	for _, t := range r.targets {
		hostDir := t.BeforeDir
		if phase == PhaseAfter {
			hostDir = t.AfterDir
		}

		if r.mode == ModeBundled {
			r.stage(ctx, phase, t.DevicePath)
		} else if err := r.dev.Pull(ctx, t.DevicePath, hostDir); err != nil {
			return nil, fmt.Errorf("failed to pull %s for %s capture: %w", t.DevicePath, phase, err)
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{DevicePath: t.DevicePath, HostDir: hostDir})
	}

	slog.Debug("capture complete", "phase", phase, "mode", r.mode, "paths", len(snap.Entries))
	return snap, nil
}

// stage copies one path into the tmpfs. Copy failures are tolerated so one
// unreadable path does not abort the batch; Collect reports empty captures.
func (r *Run) stage(ctx context.Context, phase Phase, devicePath string) {
	dest := path.Join(r.cfg.TmpfsMountPoint, string(phase), relative(devicePath))
	if isWildcard(devicePath) {
		dest = path.Dir(dest)
	}
	cmd := fmt.Sprintf("%s -Hr %s %s", busybox(r.dev, "cp"), device.QuotePath(devicePath), device.Quote(dest))
	if _, err := r.dev.Execute(ctx, cmd, device.AsRoot(), device.IgnoreExitCode()); err != nil {
		slog.Warn("failed to stage device path", "path", devicePath, "phase", phase, "error", err)
	}
}

// Collect brings bundled captures to the host and returns the targets
// worth diffing. Targets whose after capture is empty while the device
// still has content are logged and left out.
func (r *Run) Collect(ctx context.Context) (targets []DiffTarget, err error) {
	start := time.Now()
	defer func() { observePhase("collect", r.mode, time.Since(start).Seconds(), err) }()

	if r.mode == ModeBundled {
		if err := r.pullBundle(ctx); err != nil {
			return nil, err
		}
	}

	kept := make([]DiffTarget, 0, len(r.targets))
	for _, t := range slices.Clone(r.targets) {
		missing, err := r.missingAfter(ctx, t)
		if err != nil {
			return nil, err
		}
		if missing {
			slog.Error("device files were not pulled, excluding path from diff",
				"path", t.DevicePath, "after_dir", t.AfterDir)
			captureExcludedPaths.Inc()
			continue
		}
		kept = append(kept, t)
	}
	r.targets = kept
	return slices.Clone(kept), nil
}

func (r *Run) missingAfter(ctx context.Context, t DiffTarget) (bool, error) {
	entries, err := os.ReadDir(t.AfterDir)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %q: %w", t.AfterDir, err)
	}
	if len(entries) > 0 {
		return false, nil
	}

	devPath := strings.TrimRight(t.DevicePath, "*")
	exists, err := r.dev.FileExists(ctx, devPath)
	if err != nil || !exists {
		return false, err
	}
	listing, err := r.dev.ListDir(ctx, devPath)
	if err != nil {
		return false, err
	}
	return len(listing) > 0, nil
}

func (r *Run) pullBundle(ctx context.Context) error {
	bundle := path.Join(r.dev.WorkingDirectory(), defaults.BundleName)
	compressed := bundle + ".gz"

	tarCmd := fmt.Sprintf("%s cf %s -C %s .", busybox(r.dev, "tar"), device.Quote(bundle), device.Quote(r.cfg.TmpfsMountPoint))
	if _, err := r.dev.Execute(ctx, tarCmd, device.AsRoot(), device.WithTimeout(defaults.DeviceBundleTimeout)); err != nil {
		return err
	}
	if _, err := r.dev.Execute(ctx, "chmod 0777 "+device.Quote(bundle), device.AsRoot()); err != nil {
		return err
	}
	gzipCmd := fmt.Sprintf("%s -f %s", busybox(r.dev, "gzip"), device.Quote(bundle))
	if _, err := r.dev.Execute(ctx, gzipCmd, device.WithTimeout(defaults.DeviceBundleTimeout)); err != nil {
		return err
	}

	hostCompressed := filepath.Join(r.outputDir, defaults.BundleName+".gz")
	hostTar := filepath.Join(r.outputDir, defaults.BundleName)
	defer func() {
		for _, f := range []string{hostCompressed, hostTar} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove bundle", "path", f, "error", err)
			}
		}
	}()

	if err := r.dev.Pull(ctx, compressed, hostCompressed); err != nil {
		return fmt.Errorf("failed to pull bundle: %w", err)
	}
	if fi, err := os.Stat(hostCompressed); err == nil {
		captureBundleBytes.Observe(float64(fi.Size()))
	}
	if err := r.dev.Remove(ctx, compressed); err != nil {
		slog.Warn("failed to remove device bundle", "path", compressed, "error", err)
	}

	if err := archive.Gunzip(hostCompressed, hostTar); err != nil {
		return err
	}
	if err := archive.ExtractFile(hostTar, r.outputDir); err != nil {
		return err
	}

	slog.Debug("bundle extracted", "output_dir", r.outputDir)
	return nil
}

// Diff writes the tree diff of every target. Content mismatches are only
// logged; an error means a diff file could not be written.
func (r *Run) Diff(targets []DiffTarget) (err error) {
	start := time.Now()
	defer func() { observePhase(string(phaseDiff), r.mode, time.Since(start).Seconds(), err) }()

	var opts []diff.Option
	if r.cfg.NumericDelta {
		opts = append(opts, diff.WithTokenDiff(diff.DeltaTokens))
	}
	for _, t := range targets {
		if err := diff.Tree(t.BeforeDir, t.AfterDir, t.DiffDir, opts...); err != nil {
			return fmt.Errorf("failed to diff %s: %w", t.DevicePath, err)
		}
	}
	return nil
}

// Teardown unmounts and removes the device tmpfs. Both steps are best
// effort and never fail the run.
func (r *Run) Teardown(ctx context.Context) error {
	if r.mode != ModeBundled {
		return nil
	}
	start := time.Now()
	defer func() { observePhase("teardown", r.mode, time.Since(start).Seconds(), nil) }()

	mp := device.Quote(r.cfg.TmpfsMountPoint)
	if _, err := r.dev.Execute(ctx, "umount "+mp, device.AsRoot()); err != nil {
		slog.Debug("tmpfs unmount failed", "mount_point", r.cfg.TmpfsMountPoint, "error", err)
	}
	if _, err := r.dev.Execute(ctx, "rm -rf "+mp, device.AsRoot(), device.IgnoreExitCode()); err != nil {
		slog.Debug("tmpfs removal failed", "mount_point", r.cfg.TmpfsMountPoint, "error", err)
	}
	return nil
}

func busybox(dev device.Device, tool string) string {
	if prefix := dev.Busybox(); prefix != "" {
		return prefix + " " + tool
	}
	return tool
}
