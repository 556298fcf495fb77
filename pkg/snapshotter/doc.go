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

// Package snapshotter captures device state before and after a workload and
// diffs the two captures.
//
// # Tree captures
//
// A Capturer copies a configured set of device paths (sysfs-like trees or
// single files) to the host. It uses one of two modes:
//
//   - ModeDirectPull pulls every path with Device.Pull, one transfer per
//     path and phase. It is the only mode available on a device without
//     root access.
//   - ModeBundled copies every path into a size-bounded tmpfs mounted on the
//     device. After the workload the whole tmpfs is archived, compressed and
//     pulled in one transfer, then unpacked on the host with
//     archive.ExtractFile. It is the default on rooted devices.
//
// Config.UseTmpfs selects the mode: nil picks bundled on rooted devices,
// and requesting bundled on a device without root access is a
// configuration error reported by NewCapturer before any device command.
//
// Lifecycle of one run:
//
//	capturer, err := snapshotter.NewCapturer(dev, snapshotter.Config{
//	    Paths: []string{"/sys/devices/system/cpu", "/sys/class/thermal/*"},
//	})
//	run, err := capturer.Setup(ctx, outputDir)
//	defer run.Teardown(ctx)
//
//	_, err = run.CaptureBefore(ctx)
//	// ... workload ...
//	_, err = run.CaptureAfter(ctx)
//
//	targets, err := run.Collect(ctx)
//	err = run.Diff(targets)
//
// Host layout under outputDir mirrors the parent directory of every device
// path: "/sys/devices/system/cpu" is captured into before/sys/devices/system
// and after/sys/devices/system, and diffed into diff/sys/devices/system.
// A trailing "/*" captures the directory contents instead, so
// "/sys/class/thermal/*" lands in before/sys/class/thermal.
//
// Collect checks every after directory. A path whose after capture is empty
// while the device still lists content is logged and excluded from the
// returned targets rather than failing the run.
//
// # Table captures
//
// TableCapture captures a counter table such as /proc/interrupts by reading
// it with cat before and after the workload and renders a row-aligned diff
// with diff.Table.
//
// # Instruments
//
// SysfsInstrument and InterruptsInstrument adapt both captures to
// runner.Instrument so that runner.Runner can drive them around a workload.
//
// # Metrics
//
// Capture phases, bundle sizes and excluded paths are exported through the
// default Prometheus registry under the sysdiff_capture_ prefix.
package snapshotter
