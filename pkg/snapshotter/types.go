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
	"path"
	"strings"
)

// Mode is the capture strategy of a Capturer.
type Mode string

const (
	// ModeDirectPull pulls every configured path for every phase.
	ModeDirectPull Mode = "direct-pull"
	// ModeBundled stages captures in an on-device tmpfs and pulls one archive.
	ModeBundled Mode = "bundled"
)

// Phase identifies the side of a capture relative to the workload.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
	phaseDiff   Phase = "diff"
)

// Config configures a Capturer.
type Config struct {
	// Paths are the device paths to capture. A trailing "/*" captures the
	// contents of the directory rather than the directory itself.
	Paths []string `json:"paths" yaml:"paths"`

	// UseTmpfs forces the bundled mode (true) or the direct-pull mode
	// (false). Nil selects bundled mode on rooted devices.
	UseTmpfs *bool `json:"use_tmpfs,omitempty" yaml:"use_tmpfs,omitempty"`

	// TmpfsMountPoint is the device scratch mount point, by default
	// "temp-fs" under the device working directory.
	TmpfsMountPoint string `json:"tmpfs_mount_point,omitempty" yaml:"tmpfs_mount_point,omitempty"`

	// TmpfsSize is the size option passed to the tmpfs mount, e.g. "32m".
	TmpfsSize string `json:"tmpfs_size,omitempty" yaml:"tmpfs_size,omitempty"`

	// NumericDelta renders changed integer tokens as signed differences.
	NumericDelta bool `json:"numeric_delta,omitempty" yaml:"numeric_delta,omitempty"`
}

// SnapshotEntry pairs a device path with the host directory holding its capture.
type SnapshotEntry struct {
	DevicePath string `json:"devicePath" yaml:"devicePath"`
	HostDir    string `json:"hostDir" yaml:"hostDir"`
}

// Snapshot is one point-in-time capture of all configured paths.
type Snapshot struct {
	Phase   Phase           `json:"phase" yaml:"phase"`
	Entries []SnapshotEntry `json:"entries" yaml:"entries"`
}

// DiffTarget is the set of host directories derived from one device path.
type DiffTarget struct {
	DevicePath string
	BeforeDir  string
	AfterDir   string
	DiffDir    string
}

// relative strips the leading separators of a device path.
func relative(devicePath string) string {
	return strings.TrimLeft(devicePath, "/")
}

// hostRelDir is the directory, relative to a phase root, that receives the
// capture of devicePath.
func hostRelDir(devicePath string) string {
	return path.Dir(relative(devicePath))
}

func isWildcard(devicePath string) bool {
	return strings.HasSuffix(devicePath, "*")
}
