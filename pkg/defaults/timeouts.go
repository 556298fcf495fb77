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

package defaults

import "time"

// Device timeouts for remote command execution and transfer.
const (
	// DeviceCommandTimeout bounds a single short device shell command.
	DeviceCommandTimeout = 30 * time.Second

	// DevicePullTimeout bounds a single device-to-host transfer.
	DevicePullTimeout = 5 * time.Minute

	// DeviceBundleTimeout bounds on-device tar and gzip of the tmpfs contents.
	DeviceBundleTimeout = 2 * time.Minute

	// RootProbeTimeout bounds the rootedness probe performed when a device is opened.
	RootProbeTimeout = 10 * time.Second

	// WorkloadTimeout bounds the workload command run between captures.
	WorkloadTimeout = 30 * time.Minute
)

// Kubernetes timeouts for K8s API operations.
const (
	// ConfigMapWriteTimeout is the timeout for writing results to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second
)

// SSH timeouts.
const (
	// SSHDialTimeout is the timeout for establishing the TCP connection and handshake.
	SSHDialTimeout = 15 * time.Second
)

// Capture defaults.
const (
	// TmpfsSize is the default size of the on-device capture tmpfs.
	TmpfsSize = "32m"

	// TmpfsDirName is the scratch mount point name under the device working directory.
	TmpfsDirName = "temp-fs"

	// BundleName is the on-device archive name for tmpfs captures (before gzip).
	BundleName = "sysfs.tar"

	// DeviceWorkingDirectory is used when a device does not report one.
	DeviceWorkingDirectory = "/tmp/sysdiff"

	// Busybox is the default prefix for BusyBox-style utilities; empty uses the system tools.
	Busybox = ""
)
