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

// Package device provides access to the device whose state is captured.
//
// # Overview
//
// Capture code depends only on the Device interface: run a shell command
// (optionally as root, optionally tolerating a non-zero exit code), pull a
// file or directory tree to the host, remove a path, test for existence and
// list a directory. ShellDevice implements Device on top of a Transport that
// can run a single POSIX shell command and stream its output.
//
// # Transports
//
//   - LocalTransport runs commands on the host through k8s.io/utils/exec.
//   - SSHTransport runs commands over an SSH session (golang.org/x/crypto/ssh).
//   - PodTransport execs into a Kubernetes pod container (client-go remotecommand).
//
// # Root access
//
// New probes the device once: a uid of 0 makes every command root-capable
// as is, otherwise a passwordless "sudo -n true" enables root commands
// through sudo. A device that passes neither probe is not rooted, which
// restricts capture to the direct-pull strategy.
//
// # Pulling trees
//
// Directory pulls stage the tree in a private directory under the device
// working directory with "cp -RH" before streaming it as a tar archive. sysfs
// and procfs report page-sized file lengths that tar would otherwise pad with
// zeros. The stream is extracted on the host with archive.ExtractFile.
package device
