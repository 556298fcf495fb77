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

// Package cli implements the sysdiff command line.
//
// # Commands
//
// capture - snapshot device state around a workload:
//
//	sysdiff capture [device flags] -p /sys/class/devfreq/* --interrupts -- ./bench
//
// Opens the device (--device local|ssh|pod), captures every configured path
// and optionally the interrupt table before and after the workload, diffs
// them under --output-dir and writes a result document (metrics such as
// execution_time plus the list of diff artifacts) to --output, which accepts
// a file or a ConfigMap URI (cm://namespace/name).
//
// diff - re-diff two host capture trees:
//
//	sysdiff diff [--numeric-delta] <before-dir> <after-dir> <diff-dir>
//
// diff-table - diff two counter tables:
//
//	sysdiff diff-table [--numeric-delta] [--output FILE] <before> <after>
//
// # Global Flags
//
//	--log-level      debug, info, warn, error (default info)
//	--metrics-file   write Prometheus metrics in text format on exit
//
// # Configuration
//
// capture reads an optional YAML or JSON document with --config. Flags set
// on the command line override the document. Every flag also reads a
// SYSDIFF_-prefixed environment variable, e.g. SYSDIFF_DEVICE or
// SYSDIFF_SSH_HOST.
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/sysdiff/pkg/cli.version=0.2.0'"
package cli
