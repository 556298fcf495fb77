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

// Package archive extracts tar archives pulled from a device.
//
// Extraction is all-or-nothing with respect to path safety: every member is
// validated against the destination before a single byte is written. A member
// is rejected when its target, joined onto the destination and made absolute,
// is neither the destination itself nor located beneath it, when a hard link
// points outside the destination, or when a member would be written through a
// symbolic link carried by the same archive. A rejected archive fails with an
// ErrCodeArchiveSecurity StructuredError and leaves the destination untouched.
//
// Ownership metadata is never applied. Regular files and directories keep
// their permission bits, widened so the extracting user can read them back.
// Symbolic links whose targets resolve outside the destination, device nodes
// and FIFOs are not materialized.
//
// Usage:
//
//	if err := archive.Gunzip("sysfs.tar.gz", "sysfs.tar"); err != nil {
//	    return err
//	}
//	if err := archive.ExtractFile("sysfs.tar", outputDir); err != nil {
//	    return err
//	}
package archive
