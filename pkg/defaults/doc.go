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

// Package defaults provides centralized configuration constants for sysdiff.
//
// This package defines timeout values, size limits and on-device names used
// across the capture and diff code. Centralizing these values ensures
// consistency and makes tuning easier.
//
// # Timeout Categories
//
//   - Device timeouts: for remote shell commands and file transfers
//   - Kubernetes timeouts: for K8s API operations
//   - SSH timeouts: for establishing SSH sessions
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.DeviceCommandTimeout)
//	defer cancel()
//
// # Timeout Guidelines
//
// Device commands are short (mkdir, cp, mount). Transfers and bundling scale
// with the amount of captured state and get a longer budget.
package defaults
