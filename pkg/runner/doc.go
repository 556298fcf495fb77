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

// Package runner drives instruments around a single workload execution.
//
// An Instrument observes a run through five phases invoked in a fixed order:
//
//  1. Setup: every instrument, in registration order.
//  2. Before: every instrument, in registration order, immediately before
//     the workload starts.
//  3. After: in reverse registration order, immediately after the workload
//     ends. Skipped when the workload fails.
//  4. Finalize: every instrument, in registration order, to derive results.
//  5. Teardown: in reverse order, always, for every instrument whose Setup
//     was attempted.
//
// Registering ExecutionTimer last makes it the innermost instrument, so the
// execution_time metric covers only the workload and not the captures.
//
// A failure in Setup or Before aborts the run before the workload starts.
// Finalize and Teardown failures are collected and returned together.
package runner
