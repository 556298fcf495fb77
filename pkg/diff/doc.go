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

// Package diff compares before and after captures of device state.
//
// Two comparisons are provided:
//
//   - Tree walks every regular file of a before directory, pairs it with the
//     same relative path in an after directory and writes a parallel diff
//     file. Lines are split into word and separator tokens so that a diff
//     line reproduces the original spacing and punctuation and only the
//     changed values are annotated.
//   - Table aligns two counter tables (e.g. /proc/interrupts) by their first
//     column, tolerating rows that appear only in the after capture.
//
// Token annotation is delegated to a TokenDiffFunc. DiffTokens renders a
// changed token as "[before -> after]"; DeltaTokens renders the difference of
// two integer counters instead.
//
// Content mismatches never fail a diff: lines whose token counts differ are
// written verbatim behind the "xxx " marker, and files missing from the after
// capture are skipped. Both are logged at debug level.
package diff
