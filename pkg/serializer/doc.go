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

// Package serializer writes and reads sysdiff documents.
//
// Writers support three formats:
//   - JSON: indented, machine readable
//   - YAML: human readable, also used for configuration files
//   - Table: aligned columns for terminals; capture results list their
//     metrics and artifacts, other documents flatten to FIELD/VALUE rows
//
// NewFileWriterOrStdout picks the sink from a destination string: empty
// means stdout, "cm://namespace/name" writes a Kubernetes ConfigMap with
// server-side apply, anything else is a file path.
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "out/result.yaml")
//	defer serializer.Close(w)
//	if err := w.Serialize(ctx, res); err != nil {
//	    return err
//	}
//
// FromFile reads a JSON or YAML document from a file (format taken from the
// extension) or from the first JSON or YAML data key of a ConfigMap.
package serializer
