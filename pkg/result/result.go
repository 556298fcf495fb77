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

// Package result holds the metrics and artifacts recorded by a capture run.
package result

import (
	"github.com/google/uuid"

	"github.com/NVIDIA/sysdiff/pkg/header"
)

// APIVersion is the schema version of serialized results.
const APIVersion = "sysdiff.nvidia.com/v1alpha1"

// Artifact kinds.
const (
	ArtifactTreeDiff  = "tree-diff"
	ArtifactTableDiff = "table-diff"
	ArtifactCapture   = "capture"
	ArtifactLog       = "log"
)

// Metric is a named scalar measurement.
type Metric struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Artifact is a host-side file or directory produced by the run.
type Artifact struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Kind string `json:"kind" yaml:"kind"`
}

// Result is the sink instruments report into.
type Result struct {
	header.Header `json:",inline" yaml:",inline"`

	// RunID uniquely identifies the run.
	RunID string `json:"runID" yaml:"runID"`

	Metrics   []Metric   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// New returns an empty Result with a fresh run ID.
func New(version string) *Result {
	r := &Result{RunID: uuid.NewString()}
	r.Init(header.KindCaptureResult, APIVersion, version)
	return r
}

// AddMetric records a metric. Adding a metric with an existing name
// appends a second sample rather than replacing the first.
func (r *Result) AddMetric(name string, value float64, unit string) {
	r.Metrics = append(r.Metrics, Metric{Name: name, Value: value, Unit: unit})
}

// AddArtifact records an artifact produced by the run.
func (r *Result) AddArtifact(name, path, kind string) {
	r.Artifacts = append(r.Artifacts, Artifact{Name: name, Path: path, Kind: kind})
}

// Metric returns the first metric recorded under name.
func (r *Result) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}
