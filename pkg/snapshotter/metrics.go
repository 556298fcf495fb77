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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	capturePhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sysdiff_capture_phase_duration_seconds",
			Help:    "Time taken by each capture phase",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"phase", "mode"}, // setup, before, after, collect, diff, teardown
	)

	capturePhaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sysdiff_capture_phase_total",
			Help: "Total number of capture phase executions",
		},
		[]string{"phase", "status"}, // success or error
	)

	captureBundleBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sysdiff_capture_bundle_bytes",
			Help:    "Size of the compressed bundle pulled from the device",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 8),
		},
	)

	captureExcludedPaths = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sysdiff_capture_excluded_paths_total",
			Help: "Configured paths excluded from diffing because their after capture was empty",
		},
	)
)

func observePhase(phase string, mode Mode, seconds float64, err error) {
	capturePhaseDuration.WithLabelValues(phase, string(mode)).Observe(seconds)
	status := "success"
	if err != nil {
		status = "error"
	}
	capturePhaseTotal.WithLabelValues(phase, status).Inc()
}
