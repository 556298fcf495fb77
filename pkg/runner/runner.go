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

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NVIDIA/sysdiff/pkg/result"
)

// Context is the per-run state shared with instruments.
type Context struct {
	// OutputDir is the host directory receiving all artifacts of the run.
	OutputDir string

	// Result collects metrics and artifacts.
	Result *result.Result
}

// Instrument observes a workload run.
type Instrument interface {
	Name() string
	Setup(ctx context.Context, rc *Context) error
	Before(ctx context.Context, rc *Context) error
	After(ctx context.Context, rc *Context) error
	Finalize(ctx context.Context, rc *Context) error
	Teardown(ctx context.Context, rc *Context) error
}

// Workload is the job measured by the instruments.
type Workload func(ctx context.Context) error

// Runner invokes instruments around a workload.
type Runner struct {
	instruments []Instrument
}

// New returns a Runner for the given instruments.
func New(instruments ...Instrument) *Runner {
	return &Runner{instruments: instruments}
}

// Run executes workload between the Before and After phases. The returned
// error joins the workload error with any Finalize and Teardown failures.
func (r *Runner) Run(ctx context.Context, rc *Context, workload Workload) (err error) {
	if rc == nil || rc.Result == nil {
		return errors.New("runner context requires a result sink")
	}

	set := 0
	defer func() {
		for i := set - 1; i >= 0; i-- {
			inst := r.instruments[i]
			if tErr := inst.Teardown(ctx, rc); tErr != nil {
				slog.Warn("instrument teardown failed", "instrument", inst.Name(), "error", tErr)
				err = errors.Join(err, fmt.Errorf("%s teardown: %w", inst.Name(), tErr))
			}
		}
	}()

	for _, inst := range r.instruments {
		set++
		if sErr := inst.Setup(ctx, rc); sErr != nil {
			return fmt.Errorf("%s setup: %w", inst.Name(), sErr)
		}
	}

	for _, inst := range r.instruments {
		slog.Debug("instrument before workload", "instrument", inst.Name())
		if bErr := inst.Before(ctx, rc); bErr != nil {
			return fmt.Errorf("%s before workload: %w", inst.Name(), bErr)
		}
	}

	wErr := workload(ctx)
	if wErr != nil {
		slog.Error("workload failed", "error", wErr)
		err = fmt.Errorf("workload: %w", wErr)
	} else {
		for i := len(r.instruments) - 1; i >= 0; i-- {
			inst := r.instruments[i]
			slog.Debug("instrument after workload", "instrument", inst.Name())
			if aErr := inst.After(ctx, rc); aErr != nil {
				return fmt.Errorf("%s after workload: %w", inst.Name(), aErr)
			}
		}
	}

	for _, inst := range r.instruments {
		if fErr := inst.Finalize(ctx, rc); fErr != nil {
			slog.Error("instrument finalize failed", "instrument", inst.Name(), "error", fErr)
			err = errors.Join(err, fmt.Errorf("%s finalize: %w", inst.Name(), fErr))
		}
	}
	return err
}

// ExecutionTimer records the wall-clock duration of the workload as the
// execution_time metric.
type ExecutionTimer struct {
	start time.Time
	end   time.Time
	now   func() time.Time
}

// NewExecutionTimer returns a timer instrument.
func NewExecutionTimer() *ExecutionTimer {
	return &ExecutionTimer{now: time.Now}
}

// Name implements Instrument.
func (t *ExecutionTimer) Name() string { return "execution_time" }

// Setup implements Instrument.
func (t *ExecutionTimer) Setup(context.Context, *Context) error {
	t.start, t.end = time.Time{}, time.Time{}
	return nil
}

// Before implements Instrument.
func (t *ExecutionTimer) Before(context.Context, *Context) error {
	t.start = t.now()
	return nil
}

// After implements Instrument.
func (t *ExecutionTimer) After(context.Context, *Context) error {
	t.end = t.now()
	return nil
}

// Finalize implements Instrument.
func (t *ExecutionTimer) Finalize(_ context.Context, rc *Context) error {
	if t.start.IsZero() || t.end.IsZero() {
		slog.Debug("workload did not complete, execution_time not recorded")
		return nil
	}
	rc.Result.AddMetric("execution_time", t.end.Sub(t.start).Seconds(), "seconds")
	return nil
}

// Teardown implements Instrument.
func (t *ExecutionTimer) Teardown(context.Context, *Context) error { return nil }
