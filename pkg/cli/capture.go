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

package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/defaults"
	"github.com/NVIDIA/sysdiff/pkg/device"
	"github.com/NVIDIA/sysdiff/pkg/errors"
	"github.com/NVIDIA/sysdiff/pkg/result"
	"github.com/NVIDIA/sysdiff/pkg/runner"
	"github.com/NVIDIA/sysdiff/pkg/serializer"
	"github.com/NVIDIA/sysdiff/pkg/snapshotter"
)

const workloadLogName = "workload.log"

func captureCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Capture config file (YAML or JSON) or ConfigMap URI (cm://namespace/name)",
			Sources: cli.EnvVars(envPrefix + "CONFIG"),
		},
		&cli.StringSliceFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "Device path to capture, repeatable. A trailing /* captures the directory contents",
			Sources: cli.EnvVars(envPrefix + "PATHS"),
		},
		&cli.BoolFlag{
			Name:    "use-tmpfs",
			Usage:   "Stage captures in a device tmpfs (default: when the device is rooted)",
			Sources: cli.EnvVars(envPrefix + "USE_TMPFS"),
		},
		&cli.StringFlag{
			Name:    "tmpfs-mount-point",
			Usage:   "Device tmpfs mount point (default <workdir>/" + defaults.TmpfsDirName + ")",
			Sources: cli.EnvVars(envPrefix + "TMPFS_MOUNT_POINT"),
		},
		&cli.StringFlag{
			Name:    "tmpfs-size",
			Value:   defaults.TmpfsSize,
			Usage:   "Device tmpfs size option",
			Sources: cli.EnvVars(envPrefix + "TMPFS_SIZE"),
		},
		&cli.BoolFlag{
			Name:    "interrupts",
			Usage:   "Capture and diff the interrupt counter table",
			Sources: cli.EnvVars(envPrefix + "INTERRUPTS"),
		},
		&cli.StringFlag{
			Name:    "interrupts-path",
			Value:   snapshotter.DefaultTablePath,
			Usage:   "Counter table file on the device",
			Sources: cli.EnvVars(envPrefix + "INTERRUPTS_PATH"),
		},
		numericDeltaFlag(),
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"O"},
			Value:   "sysdiff-out",
			Usage:   "Host directory receiving before/, after/ and diff/ trees",
			Sources: cli.EnvVars(envPrefix + "OUTPUT_DIR"),
		},
		&cli.DurationFlag{
			Name:    "workload-timeout",
			Value:   defaults.WorkloadTimeout,
			Usage:   "Maximum duration of the workload command",
			Sources: cli.EnvVars(envPrefix + "WORKLOAD_TIMEOUT"),
		},
		outputFlag(),
		formatFlag(),
	}

	return &cli.Command{
		Name:                  "capture",
		EnableShellCompletion: true,
		Usage:                 "Snapshot device state before and after a workload and diff it",
		ArgsUsage:             "-- <workload command>",
		Description: `Run a workload command on a device and diff the device state it changed.

Each configured path is captured before and after the workload into
<output-dir>/before and <output-dir>/after; differences are written to
<output-dir>/diff. On rooted devices captures are staged in a tmpfs and
pulled as one archive at the end of the run.

# Examples

Capture cpufreq state around a local benchmark:
  sysdiff capture -p /sys/devices/system/cpu/cpufreq -- ./bench --quick

Capture devfreq contents and interrupts on an SSH device:
  sysdiff capture --device ssh --ssh-host 10.0.0.12 --ssh-key ~/.ssh/lab \
    -p '/sys/class/devfreq/*' --interrupts -- /opt/bench/run.sh

Capture inside a pod and publish the result to a ConfigMap:
  sysdiff capture --device pod --namespace lab --pod gpu-node-0 \
    --config capture.yaml --output cm://lab/sysdiff-result -- nvidia-smi -q`,
		Flags: append(flags, deviceFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			workload := cmd.Args().Slice()
			if len(workload) == 0 {
				return errors.New(errors.ErrCodeConfiguration, "a workload command is required after --")
			}
			cf, err := buildCaptureConfig(ctx, cmd)
			if err != nil {
				return err
			}

			dev, err := openDevice(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := dev.Close(); closeErr != nil {
					slog.Debug("failed to close device", "error", closeErr)
				}
			}()

			outputDir := cmd.String("output-dir")
			res, runErr := runCapture(ctx, dev, cf, captureRun{
				outputDir: outputDir,
				command:   strings.Join(workload, " "),
				timeout:   cmd.Duration("workload-timeout"),
			})

			dest := cmd.String("output")
			if dest == "" {
				dest = filepath.Join(outputDir, "result."+resultExt(format))
			}
			ser, err := newResultSerializer(format, dest, cmd.String("kubeconfig"))
			if err != nil {
				return stderrors.Join(runErr, err)
			}
			serErr := ser.Serialize(ctx, res)
			if closeErr := serializer.Close(ser); closeErr != nil {
				slog.Warn("failed to close serializer", "error", closeErr)
			}
			if serErr == nil {
				slog.Info("result written", "destination", dest, "run_id", res.RunID)
			}
			return stderrors.Join(runErr, serErr)
		},
	}
}

// captureRun holds the per-invocation workload settings.
type captureRun struct {
	outputDir string
	command   string
	timeout   time.Duration
}

// runCapture runs the configured instruments around the workload on dev.
// The returned Result is populated even when the run fails.
func runCapture(ctx context.Context, dev device.Device, cf *CaptureFile, cr captureRun) (*result.Result, error) {
	res := result.New(version)
	rc := &runner.Context{OutputDir: cr.outputDir, Result: res}

	var instruments []runner.Instrument
	if len(cf.Paths) > 0 {
		capturer, err := snapshotter.NewCapturer(dev, cf.Config)
		if err != nil {
			return res, err
		}
		res.SetMetadata("mode", string(capturer.Mode()))
		instruments = append(instruments, snapshotter.NewSysfsInstrument(capturer))
	}
	if cf.Interrupts {
		table := snapshotter.NewTableCapture(dev, cf.InterruptsPath, cf.NumericDelta)
		instruments = append(instruments, snapshotter.NewInterruptsInstrument(table))
	}
	// last, so Before starts and After stops the clock right around the workload
	instruments = append(instruments, runner.NewExecutionTimer())

	slog.Info("starting capture",
		"paths", len(cf.Paths),
		"interrupts", cf.Interrupts,
		"output_dir", cr.outputDir,
		"workload", cr.command)

	err := runner.New(instruments...).Run(ctx, rc, deviceWorkload(dev, cr, res))
	return res, err
}

// deviceWorkload runs the workload command on dev and keeps its output
// in the output directory.
func deviceWorkload(dev device.Device, cr captureRun, res *result.Result) runner.Workload {
	return func(ctx context.Context) error {
		out, err := dev.Execute(ctx, cr.command, device.WithTimeout(cr.timeout))
		logPath := filepath.Join(cr.outputDir, workloadLogName)
		if writeErr := os.WriteFile(logPath, []byte(out), 0o644); writeErr != nil {
			slog.Warn("failed to write workload output", "path", logPath, "error", writeErr)
		} else {
			res.AddArtifact("workload", workloadLogName, result.ArtifactLog)
		}
		if err != nil {
			return fmt.Errorf("%q failed: %w", cr.command, err)
		}
		return nil
	}
}

func resultExt(f serializer.Format) string {
	if f == serializer.FormatTable {
		return "txt"
	}
	return string(f)
}
