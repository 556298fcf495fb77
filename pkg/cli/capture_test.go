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
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/sysdiff/pkg/device"
	"github.com/NVIDIA/sysdiff/pkg/errors"
	"github.com/NVIDIA/sysdiff/pkg/result"
)

const (
	tableBefore = `           CPU0       CPU1
 24:        100          7   GICv3  24 Level     arch_timer
`
	tableAfter = `           CPU0       CPU1
 24:        180          9   GICv3  24 Level     arch_timer
`
)

// labTransport emulates a non-root device holding one cpufreq file and
// the interrupt table. Reads before the workload return the first state.
type labTransport struct {
	t        *testing.T
	commands []string
	ranBench bool
	failWith error
}

func (l *labTransport) Run(_ context.Context, command string, stdout, _ io.Writer) error {
	l.commands = append(l.commands, command)
	switch {
	case command == "bench --iterations 3":
		l.ranBench = true
		_, _ = io.WriteString(stdout, "score: 42\n")
		return l.failWith
	case command == "cat '/proc/interrupts'":
		body := tableBefore
		if l.ranBench {
			body = tableAfter
		}
		_, _ = io.WriteString(stdout, body)
	case strings.Contains(command, " -RH '/sys/devices/cpu0/cpufreq' "):
		freq := "1200 MHz\n"
		if l.ranBench {
			freq = "1800 MHz\n"
		}
		_, _ = stdout.Write(tarOf(l.t, "./cpufreq/cur_freq", freq))
	}
	return nil
}

func (l *labTransport) Close() error { return nil }

func tarOf(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o444,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func newLabDevice(t *testing.T, lt *labTransport) *device.ShellDevice {
	t.Helper()
	lt.t = t
	dev, err := device.New(context.Background(), lt, device.WithRooted(false))
	require.NoError(t, err)
	return dev
}

func readOut(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunCapture(t *testing.T) {
	lt := &labTransport{}
	dev := newLabDevice(t, lt)
	out := t.TempDir()

	cf := &CaptureFile{Interrupts: true, InterruptsPath: "/proc/interrupts"}
	cf.Paths = []string{"/sys/devices/cpu0/cpufreq"}

	res, err := runCapture(context.Background(), dev, cf, captureRun{
		outputDir: out,
		command:   "bench --iterations 3",
		timeout:   time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, "1200 MHz\n", readOut(t, filepath.Join(out, "before", "sys", "devices", "cpu0", "cpufreq", "cur_freq")))
	assert.Equal(t, "[1200 -> 1800] MHz\n", readOut(t, filepath.Join(out, "diff", "sys", "devices", "cpu0", "cpufreq", "cur_freq")))
	assert.Contains(t, readOut(t, filepath.Join(out, "diff", "proc", "interrupts")), "[100 -> 180]")
	assert.Equal(t, "score: 42\n", readOut(t, filepath.Join(out, workloadLogName)))

	assert.Equal(t, "direct-pull", res.Metadata["mode"])
	_, ok := res.Metric("execution_time")
	assert.True(t, ok, "execution_time metric missing")
	m, ok := res.Metric("sysfs_paths_diffed")
	require.True(t, ok)
	assert.Equal(t, float64(1), m.Value)

	kinds := map[string]string{}
	for _, a := range res.Artifacts {
		kinds[a.Name] = a.Kind
	}
	assert.Equal(t, result.ArtifactTreeDiff, kinds["/sys/devices/cpu0/cpufreq"])
	assert.Equal(t, result.ArtifactTableDiff, kinds["/proc/interrupts"])
	assert.Equal(t, result.ArtifactLog, kinds["workload"])
}

func TestRunCapture_NumericDelta(t *testing.T) {
	lt := &labTransport{}
	dev := newLabDevice(t, lt)
	out := t.TempDir()

	cf := &CaptureFile{Interrupts: true, InterruptsPath: "/proc/interrupts"}
	cf.NumericDelta = true

	_, err := runCapture(context.Background(), dev, cf, captureRun{
		outputDir: out,
		command:   "bench --iterations 3",
		timeout:   time.Minute,
	})
	require.NoError(t, err)

	diffOut := readOut(t, filepath.Join(out, "diff", "proc", "interrupts"))
	assert.Contains(t, diffOut, "80")
	assert.NotContains(t, diffOut, "->")
}

func TestRunCapture_WorkloadFailure(t *testing.T) {
	lt := &labTransport{failWith: &device.ExitError{Code: 3}}
	dev := newLabDevice(t, lt)
	out := t.TempDir()

	cf := &CaptureFile{Interrupts: true, InterruptsPath: "/proc/interrupts"}
	cf.Paths = []string{"/sys/devices/cpu0/cpufreq"}

	res, err := runCapture(context.Background(), dev, cf, captureRun{
		outputDir: out,
		command:   "bench --iterations 3",
		timeout:   time.Minute,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDevice), "got %v", err)

	// the after capture never ran, so nothing was diffed
	_, statErr := os.Stat(filepath.Join(out, "diff", "proc", "interrupts"))
	assert.True(t, os.IsNotExist(statErr))
	_, ok := res.Metric("sysfs_paths_diffed")
	assert.False(t, ok)
	_, ok = res.Metric("execution_time")
	assert.False(t, ok, "execution_time needs a completed workload")
}

func TestRunCapture_TmpfsOnUnrootedDevice(t *testing.T) {
	dev := newLabDevice(t, &labTransport{})
	useTmpfs := true
	cf := &CaptureFile{}
	cf.Paths = []string{"/sys/a"}
	cf.UseTmpfs = &useTmpfs

	_, err := runCapture(context.Background(), dev, cf, captureRun{outputDir: t.TempDir(), command: "true"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}

func TestCaptureCmd_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{
			name: "missing workload",
			args: []string{"--path", "/sys/a"},
			code: errors.ErrCodeConfiguration,
		},
		{
			name: "unknown device",
			args: []string{"--device", "usb", "--path", "/sys/a", "--", "true"},
			code: errors.ErrCodeConfiguration,
		},
		{
			name: "ssh without host",
			args: []string{"--device", "ssh", "--path", "/sys/a", "--", "true"},
			code: errors.ErrCodeConfiguration,
		},
		{
			name: "pod without name",
			args: []string{"--device", "pod", "--path", "/sys/a", "--", "true"},
			code: errors.ErrCodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"capture", "--output-dir", t.TempDir()}, tt.args...)
			err := captureCmd().Run(context.Background(), args)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCaptureCmd_UnknownFormat(t *testing.T) {
	err := captureCmd().Run(context.Background(),
		[]string{"capture", "--format", "xml", "--path", "/sys/a", "--", "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
