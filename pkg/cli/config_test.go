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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/defaults"
	"github.com/NVIDIA/sysdiff/pkg/errors"
	"github.com/NVIDIA/sysdiff/pkg/snapshotter"
)

// parseCapture runs the capture command flag parsing and returns the
// merged configuration.
func parseCapture(t *testing.T, args ...string) (*CaptureFile, error) {
	t.Helper()
	var (
		got    *CaptureFile
		gotErr error
	)
	cmd := captureCmd()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got, gotErr = buildCaptureConfig(ctx, c)
		return nil
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"capture"}, args...)))
	return got, gotErr
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestBuildCaptureConfig_Flags(t *testing.T) {
	cf, err := parseCapture(t,
		"--path", "/sys/class/devfreq/*",
		"--path", "/sys/kernel/debug/clk",
		"--use-tmpfs=false",
		"--numeric-delta")
	require.NoError(t, err)

	assert.Equal(t, []string{"/sys/class/devfreq/*", "/sys/kernel/debug/clk"}, cf.Paths)
	require.NotNil(t, cf.UseTmpfs)
	assert.False(t, *cf.UseTmpfs)
	assert.True(t, cf.NumericDelta)
	assert.False(t, cf.Interrupts)
	assert.Equal(t, defaults.TmpfsSize, cf.TmpfsSize)
	assert.Equal(t, snapshotter.DefaultTablePath, cf.InterruptsPath)
}

func TestBuildCaptureConfig_UseTmpfsUnset(t *testing.T) {
	cf, err := parseCapture(t, "--path", "/sys/a")
	require.NoError(t, err)
	assert.Nil(t, cf.UseTmpfs, "unset flag must keep automatic mode selection")
}

func TestBuildCaptureConfig_FileWithOverrides(t *testing.T) {
	p := writeConfig(t, "capture.yaml", `kind: CaptureConfig
apiVersion: sysdiff.nvidia.com/v1alpha1
paths:
  - /sys/class/devfreq/*
use_tmpfs: true
tmpfs_size: 64m
interrupts: true
interrupts_path: /proc/softirqs
`)

	cf, err := parseCapture(t, "--config", p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/sys/class/devfreq/*"}, cf.Paths)
	require.NotNil(t, cf.UseTmpfs)
	assert.True(t, *cf.UseTmpfs)
	assert.Equal(t, "64m", cf.TmpfsSize)
	assert.True(t, cf.Interrupts)
	assert.Equal(t, "/proc/softirqs", cf.InterruptsPath)

	cf, err = parseCapture(t, "--config", p,
		"--path", "/sys/other",
		"--tmpfs-size", "8m",
		"--use-tmpfs=false",
		"--interrupts=false")
	require.NoError(t, err)
	assert.Equal(t, []string{"/sys/other"}, cf.Paths)
	assert.Equal(t, "8m", cf.TmpfsSize)
	require.NotNil(t, cf.UseTmpfs)
	assert.False(t, *cf.UseTmpfs)
	assert.False(t, cf.Interrupts)
	assert.Equal(t, "/proc/softirqs", cf.InterruptsPath)
}

func TestBuildCaptureConfig_JSONFile(t *testing.T) {
	p := writeConfig(t, "capture.json", `{"paths": ["/sys/a/*"], "numeric_delta": true}`)

	cf, err := parseCapture(t, "--config", p)
	require.NoError(t, err)
	assert.Equal(t, []string{"/sys/a/*"}, cf.Paths)
	assert.True(t, cf.NumericDelta)
	assert.Nil(t, cf.UseTmpfs)
}

func TestBuildCaptureConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "wrong kind",
			content: "kind: CaptureResult\npaths: [/sys/a]\n",
		},
		{
			name:    "unknown field",
			content: "paths: [/sys/a]\nuse_tmpfss: true\n",
		},
		{
			name:    "newer release required",
			content: "minVersion: \"999.0\"\npaths: [/sys/a]\n",
		},
		{
			name:    "nothing to capture",
			content: "tmpfs_size: 8m\n",
		},
	}

	// a release build is needed for the version gate to apply
	orig := version
	version = "1.2.0"
	t.Cleanup(func() { version = orig })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, "capture.yaml", tt.content)
			_, err := parseCapture(t, "--config", p)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), "got %v", err)
		})
	}
}

func TestBuildCaptureConfig_MissingFile(t *testing.T) {
	_, err := parseCapture(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}
