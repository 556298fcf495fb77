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
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/defaults"
	"github.com/NVIDIA/sysdiff/pkg/errors"
	"github.com/NVIDIA/sysdiff/pkg/header"
	"github.com/NVIDIA/sysdiff/pkg/k8s/client"
	"github.com/NVIDIA/sysdiff/pkg/serializer"
	"github.com/NVIDIA/sysdiff/pkg/snapshotter"
	ver "github.com/NVIDIA/sysdiff/pkg/version"
)

// CaptureFile is the capture configuration document read by --config.
//
//	kind: CaptureConfig
//	apiVersion: sysdiff.nvidia.com/v1alpha1
//	minVersion: "0.2"
//	paths:
//	  - /sys/class/devfreq/*
//	  - /sys/devices/system/cpu/cpufreq
//	use_tmpfs: true
//	interrupts: true
type CaptureFile struct {
	header.Header `json:",inline" yaml:",inline"`

	// MinVersion is the oldest sysdiff release that understands this file.
	MinVersion string `json:"minVersion,omitempty" yaml:"minVersion,omitempty"`

	snapshotter.Config `json:",inline" yaml:",inline"`

	// Interrupts adds the interrupt counter table to the capture.
	Interrupts bool `json:"interrupts,omitempty" yaml:"interrupts,omitempty"`

	// InterruptsPath overrides the counter table file on the device.
	InterruptsPath string `json:"interrupts_path,omitempty" yaml:"interrupts_path,omitempty"`
}

// loadCaptureFile reads source, a file path or a ConfigMap URI, and checks
// its kind and minimum version.
func loadCaptureFile(ctx context.Context, source, kubeconfig string) (*CaptureFile, error) {
	var (
		cf  *CaptureFile
		err error
	)
	if strings.HasPrefix(source, serializer.ConfigMapURIScheme) && kubeconfig != "" {
		namespace, name, perr := serializer.ParseConfigMapURI(source)
		if perr != nil {
			return nil, perr
		}
		k8s, _, kerr := client.ForKubeconfig(kubeconfig)
		if kerr != nil {
			return nil, fmt.Errorf("failed to get kubernetes client: %w", kerr)
		}
		cf, err = serializer.FromConfigMap[CaptureFile](ctx, k8s, namespace, name)
	} else {
		cf, err = serializer.FromFile[CaptureFile](ctx, source)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, "failed to load capture config", err)
	}

	if cf.Kind != "" && cf.Kind != header.KindCaptureConfig {
		return nil, errors.NewWithContext(errors.ErrCodeConfiguration, "unexpected document kind",
			map[string]any{"source": source, "kind": cf.Kind.String()})
	}
	if err := ver.CheckMinimum(version, cf.MinVersion); err != nil {
		return nil, err
	}
	return cf, nil
}

// buildCaptureConfig merges the optional --config document with the flags.
// Flags that were set explicitly win over the file.
func buildCaptureConfig(ctx context.Context, cmd *cli.Command) (*CaptureFile, error) {
	cf := &CaptureFile{}
	if source := cmd.String("config"); source != "" {
		loaded, err := loadCaptureFile(ctx, source, cmd.String("kubeconfig"))
		if err != nil {
			return nil, err
		}
		cf = loaded
		slog.Debug("capture config loaded", "source", source, "paths", len(cf.Paths))
	}

	if cmd.IsSet("path") {
		cf.Paths = cmd.StringSlice("path")
	}
	if cmd.IsSet("use-tmpfs") {
		useTmpfs := cmd.Bool("use-tmpfs")
		cf.UseTmpfs = &useTmpfs
	}
	if cmd.IsSet("tmpfs-mount-point") {
		cf.TmpfsMountPoint = cmd.String("tmpfs-mount-point")
	}
	if cmd.IsSet("tmpfs-size") || cf.TmpfsSize == "" {
		cf.TmpfsSize = cmd.String("tmpfs-size")
	}
	if cmd.IsSet("interrupts") {
		cf.Interrupts = cmd.Bool("interrupts")
	}
	if cmd.IsSet("interrupts-path") || cf.InterruptsPath == "" {
		cf.InterruptsPath = cmd.String("interrupts-path")
	}
	if cmd.IsSet("numeric-delta") {
		cf.NumericDelta = cmd.Bool("numeric-delta")
	}

	if len(cf.Paths) == 0 && !cf.Interrupts {
		return nil, errors.New(errors.ErrCodeConfiguration,
			"nothing to capture: set --path, --interrupts or a config file")
	}
	if cf.TmpfsSize == "" {
		cf.TmpfsSize = defaults.TmpfsSize
	}
	if cf.InterruptsPath == "" {
		cf.InterruptsPath = snapshotter.DefaultTablePath
	}
	return cf, nil
}
