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

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/device"
	"github.com/NVIDIA/sysdiff/pkg/errors"
	"github.com/NVIDIA/sysdiff/pkg/k8s/client"
)

// Device kinds accepted by --device.
const (
	deviceLocal = "local"
	deviceSSH   = "ssh"
	devicePod   = "pod"
)

func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   deviceLocal,
			Usage:   fmt.Sprintf("Device transport (%s, %s, %s)", deviceLocal, deviceSSH, devicePod),
			Sources: cli.EnvVars(envPrefix + "DEVICE"),
		},
		&cli.StringFlag{
			Name:    "workdir",
			Usage:   "Device working directory for scratch files",
			Sources: cli.EnvVars(envPrefix + "WORKDIR"),
		},
		&cli.StringFlag{
			Name:    "busybox",
			Usage:   "BusyBox binary on the device used as a prefix for cp, tar, gzip and ls",
			Sources: cli.EnvVars(envPrefix + "BUSYBOX"),
		},
		&cli.BoolFlag{
			Name:  "rooted",
			Usage: "Skip the root probe and treat the device as rooted (true) or not (false)",
		},
		&cli.StringFlag{
			Name:    "ssh-host",
			Usage:   "SSH device address (host or host:port)",
			Sources: cli.EnvVars(envPrefix + "SSH_HOST"),
		},
		&cli.StringFlag{
			Name:    "ssh-user",
			Value:   "root",
			Usage:   "SSH user",
			Sources: cli.EnvVars(envPrefix + "SSH_USER"),
		},
		&cli.StringFlag{
			Name:    "ssh-key",
			Usage:   "SSH private key file",
			Sources: cli.EnvVars(envPrefix + "SSH_KEY"),
		},
		&cli.StringFlag{
			Name:    "ssh-password",
			Usage:   "SSH password",
			Sources: cli.EnvVars(envPrefix + "SSH_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "ssh-known-hosts",
			Usage:   "known_hosts file (default ~/.ssh/known_hosts)",
			Sources: cli.EnvVars(envPrefix + "SSH_KNOWN_HOSTS"),
		},
		&cli.BoolFlag{
			Name:  "ssh-insecure",
			Usage: "Accept any SSH host key",
		},
		kubeconfigFlag(),
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Value:   "default",
			Usage:   "Namespace of the device pod",
			Sources: cli.EnvVars(envPrefix + "NAMESPACE"),
		},
		&cli.StringFlag{
			Name:    "pod",
			Usage:   "Device pod name",
			Sources: cli.EnvVars(envPrefix + "POD"),
		},
		&cli.StringFlag{
			Name:    "container",
			Usage:   "Container in the device pod (default container when empty)",
			Sources: cli.EnvVars(envPrefix + "CONTAINER"),
		},
	}
}

// openTransport builds the transport selected by --device.
func openTransport(ctx context.Context, cmd *cli.Command) (device.Transport, error) {
	switch kind := cmd.String("device"); kind {
	case deviceLocal:
		return device.NewLocalTransport(nil), nil
	case deviceSSH:
		if cmd.String("ssh-host") == "" {
			return nil, errors.New(errors.ErrCodeConfiguration, "--ssh-host is required for ssh devices")
		}
		return device.DialSSH(ctx, device.SSHConfig{
			Address:        cmd.String("ssh-host"),
			User:           cmd.String("ssh-user"),
			Password:       cmd.String("ssh-password"),
			KeyFile:        cmd.String("ssh-key"),
			KnownHostsFile: cmd.String("ssh-known-hosts"),
			Insecure:       cmd.Bool("ssh-insecure"),
		})
	case devicePod:
		if cmd.String("pod") == "" {
			return nil, errors.New(errors.ErrCodeConfiguration, "--pod is required for pod devices")
		}
		k8s, restConfig, err := client.ForKubeconfig(cmd.String("kubeconfig"))
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
		}
		return device.NewPodTransport(k8s, restConfig,
			cmd.String("namespace"), cmd.String("pod"), cmd.String("container")), nil
	default:
		return nil, errors.NewWithContext(errors.ErrCodeConfiguration, "unknown device kind",
			map[string]any{"device": kind})
	}
}

// deviceOptions maps the device flags that were set onto device options.
func deviceOptions(cmd *cli.Command) []device.Option {
	var opts []device.Option
	if wd := cmd.String("workdir"); wd != "" {
		opts = append(opts, device.WithWorkingDirectory(wd))
	}
	if bb := cmd.String("busybox"); bb != "" {
		opts = append(opts, device.WithBusybox(bb))
	}
	if cmd.IsSet("rooted") {
		opts = append(opts, device.WithRooted(cmd.Bool("rooted")))
	}
	return opts
}

func openDevice(ctx context.Context, cmd *cli.Command) (*device.ShellDevice, error) {
	t, err := openTransport(ctx, cmd)
	if err != nil {
		return nil, err
	}
	dev, err := device.New(ctx, t, deviceOptions(cmd)...)
	if err != nil {
		if closeErr := t.Close(); closeErr != nil {
			slog.Debug("failed to close transport", "error", closeErr)
		}
		return nil, err
	}
	slog.Info("device opened",
		"device", cmd.String("device"),
		"rooted", dev.IsRooted(),
		"working_directory", dev.WorkingDirectory())
	return dev, nil
}
