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
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/sysdiff/pkg/k8s/client"
	"github.com/NVIDIA/sysdiff/pkg/serializer"
)

// Flag constructors return fresh values so commands never share parse state.

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage: `Result destination: a file path or a ConfigMap URI (cm://namespace/name).
	Defaults to result.<format> in the output directory.`,
		Sources: cli.EnvVars(envPrefix + "OUTPUT"),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("Result format (supported: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
		Sources: cli.EnvVars(envPrefix + "FORMAT"),
	}
}

func kubeconfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kubeconfig",
		Aliases: []string{"k"},
		Usage:   "Path to kubeconfig (defaults to KUBECONFIG, ~/.kube/config, then in-cluster)",
		Sources: cli.EnvVars(envPrefix + "KUBECONFIG"),
	}
}

func numericDeltaFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "numeric-delta",
		Usage:   "Render changed integer tokens as signed differences",
		Sources: cli.EnvVars(envPrefix + "NUMERIC_DELTA"),
	}
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// newResultSerializer returns the sink for dest. ConfigMap sinks use the
// client for kubeconfig; everything else goes through the file writer.
func newResultSerializer(format serializer.Format, dest, kubeconfig string) (serializer.Serializer, error) {
	if !strings.HasPrefix(dest, serializer.ConfigMapURIScheme) || kubeconfig == "" {
		return serializer.NewFileWriterOrStdout(format, dest), nil
	}
	namespace, name, err := serializer.ParseConfigMapURI(dest)
	if err != nil {
		return nil, err
	}
	k8s, _, err := client.ForKubeconfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes client: %w", err)
	}
	return serializer.NewConfigMapWriter(namespace, name, format).WithClient(k8s), nil
}
