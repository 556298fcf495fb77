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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"

	"github.com/NVIDIA/sysdiff/pkg/defaults"
	"github.com/NVIDIA/sysdiff/pkg/header"
	"github.com/NVIDIA/sysdiff/pkg/k8s/client"
)

// ConfigMapURIScheme prefixes ConfigMap destinations: cm://namespace/name.
const ConfigMapURIScheme = "cm://"

// fieldManager owns the ConfigMap fields written by sysdiff.
const fieldManager = "sysdiff"

// ConfigMapWriter writes serialized documents to a Kubernetes ConfigMap.
// The ConfigMap is created if it doesn't exist, or updated if it does.
type ConfigMapWriter struct {
	namespace string
	name      string
	format    Format
	client    client.Interface
}

// NewConfigMapWriter creates a ConfigMapWriter using the default kube client.
func NewConfigMapWriter(namespace, name string, format Format) *ConfigMapWriter {
	return &ConfigMapWriter{
		namespace: namespace,
		name:      name,
		format:    orJSON(format),
	}
}

// WithClient returns the writer bound to c instead of the default client.
func (w *ConfigMapWriter) WithClient(c client.Interface) *ConfigMapWriter {
	w.client = c
	return w
}

// Serialize writes v to the ConfigMap. The ConfigMap will have:
//   - data.result.{json|yaml|txt}: the serialized document
//   - data.format: the format used
//   - data.timestamp: the document timestamp, or now
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	k8s := w.client
	if k8s == nil {
		var err error
		if k8s, _, err = client.GetKubeClient(); err != nil {
			return fmt.Errorf("failed to get kubernetes client: %w", err)
		}
	}

	content, err := encode(w.format, v)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	extension := w.format.extension()

	kind, version, timestamp := "unknown", "unknown", ""
	if h, ok := v.(interface{ GetHeader() header.Header }); ok {
		hdr := h.GetHeader()
		if hdr.Kind != "" {
			kind = hdr.Kind.String()
		}
		if ver, ok := hdr.Metadata["version"]; ok {
			version = ver
		}
		timestamp = hdr.Metadata["timestamp"]
	}
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	configMap := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(map[string]string{
			"app.kubernetes.io/name":      "sysdiff",
			"app.kubernetes.io/component": kind,
			"app.kubernetes.io/version":   version,
		}).
		WithData(map[string]string{
			"result." + extension: string(content),
			"format":              string(w.format),
			"timestamp":           timestamp,
		})

	slog.Info("applying ConfigMap",
		"namespace", w.namespace,
		"name", w.name,
		"format", w.format)

	_, err = k8s.CoreV1().ConfigMaps(w.namespace).Apply(writeCtx, configMap, metav1.ApplyOptions{
		FieldManager: fieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap: %w", err)
	}
	return nil
}

// Close is a no-op.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// ParseConfigMapURI splits cm://namespace/name.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])

	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}

	return namespace, name, nil
}
